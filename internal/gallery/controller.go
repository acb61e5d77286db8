// Package gallery keeps the state of the media feed of one workspace:
// the active query, the pages loaded so far and the bulk selection.
package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"boltvault/internal/domain/models"
	"boltvault/internal/gateway"
	"boltvault/internal/lib/logger/sl"

	"github.com/google/uuid"
)

const DefaultSearchDebounce = 300 * time.Millisecond

const MsgNothingSelected = "No items selected."

// View is a copy of the controller state for rendering.
type View struct {
	Query      Query
	Filters    models.FilterSpec
	SearchTerm string
	Active     bool

	Items   []models.MediaItem
	Page    int
	HasMore bool
	Total   int

	Loaded     bool
	Loading    bool
	SelectMode bool
	Selected   map[uuid.UUID]bool
	Err        string
}

// Empty returns the empty state to render for the view.
func (v View) Empty(authenticated bool) EmptyState {
	if !v.Loaded {
		return EmptyNone
	}
	return EmptyStateFor(authenticated, v.Active, len(v.Items))
}

// Controller is safe for concurrent use. Its lock is never held during a
// gateway call; every query change bumps a generation and responses of an
// older generation are dropped.
type Controller struct {
	log        *slog.Logger
	gw         gateway.Gateway
	searchWait time.Duration

	mu          sync.Mutex
	searchTimer *time.Timer // pending debounced search fetch
	gen        uint64
	query      Query
	items      []models.MediaItem
	page       int
	hasMore    bool
	total      int
	loaded     bool
	loading    bool
	moreGen    uint64
	moreBusy   bool
	selectMode bool
	selected   map[uuid.UUID]struct{}
	lastErr    error
	onUpdate   func()
}

func NewController(log *slog.Logger, gw gateway.Gateway, searchDebounce time.Duration) *Controller {
	if searchDebounce <= 0 {
		searchDebounce = DefaultSearchDebounce
	}

	return &Controller{
		log:        log,
		gw:         gw,
		searchWait: searchDebounce,
		query:      FilterQuery{},
		selected:   make(map[uuid.UUID]struct{}),
	}
}

// OnUpdate registers fn to run after a debounced search has been applied.
func (c *Controller) OnUpdate(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// Query returns the active query.
func (c *Controller) Query() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Load fetches page 0 of the current query if nothing was loaded yet.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.loaded || c.loading
	c.mu.Unlock()

	if loaded {
		return nil
	}

	return c.Refresh(ctx)
}

// ApplyFilters replaces the filter spec, drops any search and reloads
// from page 0.
func (c *Controller) ApplyFilters(ctx context.Context, spec models.FilterSpec) error {
	gen, q := c.restart(FilterQuery{Spec: spec})
	return c.loadFirst(ctx, gen, q)
}

// ApplySearch switches to a search for term right away and fetches the
// results once no other call arrived for the debounce window. A blank
// term clears the search.
func (c *Controller) ApplySearch(ctx context.Context, term string) {
	const op = "gallery.Controller.ApplySearch"

	bg := context.WithoutCancel(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	gen, q := c.restartLocked(searchOrClear(term))

	c.searchTimer = time.AfterFunc(c.searchWait, func() {
		if err := c.loadFirst(bg, gen, q); err != nil {
			c.log.Warn("debounced search failed", slog.String("op", op), sl.Err(err))
		}

		c.mu.Lock()
		fn := c.onUpdate
		c.mu.Unlock()

		if fn != nil {
			fn()
		}
	})
}

// SearchNow is ApplySearch without the debounce, used for explicit submits.
func (c *Controller) SearchNow(ctx context.Context, term string) error {
	gen, q := c.restart(searchOrClear(term))
	return c.loadFirst(ctx, gen, q)
}

// ClearSearch drops the search term and shows the unfiltered gallery.
func (c *Controller) ClearSearch(ctx context.Context) error {
	gen, q := c.restart(FilterQuery{})
	return c.loadFirst(ctx, gen, q)
}

// Refresh refetches page 0 of the current query, used after a single
// item was created, updated or deleted.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	q := c.query
	c.mu.Unlock()

	gen, q := c.restart(q)
	return c.loadFirst(ctx, gen, q)
}

// Invalidate drops the loaded pages without fetching; the next Load
// fetches page 0 of the current query again.
func (c *Controller) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.loaded = false
	c.loading = false
	c.moreBusy = false
}

// Reset forgets everything. It runs on navigation and auth changes.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopSearchLocked()
	c.gen++
	c.query = FilterQuery{}
	c.items = nil
	c.page = 0
	c.hasMore = false
	c.total = 0
	c.loaded = false
	c.loading = false
	c.moreBusy = false
	c.lastErr = nil
	c.exitSelectLocked()
}

// LoadMore appends the next page. It returns false without calling the
// backend when another LoadMore is in flight or no more pages exist.
func (c *Controller) LoadMore(ctx context.Context) (bool, error) {
	const op = "gallery.Controller.LoadMore"

	c.mu.Lock()
	fq, paged := c.query.(FilterQuery)
	if c.moreBusy || !c.hasMore || !paged {
		c.mu.Unlock()
		return false, nil
	}
	c.moreBusy = true
	c.moreGen = c.gen
	gen := c.gen
	next := c.page + 1
	c.mu.Unlock()

	page, err := c.gw.ListMedia(ctx, fq.Spec, next)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.moreGen == gen {
		c.moreBusy = false
	}
	if gen != c.gen {
		c.log.Debug("dropping stale page", slog.String("op", op), slog.Int("page", next))
		return false, nil
	}
	if err != nil {
		c.lastErr = err
		return false, fmt.Errorf("%s: %w", op, err)
	}

	c.items = append(c.items, page.Items...)
	c.page = next
	c.hasMore = page.HasMore
	c.total = page.Total
	c.lastErr = nil

	return true, nil
}

// ToggleSelectMode flips select mode and returns the new mode. Leaving
// select mode clears the selection.
func (c *Controller) ToggleSelectMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selectMode {
		c.exitSelectLocked()
		return false
	}

	c.selectMode = true
	return true
}

func (c *Controller) ExitSelectMode() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exitSelectLocked()
}

// ToggleItemSelection adds or removes id and reports whether it is now
// selected. Outside select mode it does nothing.
func (c *Controller) ToggleItemSelection(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.selectMode {
		return false
	}

	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
		return false
	}

	c.selected[id] = struct{}{}
	return true
}

// DeleteSelected removes the selection with one batch call. Only on
// success the selection is cleared, select mode ends and every page loaded
// so far is fetched again. The returned error reports the batch call only.
func (c *Controller) DeleteSelected(ctx context.Context) error {
	const op = "gallery.Controller.DeleteSelected"

	c.mu.Lock()
	ids := make([]uuid.UUID, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	if len(ids) == 0 {
		return gateway.NewValidationError("selection", MsgNothingSelected)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	log := c.log.With(slog.String("op", op), slog.Int("count", len(ids)))

	if err := c.gw.DeleteMediaBatch(ctx, ids); err != nil {
		log.Error("batch delete failed", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	c.exitSelectLocked()
	pages := c.page
	c.gen++
	c.loading = true
	c.moreBusy = false
	gen, q := c.gen, c.query
	c.mu.Unlock()

	// the rows are gone either way; a failed refetch leaves the gallery
	// unloaded so the next Load tries again
	if err := c.loadRange(ctx, gen, q, pages); err != nil {
		log.Warn("refetch after batch delete failed", sl.Err(err))

		c.mu.Lock()
		if c.gen == gen {
			c.loaded = false
		}
		c.mu.Unlock()
	}

	return nil
}

// Snapshot copies the state for rendering.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Query:      c.query,
		Active:     c.query.Active(),
		Items:      append([]models.MediaItem(nil), c.items...),
		Page:       c.page,
		HasMore:    c.hasMore,
		Total:      c.total,
		Loaded:     c.loaded,
		Loading:    c.loading,
		SelectMode: c.selectMode,
		Selected:   make(map[uuid.UUID]bool, len(c.selected)),
	}

	switch q := c.query.(type) {
	case FilterQuery:
		v.Filters = q.Spec
	case SearchQuery:
		v.SearchTerm = q.Term
	}

	for id := range c.selected {
		v.Selected[id] = true
	}

	if c.lastErr != nil {
		v.Err = gateway.Message(c.lastErr)
	}

	return v
}

// restart installs q as the active query, starts a new generation and
// drops what was loaded for the previous one. A pending debounced search
// is dropped too.
func (c *Controller) restart(q Query) (uint64, Query) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restartLocked(q)
}

func (c *Controller) restartLocked(q Query) (uint64, Query) {
	c.stopSearchLocked()

	c.gen++
	c.query = q
	c.items = nil
	c.page = 0
	c.hasMore = false
	c.total = 0
	c.loaded = false
	c.loading = true
	c.moreBusy = false
	c.lastErr = nil

	return c.gen, q
}

func (c *Controller) loadFirst(ctx context.Context, gen uint64, q Query) error {
	return c.loadRange(ctx, gen, q, 0)
}

// loadRange fetches pages 0..last of q and commits them if gen is still
// current.
func (c *Controller) loadRange(ctx context.Context, gen uint64, q Query, last int) error {
	const op = "gallery.Controller.load"

	var (
		items   []models.MediaItem
		hasMore bool
		total   int
		page    int
		err     error
	)

	switch q := q.(type) {
	case SearchQuery:
		items, err = c.gw.SearchMedia(ctx, q.Term)
		total = len(items)
	case FilterQuery:
		for page = 0; page <= last; page++ {
			var p models.MediaPage
			p, err = c.gw.ListMedia(ctx, q.Spec, page)
			if err != nil {
				break
			}
			items = append(items, p.Items...)
			hasMore, total = p.HasMore, p.Total
			if !p.HasMore {
				break
			}
		}
		if page > last {
			page = last
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.log.Debug("dropping stale response", slog.String("op", op))
		return nil
	}

	c.loading = false

	if err != nil {
		c.lastErr = err
		return fmt.Errorf("%s: %w", op, err)
	}

	if items == nil {
		items = []models.MediaItem{}
	}

	c.items = items
	c.page = page
	c.hasMore = hasMore
	c.total = total
	c.loaded = true
	c.lastErr = nil

	return nil
}

func (c *Controller) stopSearchLocked() {
	if c.searchTimer != nil {
		c.searchTimer.Stop()
		c.searchTimer = nil
	}
}

func (c *Controller) exitSelectLocked() {
	c.selectMode = false
	c.selected = make(map[uuid.UUID]struct{})
}
