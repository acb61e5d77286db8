package gallery_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"boltvault/internal/domain/models"
	"boltvault/internal/gallery"
	"boltvault/internal/gateway"
	"boltvault/internal/gateway/gatewaytest"
	"boltvault/internal/lib/logger/handlers/slogdiscard"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	gw     *gatewaytest.Fake
	ctl    *gallery.Controller
	ctx    context.Context
	userID uuid.UUID
}

func newFixture(t *testing.T, debounce time.Duration) *fixture {
	t.Helper()

	gw := gatewaytest.New(20)
	userID := uuid.New()

	return &fixture{
		gw:     gw,
		ctl:    gallery.NewController(slogdiscard.NewDiscardLogger(), gw, debounce),
		ctx:    gateway.WithSession(context.Background(), &models.Session{UserID: userID, Token: "t"}),
		userID: userID,
	}
}

func (f *fixture) seed(n int, mediaType models.MediaType, tags ...string) []models.MediaItem {
	items := make([]models.MediaItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, f.gw.AddMedia(f.userID, models.MediaItem{
			Name: fmt.Sprintf("%s %02d", mediaType, i),
			Type: mediaType,
			URL:  "https://cdn.example.com/" + uuid.NewString(),
			Tags: tags,
		}))
	}
	return items
}

func TestController_FilterPagingScenario(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(25, models.MediaTypeVideo)
	f.seed(3, models.MediaTypeImage)

	require.NoError(t, f.ctl.ApplyFilters(f.ctx, models.FilterSpec{FilterByType: models.MediaTypeVideo}))

	v := f.ctl.Snapshot()
	assert.Len(t, v.Items, 20)
	assert.True(t, v.HasMore)
	assert.Equal(t, 25, v.Total)

	more, err := f.ctl.LoadMore(f.ctx)
	require.NoError(t, err)
	assert.True(t, more)

	v = f.ctl.Snapshot()
	assert.Len(t, v.Items, 25)
	assert.False(t, v.HasMore)
	assert.Equal(t, 1, v.Page)
	for _, item := range v.Items {
		assert.Equal(t, models.MediaTypeVideo, item.Type)
	}
}

func TestController_LoadMoreAtEndIsNoop(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(5, models.MediaTypeImage)

	require.NoError(t, f.ctl.Refresh(f.ctx))
	before := f.ctl.Snapshot().Items
	calls := f.gw.Calls("ListMedia")

	for i := 0; i < 3; i++ {
		more, err := f.ctl.LoadMore(f.ctx)
		require.NoError(t, err)
		assert.False(t, more)
	}

	assert.Equal(t, before, f.ctl.Snapshot().Items)
	assert.Equal(t, calls, f.gw.Calls("ListMedia"))
}

func TestController_LoadMoreDropsOverlappingCalls(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(45, models.MediaTypeImage)
	require.NoError(t, f.ctl.Refresh(f.ctx))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.gw.SetBefore("ListMedia", func(context.Context) {
		once.Do(func() {
			close(entered)
			<-release
		})
	})

	done := make(chan bool)
	go func() {
		more, _ := f.ctl.LoadMore(f.ctx)
		done <- more
	}()

	<-entered
	more, err := f.ctl.LoadMore(f.ctx)
	require.NoError(t, err)
	assert.False(t, more)

	close(release)
	assert.True(t, <-done)

	assert.Len(t, f.ctl.Snapshot().Items, 40)
}

func TestController_SearchClearsFilters(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(3, models.MediaTypeImage, "sunset")

	require.NoError(t, f.ctl.ApplyFilters(f.ctx, models.FilterSpec{FilterByTag: "sunset", SortBy: models.SortByName}))
	require.NoError(t, f.ctl.SearchNow(f.ctx, "sunset"))

	q, ok := f.ctl.Query().(gallery.SearchQuery)
	require.True(t, ok)
	assert.Equal(t, "sunset", q.Term)

	v := f.ctl.Snapshot()
	assert.Equal(t, models.FilterSpec{}, v.Filters)
	assert.Equal(t, "sunset", v.SearchTerm)
	assert.Len(t, v.Items, 3)
	assert.False(t, v.HasMore)
}

func TestController_ApplySearchSwitchesQueryImmediately(t *testing.T) {
	f := newFixture(t, time.Hour)

	require.NoError(t, f.ctl.ApplyFilters(f.ctx, models.FilterSpec{FilterByType: models.MediaTypeImage}))
	f.ctl.ApplySearch(f.ctx, "beach")

	assert.Equal(t, gallery.SearchQuery{Term: "beach"}, f.ctl.Query())
	assert.Equal(t, 0, f.gw.Calls("SearchMedia"))

	require.NoError(t, f.ctl.ApplyFilters(f.ctx, models.FilterSpec{}))
	assert.Equal(t, gallery.FilterQuery{}, f.ctl.Query())
}

func TestController_ApplySearchDebounces(t *testing.T) {
	f := newFixture(t, 30*time.Millisecond)
	f.seed(2, models.MediaTypeImage, "beach")

	var updates atomic.Int32
	f.ctl.OnUpdate(func() { updates.Add(1) })

	for _, term := range []string{"b", "be", "bea", "beach"} {
		f.ctl.ApplySearch(f.ctx, term)
	}

	require.Eventually(t, func() bool { return updates.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, int32(1), updates.Load())
	assert.Equal(t, 1, f.gw.Calls("SearchMedia"))
	assert.Len(t, f.ctl.Snapshot().Items, 2)
}

func TestController_QueryChangeDropsPendingSearch(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	f.seed(2, models.MediaTypeImage, "beach")

	var updates atomic.Int32
	f.ctl.OnUpdate(func() { updates.Add(1) })

	f.ctl.ApplySearch(f.ctx, "beach")
	require.NoError(t, f.ctl.ApplyFilters(f.ctx, models.FilterSpec{}))

	f.ctl.ApplySearch(f.ctx, "sky")
	f.ctl.Reset()

	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, int32(0), updates.Load())
	assert.Equal(t, 0, f.gw.Calls("SearchMedia"))
	assert.Equal(t, gallery.FilterQuery{}, f.ctl.Query())
}

func TestController_BlankSearchClears(t *testing.T) {
	f := newFixture(t, 0)

	require.NoError(t, f.ctl.SearchNow(f.ctx, "   "))
	assert.Equal(t, gallery.FilterQuery{}, f.ctl.Query())
	assert.Equal(t, 0, f.gw.Calls("SearchMedia"))
}

func TestController_NoResultsScenario(t *testing.T) {
	f := newFixture(t, 0)
	f.gw.AddCharacter(f.userID, "Aria")
	f.seed(4, models.MediaTypeImage, "forest")

	require.NoError(t, f.ctl.SearchNow(f.ctx, "beach"))

	v := f.ctl.Snapshot()
	assert.Empty(t, v.Items)
	assert.Equal(t, gallery.EmptyNoResults, v.Empty(true))

	require.NoError(t, f.ctl.ClearSearch(f.ctx))
	v = f.ctl.Snapshot()
	assert.Len(t, v.Items, 4)
	assert.Equal(t, gallery.EmptyNone, v.Empty(true))
}

func TestController_StaleResponseIsDropped(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(3, models.MediaTypeImage, "beach")
	f.seed(2, models.MediaTypeVideo)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.gw.SetBefore("SearchMedia", func(context.Context) {
		once.Do(func() {
			close(entered)
			<-release
		})
	})

	errc := make(chan error)
	go func() { errc <- f.ctl.SearchNow(f.ctx, "beach") }()

	<-entered
	require.NoError(t, f.ctl.ApplyFilters(f.ctx, models.FilterSpec{FilterByType: models.MediaTypeVideo}))

	close(release)
	require.NoError(t, <-errc)

	v := f.ctl.Snapshot()
	assert.Equal(t, gallery.FilterQuery{Spec: models.FilterSpec{FilterByType: models.MediaTypeVideo}}, v.Query)
	assert.Len(t, v.Items, 2)
}

func TestController_Selection(t *testing.T) {
	f := newFixture(t, 0)
	id := uuid.New()

	assert.False(t, f.ctl.ToggleItemSelection(id), "ignored outside select mode")
	assert.Empty(t, f.ctl.Snapshot().Selected)

	require.True(t, f.ctl.ToggleSelectMode())

	before := f.ctl.Snapshot().Selected
	assert.True(t, f.ctl.ToggleItemSelection(id))
	assert.False(t, f.ctl.ToggleItemSelection(id))
	assert.Equal(t, before, f.ctl.Snapshot().Selected)

	f.ctl.ToggleItemSelection(id)
	assert.False(t, f.ctl.ToggleSelectMode())
	assert.Empty(t, f.ctl.Snapshot().Selected)
}

func TestController_DeleteSelected(t *testing.T) {
	f := newFixture(t, 0)
	items := f.seed(25, models.MediaTypeImage)

	require.NoError(t, f.ctl.Refresh(f.ctx))
	_, err := f.ctl.LoadMore(f.ctx)
	require.NoError(t, err)

	v := f.ctl.Snapshot()
	victims := []uuid.UUID{v.Items[0].ID, v.Items[1].ID}

	f.ctl.ToggleSelectMode()
	for _, id := range victims {
		f.ctl.ToggleItemSelection(id)
	}

	require.NoError(t, f.ctl.DeleteSelected(f.ctx))

	v = f.ctl.Snapshot()
	assert.False(t, v.SelectMode)
	assert.Empty(t, v.Selected)
	assert.Len(t, v.Items, len(items)-2)
	assert.Equal(t, 1, f.gw.Calls("DeleteMediaBatch"))

	page, err := f.gw.ListMedia(f.ctx, models.FilterSpec{}, 0)
	require.NoError(t, err)
	for _, item := range page.Items {
		assert.NotContains(t, victims, item.ID)
	}
}

func TestController_DeleteSelectedFailureKeepsSelection(t *testing.T) {
	f := newFixture(t, 0)
	items := f.seed(2, models.MediaTypeImage)
	require.NoError(t, f.ctl.Refresh(f.ctx))

	f.ctl.ToggleSelectMode()
	f.ctl.ToggleItemSelection(items[0].ID)
	f.gw.SetFail("DeleteMediaBatch", errors.New("permission denied for table media"))

	err := f.ctl.DeleteSelected(f.ctx)
	require.Error(t, err)
	assert.Equal(t, "permission denied for table media", gateway.Message(err))

	v := f.ctl.Snapshot()
	assert.True(t, v.SelectMode)
	assert.True(t, v.Selected[items[0].ID])
	assert.Len(t, v.Items, 2)
}

func TestController_DeleteSelectedSucceedsWhenRefetchFails(t *testing.T) {
	f := newFixture(t, 0)
	items := f.seed(3, models.MediaTypeImage)
	require.NoError(t, f.ctl.Refresh(f.ctx))

	f.ctl.ToggleSelectMode()
	f.ctl.ToggleItemSelection(items[0].ID)
	f.ctl.ToggleItemSelection(items[1].ID)
	f.gw.SetBefore("DeleteMediaBatch", func(context.Context) {
		f.gw.SetFail("ListMedia", errors.New("timeout"))
	})

	require.NoError(t, f.ctl.DeleteSelected(f.ctx))

	v := f.ctl.Snapshot()
	assert.False(t, v.SelectMode)
	assert.Empty(t, v.Selected)
	assert.False(t, v.Loaded)

	f.gw.SetFail("ListMedia", nil)
	require.NoError(t, f.ctl.Load(f.ctx))
	assert.Len(t, f.ctl.Snapshot().Items, 1)
}

func TestController_DeleteSelectedRequiresSelection(t *testing.T) {
	f := newFixture(t, 0)
	f.ctl.ToggleSelectMode()

	err := f.ctl.DeleteSelected(f.ctx)
	require.Error(t, err)
	assert.True(t, gateway.IsValidation(err))
	assert.Equal(t, 0, f.gw.Calls("DeleteMediaBatch"))
}

func TestController_RefreshRestartsPaging(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(30, models.MediaTypeImage)

	require.NoError(t, f.ctl.Refresh(f.ctx))
	_, err := f.ctl.LoadMore(f.ctx)
	require.NoError(t, err)
	require.Len(t, f.ctl.Snapshot().Items, 30)

	f.gw.AddMedia(f.userID, models.MediaItem{Name: "newest"})
	require.NoError(t, f.ctl.Refresh(f.ctx))

	v := f.ctl.Snapshot()
	assert.Len(t, v.Items, 20)
	assert.Equal(t, 0, v.Page)
	assert.Equal(t, "newest", v.Items[0].Name)
}

func TestController_ResetAndErrors(t *testing.T) {
	f := newFixture(t, 0)
	f.gw.SetFail("ListMedia", errors.New("relation \"media\" does not exist"))

	err := f.ctl.ApplyFilters(f.ctx, models.FilterSpec{FilterByTag: "x"})
	require.Error(t, err)
	assert.Equal(t, "relation \"media\" does not exist", f.ctl.Snapshot().Err)

	f.ctl.ToggleSelectMode()
	f.ctl.Reset()

	v := f.ctl.Snapshot()
	assert.Empty(t, v.Err)
	assert.False(t, v.SelectMode)
	assert.False(t, v.Loaded)
	assert.Equal(t, gallery.FilterQuery{}, v.Query)
}

func TestController_Anonymous(t *testing.T) {
	gw := gatewaytest.New(20)
	ctl := gallery.NewController(slogdiscard.NewDiscardLogger(), gw, 0)

	require.NoError(t, ctl.Load(context.Background()))

	v := ctl.Snapshot()
	assert.True(t, v.Loaded)
	assert.Equal(t, gallery.EmptyLogin, v.Empty(false))
}

func TestEmptyStateFor(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		active        bool
		count         int
		want          gallery.EmptyState
	}{
		{"items shown", true, true, 3, gallery.EmptyNone},
		{"anonymous", false, false, 0, gallery.EmptyLogin},
		{"empty account", true, false, 0, gallery.EmptyGallery},
		{"filters active", true, true, 0, gallery.EmptyNoResults},
		{"anonymous with filters", false, true, 0, gallery.EmptyNoResults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gallery.EmptyStateFor(tt.authenticated, tt.active, tt.count))
		})
	}
}

func TestController_InvalidateRefetchesOnLoad(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(2, models.MediaTypeImage)

	require.NoError(t, f.ctl.Load(f.ctx))
	require.NoError(t, f.ctl.Load(f.ctx))
	assert.Equal(t, 1, f.gw.Calls("ListMedia"))

	f.seed(1, models.MediaTypeVideo)
	f.ctl.Invalidate()
	require.NoError(t, f.ctl.Load(f.ctx))

	assert.Equal(t, 2, f.gw.Calls("ListMedia"))
	assert.Len(t, f.ctl.Snapshot().Items, 3)
}
