package router

import (
	"context"
	"html/template"
	"log/slog"
	"sync"

	"boltvault/internal/domain/models"
	"boltvault/internal/events"
	"boltvault/internal/gallery"
	"boltvault/internal/gateway"
	"boltvault/internal/lib/logger/sl"

	"github.com/google/uuid"
)

// Pages renders the pages and modals of the application.
type Pages interface {
	Landing(ctx context.Context) (template.HTML, error)
	Gallery(ctx context.Context, v gallery.View) (template.HTML, error)
	CharacterList(ctx context.Context) (template.HTML, error)
	CharacterProfile(ctx context.Context, id uuid.UUID) (template.HTML, error)
	Settings(ctx context.Context) (template.HTML, error)
	Modal(ctx context.Context, m Modal, v gallery.View) (template.HTML, error)
	Error(err error) template.HTML
}

// Sessions ends sessions on logout and account deletion.
type Sessions interface {
	Logout(ctx context.Context, session models.Session) error
	RevokeAll(ctx context.Context, session models.Session) error
}

// Router owns the current route of one workspace together with its modal
// stack and gallery controller.
type Router struct {
	log      *slog.Logger
	pages    Pages
	gw       gateway.Gateway
	gallery  *gallery.Controller
	sessions Sessions
	bus      events.Publisher
	origin   string

	modals ModalStack

	mu       sync.Mutex
	fragment string
	route    Route
}

func New(
	log *slog.Logger,
	pages Pages,
	gw gateway.Gateway,
	ctl *gallery.Controller,
	sessions Sessions,
	bus events.Publisher,
	origin string,
) *Router {
	return &Router{
		log:      log,
		pages:    pages,
		gw:       gw,
		gallery:  ctl,
		sessions: sessions,
		bus:      bus,
		origin:   origin,
		route:    Route{Page: PageLanding},
	}
}

func (r *Router) Gallery() *gallery.Controller {
	return r.gallery
}

func (r *Router) Modals() *ModalStack {
	return &r.modals
}

// Current returns the fragment and route last navigated to.
func (r *Router) Current() (string, Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fragment, r.route
}

// Navigate moves to fragment. Bare gallery fragments also reset filters
// and search.
func (r *Router) Navigate(ctx context.Context, fragment string) template.HTML {
	if IsHome(fragment) {
		r.gallery.Reset()
	}
	return r.transition(ctx, fragment, r.gw.CurrentUser(ctx) != nil)
}

// AuthChanged resets the gallery and goes home.
func (r *Router) AuthChanged(ctx context.Context, authenticated bool) template.HTML {
	r.gallery.Reset()
	return r.transition(ctx, "", authenticated)
}

// Reroute runs the transition to the current fragment again.
func (r *Router) Reroute(ctx context.Context) template.HTML {
	fragment, _ := r.Current()
	return r.transition(ctx, fragment, r.gw.CurrentUser(ctx) != nil)
}

// Render draws the current route without a transition, keeping modals and
// select mode.
func (r *Router) Render(ctx context.Context) template.HTML {
	const op = "router.Router.Render"

	_, route := r.Current()
	if r.gw.CurrentUser(ctx) == nil {
		route = Route{Page: PageLanding}
	}

	html, err := r.page(ctx, route)
	if err != nil {
		r.log.Error("failed to render page", slog.String("op", op), slog.String("page", string(route.Page)), sl.Err(err))
		return r.pages.Error(err)
	}

	return html
}

// ApplyFilters replaces the filters, closes the filter modal and shows the
// gallery.
func (r *Router) ApplyFilters(ctx context.Context, spec models.FilterSpec) template.HTML {
	r.modals.Clear()

	if s := r.gw.CurrentUser(ctx); s != nil {
		r.bus.Publish(events.Filters(s.UserID, spec).From(r.origin))
	}

	return r.showGallery(ctx, func() error { return r.gallery.ApplyFilters(ctx, spec) })
}

// Search runs an explicit search and shows the gallery.
func (r *Router) Search(ctx context.Context, term string) template.HTML {
	return r.showGallery(ctx, func() error { return r.gallery.SearchNow(ctx, term) })
}

// SearchLive queues a debounced search; the result arrives later through
// the controller's update hook.
func (r *Router) SearchLive(ctx context.Context, term string) template.HTML {
	r.gallery.ApplySearch(ctx, term)
	return r.transition(ctx, "", r.gw.CurrentUser(ctx) != nil)
}

// DataChanged closes every modal, tells the other workspaces of the user
// and refetches the gallery.
func (r *Router) DataChanged(ctx context.Context) template.HTML {
	const op = "router.Router.DataChanged"

	r.modals.Clear()

	if s := r.gw.CurrentUser(ctx); s != nil {
		r.bus.Publish(events.Data(s.UserID).From(r.origin))
	}

	if _, route := r.Current(); route.Page != PageGallery {
		r.gallery.Invalidate()
		return r.Render(ctx)
	}

	if err := r.gallery.Refresh(ctx); err != nil {
		r.log.Warn("gallery refresh failed", slog.String("op", op), sl.Err(err))
		return r.pages.Error(err)
	}

	return r.Render(ctx)
}

// ModalHTML renders the top modal, or nothing when the stack is empty. A
// modal that fails to load is closed again.
func (r *Router) ModalHTML(ctx context.Context) (template.HTML, error) {
	top, ok := r.modals.Top()
	if !ok {
		return "", nil
	}

	html, err := r.pages.Modal(ctx, top, r.gallery.Snapshot())
	if err != nil {
		r.modals.Dismiss()
		return "", err
	}

	return html, nil
}

func (r *Router) showGallery(ctx context.Context, load func() error) template.HTML {
	const op = "router.Router.showGallery"

	r.gallery.ExitSelectMode()

	authenticated := r.gw.CurrentUser(ctx) != nil
	r.setRoute("", Resolve("", authenticated))

	if err := load(); err != nil {
		r.log.Error("failed to load gallery", slog.String("op", op), sl.Err(err))
		return r.pages.Error(err)
	}

	return r.Render(ctx)
}

// transition leaves select mode, dismisses every modal, resolves the
// fragment and renders the target page. Failures become an error panel.
func (r *Router) transition(ctx context.Context, fragment string, authenticated bool) template.HTML {
	const op = "router.Router.transition"

	r.gallery.ExitSelectMode()
	r.modals.Clear()

	route := Resolve(fragment, authenticated)
	r.setRoute(fragment, route)

	html, err := r.page(ctx, route)
	if err != nil {
		r.log.Error("failed to render page",
			slog.String("op", op),
			slog.String("fragment", fragment),
			slog.String("page", string(route.Page)),
			sl.Err(err),
		)
		return r.pages.Error(err)
	}

	return html
}

func (r *Router) page(ctx context.Context, route Route) (template.HTML, error) {
	switch route.Page {
	case PageGallery:
		if err := r.gallery.Load(ctx); err != nil {
			return "", err
		}
		return r.pages.Gallery(ctx, r.gallery.Snapshot())
	case PageCharacterList:
		return r.pages.CharacterList(ctx)
	case PageCharacterProfile:
		return r.pages.CharacterProfile(ctx, route.CharacterID)
	case PageSettings:
		return r.pages.Settings(ctx)
	default:
		return r.pages.Landing(ctx)
	}
}

func (r *Router) setRoute(fragment string, route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fragment = fragment
	r.route = route
}
