package router_test

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"
	"testing"

	"boltvault/internal/domain/models"
	"boltvault/internal/events"
	"boltvault/internal/gallery"
	"boltvault/internal/gateway"
	"boltvault/internal/gateway/gatewaytest"
	"boltvault/internal/lib/logger/handlers/slogdiscard"
	"boltvault/internal/router"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPages struct {
	mu       sync.Mutex
	rendered []string
	failOn   string
}

func (p *stubPages) record(name string) (template.HTML, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rendered = append(p.rendered, name)
	if name == p.failOn {
		return "", &gateway.RemoteError{Op: "pages." + name, Message: name + " failed", Err: errors.New("boom")}
	}
	return template.HTML(name), nil
}

func (p *stubPages) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.rendered) == 0 {
		return ""
	}
	return p.rendered[len(p.rendered)-1]
}

func (p *stubPages) Landing(context.Context) (template.HTML, error) { return p.record("landing") }
func (p *stubPages) Gallery(_ context.Context, v gallery.View) (template.HTML, error) {
	return p.record(fmt.Sprintf("gallery:%d", len(v.Items)))
}
func (p *stubPages) CharacterList(context.Context) (template.HTML, error) {
	return p.record("characters")
}
func (p *stubPages) CharacterProfile(_ context.Context, id uuid.UUID) (template.HTML, error) {
	return p.record("character:" + id.String())
}
func (p *stubPages) Settings(context.Context) (template.HTML, error) { return p.record("settings") }
func (p *stubPages) Modal(_ context.Context, m router.Modal, _ gallery.View) (template.HTML, error) {
	return p.record("modal:" + string(m.Kind))
}
func (p *stubPages) Error(err error) template.HTML {
	return template.HTML("error:" + gateway.Message(err))
}

type stubSessions struct {
	loggedOut int
	revoked   int
	err       error
}

func (s *stubSessions) Logout(context.Context, models.Session) error {
	s.loggedOut++
	return s.err
}

func (s *stubSessions) RevokeAll(context.Context, models.Session) error {
	s.revoked++
	return s.err
}

type fixture struct {
	gw       *gatewaytest.Fake
	pages    *stubPages
	sessions *stubSessions
	bus      *events.Bus
	got      []events.Event
	r        *router.Router
	ctx      context.Context
	userID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slogdiscard.NewDiscardLogger()
	gw := gatewaytest.New(20)
	f := &fixture{
		gw:       gw,
		pages:    &stubPages{},
		sessions: &stubSessions{},
		bus:      events.NewBus(),
		userID:   uuid.New(),
	}
	f.bus.Subscribe(func(e events.Event) { f.got = append(f.got, e) })
	f.ctx = gateway.WithSession(context.Background(), &models.Session{UserID: f.userID, Token: "t"})
	f.r = router.New(log, f.pages, gw, gallery.NewController(log, gw, 0), f.sessions, f.bus, "ws-1")

	return f
}

func (f *fixture) seed(n int) []models.MediaItem {
	items := make([]models.MediaItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, f.gw.AddMedia(f.userID, models.MediaItem{Name: fmt.Sprintf("item %02d", i)}))
	}
	return items
}

func TestRouter_NavigateRendersPages(t *testing.T) {
	f := newFixture(t)
	f.seed(3)
	id := uuid.New()

	assert.Equal(t, template.HTML("gallery:3"), f.r.Navigate(f.ctx, ""))
	assert.Equal(t, template.HTML("characters"), f.r.Navigate(f.ctx, "#/characters"))
	assert.Equal(t, template.HTML("character:"+id.String()), f.r.Navigate(f.ctx, "#/character/"+id.String()))
	assert.Equal(t, template.HTML("settings"), f.r.Navigate(f.ctx, "#/settings"))
	assert.Equal(t, template.HTML("landing"), f.r.Navigate(context.Background(), "#/settings"))
}

func TestRouter_TransitionClearsTransientState(t *testing.T) {
	f := newFixture(t)
	f.seed(2)
	f.r.Navigate(f.ctx, "")

	f.r.Gallery().ToggleSelectMode()
	f.r.Modals().Push(router.Modal{Kind: router.ModalFilter})

	f.r.Navigate(f.ctx, "#/characters")

	assert.False(t, f.r.Gallery().Snapshot().SelectMode)
	assert.Equal(t, 0, f.r.Modals().Len())
}

func TestRouter_HomeResetsFiltersButOtherFragmentsDoNot(t *testing.T) {
	f := newFixture(t)
	f.seed(2)

	spec := models.FilterSpec{FilterByType: models.MediaTypeImage}
	f.r.ApplyFilters(f.ctx, spec)

	f.r.Navigate(f.ctx, "#/unknown")
	assert.Equal(t, gallery.FilterQuery{Spec: spec}, f.r.Gallery().Query())

	f.r.Navigate(f.ctx, "#/")
	assert.Equal(t, gallery.FilterQuery{}, f.r.Gallery().Query())
}

func TestRouter_AuthChangedResetsSearch(t *testing.T) {
	f := newFixture(t)

	f.r.Search(f.ctx, "beach")
	require.Equal(t, gallery.SearchQuery{Term: "beach"}, f.r.Gallery().Query())

	assert.Equal(t, template.HTML("landing"), f.r.AuthChanged(f.ctx, false))
	assert.Equal(t, gallery.FilterQuery{}, f.r.Gallery().Query())

	fragment, route := f.r.Current()
	assert.Equal(t, "", fragment)
	assert.Equal(t, router.PageLanding, route.Page)
}

func TestRouter_PageErrorBecomesPanel(t *testing.T) {
	f := newFixture(t)
	f.pages.failOn = "settings"

	assert.Equal(t, template.HTML("error:settings failed"), f.r.Navigate(f.ctx, "#/settings"))
}

func TestRouter_GalleryFetchErrorBecomesPanel(t *testing.T) {
	f := newFixture(t)
	f.gw.SetFail("ListMedia", errors.New("JWT expired"))

	assert.Equal(t, template.HTML("error:JWT expired"), f.r.Navigate(f.ctx, ""))
}

func TestDispatch_Modals(t *testing.T) {
	f := newFixture(t)

	res := f.r.Dispatch(f.ctx, router.Command{Action: router.ActionShowCreateMenu})
	assert.Equal(t, template.HTML("modal:create-menu"), res.Modal)

	res = f.r.Dispatch(f.ctx, router.Command{Action: router.ActionShowMediaModal})
	assert.Equal(t, template.HTML("modal:media"), res.Modal)
	assert.Equal(t, 1, f.r.Modals().Len())

	f.r.Dispatch(f.ctx, router.Command{Action: router.ActionShowFilterModal})
	res = f.r.Dispatch(f.ctx, router.Command{Action: router.ActionShowFilterModal})
	assert.False(t, res.ModalChanged)
	assert.Equal(t, 2, f.r.Modals().Len())

	res = f.r.Dispatch(f.ctx, router.Command{Action: router.ActionCloseModal})
	assert.Equal(t, template.HTML("modal:media"), res.Modal)

	res = f.r.Dispatch(f.ctx, router.Command{Action: router.ActionCloseModal})
	assert.True(t, res.ModalChanged)
	assert.Empty(t, res.Modal)
}

func TestDispatch_FailingModalIsClosed(t *testing.T) {
	f := newFixture(t)
	f.pages.failOn = "modal:edit-media"

	res := f.r.Dispatch(f.ctx, router.Command{Action: router.ActionShowEditMediaModal, ID: uuid.New()})

	require.NotNil(t, res.Toast)
	assert.Equal(t, router.ToastError, res.Toast.Kind)
	assert.Equal(t, 0, f.r.Modals().Len())
}

func TestDispatch_DeleteMedia(t *testing.T) {
	f := newFixture(t)
	items := f.seed(3)
	f.r.Navigate(f.ctx, "")
	f.r.Dispatch(f.ctx, router.Command{Action: router.ActionViewMedia, ID: items[0].ID})

	res := f.r.Dispatch(f.ctx, router.Command{Action: router.ActionDeleteMedia, ID: items[0].ID})

	require.NotNil(t, res.Toast)
	assert.Equal(t, "Media post deleted successfully.", res.Toast.Message)
	assert.Equal(t, template.HTML("gallery:2"), res.HTML)
	assert.True(t, res.ModalChanged)
	assert.Equal(t, 0, f.r.Modals().Len())

	require.NotEmpty(t, f.got)
	last := f.got[len(f.got)-1]
	assert.Equal(t, events.DataChanged, last.Kind)
	assert.Equal(t, "ws-1", last.Origin)
	assert.Equal(t, f.userID, last.UserID)
}

func TestDispatch_DeleteMediaFailure(t *testing.T) {
	f := newFixture(t)
	f.gw.SetFail("DeleteMedia", errors.New("row is locked"))

	res := f.r.Dispatch(f.ctx, router.Command{Action: router.ActionDeleteMedia, ID: uuid.New()})

	require.NotNil(t, res.Toast)
	assert.Equal(t, "Error deleting post: row is locked", res.Toast.Message)
	assert.Empty(t, res.HTML)
	assert.Empty(t, f.got)
}

func TestDispatch_DeleteCharacterGoesHome(t *testing.T) {
	f := newFixture(t)
	c := f.gw.AddCharacter(f.userID, "Aria")
	f.r.Navigate(f.ctx, "#/character/"+c.ID.String())

	res := f.r.Dispatch(f.ctx, router.Command{Action: router.ActionDeleteCharacter, ID: c.ID})

	assert.Equal(t, "#", res.Redirect)
	assert.Equal(t, template.HTML("gallery:0"), res.HTML)
	assert.Equal(t, "Character deleted successfully.", res.Toast.Message)
}

func TestDispatch_SelectionFlow(t *testing.T) {
	f := newFixture(t)
	items := f.seed(4)
	f.r.Navigate(f.ctx, "")

	f.r.Dispatch(f.ctx, router.Command{Action: router.ActionToggleSelectMode})
	f.r.Dispatch(f.ctx, router.Command{Action: router.ActionToggleSelectItem, ID: items[0].ID})
	f.r.Dispatch(f.ctx, router.Command{Action: router.ActionToggleSelectItem, ID: items[1].ID})

	res := f.r.Dispatch(f.ctx, router.Command{Action: router.ActionDeleteSelected})

	assert.Equal(t, template.HTML("gallery:2"), res.HTML)
	assert.Equal(t, "2 media posts deleted successfully.", res.Toast.Message)

	v := f.r.Gallery().Snapshot()
	assert.False(t, v.SelectMode)
	assert.Empty(t, v.Selected)
}

func TestDispatch_DeleteSelectedReportsDeleteEvenWhenRefetchFails(t *testing.T) {
	f := newFixture(t)
	items := f.seed(3)
	f.r.Navigate(f.ctx, "")

	f.r.Dispatch(f.ctx, router.Command{Action: router.ActionToggleSelectMode})
	f.r.Dispatch(f.ctx, router.Command{Action: router.ActionToggleSelectItem, ID: items[0].ID})

	f.gw.SetBefore("DeleteMediaBatch", func(context.Context) {
		f.gw.SetFail("ListMedia", errors.New("timeout"))
	})
	f.got = nil

	res := f.r.Dispatch(f.ctx, router.Command{Action: router.ActionDeleteSelected})

	require.NotNil(t, res.Toast)
	assert.Equal(t, router.ToastInfo, res.Toast.Kind)
	assert.Equal(t, "1 media post deleted successfully.", res.Toast.Message)
	assert.Equal(t, template.HTML("error:timeout"), res.HTML)
	assert.Len(t, f.gw.Media, 2)

	require.Len(t, f.got, 1)
	assert.Equal(t, events.DataChanged, f.got[0].Kind)
	assert.Equal(t, "ws-1", f.got[0].Origin)

	v := f.r.Gallery().Snapshot()
	assert.False(t, v.SelectMode)
	assert.Empty(t, v.Selected)

	// the next render fetches again once the backend recovers
	f.gw.SetFail("ListMedia", nil)
	assert.Equal(t, template.HTML("gallery:2"), f.r.Render(f.ctx))
}

func TestDispatch_ClearAllFilters(t *testing.T) {
	f := newFixture(t)
	f.seed(2)
	f.r.ApplyFilters(f.ctx, models.FilterSpec{FilterByTag: "none"})

	res := f.r.Dispatch(f.ctx, router.Command{Action: router.ActionClearAllFilters})

	assert.Equal(t, template.HTML("gallery:2"), res.HTML)
	assert.Equal(t, gallery.FilterQuery{}, f.r.Gallery().Query())

	last := f.got[len(f.got)-1]
	assert.Equal(t, events.FiltersChanged, last.Kind)
	assert.Equal(t, models.FilterSpec{}, *last.Filters)
}

func TestDispatch_LoadMore(t *testing.T) {
	f := newFixture(t)
	f.seed(25)
	f.r.Navigate(f.ctx, "")

	res := f.r.Dispatch(f.ctx, router.Command{Action: router.ActionLoadMore})
	assert.Equal(t, template.HTML("gallery:25"), res.HTML)

	res = f.r.Dispatch(f.ctx, router.Command{Action: router.ActionLoadMore})
	assert.Equal(t, template.HTML("gallery:25"), res.HTML)
}

func TestDispatch_Logout(t *testing.T) {
	f := newFixture(t)
	f.r.Search(f.ctx, "beach")

	res := f.r.Dispatch(f.ctx, router.Command{Action: router.ActionLogout})

	assert.True(t, res.SignedOut)
	assert.Equal(t, template.HTML("landing"), res.HTML)
	assert.Equal(t, "You have been logged out.", res.Toast.Message)
	assert.Equal(t, 1, f.sessions.loggedOut)
	assert.Equal(t, gallery.FilterQuery{}, f.r.Gallery().Query())

	last := f.got[len(f.got)-1]
	assert.Equal(t, events.AuthChanged, last.Kind)
	assert.False(t, last.Authenticated)
}

func TestDispatch_LogoutFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.sessions.err = errors.New("redis down")

	res := f.r.Dispatch(f.ctx, router.Command{Action: router.ActionLogout})

	assert.False(t, res.SignedOut)
	assert.Equal(t, router.ToastError, res.Toast.Kind)
}

func TestDispatch_DeleteAccount(t *testing.T) {
	f := newFixture(t)
	f.seed(2)

	res := f.r.Dispatch(f.ctx, router.Command{Action: router.ActionDeleteAccount})

	assert.True(t, res.SignedOut)
	assert.Equal(t, "Your account has been deleted.", res.Toast.Message)
	assert.Equal(t, 1, f.sessions.revoked)
	assert.Empty(t, f.gw.Media)
}

func TestRouter_Submitted(t *testing.T) {
	f := newFixture(t)
	f.r.Navigate(f.ctx, "")
	f.r.Modals().Push(router.Modal{Kind: router.ModalMedia})
	f.seed(1)

	res := f.r.Submitted(f.ctx, "Media created successfully!")

	assert.Equal(t, template.HTML("gallery:1"), res.HTML)
	assert.Equal(t, router.ToastSuccess, res.Toast.Kind)
	assert.Equal(t, 0, f.r.Modals().Len())
}
