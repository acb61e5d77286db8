package view_test

import (
	"context"
	"errors"
	"testing"

	"boltvault/internal/domain/models"
	"boltvault/internal/gallery"
	"boltvault/internal/gateway"
	"boltvault/internal/gateway/gatewaytest"
	"boltvault/internal/lib/logger/handlers/slogdiscard"
	"boltvault/internal/router"
	"boltvault/internal/view"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	gw     *gatewaytest.Fake
	pages  *view.Pages
	userID uuid.UUID
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gw := gatewaytest.New(20)
	pages, err := view.New(slogdiscard.NewDiscardLogger(), gw)
	require.NoError(t, err)

	userID := uuid.New()
	return &fixture{
		gw:     gw,
		pages:  pages,
		userID: userID,
		ctx:    gateway.WithSession(context.Background(), &models.Session{UserID: userID, Email: "bolt@example.com"}),
	}
}

func TestGallery_EmptyStates(t *testing.T) {
	f := newFixture(t)

	html, err := f.pages.Gallery(context.Background(), gallery.View{Loaded: true})
	require.NoError(t, err)
	assert.Contains(t, string(html), "Please log in to view and manage your media.")

	html, err = f.pages.Gallery(f.ctx, gallery.View{Loaded: true})
	require.NoError(t, err)
	assert.Contains(t, string(html), "Your gallery is empty")

	html, err = f.pages.Gallery(f.ctx, gallery.View{
		Loaded:     true,
		Active:     true,
		SearchTerm: "beach",
	})
	require.NoError(t, err)
	assert.Contains(t, string(html), "No Results Found")
	assert.Contains(t, string(html), "Search results for:")
	assert.Contains(t, string(html), "beach")
}

func TestGallery_ItemsAndPaging(t *testing.T) {
	f := newFixture(t)

	item := models.MediaItem{ID: uuid.New(), Name: "Sunset <walk>", Type: models.MediaTypeImage, URL: "https://cdn.example.com/a.jpg"}
	html, err := f.pages.Gallery(f.ctx, gallery.View{
		Loaded:  true,
		Items:   []models.MediaItem{item},
		HasMore: true,
	})
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "Sunset &lt;walk&gt;")
	assert.Contains(t, out, `data-action="view-media"`)
	assert.Contains(t, out, item.ID.String())
	assert.Contains(t, out, `data-action="load-more"`)
	assert.NotContains(t, out, "action-bar")
}

func TestGallery_SelectMode(t *testing.T) {
	f := newFixture(t)

	item := models.MediaItem{ID: uuid.New(), Name: "a", Type: models.MediaTypeVideo, URL: "https://cdn.example.com/a.mp4"}
	html, err := f.pages.Gallery(f.ctx, gallery.View{
		Loaded:     true,
		Items:      []models.MediaItem{item},
		SelectMode: true,
		Selected:   map[uuid.UUID]bool{item.ID: true},
	})
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, `data-action="toggle-select-item"`)
	assert.Contains(t, out, "media-card selected")
	assert.Contains(t, out, "1 selected")
	assert.Contains(t, out, "<video")
}

func TestGallery_FilterPills(t *testing.T) {
	f := newFixture(t)

	html, err := f.pages.Gallery(f.ctx, gallery.View{
		Loaded: true,
		Active: true,
		Filters: models.FilterSpec{
			SortBy:                models.SortByName,
			FilterByType:          models.MediaTypeVideo,
			FilterByCharacterName: "Aria",
			FilterByTag:           "beach",
		},
	})
	require.NoError(t, err)

	out := string(html)
	for _, pill := range []string{"Sort: Post Title", "Type: video", "Character: Aria", "Tag: beach"} {
		assert.Contains(t, out, pill)
	}
	assert.Contains(t, out, `data-action="clear-all-filters"`)
}

func TestCharacterPages(t *testing.T) {
	f := newFixture(t)

	html, err := f.pages.CharacterList(f.ctx)
	require.NoError(t, err)
	assert.Contains(t, string(html), "You haven't created any characters yet.")

	aria := f.gw.AddCharacter(f.userID, "Aria")

	html, err = f.pages.CharacterProfile(f.ctx, aria.ID)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Aria")
	assert.Contains(t, string(html), "This character has no media posts yet.")

	f.gw.AddMedia(f.userID, models.MediaItem{Name: "portrait", CharacterID: &aria.ID, URL: "https://cdn.example.com/p.jpg"})

	html, err = f.pages.CharacterProfile(f.ctx, aria.ID)
	require.NoError(t, err)
	assert.Contains(t, string(html), "portrait")

	html, err = f.pages.CharacterProfile(f.ctx, uuid.New())
	require.NoError(t, err)
	assert.Contains(t, string(html), "Character not found.")
}

func TestSettings(t *testing.T) {
	f := newFixture(t)

	html, err := f.pages.Settings(view.WithTheme(f.ctx, view.ThemeDark))
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "bolt@example.com")
	assert.Contains(t, out, `value="dark" class="active"`)
	assert.Contains(t, out, `data-action="delete-account"`)
}

func TestError(t *testing.T) {
	f := newFixture(t)

	html := f.pages.Error(&gateway.RemoteError{Op: "x", Message: "connection refused", Err: errors.New("dial")})
	assert.Contains(t, string(html), "Error fetching data: connection refused")
}

func TestModal_Media(t *testing.T) {
	f := newFixture(t)

	html, err := f.pages.Modal(f.ctx, router.Modal{Kind: router.ModalMedia}, gallery.View{})
	require.NoError(t, err)
	assert.Contains(t, string(html), "You need to create a character before adding media.")

	aria := f.gw.AddCharacter(f.userID, "Aria")

	html, err = f.pages.Modal(f.ctx, router.Modal{Kind: router.ModalMedia}, gallery.View{})
	require.NoError(t, err)
	out := string(html)
	assert.Contains(t, out, `name="kind" value="upload"`)
	assert.Contains(t, out, aria.ID.String())

	item := f.gw.AddMedia(f.userID, models.MediaItem{
		Name:        "clip",
		CharacterID: &aria.ID,
		URL:         "https://cdn.example.com/clip.mp4",
		Type:        models.MediaTypeVideo,
		Tags:        []string{"a", "b"},
	})

	html, err = f.pages.Modal(f.ctx, router.Modal{Kind: router.ModalEditMedia, ID: item.ID}, gallery.View{})
	require.NoError(t, err)
	out = string(html)
	assert.Contains(t, out, `name="kind" value="link"`)
	assert.Contains(t, out, "https://cdn.example.com/clip.mp4")
	assert.Contains(t, out, `value="a, b"`)
	assert.Contains(t, out, "selected>Aria")
	assert.Contains(t, out, "Edit Media Post")
}

func TestModal_ViewerSandboxesEmbeds(t *testing.T) {
	f := newFixture(t)

	item := f.gw.AddMedia(f.userID, models.MediaItem{
		Name:    "embed",
		URL:     `<iframe src="https://player.example.com/1"></iframe>`,
		Type:    models.MediaTypeVideo,
		IsEmbed: true,
	})

	html, err := f.pages.Modal(f.ctx, router.Modal{Kind: router.ModalViewer, ID: item.ID}, gallery.View{})
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, `sandbox="allow-scripts allow-presentation"`)
	assert.Contains(t, out, "srcdoc=\"&lt;iframe")
	assert.NotContains(t, out, `<iframe src="https://player.example.com/1">`)
}

func TestModal_FilterPrefills(t *testing.T) {
	f := newFixture(t)

	aria := f.gw.AddCharacter(f.userID, "Aria")
	f.gw.AddMedia(f.userID, models.MediaItem{Name: "a", Tags: []string{"beach"}})

	html, err := f.pages.Modal(f.ctx, router.Modal{Kind: router.ModalFilter}, gallery.View{
		Filters: models.FilterSpec{FilterByCharacter: &aria.ID, FilterByTag: "beach"},
	})
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, `value="beach" selected`)
	assert.Contains(t, out, aria.ID.String()+`" selected`)
}

func TestShell(t *testing.T) {
	f := newFixture(t)

	html, err := f.pages.Shell(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(html), `data-theme="system"`)
	assert.NotContains(t, string(html), "new WebSocket")

	html, err = f.pages.Shell(view.WithTheme(f.ctx, view.ThemeLight))
	require.NoError(t, err)
	assert.Contains(t, string(html), `data-theme="light"`)
	assert.Contains(t, string(html), "new WebSocket")
}

func TestParseTheme(t *testing.T) {
	assert.Equal(t, view.ThemeDark, view.ParseTheme("dark"))
	assert.Equal(t, view.ThemeLight, view.ParseTheme("light"))
	assert.Equal(t, view.ThemeSystem, view.ParseTheme("neon"))
}
