// Package view renders the pages and modals of the browser shell from
// embedded templates.
package view

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"boltvault/internal/domain/models"
	"boltvault/internal/gallery"
	"boltvault/internal/gateway"
	"boltvault/internal/router"
	"boltvault/internal/storage"

	"github.com/google/uuid"
)

//go:embed templates/*.html
var files embed.FS

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme returns ThemeSystem for anything unknown.
func ParseTheme(s string) Theme {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s)
	}
	return ThemeSystem
}

type themeKey struct{}

func WithTheme(ctx context.Context, t Theme) context.Context {
	return context.WithValue(ctx, themeKey{}, t)
}

func ThemeFrom(ctx context.Context) Theme {
	if t, ok := ctx.Value(themeKey{}).(Theme); ok {
		return t
	}
	return ThemeSystem
}

// Pages implements router.Pages.
type Pages struct {
	log  *slog.Logger
	gw   gateway.Gateway
	tmpl *template.Template
}

var _ router.Pages = (*Pages)(nil)

func New(log *slog.Logger, gw gateway.Gateway) (*Pages, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("view.New: %w", err)
	}

	return &Pages{log: log, gw: gw, tmpl: tmpl}, nil
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"isVideo": func(m models.MediaItem) bool {
		return m.Type == models.MediaTypeVideo
	},
	"pills": filterPills,
	"eqID": func(a *uuid.UUID, b uuid.UUID) bool {
		return a != nil && *a == b
	},
	"card": func(item models.MediaItem, selectMode, selected bool) cardData {
		return cardData{Item: item, Select: selectMode, Selected: selected}
	},
}

type cardData struct {
	Item     models.MediaItem
	Select   bool
	Selected bool
}

// Shell renders the full document the browser loads first.
func (p *Pages) Shell(ctx context.Context) (template.HTML, error) {
	return p.render("shell", struct {
		Authenticated bool
		Theme         Theme
	}{
		Authenticated: p.gw.CurrentUser(ctx) != nil,
		Theme:         ThemeFrom(ctx),
	})
}

func (p *Pages) Landing(context.Context) (template.HTML, error) {
	return p.render("landing", nil)
}

type galleryData struct {
	View    gallery.View
	Empty   gallery.EmptyState
	Session *models.Session
}

func (p *Pages) Gallery(ctx context.Context, v gallery.View) (template.HTML, error) {
	s := p.gw.CurrentUser(ctx)

	return p.render("gallery", galleryData{
		View:    v,
		Empty:   v.Empty(s != nil),
		Session: s,
	})
}

func (p *Pages) CharacterList(ctx context.Context) (template.HTML, error) {
	characters, err := p.gw.ListCharacters(ctx)
	if err != nil {
		return "", err
	}

	return p.render("characters", struct {
		Characters []models.Character
	}{characters})
}

func (p *Pages) CharacterProfile(ctx context.Context, id uuid.UUID) (template.HTML, error) {
	character, err := p.gw.GetCharacter(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return p.render("error", struct{ Message string }{"Character not found."})
	}
	if err != nil {
		return "", err
	}

	media, err := p.gw.ListMediaByCharacter(ctx, id)
	if err != nil {
		return "", err
	}

	return p.render("character", struct {
		Character models.Character
		Media     []models.MediaItem
	}{character, media})
}

func (p *Pages) Settings(ctx context.Context) (template.HTML, error) {
	profile, err := p.gw.GetProfile(ctx)
	if err != nil {
		return "", err
	}

	email := ""
	if s := p.gw.CurrentUser(ctx); s != nil {
		email = s.Email
	}

	return p.render("settings", struct {
		Profile models.Profile
		Email   string
		Theme   Theme
		Themes  []Theme
	}{profile, email, ThemeFrom(ctx), []Theme{ThemeLight, ThemeDark, ThemeSystem}})
}

func (p *Pages) Error(err error) template.HTML {
	html, rerr := p.render("error", struct{ Message string }{"Error fetching data: " + gateway.Message(err)})
	if rerr != nil {
		return template.HTML(template.HTMLEscapeString(gateway.Message(err)))
	}
	return html
}

// MediaFormData prefills the create and edit media modals.
type MediaFormData struct {
	ID          uuid.UUID
	Kind        models.SourceKind
	Name        string
	Tags        string
	CharacterID *uuid.UUID
	URL         string
	Type        models.MediaType
	EmbedCode   string
	EmbedThumb  string
	HasUpload   bool
	Characters  []models.Character
	SourceKinds []models.SourceKind
	Editing     bool
}

func (p *Pages) Modal(ctx context.Context, m router.Modal, v gallery.View) (template.HTML, error) {
	switch m.Kind {
	case router.ModalLogin, router.ModalSignup, router.ModalCreateMenu, router.ModalChangePassword:
		return p.render("modal-"+string(m.Kind), nil)

	case router.ModalCharacter:
		return p.render("modal-character", struct {
			Character models.Character
			Editing   bool
		}{})

	case router.ModalEditCharacter:
		character, err := p.gw.GetCharacter(ctx, m.ID)
		if err != nil {
			return "", err
		}
		return p.render("modal-character", struct {
			Character models.Character
			Editing   bool
		}{character, true})

	case router.ModalMedia:
		characters, err := p.gw.ListCharacters(ctx)
		if err != nil {
			return "", err
		}
		if len(characters) == 0 {
			return p.render("modal-no-characters", nil)
		}
		return p.render("modal-media", MediaFormData{
			Kind:        models.SourceUpload,
			Characters:  characters,
			SourceKinds: sourceKinds,
		})

	case router.ModalEditMedia:
		item, err := p.gw.GetMedia(ctx, m.ID)
		if err != nil {
			return "", err
		}
		characters, err := p.gw.ListCharacters(ctx)
		if err != nil {
			return "", err
		}
		return p.render("modal-media", editMediaData(item, characters))

	case router.ModalFilter:
		characters, err := p.gw.ListCharacters(ctx)
		if err != nil {
			return "", err
		}
		tags, err := p.gw.UniqueTags(ctx)
		if err != nil {
			return "", err
		}
		return p.render("modal-filter", struct {
			Filters    models.FilterSpec
			Characters []models.Character
			Tags       []string
		}{v.Filters, characters, tags})

	case router.ModalViewer:
		item, err := p.gw.GetMedia(ctx, m.ID)
		if err != nil {
			return "", err
		}
		return p.render("modal-viewer", item)
	}

	return "", fmt.Errorf("view.Pages.Modal: unknown modal %q", m.Kind)
}

var sourceKinds = []models.SourceKind{models.SourceUpload, models.SourceLink, models.SourceEmbed}

func editMediaData(item models.MediaItem, characters []models.Character) MediaFormData {
	d := MediaFormData{
		ID:          item.ID,
		Name:        item.Name,
		Tags:        strings.Join(item.Tags, ", "),
		CharacterID: item.CharacterID,
		Characters:  characters,
		SourceKinds: sourceKinds,
		Editing:     true,
	}

	switch src := item.Source().(type) {
	case models.UploadSource:
		d.Kind = models.SourceUpload
		d.HasUpload = true
		d.URL = src.URL
		d.Type = src.Type
	case models.LinkSource:
		d.Kind = models.SourceLink
		d.URL = src.URL
		d.Type = src.Type
	case models.EmbedSource:
		d.Kind = models.SourceEmbed
		d.EmbedCode = src.Code
		d.EmbedThumb = src.ThumbnailURL
	}

	return d
}

// filterPills describes the active filters, one label each.
func filterPills(spec models.FilterSpec) []string {
	var pills []string

	switch spec.SortBy {
	case models.SortByName:
		pills = append(pills, "Sort: Post Title")
	case models.SortByCreatedAt:
		pills = append(pills, "Sort: Date")
	}
	if spec.FilterByType != "" {
		pills = append(pills, "Type: "+string(spec.FilterByType))
	}
	if spec.FilterByCharacterName != "" {
		pills = append(pills, "Character: "+spec.FilterByCharacterName)
	}
	if spec.FilterByTag != "" {
		pills = append(pills, "Tag: "+spec.FilterByTag)
	}

	return pills
}

func (p *Pages) render(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("view.render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
