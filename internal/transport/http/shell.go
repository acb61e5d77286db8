package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"boltvault/internal/domain/models"
	"boltvault/internal/form"
	"boltvault/internal/gateway"
	"boltvault/internal/lib/logger/sl"
	"boltvault/internal/router"
	"boltvault/internal/view"
	"boltvault/internal/workspace"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	MsgCharacterCreated = "Character created successfully!"
	MsgCharacterUpdated = "Character updated successfully!"
	MsgMediaCreated     = "Media created successfully!"
	MsgMediaUpdated     = "Media updated successfully!"
	MsgProfileUpdated   = "Profile updated successfully!"
	MsgPasswordUpdated  = "Password updated successfully!"
)

// themeResult extends a result with the theme the shell should switch to.
type themeResult struct {
	router.Result
	Theme view.Theme `json:"theme,omitempty"`
}

func errorToast(err error) *router.Toast {
	_, body := errorStatus(err)
	return &router.Toast{Message: body.Details, Kind: router.ToastError}
}

// ShellPage serves the document every browser tab starts from.
func (r *Routers) ShellPage(c echo.Context) error {
	const op = "http.routers.ShellPage"

	html, err := r.Shell.Shell(c.Request().Context())
	if err != nil {
		r.log.Error("failed to render shell", slog.String("op", op), sl.Err(err))
		return c.String(http.StatusInternalServerError, "Internal server error")
	}

	return c.HTML(http.StatusOK, string(html))
}

// inWorkspace runs fn against the workspace of the calling tab and writes
// its result. Browser endpoints always answer 200.
func (r *Routers) inWorkspace(c echo.Context, fn func(ctx context.Context, w *workspace.Workspace) router.Result) error {
	w, err := r.workspace(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, router.Result{Toast: errorToast(gateway.NewValidationError("workspace", err.Error()))})
	}

	return c.JSON(http.StatusOK, fn(c.Request().Context(), w))
}

// formFailed logs a rejected form and reports it as a toast. The modal
// stays open.
func (r *Routers) formFailed(op string, err error) router.Result {
	log := r.log.With(slog.String("op", op))

	status, _ := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("form failed", sl.Err(err))
	} else {
		log.Info("form rejected", sl.Err(err))
	}

	return router.Result{Toast: errorToast(err)}
}

// View navigates the tab to the fragment in ?hash.
func (r *Routers) View(c echo.Context) error {
	return r.inWorkspace(c, func(ctx context.Context, w *workspace.Workspace) router.Result {
		return router.Result{HTML: w.Router.Navigate(ctx, c.QueryParam("hash")), ModalChanged: true}
	})
}

// Render redraws the current page of the tab.
func (r *Routers) Render(c echo.Context) error {
	return r.inWorkspace(c, func(ctx context.Context, w *workspace.Workspace) router.Result {
		return router.Result{HTML: w.Router.Render(ctx)}
	})
}

// Action dispatches a delegated click.
func (r *Routers) Action(c echo.Context) error {
	return r.dispatch(c, c.FormValue("action"), c.FormValue("id"))
}

func (r *Routers) LoadMore(c echo.Context) error {
	return r.dispatch(c, string(router.ActionLoadMore), "")
}

func (r *Routers) ToggleSelectMode(c echo.Context) error {
	return r.dispatch(c, string(router.ActionToggleSelectMode), "")
}

func (r *Routers) ToggleSelectItem(c echo.Context) error {
	return r.dispatch(c, string(router.ActionToggleSelectItem), c.Param("id"))
}

func (r *Routers) DeleteSelected(c echo.Context) error {
	return r.dispatch(c, string(router.ActionDeleteSelected), "")
}

func (r *Routers) dispatch(c echo.Context, action, id string) error {
	const op = "http.routers.dispatch"

	return r.inWorkspace(c, func(ctx context.Context, w *workspace.Workspace) router.Result {
		cmd, err := router.ParseCommand(action, id)
		if err != nil {
			r.log.Warn("bad command", slog.String("op", op), slog.String("action", action), sl.Err(err))
			return router.Result{Toast: &router.Toast{Message: "Unknown action.", Kind: router.ToastError}}
		}

		res := w.Router.Dispatch(ctx, cmd)
		if res.SignedOut {
			if err := forgetSession(c); err != nil {
				r.log.Error("failed to clear session cookie", slog.String("op", op), sl.Err(err))
			}
		}
		return res
	})
}

// Filters applies the filter modal.
func (r *Routers) Filters(c echo.Context) error {
	const op = "http.routers.Filters"

	return r.inWorkspace(c, func(ctx context.Context, w *workspace.Workspace) router.Result {
		spec, err := r.filterSpec(c)
		if err != nil {
			return r.formFailed(op, err)
		}

		html := w.Router.ApplyFilters(ctx, spec)
		modal, _ := w.Router.ModalHTML(ctx)
		return router.Result{HTML: html, Modal: modal, ModalChanged: true}
	})
}

// filterSpec reads the filter form, resolving the character name shown in
// the filter pills.
func (r *Routers) filterSpec(c echo.Context) (models.FilterSpec, error) {
	spec := models.FilterSpec{
		SortBy:        models.SortField(c.FormValue("sortBy")),
		SortDirection: models.SortDirection(c.FormValue("sortDirection")),
		FilterByType:  models.MediaType(c.FormValue("filterByType")),
		FilterByTag:   strings.TrimSpace(c.FormValue("filterByTag")),
	}
	if err := c.Validate(spec); err != nil {
		return models.FilterSpec{}, gateway.NewValidationError("filters", err.Error())
	}

	raw := strings.TrimSpace(c.FormValue("filterByCharacter"))
	if raw == "" {
		return spec, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return models.FilterSpec{}, gateway.NewValidationError("filterByCharacter", form.MsgInvalidCharacter)
	}
	character, err := r.Gateway.GetCharacter(c.Request().Context(), id)
	if err != nil {
		return models.FilterSpec{}, err
	}

	spec.FilterByCharacter = &character.ID
	spec.FilterByCharacterName = character.Name
	return spec, nil
}

// Search runs a search from the search box. Live keystrokes are debounced.
func (r *Routers) Search(c echo.Context) error {
	return r.inWorkspace(c, func(ctx context.Context, w *workspace.Workspace) router.Result {
		term := c.FormValue("search")
		if c.FormValue("live") != "" {
			return router.Result{HTML: w.Router.SearchLive(ctx, term)}
		}
		return router.Result{HTML: w.Router.Search(ctx, term)}
	})
}

func (r *Routers) LoginForm(c echo.Context) error {
	return r.signIn(c, "http.routers.LoginForm", r.Auth.Login)
}

func (r *Routers) SignupForm(c echo.Context) error {
	return r.signIn(c, "http.routers.SignupForm", r.Auth.SignUp)
}

func (r *Routers) signIn(c echo.Context, op string, authenticate func(ctx context.Context, email, password string) (models.Session, error)) error {
	key, err := workspaceKey(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, router.Result{Toast: errorToast(gateway.NewValidationError("workspace", err.Error()))})
	}

	var req struct {
		Email    string `form:"email" validate:"required,email"`
		Password string `form:"password" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, r.formFailed(op, gateway.NewValidationError("email", "Invalid request format")))
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusOK, r.formFailed(op, gateway.NewValidationError("email", "Please enter a valid email and password.")))
	}

	ctx := c.Request().Context()

	s, err := authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return c.JSON(http.StatusOK, r.formFailed(op, err))
	}

	if err := rememberSession(c, s); err != nil {
		return c.JSON(http.StatusOK, r.formFailed(op, err))
	}

	ctx = gateway.WithSession(ctx, &s)
	w := r.Workspaces.Get(key, s.UserID)

	return c.JSON(http.StatusOK, w.Router.SignedIn(ctx))
}

// CharacterForm creates a character, or updates the one named by id.
func (r *Routers) CharacterForm(c echo.Context) error {
	const op = "http.routers.CharacterForm"

	return r.inWorkspace(c, func(ctx context.Context, w *workspace.Workspace) router.Result {
		var in models.CharacterInput
		if err := c.Bind(&in); err != nil {
			return r.formFailed(op, gateway.NewValidationError("name", "Invalid request format"))
		}
		in.Name = strings.TrimSpace(in.Name)
		if err := c.Validate(in); err != nil {
			return r.formFailed(op, gateway.NewValidationError("name", "Name is required."))
		}

		raw := c.FormValue("id")
		if raw == "" {
			if _, err := r.Gateway.CreateCharacter(ctx, in); err != nil {
				return r.formFailed(op, err)
			}
			return w.Router.Submitted(ctx, MsgCharacterCreated)
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			return r.formFailed(op, gateway.NewValidationError("id", form.MsgInvalidCharacter))
		}
		if _, err := r.Gateway.UpdateCharacter(ctx, id, in); err != nil {
			return r.formFailed(op, err)
		}
		return w.Router.Submitted(ctx, MsgCharacterUpdated)
	})
}

// MediaForm creates a media post, or updates the one named by id.
func (r *Routers) MediaForm(c echo.Context) error {
	const op = "http.routers.MediaForm"

	return r.inWorkspace(c, func(ctx context.Context, w *workspace.Workspace) router.Result {
		raw := c.FormValue("id")
		if raw == "" {
			f, err := mediaForm(c, form.NewMediaForm())
			if err != nil {
				return r.formFailed(op, err)
			}
			if _, err := r.Media.Create(ctx, f); err != nil {
				return r.formFailed(op, err)
			}
			return w.Router.Submitted(ctx, MsgMediaCreated)
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			return r.formFailed(op, gateway.NewValidationError("id", "Unknown media post"))
		}
		item, err := r.Gateway.GetMedia(ctx, id)
		if err != nil {
			return r.formFailed(op, err)
		}
		f, err := mediaForm(c, form.EditMediaForm(item))
		if err != nil {
			return r.formFailed(op, err)
		}
		if _, err := r.Media.Update(ctx, id, f); err != nil {
			return r.formFailed(op, err)
		}
		return w.Router.Submitted(ctx, MsgMediaUpdated)
	})
}

// mediaForm fills f from a create or edit media request. Only the inputs
// of the submitted kind are read.
func mediaForm(c echo.Context, f *form.MediaForm) (*form.MediaForm, error) {
	f.CharacterID = c.FormValue("character_id")
	f.Name = c.FormValue("name")
	f.Tags = c.FormValue("tags")

	switch kind := models.SourceKind(c.FormValue("kind")); kind {
	case models.SourceUpload:
		fh, err := c.FormFile("file")
		switch {
		case err == nil:
			f.SetFile(&models.FileUpload{
				Filename: fh.Filename,
				Size:     fh.Size,
				Open:     func() (io.ReadCloser, error) { return fh.Open() },
			})
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			f.SetKind(kind)
		default:
			return nil, err
		}
	case models.SourceLink:
		f.SetLink(c.FormValue("url"), models.MediaType(c.FormValue("type")))
	case models.SourceEmbed:
		f.SetEmbed(c.FormValue("embed_code"), c.FormValue("embed_thumbnail"))
	default:
		return nil, gateway.NewValidationError("kind", "Please choose upload, link or embed")
	}

	return f, nil
}

func (r *Routers) ProfileForm(c echo.Context) error {
	const op = "http.routers.ProfileForm"

	return r.inWorkspace(c, func(ctx context.Context, w *workspace.Workspace) router.Result {
		profile := models.Profile{
			Username:  strings.TrimSpace(c.FormValue("username")),
			FullName:  strings.TrimSpace(c.FormValue("full_name")),
			AvatarURL: strings.TrimSpace(c.FormValue("avatar_url")),
		}
		if err := c.Validate(profile); err != nil {
			return r.formFailed(op, gateway.NewValidationError("profile", err.Error()))
		}

		if _, err := r.Gateway.UpdateProfile(ctx, profile); err != nil {
			return r.formFailed(op, err)
		}

		return router.Result{
			HTML:  w.Router.Render(ctx),
			Toast: &router.Toast{Message: MsgProfileUpdated, Kind: router.ToastSuccess},
		}
	})
}

func (r *Routers) PasswordForm(c echo.Context) error {
	const op = "http.routers.PasswordForm"

	return r.inWorkspace(c, func(ctx context.Context, w *workspace.Workspace) router.Result {
		s := gateway.SessionFrom(ctx)
		if s == nil {
			return r.formFailed(op, &gateway.AuthRequiredError{Op: op})
		}

		if err := r.Auth.ChangePassword(ctx, *s, c.FormValue("password"), c.FormValue("confirm_password")); err != nil {
			return r.formFailed(op, err)
		}

		w.Router.Modals().Pop()
		modal, _ := w.Router.ModalHTML(ctx)
		return router.Result{
			Modal:        modal,
			ModalChanged: true,
			Toast:        &router.Toast{Message: MsgPasswordUpdated, Kind: router.ToastSuccess},
		}
	})
}

// ThemeForm stores the preferred theme in the cookie session.
func (r *Routers) ThemeForm(c echo.Context) error {
	const op = "http.routers.ThemeForm"

	w, err := r.workspace(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, router.Result{Toast: errorToast(gateway.NewValidationError("workspace", err.Error()))})
	}

	theme := view.ParseTheme(c.FormValue("theme"))
	if err := rememberTheme(c, theme); err != nil {
		return c.JSON(http.StatusOK, r.formFailed(op, err))
	}

	ctx := view.WithTheme(c.Request().Context(), theme)
	return c.JSON(http.StatusOK, themeResult{
		Result: router.Result{HTML: w.Router.Render(ctx)},
		Theme:  theme,
	})
}

// Socket upgrades the tab's live notification channel.
func (r *Routers) Socket(c echo.Context) error {
	s := gateway.SessionFrom(c.Request().Context())
	if s == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	key, err := workspaceKey(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// the hub writes its own response on a failed upgrade
	_ = r.Notifier.Serve(c.Response(), c.Request(), s.UserID, key)
	return nil
}
