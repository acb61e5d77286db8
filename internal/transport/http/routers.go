package http

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"boltvault/internal/domain/models"
	"boltvault/internal/events"
	"boltvault/internal/form"
	"boltvault/internal/gateway"
	"boltvault/internal/lib/logger/sl"
	"boltvault/internal/services/auth"
	"boltvault/internal/storage"
	"boltvault/internal/transport/http/dto/response"
	"boltvault/internal/workspace"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	_ "boltvault/docs"
)

type AuthService interface {
	SignUp(ctx context.Context, email, password string) (models.Session, error)
	Login(ctx context.Context, email, password string) (models.Session, error)
	Authenticate(ctx context.Context, token string) (*models.Session, error)
	Logout(ctx context.Context, session models.Session) error
	ChangePassword(ctx context.Context, session models.Session, password, confirm string) error
	RevokeAll(ctx context.Context, session models.Session) error
}

type MediaService interface {
	Create(ctx context.Context, f *form.MediaForm) (models.MediaItem, error)
	Update(ctx context.Context, id uuid.UUID, f *form.MediaForm) (models.MediaItem, error)
}

type ShellRenderer interface {
	Shell(ctx context.Context) (template.HTML, error)
}

type Workspaces interface {
	Get(key string, userID uuid.UUID) *workspace.Workspace
}

type Notifier interface {
	Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID, key string) error
}

type Routers struct {
	log        *slog.Logger
	Auth       AuthService
	Gateway    gateway.Gateway
	Media      MediaService
	Shell      ShellRenderer
	Workspaces Workspaces
	Notifier   Notifier
	Events     events.Publisher
}

func NewRouter(
	log *slog.Logger,
	authService AuthService,
	gw gateway.Gateway,
	mediaService MediaService,
	shell ShellRenderer,
	workspaces Workspaces,
	notifier Notifier,
	bus events.Publisher,
) *Routers {
	return &Routers{
		log:        log,
		Auth:       authService,
		Gateway:    gw,
		Media:      mediaService,
		Shell:      shell,
		Workspaces: workspaces,
		Notifier:   notifier,
		Events:     bus,
	}
}

// Health godoc
// @Summary Liveness probe
// @Tags ops
// @Produce json
// @Success 200 {object} response.Response
// @Router /health [get]
func (r *Routers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "ok"})
}

// errorStatus maps an error to its HTTP status and public body.
func errorStatus(err error) (int, response.ErrorResponse) {
	var validation *gateway.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, response.ErrorResponseWithDetails("validation_failed", validation.Message)
	case gateway.IsAuthRequired(err), errors.Is(err, auth.ErrInvalidSession):
		return http.StatusUnauthorized, response.ErrAuthenticationRequired
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, response.ErrInvalidCredentials
	case errors.Is(err, auth.ErrUserExist):
		return http.StatusConflict, response.ErrUserAlreadyExists
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	}

	var remote *gateway.RemoteError
	if errors.As(err, &remote) {
		return http.StatusBadGateway, response.ErrorResponseWithDetails("remote_error", remote.Message)
	}

	return http.StatusInternalServerError, response.ErrInternal
}

// fail logs err by severity and writes the mapped error response.
func (r *Routers) fail(c echo.Context, log *slog.Logger, err error) error {
	status, body := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.Int("status", status), sl.Err(err))
	} else {
		log.Warn("request rejected", slog.Int("status", status), sl.Err(err))
	}
	return c.JSON(status, body)
}
