package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"boltvault/internal/domain/models"
	"boltvault/internal/gateway"
	"boltvault/internal/lib/logger/sl"
	"boltvault/internal/services/auth"
	"boltvault/internal/transport/http/dto/response"
	"boltvault/internal/view"
	"boltvault/internal/workspace"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	SessionName     = "session"
	WorkspaceHeader = "X-Workspace"

	tokenValue = "token"
	themeValue = "theme"
)

var ErrMissingWorkspace = errors.New("missing or malformed workspace key")

// Authenticate resolves the bearer token, or the token kept in the cookie
// session, into a session on the request context. Requests with an unknown
// or expired token continue anonymously.
func (r *Routers) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		const op = "http.routers.Authenticate"

		ctx := c.Request().Context()

		token := bearerToken(c.Request())
		if sess, err := session.Get(SessionName, c); err == nil {
			if token == "" {
				token, _ = sess.Values[tokenValue].(string)
			}
			if theme, ok := sess.Values[themeValue].(string); ok {
				ctx = view.WithTheme(ctx, view.ParseTheme(theme))
			}
		}

		if token != "" {
			s, err := r.Auth.Authenticate(ctx, token)
			switch {
			case err == nil:
				ctx = gateway.WithSession(ctx, s)
			case !errors.Is(err, auth.ErrInvalidSession):
				r.log.Error("failed to authenticate", slog.String("op", op), sl.Err(err))
			}
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequireSession rejects anonymous requests.
func (r *Routers) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if gateway.SessionFrom(c.Request().Context()) == nil {
			return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationRequired)
		}
		return next(c)
	}
}

func bearerToken(req *http.Request) string {
	h := req.Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// saveCookieSession applies mutate to the cookie session and writes it.
// An undecodable cookie is replaced.
func saveCookieSession(c echo.Context, mutate func(s *sessions.Session)) error {
	sess, err := session.Get(SessionName, c)
	if sess == nil {
		return err
	}
	mutate(sess)
	return sess.Save(c.Request(), c.Response())
}

func rememberSession(c echo.Context, s models.Session) error {
	return saveCookieSession(c, func(sess *sessions.Session) {
		sess.Values[tokenValue] = s.Token
	})
}

func forgetSession(c echo.Context) error {
	return saveCookieSession(c, func(sess *sessions.Session) {
		delete(sess.Values, tokenValue)
	})
}

func rememberTheme(c echo.Context, t view.Theme) error {
	return saveCookieSession(c, func(sess *sessions.Session) {
		sess.Values[themeValue] = string(t)
	})
}

// workspaceKey returns the key the browser tab identifies itself with.
func workspaceKey(c echo.Context) (string, error) {
	key := c.Request().Header.Get(WorkspaceHeader)
	if key == "" {
		key = c.QueryParam("workspace")
	}

	id, err := uuid.Parse(key)
	if err != nil {
		return "", ErrMissingWorkspace
	}
	return id.String(), nil
}

// workspace returns the workspace of the calling tab for the current user.
func (r *Routers) workspace(c echo.Context) (*workspace.Workspace, error) {
	key, err := workspaceKey(c)
	if err != nil {
		return nil, err
	}

	userID := uuid.Nil
	if s := gateway.SessionFrom(c.Request().Context()); s != nil {
		userID = s.UserID
	}

	return r.Workspaces.Get(key, userID), nil
}
