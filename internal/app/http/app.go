package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	appmiddleware "boltvault/internal/middleware"
	httprouters "boltvault/internal/transport/http"

	"github.com/arl/statsviz"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type Options struct {
	Host            string
	Port            string
	TokenSecret     string
	CookieSecret    string
	SecureCookies   bool
	SessionMaxAge   time.Duration
	UploadsDir      string
	ShutdownTimeout time.Duration
	// MaxBodySize is the largest accepted upload; 0 disables the limit.
	MaxBodySize int64
}

// formOverhead is the room left for the other fields of a multipart form.
const formOverhead = 1 << 20

type Server struct {
	m       *http.ServeMux
	log     *slog.Logger
	e       *echo.Echo
	routers *httprouters.Routers
	opts    Options
}

func New(log *slog.Logger, opts Options, routers *httprouters.Routers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Validator = &CustomValidator{validator: validator.New()}

	store := sessions.NewCookieStore([]byte(opts.CookieSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	e.Use(middleware.Recover())
	if opts.MaxBodySize > 0 {
		e.Use(middleware.BodyLimit(bodyLimit(opts.MaxBodySize)))
	}
	e.Use(session.Middleware(store))
	e.Use(appmiddleware.PrometheusMetrics)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote ip", v.RemoteIP),
				slog.Duration("latency", v.Latency),
			)

			return nil
		},
	}))

	e.Use(routers.Authenticate)

	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		log.Info("Statsviz start with error", slog.Any("error:", err.Error()))
	}

	return &Server{
		m:       mux,
		log:     log,
		e:       e,
		routers: routers,
		opts:    opts,
	}
}

// bodyLimit renders maxSize plus the form overhead in echo's size notation,
// rounded up to whole kilobytes.
func bodyLimit(maxSize int64) string {
	return fmt.Sprintf("%dK", (maxSize+formOverhead+1023)/1024)
}

// Handler exposes the configured echo instance, used by tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info(op, slog.String("Start", "server"), slog.String("addr", s.addr()))

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	if err := s.e.Start(s.addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	optCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("stopping", slog.String("op", op))

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefuly: %w", op, err)
	}

	return nil
}

func (s *Server) addr() string {
	return net.JoinHostPort(s.opts.Host, s.opts.Port)
}

func (s *Server) BuildRouters() {
	r := s.routers

	s.e.GET("/health", r.Health)
	s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	debug := s.e.Group("/debug")
	{
		debug.GET("/statsviz/", echo.WrapHandler(s.m))
		debug.GET("/statsviz/*", echo.WrapHandler(s.m))
	}

	s.e.GET("/swagger/*", echoSwagger.WrapHandler)

	if s.opts.UploadsDir != "" {
		s.e.Static("/uploads", s.opts.UploadsDir)
	}

	s.e.GET("/", r.ShellPage)
	s.e.GET("/ws", r.Socket)

	app := s.e.Group("/app")
	{
		app.GET("/view", r.View)
		app.GET("/render", r.Render)
		app.POST("/actions", r.Action)
		app.POST("/filters", r.Filters)
		app.POST("/search", r.Search)
		app.POST("/load-more", r.LoadMore)
		app.POST("/select/toggle", r.ToggleSelectMode)
		app.POST("/select/:id", r.ToggleSelectItem)
		app.POST("/selected/delete", r.DeleteSelected)

		forms := app.Group("/forms")
		{
			forms.POST("/login", r.LoginForm)
			forms.POST("/signup", r.SignupForm)
			forms.POST("/character", r.CharacterForm)
			forms.POST("/media", r.MediaForm)
			forms.POST("/profile", r.ProfileForm)
			forms.POST("/password", r.PasswordForm)
			forms.POST("/theme", r.ThemeForm)
		}
	}

	api := s.e.Group("/api/v1")
	{
		api.POST("/auth/signup", r.SignUp)
		api.POST("/auth/login", r.Login)

		protected := api.Group("")
		protected.Use(echojwt.WithConfig(echojwt.Config{
			SigningKey: []byte(s.opts.TokenSecret),
		}))
		protected.Use(r.RequireSession)
		{
			protected.POST("/auth/logout", r.Logout)
			protected.POST("/auth/password", r.ChangePassword)

			protected.GET("/characters", r.ListCharacters)
			protected.POST("/characters", r.CreateCharacter)
			protected.GET("/characters/:id", r.GetCharacter)
			protected.PUT("/characters/:id", r.UpdateCharacter)
			protected.DELETE("/characters/:id", r.DeleteCharacter)
			protected.GET("/characters/:id/media", r.CharacterMedia)

			protected.GET("/media", r.ListMedia)
			protected.POST("/media", r.CreateMedia)
			protected.GET("/media/search", r.SearchMedia)
			protected.POST("/media/batch-delete", r.DeleteMediaBatch)
			protected.GET("/media/:id", r.GetMedia)
			protected.PUT("/media/:id", r.UpdateMedia)
			protected.DELETE("/media/:id", r.DeleteMedia)

			protected.GET("/tags", r.UniqueTags)
			protected.GET("/profile", r.GetProfile)
			protected.PUT("/profile", r.UpdateProfile)
			protected.DELETE("/account", r.DeleteAccount)
		}
	}
}
