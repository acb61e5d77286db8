package app

import (
	"context"
	"log/slog"

	httpapp "boltvault/internal/app/http"
	"boltvault/internal/config"
	"boltvault/internal/events"
	"boltvault/internal/gallery"
	"boltvault/internal/gateway"
	"boltvault/internal/lib/logger/sl"
	"boltvault/internal/repository"
	"boltvault/internal/router"
	"boltvault/internal/services/auth"
	services "boltvault/internal/services/media_service"
	filestorage "boltvault/internal/storage/filestorage"
	"boltvault/internal/storage/postgresql"
	redisapp "boltvault/internal/storage/redis"
	httprouters "boltvault/internal/transport/http"
	"boltvault/internal/transport/ws"
	"boltvault/internal/view"
	"boltvault/internal/workspace"

	"github.com/google/uuid"
)

type App struct {
	log        *slog.Logger
	HTTPServer *httpapp.Server
	Hub        *ws.Hub
	repo       *repository.Repository
	redis      *redisapp.Client
	hubCtx     context.Context
	stopHub    context.CancelFunc
}

func New(log *slog.Logger, cfg *config.Config) *App {
	ctx := context.Background()

	pool, err := postgresql.Connect(ctx, cfg.DSN)
	if err != nil {
		panic(err)
	}
	if err := postgresql.Migrate(ctx, pool); err != nil {
		panic(err)
	}

	rdb := redisapp.NewClient(cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB)
	if err := rdb.HealthCheck(ctx); err != nil {
		panic(err)
	}

	files, err := filestorage.NewLocalFileStorage(cfg.FileStorage.BaseDir, cfg.FileStorage.BaseURL, cfg.FileStorage.MaxSize)
	if err != nil {
		panic(err)
	}

	repo := repository.NewRepository(pool)
	sessions := repository.NewRedisSessionRepo(rdb)

	gw := gateway.NewRemote(log, repo.Character, repo.Media, repo.Profile, files, cfg.Gallery.PageSize)
	authService := auth.New(log, repo.User, sessions, cfg.Session.Secret, cfg.Session.TokenTTL)
	mediaService := services.NewMediaService(log, gw)

	pages, err := view.New(log, gw)
	if err != nil {
		panic(err)
	}

	bus := events.NewBus()
	hub := ws.NewHub(log)

	registry := workspace.NewRegistry(log, cfg.Session.WorkspaceTTL, func(key string, userID uuid.UUID) *router.Router {
		ctl := gallery.NewController(log, gw, cfg.Gallery.SearchDebounce)
		if userID != uuid.Nil {
			ctl.OnUpdate(func() {
				bus.Publish(events.View(userID, key))
			})
		}
		return router.New(log, pages, gw, ctl, authService, bus, key)
	})

	bus.Subscribe(registry.Handle)
	bus.Subscribe(hub.Publish)

	routers := httprouters.NewRouter(log, authService, gw, mediaService, pages, registry, hub, bus)

	server := httpapp.New(log, httpapp.Options{
		Host:            cfg.HTTP.Host,
		Port:            cfg.HTTP.Port,
		TokenSecret:     cfg.Session.Secret,
		CookieSecret:    cfg.Session.CookieSecret,
		SecureCookies:   cfg.Session.SecureCookies,
		SessionMaxAge:   cfg.Session.TokenTTL,
		UploadsDir:      files.GetBaseDir(),
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		MaxBodySize:     cfg.FileStorage.MaxSize,
	}, routers)

	hubCtx, stopHub := context.WithCancel(context.Background())

	return &App{
		log:        log,
		HTTPServer: server,
		Hub:        hub,
		repo:       repo,
		redis:      rdb,
		hubCtx:     hubCtx,
		stopHub:    stopHub,
	}
}

// Run starts the notification hub and serves HTTP until Stop.
func (a *App) Run() {
	go a.Hub.Run(a.hubCtx)

	a.HTTPServer.BuildRouters()
	a.HTTPServer.MustRun()
}

func (a *App) Stop() {
	const op = "app.Stop"

	log := a.log.With(slog.String("op", op))

	if err := a.HTTPServer.Stop(); err != nil {
		log.Error("failed to stop http server", sl.Err(err))
	}
	a.stopHub()
	if err := a.redis.Close(); err != nil {
		log.Error("failed to close redis", sl.Err(err))
	}
	a.repo.Close()
}
