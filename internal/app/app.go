package app

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/wedding-chat/internal/auth"
	"github.com/vadim/wedding-chat/internal/config"
	httpcontroller "github.com/vadim/wedding-chat/internal/controller/http"
	"github.com/vadim/wedding-chat/internal/database"
	"github.com/vadim/wedding-chat/internal/domain/chat/dao"
	"github.com/vadim/wedding-chat/internal/domain/chat/policy"
	"github.com/vadim/wedding-chat/internal/domain/chat/service"
	"github.com/vadim/wedding-chat/internal/encryption"
	"github.com/vadim/wedding-chat/internal/httpx/requestlog"
	"github.com/vadim/wedding-chat/internal/httpx/response"
	"github.com/vadim/wedding-chat/internal/realtime"
	"github.com/vadim/wedding-chat/internal/session"
	"github.com/vadim/wedding-chat/internal/storage"
)

//go:embed openapi.yaml
var openAPISpec []byte

// pinger is implemented by brokers with a remote backend
type pinger interface {
	Ping(ctx context.Context) error
}

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	// Infrastructure
	pool    *pgxpool.Pool
	broker  realtime.Broker
	cipher  *encryption.Cipher
	avatars *storage.S3Storage
	authn   *auth.Authenticator

	// Domain policies
	chatPolicy *policy.Policy
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestlog.New(log.New(os.Stdout, "", log.LstdFlags)))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	if err := app.initInfrastructure(ctx); err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	app.initDomains()

	if err := app.registerRoutes(); err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("registering routes: %w", err)
	}

	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// initInfrastructure connects to Postgres and the change feed and builds
// the shared cipher, storage and authenticator
func (a *App) initInfrastructure(ctx context.Context) error {
	pool, err := database.NewPostgresPool(ctx, a.cfg.Database.PostgresDSN, database.PoolConfig{
		MaxConns:     a.cfg.Database.MaxConns,
		MinConns:     a.cfg.Database.MinConns,
		ConnLifetime: a.cfg.Database.ConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	a.pool = pool

	switch a.cfg.Realtime.Driver {
	case "redis":
		broker, err := realtime.NewRedisBroker(ctx, realtime.RedisConfig{
			Addr:     a.cfg.Realtime.RedisAddr,
			Password: a.cfg.Realtime.RedisPassword,
			DB:       a.cfg.Realtime.RedisDB,
			Prefix:   a.cfg.Realtime.ChannelPrefix,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		a.broker = broker
	case "memory", "":
		a.broker = realtime.NewMemoryBroker(a.logger)
	default:
		return fmt.Errorf("unknown realtime driver %q", a.cfg.Realtime.Driver)
	}

	a.cipher = encryption.New(a.cfg.Chat.KeySalt, a.logger)
	a.avatars = storage.NewS3Storage(storage.S3Config{
		Endpoint:        a.cfg.S3.Endpoint,
		AccessKeyID:     a.cfg.S3.AccessKeyID,
		SecretAccessKey: a.cfg.S3.SecretAccessKey,
		Bucket:          a.cfg.S3.Bucket,
		Region:          a.cfg.S3.Region,
		PublicURL:       a.cfg.S3.PublicURL,
	})
	a.authn = auth.NewAuthenticator(a.cfg.Auth.Secret, a.cfg.Auth.Issuer, a.cfg.Auth.TokenTTL)

	a.logger.Info("infrastructure ready", "realtime_driver", a.cfg.Realtime.Driver)
	return nil
}

// initDomains initializes domain layers (DAO, Service, Policy)
func (a *App) initDomains() {
	conversations := dao.NewConversationPostgres(a.pool)
	messages := dao.NewMessagePostgres(a.pool)
	bookings := dao.NewBookingPostgres(a.pool)
	catalog := dao.NewCatalogPostgres(a.pool)

	chatService := service.New(conversations, messages, bookings, catalog, a.cipher, a.logger)
	a.chatPolicy = policy.New(chatService, a.broker, a.logger)
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() error {
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)

	docs, err := httpcontroller.NewDocsHandler("Wedding Chat API", openAPISpec)
	if err != nil {
		return err
	}
	docs.RegisterRoutes(a.router)

	// Websocket connections are long-lived, so they skip the request timeout
	a.router.Group(func(r chi.Router) {
		r.Use(a.authn.WebSocketMiddleware)

		rt := httpcontroller.NewRealtimeHandler(a.chatPolicy, a.cipher, a.broker, httpcontroller.RealtimeConfig{
			PingInterval: a.cfg.WebSocket.PingInterval,
			WriteTimeout: a.cfg.WebSocket.WriteTimeout,
			Session: session.Config{
				CacheRefresh:    a.cfg.Notify.CacheRefresh,
				ToastTTL:        a.cfg.Notify.ToastTTL,
				PermissionDelay: a.cfg.Notify.PermissionDelay,
				PreviewLength:   a.cfg.Notify.PreviewLength,
			},
		}, a.logger)
		rt.RegisterRoutes(r)
	})

	a.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(a.authn.Middleware)

		httpcontroller.NewChatHandler(a.chatPolicy).RegisterRoutes(r)
		httpcontroller.NewProfileHandler(a.chatPolicy, a.avatars, a.logger).RegisterRoutes(r)
	})

	return nil
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// readyHandler reports whether Postgres and the change feed are reachable
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.pool.Ping(ctx); err != nil {
		a.logger.Warn("readiness: database unreachable", "error", err)
		response.Error(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if p, ok := a.broker.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			a.logger.Warn("readiness: change feed unreachable", "error", err)
			response.Error(w, http.StatusServiceUnavailable, "realtime unavailable")
			return
		}
	}

	response.OK(w, map[string]string{"status": "ready"})
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.closeInfrastructure()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	a.closeInfrastructure()
	if err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// closeInfrastructure releases the change feed first so open sessions
// unwind before the pool goes away
func (a *App) closeInfrastructure() {
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.logger.Warn("closing broker", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
