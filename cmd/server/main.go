package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HammerMeetNail/plantcare/internal/assets"
	"github.com/HammerMeetNail/plantcare/internal/config"
	"github.com/HammerMeetNail/plantcare/internal/database"
	"github.com/HammerMeetNail/plantcare/internal/flow"
	"github.com/HammerMeetNail/plantcare/internal/handlers"
	"github.com/HammerMeetNail/plantcare/internal/logging"
	"github.com/HammerMeetNail/plantcare/internal/middleware"
	"github.com/HammerMeetNail/plantcare/internal/progress"
	"github.com/HammerMeetNail/plantcare/internal/services/guide"
	"github.com/HammerMeetNail/plantcare/internal/services/usage"
)

var (
	templatesDir  = "web/templates"
	staticDir     = "web/static"
	migrationsDir = "migrations"
	assetsBase    = "."
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

// backends are the optional stores the server can run with.
type backends struct {
	db    *database.PostgresDB
	redis *database.RedisDB
}

func (b backends) healthCheckers() (db, redis handlers.HealthChecker) {
	if b.db != nil {
		db = b.db
	}
	if b.redis != nil {
		redis = b.redis
	}
	return db, redis
}

func connect(ctx context.Context, cfg *config.Config, logger *logging.Logger) (backends, error) {
	var b backends

	if cfg.Database.Enabled {
		logger.Info("Connecting to PostgreSQL", map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
		})
		db, err := database.NewPostgresDB(ctx, cfg.Database)
		if err != nil {
			return b, fmt.Errorf("connecting to postgres: %w", err)
		}
		b.db = db

		migrator, err := database.NewMigrator(cfg.Database.DSN(), migrationsDir)
		if err != nil {
			db.Close()
			return b, fmt.Errorf("creating migrator: %w", err)
		}
		version, err := migrator.Up()
		_ = migrator.Close()
		if err != nil {
			db.Close()
			return b, fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("Migrations completed", map[string]interface{}{"version": version})
	}

	if cfg.Redis.Enabled {
		logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
		rdb, err := database.NewRedisDB(ctx, cfg.Redis)
		if err != nil {
			b.close()
			return backends{}, fmt.Errorf("connecting to redis: %w", err)
		}
		b.redis = rdb
	}

	return b, nil
}

func (b backends) close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		b.db.Close()
	}
}

// app is everything the HTTP server needs besides the listener.
type app struct {
	handler    http.Handler
	controller *flow.Controller
	sweep      func(ctx context.Context)
}

func newApp(cfg *config.Config, logger *logging.Logger, b backends) (*app, error) {
	var store flow.Store
	var sweep func(ctx context.Context)
	if b.redis != nil {
		store = flow.NewRedisStore(flow.NewRedisClient(b.redis.Client), cfg.Session.TTL)
	} else {
		mem := flow.NewMemoryStore(cfg.Session.TTL)
		store = mem
		sweep = func(ctx context.Context) { sweepSessions(ctx, mem, cfg.Session.TTL, logger) }
	}

	recorder := usage.NewRecorder(nil)
	if b.db != nil {
		recorder = usage.NewRecorder(b.db.Pool)
	}
	client := guide.NewClient(cfg, recorder)

	progressCfg := progress.FromConfig(cfg.Progress)
	controller := flow.NewController(store, client, flow.Options{
		Progress:   progressCfg,
		StaleAfter: cfg.API.Timeout + 5*time.Second,
	})

	manifest := assets.NewManifest(assetsBase)
	if err := manifest.Load(); err != nil {
		logger.Warn("Failed to load asset manifest; serving unhashed assets", map[string]interface{}{
			"error": err.Error(),
		})
	}

	pageHandler, err := handlers.NewPageHandler(templatesDir, controller, manifest)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	guideHandler := handlers.NewGuideHandler(controller, client, pageHandler, progressCfg)
	healthHandler := handlers.NewHealthHandler(b.healthCheckers())

	var counter middleware.Counter
	if b.redis != nil {
		counter = middleware.NewRedisCounter(b.redis.Client)
	}
	guideRateLimiter := newGuideRateLimiter(counter, resolveGuideRateLimit(cfg, logger))
	limited := func(h http.HandlerFunc) http.Handler {
		return guideRateLimiter.Middleware(h)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	mux.HandleFunc("GET /{$}", pageHandler.Index)
	mux.Handle("POST /guide", limited(guideHandler.Submit))
	mux.HandleFunc("POST /guide/reset", guideHandler.Reset)
	mux.HandleFunc("GET /guide/status", guideHandler.Status)
	mux.HandleFunc("GET /guide/progress", guideHandler.Progress)

	mux.Handle("POST /api/guide", limited(guideHandler.API))
	mux.HandleFunc("GET /api/backend-status", guideHandler.BackendStatus)

	fs := http.FileServer(http.Dir(staticDir))
	mux.Handle("GET /static/", http.StripPrefix("/static/", fs))

	mux.HandleFunc("/", pageHandler.NotFound)

	// Outermost last.
	var handler http.Handler = mux
	handler = middleware.SessionLogger(handler)
	handler = middleware.NewCSRFMiddleware(cfg.Server.Secure).Protect(handler)
	handler = middleware.NewSessionMiddleware(cfg.Session.Cookie, cfg.Session.TTL, cfg.Server.Secure).Apply(handler)
	handler = middleware.NewCacheControl().Apply(handler)
	handler = middleware.NewCompress().Apply(handler)
	handler = middleware.NewSecurityHeaders(cfg.Server.Secure, backendOrigin(cfg.API.BaseURL)).Apply(handler)
	handler = middleware.NewRequestLogger(logger).Apply(handler)

	return &app{handler: handler, controller: controller, sweep: sweep}, nil
}

// newGuideRateLimiter limits guide submissions per client address. Session
// cookies are minted for any cookie-less request, so they cannot carry the quota.
func newGuideRateLimiter(counter middleware.Counter, limit int64) *middleware.RateLimiter {
	return middleware.NewRateLimiter(counter, limit, time.Hour, "ratelimit:guide:", middleware.GetClientIP, true)
}

func backendOrigin(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func sweepSessions(ctx context.Context, store *flow.MemoryStore, ttl time.Duration, logger *logging.Logger) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				logger.Debug("Expired sessions removed", map[string]interface{}{"count": n})
			}
		}
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{
			"env": cfg.Server.Environment,
		})
	}

	logger.Info("Starting PlantCare server...", map[string]interface{}{
		"backend": cfg.API.BaseURL,
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	b, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	a, err := newApp(cfg, logger, b)
	if err != nil {
		return err
	}
	if a.sweep != nil {
		go a.sweep(ctx)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     a.handler,
		ReadTimeout: 15 * time.Second,
		// The progress stream stays open for as long as the backend call.
		WriteTimeout: cfg.API.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if err := a.controller.Close(shutdownCtx); err != nil {
			logger.Warn("Guide requests still running at shutdown", map[string]interface{}{
				"error":     err.Error(),
				"in_flight": a.controller.InFlight(),
			})
		}
		stop()
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr":  addr,
		"redis": b.redis != nil,
		"db":    b.db != nil,
	})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

// resolveGuideRateLimit returns submissions allowed per session per hour.
func resolveGuideRateLimit(cfg *config.Config, logger *logging.Logger) int64 {
	if cfg.Server.GuideRateLimit > 0 {
		logger.Info("Using guide rate limit from env", map[string]interface{}{"limit": cfg.Server.GuideRateLimit})
		return cfg.Server.GuideRateLimit
	}
	limit := int64(20)
	if cfg.Server.Environment == "development" {
		limit = 200
		logger.Info("Using development guide rate limit", map[string]interface{}{"limit": limit})
	}
	return limit
}
