package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/exit-kiosk/api/swagger"
	"github.com/noah-isme/exit-kiosk/internal/analytics"
	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/exitflow"
	"github.com/noah-isme/exit-kiosk/internal/handler"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/middleware"
	"github.com/noah-isme/exit-kiosk/internal/models"
	"github.com/noah-isme/exit-kiosk/internal/repository"
	"github.com/noah-isme/exit-kiosk/internal/service"
	"github.com/noah-isme/exit-kiosk/internal/timebucket"
	"github.com/noah-isme/exit-kiosk/internal/web"
	"github.com/noah-isme/exit-kiosk/pkg/cache"
	"github.com/noah-isme/exit-kiosk/pkg/config"
	"github.com/noah-isme/exit-kiosk/pkg/logger"
	corsmiddleware "github.com/noah-isme/exit-kiosk/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exit-kiosk/pkg/middleware/requestid"
	"github.com/noah-isme/exit-kiosk/pkg/storage"
)

// @title Exit Kiosk
// @version 1.0.0
// @description Staff kiosk for registering student exits in front of the exit registration backend
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	metrics := service.NewMetricsService()
	client := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout,
		backend.WithObserver(metrics),
		backend.WithLogger(logr.Named("backend")),
	)

	var (
		redisClient *redis.Client
		cacheRepo   service.CacheRepository
	)
	if cfg.Roster.BadgeCacheEnabled {
		rc, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("badge cache disabled: redis unavailable", zap.Error(err))
		} else {
			redisClient = rc
			defer redisClient.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(redisClient, "kiosk", logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Roster.BadgeCacheTTL, logr, cacheRepo != nil)

	classifier := timebucket.Default()
	if len(cfg.Analysis.SessionBuckets) > 0 {
		sessions, err := timebucket.Parse(cfg.Analysis.SessionBuckets)
		if err == nil {
			classifier, err = timebucket.New(sessions)
		}
		if err != nil {
			logr.Warn("invalid SESSION_BUCKETS, using default timetable", zap.Error(err))
			classifier = timebucket.Default()
		}
	}

	exitOpts := exitOptions(cfg.Exit)
	store := kiosk.NewStore(client, exitOpts, cfg.Session.TTL, logr.Named("kiosk"))
	metrics.TrackKiosks(store.Count)

	badges := service.NewBadgeService(cacheSvc, service.BadgeConfig{
		RecurrenceThreshold: cfg.Roster.RecurrenceThreshold,
		CacheTTL:            cfg.Roster.BadgeCacheTTL,
		Workers:             cfg.Roster.BadgeWorkers,
	}, logr)
	badges.Start(ctx)
	defer badges.Stop()

	roster := service.NewRosterService(badges, logr)
	exits := service.NewExitService(roster, badges, nil, metrics, logr)
	uploads := service.NewUploadService(roster, cfg.Upload.MaxFileSizeBytes, logr)

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	history := service.NewHistoryService(analytics.New(classifier), files, signer, service.HistoryConfig{
		Motives:  exitOpts.Motives,
		Location: cfg.Location(),
	}, logr)
	go history.RunCleanup(ctx, cfg.Exports.CleanupInterval)

	auth := service.NewAuthService(nil, logr, service.AuthConfig{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
	})

	tmpl, err := web.Templates()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(web.Static()))

	checks := []handler.ReadinessCheck{{
		Name: "exports",
		Check: func(context.Context) error {
			_, err := os.Stat(cfg.Exports.StorageDir)
			return err
		},
	}}
	if redisClient != nil {
		checks = append(checks, handler.ReadinessCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks...)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Student photos and the placeholder logo live on the backend.
	if target, err := url.Parse(cfg.Backend.BaseURL); err == nil && target.Host != "" {
		r.GET("/data/*path", gin.WrapH(httputil.NewSingleHostReverseProxy(target)))
	}

	pages := handler.PageConfig{
		SignInPath:     cfg.Session.SignInPath,
		SearchDebounce: cfg.Roster.SearchDebounce,
		MaxUploadBytes: cfg.Upload.MaxFileSizeBytes,
	}
	cookie := middleware.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Env == config.EnvProduction}

	kiosks := r.Group("/", middleware.KioskSession(store, auth, cookie, logr))
	handler.RegisterKioskRoutes(kiosks, handler.KioskHandlers{
		Roster:  handler.NewRosterHandler(roster, badges, exits, uploads, pages),
		Exit:    handler.NewExitHandler(exits, pages),
		History: handler.NewHistoryHandler(history, pages),
		Auth:    handler.NewAuthHandler(auth, store, cookie, pages),
		Search:  handler.NewSearchHandler(roster, tmpl, cfg.Roster.SearchDebounce, logr),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func exitOptions(cfg config.ExitConfig) exitflow.Options {
	opts := exitflow.DefaultOptions()
	if len(cfg.Motives) > 0 {
		opts.Motives = make([]models.Motive, 0, len(cfg.Motives))
		for _, m := range cfg.Motives {
			opts.Motives = append(opts.Motives, models.Motive(m))
		}
	}
	if cfg.DefaultMotive != "" {
		opts.DefaultMotive = models.Motive(cfg.DefaultMotive)
	}
	return opts
}
