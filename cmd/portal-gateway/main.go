package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/kelurahan-portal/api/swagger"
	"github.com/noah-isme/kelurahan-portal/internal/handler"
	internalmiddleware "github.com/noah-isme/kelurahan-portal/internal/middleware"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	"github.com/noah-isme/kelurahan-portal/internal/repository"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	"github.com/noah-isme/kelurahan-portal/pkg/cache"
	"github.com/noah-isme/kelurahan-portal/pkg/config"
	"github.com/noah-isme/kelurahan-portal/pkg/database"
	"github.com/noah-isme/kelurahan-portal/pkg/export"
	"github.com/noah-isme/kelurahan-portal/pkg/fieldcheck"
	"github.com/noah-isme/kelurahan-portal/pkg/logger"
	corsmiddleware "github.com/noah-isme/kelurahan-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/kelurahan-portal/pkg/middleware/requestid"
	"github.com/noah-isme/kelurahan-portal/pkg/ratelimit"
	"github.com/noah-isme/kelurahan-portal/pkg/storage"
)

// @title Kelurahan Portal Gateway
// @version 1.0.0
// @description Citizen service portal gateway in front of the kelurahan office API
// @BasePath /
// @schemes http https

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
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := fieldcheck.Register(v); err != nil {
			logr.Fatal("register field rules", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, using in-process state", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	api, err := portalapi.New(portalapi.Config{
		BaseURL:      cfg.Upstream.BaseURL,
		Timeout:      cfg.Upstream.Timeout,
		MaxIdleConns: cfg.Upstream.MaxIdleConns,
		Logger:       logr,
		Observer:     metrics,
	})
	if err != nil {
		logr.Fatal("configure upstream client", zap.Error(err))
	}

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cacheRepo.Enabled())

	var sessionStore service.SessionStore = repository.NewMemorySessionRepository(nil)
	if redisClient != nil {
		sessionStore = repository.NewRedisSessionRepository(redisClient)
	}
	sessions := service.NewSessionService(api, sessionStore, service.SessionConfig{TTL: cfg.Session.TTL}, logr)

	stagingStore, err := storage.NewLocalStorage(cfg.Uploads.StagingDir)
	if err != nil {
		logr.Fatal("open staging dir", zap.Error(err))
	}
	staging := service.NewStagingService(stagingStore, service.StagingConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
		Retention:    cfg.Uploads.DraftRetention,
	}, metrics, logr)

	journal := repository.NewSubmissionRepository(db)
	staging.KeepPinnedDrafts(journal)
	submissions := service.NewSubmissionService(api, journal, staging, metrics, logr, service.SubmissionConfig{
		RedirectDelay: cfg.Submission.RedirectDelay,
		RedirectTo:    cfg.Submission.RedirectTo,
		MaxAttempts:   cfg.Submission.MaxAttempts,
	})
	resumer := service.NewResumeWorker(submissions, service.ResumeWorkerConfig{
		Workers:    cfg.Submission.ResumeWorkers,
		MaxRetries: cfg.Submission.ResumeRetries,
		RetryDelay: cfg.Submission.ResumeRetryDelay,
		Interval:   cfg.Submission.ResumeInterval,
	}, logr)
	resumer.Start(ctx)
	go staging.RunCleanup(ctx, cfg.Uploads.CleanupInterval)

	limiter := newLimiter(cfg.RateLimit, redisClient, logr)

	routes := handler.Routes{
		Prefix:       cfg.APIPrefix,
		CookieName:   cfg.Session.CookieName,
		Sessions:     sessions,
		Limiter:      limiter,
		Logger:       logr,
		LoginLimit:   handler.Limit{Limit: cfg.RateLimit.LoginLimit, Window: cfg.RateLimit.LoginWindow},
		SubmitLimit:  handler.Limit{Limit: cfg.RateLimit.SubmitLimit, Window: cfg.RateLimit.SubmitWindow},
		ContactLimit: handler.Limit{Limit: cfg.RateLimit.ContactLimit, Window: cfg.RateLimit.ContactWindow},

		Auth:       handler.NewAuthHandler(sessions, handler.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.Secure}),
		Catalog:    handler.NewCatalogHandler(service.NewCatalogService(api, cacheSvc, cfg.Catalog.CacheTTL, logr)),
		Submission: handler.NewSubmissionHandler(staging, submissions),
		Tracking:   handler.NewTrackingHandler(service.NewTrackingService(api, logr)),
		Contact:    handler.NewContactHandler(service.NewContactService(api, logr)),
		Admin: handler.NewAdminHandler(service.NewAdminService(api, cacheSvc, logr), api, sessions,
			storage.NewSignedURLSigner(cfg.Links.Secret, cfg.Links.TTL), cfg.APIPrefix+"/berkas/download"),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(api, cacheSvc, cfg.Dashboard.CacheTTL, logr)),
		Report: handler.NewReportHandler(service.NewReportService(api,
			export.NewCSVExporter(true), export.NewPDFExporter(cfg.OfficeName), export.NewXLSXExporter(), logr)),
		Users: handler.NewUserHandler(service.NewUserService(api, logr)),
	}

	checks := map[string]handler.Pinger{"postgres": journal}
	if redisClient != nil {
		checks["redis"] = cacheRepo
	}
	ops := handler.NewMetricsHandler(metrics, checks)

	r := gin.New()
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes + 1<<20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	routes.Register(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "upstream", cfg.Upstream.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	resumer.Stop()
}

func newLimiter(cfg config.RateLimitConfig, client *redis.Client, logr *zap.Logger) ratelimit.Limiter {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Backend == "redis" && client != nil {
		limiter, err := ratelimit.NewRedis(client, nil)
		if err == nil {
			return limiter
		}
		logr.Warn("redis rate limiter unavailable, using memory", zap.Error(err))
	}
	return ratelimit.NewMemory(ratelimit.MemoryConfig{})
}
