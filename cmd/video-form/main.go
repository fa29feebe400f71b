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
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/video-upload-form/api/swagger"
	"github.com/noah-isme/video-upload-form/internal/handler"
	"github.com/noah-isme/video-upload-form/internal/repository"
	"github.com/noah-isme/video-upload-form/internal/service"
	"github.com/noah-isme/video-upload-form/pkg/cache"
	"github.com/noah-isme/video-upload-form/pkg/config"
	"github.com/noah-isme/video-upload-form/pkg/database"
	"github.com/noah-isme/video-upload-form/pkg/jobs"
	"github.com/noah-isme/video-upload-form/pkg/logger"
	"github.com/noah-isme/video-upload-form/pkg/storage"
)

// @title Video Upload Form API
// @version 1.0.0
// @description Upload form for videos with field validation and optional storage.
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	validate := service.NewVideoValidator(validator.New(), service.VideoRules{
		MaxNameLength:        cfg.Video.MaxNameLength,
		MaxDescriptionLength: cfg.Video.MaxDescriptionLength,
		MaxSizeBytes:         cfg.Video.MaxSizeBytes,
		MaxDurationSeconds:   cfg.Video.MaxDurationSeconds,
	})
	readiness := map[string]handler.ReadinessCheck{}

	var videos *service.VideoService
	if cfg.Video.StorageEnabled {
		var queue *jobs.Queue
		videos, queue = buildStoredVideoService(ctx, cfg, logr, metrics, validate, readiness)
		queue.Start(ctx)
		defer queue.Stop()
	} else {
		videos = service.NewVideoService(validate, nil, nil, nil, nil, nil, metrics, logr, service.VideoServiceConfig{APIPrefix: cfg.APIPrefix})
		logr.Info("video storage disabled, accepted submissions are only logged")
	}

	router := handler.NewRouter(handler.RouterConfig{
		Env:            cfg.Env,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Metrics:        metrics,
		Videos:         videos,
		Readiness:      readiness,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Video.StorageEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func buildStoredVideoService(ctx context.Context, cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, validate *service.VideoValidator, readiness map[string]handler.ReadinessCheck) (*service.VideoService, *jobs.Queue) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	readiness["database"] = db.PingContext

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, video listing cache disabled", zap.Error(err))
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, "videos:")
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	files, err := storage.NewLocalStorage(cfg.Video.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare video storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Video.SignedURLSecret, cfg.Video.SignedURLTTL)
	videoRepo := repository.NewVideoRepository(db)

	ingest := service.NewIngestService(videoRepo, files, metrics, logr, cfg.Video.Retention)
	queue := jobs.NewQueue("video-ingest", ingest.Handle, jobs.QueueConfig{
		Workers:    cfg.Ingest.Workers,
		MaxRetries: cfg.Ingest.Retries,
		Logger:     logr,
	})
	go ingest.RunSweeper(ctx, cfg.Ingest.SweepInterval)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Video.ListCacheTTL, logr)
	videos := service.NewVideoService(validate, videoRepo, files, signer, cacheSvc, queue, metrics, logr, service.VideoServiceConfig{APIPrefix: cfg.APIPrefix})
	return videos, queue
}
