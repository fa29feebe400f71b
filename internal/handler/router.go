package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/video-upload-form/internal/middleware"
	"github.com/noah-isme/video-upload-form/internal/service"
	"github.com/noah-isme/video-upload-form/pkg/config"
	"github.com/noah-isme/video-upload-form/pkg/logger"
	corsmiddleware "github.com/noah-isme/video-upload-form/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/video-upload-form/pkg/middleware/requestid"
)

// RouterConfig carries everything the HTTP surface is built from.
type RouterConfig struct {
	Env            string
	APIPrefix      string
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Videos         videoService
	Readiness      map[string]ReadinessCheck
}

// NewRouter wires middleware and routes. Storage backed video routes are
// registered only when the video service has storage enabled.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	metricsHandler := NewMetricsHandler(cfg.Metrics, cfg.Readiness, cfg.Logger)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	form := NewFormHandler(cfg.Videos, prefix, cfg.Logger)
	r.GET("/", form.Show)
	r.POST("/", form.Submit)

	videos := NewVideoHandler(cfg.Videos)
	api := r.Group(prefix)
	api.POST("/videos", videos.Create)
	api.POST("/videos/validate", videos.Validate)

	if cfg.Videos.StorageEnabled() {
		api.GET("/videos", videos.List)
		api.GET("/videos/export", videos.Export)
		api.GET("/videos/:id", videos.Get)
		api.GET("/videos/:id/stream", videos.Stream)
		api.DELETE("/videos/:id", videos.Delete)
	}

	return r
}
