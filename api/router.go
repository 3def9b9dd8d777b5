package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/complyscan/api/handler"
	"github.com/use-agent/complyscan/api/middleware"
	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/metrics"
	"github.com/use-agent/complyscan/scanner"
	"github.com/use-agent/complyscan/webhook"
)

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Scanner  *scanner.Scanner
	Notifier *webhook.Notifier
	Metrics  *metrics.Metrics
	Version  string
}

// NewRouter creates a configured Gin engine with all routes and middleware.
// Background middleware state is released when ctx is done.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → Metrics
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so monitoring probes always work.
func NewRouter(ctx context.Context, d Deps, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(d.Scanner, startTime, d.Version))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.POST("/scan", handler.Scan(d.Scanner))
	protected.POST("/batch", handler.Batch(d.Scanner, d.Notifier))
	protected.GET("/history", handler.History(d.Scanner, cfg.History.DefaultLimit))
	protected.DELETE("/cache", handler.InvalidateCache(d.Scanner))

	return r
}
