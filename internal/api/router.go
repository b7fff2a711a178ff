// 文件路径: internal/api/router.go
// 模块说明: 路由装配。/healthz 与 /metrics 不校验 key，其余路径（包括 404/405）都先经过 KeyGuard。
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creamcroissant/subrelay/internal/api/handler"
	"github.com/creamcroissant/subrelay/internal/api/middleware"
	"github.com/creamcroissant/subrelay/internal/config"
	"github.com/creamcroissant/subrelay/internal/service"
)

type Services struct {
	Subscription service.SubscriptionService
}

// RouterConfig carries the settings the router needs from config.Config.
type RouterConfig struct {
	SecretKey string
	Metrics   config.MetricsConfig
	// Registry backs both metric registration and /metrics. Nil means prometheus.DefaultRegisterer/DefaultGatherer.
	Registry *prometheus.Registry
}

// NewRouter wires the HTTP surface.
func NewRouter(logger *slog.Logger, services Services, cfg RouterConfig) http.Handler {
	if services.Subscription == nil {
		panic("router requires SubscriptionService")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		registerer, gatherer = cfg.Registry, cfg.Registry
	}

	r := chi.NewRouter()
	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
	)

	if cfg.Metrics.Enabled {
		mCfg := middleware.DefaultMetricsConfig()
		if cfg.Metrics.Namespace != "" {
			mCfg.Namespace = cfg.Metrics.Namespace
		}
		if cfg.Metrics.Subsystem != "" {
			mCfg.Subsystem = cfg.Metrics.Subsystem
		}
		if len(cfg.Metrics.Buckets) > 0 {
			mCfg.Buckets = cfg.Metrics.Buckets
		}
		r.Use(middleware.NewMetrics(registerer, mCfg).Middleware())
	}

	r.Use(
		middleware.StructuredLogger(middleware.LoggingConfig{
			Logger:        logger,
			SlowThreshold: 2 * time.Second,
			SkipPaths:     []string{"/healthz", "/metrics"},
		}),
		chiMiddleware.Recoverer,
	)

	r.Get("/healthz", handler.Health)

	if cfg.Metrics.Enabled {
		metricsHandler := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
		if cfg.Metrics.Token != "" {
			r.With(middleware.MetricsGuard(cfg.Metrics.Token)).Handle("/metrics", metricsHandler)
		} else {
			r.Handle("/metrics", metricsHandler)
		}
	}

	subscribe := handler.NewSubscribeHandler(services.Subscription, logger)
	guard := middleware.KeyGuard(cfg.SecretKey)

	r.With(guard).Get("/{format}", subscribe.Render)
	// Unknown paths still answer 401 first, so the format list is only shown to key holders.
	r.NotFound(guard(http.HandlerFunc(subscribe.NotFound)).ServeHTTP)
	r.MethodNotAllowed(guard(http.HandlerFunc(subscribe.MethodNotAllowed)).ServeHTTP)

	return r
}
