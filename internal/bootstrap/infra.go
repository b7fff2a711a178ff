// 文件路径: internal/bootstrap/infra.go
// 模块说明: 按配置组装模板、订阅拉取、指标与订阅服务，serve 与 render 命令共用。
package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/creamcroissant/subrelay/internal/config"
	"github.com/creamcroissant/subrelay/internal/service"
	"github.com/creamcroissant/subrelay/internal/subscription"
	"github.com/creamcroissant/subrelay/internal/template"
)

// Infrastructure bundles the collaborators built from one Config.
type Infrastructure struct {
	Templates    *template.Store
	Fetcher      *subscription.HTTPFetcher
	Subscription service.SubscriptionService
	// Registry is nil when metrics are disabled.
	Registry *prometheus.Registry
}

// BuildInfrastructure wires the render pipeline. cfg must already be validated.
func BuildInfrastructure(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required / 配置不能为空")
	}

	templates, err := template.Load(template.Options{Dir: cfg.Templates.Dir, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	var (
		registry      *prometheus.Registry
		fetchMetrics  *subscription.Metrics
		renderMetrics *service.RenderMetrics
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		fetchMetrics = subscription.NewMetrics(registry, cfg.Metrics.Namespace)
		renderMetrics = service.NewRenderMetrics(registry, cfg.Metrics.Namespace)
	}

	sub := cfg.Subscription
	fetcher := subscription.NewHTTPFetcher(subscription.Options{
		UserAgent: sub.UserAgent,
		Timeout:   sub.Timeout,
		MaxBytes:  sub.MaxBytes,
		Retry: subscription.RetryConfig{
			Enabled:         sub.Retry.Enabled,
			MaxRetries:      sub.Retry.MaxRetries,
			InitialInterval: sub.Retry.InitialInterval,
			MaxInterval:     sub.Retry.MaxInterval,
		},
		Logger:  logger,
		Metrics: fetchMetrics,
	})

	svc, err := service.NewSubscriptionService(service.SubscriptionOptions{
		URL:               sub.URL,
		LegacyPassthrough: sub.LegacyPassthrough,
		Placeholder:       cfg.Templates.Placeholder,
		Templates:         templates,
		Fetcher:           fetcher,
		Logger:            logger,
		Metrics:           renderMetrics,
	})
	if err != nil {
		return nil, err
	}

	return &Infrastructure{
		Templates:    templates,
		Fetcher:      fetcher,
		Subscription: svc,
		Registry:     registry,
	}, nil
}

// FetchBudget is the longest a single render may spend waiting on the upstream.
func FetchBudget(sub config.SubscriptionConfig) time.Duration {
	if !sub.Retry.Enabled {
		return sub.Timeout
	}
	retries := sub.Retry.MaxRetries
	if retries <= 0 {
		retries = 2
	}
	maxInterval := sub.Retry.MaxInterval
	if maxInterval <= 0 {
		maxInterval = 5 * time.Second
	}
	return time.Duration(retries+1)*sub.Timeout + time.Duration(retries)*maxInterval
}
