// 文件路径: internal/service/subscription.go
// 模块说明: 订阅渲染流水线：按格式选择转换器，必要时拉取上游订阅，最后组装响应头。
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/creamcroissant/subrelay/internal/protocol"
	"github.com/creamcroissant/subrelay/internal/subscription"
	"github.com/creamcroissant/subrelay/internal/template"
)

// SubscriptionService 负责生成客户端配置响应。
type SubscriptionService interface {
	Render(ctx context.Context, format protocol.Format, userAgent string) (*protocol.Response, error)
}

// SubscriptionOptions 汇总流水线依赖，由启动代码一次性注入。
type SubscriptionOptions struct {
	URL               string
	LegacyPassthrough bool
	Placeholder       string
	Templates         *template.Store
	Fetcher           subscription.Fetcher
	Logger            *slog.Logger
	Metrics           *RenderMetrics
}

type subscriptionService struct {
	url       string
	legacy    bool
	templates *template.Store
	fetcher   subscription.Fetcher
	clash     protocol.Transformer
	loon      protocol.Transformer
	logger    *slog.Logger
	metrics   *RenderMetrics
}

// NewSubscriptionService 组装订阅服务依赖。
func NewSubscriptionService(opts SubscriptionOptions) (SubscriptionService, error) {
	if opts.Templates == nil {
		return nil, fmt.Errorf("%w: template store", ErrMissingDependency)
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("%w: subscription fetcher", ErrMissingDependency)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loon := protocol.NewLoonTransformer(opts.Placeholder, logger)
	if !strings.Contains(opts.Templates.Loon(), loon.Placeholder()) {
		logger.Warn("loon template has no placeholder, loon responses will not reference the subscription",
			"placeholder", loon.Placeholder())
	}

	return &subscriptionService{
		url:       opts.URL,
		legacy:    opts.LegacyPassthrough,
		templates: opts.Templates,
		fetcher:   opts.Fetcher,
		clash:     protocol.NewClashTransformer(),
		loon:      loon,
		logger:    logger,
		metrics:   opts.Metrics,
	}, nil
}

// Render runs the pipeline for one request. Only clash fetches the upstream;
// loon clients fetch the subscription themselves.
func (s *subscriptionService) Render(ctx context.Context, format protocol.Format, userAgent string) (*protocol.Response, error) {
	res, err := s.transform(ctx, format)
	s.metrics.observe(format, err)
	if err != nil {
		return nil, err
	}

	return protocol.Assemble(protocol.AssembleInput{
		Format:            format,
		Body:              res.Payload,
		UserAgent:         userAgent,
		Upstream:          res.Header,
		LegacyPassthrough: s.legacy,
	}), nil
}

func (s *subscriptionService) transform(ctx context.Context, format protocol.Format) (*protocol.Result, error) {
	switch format {
	case protocol.FormatClash:
		payload, err := s.fetcher.Fetch(ctx, s.url)
		if err != nil {
			return nil, err
		}
		return s.clash.Transform(ctx, protocol.Input{
			Template:        s.templates.Clash(),
			SubscriptionURL: s.url,
			Body:            payload.Body,
			Header:          payload.Header,
		})
	case protocol.FormatLoon:
		return s.loon.Transform(ctx, protocol.Input{
			Template:        s.templates.Loon(),
			SubscriptionURL: s.url,
		})
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, int(format))
	}
}
