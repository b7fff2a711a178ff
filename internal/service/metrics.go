package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/creamcroissant/subrelay/internal/protocol"
	"github.com/creamcroissant/subrelay/internal/subscription"
)

// RenderMetrics counts render outcomes per format. A nil *RenderMetrics is a no-op.
type RenderMetrics struct {
	renderTotal *prometheus.CounterVec
}

// NewRenderMetrics registers the render counter on reg.
func NewRenderMetrics(reg prometheus.Registerer, namespace string) *RenderMetrics {
	if namespace == "" {
		namespace = "subrelay"
	}
	return &RenderMetrics{
		renderTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "render_total",
				Help:      "Config renders by format and result.",
			},
			[]string{"format", "result"},
		),
	}
}

func (m *RenderMetrics) observe(format protocol.Format, err error) {
	if m == nil {
		return
	}
	m.renderTotal.WithLabelValues(format.String(), renderResult(err)).Inc()
}

func renderResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, subscription.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, protocol.ErrSubscriptionMalformed):
		return "subscription_malformed"
	case errors.Is(err, protocol.ErrTemplateMalformed):
		return "template_malformed"
	default:
		return "error"
	}
}
