package subscription

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch result label values.
const (
	resultOK        = "ok"
	resultTimeout   = "timeout"
	resultBadStatus = "bad_status"
	resultError     = "error"
)

// Metrics records upstream fetch outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration prometheus.Histogram
}

// NewMetrics registers the fetch collectors on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "subrelay"
	}
	factory := promauto.With(reg)
	return &Metrics{
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "subscription",
				Name:      "fetch_total",
				Help:      "Upstream subscription fetches by result.",
			},
			[]string{"result"},
		),
		fetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "subscription",
				Name:      "fetch_duration_seconds",
				Help:      "Upstream subscription fetch latency in seconds, retries included.",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
			},
		),
	}
}

func (m *Metrics) observe(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(result).Inc()
	m.fetchDuration.Observe(elapsed.Seconds())
}
