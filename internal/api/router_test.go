package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/creamcroissant/subrelay/internal/config"
	"github.com/creamcroissant/subrelay/internal/service"
	"github.com/creamcroissant/subrelay/internal/subscription"
	"github.com/creamcroissant/subrelay/internal/support/logging"
	"github.com/creamcroissant/subrelay/internal/template"
)

const (
	testSecret   = "s3cret"
	testTemplate = `proxy-providers:
  sub:
    type: http
    url: __SUB_URL__
proxies: []
proxy-groups:
  - name: Auto
    type: url-test
    use: [sub]
  - name: HK
    type: select
    use: [sub]
    filter: "(?i)^HK"
rules:
  - MATCH,Auto
`
	testLoon     = "[Remote Proxy]\nSub = __SUB_URL__\n"
	upstreamBody = "proxies:\n  - {name: HK-1, type: ss}\n  - {name: US-1, type: ss}\n  - {name: hk-2, type: ss}\n"
	browserUA    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
)

type testEnv struct {
	router   http.Handler
	upstream *httptest.Server
	calls    *atomic.Int32
	gotUA    *atomic.Value
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T, metrics config.MetricsConfig, upstreamStatus int) *testEnv {
	t.Helper()
	calls := &atomic.Int32{}
	gotUA := &atomic.Value{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotUA.Store(r.Header.Get("User-Agent"))
		if upstreamStatus != http.StatusOK {
			w.WriteHeader(upstreamStatus)
			return
		}
		w.Header().Set("subscription-userinfo", "upload=1; download=2; total=3; expire=4")
		w.Header().Set("profile-update-interval", "24")
		w.Header().Set("content-disposition", "attachment; filename=upstream")
		_, _ = io.WriteString(w, upstreamBody)
	}))
	t.Cleanup(upstream.Close)

	reg := prometheus.NewRegistry()
	logger := logging.Discard()
	var renderMetrics *service.RenderMetrics
	var fetchMetrics *subscription.Metrics
	if metrics.Enabled {
		renderMetrics = service.NewRenderMetrics(reg, metrics.Namespace)
		fetchMetrics = subscription.NewMetrics(reg, metrics.Namespace)
	}

	svc, err := service.NewSubscriptionService(service.SubscriptionOptions{
		URL:       upstream.URL + "/api/v1/client/subscribe?token=abc",
		Templates: template.New(testTemplate, testLoon),
		Fetcher:   subscription.NewHTTPFetcher(subscription.Options{Logger: logger, Metrics: fetchMetrics}),
		Logger:    logger,
		Metrics:   renderMetrics,
	})
	require.NoError(t, err)

	router := NewRouter(logger, Services{Subscription: svc}, RouterConfig{
		SecretKey: testSecret,
		Metrics:   metrics,
		Registry:  reg,
	})
	return &testEnv{router: router, upstream: upstream, calls: calls, gotUA: gotUA, registry: reg}
}

func (e *testEnv) get(t *testing.T, target, userAgent string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_RejectsBadKeyBeforeFetch(t *testing.T) {
	env := newTestEnv(t, config.MetricsConfig{}, http.StatusOK)

	for _, target := range []string{"/clash", "/clash?key=wrong", "/loon?key=", "/surge?key=nope", "/", "/a/b"} {
		rec := env.get(t, target, "clash-verge")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.Equal(t, "Unauthorized", rec.Body.String(), target)
	}
	assert.Equal(t, int32(0), env.calls.Load())
}

func TestRouter_UnknownFormatListsFormats(t *testing.T) {
	env := newTestEnv(t, config.MetricsConfig{}, http.StatusOK)

	rec := env.get(t, "/surge?key="+testSecret, "clash-verge")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Path /surge not found, Use clash, loon", rec.Body.String())

	rec = env.get(t, "/a/b?key="+testSecret, "clash-verge")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Path /a/b not found, Use clash, loon", rec.Body.String())

	assert.Equal(t, int32(0), env.calls.Load())
}

func TestRouter_ClashForClient(t *testing.T) {
	env := newTestEnv(t, config.MetricsConfig{}, http.StatusOK)

	rec := env.get(t, "/CLASH?key="+testSecret, "clash-verge/v1.7.7")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, int32(1), env.calls.Load())
	assert.Equal(t, "clash-verge", env.gotUA.Load())
	assert.Equal(t, "application/x-yaml; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=clash", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "upload=1; download=2; total=3; expire=4", rec.Header().Get("Subscription-Userinfo"))
	assert.Equal(t, "24", rec.Header().Get("Profile-Update-Interval"))

	var out struct {
		Proxies     []map[string]any `yaml:"proxies"`
		ProxyGroups []struct {
			Name    string   `yaml:"name"`
			Proxies []string `yaml:"proxies"`
			Use     any      `yaml:"use"`
		} `yaml:"proxy-groups"`
	}
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Proxies, 3)
	require.Len(t, out.ProxyGroups, 2)
	assert.Equal(t, []string{"HK-1", "US-1", "hk-2"}, out.ProxyGroups[0].Proxies)
	assert.Equal(t, []string{"HK-1", "hk-2"}, out.ProxyGroups[1].Proxies)
	assert.Nil(t, out.ProxyGroups[0].Use)
	assert.NotContains(t, rec.Body.String(), "proxy-providers")
	assert.NotContains(t, rec.Body.String(), "token=abc")
}

func TestRouter_ClashForBrowser(t *testing.T) {
	env := newTestEnv(t, config.MetricsConfig{}, http.StatusOK)

	rec := env.get(t, "/clash?key="+testSecret, browserUA)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Values("Content-Disposition"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
}

func TestRouter_LoonDoesNotFetch(t *testing.T) {
	env := newTestEnv(t, config.MetricsConfig{}, http.StatusOK)

	rec := env.get(t, "/loon?key="+testSecret, "Loon/3.2.1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(0), env.calls.Load())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=loon", rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "[Remote Proxy]\nSub = "+env.upstream.URL))
}

func TestRouter_UpstreamFailureIs502(t *testing.T) {
	env := newTestEnv(t, config.MetricsConfig{}, http.StatusServiceUnavailable)

	rec := env.get(t, "/clash?key="+testSecret, "clash-verge")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Bad Gateway", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, int32(1), env.calls.Load())
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, config.MetricsConfig{}, http.StatusOK)

	req := httptest.NewRequest(http.MethodPost, "/clash", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/clash?key="+testSecret, nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, int32(0), env.calls.Load())
}

func TestRouter_Healthz(t *testing.T) {
	env := newTestEnv(t, config.MetricsConfig{}, http.StatusOK)

	rec := env.get(t, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	// Metrics are disabled, so /metrics is just an unknown path behind the key.
	rec = env.get(t, "/metrics", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	metricsCfg := config.MetricsConfig{Enabled: true, Namespace: "subrelay", Subsystem: "http", Token: "metrics-token"}
	env := newTestEnv(t, metricsCfg, http.StatusOK)

	rec := env.get(t, "/clash?key="+testSecret, "clash-verge")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.get(t, "/metrics", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer metrics-token")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `subrelay_http_requests_total{method="GET",route="/{format}",status="200"} 1`)
	assert.Contains(t, body, `subrelay_render_total{format="clash",result="ok"} 1`)
	assert.Contains(t, body, `subrelay_subscription_fetch_total{result="ok"} 1`)
	assert.NotContains(t, body, testSecret)
}
