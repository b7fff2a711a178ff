// 文件路径: internal/subscription/fetcher.go
// 模块说明: 订阅拉取。固定 User-Agent 发起 GET，返回正文与完整响应头，失败统一包装为 ErrUpstreamUnavailable。
package subscription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultUserAgent = "clash-verge"
	DefaultTimeout   = 15 * time.Second
	DefaultMaxBytes  = 5 * 1024 * 1024
)

// Payload is the raw subscription response.
type Payload struct {
	Body   string
	Header http.Header
}

// Fetcher retrieves a subscription payload.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Payload, error)
}

// Options 配置 HTTPFetcher。零值字段使用默认值。
type Options struct {
	UserAgent string
	// Timeout bounds a single attempt, on top of whatever deadline ctx carries.
	Timeout  time.Duration
	MaxBytes int64
	Retry    RetryConfig
	Client   *http.Client
	Logger   *slog.Logger
	Metrics  *Metrics
}

// HTTPFetcher is the net/http Fetcher.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	maxBytes  int64
	retry     RetryConfig
	logger    *slog.Logger
	metrics   *Metrics
}

// NewHTTPFetcher 创建 HTTPFetcher。
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    opts.Client,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		maxBytes:  opts.MaxBytes,
		retry:     opts.Retry,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.maxBytes <= 0 {
		f.maxBytes = DefaultMaxBytes
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Fetch performs the retrieval. The returned header set is a copy owned by the caller.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Payload, error) {
	start := time.Now()

	var payload *Payload
	attempt := 0
	err := doWithRetry(ctx, f.retry, func(ctx context.Context) error {
		attempt++
		p, err := f.fetchOnce(ctx, rawURL)
		if err != nil {
			if attempt > 1 || f.retry.Enabled {
				f.logger.Debug("subscription fetch attempt failed", "attempt", attempt, "error", err)
			}
			return err
		}
		payload = p
		return nil
	})

	elapsed := time.Since(start)
	if err != nil {
		// doWithRetry may surface a bare ctx error when the caller went away.
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{URL: rawURL, Cause: err, Timeout: errors.Is(err, context.DeadlineExceeded)}
			errors.As(err, &fe)
		}
		f.metrics.observe(resultFor(fe), elapsed)
		return nil, err
	}
	f.metrics.observe(resultOK, elapsed)
	return payload, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) (*Payload, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: stripURL(err)}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: stripURL(err), Timeout: isTimeout(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	// Read at most maxBytes+1 to detect overflow deterministically.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Status: resp.StatusCode, Cause: err, Timeout: isTimeout(err)}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &FetchError{
			URL:    rawURL,
			Status: resp.StatusCode,
			Cause:  fmt.Errorf("%w: more than %d bytes", errBodyTooLarge, f.maxBytes),
		}
	}

	return &Payload{Body: string(body), Header: resp.Header.Clone()}, nil
}

// stripURL drops the *url.Error wrapper, whose message repeats the full subscription URL.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func resultFor(fe *FetchError) string {
	switch {
	case fe == nil:
		return resultError
	case fe.Timeout:
		return resultTimeout
	case fe.Status != 0 && fe.Cause == nil:
		return resultBadStatus
	default:
		return resultError
	}
}
