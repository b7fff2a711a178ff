package subscription

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig 控制订阅拉取的重试策略。Enabled 为 false 时只请求一次。
type RetryConfig struct {
	Enabled         bool
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// normalizeRetryConfig 填补缺省值。
func normalizeRetryConfig(cfg RetryConfig) RetryConfig {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	return cfg
}

// doWithRetry runs fn once, or with exponential backoff when retry is enabled.
// It stops on the first non-retryable error and whenever ctx is done.
func doWithRetry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if !cfg.Enabled {
		return fn(ctx)
	}
	cfg = normalizeRetryConfig(cfg)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.InitialInterval
	policy.MaxInterval = cfg.MaxInterval
	policy.Multiplier = cfg.Multiplier
	policy.MaxElapsedTime = 0
	policy.Reset()

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempts >= cfg.MaxRetries {
			return err
		}
		attempts++

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// isRetryable 判断一次失败是否值得重试：网络错误、超时、5xx 与 429 可以重试。
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	if errors.Is(fe.Cause, errBodyTooLarge) {
		return false
	}
	if fe.Status == 0 {
		return true
	}
	return fe.Status >= http.StatusInternalServerError || fe.Status == http.StatusTooManyRequests
}
