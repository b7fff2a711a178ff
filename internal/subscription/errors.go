package subscription

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrUpstreamUnavailable 表示订阅源无法完成拉取（网络错误、超时、非 2xx、响应过大）。
var ErrUpstreamUnavailable = errors.New("subscription: upstream unavailable / 订阅源不可用")

var errBodyTooLarge = errors.New("response body too large")

// FetchError describes one failed retrieval. Status is zero when no response arrived.
type FetchError struct {
	URL     string
	Status  int
	Timeout bool
	Cause   error
}

// Error never prints the full URL: its path and query usually carry the provider token.
func (e *FetchError) Error() string {
	target := redactURL(e.URL)
	switch {
	case e.Status != 0 && e.Cause == nil:
		return fmt.Sprintf("%s: %s returned status %d", ErrUpstreamUnavailable, target, e.Status)
	case e.Timeout:
		return fmt.Sprintf("%s: %s timed out: %v", ErrUpstreamUnavailable, target, e.Cause)
	default:
		return fmt.Sprintf("%s: %s: %v", ErrUpstreamUnavailable, target, e.Cause)
	}
}

// Unwrap 返回底层原因。
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Is 让 errors.Is(err, ErrUpstreamUnavailable) 成立。
func (e *FetchError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "upstream"
	}
	return u.Scheme + "://" + u.Host
}
