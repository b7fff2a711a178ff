package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Config 汇总应用的全部配置。
type Config struct {
	HTTP         HTTPConfig         `mapstructure:"http"`
	Log          LogConfig          `mapstructure:"log"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Templates    TemplatesConfig    `mapstructure:"templates"`
}

// HTTPConfig 定义 HTTP 服务配置。
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig 定义日志配置。
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	Environment string `mapstructure:"environment"`
}

// MetricsConfig 定义 Prometheus 指标配置。
type MetricsConfig struct {
	Enabled   bool      `mapstructure:"enabled"`
	Namespace string    `mapstructure:"namespace"`
	Subsystem string    `mapstructure:"subsystem"`
	Token     string    `mapstructure:"token"`
	Buckets   []float64 `mapstructure:"buckets"`
}

// SubscriptionConfig describes the single upstream subscription this service fronts.
type SubscriptionConfig struct {
	URL       string `mapstructure:"url"`
	SecretKey string `mapstructure:"secret_key"`
	UserAgent string `mapstructure:"user_agent"`
	// Timeout bounds one outbound retrieval.
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxBytes int64         `mapstructure:"max_bytes"`
	// LegacyPassthrough also forwards the upstream content-disposition header.
	LegacyPassthrough bool        `mapstructure:"legacy_passthrough"`
	Retry             RetryConfig `mapstructure:"retry"`
}

// RetryConfig 控制上游拉取的重试策略，默认关闭。
type RetryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// TemplatesConfig 定义模板目录与占位符。
type TemplatesConfig struct {
	Dir         string `mapstructure:"dir"`
	Placeholder string `mapstructure:"placeholder"`
}

var (
	ErrMissingSubscriptionURL = errors.New("config: subscription.url is required / 缺少订阅地址")
	ErrMissingSecretKey       = errors.New("config: subscription.secret_key is required / 缺少访问密钥")
)

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	raw := strings.TrimSpace(c.Subscription.URL)
	if raw == "" {
		return ErrMissingSubscriptionURL
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		// The URL itself is not echoed: it carries the provider token.
		return errors.New("config: subscription.url must be an absolute http(s) URL / 订阅地址格式错误")
	}
	if c.Subscription.SecretKey == "" {
		return ErrMissingSecretKey
	}
	if c.Subscription.Timeout <= 0 {
		return fmt.Errorf("config: subscription.timeout must be positive, got %s", c.Subscription.Timeout)
	}
	if c.Subscription.MaxBytes <= 0 {
		return fmt.Errorf("config: subscription.max_bytes must be positive, got %d", c.Subscription.MaxBytes)
	}
	return nil
}

func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
