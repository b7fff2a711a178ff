package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads defaults, an optional config file, a .env file and environment
// variables, in increasing priority. An empty configFile searches ./config.yaml
// and /etc/subrelay/config.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/subrelay/")
	}

	v.SetEnvPrefix("SUBRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The edge worker this replaces was configured with flat SECRET_KEY / REAL_SUB_URL.
	if err := v.BindEnv("subscription.secret_key", "SUBRELAY_SUBSCRIPTION_SECRET_KEY", "SECRET_KEY"); err != nil {
		return nil, fmt.Errorf("bind env subscription.secret_key: %w", err)
	}
	if err := v.BindEnv("subscription.url", "SUBRELAY_SUBSCRIPTION_URL", "REAL_SUB_URL"); err != nil {
		return nil, fmt.Errorf("bind env subscription.url: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := loadDotEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("http.shutdown_timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.add_source", false)
	v.SetDefault("log.environment", "production")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "subrelay")
	v.SetDefault("metrics.subsystem", "http")
	v.SetDefault("metrics.token", "")

	v.SetDefault("subscription.url", "")
	v.SetDefault("subscription.secret_key", "")
	v.SetDefault("subscription.user_agent", "clash-verge")
	v.SetDefault("subscription.timeout", "15s")
	v.SetDefault("subscription.max_bytes", 5*1024*1024)
	v.SetDefault("subscription.legacy_passthrough", false)
	v.SetDefault("subscription.retry.enabled", false)
	v.SetDefault("subscription.retry.max_retries", 2)
	v.SetDefault("subscription.retry.initial_interval", "500ms")
	v.SetDefault("subscription.retry.max_interval", "5s")

	v.SetDefault("templates.dir", "")
	v.SetDefault("templates.placeholder", "__SUB_URL__")
}

// loadDotEnv maps flat names from ./.env onto the hierarchical keys. Real
// environment variables still win because AutomaticEnv is consulted on Get.
func loadDotEnv(v *viper.Viper) error {
	file := filepath.Clean(".env")
	if _, err := os.Stat(file); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat .env: %w", err)
	}

	envViper := viper.New()
	envViper.SetConfigFile(file)
	envViper.SetConfigType("env")
	if err := envViper.ReadInConfig(); err != nil {
		return fmt.Errorf("read .env: %w", err)
	}
	bindLegacyEnv(v, envViper)
	return nil
}

func bindLegacyEnv(target *viper.Viper, source *viper.Viper) {
	mappings := map[string]string{
		"SECRET_KEY":        "subscription.secret_key",
		"REAL_SUB_URL":      "subscription.url",
		"SUB_USER_AGENT":    "subscription.user_agent",
		"HTTP_ADDR":         "http.addr",
		"SHUTDOWN_TIMEOUT":  "http.shutdown_timeout",
		"LOG_LEVEL":         "log.level",
		"LOG_FORMAT":        "log.format",
		"TEMPLATES_DIR":     "templates.dir",
		"METRICS_ENABLED":   "metrics.enabled",
		"METRICS_TOKEN":     "metrics.token",
		"LEGACY_HEADERS":    "subscription.legacy_passthrough",
		"SUB_FETCH_TIMEOUT": "subscription.timeout",
	}

	for oldKey, newKey := range mappings {
		val := source.GetString(oldKey)
		if val == "" {
			continue
		}
		if _, ok := os.LookupEnv(envName(newKey)); ok {
			continue
		}
		if _, ok := os.LookupEnv(oldKey); ok {
			continue
		}
		target.Set(newKey, val)
	}
}

func envName(key string) string {
	return "SUBRELAY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
