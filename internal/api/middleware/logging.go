// 文件路径: internal/api/middleware/logging.go
// 模块说明: 结构化请求日志，附带请求 ID 与慢请求告警。查询串带有访问密钥，永远不写入日志。
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// LoggingConfig 日志中间件配置
type LoggingConfig struct {
	Logger        *slog.Logger
	SlowThreshold time.Duration // 慢请求阈值，超过此时间会记录为 WARN
	SkipPaths     []string      // 跳过日志的路径（如健康检查）
}

// DefaultLoggingConfig 默认配置
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Logger:        slog.Default(),
		SlowThreshold: 2 * time.Second,
		SkipPaths:     []string{"/healthz", "/metrics"},
	}
}

// StructuredLogger 结构化日志中间件
func StructuredLogger(config LoggingConfig) func(http.Handler) http.Handler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.SlowThreshold == 0 {
		config.SlowThreshold = 2 * time.Second
	}

	skipPathMap := make(map[string]bool)
	for _, p := range config.SkipPaths {
		skipPathMap[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPathMap[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID == "" {
				requestID = "unknown"
			}

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", duration),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("bytes", ww.BytesWritten()),
			}
			if ua := r.Header.Get("User-Agent"); ua != "" {
				attrs = append(attrs, slog.String("user_agent", ua))
			}

			level := slog.LevelInfo
			msg := "request completed"

			switch {
			case status >= 500:
				level = slog.LevelError
				msg = "request failed"
			case status >= 400:
				level = slog.LevelWarn
				msg = "request error"
			case duration > config.SlowThreshold:
				level = slog.LevelWarn
				msg = "slow request"
				attrs = append(attrs, slog.Duration("slow_threshold", config.SlowThreshold))
			}

			config.Logger.LogAttrs(r.Context(), level, msg, attrs...)
		})
	}
}
