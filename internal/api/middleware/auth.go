// 文件路径: internal/api/middleware/auth.go
// 模块说明: 访问密钥校验。key 查询参数与配置的密钥不一致时直接返回 401，不进入后续流程。
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// KeyGuard rejects requests whose ?key= does not equal secret. An empty secret rejects everything.
func KeyGuard(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secretMatches(r.URL.Query().Get("key"), secret) {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MetricsGuard validates the metrics bearer token.
func MetricsGuard(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secretMatches(extractBearer(r.Header.Get("Authorization")), token) {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func secretMatches(given, secret string) bool {
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(secret)) == 1
}

func extractBearer(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte("Unauthorized"))
}
