// 文件路径: internal/bootstrap/server.go
// 模块说明: HTTP 服务器构建，使用偏保守的超时设置。
package bootstrap

import (
	"net/http"
	"time"

	"github.com/creamcroissant/subrelay/internal/config"
)

// NewHTTPServer constructs a baseline http.Server with conservative defaults.
// WriteTimeout leaves room for the whole upstream fetch, retries included.
func NewHTTPServer(cfg config.HTTPConfig, fetchBudget time.Duration, handler http.Handler) *http.Server {
	writeTimeout := 30 * time.Second
	if floor := fetchBudget + 10*time.Second; floor > writeTimeout {
		writeTimeout = floor
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}
}
