// 文件路径: internal/api/handler/subscribe.go
// 模块说明: GET /{format}，解析格式后交给订阅服务，错误按类型映射为 HTTP 状态码。
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/subrelay/internal/protocol"
	"github.com/creamcroissant/subrelay/internal/service"
	"github.com/creamcroissant/subrelay/internal/subscription"
)

// SubscribeHandler serves rendered client configs.
type SubscribeHandler struct {
	Subscription service.SubscriptionService
	logger       *slog.Logger
}

func NewSubscribeHandler(svc service.SubscriptionService, logger *slog.Logger) *SubscribeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscribeHandler{Subscription: svc, logger: logger}
}

// Render handles GET /{format}.
func (h *SubscribeHandler) Render(w http.ResponseWriter, r *http.Request) {
	format, ok := protocol.ParseFormat(chi.URLParam(r, "format"))
	if !ok {
		h.NotFound(w, r)
		return
	}
	if h.Subscription == nil {
		respondText(w, http.StatusServiceUnavailable, "Service Unavailable")
		return
	}

	resp, err := h.Subscription.Render(r.Context(), format, r.UserAgent())
	if err != nil {
		status := statusFor(err)
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			h.logger.DebugContext(r.Context(), "client went away during render", "format", format.String())
		} else {
			h.logger.ErrorContext(r.Context(), "render subscription", "format", format.String(), "status", status, "error", err)
		}
		respondText(w, status, http.StatusText(status))
		return
	}

	for name, values := range resp.Header {
		w.Header()[name] = values
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Body)
}

// NotFound lists the supported formats, e.g. "Path /surge not found, Use clash, loon".
func (h *SubscribeHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondText(w, http.StatusNotFound, fmt.Sprintf("Path %s not found, Use %s", r.URL.Path, protocol.FormatNames()))
}

// MethodNotAllowed 处理非 GET 请求。
func (h *SubscribeHandler) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", http.MethodGet)
	respondText(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, subscription.ErrUpstreamUnavailable),
		errors.Is(err, protocol.ErrSubscriptionMalformed):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrUnknownFormat):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
