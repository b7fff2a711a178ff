// 文件路径: internal/protocol/loon.go
// 模块说明: Loon 模板只做占位符替换，订阅由客户端自行拉取。
package protocol

import (
	"context"
	"log/slog"
	"strings"
)

// DefaultPlaceholder is the token replaced by the subscription URL.
const DefaultPlaceholder = "__SUB_URL__"

// LoonTransformer substitutes the subscription URL into a flat template.
type LoonTransformer struct {
	placeholder string
	logger      *slog.Logger
}

// NewLoonTransformer 创建 Loon 转换器，placeholder 为空时使用 DefaultPlaceholder。
func NewLoonTransformer(placeholder string, logger *slog.Logger) *LoonTransformer {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LoonTransformer{placeholder: placeholder, logger: logger}
}

// Placeholder 返回当前占位符。
func (t *LoonTransformer) Placeholder() string { return t.placeholder }

// Transform replaces the first placeholder occurrence. A template without the
// placeholder is returned unchanged.
func (t *LoonTransformer) Transform(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.Contains(in.Template, t.placeholder) {
		t.logger.DebugContext(ctx, "placeholder not found in template, returning it unchanged", "placeholder", t.placeholder)
		return &Result{Payload: []byte(in.Template)}, nil
	}
	out := strings.Replace(in.Template, t.placeholder, in.SubscriptionURL, 1)
	return &Result{Payload: []byte(out)}, nil
}
