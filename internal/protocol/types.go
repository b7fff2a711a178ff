// 文件路径: internal/protocol/types.go
// 模块说明: 转换器的输入输出类型。
package protocol

import (
	"context"
	"net/http"
)

// Input carries everything a transformer needs for one request.
type Input struct {
	// Template is the raw template text and is never modified.
	Template        string
	SubscriptionURL string
	// Body and Header come from the upstream fetch. Both are empty for formats
	// that let the client retrieve the subscription itself.
	Body   string
	Header http.Header
}

// Result captures the serialized config emitted by a transformer.
type Result struct {
	Payload []byte
	// Header is the upstream header set kept for passthrough, nil when no fetch happened.
	Header http.Header
}

// Transformer defines the contract implemented by each format renderer.
type Transformer interface {
	Transform(ctx context.Context, in Input) (*Result, error)
}
