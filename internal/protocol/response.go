// 文件路径: internal/protocol/response.go
// 模块说明: 组装最终响应头。浏览器直接展示文本，客户端按附件下载，并透传上游的流量信息头。
package protocol

import (
	"net/http"
	"strings"
)

const (
	plainTextContentType = "text/plain; charset=utf-8"
	noCacheDirective     = "no-cache, no-store, must-revalidate"
)

var browserMarkers = []string{"mozilla", "chrome", "safari", "firefox", "edge"}

var passthroughHeaders = []string{
	"subscription-userinfo",
	"profile-update-interval",
	"profile-web-page-url",
}

const legacyDispositionHeader = "content-disposition"

// AssembleInput 为组装响应所需的全部输入。
type AssembleInput struct {
	Format    Format
	Body      []byte
	UserAgent string
	// Upstream is the header set from the subscription fetch, nil if there was none.
	Upstream http.Header
	// LegacyPassthrough also copies the upstream content-disposition for non-browser callers.
	LegacyPassthrough bool
}

// Response is the final header mapping and body handed to the HTTP layer.
type Response struct {
	Header http.Header
	Body   []byte
}

// IsBrowser reports whether the user agent looks like a web browser.
func IsBrowser(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, marker := range browserMarkers {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return false
}

// PassthroughHeaders lists the upstream header names copied onto the response.
func PassthroughHeaders(legacy bool) []string {
	names := make([]string, len(passthroughHeaders), len(passthroughHeaders)+1)
	copy(names, passthroughHeaders)
	if legacy {
		names = append(names, legacyDispositionHeader)
	}
	return names
}

// Assemble builds a fresh header set for one response.
func Assemble(in AssembleInput) *Response {
	header := make(http.Header)
	header.Set("Cache-Control", noCacheDirective)

	browser := IsBrowser(in.UserAgent)
	if browser {
		header.Set("Content-Type", plainTextContentType)
	} else {
		header.Set("Content-Type", in.Format.ContentType())
		header.Set("Content-Disposition", "attachment; filename="+in.Format.String())
	}

	for _, name := range PassthroughHeaders(in.LegacyPassthrough && !browser) {
		if value := in.Upstream.Get(name); value != "" {
			header.Set(name, value)
		}
	}

	return &Response{Header: header, Body: in.Body}
}
