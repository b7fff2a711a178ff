package protocol

import "strings"

// Format 是支持的输出格式，闭合枚举。
type Format int

const (
	FormatClash Format = iota + 1
	FormatLoon
)

var allFormats = []Format{FormatClash, FormatLoon}

// Formats returns every supported format in listing order.
func Formats() []Format {
	out := make([]Format, len(allFormats))
	copy(out, allFormats)
	return out
}

// FormatNames 返回 "clash, loon" 形式的列表，用于 404 提示。
func FormatNames() string {
	names := make([]string, 0, len(allFormats))
	for _, f := range allFormats {
		names = append(names, f.String())
	}
	return strings.Join(names, ", ")
}

// ParseFormat resolves a path segment case-insensitively.
func ParseFormat(raw string) (Format, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, f := range allFormats {
		if f.String() == name {
			return f, true
		}
	}
	return 0, false
}

func (f Format) String() string {
	switch f {
	case FormatClash:
		return "clash"
	case FormatLoon:
		return "loon"
	default:
		return "unknown"
	}
}

// ContentType 返回格式对应的标准 Content-Type。
func (f Format) ContentType() string {
	switch f {
	case FormatClash:
		return "application/x-yaml; charset=utf-8"
	default:
		return plainTextContentType
	}
}

// NeedsFetch reports whether the format merges the upstream payload server-side.
func (f Format) NeedsFetch() bool {
	return f == FormatClash
}
