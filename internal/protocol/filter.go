package protocol

import (
	"regexp"
	"strings"
)

const inlineIgnoreCase = "(?i)"

// Filter is a group membership pattern. Case sensitivity is carried by
// IgnoreCase instead of an inline flag in Pattern.
type Filter struct {
	Pattern    string
	IgnoreCase bool
}

// ParseFilter reads a template filter expression. Template filters always
// match case-insensitively, so any inline (?i) marker is dropped from the pattern.
func ParseFilter(expr string) Filter {
	return Filter{
		Pattern:    strings.ReplaceAll(expr, inlineIgnoreCase, ""),
		IgnoreCase: true,
	}
}

// Compile 编译过滤表达式。
func (f Filter) Compile() (*regexp.Regexp, error) {
	pattern := f.Pattern
	if f.IgnoreCase {
		pattern = inlineIgnoreCase + pattern
	}
	return regexp.Compile(pattern)
}

// Match returns the names matching f, in input order with duplicates kept.
func (f Filter) Match(names []string) ([]string, error) {
	re, err := f.Compile()
	if err != nil {
		return nil, err
	}
	matched := make([]string, 0, len(names))
	for _, name := range names {
		if re.MatchString(name) {
			matched = append(matched, name)
		}
	}
	return matched, nil
}
