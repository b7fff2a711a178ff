package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"clash", FormatClash, true},
		{"CLASH", FormatClash, true},
		{"Loon", FormatLoon, true},
		{"surge", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseFormat(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []Format{FormatClash, FormatLoon}, Formats())
	assert.Equal(t, "clash, loon", FormatNames())
	assert.True(t, FormatClash.NeedsFetch())
	assert.False(t, FormatLoon.NeedsFetch())
	assert.Equal(t, "unknown", Format(0).String())

	// Callers cannot mutate the registry.
	f := Formats()
	f[0] = FormatLoon
	assert.Equal(t, FormatClash, Formats()[0])
}
