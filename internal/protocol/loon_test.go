package protocol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/subrelay/internal/support/logging"
)

func TestLoon_ReplacesPlaceholder(t *testing.T) {
	tr := NewLoonTransformer("__SUB__", logging.Discard())
	res, err := tr.Transform(context.Background(), Input{
		Template:        "sub-url: __SUB__",
		SubscriptionURL: "https://example.com/sub",
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-url: https://example.com/sub", string(res.Payload))
	assert.Nil(t, res.Header)
}

func TestLoon_OnlyFirstOccurrence(t *testing.T) {
	tr := NewLoonTransformer("", logging.Discard())
	assert.Equal(t, DefaultPlaceholder, tr.Placeholder())

	res, err := tr.Transform(context.Background(), Input{
		Template:        "a = __SUB_URL__\nb = __SUB_URL__",
		SubscriptionURL: "https://example.com/sub",
	})
	require.NoError(t, err)
	assert.Equal(t, "a = https://example.com/sub\nb = __SUB_URL__", string(res.Payload))
}

func TestLoon_MissingPlaceholderReturnsTemplate(t *testing.T) {
	tr := NewLoonTransformer("", logging.Discard())
	res, err := tr.Transform(context.Background(), Input{
		Template:        "[General]\nip-mode = dual\n",
		SubscriptionURL: "https://example.com/sub",
	})
	require.NoError(t, err)
	assert.Equal(t, "[General]\nip-mode = dual\n", string(res.Payload))
}
