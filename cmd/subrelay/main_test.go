package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "subrelay "+Version)
	assert.Contains(t, out, "Commit: "+Commit)
}

func TestRenderLoon(t *testing.T) {
	t.Setenv("SUBRELAY_SUBSCRIPTION_URL", "https://provider.example.com/sub?token=abc")
	t.Setenv("SUBRELAY_SUBSCRIPTION_SECRET_KEY", "k")

	out, stderr, err := runRoot(t, "render", "LOON", "--headers")
	require.NoError(t, err)
	assert.Contains(t, out, "https://provider.example.com/sub?token=abc")
	assert.NotContains(t, out, "__SUB_URL__")
	assert.Contains(t, stderr, "Content-Disposition: attachment; filename=loon")
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	_, _, err := runRoot(t, "render", "surge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clash, loon")
}

func TestRenderRequiresConfig(t *testing.T) {
	t.Setenv("SUBRELAY_SUBSCRIPTION_URL", "")
	t.Setenv("SUBRELAY_SUBSCRIPTION_SECRET_KEY", "")
	t.Setenv("REAL_SUB_URL", "")
	t.Setenv("SECRET_KEY", "")

	_, _, err := runRoot(t, "render", "loon")
	require.Error(t, err)
}
