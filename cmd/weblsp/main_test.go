package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gossip-lsp/weblsp/internal/app"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNoTransport(t *testing.T) {
	_, err := execute(t)
	assert.ErrorIs(t, err, errNoTransport)
	assert.EqualError(t, err, "only stdio communication is supported unless another transport is selected")
}

func TestTransportsAreExclusive(t *testing.T) {
	_, err := execute(t, "--stdio", "--tcp", ":0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "--stdio", "--log-level", "chatty")
	assert.ErrorContains(t, err, `unknown log level "chatty"`)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "weblsp "+version+"\n", out)
}

func TestFlagsToSettings(t *testing.T) {
	cmd := newRootCmd(&bytes.Buffer{})
	require.NoError(t, cmd.ParseFlags([]string{"--disable-css", "--disable-notifications", "--log-level", "debug"}))

	f := &flags{}
	f.disableCSS, _ = cmd.Flags().GetBool("disable-css")
	f.disableNotifications, _ = cmd.Flags().GetBool("disable-notifications")
	f.logLevel, _ = cmd.Flags().GetString("log-level")

	got, err := f.settings()
	require.NoError(t, err)
	want := app.DefaultSettings()
	want.CSS.Enable = false
	want.Notifications = false
	want.LogLevel = "debug"
	assert.Equal(t, want, got)

	configFile, _ := cmd.Flags().GetString("config")
	assert.Equal(t, app.DefaultConfigFile, configFile)
}

func TestServeOption(t *testing.T) {
	for _, f := range []*flags{
		{stdio: true},
		{tcp: "127.0.0.1:0"},
		{socket: "/tmp/weblsp.sock"},
		{pipe: "weblsp"},
		{ws: ":0"},
		{nodeIPC: true},
	} {
		opt, err := f.serveOption()
		require.NoError(t, err)
		assert.NotNil(t, opt)
	}
}
