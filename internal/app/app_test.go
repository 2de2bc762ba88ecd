package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gossip-lsp/weblsp/jsonrpc"
	"github.com/gossip-lsp/weblsp/protocol"
	"github.com/gossip-lsp/weblsp/weblsptest"
)

// syncBuffer collects log output written from server goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newApp(t *testing.T, settings Settings) *App {
	a, _ := newAppWithLogs(t, settings)
	return a
}

func newAppWithLogs(t *testing.T, settings Settings) (*App, *syncBuffer) {
	t.Helper()
	logs := &syncBuffer{}
	t.Cleanup(func() {
		if t.Failed() {
			t.Log(logs.String())
		}
	})
	return New(Options{
		Settings: settings,
		Version:  "test",
		Logger:   slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		// Keep config reads away from the test's working directory.
		ConfigFile: filepath.Join(t.TempDir(), DefaultConfigFile),
	}), logs
}

func emptyCompletion(c *weblsptest.Client, uri string) func() bool {
	return func() bool {
		list, err := c.Completion(uri, weblsptest.Pos(0, 0))
		return err == nil && len(list.Items) == 0
	}
}

func info(msg string) protocol.ShowMessageParams {
	return protocol.ShowMessageParams{Type: protocol.Info, Message: msg}
}

func warning(msg string) protocol.ShowMessageParams {
	return protocol.ShowMessageParams{Type: protocol.Warning, Message: msg}
}

func TestInitializeMessages(t *testing.T) {
	c := weblsptest.NewClient(t, newApp(t, DefaultSettings()).Server(), weblsptest.WithoutInitialize())
	res := c.Initialize(&protocol.InitializeParams{})

	assert.Equal(t, []protocol.ShowMessageParams{
		info("Server initializing..."),
		info("Enabled languages: HTML, CSS, JSON"),
	}, c.Messages())

	caps := res.Capabilities
	require.NotNil(t, caps.CompletionProvider)
	assert.Equal(t, []string{".", "<", "\"", "'", "/"}, caps.CompletionProvider.TriggerCharacters)
	assert.Equal(t, protocol.SyncIncremental, caps.TextDocumentSync.Change)
	assert.Equal(t, []string{StatsCommand}, caps.ExecuteCommandProvider.Commands)
	assert.Equal(t, Name, res.ServerInfo.Name)
}

func TestOpenRoutesByExtension(t *testing.T) {
	c := weblsptest.NewClient(t, newApp(t, DefaultSettings()).Server())
	c.ClearNotifications()

	c.Open("file:///site/style.css", "css", "body {}")
	c.Open("file:///site/INDEX.HTM", "html", "")
	c.Open("file:///site/notes.txt", "plaintext", "")
	c.Sync()

	assert.Equal(t, []protocol.ShowMessageParams{
		info("Processing file:///site/style.css with CSSLanguageFeatures"),
		info("Opened CSS document"),
		info("Processing file:///site/INDEX.HTM with HTMLLanguageFeatures"),
		info("Opened HTML document"),
		warning("No handler found for file:///site/notes.txt"),
	}, c.Messages())
}

func TestDisabledLanguage(t *testing.T) {
	settings := DefaultSettings()
	settings.HTML.Enable = false
	c := weblsptest.NewClient(t, newApp(t, settings).Server())
	weblsptest.AssertMessage(t, c.Messages(), protocol.Info, "Enabled languages: CSS, JSON")
	c.ClearNotifications()

	c.Open("file:///site/index.html", "html", "<")
	c.Open("file:///site/data.json", "json", "{}")
	c.Sync()

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, warning("Support for .html is disabled in settings"), msgs[0])
	assert.Equal(t, info("Opened JSON document"), msgs[2])

	list, err := c.Completion("file:///site/index.html", weblsptest.Pos(0, 1))
	require.NoError(t, err)
	assert.False(t, list.IsIncomplete)
	assert.Empty(t, list.Items)
}

func TestNotificationsDisabled(t *testing.T) {
	settings := DefaultSettings()
	settings.Notifications = false
	c := weblsptest.NewClient(t, newApp(t, settings).Server())

	c.Open("file:///a.css", "css", "")
	c.Open("file:///a.go", "go", "")
	list, err := c.Completion("file:///a.css", weblsptest.Pos(0, 0))
	require.NoError(t, err)

	weblsptest.AssertNoMessages(t, c.Messages())
	assert.Len(t, list.Items, 18)
}

func TestHTMLCompletionFollowsEdits(t *testing.T) {
	c := weblsptest.NewClient(t, newApp(t, DefaultSettings()).Server())
	uri := "file:///page.html"
	c.Open(uri, "html", "<body>\n\n</body>")

	list, err := c.Completion(uri, weblsptest.Pos(1, 0))
	require.NoError(t, err)
	require.Len(t, list.Items, 24)
	assert.Equal(t, protocol.CompletionKindClass, list.Items[0].Kind)
	assert.Empty(t, list.Items[0].InsertText)

	c.ChangeIncremental(uri, 2, weblsptest.Rng(1, 0, 1, 0), "  <se")
	list, err = c.Completion(uri, weblsptest.Pos(1, 5))
	require.NoError(t, err)
	require.Len(t, list.Items, 24)
	assert.Equal(t, protocol.CompletionKindSnippet, list.Items[0].Kind)
	assert.Equal(t, "div></div>", list.Items[0].InsertText)
	weblsptest.AssertCompletionContains(t, list, "section")

	// Completing an unopened document falls back to the general list.
	list, err = c.Completion("file:///other.html", weblsptest.Pos(0, 3))
	require.NoError(t, err)
	assert.Equal(t, protocol.CompletionKindClass, list.Items[0].Kind)
}

func TestJSONAndUnknownCompletion(t *testing.T) {
	c := weblsptest.NewClient(t, newApp(t, DefaultSettings()).Server())
	c.Open("file:///pkg.json", "json", "")

	list, err := c.Completion("file:///pkg.json", weblsptest.Pos(0, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"object", "array", "property"}, weblsptest.Labels(list))
	assert.Equal(t, protocol.SnippetFormat, list.Items[0].InsertTextFormat)

	list, err = c.Completion("file:///main.go", weblsptest.Pos(0, 0))
	require.NoError(t, err)
	assert.False(t, list.IsIncomplete)
	assert.Empty(t, list.Items)
}

func TestClientSettingsReconfigure(t *testing.T) {
	a := newApp(t, DefaultSettings())
	c := weblsptest.NewClient(t, a.Server(), weblsptest.WithInitializeParams(&protocol.InitializeParams{
		InitializationOptions: []byte(`{"json.enable": false}`),
	}))
	weblsptest.AssertMessage(t, c.Messages(), protocol.Info, "Enabled languages: HTML, CSS")

	list, err := c.Completion("file:///a.json", weblsptest.Pos(0, 0))
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	c.ChangeConfiguration(map[string]interface{}{
		"multiLanguageServer": map[string]interface{}{
			"json":          map[string]bool{"enable": true},
			"css":           map[string]bool{"enable": false},
			"notifications": false,
		},
	})
	c.ClearNotifications()

	list, err = c.Completion("file:///a.json", weblsptest.Pos(0, 0))
	require.NoError(t, err)
	assert.Len(t, list.Items, 3)
	list, err = c.Completion("file:///a.css", weblsptest.Pos(0, 0))
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	c.Open("file:///a.css", "css", "")
	c.Sync()
	weblsptest.AssertNoMessages(t, c.Messages())
}

func TestConfigFileInWorkspace(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultConfigFile),
		[]byte("[css]\nenable = false\n"), 0o644))

	a := New(Options{Settings: DefaultSettings(), Version: "test", Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})
	rootURI := protocol.DocumentURI(weblsptest.FileURI(root))
	c := weblsptest.NewClient(t, a.Server(), weblsptest.WithInitializeParams(&protocol.InitializeParams{RootURI: &rootURI}))

	weblsptest.AssertMessage(t, c.Messages(), protocol.Info, "Enabled languages: HTML, JSON")
	list, err := c.Completion("file:///x.css", weblsptest.Pos(0, 0))
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestStatsCommand(t *testing.T) {
	c := weblsptest.NewClient(t, newApp(t, DefaultSettings()).Server())
	c.Open("file:///a.css", "css", "")
	_, err := c.Completion("file:///a.css", weblsptest.Pos(0, 0))
	require.NoError(t, err)

	var stats Stats
	require.NoError(t, c.ExecuteCommand(StatsCommand, &stats))
	assert.Equal(t, "test", stats.Version)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, []string{"HTML", "CSS", "JSON"}, stats.Languages)

	counts := map[string]int64{}
	for _, m := range stats.Methods {
		counts[m.Method] = m.Count
	}
	assert.Equal(t, int64(1), counts[protocol.MethodCompletion])
	assert.Equal(t, int64(1), counts[protocol.MethodDidOpen])

	err = c.ExecuteCommand("weblsp.nope", nil)
	var rpcErr *jsonrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jsonrpc.CodeInvalidParams, rpcErr.Code)
}

func TestBrokenConfigFileKeepsClientSettings(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultConfigFile), []byte("[css\nenable ="), 0o644))

	a := New(Options{Settings: DefaultSettings(), Version: "test", Logger: slog.New(slog.NewTextHandler(&syncBuffer{}, nil))})
	rootURI := protocol.DocumentURI(weblsptest.FileURI(root))
	c := weblsptest.NewClient(t, a.Server(), weblsptest.WithInitializeParams(&protocol.InitializeParams{
		RootURI:               &rootURI,
		InitializationOptions: []byte(`{"json.enable": false}`),
	}))

	weblsptest.AssertMessage(t, c.Messages(), protocol.Info, "Enabled languages: HTML, CSS")
	assert.True(t, emptyCompletion(c, "file:///a.json")())

	c.ChangeConfiguration(map[string]interface{}{
		"multiLanguageServer": map[string]interface{}{"json.enable": true, "html.enable": false},
	})
	c.Sync()
	assert.True(t, emptyCompletion(c, "file:///a.html")())
	list, err := c.Completion("file:///a.json", weblsptest.Pos(0, 0))
	require.NoError(t, err)
	assert.Len(t, list.Items, 3)
}

func TestRelativeConfigFileNeedsWorkspaceRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("[css]\nenable = false\n"), 0o644))
	t.Chdir(dir)

	a := New(Options{Settings: DefaultSettings(), Version: "test", Logger: slog.New(slog.NewTextHandler(&syncBuffer{}, nil))})
	c := weblsptest.NewClient(t, a.Server())

	weblsptest.AssertMessage(t, c.Messages(), protocol.Info, "Enabled languages: HTML, CSS, JSON")
	list, err := c.Completion("file:///a.css", weblsptest.Pos(0, 0))
	require.NoError(t, err)
	assert.Len(t, list.Items, 18)
}

func TestCarriageReturnLineEndings(t *testing.T) {
	c := weblsptest.NewClient(t, newApp(t, DefaultSettings()).Server())
	c.Open("file:///old.html", "html", "<div>\r<sp")

	list, err := c.Completion("file:///old.html", weblsptest.Pos(1, 3))
	require.NoError(t, err)
	require.NotEmpty(t, list.Items)
	assert.Equal(t, protocol.CompletionKindSnippet, list.Items[0].Kind)
}

func TestMessagesMirroredToOutputChannel(t *testing.T) {
	settings := DefaultSettings()
	settings.Notifications = false
	c := weblsptest.NewClient(t, newApp(t, settings).Server())

	c.Open("file:///a.css", "css", "")
	c.Sync()

	weblsptest.AssertNoMessages(t, c.Messages())
	assert.Equal(t, []protocol.LogMessageParams{
		{Type: protocol.Info, Message: "Server initializing..."},
		{Type: protocol.Info, Message: "Enabled languages: HTML, CSS, JSON"},
		{Type: protocol.Info, Message: "Processing file:///a.css with CSSLanguageFeatures"},
		{Type: protocol.Info, Message: "Opened CSS document"},
	}, c.LogMessages())
}

func TestSettingsPulledAfterInitialized(t *testing.T) {
	c := weblsptest.NewClient(t, newApp(t, DefaultSettings()).Server(), weblsptest.WithoutInitialize())
	c.SetConfiguration([]byte(`{"css": {"enable": false}}`))
	c.Initialize(&protocol.InitializeParams{
		Capabilities: protocol.ClientCapabilities{
			Workspace: &protocol.WorkspaceClientCapabilities{
				Configuration:          true,
				DidChangeConfiguration: &protocol.DidChangeConfigurationClientCapabilities{DynamicRegistration: true},
			},
		},
	})

	assert.Eventually(t, emptyCompletion(c, "file:///a.css"), 2*time.Second, 10*time.Millisecond)

	regs := c.Requests(protocol.MethodRegisterCapability)
	require.Len(t, regs, 1)
	var params protocol.RegistrationParams
	require.NoError(t, json.Unmarshal(regs[0].Params, &params))
	require.Len(t, params.Registrations, 1)
	assert.Equal(t, protocol.MethodDidChangeConfiguration, params.Registrations[0].Method)
	assert.Equal(t, map[string]interface{}{"section": ClientSection}, params.Registrations[0].RegisterOptions)

	pulls := c.Requests(protocol.MethodWorkspaceConfiguration)
	require.NotEmpty(t, pulls)
	assert.JSONEq(t, `{"items": [{"section": "multiLanguageServer"}]}`, string(pulls[0].Params))
}

func TestSettingsPulledOnChangeSignal(t *testing.T) {
	c := weblsptest.NewClient(t, newApp(t, DefaultSettings()).Server(), weblsptest.WithInitializeParams(&protocol.InitializeParams{
		Capabilities: protocol.ClientCapabilities{
			Workspace: &protocol.WorkspaceClientCapabilities{Configuration: true},
		},
	}))
	assert.Eventually(t, func() bool {
		return len(c.Requests(protocol.MethodWorkspaceConfiguration)) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, c.Requests(protocol.MethodRegisterCapability))

	c.SetConfiguration([]byte(`{"html": {"enable": false}}`))
	c.ChangeConfiguration(nil)

	assert.Eventually(t, emptyCompletion(c, "file:///a.html"), 2*time.Second, 10*time.Millisecond)
	list, err := c.Completion("file:///a.css", weblsptest.Pos(0, 0))
	require.NoError(t, err)
	assert.Len(t, list.Items, 18)
}

func TestCloseIsLogged(t *testing.T) {
	a, logs := newAppWithLogs(t, DefaultSettings())
	c := weblsptest.NewClient(t, a.Server())

	c.Open("file:///a.json", "json", "{}")
	c.Close("file:///a.json")
	c.Close("file:///notes.txt")
	c.Sync()

	out := logs.String()
	assert.Contains(t, out, "document opened")
	assert.Contains(t, out, "document closed")
	assert.Contains(t, out, "uri=file:///a.json language=json")
	assert.NotContains(t, out, "uri=file:///notes.txt language")
}
