// Package app wires the language handlers into a weblsp server: the
// messages shown to the user, routing by file extension and the settings
// layers.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gossip-lsp/weblsp"
	"github.com/gossip-lsp/weblsp/jsonrpc"
	"github.com/gossip-lsp/weblsp/languages"
	"github.com/gossip-lsp/weblsp/middleware"
	"github.com/gossip-lsp/weblsp/protocol"
)

const (
	Name = "weblsp"

	// StatsCommand reports request counters through workspace/executeCommand.
	StatsCommand = "weblsp.stats"

	// DefaultConfigFile is read from the workspace root.
	DefaultConfigFile = ".weblsp.toml"

	configRegistrationID = "weblsp.configuration"
	pullTimeout          = 10 * time.Second
)

// TriggerCharacters make the client ask for completion as they are typed.
var TriggerCharacters = []string{".", "<", "\"", "'", "/"}

type Options struct {
	// Settings is the base layer, normally derived from CLI flags.
	Settings   Settings
	ConfigFile string
	Version    string
	Logger     *slog.Logger
	// Level, when set, follows the log_level setting.
	Level      *slog.LevelVar
}

// App is the multi-language server.
type App struct {
	server  *weblsp.Server
	router  *languages.Router
	metrics *middleware.Metrics
	logger  *slog.Logger
	level   *slog.LevelVar
}

func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ConfigFile == "" {
		opts.ConfigFile = DefaultConfigFile
	}
	if opts.Level != nil {
		opts.Level.Set(opts.Settings.Level())
	}

	a := &App{
		router:  languages.NewRouter(opts.Settings.Languages()),
		metrics: middleware.NewMetrics(),
		logger:  logger,
		level:   opts.Level,
	}
	a.server = weblsp.NewServer(Name, opts.Version,
		weblsp.WithLogger(logger),
		weblsp.WithMiddleware(
			middleware.Tracing(),
			middleware.Logging(logger),
			middleware.Telemetry(a.metrics),
			middleware.Recovery(logger),
		),
		weblsp.WithTriggerCharacters(TriggerCharacters...),
		weblsp.WithConfig(opts.ConfigFile, opts.Settings),
	)

	a.server.OnInitialize(a.initialize)
	a.server.OnInitialized(a.initialized)
	a.server.OnDidOpen(a.didOpen)
	a.server.OnDidChange(a.didChange)
	a.server.OnDidClose(a.didClose)
	a.server.OnDidChangeConfiguration(a.didChangeConfiguration)
	a.server.OnCompletion(a.completion)
	a.server.OnExecuteCommand(a.executeCommand, StatsCommand)
	weblsp.OnConfigChange(a.server, a.configChanged)
	return a
}

func (a *App) Server() *weblsp.Server { return a.server }

// Serve runs the server until the client exits. See weblsp.Serve.
func (a *App) Serve(ctx context.Context, opts ...weblsp.ServeOption) error {
	return weblsp.Serve(ctx, a.server, opts...)
}

// session adapts a handler context to languages.Session.
type session struct {
	ctx    *weblsp.Context
	notify bool
}

func (a *App) session(ctx *weblsp.Context) session {
	notify := true
	if cfg := weblsp.Config[Settings](ctx); cfg != nil {
		notify = cfg.Notifications
	}
	return session{ctx: ctx, notify: notify}
}

// Notify always writes message to the client's output channel and pops it
// up only when notifications are enabled.
func (s session) Notify(typ protocol.MessageType, message string) {
	if err := s.ctx.Client.LogMessage(s.ctx, typ, message); err != nil {
		s.ctx.Logger().Warn("logging message", "message", message, "error", err)
	}
	if !s.notify {
		return
	}
	if err := s.ctx.Client.ShowMessage(s.ctx, typ, message); err != nil {
		s.ctx.Logger().Warn("showing message", "message", message, "error", err)
	}
}

func (s session) Logger() *slog.Logger { return s.ctx.Logger() }

func (a *App) initialize(ctx *weblsp.Context, _ *protocol.InitializeParams) error {
	sess := a.session(ctx)
	sess.Notify(protocol.Info, "Server initializing...")
	sess.Notify(protocol.Info, "Enabled languages: "+strings.Join(a.router.Enabled().DisplayNames(), ", "))
	return nil
}

// initialized subscribes to settings changes and pulls the current settings
// when the client supports it.
func (a *App) initialized(ctx *weblsp.Context, _ *protocol.InitializedParams) error {
	ws := ctx.ClientCapabilities().Workspace
	if ws == nil {
		return nil
	}
	register := ws.DidChangeConfiguration != nil && ws.DidChangeConfiguration.DynamicRegistration
	pull := ws.Configuration
	if !register && !pull {
		return nil
	}

	// Requests to the client cannot be made from the read loop.
	go func() {
		if register {
			err := ctx.Client.RegisterCapability(ctx, &protocol.RegistrationParams{
				Registrations: []protocol.Registration{{
					ID:              configRegistrationID,
					Method:          protocol.MethodDidChangeConfiguration,
					RegisterOptions: map[string]string{"section": ClientSection},
				}},
			})
			if err != nil {
				ctx.Logger().Warn("registering for settings changes", "error", err)
			}
		}
		if pull {
			a.pullSettings(ctx)
		}
	}()
	return nil
}

// didChangeConfiguration pulls settings when the client only signals that
// they changed. Pushed settings are applied by the server before this runs.
func (a *App) didChangeConfiguration(ctx *weblsp.Context, p *protocol.DidChangeConfigurationParams) error {
	if len(p.Settings) > 0 && string(p.Settings) != "null" {
		return nil
	}
	if ws := ctx.ClientCapabilities().Workspace; ws != nil && ws.Configuration {
		go a.pullSettings(ctx)
	}
	return nil
}

// pullSettings asks the client for the multiLanguageServer section and
// layers it over the file settings.
func (a *App) pullSettings(ctx *weblsp.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, pullTimeout)
	defer cancel()

	items, err := ctx.Client.Configuration(reqCtx, &protocol.ConfigurationParams{
		Items: []protocol.ConfigurationItem{{Section: ClientSection}},
	})
	if err != nil {
		ctx.Logger().Warn("pulling settings", "error", err)
		return
	}
	if len(items) == 0 {
		return
	}
	if err := a.server.UpdateClientSettings(items[0]); err != nil {
		ctx.Logger().Warn("ignoring pulled settings", "error", err)
	}
}

func (a *App) didOpen(ctx *weblsp.Context, p *protocol.DidOpenTextDocumentParams) error {
	uri := p.TextDocument.URI
	sess := a.session(ctx)

	h := a.router.Lookup(uri)
	if h == nil {
		ext := languages.Extension(uri)
		if l, ok := languages.LanguageForExtension(ext); ok && !a.router.Enabled().Has(l) {
			sess.Notify(protocol.Warning, fmt.Sprintf("Support for %s is disabled in settings", ext))
		} else {
			sess.Notify(protocol.Warning, fmt.Sprintf("No handler found for %s", uri))
		}
		return nil
	}

	sess.Notify(protocol.Info, fmt.Sprintf("Processing %s with %s", uri, h.Name()))
	return h.OnOpen(sess, ctx.Documents.Get(uri))
}

func (a *App) didClose(ctx *weblsp.Context, p *protocol.DidCloseTextDocumentParams) error {
	if h := a.router.Lookup(p.TextDocument.URI); h != nil {
		ctx.Logger().Debug("document closed", "uri", p.TextDocument.URI, "language", h.Language())
	}
	return nil
}

func (a *App) didChange(ctx *weblsp.Context, p *protocol.DidChangeTextDocumentParams) error {
	h := a.router.Lookup(p.TextDocument.URI)
	if h == nil {
		return nil
	}
	return h.OnChange(a.session(ctx), ctx.Documents.Get(p.TextDocument.URI))
}

func (a *App) completion(ctx *weblsp.Context, p *protocol.CompletionParams) (*protocol.CompletionList, error) {
	uri := p.TextDocument.URI
	h := a.router.Lookup(uri)
	if h == nil {
		return languages.EmptyList(), nil
	}
	return h.Complete(a.session(ctx), languages.NewRequest(ctx.Documents.Get(uri), p.Position))
}

// Stats is the result of StatsCommand.
type Stats struct {
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	Languages []string                 `json:"languages"`
	Documents int                      `json:"documents"`
	Methods   []middleware.MethodStats `json:"methods"`
}

func (a *App) executeCommand(ctx *weblsp.Context, p *protocol.ExecuteCommandParams) (interface{}, error) {
	switch p.Command {
	case StatsCommand:
		return &Stats{
			Version:   ctx.ServerInfo().Version,
			Uptime:    a.metrics.Uptime().Round(time.Second).String(),
			Languages: a.router.Enabled().DisplayNames(),
			Documents: len(ctx.Documents.URIs()),
			Methods:   a.metrics.Snapshot(),
		}, nil
	}
	return nil, jsonrpc.Errorf(jsonrpc.CodeInvalidParams, "unknown command %q", p.Command)
}

// configChanged applies a new effective configuration. Notifications are
// read per message and need no action here.
func (a *App) configChanged(ctx *weblsp.Context, _, cur *Settings) {
	a.router.Reconfigure(cur.Languages())
	if a.level != nil {
		a.level.Set(cur.Level())
	}
	ctx.Logger().Info("settings changed",
		"languages", strings.Join(a.router.Enabled().DisplayNames(), ","),
		"notifications", cur.Notifications,
		"logLevel", cur.Level().String(),
	)
}
