// Command weblsp is a language server for HTML, CSS and JSON.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gossip-lsp/weblsp"
	"github.com/gossip-lsp/weblsp/internal/app"
)

var version = "0.1.0"

var errNoTransport = errors.New("only stdio communication is supported unless another transport is selected")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "weblsp:", err)
		stop()
		os.Exit(1)
	}
}

type flags struct {
	stdio   bool
	tcp     string
	socket  string
	pipe    string
	ws      string
	nodeIPC bool

	disableHTML          bool
	disableCSS           bool
	disableJSON          bool
	disableNotifications bool
	configFile           string
	logLevel             string
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   app.Name,
		Short: "Language server for HTML, CSS and JSON",
		Long: `Language server for HTML, CSS and JSON.

Requests are read from stdin and responses written to stdout when --stdio is
given. Logs always go to stderr.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f, stderr)
		},
	}

	fl := cmd.Flags()
	fl.BoolVar(&f.stdio, "stdio", false, "communicate over stdin and stdout")
	fl.StringVar(&f.tcp, "tcp", "", "accept one client on a TCP address")
	fl.StringVar(&f.socket, "socket", "", "accept one client on a Unix domain socket")
	fl.StringVar(&f.pipe, "pipe", "", "accept one client on a named pipe")
	fl.StringVar(&f.ws, "ws", "", "accept one WebSocket client on an address")
	fl.BoolVar(&f.nodeIPC, "node-ipc", false, "communicate over the node IPC channel")
	cmd.MarkFlagsMutuallyExclusive("stdio", "tcp", "socket", "pipe", "ws", "node-ipc")

	fl.BoolVar(&f.disableHTML, "disable-html", false, "disable HTML support")
	fl.BoolVar(&f.disableCSS, "disable-css", false, "disable CSS support")
	fl.BoolVar(&f.disableJSON, "disable-json", false, "disable JSON support")
	fl.BoolVar(&f.disableNotifications, "disable-notifications", false, "do not show messages in the editor")
	fl.StringVar(&f.configFile, "config", app.DefaultConfigFile, "settings file, relative to the workspace root unless absolute")
	fl.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", app.Name, version)
		},
	})
	return cmd
}

// settings builds the base settings layer from the flags.
func (f *flags) settings() (app.Settings, error) {
	s := app.DefaultSettings()
	s.HTML.Enable = !f.disableHTML
	s.CSS.Enable = !f.disableCSS
	s.JSON.Enable = !f.disableJSON
	s.Notifications = !f.disableNotifications
	s.LogLevel = f.logLevel
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (f *flags) serveOption() (weblsp.ServeOption, error) {
	switch {
	case f.stdio:
		return weblsp.WithStdio(), nil
	case f.tcp != "":
		return weblsp.WithTCP(f.tcp), nil
	case f.socket != "":
		return weblsp.WithSocket(f.socket), nil
	case f.pipe != "":
		return weblsp.WithPipe(f.pipe), nil
	case f.ws != "":
		return weblsp.WithWebSocket(f.ws), nil
	case f.nodeIPC:
		return weblsp.WithNodeIPC(), nil
	}
	return nil, errNoTransport
}

func run(ctx context.Context, f *flags, stderr io.Writer) error {
	serveOpt, err := f.serveOption()
	if err != nil {
		return err
	}
	settings, err := f.settings()
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	a := app.New(app.Options{
		Settings:   settings,
		ConfigFile: f.configFile,
		Version:    version,
		Logger:     logger,
		Level:      level,
	})

	err = a.Serve(ctx, serveOpt)
	switch {
	case errors.Is(err, weblsp.ErrExit), errors.Is(err, context.Canceled):
		logger.Info("server stopped")
		return nil
	case errors.Is(err, weblsp.ErrExitWithoutShutdown):
		return fmt.Errorf("exit without shutdown")
	}
	return err
}
