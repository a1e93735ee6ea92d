// Package main provides the CLI entrypoint for tales-t.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/justyntemme/tales-t/internal/api"
	"github.com/justyntemme/tales-t/internal/config"
	"github.com/justyntemme/tales-t/internal/nav"
	"github.com/justyntemme/tales-t/internal/progress"
	"github.com/justyntemme/tales-t/internal/reader"
	"github.com/justyntemme/tales-t/internal/ui"
)

var (
	serverURL string
	location  string
	debug     bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tales-t",
		Short:         "Terminal reader for generated stories",
		Long:          "tales-t reads stories page by page, asks the server to write the next page when the chapter runs out, and keeps reading progress in sync.",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runReader,
	}

	rootCmd.PersistentFlags().StringVarP(&serverURL, "url", "s", "", "server URL (saved to config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")
	rootCmd.Flags().StringVarP(&location, "location", "l", "", "location to open, e.g. story=1&chapter=2&page=1")

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newStoriesCmd())
	rootCmd.AddCommand(newProgressCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newPingCmd())

	return rootCmd
}

// env bundles what every command needs
type env struct {
	cfg     *config.Config
	client  *api.Client
	logger  *slog.Logger
	closeFn func()
}

func (e *env) Close() {
	if e.closeFn != nil {
		e.closeFn()
	}
}

// setup loads config, opens the log file and builds the API client
func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if serverURL != "" {
		cfg.ServerURL = serverURL
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save server URL to config: %v\n", err)
		}
	}

	logger, closeLog := openLogger(cfg)

	opts := []api.Option{
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(logger),
	}
	if cfg.APIPrefix != "" {
		opts = append(opts, api.WithAPIPrefix(cfg.APIPrefix))
	}
	client, err := api.NewClient(cfg.ServerURL, opts...)
	if err != nil {
		closeLog()
		return nil, err
	}
	client.SetCookies(cfg.SessionID, cfg.CSRFToken)

	return &env{cfg: cfg, client: client, logger: logger, closeFn: closeLog}, nil
}

// openLogger writes logs next to the config file so they never reach the
// terminal the TUI draws on
func openLogger(cfg *config.Config) (*slog.Logger, func()) {
	level := cfg.SlogLevel()
	if debug {
		level = slog.LevelDebug
	}

	var out io.Writer = io.Discard
	closeFn := func() {}
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath()), 0700); err == nil {
		if f, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err == nil {
			out = f
			closeFn = func() { _ = f.Close() }
		}
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", "tales-t"))
	slog.SetDefault(logger)
	return logger, closeFn
}

func runReader(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	start := e.cfg.LastLocation
	if cmd.Flags().Changed("location") {
		start = location
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	tracker := progress.New(e.client,
		progress.WithLogger(e.logger),
		progress.WithRate(rate.Limit(e.cfg.ProgressRate), e.cfg.ProgressBurst),
		progress.WithWriteTimeout(e.cfg.RequestTimeout),
	)
	tracker.Start(ctx)
	defer tracker.Close()

	state := nav.New(start)
	ctrl := reader.New(e.client, tracker, state, reader.WithLogger(e.logger))
	app := ui.NewApp(e.cfg, e.client, ctrl, ui.WithContext(ctx), ui.WithLogger(e.logger))

	e.logger.Info("starting reader",
		slog.String("server", e.client.BaseURL()),
		slog.String("location", state.Location()))

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := program.Run()
	if err := app.Close(); err != nil {
		e.logger.Warn("could not save location", slog.Any("error", err))
	}
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}
