package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/kondo/internal/adapter"
	"github.com/mmcdole/kondo/internal/engine"
	"github.com/mmcdole/kondo/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "kondo [roots...]",
		Short:         "Find and clean build artifacts of software projects",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return runScan(cmd, opts, args, scanOptions{})
			}
			return runTUI(cmd.Context(), opts, args)
		},
	}
	cmd.SetVersionTemplate("kondo {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to config.yaml")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
	cmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	cmd.AddCommand(
		newScanCmd(opts),
		newCleanCmd(opts),
		newConfigCmd(opts),
		newHistoryCmd(opts),
	)
	return cmd
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runTUI(parent context.Context, opts *globalOptions, roots []string) error {
	cfg, err := loadConfig(opts, roots)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(parent)
	defer stop()
	a.start(ctx)
	defer a.close()
	a.watchConfig()

	a.logger.Info("starting kondo", "version", Version, "roots", len(cfg.Scan.Roots))

	observer := engine.NewChannelObserver()
	if err := a.engine.Observe(ctx, observer); err != nil {
		return fmt.Errorf("observing engine: %w", err)
	}

	model := tui.NewModel(a.projects, a.prefs, observer.C())
	model.Adder = a.backend
	model.Opener = adapter.NewLauncher(cfg.Opener, a.logger)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	a.logger.Info("starting TUI")
	if _, err := p.Run(); err != nil {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	a.logger.Info("shutting down")
	return nil
}
