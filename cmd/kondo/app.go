package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mmcdole/kondo/internal/adapter"
	"github.com/mmcdole/kondo/internal/backend"
	"github.com/mmcdole/kondo/internal/bridge"
	"github.com/mmcdole/kondo/internal/engine"
	"github.com/mmcdole/kondo/internal/identity"
	"github.com/mmcdole/kondo/internal/metrics"
	"github.com/mmcdole/kondo/internal/notify"
	"github.com/mmcdole/kondo/internal/service"
	"github.com/mmcdole/kondo/internal/store"
	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile  string
	logLevel    string
	metricsAddr string
}

// loadConfig reads the application configuration and applies flag overrides.
// Positional roots replace the configured ones.
func loadConfig(opts *globalOptions, roots []string) (*adapter.Config, error) {
	cfg, err := adapter.LoadConfig(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if len(roots) > 0 {
		cfg.Scan.Roots = make([]string, len(roots))
		for i, r := range adapter.ExpandHome(roots) {
			abs, err := filepath.Abs(r)
			if err != nil {
				return nil, fmt.Errorf("resolving %s: %w", r, err)
			}
			cfg.Scan.Roots[i] = abs
		}
	}
	return cfg, nil
}

// app is the wired object graph behind every command.
type app struct {
	cfg    *adapter.Config
	logger *slog.Logger

	logFile  io.Closer
	store    *store.Store
	hub      *notify.Hub
	engine   *engine.Engine
	bridge   *bridge.Bridge
	backend  *backend.Local
	projects *service.ProjectService
	prefs    *service.PreferencesService
	registry *prom.Registry

	cancel context.CancelFunc
	group  *errgroup.Group
}

func newApp(cfg *adapter.Config) (*app, error) {
	logger, logFile, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger, logFile = adapter.NullLogger(), io.NopCloser(nil)
	}
	slog.SetDefault(logger)

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var registry *prom.Registry
	if cfg.Metrics.Addr != "" {
		registry = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
	}

	hub := notify.NewHub()
	eng := engine.New(logger, recorder)
	assigner := identity.NewAssigner(nil, cfg.Scan.Concurrency)

	local := backend.NewLocal(backend.Options{
		Roots: cfg.Scan.Roots,
		Scan: backend.ScanOptions{
			MaxDepth:       cfg.Scan.MaxDepth,
			FollowSymlinks: cfg.Scan.FollowSymlinks,
			Excludes:       cfg.Scan.Excludes,
			Concurrency:    cfg.Scan.Concurrency,
		},
		DryRun: cfg.Clean.DryRun,
	}, st, st, hub, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		logFile: logFile,
		store:   st,
		hub:     hub,
		engine:  eng,
		bridge:  bridge.New(hub, eng, assigner, logger, recorder),
		backend: local,
		projects: service.NewProjectService(local, eng, logger,
			service.WithAssigner(assigner),
			service.WithRecorder(recorder),
			service.WithCleanConcurrency(cfg.Clean.Concurrency),
		),
		prefs:    service.NewPreferencesService(local, eng, logger),
		registry: registry,
	}, nil
}

// start runs the engine, the notification bridge and, when configured, the
// metrics endpoint until close is called.
func (a *app) start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.group, ctx = errgroup.WithContext(ctx)

	a.group.Go(func() error { return a.engine.Run(ctx) })
	a.group.Go(func() error { return a.bridge.Run(ctx) })

	if a.registry != nil {
		srv := &http.Server{
			Addr:              a.cfg.Metrics.Addr,
			Handler:           metricsMux(a.registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		a.group.Go(func() error {
			a.logger.Info("serving metrics", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		a.group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
}

// watchConfig applies root changes from the config file to later scans.
func (a *app) watchConfig() {
	adapter.WatchConfig(func(cfg *adapter.Config, ev fsnotify.Event, err error) {
		if err != nil {
			a.logger.Warn("ignoring config change", "path", ev.Name, "error", err)
			return
		}
		a.logger.Info("configuration reloaded", "path", ev.Name, "op", ev.Op.String())
		a.backend.SetRoots(cfg.Scan.Roots)
	})
}

func (a *app) close() error {
	var errs []error
	if a.cancel != nil {
		a.cancel()
		errs = append(errs, a.group.Wait())
	}
	a.hub.Close()
	errs = append(errs, a.store.Close(), a.logFile.Close())
	return errors.Join(errs...)
}

func metricsMux(reg *prom.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	return mux
}
