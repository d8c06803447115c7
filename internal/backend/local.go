// Package backend is the local filesystem implementation of domain.Backend.
//
// Paths handed to clients are localised: the user's home directory prefix is
// replaced with "~". Paths coming back in are expanded again before use.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/notify"
	"github.com/mmcdole/kondo/internal/store"
)

// HistoryRecorder keeps a record of successful cleans.
type HistoryRecorder interface {
	AppendHistory(rec store.CleanRecord) error
}

// Options configures a Local backend.
type Options struct {
	Roots  []string
	Scan   ScanOptions
	DryRun bool
	Home   string // defaults to the user's home directory
}

// Local scans and cleans projects on this machine.
type Local struct {
	mu        sync.RWMutex
	roots     []string
	dryRun    bool
	home      string
	scanner   *Scanner
	configs   domain.ConfigStore
	history   HistoryRecorder
	publisher notify.Publisher
	logger    *slog.Logger

	// removeAll is replaced in tests
	removeAll func(string) error
}

var _ domain.Backend = (*Local)(nil)

// NewLocal creates a local backend. history and publisher may be nil.
func NewLocal(opts Options, configs domain.ConfigStore, history HistoryRecorder, publisher notify.Publisher, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	home := opts.Home
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return &Local{
		roots:     opts.Roots,
		dryRun:    opts.DryRun,
		home:      home,
		scanner:   NewScanner(opts.Scan, logger),
		configs:   configs,
		history:   history,
		publisher: publisher,
		logger:    logger,
		removeAll: os.RemoveAll,
	}
}

// Discover scans the configured roots.
func (l *Local) Discover(ctx context.Context) (domain.DiscoverResult, error) {
	l.mu.RLock()
	roots := l.roots
	l.mu.RUnlock()
	return l.discover(ctx, roots)
}

// SetRoots replaces the roots used by later Discover calls.
func (l *Local) SetRoots(roots []string) {
	l.mu.Lock()
	l.roots = append([]string(nil), roots...)
	l.mu.Unlock()
}

func (l *Local) discover(ctx context.Context, roots []string) (domain.DiscoverResult, error) {
	start := time.Now()
	expanded := make([]string, len(roots))
	for i, r := range roots {
		expanded[i] = l.expand(r)
	}

	raw, err := l.scanner.Scan(ctx, expanded)
	if err != nil {
		return domain.DiscoverResult{}, err
	}

	result := domain.DiscoverResult{
		Projects:    make([]domain.RawProject, len(raw)),
		SearchPaths: make([]string, len(expanded)),
	}
	for i, p := range raw {
		p.Path = l.localise(p.Path)
		result.Projects[i] = p
	}
	for i, r := range expanded {
		result.SearchPaths[i] = l.localise(r)
	}

	l.logger.Info("discovered projects",
		"roots", len(roots), "projects", len(raw), "elapsed", time.Since(start))
	return result, nil
}

// Clean removes the artifact directories of project. With dry-run enabled
// nothing is removed.
func (l *Local) Clean(ctx context.Context, project domain.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := l.expand(project.Path)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", project.Path)
	}

	targets := artifactDirs(project)
	if len(targets) == 0 {
		return fmt.Errorf("unknown project type %q", project.ProjectType)
	}

	var errs []error
	for _, name := range targets {
		full := filepath.Join(dir, name)
		if _, err := os.Lstat(full); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if l.dryRun {
			l.logger.Info("dry-run: would remove", "path", full)
			continue
		}
		if err := l.removeAll(full); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		l.logger.Debug("removed artifact directory", "path", full)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if l.dryRun || l.history == nil {
		return nil
	}
	rec := store.CleanRecord{Path: project.Path, ProjectType: project.ProjectType, Freed: project.Size.ArtifactSize}
	if err := l.history.AppendHistory(rec); err != nil {
		l.logger.Warn("failed to record clean", "path", project.Path, "error", err)
	}
	return nil
}

// artifactDirs lists the directories Clean removes: the artifact entries of
// the size breakdown, or the type's artifact names when no breakdown exists.
func artifactDirs(p domain.Project) []string {
	var names []string
	for _, d := range p.Size.Dirs {
		if d.IsArtifact {
			names = append(names, d.FileName)
		}
	}
	if len(names) > 0 {
		return names
	}
	if kind, ok := kindOf(p.ProjectType); ok {
		return kind.Artifacts
	}
	return nil
}

// GetConfig returns the stored record, or the default when none is stored.
func (l *Local) GetConfig(ctx context.Context) (domain.Config, error) {
	cfg, found, err := l.configs.GetConfig()
	if err != nil {
		return domain.Config{}, err
	}
	if !found {
		return domain.DefaultConfig(), nil
	}
	return cfg, nil
}

func (l *Local) PutConfig(ctx context.Context, cfg domain.Config) error {
	return l.configs.PutConfig(cfg)
}

// AddItems scans roots outside any request and pushes the result as
// add_items notifications correlated by the returned operation id. No roots
// means the user aborted the pick; a failed scan is reported the same way.
func (l *Local) AddItems(ctx context.Context, roots []string) (uuid.UUID, error) {
	if l.publisher == nil {
		return uuid.Nil, errors.New("no notification publisher configured")
	}
	op := uuid.New()
	if err := l.publish(ctx, notify.TopicAddItemsPending, op, nil); err != nil {
		return op, err
	}

	if len(roots) == 0 {
		return op, l.publish(ctx, notify.TopicAddItemsRejected, op, domain.ErrPickAborted.Error())
	}

	result, err := l.discover(ctx, roots)
	if err != nil {
		l.logger.Error("add items scan failed", "operation", op, "error", err)
		if perr := l.publish(ctx, notify.TopicAddItemsRejected, op, domain.ErrPickAborted.Error()); perr != nil {
			return op, perr
		}
		return op, err
	}
	return op, l.publish(ctx, notify.TopicAddItemsFulfilled, op, result)
}

func (l *Local) publish(ctx context.Context, topic notify.Topic, op uuid.UUID, payload any) error {
	n, err := notify.New(topic, op, payload)
	if err != nil {
		return err
	}
	return l.publisher.Publish(ctx, n)
}

// localise replaces the home directory prefix with "~".
func (l *Local) localise(p string) string {
	if l.home == "" {
		return p
	}
	if p == l.home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(p, l.home+string(filepath.Separator)); ok {
		return "~" + string(filepath.Separator) + rest
	}
	return p
}

func (l *Local) expand(p string) string {
	if l.home == "" {
		return p
	}
	if p == "~" {
		return l.home
	}
	if rest, ok := strings.CutPrefix(p, "~"+string(filepath.Separator)); ok {
		return filepath.Join(l.home, rest)
	}
	return p
}
