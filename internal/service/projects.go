package service

import (
	"context"
	"log/slog"

	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/engine"
	"github.com/mmcdole/kondo/internal/identity"
	"github.com/mmcdole/kondo/internal/metrics"
	"github.com/mmcdole/kondo/internal/phase"
	"golang.org/x/sync/errgroup"
)

const defaultCleanConcurrency = 4

// stateEngine is the single writer of the canonical state (consumer-defined interface)
type stateEngine interface {
	Update(ctx context.Context, name string, apply func(engine.State) engine.State) (engine.State, error)
	Snapshot() engine.State
}

func dispatcher(e stateEngine, name string) phase.Dispatcher[engine.State] {
	return func(ctx context.Context, transition func(engine.State) engine.State) error {
		_, err := e.Update(ctx, name, transition)
		return err
	}
}

// CleanResult is the outcome of cleaning one project
type CleanResult struct {
	Identity domain.Identity
	Path     string
	Freed    uint64
	Err      error
}

// ProjectService orchestrates discovery, selection and cleaning
type ProjectService struct {
	backend  domain.Backend
	engine   stateEngine
	assigner *identity.Assigner
	logger   *slog.Logger
	recorder metrics.Recorder

	cleanConcurrency int
}

// ProjectOption configures a ProjectService
type ProjectOption func(*ProjectService)

// WithAssigner overrides the identity assigner
func WithAssigner(a *identity.Assigner) ProjectOption {
	return func(s *ProjectService) { s.assigner = a }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r metrics.Recorder) ProjectOption {
	return func(s *ProjectService) { s.recorder = metrics.OrNoop(r) }
}

// WithCleanConcurrency bounds the number of projects cleaned at once
func WithCleanConcurrency(n int) ProjectOption {
	return func(s *ProjectService) {
		if n > 0 {
			s.cleanConcurrency = n
		}
	}
}

// NewProjectService creates a new project service
func NewProjectService(backend domain.Backend, e stateEngine, logger *slog.Logger, opts ...ProjectOption) *ProjectService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ProjectService{
		backend:          backend,
		engine:           e,
		assigner:         identity.NewAssigner(nil, 0),
		logger:           logger,
		recorder:         metrics.NoopRecorder{},
		cleanConcurrency: defaultCleanConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current canonical state
func (s *ProjectService) Snapshot() engine.State {
	return s.engine.Snapshot()
}

// Fetch discovers projects, identifies them and merges the batch. A failed
// discovery or identity step leaves the previous data in place and is
// returned as the Rejected collection error.
func (s *ProjectService) Fetch(ctx context.Context) (engine.State, error) {
	batch, err := phase.Run(ctx, engine.FetchMatcher, dispatcher(s.engine, "fetch"), struct{}{},
		func(ctx context.Context, _ struct{}) (domain.Batch, error) {
			res, err := s.backend.Discover(ctx)
			if err != nil {
				return domain.Batch{}, domain.FetchFailed(err)
			}
			projects, err := identity.Projects(ctx, s.assigner, res.Projects)
			if err != nil {
				return domain.Batch{}, err
			}
			return domain.Batch{Projects: projects, SearchPaths: res.SearchPaths}, nil
		})
	if err != nil {
		s.logger.Error("fetch failed", "error", err)
		return s.engine.Snapshot(), err
	}

	s.logger.Info("fetched projects", "count", len(batch.Projects), "paths", len(batch.SearchPaths))
	return s.engine.Snapshot(), nil
}

// Clean removes the artifacts of every listed project. Each identity is an
// independent operation: a failure is recorded for that project only and
// never aborts its siblings. Results are returned in input order.
func (s *ProjectService) Clean(ctx context.Context, ids []domain.Identity) []CleanResult {
	results := make([]CleanResult, len(ids))
	snapshot := s.engine.Snapshot()

	var g errgroup.Group
	g.SetLimit(s.cleanConcurrency)
	for i, id := range ids {
		project, ok := snapshot.Project(id)
		if !ok {
			results[i] = CleanResult{Identity: id, Err: domain.ErrNotFound}
			continue
		}
		g.Go(func() error {
			results[i] = s.cleanOne(ctx, project)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *ProjectService) cleanOne(ctx context.Context, project domain.Project) CleanResult {
	logger := s.logger.With("identity", project.Identity, "path", project.Path)
	result := CleanResult{Identity: project.Identity, Path: project.Path}

	_, err := phase.Run(ctx, engine.CleanMatcher, dispatcher(s.engine, "clean"), []domain.Identity{project.Identity},
		func(ctx context.Context, _ []domain.Identity) (struct{}, error) {
			if err := s.backend.Clean(ctx, project); err != nil {
				return struct{}{}, domain.CleanFailed(project.Path, err)
			}
			return struct{}{}, nil
		})

	s.recorder.IncCleanResult(err == nil)
	if err != nil {
		logger.Warn("clean failed", "error", err)
		result.Err = err
		return result
	}
	if project.HasArtifacts {
		result.Freed = project.Size.ArtifactSize
		s.recorder.AddCleanedBytes(result.Freed)
	}
	logger.Info("cleaned project", "freed", result.Freed)
	return result
}

// CleanSelected cleans every selected project
func (s *ProjectService) CleanSelected(ctx context.Context) []CleanResult {
	return s.Clean(ctx, s.engine.Snapshot().Selected())
}

// CleanAll cleans every project that still has artifacts
func (s *ProjectService) CleanAll(ctx context.Context) []CleanResult {
	return s.Clean(ctx, s.engine.Snapshot().WithArtifacts())
}

// ToggleSelection flips the selection of one project
func (s *ProjectService) ToggleSelection(ctx context.Context, id domain.Identity) (engine.State, error) {
	return s.engine.Update(ctx, "toggle_selection", func(st engine.State) engine.State {
		return engine.ToggleSelection(st, id)
	})
}

// SetSelection selects or deselects the listed projects
func (s *ProjectService) SetSelection(ctx context.Context, ids []domain.Identity, selected bool) (engine.State, error) {
	return s.engine.Update(ctx, "set_selection", func(st engine.State) engine.State {
		return engine.SetSelection(st, ids, selected)
	})
}

// Reset restores the initial empty state
func (s *ProjectService) Reset(ctx context.Context) (engine.State, error) {
	s.logger.Info("resetting state")
	return s.engine.Update(ctx, "reset", engine.Reset)
}
