package service

import (
	"context"
	"log/slog"

	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/engine"
	"github.com/mmcdole/kondo/internal/phase"
)

// PreferencesService passes the configuration record through getConfig and
// putConfig. The item collection is never touched.
type PreferencesService struct {
	backend domain.Backend
	engine  stateEngine
	logger  *slog.Logger
}

// NewPreferencesService creates a new preferences service
func NewPreferencesService(backend domain.Backend, e stateEngine, logger *slog.Logger) *PreferencesService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferencesService{backend: backend, engine: e, logger: logger}
}

// Current returns the held configuration record
func (s *PreferencesService) Current() domain.Config {
	return s.engine.Snapshot().Preferences.Config
}

// Fetch reads the configuration record. A Fulfilled read replaces the held record.
func (s *PreferencesService) Fetch(ctx context.Context) (domain.Config, error) {
	cfg, err := phase.Run(ctx, engine.PreferencesFetchMatcher, dispatcher(s.engine, "preferences_fetch"), struct{}{},
		func(ctx context.Context, _ struct{}) (domain.Config, error) {
			cfg, err := s.backend.GetConfig(ctx)
			if err != nil {
				return domain.Config{}, domain.ConfigIOFailed("read", err)
			}
			return cfg, nil
		})
	if err != nil {
		s.logger.Error("failed to read configuration", "error", err)
		return s.Current(), err
	}
	return cfg, nil
}

// Commit writes cfg and reads it back.
func (s *PreferencesService) Commit(ctx context.Context, cfg domain.Config) (domain.Config, error) {
	_, err := phase.Run(ctx, engine.PreferencesCommitMatcher, dispatcher(s.engine, "preferences_commit"), cfg,
		func(ctx context.Context, cfg domain.Config) (struct{}, error) {
			if err := s.backend.PutConfig(ctx, cfg); err != nil {
				return struct{}{}, domain.ConfigIOFailed("write", err)
			}
			return struct{}{}, nil
		})
	if err != nil {
		s.logger.Error("failed to write configuration", "error", err)
		return s.Current(), err
	}
	s.logger.Info("configuration saved", "enableGlass", cfg.EnableGlass)
	return s.Fetch(ctx)
}
