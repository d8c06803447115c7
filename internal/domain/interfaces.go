package domain

import "context"

// Backend performs directory scanning, size computation and deletion.
// All calls are request/response.
type Backend interface {
	// Discover scans the configured search roots
	Discover(ctx context.Context) (DiscoverResult, error)

	// Clean removes the artifact directories of one project
	Clean(ctx context.Context, project Project) error

	// GetConfig returns the stored configuration record
	GetConfig(ctx context.Context) (Config, error)

	// PutConfig stores the configuration record
	PutConfig(ctx context.Context, cfg Config) error
}

// ConfigStore persists the configuration record.
type ConfigStore interface {
	GetConfig() (Config, bool, error)
	PutConfig(cfg Config) error
	Close() error
}
