package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/engine"
	"github.com/mmcdole/kondo/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu sync.Mutex

	result      domain.DiscoverResult
	discoverErr error

	cleanErrs map[string]error
	cleaned   []string

	config    domain.Config
	getErr    error
	putErr    error
	putConfig []domain.Config
}

func (f *fakeBackend) Discover(context.Context) (domain.DiscoverResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.discoverErr
}

func (f *fakeBackend) Clean(_ context.Context, p domain.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.cleanErrs[p.Path]; err != nil {
		return err
	}
	f.cleaned = append(f.cleaned, p.Path)
	return nil
}

func (f *fakeBackend) GetConfig(context.Context) (domain.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config, f.getErr
}

func (f *fakeBackend) PutConfig(_ context.Context, cfg domain.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.putConfig = append(f.putConfig, cfg)
	f.config = cfg
	return nil
}

func raw(path string, artifacts uint64) domain.RawProject {
	return domain.RawProject{
		Path:        path,
		ProjectType: domain.ProjectNode,
		Size:        domain.ProjectSize{ArtifactSize: artifacts, NonArtifactSize: 100},
	}
}

func startEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e := engine.New(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-e.Done()
	})
	return e
}

func idOf(t *testing.T, path string) domain.Identity {
	t.Helper()
	id, err := identity.Of(context.Background(), path)
	require.NoError(t, err)
	return id
}

func TestFetchScenario(t *testing.T) {
	backend := &fakeBackend{result: domain.DiscoverResult{
		Projects:    []domain.RawProject{raw("/a", 1024), raw("/b", 0)},
		SearchPaths: []string{"/"},
	}}
	svc := NewProjectService(backend, startEngine(t), nil)

	s, err := svc.Fetch(context.Background())
	require.NoError(t, err)

	projects, ok := s.Projects.Data()
	require.True(t, ok)
	require.Len(t, projects, 2)
	assert.Equal(t, idOf(t, "/a"), projects[0].Identity)
	assert.False(t, projects[1].HasArtifacts)
	assert.Equal(t, uint64(1024), s.TotalSpace)
}

func TestFetchFailureKeepsPreviousView(t *testing.T) {
	backend := &fakeBackend{result: domain.DiscoverResult{Projects: []domain.RawProject{raw("/a", 1)}}}
	svc := NewProjectService(backend, startEngine(t), nil)

	_, err := svc.Fetch(context.Background())
	require.NoError(t, err)

	backend.mu.Lock()
	backend.discoverErr = errors.New("backend unreachable")
	backend.mu.Unlock()

	s, err := svc.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeFetchFailed))

	rejected, ok := s.Projects.Err()
	require.True(t, ok)
	assert.True(t, domain.IsCode(rejected, domain.ErrCodeFetchFailed))
	assert.Len(t, s.Known, 1)

	backend.mu.Lock()
	backend.discoverErr = nil
	backend.mu.Unlock()
	s, err = svc.Fetch(context.Background())
	require.NoError(t, err, "retry after a rejected fetch")
	assert.True(t, s.Projects.IsFulfilled())
}

func TestFetchIdentityFailureRejectsWholeBatch(t *testing.T) {
	backend := &fakeBackend{result: domain.DiscoverResult{Projects: []domain.RawProject{raw("/a", 1), raw("/b", 1)}}}
	broken := identity.NewAssigner(func(ctx context.Context, input string) (domain.Identity, error) {
		if input == "/b" {
			return "", errors.New("digest failed")
		}
		return identity.Of(ctx, input)
	}, 1)
	svc := NewProjectService(backend, startEngine(t), nil, WithAssigner(broken))

	s, err := svc.Fetch(context.Background())
	assert.True(t, domain.IsCode(err, domain.ErrCodeIdentityFailed))
	assert.True(t, s.Projects.IsRejected())
	assert.Empty(t, s.Known)
}

func TestCleanDoesNotAbortSiblings(t *testing.T) {
	backend := &fakeBackend{
		result: domain.DiscoverResult{Projects: []domain.RawProject{raw("/a", 2048), raw("/b", 512), raw("/c", 256)}},
		cleanErrs: map[string]error{
			"/b": errors.New("permission denied"),
		},
	}
	svc := NewProjectService(backend, startEngine(t), nil, WithCleanConcurrency(1))
	ctx := context.Background()

	_, err := svc.Fetch(ctx)
	require.NoError(t, err)

	results := svc.Clean(ctx, []domain.Identity{idOf(t, "/a"), idOf(t, "/b"), idOf(t, "/c")})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, uint64(2048), results[0].Freed)
	assert.True(t, domain.IsCode(results[1].Err, domain.ErrCodeCleanFailed))
	assert.NoError(t, results[2].Err)

	s := svc.Snapshot()
	assert.Equal(t, uint64(2048+256), s.CleanedSpace)

	msg, ok := s.CleanStatusOf(idOf(t, "/b")).Err()
	require.True(t, ok)
	assert.Contains(t, msg, "permission denied")

	p, _ := s.Project(idOf(t, "/b"))
	assert.True(t, p.HasArtifacts, "failed clean keeps the project cleanable")
	assert.ElementsMatch(t, []string{"/a", "/c"}, backend.cleaned)
}

func TestCleanUnknownIdentity(t *testing.T) {
	svc := NewProjectService(&fakeBackend{}, startEngine(t), nil)
	results := svc.Clean(context.Background(), []domain.Identity{"missing"})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, domain.ErrNotFound)
	assert.Equal(t, 0, svc.Snapshot().Cleaned.Len())
}

func TestCleanSelectedAndCleanAll(t *testing.T) {
	backend := &fakeBackend{result: domain.DiscoverResult{
		Projects: []domain.RawProject{raw("/a", 10), raw("/b", 20), raw("/c", 0)},
	}}
	svc := NewProjectService(backend, startEngine(t), nil)
	ctx := context.Background()

	_, err := svc.Fetch(ctx)
	require.NoError(t, err)
	_, err = svc.ToggleSelection(ctx, idOf(t, "/b"))
	require.NoError(t, err)

	results := svc.CleanSelected(ctx)
	require.Len(t, results, 1)
	assert.Equal(t, "/b", results[0].Path)
	assert.Empty(t, svc.Snapshot().Selected())

	results = svc.CleanAll(ctx)
	require.Len(t, results, 1)
	assert.Equal(t, "/a", results[0].Path)
	assert.Equal(t, uint64(30), svc.Snapshot().CleanedSpace)
	assert.Empty(t, svc.Snapshot().WithArtifacts())
}

func TestSetSelectionAndReset(t *testing.T) {
	backend := &fakeBackend{result: domain.DiscoverResult{
		Projects:    []domain.RawProject{raw("/a", 1), raw("/b", 1)},
		SearchPaths: []string{"/"},
	}}
	svc := NewProjectService(backend, startEngine(t), nil)
	ctx := context.Background()

	_, err := svc.Fetch(ctx)
	require.NoError(t, err)

	s, err := svc.SetSelection(ctx, []domain.Identity{idOf(t, "/a"), idOf(t, "/b")}, true)
	require.NoError(t, err)
	assert.Len(t, s.Selected(), 2)

	s, err = svc.Reset(ctx)
	require.NoError(t, err)
	assert.True(t, s.Projects.IsIdle())
	assert.Empty(t, s.SearchPaths)
}

func TestPreferencesFetchAndCommit(t *testing.T) {
	backend := &fakeBackend{config: domain.Config{EnableGlass: true}}
	svc := NewPreferencesService(backend, startEngine(t), nil)
	ctx := context.Background()

	cfg, err := svc.Fetch(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.EnableGlass)

	cfg, err = svc.Commit(ctx, domain.Config{EnableGlass: false})
	require.NoError(t, err)
	assert.False(t, cfg.EnableGlass)
	assert.False(t, svc.Current().EnableGlass)
	assert.Equal(t, []domain.Config{{EnableGlass: false}}, backend.putConfig)
}

func TestPreferencesFailureIsConfigIOFailed(t *testing.T) {
	backend := &fakeBackend{
		config: domain.Config{EnableGlass: true},
		putErr: errors.New("read-only"),
	}
	e := startEngine(t)
	svc := NewPreferencesService(backend, e, nil)
	ctx := context.Background()

	cfg, err := svc.Commit(ctx, domain.Config{EnableGlass: false})
	assert.True(t, domain.IsCode(err, domain.ErrCodeConfigIOFailed))
	assert.True(t, cfg.EnableGlass, "held record is unchanged")
	assert.True(t, e.Snapshot().Preferences.Commit.IsRejected())
	assert.True(t, e.Snapshot().Projects.IsIdle(), "item state is unaffected")

	backend.getErr = errors.New("locked")
	_, err = svc.Fetch(ctx)
	assert.True(t, domain.IsCode(err, domain.ErrCodeConfigIOFailed))
}

func TestMatchProjects(t *testing.T) {
	projects := []domain.Project{
		domain.NewProject(domain.RawProject{Path: "~/src/kondo-web", ProjectType: domain.ProjectNode}, "1"),
		domain.NewProject(domain.RawProject{Path: "~/src/engine", ProjectType: domain.ProjectCargo}, "2"),
		domain.NewProject(domain.RawProject{Path: "~/games/Shooter", ProjectType: domain.ProjectUnreal}, "3"),
	}

	tests := []struct {
		query string
		want  []domain.Identity
	}{
		{"", []domain.Identity{"1", "2", "3"}},
		{"kweb", []domain.Identity{"1"}},
		{"SRC", []domain.Identity{"1", "2"}},
		{"cargo", []domain.Identity{"2"}},
		{"src unreal", nil},
		{"zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := MatchProjects(projects, tt.query)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, IdentitiesOf(got))
		})
	}
}
