package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/engine"
	"github.com/mmcdole/kondo/internal/identity"
	"github.com/mmcdole/kondo/internal/loading"
	"github.com/mmcdole/kondo/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMerger applies batches to a pure state and reports each merge.
type recordingMerger struct {
	mu     sync.Mutex
	state  engine.State
	merged chan loading.Status
}

func newRecordingMerger() *recordingMerger {
	return &recordingMerger{state: engine.Initial(), merged: make(chan loading.Status, 16)}
}

func (m *recordingMerger) MergeBatch(_ context.Context, incoming engine.BatchValue) (engine.State, error) {
	m.mu.Lock()
	m.state = engine.ApplyBatch(m.state, incoming)
	s := m.state
	m.mu.Unlock()
	m.merged <- incoming.Status()
	return s, nil
}

func (m *recordingMerger) snapshot() engine.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *recordingMerger) next(t *testing.T) loading.Status {
	t.Helper()
	select {
	case st := <-m.merged:
		return st
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for merge")
		return 0
	}
}

func startBridge(t *testing.T, merger Merger, assigner *identity.Assigner) *notify.Hub {
	t.Helper()
	hub := notify.NewHub()
	b := New(hub, merger, assigner, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		hub.Close()
	})

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(notify.TopicAddItemsFulfilled) == 1
	}, time.Second, 5*time.Millisecond)
	return hub
}

func publish(t *testing.T, hub *notify.Hub, topic notify.Topic, op uuid.UUID, payload any) {
	t.Helper()
	n, err := notify.New(topic, op, payload)
	require.NoError(t, err)
	require.NoError(t, hub.Publish(context.Background(), n))
}

func discovered(paths ...string) domain.DiscoverResult {
	r := domain.DiscoverResult{SearchPaths: []string{"~/src"}}
	for _, p := range paths {
		r.Projects = append(r.Projects, domain.RawProject{
			Path:        p,
			ProjectType: domain.ProjectCargo,
			Size:        domain.ProjectSize{ArtifactSize: 1024},
		})
	}
	return r
}

func TestBridgeMergesEveryPhase(t *testing.T) {
	m := newRecordingMerger()
	hub := startBridge(t, m, nil)
	op := uuid.New()

	publish(t, hub, notify.TopicAddItemsPending, op, nil)
	assert.Equal(t, loading.StatusPending, m.next(t))

	publish(t, hub, notify.TopicAddItemsFulfilled, op, discovered("~/src/a", "~/src/b"))
	assert.Equal(t, loading.StatusFulfilled, m.next(t))

	s := m.snapshot()
	require.True(t, s.Projects.IsFulfilled())
	require.Len(t, s.Known, 2)
	want, err := identity.Of(context.Background(), "~/src/a")
	require.NoError(t, err)
	assert.Equal(t, want, s.Known[0].Identity)
	assert.Len(t, s.SearchPaths, 1)
}

func TestBridgePushOfKnownPathReplacesEntry(t *testing.T) {
	m := newRecordingMerger()
	hub := startBridge(t, m, nil)

	publish(t, hub, notify.TopicAddItemsFulfilled, uuid.New(), discovered("~/src/a"))
	m.next(t)

	update := discovered("~/src/a")
	update.Projects[0].Size.ArtifactSize = 4096
	publish(t, hub, notify.TopicAddItemsFulfilled, uuid.New(), update)
	m.next(t)

	s := m.snapshot()
	require.Len(t, s.Known, 1)
	assert.Equal(t, uint64(4096), s.Known[0].Size.ArtifactSize)
}

func TestBridgeRejectedCarriesMessage(t *testing.T) {
	m := newRecordingMerger()
	hub := startBridge(t, m, nil)

	publish(t, hub, notify.TopicAddItemsRejected, uuid.New(), domain.ErrPickAborted.Error())
	assert.Equal(t, loading.StatusRejected, m.next(t))

	err, ok := m.snapshot().Projects.Err()
	require.True(t, ok)
	assert.True(t, domain.IsCode(err, domain.ErrCodeAddItemsFailed))
	assert.Equal(t, "Pick aborted", err.Error())
}

func TestBridgeInvalidPayloadIsRejected(t *testing.T) {
	m := newRecordingMerger()
	hub := startBridge(t, m, nil)

	publish(t, hub, notify.TopicAddItemsFulfilled, uuid.New(), "not a batch")
	assert.Equal(t, loading.StatusRejected, m.next(t))

	err, _ := m.snapshot().Projects.Err()
	assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidPayload))
}

func TestBridgeIdentityFailureDiscardsBatch(t *testing.T) {
	m := newRecordingMerger()
	failing := identity.NewAssigner(func(ctx context.Context, input string) (domain.Identity, error) {
		return "", errors.New("digest unavailable")
	}, 1)
	hub := startBridge(t, m, failing)

	publish(t, hub, notify.TopicAddItemsFulfilled, uuid.New(), discovered("~/src/a"))
	assert.Equal(t, loading.StatusRejected, m.next(t))

	s := m.snapshot()
	err, _ := s.Projects.Err()
	assert.True(t, domain.IsCode(err, domain.ErrCodeIdentityFailed))
	assert.Empty(t, s.Known)
}

func TestBridgePreservesOrderWithinOperation(t *testing.T) {
	m := newRecordingMerger()
	release := make(chan struct{})
	slow := identity.NewAssigner(func(ctx context.Context, input string) (domain.Identity, error) {
		<-release
		return identity.Of(ctx, input)
	}, 1)
	hub := startBridge(t, m, slow)
	op := uuid.New()

	publish(t, hub, notify.TopicAddItemsFulfilled, op, discovered("~/src/a"))
	publish(t, hub, notify.TopicAddItemsRejected, op, "late failure")

	select {
	case st := <-m.merged:
		t.Fatalf("merged %s before the earlier phase finished", st)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	assert.Equal(t, loading.StatusFulfilled, m.next(t))
	assert.Equal(t, loading.StatusRejected, m.next(t))
	assert.Len(t, m.snapshot().Known, 1, "rejection keeps merged data")
}

func TestBridgeDoesNotSerializeDistinctOperations(t *testing.T) {
	m := newRecordingMerger()
	release := make(chan struct{})
	slow := identity.NewAssigner(func(ctx context.Context, input string) (domain.Identity, error) {
		<-release
		return identity.Of(ctx, input)
	}, 1)
	hub := startBridge(t, m, slow)

	publish(t, hub, notify.TopicAddItemsFulfilled, uuid.New(), discovered("~/src/a"))
	publish(t, hub, notify.TopicAddItemsPending, uuid.New(), nil)

	assert.Equal(t, loading.StatusPending, m.next(t))
	close(release)
	assert.Equal(t, loading.StatusFulfilled, m.next(t))
}

func TestBridgeWithEngine(t *testing.T) {
	e := engine.New(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Run(ctx) }()

	hub := startBridge(t, e, nil)
	publish(t, hub, notify.TopicAddItemsFulfilled, uuid.New(), discovered("~/src/a", "~/src/b"))

	require.Eventually(t, func() bool {
		return e.Snapshot().Projects.IsFulfilled()
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(2048), e.Snapshot().TotalSpace)
}
