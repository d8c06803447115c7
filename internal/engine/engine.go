package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/metrics"
	"github.com/mmcdole/kondo/internal/phase"
)

// StateObserver receives every state published by the engine. Implementations
// must not block.
type StateObserver interface {
	OnState(s State)
}

// ChannelObserver adapts StateObserver to a channel, keeping only the latest
// unread state when the consumer falls behind.
type ChannelObserver struct {
	ch chan State
}

// NewChannelObserver creates a channel-based observer.
func NewChannelObserver() *ChannelObserver {
	return &ChannelObserver{ch: make(chan State, 1)}
}

// C returns the channel states are delivered on.
func (o *ChannelObserver) C() <-chan State { return o.ch }

// OnState replaces any unread state with s.
func (o *ChannelObserver) OnState(s State) {
	for {
		select {
		case o.ch <- s:
			return
		default:
		}
		select {
		case <-o.ch:
		default:
		}
	}
}

type request struct {
	name     string
	apply    func(State) State
	observer StateObserver
	reply    chan State
}

// Engine serializes every mutation of the canonical state on one goroutine.
// Producers enqueue pure transitions; readers take snapshots.
type Engine struct {
	logger   *slog.Logger
	recorder metrics.Recorder

	queue   chan request
	done    chan struct{}
	current atomic.Pointer[State]
	running atomic.Bool

	// observers is owned by the Run goroutine.
	observers []StateObserver
}

// New creates an engine holding the initial state. Call Run to start it.
func New(logger *slog.Logger, recorder metrics.Recorder) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		logger:   logger,
		recorder: metrics.OrNoop(recorder),
		queue:    make(chan request),
		done:     make(chan struct{}),
	}
	initial := Initial()
	e.current.Store(&initial)
	return e
}

// Run applies queued transitions until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine already running")
	}
	defer close(e.done)

	for {
		select {
		case <-ctx.Done():
			e.logger.Debug("engine stopped", "error", ctx.Err())
			return nil
		case req := <-e.queue:
			if req.observer != nil {
				e.observers = append(e.observers, req.observer)
				s := e.Snapshot()
				req.observer.OnState(s)
				req.reply <- s
				continue
			}
			req.reply <- e.apply(req)
		}
	}
}

func (e *Engine) apply(req request) (next State) {
	prev := e.Snapshot()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("transition panicked", "transition", req.name, "error", r)
			next = prev
		}
	}()

	next = req.apply(prev)
	e.current.Store(&next)

	e.recorder.IncTransition(req.name)
	e.recorder.SetProjects(len(next.Known))
	e.recorder.SetReclaimableBytes(next.ReclaimableSpace())
	e.logger.Debug("state transition",
		"transition", req.name,
		"projects", next.Projects.Status().String(),
		"count", len(next.Known))

	for _, o := range e.observers {
		o.OnState(next)
	}
	return next
}

// Snapshot returns the latest published state. Safe from any goroutine.
func (e *Engine) Snapshot() State {
	return *e.current.Load()
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Update queues a named transition and waits until it has been applied.
func (e *Engine) Update(ctx context.Context, name string, apply func(State) State) (State, error) {
	return e.send(ctx, request{name: name, apply: apply, reply: make(chan State, 1)})
}

// Observe registers o; it immediately receives the current state.
func (e *Engine) Observe(ctx context.Context, o StateObserver) error {
	_, err := e.send(ctx, request{name: "observe", observer: o, reply: make(chan State, 1)})
	return err
}

func (e *Engine) send(ctx context.Context, req request) (State, error) {
	select {
	case e.queue <- req:
	case <-ctx.Done():
		return State{}, ctx.Err()
	case <-e.done:
		return State{}, domain.ErrEngineStopped
	}
	// A received request is always answered before Run can return.
	return <-req.reply, nil
}

// Dispatcher adapts the engine for phase.Run.
func (e *Engine) Dispatcher(name string) phase.Dispatcher[State] {
	return func(ctx context.Context, transition func(State) State) error {
		_, err := e.Update(ctx, name, transition)
		return err
	}
}

// MergeBatch merges a fetched or pushed batch.
func (e *Engine) MergeBatch(ctx context.Context, incoming BatchValue) (State, error) {
	return e.Update(ctx, "merge_batch", func(s State) State { return ApplyBatch(s, incoming) })
}

// MergeSearchPaths appends search roots that may still be resolving.
func (e *Engine) MergeSearchPaths(ctx context.Context, incoming []PathValue) (State, error) {
	return e.Update(ctx, "merge_search_paths", func(s State) State {
		s.SearchPaths = MergeSearchPaths(s.SearchPaths, incoming)
		return s
	})
}

// ToggleSelection flips the selection of one project.
func (e *Engine) ToggleSelection(ctx context.Context, id domain.Identity) (State, error) {
	return e.Update(ctx, "toggle_selection", func(s State) State { return ToggleSelection(s, id) })
}

// SetSelection selects or deselects a set of projects.
func (e *Engine) SetSelection(ctx context.Context, ids []domain.Identity, selected bool) (State, error) {
	return e.Update(ctx, "set_selection", func(s State) State { return SetSelection(s, ids, selected) })
}

// RecordCleanOutcome applies one clean phase.
func (e *Engine) RecordCleanOutcome(ctx context.Context, ev CleanEvent) (State, error) {
	return e.Update(ctx, "clean_"+ev.Kind.String(), func(s State) State { return RecordCleanOutcome(s, ev) })
}

// Reset restores the initial state.
func (e *Engine) Reset(ctx context.Context) (State, error) {
	return e.Update(ctx, "reset", Reset)
}
