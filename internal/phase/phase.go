// Package phase projects the lifecycle of an asynchronous operation onto
// state slots.
//
// Every logical invocation produces exactly one Started event followed by
// exactly one terminal event (Succeeded or Failed). A Matcher turns each
// event into a pure state transition; it performs no I/O and never schedules
// work itself.
package phase

import (
	"context"

	"github.com/mmcdole/kondo/internal/loading"
)

// Kind identifies one of the three phases.
type Kind int

const (
	KindStarted Kind = iota
	KindSucceeded
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindSucceeded:
		return "succeeded"
	case KindFailed:
		return "failed"
	default:
		return "started"
	}
}

// Event is one observed phase of an invocation with arguments A and result R.
type Event[A, R any] struct {
	Kind   Kind
	Args   A
	Result R
	Err    error
}

// Started builds the Started event for args.
func Started[A, R any](args A) Event[A, R] {
	return Event[A, R]{Kind: KindStarted, Args: args}
}

// Succeeded builds the Succeeded event for args.
func Succeeded[A, R any](args A, result R) Event[A, R] {
	return Event[A, R]{Kind: KindSucceeded, Args: args, Result: result}
}

// Failed builds the Failed event for args.
func Failed[A, R any](args A, err error) Event[A, R] {
	return Event[A, R]{Kind: KindFailed, Args: args, Err: err}
}

// Hook runs before or after the default write of a phase.
type Hook[S, A any] func(state S, args A) S

// Options configures a Matcher. S is the state, A the invocation arguments,
// R the raw result, V the stored Fulfilled payload and E the stored error payload.
type Options[S, A, R, V, E any] struct {
	// Apply writes the phase's loading value into one or more slots. Required.
	Apply func(state S, args A, value loading.Value[V, E]) S

	// Transform maps the raw result to the stored payload. When nil the result
	// is stored as is, which requires R and V to be the same type.
	Transform func(result R) V

	// TransformError maps the failure to the stored error payload. When nil the
	// error is stored as is, which requires E to be error.
	TransformError func(err error) E

	OnStart   Hook[S, A]
	OnSuccess Hook[S, A]
	OnFailure Hook[S, A]

	AfterStart   Hook[S, A]
	AfterSuccess Hook[S, A]
	AfterFailure Hook[S, A]
}

// Matcher binds the phases of one operation to state transitions.
type Matcher[S, A, R, V, E any] struct {
	opts Options[S, A, R, V, E]
}

// New creates a Matcher. It panics when opts.Apply is nil.
func New[S, A, R, V, E any](opts Options[S, A, R, V, E]) *Matcher[S, A, R, V, E] {
	if opts.Apply == nil {
		panic("phase: Options.Apply is required")
	}
	return &Matcher[S, A, R, V, E]{opts: opts}
}

// Reduce applies ev to state: pre hook, write, post hook.
func (m *Matcher[S, A, R, V, E]) Reduce(state S, ev Event[A, R]) S {
	var (
		before, after Hook[S, A]
		value         loading.Value[V, E]
	)
	switch ev.Kind {
	case KindStarted:
		before, after = m.opts.OnStart, m.opts.AfterStart
		value = loading.Pending[V, E]()
	case KindSucceeded:
		before, after = m.opts.OnSuccess, m.opts.AfterSuccess
		value = loading.Fulfilled[V, E](m.result(ev.Result))
	case KindFailed:
		before, after = m.opts.OnFailure, m.opts.AfterFailure
		value = loading.Rejected[V](m.failure(ev.Err))
	default:
		return state
	}

	if before != nil {
		state = before(state, ev.Args)
	}
	state = m.opts.Apply(state, ev.Args, value)
	if after != nil {
		state = after(state, ev.Args)
	}
	return state
}

// Transition returns Reduce bound to ev, ready to be queued on a single writer.
func (m *Matcher[S, A, R, V, E]) Transition(ev Event[A, R]) func(S) S {
	return func(s S) S { return m.Reduce(s, ev) }
}

func (m *Matcher[S, A, R, V, E]) result(r R) V {
	if m.opts.Transform != nil {
		return m.opts.Transform(r)
	}
	v, _ := any(r).(V)
	return v
}

func (m *Matcher[S, A, R, V, E]) failure(err error) E {
	if m.opts.TransformError != nil {
		return m.opts.TransformError(err)
	}
	e, _ := any(err).(E)
	return e
}

// Field builds an Apply that overwrites a single slot.
func Field[S, A, V, E any](set func(state S, value loading.Value[V, E]) S) func(S, A, loading.Value[V, E]) S {
	return func(s S, _ A, v loading.Value[V, E]) S { return set(s, v) }
}

// EachKey builds an Apply for per-key operations: the same loading value is
// written into the slot of every key derived from the arguments.
func EachKey[S, A, K, V, E any](
	keys func(args A) []K,
	set func(state S, key K, value loading.Value[V, E]) S,
) func(S, A, loading.Value[V, E]) S {
	return func(s S, args A, v loading.Value[V, E]) S {
		for _, k := range keys(args) {
			s = set(s, k, v)
		}
		return s
	}
}

// Dispatcher queues a state transition on the single writer that owns S.
type Dispatcher[S any] func(ctx context.Context, transition func(S) S) error

// Run executes op and dispatches its phases in order: Started before the call,
// then exactly one of Succeeded or Failed. The terminal phase is always
// dispatched, even when op fails. Run returns the operation's result and error;
// a dispatch failure is returned only when op itself succeeded.
func Run[S, A, R, V, E any](
	ctx context.Context,
	m *Matcher[S, A, R, V, E],
	dispatch Dispatcher[S],
	args A,
	op func(ctx context.Context, args A) (R, error),
) (R, error) {
	if err := dispatch(ctx, m.Transition(Started[A, R](args))); err != nil {
		var zero R
		return zero, err
	}

	result, opErr := op(ctx, args)

	var ev Event[A, R]
	if opErr != nil {
		ev = Failed[A, R](args, opErr)
	} else {
		ev = Succeeded(args, result)
	}
	// The terminal phase must land even when the caller's context is gone.
	if err := dispatch(context.WithoutCancel(ctx), m.Transition(ev)); err != nil && opErr == nil {
		return result, err
	}
	return result, opErr
}
