// Package loading models the lifecycle of an asynchronous value.
//
// A Value is exactly one of Idle, Pending, Fulfilled(data) or Rejected(err).
// The zero Value is Idle. Payload accessors report whether the payload exists
// on the current tag, so data is never observable on a Rejected value and an
// error is never observable on a Fulfilled one.
package loading

import (
	"encoding/json"
	"fmt"
)

// Status is the tag of a Value.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusFulfilled
	StatusRejected
)

// String returns the lowercase status name used in JSON output.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFulfilled:
		return "fulfilled"
	case StatusRejected:
		return "rejected"
	default:
		return "idle"
	}
}

// Value is a tagged union over the four lifecycle states.
type Value[T, E any] struct {
	status Status
	data   T
	err    E
}

// Idle returns a value with no data and no error.
func Idle[T, E any]() Value[T, E] {
	return Value[T, E]{status: StatusIdle}
}

// Pending returns a value for an operation in flight.
func Pending[T, E any]() Value[T, E] {
	return Value[T, E]{status: StatusPending}
}

// Fulfilled returns a value carrying data.
func Fulfilled[T, E any](data T) Value[T, E] {
	return Value[T, E]{status: StatusFulfilled, data: data}
}

// Rejected returns a value carrying an error payload.
func Rejected[T, E any](err E) Value[T, E] {
	return Value[T, E]{status: StatusRejected, err: err}
}

// Status returns the tag.
func (v Value[T, E]) Status() Status { return v.status }

// Data returns the payload and true when v is Fulfilled.
func (v Value[T, E]) Data() (T, bool) {
	if v.status != StatusFulfilled {
		var zero T
		return zero, false
	}
	return v.data, true
}

// Err returns the error payload and true when v is Rejected.
func (v Value[T, E]) Err() (E, bool) {
	if v.status != StatusRejected {
		var zero E
		return zero, false
	}
	return v.err, true
}

// DataOr returns the payload when fulfilled, otherwise fallback.
func (v Value[T, E]) DataOr(fallback T) T {
	if v.status != StatusFulfilled {
		return fallback
	}
	return v.data
}

func (v Value[T, E]) IsIdle() bool      { return v.status == StatusIdle }
func (v Value[T, E]) IsPending() bool   { return v.status == StatusPending }
func (v Value[T, E]) IsFulfilled() bool { return v.status == StatusFulfilled }
func (v Value[T, E]) IsRejected() bool  { return v.status == StatusRejected }

func (v Value[T, E]) String() string {
	switch v.status {
	case StatusFulfilled:
		return fmt.Sprintf("fulfilled(%v)", v.data)
	case StatusRejected:
		return fmt.Sprintf("rejected(%v)", v.err)
	default:
		return v.status.String()
	}
}

// IsIdle reports whether v is Idle. The package-level predicates exist so
// they can be passed to IsAny.
func IsIdle[T, E any](v Value[T, E]) bool { return v.IsIdle() }

// IsPending reports whether v is Pending.
func IsPending[T, E any](v Value[T, E]) bool { return v.IsPending() }

// IsFulfilled reports whether v is Fulfilled.
func IsFulfilled[T, E any](v Value[T, E]) bool { return v.IsFulfilled() }

// IsRejected reports whether v is Rejected.
func IsRejected[T, E any](v Value[T, E]) bool { return v.IsRejected() }

// IsAny reports whether any of the predicates matches v.
func IsAny[T, E any](v Value[T, E], predicates ...func(Value[T, E]) bool) bool {
	for _, p := range predicates {
		if p(v) {
			return true
		}
	}
	return false
}

// Map transforms the payload of a Fulfilled value. Every other tag passes
// through with its payload untouched.
func Map[T, R, E any](v Value[T, E], f func(T) R) Value[R, E] {
	switch v.status {
	case StatusFulfilled:
		return Fulfilled[R, E](f(v.data))
	case StatusRejected:
		return Rejected[R](v.err)
	case StatusPending:
		return Pending[R, E]()
	default:
		return Idle[R, E]()
	}
}

// MapError transforms the payload of a Rejected value.
func MapError[T, E, F any](v Value[T, E], f func(E) F) Value[T, F] {
	switch v.status {
	case StatusRejected:
		return Rejected[T](f(v.err))
	case StatusFulfilled:
		return Fulfilled[T, F](v.data)
	case StatusPending:
		return Pending[T, F]()
	default:
		return Idle[T, F]()
	}
}

// Join merges two values describing the same subject. Precedence, first
// match wins:
//
//	Rejected a        -> Rejected(a)
//	Rejected b        -> Rejected(b)
//	Pending either    -> Pending
//	Fulfilled both    -> Fulfilled(combine(a, b))
//	Idle both         -> Idle
//	one Fulfilled     -> Fulfilled(combine) with the zero T for the Idle side
func Join[T, E any](a, b Value[T, E], combine func(a, b T) T) Value[T, E] {
	switch {
	case a.status == StatusRejected:
		return Rejected[T](a.err)
	case b.status == StatusRejected:
		return Rejected[T](b.err)
	case a.status == StatusPending, b.status == StatusPending:
		return Pending[T, E]()
	case a.status == StatusIdle && b.status == StatusIdle:
		return Idle[T, E]()
	}
	// At least one side is Fulfilled and the other is Fulfilled or Idle, whose
	// data field is always the zero value.
	return Fulfilled[T, E](combine(a.data, b.data))
}

type wireValue[T, E any] struct {
	Status string `json:"status"`
	Data   *T     `json:"data,omitempty"`
	Error  *E     `json:"error,omitempty"`
}

// MarshalJSON encodes v as {"status": ..., "data"|"error": ...}.
func (v Value[T, E]) MarshalJSON() ([]byte, error) {
	w := wireValue[T, E]{Status: v.status.String()}
	switch v.status {
	case StatusFulfilled:
		w.Data = &v.data
	case StatusRejected:
		w.Error = &v.err
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (v *Value[T, E]) UnmarshalJSON(b []byte) error {
	var w wireValue[T, E]
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.Status {
	case "idle", "":
		*v = Idle[T, E]()
	case "pending":
		*v = Pending[T, E]()
	case "fulfilled":
		var data T
		if w.Data != nil {
			data = *w.Data
		}
		*v = Fulfilled[T, E](data)
	case "rejected":
		var e E
		if w.Error != nil {
			e = *w.Error
		}
		*v = Rejected[T](e)
	default:
		return fmt.Errorf("unknown loading status %q", w.Status)
	}
	return nil
}
