package loading

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type v = Value[[]int, string]

func concat(a, b []int) []int {
	out := append([]int{}, a...)
	return append(out, b...)
}

func TestZeroValueIsIdle(t *testing.T) {
	var x v
	assert.True(t, x.IsIdle())
	_, ok := x.Data()
	assert.False(t, ok)
	_, ok = x.Err()
	assert.False(t, ok)
}

func TestPayloadOnlyOnMatchingTag(t *testing.T) {
	f := Fulfilled[[]int, string]([]int{1})
	_, ok := f.Err()
	assert.False(t, ok, "fulfilled value must not expose an error")

	r := Rejected[[]int]("boom")
	_, ok = r.Data()
	assert.False(t, ok, "rejected value must not expose data")
	e, ok := r.Err()
	require.True(t, ok)
	assert.Equal(t, "boom", e)
	assert.Equal(t, []int{9}, r.DataOr([]int{9}))
}

func TestMap(t *testing.T) {
	double := func(xs []int) int { return len(xs) * 2 }

	got := Map(Fulfilled[[]int, string]([]int{1, 2}), double)
	n, ok := got.Data()
	require.True(t, ok)
	assert.Equal(t, 4, n)

	assert.True(t, Map(Pending[[]int, string](), double).IsPending())
	assert.True(t, Map(Idle[[]int, string](), double).IsIdle())

	rej := Map(Rejected[[]int]("nope"), double)
	e, ok := rej.Err()
	require.True(t, ok)
	assert.Equal(t, "nope", e)
}

func TestMapError(t *testing.T) {
	got := MapError(Rejected[[]int]("404"), func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	})
	e, ok := got.Err()
	require.True(t, ok)
	assert.Equal(t, 404, e)

	kept := MapError(Fulfilled[[]int, string]([]int{7}), func(string) int { return 0 })
	d, ok := kept.Data()
	require.True(t, ok)
	assert.Equal(t, []int{7}, d)
}

func TestJoinPrecedence(t *testing.T) {
	idle := Idle[[]int, string]()
	pending := Pending[[]int, string]()
	fa := Fulfilled[[]int, string]([]int{1})
	fb := Fulfilled[[]int, string]([]int{2})
	ra := Rejected[[]int]("a")
	rb := Rejected[[]int]("b")

	tests := []struct {
		name   string
		a, b   v
		status Status
		data   []int
		err    string
	}{
		{"rejected beats pending", ra, pending, StatusRejected, nil, "a"},
		{"pending then rejected", pending, rb, StatusRejected, nil, "b"},
		{"left rejected wins over right rejected", ra, rb, StatusRejected, nil, "a"},
		{"rejected beats fulfilled", fa, rb, StatusRejected, nil, "b"},
		{"pending beats fulfilled", fa, pending, StatusPending, nil, ""},
		{"pending beats idle", idle, pending, StatusPending, nil, ""},
		{"fulfilled combine", fa, fb, StatusFulfilled, []int{1, 2}, ""},
		{"idle idle", idle, idle, StatusIdle, nil, ""},
		{"fulfilled idle", fa, idle, StatusFulfilled, []int{1}, ""},
		{"idle fulfilled", idle, fb, StatusFulfilled, []int{2}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Join(tt.a, tt.b, concat)
			require.Equal(t, tt.status, got.Status())
			if d, ok := got.Data(); ok {
				assert.Equal(t, tt.data, d)
			}
			if e, ok := got.Err(); ok {
				assert.Equal(t, tt.err, e)
			}
		})
	}
}

func TestIsAny(t *testing.T) {
	disabled := func(x v) bool {
		return IsAny(x, IsPending[[]int, string], IsFulfilled[[]int, string])
	}
	assert.True(t, disabled(Pending[[]int, string]()))
	assert.True(t, disabled(Fulfilled[[]int, string](nil)))
	assert.False(t, disabled(Idle[[]int, string]()))
	assert.False(t, disabled(Rejected[[]int]("x")))
	assert.False(t, IsAny(Pending[[]int, string]()))
}

func TestJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(Fulfilled[[]int, string]([]int{3}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"fulfilled","data":[3]}`, string(b))

	b, err = json.Marshal(Rejected[[]int]("bad"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"rejected","error":"bad"}`, string(b))

	var back v
	require.NoError(t, json.Unmarshal([]byte(`{"status":"pending"}`), &back))
	assert.True(t, back.IsPending())

	assert.Error(t, json.Unmarshal([]byte(`{"status":"weird"}`), &back))
}
