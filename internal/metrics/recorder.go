// Package metrics records reconciliation activity. Implementations may forward
// to Prometheus; NoopRecorder is the default when metrics are not configured.
package metrics

// Recorder defines observability hooks for the engine, the clean fan-out and
// the push bridge.
type Recorder interface {
	IncTransition(name string)
	SetProjects(n int)
	SetReclaimableBytes(n uint64)
	IncCleanResult(success bool)
	AddCleanedBytes(n uint64)
	IncNotification(topic string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncTransition(string)       {}
func (NoopRecorder) SetProjects(int)            {}
func (NoopRecorder) SetReclaimableBytes(uint64) {}
func (NoopRecorder) IncCleanResult(bool)        {}
func (NoopRecorder) AddCleanedBytes(uint64)     {}
func (NoopRecorder) IncNotification(string)     {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
