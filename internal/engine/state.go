// Package engine owns the canonical view of discovered projects and is its
// only writer.
//
// Every exported transition in this file is a pure function from an old State
// to a new one. The Engine type serializes them on a single goroutine.
package engine

import (
	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/loading"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// CleanSuccessMessage is stored for every project whose artifacts were removed.
const CleanSuccessMessage = "Success!"

// ProjectsValue is the lifecycle of the project collection.
type ProjectsValue = loading.Value[[]domain.Project, error]

// BatchValue is one incoming batch from a fetch or a push notification.
type BatchValue = loading.Value[domain.Batch, error]

// PathValue is one search root, which may itself still be resolving.
type PathValue = loading.Value[string, error]

// CleanValue is the status of the latest clean attempt of one project.
type CleanValue = loading.Value[string, string]

// CleanStatus maps identities to their latest clean status in first-attempt order.
type CleanStatus = orderedmap.OrderedMap[domain.Identity, CleanValue]

// State is the canonical collection state.
type State struct {
	// Projects is the lifecycle shown to the user. It turns Pending or
	// Rejected while a batch is in flight or failed.
	Projects ProjectsValue

	// Known is the last successfully merged collection. When Projects is
	// Fulfilled its data is Known.
	Known []domain.Project

	SearchPaths []PathValue

	// Cleaned holds an entry only for identities with at least one clean attempt.
	Cleaned *CleanStatus

	CleanedSpace uint64
	TotalSpace   uint64

	Preferences PreferencesState
}

// PreferencesState tracks the configuration record and its I/O.
type PreferencesState struct {
	Config domain.Config
	Fetch  loading.Value[domain.Config, error]
	Commit loading.Value[struct{}, error]
}

// Initial returns the empty state created at process start.
func Initial() State {
	return State{
		Projects:    loading.Idle[[]domain.Project, error](),
		Cleaned:     orderedmap.New[domain.Identity, CleanValue](),
		Preferences: PreferencesState{Config: domain.DefaultConfig()},
	}
}

// Reset restores the initial state.
func Reset(State) State { return Initial() }

// Project returns the known project with the given identity.
func (s State) Project(id domain.Identity) (domain.Project, bool) {
	for _, p := range s.Known {
		if p.Identity == id {
			return p, true
		}
	}
	return domain.Project{}, false
}

// CleanStatusOf returns the clean status of id, Idle when never attempted.
func (s State) CleanStatusOf(id domain.Identity) CleanValue {
	if s.Cleaned != nil {
		if v, ok := s.Cleaned.Get(id); ok {
			return v
		}
	}
	return loading.Idle[string, string]()
}

// Selected returns the identities of all selected projects in collection order.
func (s State) Selected() []domain.Identity {
	return s.identitiesWhere(func(p domain.Project) bool { return p.Selected })
}

// WithArtifacts returns the identities of all projects that still have artifacts.
func (s State) WithArtifacts() []domain.Identity {
	return s.identitiesWhere(func(p domain.Project) bool { return p.HasArtifacts })
}

func (s State) identitiesWhere(keep func(domain.Project) bool) []domain.Identity {
	var ids []domain.Identity
	for _, p := range s.Known {
		if keep(p) {
			ids = append(ids, p.Identity)
		}
	}
	return ids
}

// ReclaimableSpace sums the artifact size of every project still having artifacts.
func (s State) ReclaimableSpace() uint64 {
	var total uint64
	for _, p := range s.Known {
		if p.HasArtifacts {
			total += p.Size.ArtifactSize
		}
	}
	return total
}

// UnionByIdentity merges incoming into current. A matching identity is
// replaced in place by the incoming entry; unmatched entries of current keep
// their order and new entries follow in arrival order. Duplicates inside
// incoming collapse onto their first position with the last value.
func UnionByIdentity(current, incoming []domain.Project) []domain.Project {
	out := make([]domain.Project, 0, len(current)+len(incoming))
	index := make(map[domain.Identity]int, len(current)+len(incoming))
	for _, p := range current {
		if i, ok := index[p.Identity]; ok {
			out[i] = p
			continue
		}
		index[p.Identity] = len(out)
		out = append(out, p)
	}
	for _, p := range incoming {
		if i, ok := index[p.Identity]; ok {
			out[i] = p
			continue
		}
		index[p.Identity] = len(out)
		out = append(out, p)
	}
	return out
}

// MergeBatch joins the current collection with an incoming batch, unioning
// the project arrays by identity when both sides carry data.
func MergeBatch(current ProjectsValue, incoming BatchValue) ProjectsValue {
	projects := loading.Map(incoming, func(b domain.Batch) []domain.Project { return b.Projects })
	return loading.Join(current, projects, UnionByIdentity)
}

// MergeSearchPaths appends incoming paths. A path is a duplicate only when
// both it and an existing entry are Fulfilled with equal data; unresolved
// entries are never treated as duplicates.
func MergeSearchPaths(current, incoming []PathValue) []PathValue {
	out := append(make([]PathValue, 0, len(current)+len(incoming)), current...)
	seen := make(map[string]bool, len(out))
	for _, p := range out {
		if path, ok := p.Data(); ok {
			seen[path] = true
		}
	}
	for _, p := range incoming {
		if path, ok := p.Data(); ok {
			if seen[path] {
				continue
			}
			seen[path] = true
		}
		out = append(out, p)
	}
	return out
}

// ApplyBatch merges a batch into the canonical state. The join runs against
// the last merged collection, so a Pending or Rejected batch changes only the
// lifecycle shown to the user and the previous data survives. A Fulfilled
// batch also extends the search paths and grows the total space.
func ApplyBatch(s State, incoming BatchValue) State {
	s.Projects = MergeBatch(committed(s), incoming)
	if merged, ok := s.Projects.Data(); ok {
		s.TotalSpace += spaceGrowth(s.Known, merged)
		s.Known = merged
	}
	if b, ok := incoming.Data(); ok {
		paths := make([]PathValue, len(b.SearchPaths))
		for i, p := range b.SearchPaths {
			paths[i] = loading.Fulfilled[string, error](p)
		}
		s.SearchPaths = MergeSearchPaths(s.SearchPaths, paths)
	}
	return s
}

// committed is the collection a new batch is joined against: Idle before the
// first successful merge, otherwise the known projects.
func committed(s State) ProjectsValue {
	if s.Known == nil {
		return loading.Idle[[]domain.Project, error]()
	}
	return loading.Fulfilled[[]domain.Project, error](s.Known)
}

// spaceGrowth sums the artifact bytes each project gained between before and
// after. Shrinking projects contribute nothing, so TotalSpace never drops.
func spaceGrowth(before, after []domain.Project) uint64 {
	prev := make(map[domain.Identity]uint64, len(before))
	for _, p := range before {
		prev[p.Identity] = p.Size.ArtifactSize
	}
	var grown uint64
	for _, p := range after {
		if old := prev[p.Identity]; p.Size.ArtifactSize > old {
			grown += p.Size.ArtifactSize - old
		}
	}
	return grown
}

// ToggleSelection flips the selection of the project with identity id. It is a
// no-op when the collection is not Fulfilled or id is unknown.
func ToggleSelection(s State, id domain.Identity) State {
	if !s.Projects.IsFulfilled() {
		return s
	}
	return updateProjects(s, func(p domain.Project) (domain.Project, bool) {
		if p.Identity != id {
			return p, false
		}
		p.Selected = !p.Selected
		return p, true
	})
}

// SetSelection sets the selection of every listed project.
func SetSelection(s State, ids []domain.Identity, selected bool) State {
	if !s.Projects.IsFulfilled() {
		return s
	}
	targets := identitySet(ids)
	return updateProjects(s, func(p domain.Project) (domain.Project, bool) {
		if !targets[p.Identity] || p.Selected == selected {
			return p, false
		}
		p.Selected = selected
		return p, true
	})
}

// updateProjects copies Known, applies f to every project and keeps a
// Fulfilled Projects value in sync. The input state is never mutated.
func updateProjects(s State, f func(domain.Project) (domain.Project, bool)) State {
	next := make([]domain.Project, len(s.Known))
	changed := false
	for i, p := range s.Known {
		np, ok := f(p)
		next[i] = np
		changed = changed || ok
	}
	if !changed {
		return s
	}
	s.Known = next
	if s.Projects.IsFulfilled() {
		s.Projects = loading.Fulfilled[[]domain.Project, error](next)
	}
	return s
}

func identitySet(ids []domain.Identity) map[domain.Identity]bool {
	set := make(map[domain.Identity]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// setCleanStatus returns a state whose Cleaned map has id set to v, leaving
// the input map untouched.
func setCleanStatus(s State, id domain.Identity, v CleanValue) State {
	next := orderedmap.New[domain.Identity, CleanValue]()
	if s.Cleaned != nil {
		for pair := s.Cleaned.Oldest(); pair != nil; pair = pair.Next() {
			next.Set(pair.Key, pair.Value)
		}
	}
	next.Set(id, v)
	s.Cleaned = next
	return s
}
