package engine

import (
	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/loading"
	"github.com/mmcdole/kondo/internal/phase"
)

// FetchEvent is one phase of a discovery call followed by identity assignment.
type FetchEvent = phase.Event[struct{}, domain.Batch]

// FetchMatcher merges every fetch phase into the collection.
var FetchMatcher = phase.New(phase.Options[State, struct{}, domain.Batch, domain.Batch, error]{
	Apply: phase.Field[State, struct{}](ApplyBatch),
})

// CleanEvent is one phase of a clean invocation over a set of identities.
type CleanEvent = phase.Event[[]domain.Identity, struct{}]

// CleanMatcher records clean outcomes per targeted identity.
var CleanMatcher = phase.New(phase.Options[State, []domain.Identity, struct{}, string, string]{
	Apply: phase.EachKey(
		func(ids []domain.Identity) []domain.Identity { return ids },
		setCleanStatus,
	),
	Transform:      func(struct{}) string { return CleanSuccessMessage },
	TransformError: func(err error) string { return err.Error() },
	OnStart: func(s State, ids []domain.Identity) State {
		return deselect(s, ids)
	},
	AfterSuccess: markCleaned,
})

// RecordCleanOutcome applies one clean phase: Started clears the selection of
// every target, Succeeded drops their artifacts and credits the cleaned space,
// Failed only records the error.
func RecordCleanOutcome(s State, ev CleanEvent) State {
	return CleanMatcher.Reduce(s, ev)
}

// deselect forces selected=false on the targets, whatever the collection
// lifecycle is.
func deselect(s State, ids []domain.Identity) State {
	targets := identitySet(ids)
	return updateProjects(s, func(p domain.Project) (domain.Project, bool) {
		if !targets[p.Identity] || !p.Selected {
			return p, false
		}
		p.Selected = false
		return p, true
	})
}

// markCleaned credits the prior artifact size of every target that still had
// artifacts, so a duplicate success is not counted twice.
func markCleaned(s State, ids []domain.Identity) State {
	targets := identitySet(ids)
	var credited uint64
	s = updateProjects(s, func(p domain.Project) (domain.Project, bool) {
		if !targets[p.Identity] {
			return p, false
		}
		if p.HasArtifacts {
			credited += p.Size.ArtifactSize
		}
		changed := p.HasArtifacts || p.Selected
		p.HasArtifacts = false
		p.Selected = false
		return p, changed
	})
	s.CleanedSpace += credited
	return s
}

// PreferencesFetchEvent is one phase of reading the configuration record.
type PreferencesFetchEvent = phase.Event[struct{}, domain.Config]

// PreferencesFetchMatcher tracks getConfig; a Fulfilled read replaces the held record.
var PreferencesFetchMatcher = phase.New(phase.Options[State, struct{}, domain.Config, domain.Config, error]{
	Apply: phase.Field[State, struct{}](func(s State, v loading.Value[domain.Config, error]) State {
		s.Preferences.Fetch = v
		if cfg, ok := v.Data(); ok {
			s.Preferences.Config = cfg
		}
		return s
	}),
})

// PreferencesCommitEvent is one phase of writing the configuration record.
type PreferencesCommitEvent = phase.Event[domain.Config, struct{}]

// PreferencesCommitMatcher tracks putConfig.
var PreferencesCommitMatcher = phase.New(phase.Options[State, domain.Config, struct{}, struct{}, error]{
	Apply: phase.Field[State, domain.Config](func(s State, v loading.Value[struct{}, error]) State {
		s.Preferences.Commit = v
		return s
	}),
})
