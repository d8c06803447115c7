package engine

import (
	"errors"
	"testing"

	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/phase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanStarted(ids ...domain.Identity) CleanEvent {
	return phase.Started[[]domain.Identity, struct{}](ids)
}

func cleanSucceeded(ids ...domain.Identity) CleanEvent {
	return phase.Succeeded(ids, struct{}{})
}

func cleanFailed(err error, ids ...domain.Identity) CleanEvent {
	return phase.Failed[[]domain.Identity, struct{}](ids, err)
}

func TestCleanStartClearsSelection(t *testing.T) {
	s := ApplyBatch(Initial(), fulfilledBatch(nil, project("/a", 1), project("/b", 1)))
	a, b := s.Known[0].Identity, s.Known[1].Identity
	s = SetSelection(s, []domain.Identity{a, b}, true)

	s = RecordCleanOutcome(s, cleanStarted(a))

	assert.Equal(t, []domain.Identity{b}, s.Selected())
	assert.True(t, s.CleanStatusOf(a).IsPending())
	assert.True(t, s.CleanStatusOf(b).IsIdle())
}

func TestCleanSuccessCreditsArtifactSize(t *testing.T) {
	s := ApplyBatch(Initial(), fulfilledBatch(nil, project("/a", 2048)))
	id := s.Known[0].Identity

	s = RecordCleanOutcome(s, cleanStarted(id))
	s = RecordCleanOutcome(s, cleanSucceeded(id))

	assert.Equal(t, uint64(2048), s.CleanedSpace)
	msg, ok := s.CleanStatusOf(id).Data()
	require.True(t, ok)
	assert.Equal(t, CleanSuccessMessage, msg)

	p, ok := s.Project(id)
	require.True(t, ok)
	assert.False(t, p.HasArtifacts)
	assert.False(t, p.Selected)
	assert.Zero(t, s.ReclaimableSpace())
}

func TestCleanDuplicateSuccessCountsOnce(t *testing.T) {
	s := ApplyBatch(Initial(), fulfilledBatch(nil, project("/a", 2048)))
	id := s.Known[0].Identity

	s = RecordCleanOutcome(s, cleanSucceeded(id))
	s = RecordCleanOutcome(s, cleanSucceeded(id))

	assert.Equal(t, uint64(2048), s.CleanedSpace)
}

func TestCleanFailureRecordsMessage(t *testing.T) {
	s := ApplyBatch(Initial(), fulfilledBatch(nil, project("/a", 512)))
	id := s.Known[0].Identity

	s = RecordCleanOutcome(s, cleanStarted(id))
	s = RecordCleanOutcome(s, cleanFailed(errors.New("permission denied"), id))

	msg, ok := s.CleanStatusOf(id).Err()
	require.True(t, ok)
	assert.Equal(t, "permission denied", msg)
	assert.Zero(t, s.CleanedSpace)

	p, _ := s.Project(id)
	assert.True(t, p.HasArtifacts)
}

func TestCleanStatusKeepsFirstAttemptOrder(t *testing.T) {
	s := ApplyBatch(Initial(), fulfilledBatch(nil, project("/a", 1), project("/b", 1)))
	a, b := s.Known[0].Identity, s.Known[1].Identity

	s = RecordCleanOutcome(s, cleanStarted(b))
	s = RecordCleanOutcome(s, cleanStarted(a))
	s = RecordCleanOutcome(s, cleanSucceeded(b))

	var order []domain.Identity
	for pair := s.Cleaned.Oldest(); pair != nil; pair = pair.Next() {
		order = append(order, pair.Key)
	}
	assert.Equal(t, []domain.Identity{b, a}, order)
}

func TestPreferencesFetch(t *testing.T) {
	s := Initial()
	s = PreferencesFetchMatcher.Reduce(s, phase.Started[struct{}, domain.Config](struct{}{}))
	assert.True(t, s.Preferences.Fetch.IsPending())

	s = PreferencesFetchMatcher.Reduce(s, phase.Succeeded(struct{}{}, domain.Config{EnableGlass: false}))
	assert.True(t, s.Preferences.Fetch.IsFulfilled())
	assert.False(t, s.Preferences.Config.EnableGlass)

	boom := domain.ConfigIOFailed("read", errors.New("locked"))
	s = PreferencesFetchMatcher.Reduce(s, phase.Failed[struct{}, domain.Config](struct{}{}, boom))
	err, ok := s.Preferences.Fetch.Err()
	require.True(t, ok)
	assert.True(t, domain.IsCode(err, domain.ErrCodeConfigIOFailed))
	assert.False(t, s.Preferences.Config.EnableGlass, "failed read keeps the held record")
}
