package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mmcdole/kondo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfIsDeterministic(t *testing.T) {
	ctx := context.Background()
	for _, path := range []string{"", "/a", "~/code/kondo", "/a/b/c with spaces"} {
		first, err := Of(ctx, path)
		require.NoError(t, err)
		second, err := Of(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, first, second, "identity of %q", path)
		assert.Len(t, string(first), 64)
	}
}

func TestOfKnownDigest(t *testing.T) {
	id, err := Of(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"), id)
}

func TestOfDistinctInputs(t *testing.T) {
	ctx := context.Background()
	a, err := Of(ctx, "/a")
	require.NoError(t, err)
	b, err := Of(ctx, "/b")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOfCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Of(ctx, "/a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssignPreservesOrder(t *testing.T) {
	raw := make([]domain.RawProject, 50)
	for i := range raw {
		raw[i] = domain.RawProject{Path: fmt.Sprintf("/p/%d", i), ProjectType: domain.ProjectNode}
	}

	projects, err := Projects(context.Background(), NewAssigner(nil, 4), raw)
	require.NoError(t, err)
	require.Len(t, projects, len(raw))

	for i, p := range projects {
		assert.Equal(t, raw[i].Path, p.Path)
		want, _ := Of(context.Background(), raw[i].Path)
		assert.Equal(t, want, p.Identity)
		assert.False(t, p.Selected)
	}
}

func TestAssignDerivesHasArtifacts(t *testing.T) {
	raw := []domain.RawProject{
		{Path: "/a", Size: domain.ProjectSize{ArtifactSize: 1024}},
		{Path: "/b", Size: domain.ProjectSize{ArtifactSize: 0}},
	}
	projects, err := Projects(context.Background(), nil, raw)
	require.NoError(t, err)
	assert.True(t, projects[0].HasArtifacts)
	assert.False(t, projects[1].HasArtifacts)
}

func TestAssignFailsWholeBatch(t *testing.T) {
	boom := errors.New("digest unavailable")
	digest := func(ctx context.Context, input string) (domain.Identity, error) {
		if input == "/bad" {
			return "", boom
		}
		return Of(ctx, input)
	}
	raw := []domain.RawProject{{Path: "/ok"}, {Path: "/bad"}, {Path: "/also-ok"}}

	projects, err := Projects(context.Background(), NewAssigner(digest, 1), raw)
	require.Error(t, err)
	assert.Nil(t, projects)
	assert.True(t, domain.IsCode(err, domain.ErrCodeIdentityFailed))
	assert.ErrorIs(t, err, boom)
}

func TestAssignEmpty(t *testing.T) {
	projects, err := Projects(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, projects)
}
