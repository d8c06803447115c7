package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mmcdole/kondo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTripPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "kondo.db")

	s, err := Open(path)
	require.NoError(t, err)

	_, ok, err := s.GetConfig()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutConfig(domain.Config{EnableGlass: false}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	cfg, ok, err := reopened.GetConfig()
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, cfg.EnableGlass)
}

func TestMemoryOnlyStore(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.PutConfig(domain.Config{EnableGlass: true}))
	cfg, ok, err := s.GetConfig()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cfg.EnableGlass)
}

func TestHistory(t *testing.T) {
	for name, path := range map[string]string{
		"bolt":   filepath.Join(t.TempDir(), "kondo.db"),
		"memory": "",
	} {
		t.Run(name, func(t *testing.T) {
			s, err := Open(path)
			require.NoError(t, err)
			defer s.Close()

			base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			require.NoError(t, s.AppendHistory(CleanRecord{Path: "~/b", Freed: 20, CleanedAt: base.Add(time.Second)}))
			require.NoError(t, s.AppendHistory(CleanRecord{Path: "~/a", ProjectType: domain.ProjectCargo, Freed: 10, CleanedAt: base}))

			records, err := s.History()
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "~/a", records[0].Path)
			assert.Equal(t, domain.ProjectCargo, records[0].ProjectType)
			assert.Equal(t, "~/b", records[1].Path)

			total, err := s.TotalFreed()
			require.NoError(t, err)
			assert.Equal(t, uint64(30), total)
		})
	}
}

func TestStoreImplementsConfigStore(t *testing.T) {
	var _ domain.ConfigStore = (*Store)(nil)
}
