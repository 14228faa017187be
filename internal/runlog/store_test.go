package runlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mytua/wcsync/pkg/models"
)

func summary(id string) models.RunSummary {
	return models.RunSummary{
		RunID:       id,
		Created:     2,
		Updated:     1,
		StartedAt:   time.Now().Add(-time.Minute),
		CompletedAt: time.Now(),
	}
}

func TestAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")

	s := NewStore(path)
	require.NoError(t, s.Load())
	require.NoError(t, s.Append(summary("run-1")))
	require.NoError(t, s.Append(summary("run-2")))

	reloaded := NewStore(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 2, reloaded.Count())

	runs := reloaded.Runs()
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, "run-2", runs[1].RunID)
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.Count())
}

func TestRecentRuns(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "runs.json"))
	require.NoError(t, s.Load())
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(summary(string(rune('a'+i)))))
	}

	recent := s.RecentRuns(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "d", recent[0].RunID)
	assert.Equal(t, "e", recent[1].RunID)

	assert.Len(t, s.RecentRuns(100), 5)
}

func TestHistoryIsBounded(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "runs.json"))
	require.NoError(t, s.Load())
	for i := 0; i < maxRuns+10; i++ {
		require.NoError(t, s.Append(summary("run")))
	}
	assert.Equal(t, maxRuns, s.Count())
}
