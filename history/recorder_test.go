package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)

	r, err := NewRecorder(db, zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestRecorder_RecordAndRecent(t *testing.T) {
	r := newTestRecorder(t)

	r.Record("click", "dom", "success", 120*time.Millisecond)
	r.Record("click", "visual", "timeout", 10*time.Second)
	r.Record("goto", "launcher", "not_attempted", 0)

	entries, err := r.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, "goto", entries[0].Action)
	assert.Equal(t, "launcher", entries[0].Route)
	assert.Equal(t, "click", entries[2].Action)
	assert.Equal(t, "dom", entries[2].Route)
	assert.Equal(t, int64(120), entries[2].DurationMS)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestRecorder_RecentLimit(t *testing.T) {
	r := newTestRecorder(t)

	for i := 0; i < 5; i++ {
		r.Record("scroll", "dom", "success", time.Millisecond)
	}

	entries, err := r.Recent(2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecorder_CountByRoute(t *testing.T) {
	r := newTestRecorder(t)

	r.Record("click", "dom", "success", 0)
	r.Record("type", "dom", "success", 0)
	r.Record("click", "visual", "failure", 0)
	r.Record("screenshot", "unavailable", "not_attempted", 0)

	counts, err := r.CountByRoute()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		"dom":         2,
		"visual":      1,
		"unavailable": 1,
	}, counts)
}

func TestRecorder_EmptyStore(t *testing.T) {
	r := newTestRecorder(t)

	entries, err := r.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	counts, err := r.CountByRoute()
	require.NoError(t, err)
	assert.Empty(t, counts)
}
