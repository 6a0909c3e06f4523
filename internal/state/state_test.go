package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "triage_state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMarkAndQueryConsumed(t *testing.T) {
	s := openTestStore(t)

	consumed, err := s.Consumed(StageBoundaryFinding)
	require.NoError(t, err)
	assert.False(t, consumed)

	require.NoError(t, s.MarkConsumed(StageBoundaryFinding))

	consumed, err = s.Consumed(StageBoundaryFinding)
	require.NoError(t, err)
	assert.True(t, consumed)
}

func TestMarkConsumedIsOneShot(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.MarkConsumed(StageBoundaryFinding))

	err := s.MarkConsumed(StageBoundaryFinding)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyConsumed)
}

func TestConsumedSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triage_state.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.MarkConsumed("diagnose"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	consumed, err := s.Consumed("diagnose")
	require.NoError(t, err)
	assert.True(t, consumed)
}

func TestListOrdersByTime(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.MarkConsumed("a"))
	require.NoError(t, s.MarkConsumed("b"))

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Stage)
	assert.Equal(t, "b", records[1].Stage)
	assert.False(t, records[0].ConsumedAt.IsZero())
}
