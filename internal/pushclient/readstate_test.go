package pushclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestReadState(t *testing.T, path string) *ReadState {
	t.Helper()
	rs, err := OpenReadState(path)
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })
	return rs
}

func TestReadStatePersistsAcrossReopen(t *testing.T) {
	path := t.TempDir()

	rs := openTestReadState(t, path)
	require.NoError(t, rs.MarkRead("a", "b"))
	require.NoError(t, rs.Close())

	rs2, err := OpenReadState(path)
	require.NoError(t, err)
	defer rs2.Close()

	assert.True(t, rs2.IsRead("a"))
	assert.True(t, rs2.IsRead("b"))
	assert.False(t, rs2.IsRead("c"))
	assert.Equal(t, 2, rs2.Len())
}

func TestReadStatePruneAndClear(t *testing.T) {
	rs := openTestReadState(t, t.TempDir())
	require.NoError(t, rs.MarkRead("a", "b", "c"))

	require.NoError(t, rs.Prune("b"))
	assert.False(t, rs.IsRead("b"))
	assert.Equal(t, 2, rs.Len())

	require.NoError(t, rs.Clear())
	assert.Zero(t, rs.Len())
	assert.False(t, rs.IsRead("a"))
}

func TestReadStateMarkReadIdempotent(t *testing.T) {
	rs := openTestReadState(t, t.TempDir())

	require.NoError(t, rs.MarkRead("a"))
	require.NoError(t, rs.MarkRead("a"))
	assert.Equal(t, 1, rs.Len())
}
