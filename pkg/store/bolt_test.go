package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bin")
	c, err := Open(path, "b1")
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Put("b1", "k", []int{1, 2, 3}))

	var out []int
	ok, err := c.Get("b1", "k", &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int{1, 2, 3}, out)
}

func TestGetMissingKeyReturnsFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bin")
	c, err := Open(path, "b1")
	require.NoError(t, err)
	defer c.Close()

	var out string
	ok, err := c.Get("b1", "missing", &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReopenPreservesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bin")
	c, err := Open(path, "b1")
	require.NoError(t, err)
	require.NoError(t, c.Put("b1", "k", "v"))
	require.NoError(t, c.Close())

	c2, err := Open(path, "b1")
	require.NoError(t, err)
	defer c2.Close()

	var out string
	ok, err := c2.Get("b1", "k", &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", out)
}
