package symtab

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternIsIdempotent(t *testing.T) {
	s := New[string]()
	id1 := s.Intern("ns::name")
	id2 := s.Intern("ns::name")
	require.Equal(t, id1, id2)

	other := s.Intern("other")
	require.NotEqual(t, id1, other)
}

func TestLookupRoundTrips(t *testing.T) {
	s := New[string]()
	id := s.Intern("value")

	v, ok := s.Lookup(id)
	require.True(t, ok)
	require.Equal(t, "value", v)

	got, ok := s.LookupID("value")
	require.True(t, ok)
	require.Equal(t, id, got)

	_, ok = s.LookupID("missing")
	require.False(t, ok)
}

func TestSnapshotRestoreReconstructsInverse(t *testing.T) {
	s := New[string]()
	idA := s.Intern("a")
	idB := s.Intern("b")

	snap := s.Snapshot()

	restored := New[string]()
	restored.Restore(snap)

	v, ok := restored.Lookup(idA)
	require.True(t, ok)
	require.Equal(t, "a", v)
	v, ok = restored.Lookup(idB)
	require.True(t, ok)
	require.Equal(t, "b", v)

	got, ok := restored.LookupID("a")
	require.True(t, ok)
	require.Equal(t, idA, got)
}

func TestRemoveDropsValueWhenRefCountReachesZero(t *testing.T) {
	s := New[string]()
	id := s.Intern("v")
	s.Remove(id)

	_, ok := s.Lookup(id)
	require.False(t, ok)
}
