package graphstorage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/annisgo/pkg/graphmodel"
)

// writeableFactories covers every registered implementation that supports
// direct mutation; TransitiveClosure is read-only and tested separately via
// Copy from one of these.
var writeableFactories = map[string]func() WriteableGraphStorage{
	"AdjacencyList": func() WriteableGraphStorage { return NewAdjacencyList() },
	"Linear":        func() WriteableGraphStorage { return NewLinear() },
	"PrePostOrder":  func() WriteableGraphStorage { return NewPrePostOrder() },
}

func chain(gs WriteableGraphStorage, ids ...graphmodel.NodeID) {
	for i := 0; i+1 < len(ids); i++ {
		gs.AddEdge(graphmodel.Edge{Source: ids[i], Target: ids[i+1]})
	}
}

func TestGraphStorageContractFindConnected(t *testing.T) {
	for name, factory := range writeableFactories {
		t.Run(name, func(t *testing.T) {
			gs := factory()
			chain(gs, 1, 2, 3, 4)

			direct := gs.FindConnected(1, 1, 1)
			require.ElementsMatch(t, []graphmodel.NodeID{2}, direct)

			within3 := gs.FindConnected(1, 1, 3)
			require.ElementsMatch(t, []graphmodel.NodeID{2, 3, 4}, within3)

			require.True(t, gs.IsConnected(1, 4, 1, 3))
			require.False(t, gs.IsConnected(1, 4, 1, 2))
		})
	}
}

func TestGraphStorageContractOutgoingIngoing(t *testing.T) {
	for name, factory := range writeableFactories {
		t.Run(name, func(t *testing.T) {
			gs := factory()
			gs.AddEdge(graphmodel.Edge{Source: 1, Target: 2})

			out := gs.Outgoing(1)
			require.Len(t, out, 1)
			require.Equal(t, graphmodel.NodeID(2), out[0].Target)

			in := gs.Ingoing(2)
			require.Len(t, in, 1)
			require.Equal(t, graphmodel.NodeID(1), in[0].Source)
		})
	}
}

func TestGraphStorageContractDeleteEdgeRemovesReachability(t *testing.T) {
	for name, factory := range writeableFactories {
		t.Run(name, func(t *testing.T) {
			gs := factory()
			chain(gs, 1, 2, 3)
			gs.DeleteEdge(graphmodel.Edge{Source: 1, Target: 2})

			require.Empty(t, gs.Outgoing(1))
			require.False(t, gs.IsConnected(1, 3, 1, 10))
		})
	}
}

func TestGraphStorageContractEdgeAnnotations(t *testing.T) {
	for name, factory := range writeableFactories {
		t.Run(name, func(t *testing.T) {
			gs := factory()
			e := graphmodel.Edge{Source: 1, Target: 2}
			gs.AddEdge(e)
			gs.EdgeAnnotations().Insert(e, graphmodel.Annotation{
				Key:   graphmodel.AnnoKey{NS: "annis", Name: "func"},
				Value: "subj",
			})

			v, ok := gs.EdgeAnnotations().Get(e, graphmodel.AnnoKey{NS: "annis", Name: "func"})
			require.True(t, ok)
			require.Equal(t, "subj", v)
		})
	}
}

func TestTransitiveClosureCopyFromAdjacencyList(t *testing.T) {
	src := NewAdjacencyList()
	chain(src, 1, 2, 3, 4)

	tc := NewTransitiveClosure()
	src.Copy(tc)

	require.True(t, tc.IsConnected(1, 4, 1, 10))
	require.ElementsMatch(t, []graphmodel.NodeID{2, 3, 4}, tc.FindConnected(1, 1, 10))
}

func TestGetOptimalImplHeuristicPrefersLinearForChains(t *testing.T) {
	impl := GetOptimalImplHeuristic(graphmodel.Ordering, graphmodel.GraphStatistics{AvgFanOut: 1.0, NodeCount: 10})
	require.Equal(t, ImplLinear, impl)
}

func TestGetOptimalImplHeuristicPrefersPrePostOrderForAcyclicDominance(t *testing.T) {
	impl := GetOptimalImplHeuristic(graphmodel.Dominance, graphmodel.GraphStatistics{Cyclic: false, NodeCount: 10})
	require.Equal(t, ImplPrePostOrder, impl)
}

func TestGetOptimalImplHeuristicFallsBackToAdjacencyListForLargeGraphs(t *testing.T) {
	impl := GetOptimalImplHeuristic(graphmodel.Coverage, graphmodel.GraphStatistics{NodeCount: 1_000_000, MaxDepth: 5})
	require.Equal(t, ImplAdjacencyList, impl)
}

func TestSerializeDeserializeRoundTrips(t *testing.T) {
	dir := t.TempDir()
	gs := NewAdjacencyList()
	chain(gs, 1, 2, 3)
	e := graphmodel.Edge{Source: 1, Target: 2}
	gs.EdgeAnnotations().Insert(e, graphmodel.Annotation{Key: graphmodel.AnnoKey{NS: "annis", Name: "func"}, Value: "subj"})

	require.NoError(t, Serialize(dir, gs))

	loaded, err := Deserialize(dir)
	require.NoError(t, err)
	require.ElementsMatch(t, gs.AllEdges(), loaded.AllEdges())

	v, ok := loaded.EdgeAnnotations().Get(e, graphmodel.AnnoKey{NS: "annis", Name: "func"})
	require.True(t, ok)
	require.Equal(t, "subj", v)
}
