package exec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/updatelog"
)

func TestNodeSearchIterateYieldsCandidatesWithKey(t *testing.T) {
	g := graph.New(t.TempDir())
	require.NoError(t, g.Apply([]updatelog.Event{
		updatelog.AddNode{NodeName: "doc#n1", NodeType: "node"},
		updatelog.AddNode{NodeName: "doc#n2", NodeType: "node"},
	}))
	n1, _ := g.IDFromName("doc#n1")
	n2, _ := g.IDFromName("doc#n2")

	key := graphmodel.AnnoKey{NS: "annis", Name: "tok"}
	ns := NodeSearch{
		Graph: g,
		Var:   "x",
		Key:   key,
		Candidate: func(g *graph.Graph) []graphmodel.NodeID {
			return []graphmodel.NodeID{n1, n2}
		},
		Estimated: 2,
		Sorted:    true,
	}

	var got []graphmodel.NodeID
	for tup := range ns.Iterate() {
		require.Len(t, tup.Nodes, 1)
		require.Equal(t, key, tup.Nodes[0].Key)
		got = append(got, tup.Nodes[0].Node)
	}
	require.Equal(t, []graphmodel.NodeID{n1, n2}, got)
	require.Equal(t, []string{"x"}, ns.Vars())
	require.EqualValues(t, 2, ns.EstimatedOutputSize())
	require.True(t, ns.IsSortedByText())
}

func TestNodeSearchIterateStopsWhenYieldReturnsFalse(t *testing.T) {
	g := graph.New(t.TempDir())
	ns := NodeSearch{
		Graph: g,
		Var:   "x",
		Candidate: func(g *graph.Graph) []graphmodel.NodeID {
			return []graphmodel.NodeID{1, 2, 3}
		},
	}

	count := 0
	for range ns.Iterate() {
		count++
		break
	}
	require.Equal(t, 1, count)
}
