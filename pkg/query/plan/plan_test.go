package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/annisgo/pkg/aql"
	"github.com/cuemby/annisgo/pkg/corpus"
	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/query/conjunction"
	"github.com/cuemby/annisgo/pkg/query/planner"
	"github.com/cuemby/annisgo/pkg/updatelog"
)

func buildExecutionPlan(t *testing.T, g *graph.Graph, query string) *ExecutionPlan {
	t.Helper()
	expr, err := aql.Parse(query)
	require.NoError(t, err)
	disj, err := aql.Normalize(expr)
	require.NoError(t, err)
	ep, err := Build("test-corpus", g, disj, conjunction.Options{}, planner.Options{})
	require.NoError(t, err)
	return ep
}

func twoTokenGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(t.TempDir())
	require.NoError(t, g.Apply([]updatelog.Event{
		updatelog.AddNode{NodeName: "doc#n1", NodeType: "node"},
		updatelog.AddNode{NodeName: "doc#n2", NodeType: "node"},
		updatelog.AddNodeLabel{NodeName: "doc#n1", Namespace: "annis", Name: "tok", Value: "a"},
		updatelog.AddNodeLabel{NodeName: "doc#n2", Namespace: "annis", Name: "tok", Value: "b"},
	}))
	return g
}

func TestIterateSingleAlternativeIsProxyModeWithNoDedup(t *testing.T) {
	g := twoTokenGraph(t)
	ep := buildExecutionPlan(t, g, "tok")

	var count int
	for range ep.Iterate(context.Background()) {
		count++
	}
	require.Equal(t, 2, count)
}

func TestIterateDisjunctionDedupsSameBindingAcrossAlternatives(t *testing.T) {
	g := twoTokenGraph(t)
	ep := buildExecutionPlan(t, g, "tok | tok")
	require.Len(t, ep.alternatives, 2)

	var count int
	for range ep.Iterate(context.Background()) {
		count++
	}
	require.Equal(t, 2, count)
}

func TestIterateReordersTuplesToSourceVariableOrder(t *testing.T) {
	g := graph.New(t.TempDir())
	require.NoError(t, g.Apply([]updatelog.Event{
		updatelog.AddNode{NodeName: "doc#n1", NodeType: "node"},
		updatelog.AddNode{NodeName: "doc#n2", NodeType: "node"},
		updatelog.AddNodeLabel{NodeName: "doc#n1", Namespace: "annis", Name: "tok", Value: "a"},
		updatelog.AddNodeLabel{NodeName: "doc#n2", Namespace: "annis", Name: "tok", Value: "b"},
		updatelog.AddEdge{SourceNode: "doc#n1", TargetNode: "doc#n2", Layer: "annis", ComponentType: string(graphmodel.Ordering), ComponentName: "annis"},
	}))
	ep := buildExecutionPlan(t, g, "tok #a & tok #b & #a .1,1 #b")
	require.Equal(t, []string{"a", "b"}, ep.NodeOrder())

	n1, _ := g.IDFromName("doc#n1")
	n2, _ := g.IDFromName("doc#n2")

	var got [][]graphmodel.NodeID
	for tup := range ep.Iterate(context.Background()) {
		ids := make([]graphmodel.NodeID, len(tup.Nodes))
		for i, m := range tup.Nodes {
			ids[i] = m.Node
		}
		got = append(got, ids)
	}
	require.Equal(t, [][]graphmodel.NodeID{{n1, n2}}, got)
}

func TestCheckTimeoutReturnsErrorAfterCancellation(t *testing.T) {
	ep := buildExecutionPlan(t, twoTokenGraph(t), "tok | tok")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The timeout check inside Iterate only runs every checkInterval tuples,
	// so a small result set still drains fully; CheckTimeout is the
	// authoritative post-hoc signal callers rely on.
	for range ep.Iterate(ctx) {
	}
	require.Error(t, ep.CheckTimeout(ctx))

	var timeoutErr *corpus.TimeoutError
	require.ErrorAs(t, ep.CheckTimeout(ctx), &timeoutErr)
}

func TestCheckTimeoutIsNilWhenContextNotExpired(t *testing.T) {
	ep := &ExecutionPlan{corpusName: "c"}
	require.NoError(t, ep.CheckTimeout(context.Background()))
	require.NoError(t, ep.CheckTimeout(nil))
}
