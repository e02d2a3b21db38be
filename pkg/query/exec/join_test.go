package exec

import (
	"iter"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
)

// fakePlan yields a fixed slice of tuples, enough to drive the join operators
// under test without needing a real node search.
type fakePlan struct {
	tuples []Tuple
	vars   []string
}

func (f fakePlan) Iterate() iter.Seq[Tuple] {
	return func(yield func(Tuple) bool) {
		for _, t := range f.tuples {
			if !yield(t) {
				return
			}
		}
	}
}
func (f fakePlan) Vars() []string              { return f.vars }
func (f fakePlan) EstimatedOutputSize() uint64 { return uint64(len(f.tuples)) }
func (f fakePlan) IsSortedByText() bool        { return false }

func tupleOf(ids ...graphmodel.NodeID) Tuple {
	nodes := make([]graphmodel.Match, len(ids))
	for i, id := range ids {
		nodes[i] = graphmodel.Match{Node: id}
	}
	return Tuple{Nodes: nodes}
}

// successorOp treats RetrieveMatches/Filter as "rhs == lhs+1", a minimal
// stand-in for a real operator that lets the join mechanics be tested in
// isolation from the graph-backed operators.
type successorOp struct{}

func (successorOp) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool { return rhs == lhs+1 }
func (successorOp) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	return []graphmodel.NodeID{lhs + 1}
}
func (successorOp) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 { return 0.5 }
func (successorOp) IsReflexive() bool                                           { return false }
func (successorOp) InverseHasSameCost() bool                                    { return false }
func (successorOp) Name() string                                               { return "successor" }

func TestIndexJoinAppendsMatchingCandidate(t *testing.T) {
	outer := fakePlan{tuples: []Tuple{tupleOf(1), tupleOf(2)}, vars: []string{"a"}}
	j := IndexJoin{
		Outer:    outer,
		OuterPos: 0,
		Op:       successorOp{},
		RHSVar:   "b",
	}

	var out []Tuple
	for tup := range j.Iterate() {
		out = append(out, tup)
	}
	require.Len(t, out, 2)
	require.Equal(t, graphmodel.NodeID(2), out[0].Nodes[1].Node)
	require.Equal(t, graphmodel.NodeID(3), out[1].Nodes[1].Node)
	require.Equal(t, []string{"a", "b"}, j.Vars())
}

func TestIndexJoinDropsNonReflexiveSelfMatch(t *testing.T) {
	outer := fakePlan{tuples: []Tuple{tupleOf(5)}}
	j := IndexJoin{
		Outer: outer,
		Op: reflexiveSameOp{},
	}

	var out []Tuple
	for tup := range j.Iterate() {
		out = append(out, tup)
	}
	require.Empty(t, out)
}

// reflexiveSameOp always proposes the same node as a candidate, used to
// exercise IndexJoin's non-reflexive self-match suppression.
type reflexiveSameOp struct{}

func (reflexiveSameOp) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool { return lhs == rhs }
func (reflexiveSameOp) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	return []graphmodel.NodeID{lhs}
}
func (reflexiveSameOp) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 { return 1 }
func (reflexiveSameOp) IsReflexive() bool                                           { return true }
func (reflexiveSameOp) InverseHasSameCost() bool                                     { return true }
func (reflexiveSameOp) Name() string                                                { return "reflexiveSame" }

func TestNestedLoopPairsOuterAndInnerPassingFilter(t *testing.T) {
	outer := fakePlan{tuples: []Tuple{tupleOf(1), tupleOf(10)}, vars: []string{"a"}}
	inner := fakePlan{tuples: []Tuple{tupleOf(2), tupleOf(11)}, vars: []string{"b"}}

	nl := &NestedLoop{
		Outer: outer,
		Inner: inner,
		Op:    successorOp{},
	}

	var out []Tuple
	for tup := range nl.Iterate() {
		out = append(out, tup)
	}
	require.Len(t, out, 2)
	require.Equal(t, graphmodel.NodeID(1), out[0].Nodes[0].Node)
	require.Equal(t, graphmodel.NodeID(2), out[0].Nodes[1].Node)
	require.Equal(t, graphmodel.NodeID(10), out[1].Nodes[0].Node)
	require.Equal(t, graphmodel.NodeID(11), out[1].Nodes[1].Node)
}

func TestNestedLoopCachesInnerAcrossIterations(t *testing.T) {
	callCount := 0
	inner := &countingPlan{fakePlan: fakePlan{tuples: []Tuple{tupleOf(2)}}, calls: &callCount}
	outer := fakePlan{tuples: []Tuple{tupleOf(1), tupleOf(1)}}

	nl := &NestedLoop{Outer: outer, Inner: inner, Op: successorOp{}}

	for range nl.Iterate() {
	}
	for range nl.Iterate() {
	}
	require.Equal(t, 1, callCount)
}

type countingPlan struct {
	fakePlan
	calls *int
}

func (c *countingPlan) Iterate() iter.Seq[Tuple] {
	*c.calls++
	return c.fakePlan.Iterate()
}

// firstNodes extracts Nodes[0].Node from every tuple and sorts them, since
// the parallel operators don't preserve production order.
func firstNodes(tuples []Tuple) []graphmodel.NodeID {
	out := make([]graphmodel.NodeID, len(tuples))
	for i, t := range tuples {
		out[i] = t.Nodes[0].Node
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestParallelIndexJoinMatchesIndexJoinResultSet(t *testing.T) {
	var ids []graphmodel.NodeID
	for i := graphmodel.NodeID(1); i <= 500; i++ {
		ids = append(ids, i)
	}
	var tuples []Tuple
	for _, id := range ids {
		tuples = append(tuples, tupleOf(id))
	}
	outer := fakePlan{tuples: tuples, vars: []string{"a"}}

	seq := IndexJoin{Outer: outer, Op: successorOp{}, RHSVar: "b"}
	par := ParallelIndexJoin{IndexJoin: IndexJoin{Outer: outer, Op: successorOp{}, RHSVar: "b"}, Workers: 8}

	var seqOut, parOut []Tuple
	for tup := range seq.Iterate() {
		seqOut = append(seqOut, tup)
	}
	for tup := range par.Iterate() {
		parOut = append(parOut, tup)
	}

	require.Len(t, parOut, len(seqOut))
	require.Equal(t, firstNodes(seqOut), firstNodes(parOut))
	require.Equal(t, []string{"a", "b"}, par.Vars())
}

func TestParallelNestedLoopMatchesNestedLoopResultSet(t *testing.T) {
	var outerTuples, innerTuples []Tuple
	for i := graphmodel.NodeID(1); i <= 200; i++ {
		outerTuples = append(outerTuples, tupleOf(i))
		innerTuples = append(innerTuples, tupleOf(i+1))
	}
	outer := fakePlan{tuples: outerTuples, vars: []string{"a"}}
	inner := fakePlan{tuples: innerTuples, vars: []string{"b"}}

	seq := &NestedLoop{Outer: outer, Inner: inner, Op: successorOp{}}
	par := &ParallelNestedLoop{
		NestedLoop: NestedLoop{Outer: outer, Inner: inner, Op: successorOp{}},
		Workers:    8,
	}

	var seqOut, parOut []Tuple
	for tup := range seq.Iterate() {
		seqOut = append(seqOut, tup)
	}
	for tup := range par.Iterate() {
		parOut = append(parOut, tup)
	}

	require.Len(t, parOut, len(seqOut))
	require.Equal(t, firstNodes(seqOut), firstNodes(parOut))
}

func TestFilterDropsTuplesFailingPredicate(t *testing.T) {
	inner := fakePlan{tuples: []Tuple{tupleOf(1), tupleOf(2), tupleOf(3)}}
	f := Filter{
		Inner: inner,
		Predicate: func(tup Tuple) bool {
			return tup.Nodes[0].Node%2 == 0
		},
	}

	var out []Tuple
	for tup := range f.Iterate() {
		out = append(out, tup)
	}
	require.Len(t, out, 1)
	require.Equal(t, graphmodel.NodeID(2), out[0].Nodes[0].Node)
}
