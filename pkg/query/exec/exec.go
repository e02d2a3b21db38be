// Package exec implements the pull-iterator execution operators that a
// planned query runs against a Graph: node search, index join, nested loop,
// and predicate filter.
package exec

import (
	"iter"

	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
)

// Tuple is one result row: one Match per query-node position, in query-node
// order.
type Tuple struct {
	Nodes []graphmodel.Match
}

// Plan is the capability set every execution operator provides.
type Plan interface {
	// Iterate lazily produces every tuple this operator yields.
	Iterate() iter.Seq[Tuple]
	// Vars returns the query variable name bound at each tuple position.
	Vars() []string
	// EstimatedOutputSize is the planner's cost-model estimate for this
	// subtree, not a guarantee.
	EstimatedOutputSize() uint64
	// IsSortedByText reports whether tuples are produced in document-path
	// then token-position order without further sorting.
	IsSortedByText() bool
}

// NodeSearch is the leaf operator: a lazy sequence of Matches from
// annotation storage, following whichever access path the planner chose.
type NodeSearch struct {
	Graph     *graph.Graph
	Var       string
	Key       graphmodel.AnnoKey
	Candidate func(g *graph.Graph) []graphmodel.NodeID
	Estimated uint64
	Sorted    bool
}

func (n NodeSearch) Iterate() iter.Seq[Tuple] {
	return func(yield func(Tuple) bool) {
		for _, id := range n.Candidate(n.Graph) {
			if !yield(Tuple{Nodes: []graphmodel.Match{{Node: id, Key: n.Key}}}) {
				return
			}
		}
	}
}

func (n NodeSearch) Vars() []string            { return []string{n.Var} }
func (n NodeSearch) EstimatedOutputSize() uint64 { return n.Estimated }
func (n NodeSearch) IsSortedByText() bool        { return n.Sorted }
