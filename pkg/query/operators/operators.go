// Package operators implements the binary and unary relational operators of
// AQL: precedence, dominance, pointing, overlap, inclusion, alignment,
// identical-node/coverage, part-of, value-compare, and their unary
// counterparts (arity, non-existing).
package operators

import (
	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
)

// BinaryOperator is the capability set every relational operator between two
// node positions must provide.
type BinaryOperator interface {
	// Filter reports whether the pair (lhs, rhs) satisfies the operator.
	Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool
	// RetrieveMatches returns every node reachable from lhs via this
	// operator, used by IndexJoin to avoid a full inner scan.
	RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID
	// EstimateSelectivity returns the fraction of the cross product this
	// operator is expected to keep, used by the planner's cost model.
	EstimateSelectivity(stats graphmodel.GraphStatistics) float64
	// IsReflexive reports whether lhs == rhs is an acceptable match.
	IsReflexive() bool
	// InverseHasSameCost reports whether swapping operand order and using
	// the inverse operator produces an equally cheap plan.
	InverseHasSameCost() bool
	// Name identifies the operator for diagnostics.
	Name() string
}

// UnaryOperator constrains a single node position.
type UnaryOperator interface {
	Filter(g *graph.Graph, n graphmodel.NodeID) bool
	Name() string
}

const defaultSelectivityPrior = 0.1

// componentsOf returns the components matching componentType and, if name
// is non-empty, that specific name; otherwise every component of that type.
func componentsOf(g *graph.Graph, componentType graphmodel.ComponentType, layer, name string) []graphmodel.Component {
	var out []graphmodel.Component
	for _, c := range g.Components() {
		if c.Type != componentType {
			continue
		}
		if name != "" && c.Name != name {
			continue
		}
		if layer != "" && c.Layer != layer {
			continue
		}
		out = append(out, c)
	}
	return out
}
