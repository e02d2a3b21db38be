package operators

import (
	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
)

// Arity implements `:arity=min[,max]`: the distinct outgoing-neighbor count
// over all Dominance and Pointing components lies in [min, max].
type Arity struct {
	Min, Max int // Max <= 0 means unbounded.
}

func (a Arity) Filter(g *graph.Graph, n graphmodel.NodeID) bool {
	neighbors := map[graphmodel.NodeID]bool{}
	for _, ctype := range []graphmodel.ComponentType{graphmodel.Dominance, graphmodel.Pointing} {
		for _, c := range componentsOf(g, ctype, "", "") {
			gs, err := g.Component(c)
			if err != nil {
				continue
			}
			for _, e := range gs.Outgoing(n) {
				neighbors[e.Target] = true
			}
		}
	}
	count := len(neighbors)
	if count < a.Min {
		return false
	}
	if a.Max > 0 && count > a.Max {
		return false
	}
	return true
}

func (a Arity) Name() string { return "Arity" }

// NonExistingUnary projects a binary operator as a unary filter over its
// non-optional side: it succeeds iff no partner node satisfies the embedded
// binary operator. Installed by the conjunction builder when exactly one
// side of a negated binary operator is an optional node.
type NonExistingUnary struct {
	Op        BinaryOperator
	OtherSide func(g *graph.Graph) []graphmodel.NodeID
}

func (n NonExistingUnary) Filter(g *graph.Graph, node graphmodel.NodeID) bool {
	for _, other := range n.OtherSide(g) {
		if n.Op.Filter(g, node, other) {
			return false
		}
	}
	return true
}

func (n NonExistingUnary) Name() string { return "NonExistingUnary(" + n.Op.Name() + ")" }

// IsDocument filters for nodes whose annis:node_type is "datasource", the
// marker legacy meta search uses to force a matched node to be a document.
type IsDocument struct{}

func (IsDocument) Filter(g *graph.Graph, n graphmodel.NodeID) bool {
	v, ok := g.NodeAnnotations().Get(n, graphmodel.AnnoNodeType)
	return ok && v == graphmodel.NodeTypeDatasource
}

func (IsDocument) Name() string { return "IsDocument" }
