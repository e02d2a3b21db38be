package operators

import (
	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
)

// ValueCompare implements `==v` / `!=v`: node annotation values are equal
// (or not equal), restricted to the declared annotation key on each side.
type ValueCompare struct {
	LHSKey  graphmodel.AnnoKey
	RHSKey  graphmodel.AnnoKey
	Negated bool
}

func (v ValueCompare) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	a, ok1 := g.NodeAnnotations().Get(lhs, v.LHSKey)
	b, ok2 := g.NodeAnnotations().Get(rhs, v.RHSKey)
	if !ok1 || !ok2 {
		return false
	}
	eq := a == b
	return eq != v.Negated
}

func (v ValueCompare) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	return nil
}

func (v ValueCompare) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	return defaultSelectivityPrior
}

func (v ValueCompare) IsReflexive() bool        { return !v.Negated }
func (v ValueCompare) InverseHasSameCost() bool { return true }
func (v ValueCompare) Name() string             { return "ValueCompare" }

// EdgeAnnoFilter restricts an inner operator to edges carrying a matching
// (or non-matching, for regex/value negation) edge annotation.
type EdgeAnnoFilter struct {
	Inner   BinaryOperator
	Key     graphmodel.AnnoKey
	Value   string
	Regex   bool
	Negated bool
}

func (f EdgeAnnoFilter) componentsWithEdge(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	for _, c := range g.Components() {
		gs, err := g.Component(c)
		if err != nil {
			continue
		}
		for _, e := range gs.Outgoing(lhs) {
			if e.Target != rhs {
				continue
			}
			val, ok := gs.EdgeAnnotations().Get(e, f.Key)
			if !ok {
				continue
			}
			matched := val == f.Value
			if matched != f.Negated {
				return true
			}
		}
	}
	return false
}

func (f EdgeAnnoFilter) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	if !f.Inner.Filter(g, lhs, rhs) {
		return false
	}
	return f.componentsWithEdge(g, lhs, rhs)
}

func (f EdgeAnnoFilter) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	var out []graphmodel.NodeID
	for _, cand := range f.Inner.RetrieveMatches(g, lhs) {
		if f.componentsWithEdge(g, lhs, cand) {
			out = append(out, cand)
		}
	}
	return out
}

func (f EdgeAnnoFilter) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	return f.Inner.EstimateSelectivity(stats) * defaultSelectivityPrior
}

func (f EdgeAnnoFilter) IsReflexive() bool        { return f.Inner.IsReflexive() }
func (f EdgeAnnoFilter) InverseHasSameCost() bool { return f.Inner.InverseHasSameCost() }
func (f EdgeAnnoFilter) Name() string             { return "EdgeAnnoFilter(" + f.Inner.Name() + ")" }

// NegatedOp wraps a positive binary operator so Filter inverts its result;
// installed by the conjunction builder when both operand sides are
// non-optional.
type NegatedOp struct {
	Inner BinaryOperator
}

func (n NegatedOp) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	return !n.Inner.Filter(g, lhs, rhs)
}

func (n NegatedOp) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	// A negated operator has no useful index retriever: candidates are
	// "everything except what the positive operator reaches", which is not
	// enumerable without a full scan. Callers must use NestedLoop or Filter.
	return nil
}

func (n NegatedOp) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	return 1 - n.Inner.EstimateSelectivity(stats)
}

func (n NegatedOp) IsReflexive() bool        { return !n.Inner.IsReflexive() }
func (n NegatedOp) InverseHasSameCost() bool { return n.Inner.InverseHasSameCost() }
func (n NegatedOp) Name() string             { return "Negated(" + n.Inner.Name() + ")" }

// AlwaysTrue is a neutral binary operator with no constraint, used only to
// extend a plan with a variable the query graph leaves otherwise
// disconnected from the current join order. checkConnected rejects any
// conjunction that would require this at plan time, so it is unreachable
// in practice; it exists so the planner's fallback path stays well-typed.
type AlwaysTrue struct{}

func (AlwaysTrue) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool { return true }

func (AlwaysTrue) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	return nil
}

func (AlwaysTrue) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 { return 1 }
func (AlwaysTrue) IsReflexive() bool                                           { return true }
func (AlwaysTrue) InverseHasSameCost() bool                                    { return true }
func (AlwaysTrue) Name() string                                                { return "AlwaysTrue" }
