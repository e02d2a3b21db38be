package operators

import (
	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
)

func coverageComponents(g *graph.Graph) []graphmodel.Component {
	return componentsOf(g, graphmodel.Coverage, "", "")
}

// coveredTokens returns the set of leaf tokens reachable from n via any
// Coverage component (n itself if it is already a token, i.e. has no
// outgoing Coverage edge).
func coveredTokens(g *graph.Graph, n graphmodel.NodeID) map[graphmodel.NodeID]bool {
	out := map[graphmodel.NodeID]bool{}
	var visit func(node graphmodel.NodeID)
	visited := map[graphmodel.NodeID]bool{}
	visit = func(node graphmodel.NodeID) {
		if visited[node] {
			return
		}
		visited[node] = true
		isLeaf := true
		for _, c := range coverageComponents(g) {
			gs, err := g.Component(c)
			if err != nil {
				continue
			}
			for _, e := range gs.Outgoing(node) {
				isLeaf = false
				visit(e.Target)
			}
		}
		if isLeaf {
			out[node] = true
		}
	}
	visit(n)
	return out
}

func leftToken(g *graph.Graph, n graphmodel.NodeID) (graphmodel.NodeID, bool) {
	return extremeToken(g, n, true)
}

func rightToken(g *graph.Graph, n graphmodel.NodeID) (graphmodel.NodeID, bool) {
	return extremeToken(g, n, false)
}

func extremeToken(g *graph.Graph, n graphmodel.NodeID, leftmost bool) (graphmodel.NodeID, bool) {
	ctype := graphmodel.LeftToken
	if !leftmost {
		ctype = graphmodel.RightToken
	}
	for _, c := range componentsOf(g, ctype, "", "") {
		gs, err := g.Component(c)
		if err != nil {
			continue
		}
		edges := gs.Outgoing(n)
		if len(edges) > 0 {
			return edges[0].Target, true
		}
	}
	toks := coveredTokens(g, n)
	var best graphmodel.NodeID
	found := false
	for t := range toks {
		if !found || (leftmost && t < best) || (!leftmost && t > best) {
			best, found = t, true
		}
	}
	return best, found
}

// Overlap implements `_o_`: LHS and RHS cover at least one common token.
type Overlap struct{}

func (Overlap) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	a := coveredTokens(g, lhs)
	for t := range coveredTokens(g, rhs) {
		if a[t] {
			return true
		}
	}
	return false
}

// RetrieveMatches returns only the tokens lhs covers; spans overlapping lhs
// are not returned, so the planner joins Overlap with NestedLoop.
func (o Overlap) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	var out []graphmodel.NodeID
	for t := range coveredTokens(g, lhs) {
		out = append(out, t)
	}
	return out
}

func (Overlap) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	if stats.AvgFanOut <= 0 {
		return defaultSelectivityPrior
	}
	return 1 / stats.AvgFanOut
}

func (Overlap) IsReflexive() bool        { return true }
func (Overlap) InverseHasSameCost() bool { return true }
func (Overlap) Name() string             { return "Overlap" }

// Inclusion implements `_i_`: RHS's left/right tokens lie within LHS's.
type Inclusion struct{}

func (Inclusion) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	ll, ok1 := leftToken(g, lhs)
	lr, ok2 := rightToken(g, lhs)
	rl, ok3 := leftToken(g, rhs)
	rr, ok4 := rightToken(g, rhs)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	return ll <= rl && rr <= lr
}

// RetrieveMatches returns only the tokens lhs covers; spans included in lhs
// are not returned, so the planner joins Inclusion with NestedLoop.
func (i Inclusion) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	var out []graphmodel.NodeID
	for t := range coveredTokens(g, lhs) {
		out = append(out, t)
	}
	return out
}

func (Inclusion) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	if stats.AvgFanOut <= 0 {
		return defaultSelectivityPrior
	}
	return 1 / stats.AvgFanOut
}

func (Inclusion) IsReflexive() bool        { return true }
func (Inclusion) InverseHasSameCost() bool { return false }
func (Inclusion) Name() string             { return "Inclusion" }

// IdenticalCoverage implements `_=_`: same left and right covered token.
type IdenticalCoverage struct{}

func (IdenticalCoverage) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	ll, ok1 := leftToken(g, lhs)
	lr, ok2 := rightToken(g, lhs)
	rl, ok3 := leftToken(g, rhs)
	rr, ok4 := rightToken(g, rhs)
	return ok1 && ok2 && ok3 && ok4 && ll == rl && lr == rr
}

func (IdenticalCoverage) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	return nil
}

func (IdenticalCoverage) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	if stats.NodeCount == 0 {
		return defaultSelectivityPrior
	}
	return 1 / float64(stats.NodeCount)
}

func (IdenticalCoverage) IsReflexive() bool        { return true }
func (IdenticalCoverage) InverseHasSameCost() bool { return true }
func (IdenticalCoverage) Name() string             { return "IdenticalCoverage" }

// LeftAlignment implements `_l_`: same left covered token.
type LeftAlignment struct{}

func (LeftAlignment) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	a, ok1 := leftToken(g, lhs)
	b, ok2 := leftToken(g, rhs)
	return ok1 && ok2 && a == b
}

func (LeftAlignment) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	return nil
}

func (LeftAlignment) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	if stats.AvgFanOut <= 0 {
		return defaultSelectivityPrior
	}
	return 1 / stats.AvgFanOut
}

func (LeftAlignment) IsReflexive() bool        { return true }
func (LeftAlignment) InverseHasSameCost() bool { return true }
func (LeftAlignment) Name() string             { return "LeftAlignment" }

// RightAlignment implements `_r_`: same right covered token.
type RightAlignment struct{}

func (RightAlignment) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	a, ok1 := rightToken(g, lhs)
	b, ok2 := rightToken(g, rhs)
	return ok1 && ok2 && a == b
}

func (RightAlignment) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	return nil
}

func (RightAlignment) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	if stats.AvgFanOut <= 0 {
		return defaultSelectivityPrior
	}
	return 1 / stats.AvgFanOut
}

func (RightAlignment) IsReflexive() bool        { return true }
func (RightAlignment) InverseHasSameCost() bool { return true }
func (RightAlignment) Name() string             { return "RightAlignment" }

// IdenticalNode implements `_ident_`: same node id.
type IdenticalNode struct{}

func (IdenticalNode) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool { return lhs == rhs }

func (IdenticalNode) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	return []graphmodel.NodeID{lhs}
}

func (IdenticalNode) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	if stats.NodeCount == 0 {
		return defaultSelectivityPrior
	}
	return 1 / float64(stats.NodeCount)
}

func (IdenticalNode) IsReflexive() bool        { return true }
func (IdenticalNode) InverseHasSameCost() bool { return true }
func (IdenticalNode) Name() string             { return "IdenticalNode" }
