package operators

import (
	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
)

// Precedence implements `.min,max`: RHS starts within [min,max] ordering
// steps after LHS ends, on the given segmentation (empty = default tokens).
type Precedence struct {
	Min, Max     int // Max <= 0 means unbounded (".*")
	Segmentation string
}

func orderingComponent(segmentation string) graphmodel.Component {
	name := segmentation
	if name == "" {
		name = "annis"
	}
	return graphmodel.Component{Type: graphmodel.Ordering, Layer: "annis", Name: name}
}

func (p Precedence) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	gs, err := g.Component(orderingComponent(p.Segmentation))
	if err != nil {
		return false
	}
	return gs.IsConnected(lhs, rhs, p.Min, p.Max)
}

func (p Precedence) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	gs, err := g.Component(orderingComponent(p.Segmentation))
	if err != nil {
		return nil
	}
	return gs.FindConnected(lhs, p.Min, p.Max)
}

func (p Precedence) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	if stats.NodeCount == 0 {
		return defaultSelectivityPrior
	}
	max := p.Max
	if max <= 0 || uint64(max) > stats.MaxDepth {
		max = int(stats.MaxDepth)
	}
	span := float64(max-p.Min+1) / float64(stats.NodeCount)
	if span < 0 {
		return defaultSelectivityPrior
	}
	return span
}

func (p Precedence) IsReflexive() bool        { return p.Min == 0 && p.Max == 0 }
func (p Precedence) InverseHasSameCost() bool { return true }
func (p Precedence) Name() string             { return "Precedence" }

// Near implements `^min,max`: precedence in either direction.
type Near struct {
	Min, Max     int
	Segmentation string
}

func (n Near) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	p := Precedence{Min: n.Min, Max: n.Max, Segmentation: n.Segmentation}
	return p.Filter(g, lhs, rhs) || p.Filter(g, rhs, lhs)
}

func (n Near) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	p := Precedence{Min: n.Min, Max: n.Max, Segmentation: n.Segmentation}
	out := p.RetrieveMatches(g, lhs)
	gs, err := g.Component(orderingComponent(n.Segmentation))
	if err == nil {
		out = append(out, gs.FindConnectedInverse(lhs, n.Min, n.Max)...)
	}
	return out
}

func (n Near) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	p := Precedence{Min: n.Min, Max: n.Max}
	return 2 * p.EstimateSelectivity(stats)
}

func (n Near) IsReflexive() bool        { return n.Min == 0 && n.Max == 0 }
func (n Near) InverseHasSameCost() bool { return true }
func (n Near) Name() string             { return "Near" }
