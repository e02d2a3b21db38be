package operators

import (
	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
)

// Dominance implements `>layer`: transitive reachability within a Dominance
// component of the given name.
type Dominance struct {
	Name     string
	Min, Max int
}

func (d Dominance) components(g *graph.Graph) []graphmodel.Component {
	return componentsOf(g, graphmodel.Dominance, "", d.Name)
}

func (d Dominance) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	for _, c := range d.components(g) {
		gs, err := g.Component(c)
		if err != nil {
			continue
		}
		if gs.IsConnected(lhs, rhs, d.Min, d.Max) {
			return true
		}
	}
	return false
}

func (d Dominance) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	var out []graphmodel.NodeID
	for _, c := range d.components(g) {
		gs, err := g.Component(c)
		if err != nil {
			continue
		}
		out = append(out, gs.FindConnected(lhs, d.Min, d.Max)...)
	}
	return out
}

// EstimateSelectivity uses a complete k-ary-tree size heuristic: a node at
// depth 0..max has roughly avgFanOut^depth descendants.
func (d Dominance) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	if stats.NodeCount == 0 {
		return defaultSelectivityPrior
	}
	fanOut := stats.AvgFanOut
	if fanOut <= 1 {
		fanOut = 1.5
	}
	max := d.Max
	if max <= 0 || uint64(max) > stats.MaxDepth {
		max = int(stats.MaxDepth)
	}
	estimate := 0.0
	size := 1.0
	for depth := 0; depth <= max; depth++ {
		size *= fanOut
		if depth >= d.Min {
			estimate += size
		}
	}
	return estimate / float64(stats.NodeCount)
}

func (d Dominance) IsReflexive() bool        { return d.Min == 0 }
func (d Dominance) InverseHasSameCost() bool { return false }
func (d Dominance) Name() string             { return "Dominance" }

// Pointing implements `->layer`, identical in shape to Dominance but over
// Pointing components.
type Pointing struct {
	Name     string
	Min, Max int
}

func (p Pointing) components(g *graph.Graph) []graphmodel.Component {
	return componentsOf(g, graphmodel.Pointing, "", p.Name)
}

func (p Pointing) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	d := Dominance{Min: p.Min, Max: p.Max}
	for _, c := range p.components(g) {
		gs, err := g.Component(c)
		if err != nil {
			continue
		}
		if gs.IsConnected(lhs, rhs, d.Min, d.Max) {
			return true
		}
	}
	return false
}

func (p Pointing) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	var out []graphmodel.NodeID
	for _, c := range p.components(g) {
		gs, err := g.Component(c)
		if err != nil {
			continue
		}
		out = append(out, gs.FindConnected(lhs, p.Min, p.Max)...)
	}
	return out
}

func (p Pointing) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	d := Dominance{Min: p.Min, Max: p.Max}
	return d.EstimateSelectivity(stats)
}

func (p Pointing) IsReflexive() bool        { return p.Min == 0 }
func (p Pointing) InverseHasSameCost() bool { return false }
func (p Pointing) Name() string             { return "Pointing" }

// PartOf implements `@`: transitive PartOf reachability to a sub-corpus or
// document.
type PartOf struct {
	Transitive bool
}

func (po PartOf) components(g *graph.Graph) []graphmodel.Component {
	return componentsOf(g, graphmodel.PartOf, "", "")
}

func (po PartOf) bounds() (int, int) {
	if po.Transitive {
		return 1, 0
	}
	return 1, 1
}

func (po PartOf) Filter(g *graph.Graph, lhs, rhs graphmodel.NodeID) bool {
	min, max := po.bounds()
	for _, c := range po.components(g) {
		gs, err := g.Component(c)
		if err != nil {
			continue
		}
		if gs.IsConnected(lhs, rhs, min, max) {
			return true
		}
	}
	return false
}

func (po PartOf) RetrieveMatches(g *graph.Graph, lhs graphmodel.NodeID) []graphmodel.NodeID {
	min, max := po.bounds()
	var out []graphmodel.NodeID
	for _, c := range po.components(g) {
		gs, err := g.Component(c)
		if err != nil {
			continue
		}
		out = append(out, gs.FindConnected(lhs, min, max)...)
	}
	return out
}

func (po PartOf) EstimateSelectivity(stats graphmodel.GraphStatistics) float64 {
	if stats.RootCount == 0 {
		return defaultSelectivityPrior
	}
	return 1.0 / float64(stats.RootCount)
}

func (po PartOf) IsReflexive() bool        { return false }
func (po PartOf) InverseHasSameCost() bool { return false }
func (po PartOf) Name() string             { return "PartOf" }
