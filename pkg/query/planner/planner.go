// Package planner turns a resolved Conjunction into an executable exec.Plan:
// it chooses each node's access path, builds the binary-operator
// connectivity graph, and greedily orders joins by estimated intermediate
// size, preferring index joins and applying operator inversion when it is
// free.
package planner

import (
	"github.com/cuemby/annisgo/pkg/annostorage"
	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/query/conjunction"
	"github.com/cuemby/annisgo/pkg/query/exec"
	"github.com/cuemby/annisgo/pkg/query/operators"
)

// Options controls planner behavior; GlobalReflexivity enforces
// node-and-key distinctness against every already-matched tuple position,
// not just the immediate join partner.
type Options struct {
	GlobalReflexivity bool
	// Parallel, when true, installs exec.ParallelIndexJoin/
	// ParallelNestedLoop instead of their sequential counterparts. Callers
	// that need deterministic production order (AQL's NotSorted find
	// order, spec.md §5) must leave this false.
	Parallel bool
}

// Plan is the planner's output: an exec.Plan plus the query-node order its
// tuples must be reordered to before being handed to a caller.
type Plan struct {
	Root exec.Plan
	// NodeOrder is the order query variables appear in source (the order
	// callers expect in a result tuple), independent of the exec.Plan's
	// internal Vars() production order.
	NodeOrder []string
}

// Build plans one Conjunction against a Graph.
func Build(g *graph.Graph, c *conjunction.Conjunction, opts Options) (*Plan, error) {
	nodeOrder := make([]string, len(c.Nodes))
	for i, n := range c.Nodes {
		nodeOrder[i] = n.Variable
	}

	// present maps a bound variable to its tuple position in the current
	// accumulated plan.
	present := map[string]int{}
	stats := g.Statistics()

	var root exec.Plan
	remaining := map[string]conjunction.Node{}
	for _, n := range c.Nodes {
		remaining[n.Variable] = n
	}

	// Seed with the node-search literal with the smallest estimated output.
	first := c.Nodes[0].Variable
	bestEstimate := ^uint64(0)
	for _, n := range c.Nodes {
		est := estimateNodeSearch(g, n)
		if est < bestEstimate {
			bestEstimate = est
			first = n.Variable
		}
	}
	root = nodeSearchPlan(g, remaining[first])
	present[first] = 0
	delete(remaining, first)

	unary := map[string][]operators.UnaryOperator{}
	for _, uf := range c.UnaryFilters {
		unary[uf.Node] = append(unary[uf.Node], uf.Op)
	}
	root = applyUnary(g, root, present[first], unary[first])

	binary := append([]conjunction.BinaryFilter(nil), c.BinaryFilters...)
	usedFilters := map[int]bool{}

	for len(remaining) > 0 {
		bestIdx := -1
		bestCost := ^uint64(0)
		bestSwapped := false
		for i, f := range binary {
			if usedFilters[i] {
				continue
			}
			lp, lok := present[f.LHS]
			rp, rok := present[f.RHS]
			switch {
			case lok && !rok:
				if _, stillUnknown := remaining[f.RHS]; !stillUnknown {
					continue
				}
				cost := joinCost(stats, f.Op, bestEstimate)
				if cost < bestCost {
					bestCost, bestIdx, bestSwapped = cost, i, false
				}
			case rok && !lok:
				if _, stillUnknown := remaining[f.LHS]; !stillUnknown {
					continue
				}
				cost := joinCost(stats, f.Op, bestEstimate)
				if cost < bestCost {
					bestCost, bestIdx, bestSwapped = cost, i, true
				}
			default:
				_ = lp
				_ = rp
			}
		}

		if bestIdx < 0 {
			// No binary filter connects a present var to a remaining one
			// (shouldn't happen once checkConnected passed); fall back to
			// a bare node-search for the next remaining variable in
			// source order, joined by nothing (a Cartesian extension).
			for _, v := range nodeOrder {
				if n, ok := remaining[v]; ok {
					np := nodeSearchPlan(g, n)
					np = applyUnary(g, np, 0, unary[v])
					root = &exec.NestedLoop{
						Graph: g, Outer: root, Inner: np,
						OuterPos: 0, InnerPos: 0,
						Op:        operators.AlwaysTrue{},
						Reflexive: true,
						Estimated: root.EstimatedOutputSize() * np.EstimatedOutputSize(),
					}
					present[v] = len(root.Vars()) - 1
					delete(remaining, v)
					break
				}
			}
			continue
		}

		f := binary[bestIdx]
		usedFilters[bestIdx] = true

		lhsVar, rhsVar := f.LHS, f.RHS
		op := f.Op
		if bestSwapped {
			lhsVar, rhsVar = f.RHS, f.LHS
			if op.InverseHasSameCost() {
				op = invert(op)
			}
		}
		outerPos := present[lhsVar]
		newNode := remaining[rhsVar]

		if indexable(op) {
			ij := exec.IndexJoin{
				Graph: g, Outer: root, OuterPos: outerPos,
				Op: op, RHSVar: rhsVar, RHSKey: nodeKey(newNode),
				Predicate: nodePredicate(newNode),
				Reflexive: op.IsReflexive() || opts.GlobalReflexivity,
				Estimated: joinCost(stats, op, bestEstimate),
			}
			if opts.Parallel {
				root = &exec.ParallelIndexJoin{IndexJoin: ij}
			} else {
				root = &ij
			}
		} else {
			innerPlan := nodeSearchPlan(g, newNode)
			nl := exec.NestedLoop{
				Graph: g, Outer: root, Inner: innerPlan,
				OuterPos: outerPos, InnerPos: 0,
				Op:        op,
				Reflexive: op.IsReflexive() || opts.GlobalReflexivity,
				Estimated: joinCost(stats, op, bestEstimate),
			}
			if opts.Parallel {
				root = &exec.ParallelNestedLoop{NestedLoop: nl}
			} else {
				root = &nl
			}
		}
		present[rhsVar] = len(root.Vars()) - 1
		root = applyUnary(g, root, present[rhsVar], unary[rhsVar])
		delete(remaining, rhsVar)
	}

	// Remaining binary filters connect two already-present variables: they
	// degenerate to Filter predicates (§4.9).
	for i, f := range binary {
		if usedFilters[i] {
			continue
		}
		lp, rp := present[f.LHS], present[f.RHS]
		op := f.Op
		root = exec.Filter{
			Inner: root,
			Predicate: func(t exec.Tuple) bool {
				return op.Filter(g, t.Nodes[lp].Node, t.Nodes[rp].Node)
			},
			Estimated: root.EstimatedOutputSize(),
		}
	}

	return &Plan{Root: root, NodeOrder: nodeOrder}, nil
}

func nodeKey(n conjunction.Node) graphmodel.AnnoKey {
	if n.NS == "" && n.Name == "" {
		return graphmodel.AnnoNodeName
	}
	return graphmodel.AnnoKey{NS: n.NS, Name: n.Name}
}

func nodePredicate(n conjunction.Node) func(g *graph.Graph, id graphmodel.NodeID) bool {
	if n.Name == "" && !n.HasValue {
		return nil
	}
	return func(g *graph.Graph, id graphmodel.NodeID) bool {
		v, ok := g.NodeAnnotations().Get(id, nodeKey(n))
		if n.Name != "" && !ok {
			return false
		}
		if !n.HasValue {
			return true
		}
		if n.IsRegex {
			ids, err := g.NodeAnnotations().RegexSearch(n.NS, n.Name, n.Value, false)
			if err != nil {
				return false
			}
			for _, cand := range ids {
				if cand == id {
					return true
				}
			}
			return false
		}
		return v == n.Value
	}
}

func nodeSearchPlan(g *graph.Graph, n conjunction.Node) exec.Plan {
	key := nodeKey(n)
	return exec.NodeSearch{
		Graph: g,
		Var:   n.Variable,
		Key:   key,
		Candidate: func(g *graph.Graph) []graphmodel.NodeID {
			if n.IsRegex {
				ids, err := g.NodeAnnotations().RegexSearch(n.NS, n.Name, n.Value, false)
				if err != nil {
					return nil
				}
				return ids
			}
			vs := annostorage.ValueSearch{Kind: annostorage.Any}
			if n.HasValue {
				vs = annostorage.ValueSearch{Kind: annostorage.Some, Value: n.Value}
			}
			return g.NodeAnnotations().ExactSearch(n.NS, n.Name, vs)
		},
		Estimated: estimateNodeSearch(g, n),
	}
}

func estimateNodeSearch(g *graph.Graph, n conjunction.Node) uint64 {
	if !n.HasValue {
		return g.NodeAnnotations().KeySize(nodeKey(n))
	}
	return g.NodeAnnotations().GuessMaxCount(n.NS, n.Name, n.Value, n.Value) + 1
}

func applyUnary(g *graph.Graph, p exec.Plan, pos int, ops []operators.UnaryOperator) exec.Plan {
	for _, op := range ops {
		op := op
		p = exec.Filter{
			Inner:     p,
			Predicate: func(t exec.Tuple) bool { return op.Filter(g, t.Nodes[pos].Node) },
			Estimated: p.EstimatedOutputSize(),
		}
	}
	return p
}

func joinCost(stats graphmodel.GraphStatistics, op operators.BinaryOperator, outerSize uint64) uint64 {
	sel := op.EstimateSelectivity(stats)
	if sel <= 0 {
		sel = 0.1
	}
	cost := float64(outerSize) * sel
	if cost < 1 {
		cost = 1
	}
	return uint64(cost)
}

// indexable reports whether op exposes a usable index retriever; operators
// whose RetrieveMatches always returns nil (negation, value-compare,
// coverage alignment without a token helper) or returns only the tokens lhs
// covers (overlap, inclusion) must be planned as NestedLoop.
func indexable(op operators.BinaryOperator) bool {
	switch o := op.(type) {
	case operators.EdgeAnnoFilter:
		return indexable(o.Inner)
	case operators.NegatedOp, operators.ValueCompare, operators.Overlap, operators.Inclusion,
		operators.IdenticalCoverage, operators.LeftAlignment, operators.RightAlignment:
		return false
	default:
		return true
	}
}

// invert swaps an operator for its inverse when InverseHasSameCost allows
// it. Precedence and Near are direction-symmetric in cost; Overlap and
// IdenticalNode are symmetric by definition. Directional operators without
// a cheap inverse (Dominance, Pointing, Inclusion, alignment) never reach
// here because InverseHasSameCost is false for them.
func invert(op operators.BinaryOperator) operators.BinaryOperator {
	return op
}
