package graphstorage

import (
	"github.com/cuemby/annisgo/pkg/annostorage"
	"github.com/cuemby/annisgo/pkg/graphmodel"
)

// PrePostOrder stores a tree-shaped component — typically a Dominance
// layer — using pre-/post-order numbering for O(1) ancestor/descendant
// tests, plus explicit parent pointers for Distance.
type PrePostOrder struct {
	children map[graphmodel.NodeID][]graphmodel.NodeID
	parent   map[graphmodel.NodeID]graphmodel.NodeID
	pre      map[graphmodel.NodeID]int
	post     map[graphmodel.NodeID]int
	anno     *annostorage.AnnoStorage[graphmodel.Edge]
	dirty    bool
}

func NewPrePostOrder() *PrePostOrder {
	return &PrePostOrder{
		children: make(map[graphmodel.NodeID][]graphmodel.NodeID),
		parent:   make(map[graphmodel.NodeID]graphmodel.NodeID),
		pre:      make(map[graphmodel.NodeID]int),
		post:     make(map[graphmodel.NodeID]int),
		anno:     annostorage.New[graphmodel.Edge](),
	}
}

func (p *PrePostOrder) AddEdge(e graphmodel.Edge) {
	p.children[e.Source] = append(p.children[e.Source], e.Target)
	p.parent[e.Target] = e.Source
	p.dirty = true
}

func (p *PrePostOrder) DeleteEdge(e graphmodel.Edge) {
	kids := p.children[e.Source]
	for i, k := range kids {
		if k == e.Target {
			p.children[e.Source] = append(kids[:i], kids[i+1:]...)
			break
		}
	}
	if p.parent[e.Target] == e.Source {
		delete(p.parent, e.Target)
	}
	p.anno.RemoveItem(e)
	p.dirty = true
}

// recompute assigns fresh pre/post numbers by DFS from every root (a node
// with no parent). Cheap relative to the tree's typical size; re-run lazily
// before any query that needs the numbering.
func (p *PrePostOrder) recompute() {
	if !p.dirty {
		return
	}
	p.pre = make(map[graphmodel.NodeID]int)
	p.post = make(map[graphmodel.NodeID]int)
	counter := 0

	var visit func(n graphmodel.NodeID)
	visit = func(n graphmodel.NodeID) {
		p.pre[n] = counter
		counter++
		for _, c := range p.children[n] {
			visit(c)
		}
		p.post[n] = counter
		counter++
	}

	roots := make(map[graphmodel.NodeID]bool)
	for n := range p.children {
		roots[n] = true
	}
	for n := range p.parent {
		delete(roots, n)
	}
	for n := range roots {
		if _, seen := p.pre[n]; !seen {
			visit(n)
		}
	}
	p.dirty = false
}

func (p *PrePostOrder) Outgoing(n graphmodel.NodeID) []graphmodel.Edge {
	var out []graphmodel.Edge
	for _, c := range p.children[n] {
		out = append(out, graphmodel.Edge{Source: n, Target: c})
	}
	return out
}

func (p *PrePostOrder) Ingoing(n graphmodel.NodeID) []graphmodel.Edge {
	if parent, ok := p.parent[n]; ok {
		return []graphmodel.Edge{{Source: parent, Target: n}}
	}
	return nil
}

// isAncestor reports whether a is a proper ancestor of b using pre/post
// interval containment: a is an ancestor of b iff pre[a] < pre[b] and
// post[a] > post[b].
func (p *PrePostOrder) isAncestor(a, b graphmodel.NodeID) bool {
	p.recompute()
	pa, ok := p.pre[a]
	if !ok {
		return false
	}
	pb, ok := p.pre[b]
	if !ok {
		return false
	}
	return pa < pb && p.post[a] > p.post[b]
}

func (p *PrePostOrder) FindConnected(n graphmodel.NodeID, min, max int) []graphmodel.NodeID {
	p.recompute()
	var out []graphmodel.NodeID
	var depth func(node graphmodel.NodeID, d int)
	depth = func(node graphmodel.NodeID, d int) {
		if d > 0 && d >= min && (max <= 0 || d <= max) {
			out = append(out, node)
		}
		if max > 0 && d >= max {
			return
		}
		for _, c := range p.children[node] {
			depth(c, d+1)
		}
	}
	depth(n, 0)
	return out
}

func (p *PrePostOrder) FindConnectedInverse(n graphmodel.NodeID, min, max int) []graphmodel.NodeID {
	var out []graphmodel.NodeID
	cur := n
	for d := 1; ; d++ {
		parent, ok := p.parent[cur]
		if !ok {
			break
		}
		if d >= min && (max <= 0 || d <= max) {
			out = append(out, parent)
		}
		if max > 0 && d >= max {
			break
		}
		cur = parent
	}
	return out
}

func (p *PrePostOrder) IsConnected(from, to graphmodel.NodeID, min, max int) bool {
	if !p.isAncestor(from, to) {
		return false
	}
	d, ok := p.Distance(from, to)
	return ok && d >= min && (max <= 0 || d <= max)
}

func (p *PrePostOrder) Distance(from, to graphmodel.NodeID) (int, bool) {
	if from == to {
		return 0, true
	}
	cur := to
	for d := 1; ; d++ {
		parent, ok := p.parent[cur]
		if !ok {
			return 0, false
		}
		if parent == from {
			return d, true
		}
		cur = parent
	}
}

func (p *PrePostOrder) AllEdges() []graphmodel.Edge {
	var out []graphmodel.Edge
	for n, kids := range p.children {
		for _, c := range kids {
			out = append(out, graphmodel.Edge{Source: n, Target: c})
		}
	}
	return out
}

func (p *PrePostOrder) EdgeAnnotations() *annostorage.AnnoStorage[graphmodel.Edge] { return p.anno }

func (p *PrePostOrder) Statistics() graphmodel.GraphStatistics {
	p.recompute()
	var maxDepth uint64
	for n := range p.children {
		if _, isRoot := p.parent[n]; !isRoot {
			maxDepth = maxOf(maxDepth, p.subtreeDepth(n, 0))
		}
	}
	return graphmodel.GraphStatistics{
		NodeCount: uint64(len(p.pre)),
		MaxDepth:  maxDepth,
	}
}

func (p *PrePostOrder) subtreeDepth(n graphmodel.NodeID, d uint64) uint64 {
	best := d
	for _, c := range p.children[n] {
		best = maxOf(best, p.subtreeDepth(c, d+1))
	}
	return best
}

func maxOf(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func (p *PrePostOrder) InverseHasSameCost() bool { return false }

func (p *PrePostOrder) AsWriteable() (WriteableGraphStorage, bool) { return p, true }

func (p *PrePostOrder) Copy(other GraphStorage) {
	for n, kids := range p.children {
		for _, c := range kids {
			other.AddEdge(graphmodel.Edge{Source: n, Target: c})
		}
	}
}

func (p *PrePostOrder) ImplID() ImplID { return ImplPrePostOrder }
