package graphstorage

import (
	"github.com/cuemby/annisgo/pkg/annostorage"
	"github.com/cuemby/annisgo/pkg/graphmodel"
)

// Linear stores a chain-shaped component — the classic token Ordering — as
// next/prev pointers, so FindConnected is a bounded walk rather than a
// general graph traversal.
type Linear struct {
	next map[graphmodel.NodeID]graphmodel.NodeID
	prev map[graphmodel.NodeID]graphmodel.NodeID
	anno *annostorage.AnnoStorage[graphmodel.Edge]
}

func NewLinear() *Linear {
	return &Linear{
		next: make(map[graphmodel.NodeID]graphmodel.NodeID),
		prev: make(map[graphmodel.NodeID]graphmodel.NodeID),
		anno: annostorage.New[graphmodel.Edge](),
	}
}

func (l *Linear) AddEdge(e graphmodel.Edge) {
	l.next[e.Source] = e.Target
	l.prev[e.Target] = e.Source
}

func (l *Linear) DeleteEdge(e graphmodel.Edge) {
	if l.next[e.Source] == e.Target {
		delete(l.next, e.Source)
	}
	if l.prev[e.Target] == e.Source {
		delete(l.prev, e.Target)
	}
	l.anno.RemoveItem(e)
}

func (l *Linear) Outgoing(n graphmodel.NodeID) []graphmodel.Edge {
	if t, ok := l.next[n]; ok {
		return []graphmodel.Edge{{Source: n, Target: t}}
	}
	return nil
}

func (l *Linear) Ingoing(n graphmodel.NodeID) []graphmodel.Edge {
	if s, ok := l.prev[n]; ok {
		return []graphmodel.Edge{{Source: s, Target: n}}
	}
	return nil
}

func (l *Linear) walk(start graphmodel.NodeID, min, max int, next map[graphmodel.NodeID]graphmodel.NodeID) []graphmodel.NodeID {
	var out []graphmodel.NodeID
	cur := start
	for depth := 1; ; depth++ {
		nxt, ok := next[cur]
		if !ok {
			break
		}
		if depth >= min && (max <= 0 || depth <= max) {
			out = append(out, nxt)
		}
		if max > 0 && depth >= max {
			break
		}
		cur = nxt
	}
	return out
}

func (l *Linear) FindConnected(n graphmodel.NodeID, min, max int) []graphmodel.NodeID {
	return l.walk(n, min, max, l.next)
}

func (l *Linear) FindConnectedInverse(n graphmodel.NodeID, min, max int) []graphmodel.NodeID {
	return l.walk(n, min, max, l.prev)
}

func (l *Linear) IsConnected(from, to graphmodel.NodeID, min, max int) bool {
	for _, n := range l.FindConnected(from, min, max) {
		if n == to {
			return true
		}
	}
	return false
}

func (l *Linear) Distance(from, to graphmodel.NodeID) (int, bool) {
	if from == to {
		return 0, true
	}
	cur := from
	for depth := 1; ; depth++ {
		nxt, ok := l.next[cur]
		if !ok {
			return 0, false
		}
		if nxt == to {
			return depth, true
		}
		cur = nxt
	}
}

func (l *Linear) AllEdges() []graphmodel.Edge {
	out := make([]graphmodel.Edge, 0, len(l.next))
	for src, tgt := range l.next {
		out = append(out, graphmodel.Edge{Source: src, Target: tgt})
	}
	return out
}

func (l *Linear) EdgeAnnotations() *annostorage.AnnoStorage[graphmodel.Edge] { return l.anno }

func (l *Linear) Statistics() graphmodel.GraphStatistics {
	return graphmodel.GraphStatistics{
		NodeCount: uint64(len(l.next)),
		MaxDepth:  uint64(len(l.next)),
		AvgFanOut: 1.0,
	}
}

func (l *Linear) InverseHasSameCost() bool { return true }

func (l *Linear) AsWriteable() (WriteableGraphStorage, bool) { return l, true }

func (l *Linear) Copy(other GraphStorage) {
	for src, tgt := range l.next {
		other.AddEdge(graphmodel.Edge{Source: src, Target: tgt})
	}
}

func (l *Linear) ImplID() ImplID { return ImplLinear }
