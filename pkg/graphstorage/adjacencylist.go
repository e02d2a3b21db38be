package graphstorage

import (
	"github.com/cuemby/annisgo/pkg/annostorage"
	"github.com/cuemby/annisgo/pkg/graphmodel"
)

// AdjacencyList is the general-purpose GraphStorage implementation: a dense
// outgoing/ingoing adjacency map. Default choice for components with no
// better-fitting shape.
type AdjacencyList struct {
	out  map[graphmodel.NodeID][]graphmodel.Edge
	in   map[graphmodel.NodeID][]graphmodel.Edge
	anno *annostorage.AnnoStorage[graphmodel.Edge]
}

// NewAdjacencyList creates an empty adjacency-list graph storage.
func NewAdjacencyList() *AdjacencyList {
	return &AdjacencyList{
		out:  make(map[graphmodel.NodeID][]graphmodel.Edge),
		in:   make(map[graphmodel.NodeID][]graphmodel.Edge),
		anno: annostorage.New[graphmodel.Edge](),
	}
}

func (a *AdjacencyList) Outgoing(n graphmodel.NodeID) []graphmodel.Edge { return a.out[n] }
func (a *AdjacencyList) Ingoing(n graphmodel.NodeID) []graphmodel.Edge  { return a.in[n] }

func (a *AdjacencyList) AddEdge(e graphmodel.Edge) {
	a.out[e.Source] = append(a.out[e.Source], e)
	a.in[e.Target] = append(a.in[e.Target], e)
}

func (a *AdjacencyList) DeleteEdge(e graphmodel.Edge) {
	a.out[e.Source] = removeEdge(a.out[e.Source], e)
	a.in[e.Target] = removeEdge(a.in[e.Target], e)
	a.anno.RemoveItem(e)
}

func removeEdge(edges []graphmodel.Edge, target graphmodel.Edge) []graphmodel.Edge {
	for i, e := range edges {
		if e == target {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return edges
}

// FindConnected performs a bounded-depth BFS following outgoing edges.
func (a *AdjacencyList) FindConnected(n graphmodel.NodeID, min, max int) []graphmodel.NodeID {
	return a.bfs(n, min, max, a.out, func(e graphmodel.Edge) graphmodel.NodeID { return e.Target })
}

// FindConnectedInverse performs a bounded-depth BFS following ingoing edges.
func (a *AdjacencyList) FindConnectedInverse(n graphmodel.NodeID, min, max int) []graphmodel.NodeID {
	return a.bfs(n, min, max, a.in, func(e graphmodel.Edge) graphmodel.NodeID { return e.Source })
}

func (a *AdjacencyList) bfs(start graphmodel.NodeID, min, max int, edgesOf map[graphmodel.NodeID][]graphmodel.Edge, other func(graphmodel.Edge) graphmodel.NodeID) []graphmodel.NodeID {
	type frontierEntry struct {
		node  graphmodel.NodeID
		depth int
	}

	visited := map[graphmodel.NodeID]bool{start: true}
	queue := []frontierEntry{{start, 0}}
	var out []graphmodel.NodeID

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth >= min && cur.depth > 0 {
			out = append(out, cur.node)
		}
		if max > 0 && cur.depth >= max {
			continue
		}
		for _, e := range edgesOf[cur.node] {
			next := other(e)
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, frontierEntry{next, cur.depth + 1})
		}
	}
	return out
}

func (a *AdjacencyList) IsConnected(from, to graphmodel.NodeID, min, max int) bool {
	for _, n := range a.FindConnected(from, min, max) {
		if n == to {
			return true
		}
	}
	return false
}

func (a *AdjacencyList) Distance(from, to graphmodel.NodeID) (int, bool) {
	if from == to {
		return 0, true
	}
	visited := map[graphmodel.NodeID]bool{from: true}
	type entry struct {
		node  graphmodel.NodeID
		depth int
	}
	queue := []entry{{from, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range a.out[cur.node] {
			if e.Target == to {
				return cur.depth + 1, true
			}
			if !visited[e.Target] {
				visited[e.Target] = true
				queue = append(queue, entry{e.Target, cur.depth + 1})
			}
		}
	}
	return 0, false
}

func (a *AdjacencyList) AllEdges() []graphmodel.Edge {
	var out []graphmodel.Edge
	for _, edges := range a.out {
		out = append(out, edges...)
	}
	return out
}

func (a *AdjacencyList) EdgeAnnotations() *annostorage.AnnoStorage[graphmodel.Edge] { return a.anno }

func (a *AdjacencyList) Statistics() graphmodel.GraphStatistics {
	nodes := make(map[graphmodel.NodeID]bool)
	var totalFanOut, maxFanOut uint64
	for n, edges := range a.out {
		nodes[n] = true
		fo := uint64(len(edges))
		totalFanOut += fo
		if fo > maxFanOut {
			maxFanOut = fo
		}
	}
	avg := 0.0
	if len(nodes) > 0 {
		avg = float64(totalFanOut) / float64(len(nodes))
	}
	return graphmodel.GraphStatistics{
		NodeCount:       uint64(len(nodes)),
		AvgFanOut:       avg,
		Fan99Percentile: maxFanOut,
	}
}

func (a *AdjacencyList) InverseHasSameCost() bool { return true }

func (a *AdjacencyList) AsWriteable() (WriteableGraphStorage, bool) { return a, true }

func (a *AdjacencyList) Copy(other GraphStorage) {
	for n := range a.out {
		for _, e := range a.out[n] {
			other.AddEdge(e)
		}
	}
}

func (a *AdjacencyList) ImplID() ImplID { return ImplAdjacencyList }
