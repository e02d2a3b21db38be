package graphstorage

import (
	"github.com/cuemby/annisgo/pkg/annostorage"
	"github.com/cuemby/annisgo/pkg/graphmodel"
)

// TransitiveClosure precomputes full reachability sets per node, trading
// build cost and memory for O(1) IsConnected/FindConnected queries. Chosen
// by the registry for small (at most 5000 nodes), shallow (maximum depth at
// most 20) components that no type-specific check claims first.
type TransitiveClosure struct {
	direct   map[graphmodel.NodeID][]graphmodel.Edge
	directIn map[graphmodel.NodeID][]graphmodel.Edge
	// reach[n] maps a reachable node to the shortest number of hops from n.
	reach map[graphmodel.NodeID]map[graphmodel.NodeID]int
	anno  *annostorage.AnnoStorage[graphmodel.Edge]
}

// NewTransitiveClosure creates an empty transitive closure storage. Edges are
// added with AddEdge, typically by copying an AdjacencyList into it at
// optimization time.
func NewTransitiveClosure() *TransitiveClosure {
	return &TransitiveClosure{
		direct:   make(map[graphmodel.NodeID][]graphmodel.Edge),
		directIn: make(map[graphmodel.NodeID][]graphmodel.Edge),
		reach:    make(map[graphmodel.NodeID]map[graphmodel.NodeID]int),
		anno:     annostorage.New[graphmodel.Edge](),
	}
}

func (t *TransitiveClosure) AddEdge(e graphmodel.Edge) {
	t.direct[e.Source] = append(t.direct[e.Source], e)
	t.directIn[e.Target] = append(t.directIn[e.Target], e)
	t.rebuild()
}

func (t *TransitiveClosure) DeleteEdge(e graphmodel.Edge) {
	t.direct[e.Source] = removeEdge(t.direct[e.Source], e)
	t.directIn[e.Target] = removeEdge(t.directIn[e.Target], e)
	t.anno.RemoveItem(e)
	t.rebuild()
}

// rebuild recomputes the full reachability map. Simple and O(V*E) — accepted
// because this implementation is only chosen for small node counts.
func (t *TransitiveClosure) rebuild() {
	t.reach = make(map[graphmodel.NodeID]map[graphmodel.NodeID]int)
	for n := range t.direct {
		t.reach[n] = t.bfsDistances(n, t.direct)
	}
}

func (t *TransitiveClosure) bfsDistances(start graphmodel.NodeID, edges map[graphmodel.NodeID][]graphmodel.Edge) map[graphmodel.NodeID]int {
	dist := map[graphmodel.NodeID]int{}
	type entry struct {
		node  graphmodel.NodeID
		depth int
	}
	queue := []entry{{start, 0}}
	visited := map[graphmodel.NodeID]bool{start: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range edges[cur.node] {
			if visited[e.Target] {
				continue
			}
			visited[e.Target] = true
			dist[e.Target] = cur.depth + 1
			queue = append(queue, entry{e.Target, cur.depth + 1})
		}
	}
	return dist
}

func (t *TransitiveClosure) Outgoing(n graphmodel.NodeID) []graphmodel.Edge { return t.direct[n] }
func (t *TransitiveClosure) Ingoing(n graphmodel.NodeID) []graphmodel.Edge  { return t.directIn[n] }

func (t *TransitiveClosure) FindConnected(n graphmodel.NodeID, min, max int) []graphmodel.NodeID {
	var out []graphmodel.NodeID
	for target, depth := range t.reach[n] {
		if depth >= min && (max <= 0 || depth <= max) {
			out = append(out, target)
		}
	}
	return out
}

func (t *TransitiveClosure) FindConnectedInverse(n graphmodel.NodeID, min, max int) []graphmodel.NodeID {
	var out []graphmodel.NodeID
	for src, distances := range t.reach {
		if depth, ok := distances[n]; ok && depth >= min && (max <= 0 || depth <= max) {
			out = append(out, src)
		}
	}
	return out
}

func (t *TransitiveClosure) IsConnected(from, to graphmodel.NodeID, min, max int) bool {
	depth, ok := t.reach[from][to]
	return ok && depth >= min && (max <= 0 || depth <= max)
}

func (t *TransitiveClosure) Distance(from, to graphmodel.NodeID) (int, bool) {
	if from == to {
		return 0, true
	}
	depth, ok := t.reach[from][to]
	return depth, ok
}

func (t *TransitiveClosure) AllEdges() []graphmodel.Edge {
	var out []graphmodel.Edge
	for _, edges := range t.direct {
		out = append(out, edges...)
	}
	return out
}

func (t *TransitiveClosure) EdgeAnnotations() *annostorage.AnnoStorage[graphmodel.Edge] { return t.anno }

func (t *TransitiveClosure) Statistics() graphmodel.GraphStatistics {
	var maxDepth uint64
	for _, distances := range t.reach {
		for _, d := range distances {
			if uint64(d) > maxDepth {
				maxDepth = uint64(d)
			}
		}
	}
	return graphmodel.GraphStatistics{
		NodeCount: uint64(len(t.direct)),
		MaxDepth:  maxDepth,
	}
}

func (t *TransitiveClosure) InverseHasSameCost() bool { return true }

// AsWriteable reports false: mutating a precomputed closure in place would
// require a full rebuild per edge, so callers should mutate the writeable
// source storage and re-optimize instead.
func (t *TransitiveClosure) AsWriteable() (WriteableGraphStorage, bool) { return nil, false }

func (t *TransitiveClosure) Copy(other GraphStorage) {
	for _, edges := range t.direct {
		for _, e := range edges {
			other.AddEdge(e)
		}
	}
}

func (t *TransitiveClosure) ImplID() ImplID { return ImplTransitiveClosure }
