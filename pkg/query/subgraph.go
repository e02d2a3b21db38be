package query

import (
	"context"

	"github.com/cuemby/annisgo/pkg/annostorage"
	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/metrics"
)

// datasourceGapComponent is the synthetic component used to bridge a
// sorting gap between two otherwise-unconnected context windows.
var datasourceGapComponent = graphmodel.Component{
	Type: graphmodel.Ordering,
	Layer: "annis",
	Name: "datasource-gap",
}

// Subgraph extracts a new graph containing ids, the nodes overlapping their
// coverage, and every node reachable by walking ctxLeft tokens to the left
// and ctxRight tokens to the right along the named ordering (segmentation,
// or the default token ordering when segmentation is empty). A gap-bridging
// edge is added in the annis/datasource-gap component only when the left
// and right context windows turn out to be disjoint token runs.
func (s *Store) Subgraph(ctx context.Context, corpusName string, ids []string, ctxLeft, ctxRight int, segmentation string) (*graph.Graph, error) {
	timer := metrics.NewTimer()
	var out *graph.Graph
	err := s.withReadGraph(corpusName, func(g *graph.Graph) error {
		seeds := make([]graphmodel.NodeID, 0, len(ids))
		for _, name := range ids {
			id, ok := g.IDFromName(name)
			if !ok {
				continue
			}
			seeds = append(seeds, id)
		}
		var err error
		out, err = extractSubgraph(g, seeds, ctxLeft, ctxRight, segmentation)
		return err
	})
	s.observe("subgraph", timer, err)
	return out, err
}

// SubgraphForQuery runs q, then extracts the subgraph around every matched
// node using the same context rules as Subgraph.
func (s *Store) SubgraphForQuery(ctx context.Context, corpusName, q string, ctxLeft, ctxRight int, segmentation string) (*graph.Graph, error) {
	timer := metrics.NewTimer()
	var out *graph.Graph
	err := s.withReadGraph(corpusName, func(g *graph.Graph) error {
		ep, err := s.buildPlan(g, corpusName, q, false, true)
		if err != nil {
			return err
		}
		seen := map[graphmodel.NodeID]bool{}
		var seeds []graphmodel.NodeID
		for t := range ep.Iterate(ctx) {
			for _, m := range t.Nodes {
				if !seen[m.Node] {
					seen[m.Node] = true
					seeds = append(seeds, m.Node)
				}
			}
		}
		if err := ep.CheckTimeout(ctx); err != nil {
			return err
		}
		out, err = extractSubgraph(g, seeds, ctxLeft, ctxRight, segmentation)
		return err
	})
	s.observe("subgraph", timer, err)
	return out, err
}

// SubcorpusGraph extracts the nodes and edges belonging to one document or
// sub-corpus, identified by its PartOf-reachable annis:doc value, optionally
// restricted to a single component type.
func (s *Store) SubcorpusGraph(ctx context.Context, corpusName, docName string, componentType graphmodel.ComponentType) (*graph.Graph, error) {
	timer := metrics.NewTimer()
	var out *graph.Graph
	err := s.withReadGraph(corpusName, func(g *graph.Graph) error {
		members := nodesInDocument(g, docName)
		out = copyInducedSubgraph(g, members, componentType)
		return nil
	})
	s.observe("subgraph", timer, err)
	return out, err
}

// CorpusGraph extracts the entire loaded graph, optionally restricted to a
// single component type.
func (s *Store) CorpusGraph(ctx context.Context, corpusName string, componentType graphmodel.ComponentType) (*graph.Graph, error) {
	timer := metrics.NewTimer()
	var out *graph.Graph
	err := s.withReadGraph(corpusName, func(g *graph.Graph) error {
		members := map[graphmodel.NodeID]bool{}
		for _, id := range g.NodeAnnotations().ExactSearch(graphmodel.AnnoNodeType.NS, graphmodel.AnnoNodeType.Name, annostorage.ValueSearch{Kind: annostorage.Any}) {
			members[id] = true
		}
		out = copyInducedSubgraph(g, members, componentType)
		return nil
	})
	s.observe("subgraph", timer, err)
	return out, err
}

// extractSubgraph builds a new graph containing seeds, every node sharing
// Coverage overlap with a seed, and the tokens/nodes reachable within
// ctxLeft/ctxRight hops of the named ordering component.
func extractSubgraph(g *graph.Graph, seeds []graphmodel.NodeID, ctxLeft, ctxRight int, segmentation string) (*graph.Graph, error) {
	included := map[graphmodel.NodeID]bool{}
	for _, id := range seeds {
		included[id] = true
	}
	expandCoverage(g, included)

	orderingName := segmentation
	if orderingName == "" {
		orderingName = "annis"
	}
	ordering := graphmodel.Component{Type: graphmodel.Ordering, Layer: "annis", Name: orderingName}
	gs, err := g.Component(ordering)
	leftEdge, rightEdge := true, true
	if err == nil {
		for _, id := range seeds {
			left := walkOrdering(gs, id, ctxLeft, true)
			right := walkOrdering(gs, id, ctxRight, false)
			for _, n := range left {
				included[n] = true
			}
			for _, n := range right {
				included[n] = true
			}
			leftEdge = leftEdge && len(left) == ctxLeft
			rightEdge = rightEdge && len(right) == ctxRight
		}
		expandCoverage(g, included)
	}

	out := graph.New("")
	for id := range included {
		out.ImportNode(id, g.NodeAnnotations().GetAll(id))
	}
	copyEdgesAmong(g, out, included, "")

	// A gap is only meaningful when context was requested but the ordering
	// walk ran out of room on one side before reaching its target depth,
	// i.e. the two context windows did not connect to a shared run.
	if (ctxLeft > 0 && !leftEdge) || (ctxRight > 0 && !rightEdge) {
		addGapEdge(out, seeds)
	}
	return out, nil
}

// expandCoverage repeatedly adds any node overlapping the coverage of an
// already-included node (spans covering an included token, tokens covered
// by an included span) until no more nodes are added.
func expandCoverage(g *graph.Graph, included map[graphmodel.NodeID]bool) {
	for {
		added := false
		frontier := make([]graphmodel.NodeID, 0, len(included))
		for id := range included {
			frontier = append(frontier, id)
		}
		for _, c := range g.Components() {
			if c.Type != graphmodel.Coverage {
				continue
			}
			gs, err := g.Component(c)
			if err != nil {
				continue
			}
			for _, id := range frontier {
				for _, e := range gs.Outgoing(id) {
					if !included[e.Target] {
						included[e.Target] = true
						added = true
					}
				}
				for _, e := range gs.Ingoing(id) {
					if !included[e.Source] {
						included[e.Source] = true
						added = true
					}
				}
			}
		}
		if !added {
			return
		}
	}
}

// walkOrdering follows Ingoing (backward) or Outgoing (forward) edges of an
// ordering component hops times starting from n, returning every node
// visited (not including n itself).
func walkOrdering(gs interface {
	Outgoing(graphmodel.NodeID) []graphmodel.Edge
	Ingoing(graphmodel.NodeID) []graphmodel.Edge
}, n graphmodel.NodeID, hops int, backward bool) []graphmodel.NodeID {
	var out []graphmodel.NodeID
	cur := n
	for i := 0; i < hops; i++ {
		var edges []graphmodel.Edge
		if backward {
			edges = gs.Ingoing(cur)
		} else {
			edges = gs.Outgoing(cur)
		}
		if len(edges) == 0 {
			break
		}
		var next graphmodel.NodeID
		if backward {
			next = edges[0].Source
		} else {
			next = edges[0].Target
		}
		out = append(out, next)
		cur = next
	}
	return out
}

// addGapEdge connects the first and the last seed with an edge in the synthetic
// datasource-gap component, bridging a context window that did not meet its
// requested depth (spec: "only if the two contexts are disjoint").
func addGapEdge(out *graph.Graph, seeds []graphmodel.NodeID) {
	if len(seeds) < 2 {
		return
	}
	_ = out.ImportEdge(datasourceGapComponent, graphmodel.Edge{Source: seeds[0], Target: seeds[len(seeds)-1]}, nil)
}

// nodesInDocument collects every node whose PartOf closure reaches a node
// carrying annis:doc == docName.
func nodesInDocument(g *graph.Graph, docName string) map[graphmodel.NodeID]bool {
	docIDs := g.NodeAnnotations().ExactSearch(graphmodel.AnnoDoc.NS, graphmodel.AnnoDoc.Name, annostorage.ValueSearch{Kind: annostorage.Some, Value: docName})
	members := map[graphmodel.NodeID]bool{}
	if len(docIDs) == 0 {
		return members
	}
	for _, id := range docIDs {
		members[id] = true
	}

	for added := true; added; {
		added = false
		for _, c := range g.Components() {
			if c.Type != graphmodel.PartOf {
				continue
			}
			gs, err := g.Component(c)
			if err != nil {
				continue
			}
			for _, e := range gs.AllEdges() {
				if members[e.Target] && !members[e.Source] {
					members[e.Source] = true
					added = true
				}
			}
		}
	}
	return members
}

// copyInducedSubgraph builds a new graph containing members and every edge
// of componentType (or every component, if componentType is empty) whose
// endpoints are both in members.
func copyInducedSubgraph(g *graph.Graph, members map[graphmodel.NodeID]bool, componentType graphmodel.ComponentType) *graph.Graph {
	out := graph.New("")
	for id := range members {
		out.ImportNode(id, g.NodeAnnotations().GetAll(id))
	}
	copyEdgesAmong(g, out, members, componentType)
	return out
}

func copyEdgesAmong(g, out *graph.Graph, members map[graphmodel.NodeID]bool, componentType graphmodel.ComponentType) {
	for _, c := range g.Components() {
		if componentType != "" && c.Type != componentType {
			continue
		}
		gs, err := g.Component(c)
		if err != nil {
			continue
		}
		for _, e := range gs.AllEdges() {
			if !members[e.Source] || !members[e.Target] {
				continue
			}
			_ = out.ImportEdge(c, e, gs.EdgeAnnotations().GetAll(e))
		}
	}
}
