// Package query implements the public query façade: Count, CountExtra,
// Find, Frequency, and the subgraph-extraction family, each delegating to
// pkg/corpus for the loaded graph and pkg/query/plan for execution.
package query

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/cuemby/annisgo/pkg/aql"
	"github.com/cuemby/annisgo/pkg/corpus"
	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/metrics"
	"github.com/cuemby/annisgo/pkg/query/conjunction"
	"github.com/cuemby/annisgo/pkg/query/exec"
	"github.com/cuemby/annisgo/pkg/query/plan"
	"github.com/cuemby/annisgo/pkg/query/planner"
)

// Store is the embeddable public API of the query engine.
type Store struct {
	manager *corpus.Manager
}

// NewStore wraps a corpus.Manager with the query façade.
func NewStore(m *corpus.Manager) *Store {
	return &Store{manager: m}
}

// withReadGraph loads corpusName fully, takes its entry's read lock for the
// duration of fn, and releases it on return.
func (s *Store) withReadGraph(corpusName string, fn func(g *graph.Graph) error) error {
	e, err := s.manager.GetFullyLoadedEntry(corpusName)
	if err != nil {
		return err
	}
	e.RLock()
	defer e.RUnlock()
	return fn(e.Graph())
}

// buildPlan compiles q against g. parallel controls whether the planner
// installs parallel join operators (pkg/query/exec's ParallelIndexJoin/
// ParallelNestedLoop); it must be false whenever the caller needs
// deterministic production order (Find's NotSorted, spec.md §5).
func (s *Store) buildPlan(g *graph.Graph, corpusName, q string, quirks, parallel bool) (*plan.ExecutionPlan, error) {
	expr, err := aql.Parse(q)
	if err != nil {
		return nil, err
	}
	disj, err := aql.Normalize(expr)
	if err != nil {
		return nil, err
	}
	popts := planner.Options{GlobalReflexivity: true, Parallel: parallel}
	return plan.Build(corpusName, g, disj, conjunction.Options{QuirksMode: quirks}, popts)
}

func errorKind(err error) string {
	switch err.(type) {
	case *aql.SyntaxError:
		return "AQLSyntaxError"
	case *aql.SemanticError:
		return "AQLSemanticError"
	case *corpus.TimeoutError:
		return "Timeout"
	case *corpus.NoSuchCorpusError:
		return "NoSuchCorpus"
	default:
		return "Io"
	}
}

func (s *Store) observe(operation string, timer *metrics.Timer, err error) {
	timer.ObserveDurationVec(metrics.QueryDuration, operation)
	if err != nil {
		metrics.QueryErrorsTotal.WithLabelValues(operation, errorKind(err)).Inc()
	}
}

// Count drains the plan and returns the number of matching tuples, checking
// ctx's deadline every 1,000 tuples.
func (s *Store) Count(ctx context.Context, corpusName, q string) (uint64, error) {
	timer := metrics.NewTimer()
	var count uint64
	err := s.withReadGraph(corpusName, func(g *graph.Graph) error {
		ep, err := s.buildPlan(g, corpusName, q, false, true)
		if err != nil {
			return err
		}
		for range ep.Iterate(ctx) {
			count++
		}
		return ep.CheckTimeout(ctx)
	})
	s.observe("count", timer, err)
	return count, err
}

// CountExtraResult is the result of CountExtra.
type CountExtraResult struct {
	Count         uint64
	DocumentCount uint64
}

// CountExtra counts as Count does, additionally collecting the distinct set
// of documents reachable via PartOf from each match's first node.
func (s *Store) CountExtra(ctx context.Context, corpusName, q string) (CountExtraResult, error) {
	timer := metrics.NewTimer()
	var result CountExtraResult
	err := s.withReadGraph(corpusName, func(g *graph.Graph) error {
		ep, err := s.buildPlan(g, corpusName, q, false, true)
		if err != nil {
			return err
		}
		docs := make(map[string]struct{})
		for t := range ep.Iterate(ctx) {
			result.Count++
			if len(t.Nodes) == 0 {
				continue
			}
			for _, d := range documentsOf(g, t.Nodes[0].Node) {
				docs[d] = struct{}{}
			}
		}
		result.DocumentCount = uint64(len(docs))
		return ep.CheckTimeout(ctx)
	})
	s.observe("count", timer, err)
	return result, err
}

// documentsOf walks PartOf edges outward from n, collecting the value of
// every annis:doc annotation found along the way.
func documentsOf(g *graph.Graph, n graphmodel.NodeID) []string {
	var docs []string
	visited := map[graphmodel.NodeID]bool{n: true}
	frontier := []graphmodel.NodeID{n}
	for len(frontier) > 0 {
		var next []graphmodel.NodeID
		for _, cur := range frontier {
			for _, c := range g.Components() {
				if c.Type != graphmodel.PartOf {
					continue
				}
				gs, err := g.Component(c)
				if err != nil {
					continue
				}
				for _, e := range gs.Outgoing(cur) {
					if visited[e.Target] {
						continue
					}
					visited[e.Target] = true
					if doc, ok := g.NodeAnnotations().Get(e.Target, graphmodel.AnnoDoc); ok {
						docs = append(docs, doc)
						continue
					}
					next = append(next, e.Target)
				}
			}
		}
		frontier = next
	}
	return docs
}

// Order controls how Find sorts its results before pagination.
type Order string

const (
	OrderNormal     Order = "Normal"
	OrderInverted   Order = "Inverted"
	OrderRandomized Order = "Randomized"
	OrderNotSorted  Order = "NotSorted"
)

// Find produces human-readable match identifiers: one space-separated line
// of `[{ns::}name::]encoded-node-name` tokens per result tuple, the
// annis::node_type key always omitted from its prefix. Pagination is
// applied after sorting.
func (s *Store) Find(ctx context.Context, corpusName, q string, offset, limit int, order Order) ([]string, error) {
	timer := metrics.NewTimer()
	var out []string
	err := s.withReadGraph(corpusName, func(g *graph.Graph) error {
		// NotSorted must keep the planner's sequential production order
		// (spec.md §5); every other order sorts explicitly afterward, so
		// parallel joins are safe there.
		ep, err := s.buildPlan(g, corpusName, q, false, order != OrderNotSorted)
		if err != nil {
			return err
		}

		type row struct {
			text string
			doc  string
			anchor graphmodel.NodeID
		}
		var rows []row
		for t := range ep.Iterate(ctx) {
			text, err := formatTuple(g, t)
			if err != nil {
				return err
			}
			doc, anchor := "", graphmodel.NodeID(0)
			if len(t.Nodes) > 0 {
				anchor = t.Nodes[0].Node
				if name, ok := g.NodeAnnotations().Get(anchor, graphmodel.AnnoNodeName); ok {
					doc = graph.DocumentPath(name)
				}
			}
			rows = append(rows, row{text: text, doc: doc, anchor: anchor})
		}
		if err := ep.CheckTimeout(ctx); err != nil {
			return err
		}

		switch order {
		case OrderNormal, OrderInverted:
			sort.SliceStable(rows, func(i, j int) bool {
				if rows[i].doc != rows[j].doc {
					return rows[i].doc < rows[j].doc
				}
				return rows[i].anchor < rows[j].anchor
			})
			if order == OrderInverted {
				for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
					rows[i], rows[j] = rows[j], rows[i]
				}
			}
		case OrderRandomized:
			rand.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		case OrderNotSorted:
			// production order preserved
		}

		lo, hi := paginate(len(rows), offset, limit)
		out = make([]string, 0, hi-lo)
		for _, r := range rows[lo:hi] {
			out = append(out, r.text)
		}
		return nil
	})
	s.observe("find", timer, err)
	return out, err
}

func paginate(n, offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset >= n {
		return n, n
	}
	end := n
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return offset, end
}

func formatTuple(g *graph.Graph, t exec.Tuple) (string, error) {
	parts := make([]string, 0, len(t.Nodes))
	for _, m := range t.Nodes {
		name, ok := g.NodeAnnotations().Get(m.Node, graphmodel.AnnoNodeName)
		if !ok {
			return "", fmt.Errorf("query: node %d has no node_name", m.Node)
		}
		encoded := corpus.NodeNameEncode(name)
		if m.Key == graphmodel.AnnoNodeType {
			parts = append(parts, encoded)
			continue
		}
		parts = append(parts, m.Key.String()+"::"+encoded)
	}
	return strings.Join(parts, " "), nil
}

// FrequencyDef projects one column of a frequency table: the annotation key
// to read off the node bound to Variable.
type FrequencyDef struct {
	Variable string
	Key      graphmodel.AnnoKey
}

// FrequencyRow is one row of a Frequency result: one string per def, plus
// how many matches produced that exact combination.
type FrequencyRow struct {
	Values []string
	Count  uint64
}

// Frequency projects defs over every match of q, aggregating identical
// value tuples and sorting the result descending by count.
func (s *Store) Frequency(ctx context.Context, corpusName, q string, defs []FrequencyDef) ([]FrequencyRow, error) {
	timer := metrics.NewTimer()
	var rows []FrequencyRow
	err := s.withReadGraph(corpusName, func(g *graph.Graph) error {
		ep, err := s.buildPlan(g, corpusName, q, false, true)
		if err != nil {
			return err
		}

		varPos := make(map[string]int, len(ep.NodeOrder()))
		for i, v := range ep.NodeOrder() {
			varPos[v] = i
		}
		for _, d := range defs {
			if _, ok := varPos[d.Variable]; !ok {
				return &corpus.InvalidFrequencyDefinitionError{Desc: fmt.Sprintf("unknown variable %q", d.Variable)}
			}
		}

		counts := make(map[string]*FrequencyRow)
		var order []string
		for t := range ep.Iterate(ctx) {
			values := make([]string, len(defs))
			for i, d := range defs {
				pos := varPos[d.Variable]
				if pos >= len(t.Nodes) {
					continue
				}
				v, _ := g.NodeAnnotations().Get(t.Nodes[pos].Node, d.Key)
				values[i] = v
			}
			key := strings.Join(values, "\x1f")
			if r, ok := counts[key]; ok {
				r.Count++
			} else {
				counts[key] = &FrequencyRow{Values: values, Count: 1}
				order = append(order, key)
			}
		}
		if err := ep.CheckTimeout(ctx); err != nil {
			return err
		}

		rows = make([]FrequencyRow, 0, len(order))
		for _, key := range order {
			rows = append(rows, *counts[key])
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
		return nil
	})
	s.observe("frequency", timer, err)
	return rows, err
}
