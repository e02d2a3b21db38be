package exec

import (
	"iter"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/query/operators"
)

// defaultParallelWorkers bounds the goroutine pool a Parallel* operator
// starts when its caller leaves Workers unset.
func defaultParallelWorkers() int {
	if n := runtime.GOMAXPROCS(0); n > 1 {
		return n
	}
	return 1
}

// parallelChunkSize is how many outer tuples one worker claims per step; a
// worker that finishes its chunk early claims another rather than sitting
// idle while a slower worker works through a fixed static partition.
const parallelChunkSize = 64

// IndexJoin scans Outer and, for each tuple, calls Op's index retriever on
// the node bound at OuterPos; candidates are filtered by Predicate and
// deduplicated before being appended to the tuple.
type IndexJoin struct {
	Graph     *graph.Graph
	Outer     Plan
	OuterPos  int
	Op        operators.BinaryOperator
	RHSVar    string
	RHSKey    graphmodel.AnnoKey
	Predicate func(g *graph.Graph, n graphmodel.NodeID) bool
	Reflexive bool
	Estimated uint64
}

func (j IndexJoin) Iterate() iter.Seq[Tuple] {
	return func(yield func(Tuple) bool) {
		for outer := range j.Outer.Iterate() {
			for _, t := range j.join(outer) {
				if !yield(t) {
					return
				}
			}
		}
	}
}

// join produces every tuple the index retriever yields for one outer tuple,
// shared by IndexJoin and ParallelIndexJoin so the two only differ in how
// they fan out over j.Outer's production.
func (j IndexJoin) join(outer Tuple) []Tuple {
	lhs := outer.Nodes[j.OuterPos].Node
	seen := map[graphmodel.NodeID]bool{}
	var out []Tuple
	for _, cand := range j.Op.RetrieveMatches(j.Graph, lhs) {
		if seen[cand] {
			continue
		}
		seen[cand] = true
		if !j.Reflexive && cand == lhs {
			continue
		}
		if j.Predicate != nil && !j.Predicate(j.Graph, cand) {
			continue
		}
		nodes := make([]graphmodel.Match, len(outer.Nodes), len(outer.Nodes)+1)
		copy(nodes, outer.Nodes)
		nodes = append(nodes, graphmodel.Match{Node: cand, Key: j.RHSKey})
		out = append(out, Tuple{Nodes: nodes})
	}
	return out
}

func (j IndexJoin) Vars() []string              { return append(append([]string{}, j.Outer.Vars()...), j.RHSVar) }
func (j IndexJoin) EstimatedOutputSize() uint64 { return j.Estimated }
func (j IndexJoin) IsSortedByText() bool        { return false }

// ParallelIndexJoin is an IndexJoin that fans its outer stream across a
// bounded pool of goroutines. Outer is materialized once, then Workers
// goroutines claim parallelChunkSize-tuple chunks from a shared counter
// (work-stealing: a fast worker claims the next chunk rather than waiting
// on a fixed static split) and join each tuple independently; results are
// collected per worker and yielded after every worker finishes. Row order
// is not preserved — callers that need NotSorted's production-order
// guarantee must use IndexJoin instead (see spec.md §5).
type ParallelIndexJoin struct {
	IndexJoin
	Workers int
}

func (j ParallelIndexJoin) Iterate() iter.Seq[Tuple] {
	return func(yield func(Tuple) bool) {
		var outer []Tuple
		for t := range j.Outer.Iterate() {
			outer = append(outer, t)
		}

		workers := j.Workers
		if workers <= 0 {
			workers = defaultParallelWorkers()
		}

		var next int64
		perWorker := make([][]Tuple, workers)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				var out []Tuple
				defer func() { perWorker[w] = out }()
				for {
					start := int(atomic.AddInt64(&next, parallelChunkSize)) - parallelChunkSize
					if start >= len(outer) {
						return
					}
					end := start + parallelChunkSize
					if end > len(outer) {
						end = len(outer)
					}
					for _, o := range outer[start:end] {
						out = append(out, j.IndexJoin.join(o)...)
					}
				}
			}(w)
		}
		wg.Wait()

		for _, rs := range perWorker {
			for _, t := range rs {
				if !yield(t) {
					return
				}
			}
		}
	}
}

// NestedLoop caches Inner on first use and, for every (outer, inner) pair,
// calls Op.Filter with direction preserved (outer is LHS, inner is RHS).
type NestedLoop struct {
	Graph     *graph.Graph
	Outer     Plan
	Inner     Plan
	OuterPos  int
	InnerPos  int
	Op        operators.BinaryOperator
	Reflexive bool
	Estimated uint64

	cache     []Tuple
	cacheOnce bool
}

func (n *NestedLoop) fillCache() []Tuple {
	if n.cacheOnce {
		return n.cache
	}
	for t := range n.Inner.Iterate() {
		n.cache = append(n.cache, t)
	}
	n.cacheOnce = true
	return n.cache
}

func (n *NestedLoop) Iterate() iter.Seq[Tuple] {
	return func(yield func(Tuple) bool) {
		inner := n.fillCache()
		for outer := range n.Outer.Iterate() {
			for _, t := range n.join(outer, inner) {
				if !yield(t) {
					return
				}
			}
		}
	}
}

// join pairs one outer tuple against every cached inner tuple, shared by
// NestedLoop and ParallelNestedLoop.
func (n *NestedLoop) join(outer Tuple, inner []Tuple) []Tuple {
	lhs := outer.Nodes[n.OuterPos].Node
	var out []Tuple
	for _, it := range inner {
		rhs := it.Nodes[n.InnerPos].Node
		if !n.Reflexive && lhs == rhs {
			continue
		}
		if !n.Op.Filter(n.Graph, lhs, rhs) {
			continue
		}
		nodes := make([]graphmodel.Match, 0, len(outer.Nodes)+len(it.Nodes))
		nodes = append(nodes, outer.Nodes...)
		nodes = append(nodes, it.Nodes...)
		out = append(out, Tuple{Nodes: nodes})
	}
	return out
}

func (n *NestedLoop) Vars() []string {
	return append(append([]string{}, n.Outer.Vars()...), n.Inner.Vars()...)
}
func (n *NestedLoop) EstimatedOutputSize() uint64 { return n.Estimated }
func (n *NestedLoop) IsSortedByText() bool        { return false }

// ParallelNestedLoop is a NestedLoop that fans its (materialized) outer
// stream across a bounded worker pool once Inner has been cached, using the
// same work-stealing chunk claim as ParallelIndexJoin. Row order is not
// preserved; see ParallelIndexJoin's doc comment for when to prefer the
// sequential form instead.
type ParallelNestedLoop struct {
	NestedLoop
	Workers int
}

func (n *ParallelNestedLoop) Iterate() iter.Seq[Tuple] {
	return func(yield func(Tuple) bool) {
		inner := n.fillCache()

		var outer []Tuple
		for t := range n.Outer.Iterate() {
			outer = append(outer, t)
		}

		workers := n.Workers
		if workers <= 0 {
			workers = defaultParallelWorkers()
		}

		var next int64
		perWorker := make([][]Tuple, workers)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				var out []Tuple
				defer func() { perWorker[w] = out }()
				for {
					start := int(atomic.AddInt64(&next, parallelChunkSize)) - parallelChunkSize
					if start >= len(outer) {
						return
					}
					end := start + parallelChunkSize
					if end > len(outer) {
						end = len(outer)
					}
					for _, o := range outer[start:end] {
						out = append(out, n.NestedLoop.join(o, inner)...)
					}
				}
			}(w)
		}
		wg.Wait()

		for _, rs := range perWorker {
			for _, t := range rs {
				if !yield(t) {
					return
				}
			}
		}
	}
}

// Filter wraps an iterator and drops tuples failing Predicate, used for
// both binary operators whose operands are both already materialized and
// unary operators over a single tuple position.
type Filter struct {
	Inner     Plan
	Predicate func(t Tuple) bool
	Estimated uint64
}

func (f Filter) Iterate() iter.Seq[Tuple] {
	return func(yield func(Tuple) bool) {
		for t := range f.Inner.Iterate() {
			if f.Predicate(t) {
				if !yield(t) {
					return
				}
			}
		}
	}
}

func (f Filter) Vars() []string              { return f.Inner.Vars() }
func (f Filter) EstimatedOutputSize() uint64 { return f.Estimated }
func (f Filter) IsSortedByText() bool        { return f.Inner.IsSortedByText() }
