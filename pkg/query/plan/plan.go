// Package plan implements the DNF executor: it turns a normalized AQL
// disjunction into a sequence of per-alternative plans and drains them in
// order, reordering tuples to query-node order and suppressing duplicates
// that arise when more than one alternative matches the same binding.
package plan

import (
	"context"
	"iter"
	"strconv"
	"strings"

	"github.com/cuemby/annisgo/pkg/aql"
	"github.com/cuemby/annisgo/pkg/corpus"
	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/query/conjunction"
	"github.com/cuemby/annisgo/pkg/query/exec"
	"github.com/cuemby/annisgo/pkg/query/planner"
)

// checkInterval is how often, in tuples drained from a single alternative,
// the executor checks its deadline, matching spec's coarse-grained
// cancellation policy.
const checkInterval = 1000

// ExecutionPlan holds one exec.Plan per DNF alternative plus the query-node
// order every tuple it yields must be reordered to.
type ExecutionPlan struct {
	corpusName   string
	alternatives []*planner.Plan
	nodeOrder    []string
}

// Build resolves and plans every alternative of disj against g.
func Build(corpusName string, g *graph.Graph, disj *aql.Disjunction, copts conjunction.Options, popts planner.Options) (*ExecutionPlan, error) {
	if len(disj.Alternatives) == 0 {
		return &ExecutionPlan{corpusName: corpusName}, nil
	}

	alts := make([]*planner.Plan, 0, len(disj.Alternatives))
	for _, raw := range disj.Alternatives {
		c, err := conjunction.Build(raw, copts)
		if err != nil {
			return nil, err
		}
		p, err := planner.Build(g, c, popts)
		if err != nil {
			return nil, err
		}
		alts = append(alts, p)
	}

	return &ExecutionPlan{
		corpusName:   corpusName,
		alternatives: alts,
		nodeOrder:    alts[0].NodeOrder,
	}, nil
}

// NodeOrder is the first alternative's source variable order. Tuples of
// every alternative are reordered to it; a tuple whose variables do not
// match it is passed through unchanged (see reorder).
func (e *ExecutionPlan) NodeOrder() []string { return e.nodeOrder }

// EstimatedOutputSize sums each alternative's cost-model estimate.
func (e *ExecutionPlan) EstimatedOutputSize() uint64 {
	var total uint64
	for _, a := range e.alternatives {
		total += a.Root.EstimatedOutputSize()
	}
	return total
}

// IsSortedByText is true only when there is exactly one alternative and its
// plan is already producing document-path/token-position order.
func (e *ExecutionPlan) IsSortedByText() bool {
	return len(e.alternatives) == 1 && e.alternatives[0].Root.IsSortedByText()
}

// Iterate drains every alternative in turn. With a single alternative the
// executor is a pass-through (proxy mode): tuples are reordered but no
// seen-set is built, since no other alternative can produce a duplicate.
// ctx, if non-nil, is checked every checkInterval tuples per alternative;
// on expiry iteration stops and yields no further tuples (the caller learns
// of the timeout via ctx.Err()).
func (e *ExecutionPlan) Iterate(ctx context.Context) iter.Seq[exec.Tuple] {
	return func(yield func(exec.Tuple) bool) {
		proxy := len(e.alternatives) <= 1
		var seen map[string]struct{}
		if !proxy {
			seen = make(map[string]struct{})
		}

		for _, alt := range e.alternatives {
			varPos := make(map[string]int, len(alt.Root.Vars()))
			for i, v := range alt.Root.Vars() {
				varPos[v] = i
			}

			count := 0
			for t := range alt.Root.Iterate() {
				count++
				if ctx != nil && count%checkInterval == 0 {
					select {
					case <-ctx.Done():
						return
					default:
					}
				}

				reordered := reorder(t, e.nodeOrder, varPos)
				if !proxy {
					key := tupleKey(reordered)
					if _, dup := seen[key]; dup {
						continue
					}
					seen[key] = struct{}{}
				}
				if !yield(reordered) {
					return
				}
			}
		}
	}
}

// CheckTimeout reports corpus.TimeoutError if ctx has already expired,
// giving callers a typed error to return from Count/Find/etc after Iterate
// stops early.
func (e *ExecutionPlan) CheckTimeout(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return &corpus.TimeoutError{Name: e.corpusName}
	default:
		return nil
	}
}

// reorder rearranges t's Matches from the exec.Plan's internal production
// order into nodeOrder (the order query variables appear in source). If the
// shapes don't line up it is returned unchanged rather than panicking, since
// a mismatch here is a planner bug, not a query-time condition to recover
// from.
func reorder(t exec.Tuple, nodeOrder []string, varPos map[string]int) exec.Tuple {
	if len(nodeOrder) != len(t.Nodes) {
		return t
	}
	out := make([]graphmodel.Match, len(nodeOrder))
	for j, v := range nodeOrder {
		i, ok := varPos[v]
		if !ok || i >= len(t.Nodes) {
			return t
		}
		out[j] = t.Nodes[i]
	}
	return exec.Tuple{Nodes: out}
}

func tupleKey(t exec.Tuple) string {
	var b strings.Builder
	for _, m := range t.Nodes {
		b.WriteString(strconv.FormatUint(uint64(m.Node), 10))
		b.WriteByte('|')
		b.WriteString(m.Key.String())
		b.WriteByte(';')
	}
	return b.String()
}
