// Package conjunction resolves node variables, attaches operators, and
// rewrites negation for one normalized AQL conjunction, producing the input
// the planner consumes.
package conjunction

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cuemby/annisgo/pkg/annostorage"
	"github.com/cuemby/annisgo/pkg/aql"
	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/query/operators"
)

// Node is one resolved node-search position in a conjunction.
type Node struct {
	Variable  string
	NS, Name  string
	Value     string
	IsRegex   bool
	HasValue  bool
	IsMeta    bool
	Optional  bool
}

// BinaryFilter joins two resolved node positions with an operator.
type BinaryFilter struct {
	LHS, RHS string
	Op       operators.BinaryOperator
}

// UnaryFilter constrains one resolved node position.
type UnaryFilter struct {
	Node string
	Op   operators.UnaryOperator
}

// Conjunction is the builder's output: resolved node positions plus the
// unary and binary filters attached to them.
type Conjunction struct {
	Nodes         []Node
	NodePos       map[string]int
	UnaryFilters  []UnaryFilter
	BinaryFilters []BinaryFilter
	QuirksMode    bool
}

// Options controls quirks-mode behavior.
type Options struct {
	QuirksMode bool
}

// Build resolves variables and attaches operators for one raw DNF
// conjunction.
func Build(raw aql.RawConjunction, opts Options) (*Conjunction, error) {
	c := &Conjunction{NodePos: make(map[string]int), QuirksMode: opts.QuirksMode}

	posCounter := 0
	varFor := func(lit *aql.NodeSearch) string {
		if lit.Variable != "" {
			return lit.Variable
		}
		posCounter++
		return fmt.Sprintf("n%d", posCounter)
	}

	// Pass 1: register every node-search literal in order of appearance.
	for _, lit := range raw.Literals {
		if lit.Literal.NodeSearch == nil {
			continue
		}
		ns := lit.Literal.NodeSearch
		v := varFor(ns)
		if _, exists := c.NodePos[v]; exists {
			continue
		}
		c.NodePos[v] = len(c.Nodes)
		c.Nodes = append(c.Nodes, Node{
			Variable: v,
			NS:       ns.Namespace,
			Name:     ns.Name,
			Value:    ns.Value,
			IsRegex:  ns.IsRegex,
			HasValue: ns.Value != "",
			IsMeta:   ns.IsMeta,
			Optional: ns.Optional,
		})
	}

	// Pass 2: attach unary and binary operator literals.
	for _, lit := range raw.Literals {
		switch {
		case lit.Literal.UnaryOp != nil:
			if err := c.attachUnary(lit.Literal.UnaryOp); err != nil {
				return nil, err
			}
		case lit.Literal.BinaryOp != nil:
			if err := c.attachBinary(lit.Literal.BinaryOp, lit.Literal.Negated, opts); err != nil {
				return nil, err
			}
		}
	}

	if opts.QuirksMode {
		c.emulateRepeatedEdgeJoins()
	}
	c.attachLegacyMeta()

	// Optional nodes left without a binary filter (the optional side of a
	// negated operator) take no tuple position.
	used := map[string]bool{}
	for _, f := range c.BinaryFilters {
		used[f.LHS], used[f.RHS] = true, true
	}
	kept := map[string]int{}
	var nodes []Node
	for _, n := range c.Nodes {
		if !n.Optional || used[n.Variable] {
			kept[n.Variable] = len(nodes)
			nodes = append(nodes, n)
		}
	}
	if len(nodes) > 0 {
		c.Nodes, c.NodePos = nodes, kept
	}

	if err := c.checkConnected(); err != nil {
		return nil, err
	}
	if err := c.checkNegationHasPositivePartner(); err != nil {
		return nil, err
	}
	return c, nil
}

// emulateRepeatedEdgeJoins reproduces legacy quirks-mode behavior: when the
// same variable is the LHS of more than one Dominance/Pointing binary filter,
// every repetition past the first gets its own duplicate node, joined back to
// the original via identical-node, so each edge operator sees a distinct RHS
// LHS tuple position instead of sharing one.
func (c *Conjunction) emulateRepeatedEdgeJoins() {
	seen := map[string]int{}
	for i := range c.BinaryFilters {
		f := &c.BinaryFilters[i]
		switch f.Op.(type) {
		case operators.Dominance, operators.Pointing:
		default:
			continue
		}
		seen[f.LHS]++
		if seen[f.LHS] <= 1 {
			continue
		}
		orig := c.Nodes[c.NodePos[f.LHS]]
		dup := orig
		dup.Variable = fmt.Sprintf("%s_dup%d", f.LHS, seen[f.LHS])
		c.NodePos[dup.Variable] = len(c.Nodes)
		c.Nodes = append(c.Nodes, dup)
		c.BinaryFilters = append(c.BinaryFilters, BinaryFilter{
			LHS: f.LHS, RHS: dup.Variable, Op: operators.IdenticalNode{},
		})
		f.LHS = dup.Variable
	}
}

// attachLegacyMeta joins every declared meta node to the first node via a
// transitive part-of and forces the meta-joined node to be a document.
func (c *Conjunction) attachLegacyMeta() {
	if len(c.Nodes) == 0 {
		return
	}
	root := c.Nodes[0].Variable
	for _, n := range c.Nodes {
		if !n.IsMeta || n.Variable == root {
			continue
		}
		c.BinaryFilters = append(c.BinaryFilters, BinaryFilter{
			LHS: root, RHS: n.Variable, Op: operators.PartOf{Transitive: true},
		})
		c.UnaryFilters = append(c.UnaryFilters, UnaryFilter{
			Node: n.Variable, Op: operators.IsDocument{},
		})
	}
}

func (c *Conjunction) attachUnary(lit *aql.UnaryOpLiteral) error {
	if _, ok := c.NodePos[lit.Node]; !ok {
		return &aql.SemanticError{Desc: fmt.Sprintf("unknown variable #%s", lit.Node)}
	}
	if lit.Name != "arity" {
		return &aql.SemanticError{Desc: fmt.Sprintf("unknown unary operator %q", lit.Name)}
	}
	c.UnaryFilters = append(c.UnaryFilters, UnaryFilter{
		Node: lit.Node,
		Op:   operators.Arity{Min: lit.Min, Max: lit.Max},
	})
	return nil
}

func (c *Conjunction) attachBinary(lit *aql.BinaryOpLiteral, negated bool, opts Options) error {
	if _, ok := c.NodePos[lit.LHS]; !ok {
		return &aql.SemanticError{Desc: fmt.Sprintf("unknown variable #%s", lit.LHS)}
	}
	if _, ok := c.NodePos[lit.RHS]; !ok {
		return &aql.SemanticError{Desc: fmt.Sprintf("unknown variable #%s", lit.RHS)}
	}

	op, err := resolveOperator(lit, opts)
	if err != nil {
		return err
	}

	if lit.EdgeAnnoName != "" {
		op = operators.EdgeAnnoFilter{
			Inner: op,
			Key:   graphmodel.AnnoKey{NS: lit.EdgeAnnoNS, Name: lit.EdgeAnnoName},
			Value: lit.EdgeAnnoValue,
		}
	}

	lhsOptional := c.Nodes[c.NodePos[lit.LHS]].Optional
	rhsOptional := c.Nodes[c.NodePos[lit.RHS]].Optional

	if negated {
		switch {
		case !lhsOptional && !rhsOptional:
			op = operators.NegatedOp{Inner: op}
		case lhsOptional && rhsOptional:
			return &aql.SemanticError{Desc: "negated operator cannot have both sides optional"}
		case rhsOptional:
			c.UnaryFilters = append(c.UnaryFilters, UnaryFilter{
				Node: lit.LHS,
				Op: operators.NonExistingUnary{
					Op:        op,
					OtherSide: c.candidatesFor(lit.RHS),
				},
			})
			return nil
		default: // lhsOptional
			c.UnaryFilters = append(c.UnaryFilters, UnaryFilter{
				Node: lit.RHS,
				Op: operators.NonExistingUnary{
					Op:        op,
					OtherSide: c.candidatesFor(lit.LHS),
				},
			})
			return nil
		}
	}

	c.BinaryFilters = append(c.BinaryFilters, BinaryFilter{LHS: lit.LHS, RHS: lit.RHS, Op: op})
	return nil
}

// candidatesFor returns a closure that re-runs variable v's own node-search
// spec against a graph, used as the "other side" enumeration for a
// NonExistingUnary filter when v is the optional operand of a negated
// binary operator.
func (c *Conjunction) candidatesFor(v string) func(g *graph.Graph) []graphmodel.NodeID {
	node := c.Nodes[c.NodePos[v]]
	return func(g *graph.Graph) []graphmodel.NodeID {
		vs := annostorage.ValueSearch{Kind: annostorage.Any}
		if node.HasValue {
			vs = annostorage.ValueSearch{Kind: annostorage.Some, Value: node.Value}
		}
		return g.NodeAnnotations().ExactSearch(node.NS, node.Name, vs)
	}
}

func parseRange(s string, quirks bool) (int, int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		if quirks {
			return 1, 50, nil
		}
		return 1, 0, nil
	}
	parts := strings.SplitN(s, ",", 2)
	min, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("conjunction: invalid range %q: %w", s, err)
	}
	max := min
	if len(parts) == 2 {
		max, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, 0, fmt.Errorf("conjunction: invalid range %q: %w", s, err)
		}
	}
	if quirks {
		if min > 50 {
			min = 50
		}
		if max > 50 || max == 0 {
			max = 50
		}
	}
	return min, max, nil
}

func resolveOperator(lit *aql.BinaryOpLiteral, opts Options) (operators.BinaryOperator, error) {
	switch {
	case lit.Precedence != "":
		min, max, err := parsePrecedenceToken(lit.Precedence, opts.QuirksMode)
		if err != nil {
			return nil, err
		}
		return operators.Precedence{Min: min, Max: max, Segmentation: lit.Layer}, nil
	case lit.Near != "":
		min, max, err := parseRange(strings.TrimPrefix(lit.Near, "^"), opts.QuirksMode)
		if err != nil {
			return nil, err
		}
		return operators.Near{Min: min, Max: max, Segmentation: lit.Layer}, nil
	case lit.Dominance != "":
		min, max := 1, 1
		if strings.Contains(lit.Dominance, "*") {
			max = 0
		}
		return operators.Dominance{Name: lit.Layer, Min: min, Max: max}, nil
	case lit.Pointing != "":
		return operators.Pointing{Name: lit.Layer, Min: 1, Max: 1}, nil
	case lit.Overlap:
		return operators.Overlap{}, nil
	case lit.Inclusion:
		return operators.Inclusion{}, nil
	case lit.IdenticalCov:
		return operators.IdenticalCoverage{}, nil
	case lit.LeftAlign:
		return operators.LeftAlignment{}, nil
	case lit.RightAlign:
		return operators.RightAlignment{}, nil
	case lit.IdenticalNode:
		return operators.IdenticalNode{}, nil
	case lit.PartOf != "":
		return operators.PartOf{Transitive: strings.Contains(lit.PartOf, "*")}, nil
	default:
		return nil, &aql.SemanticError{Desc: "unrecognized binary operator"}
	}
}

// parsePrecedenceToken handles both ".*" (unbounded) and ".min,max".
func parsePrecedenceToken(tok string, quirks bool) (int, int, error) {
	tok = strings.TrimPrefix(tok, ".")
	if tok == "*" {
		if quirks {
			return 1, 50, nil
		}
		return 1, 0, nil
	}
	return parseRange(tok, quirks)
}

// checkConnected requires the binary-operator graph over node positions to
// be connected whenever there is more than one node.
func (c *Conjunction) checkConnected() error {
	if len(c.Nodes) <= 1 {
		return nil
	}
	adj := make(map[string][]string)
	for _, f := range c.BinaryFilters {
		adj[f.LHS] = append(adj[f.LHS], f.RHS)
		adj[f.RHS] = append(adj[f.RHS], f.LHS)
	}
	visited := map[string]bool{}
	var stack []string
	stack = append(stack, c.Nodes[0].Variable)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		stack = append(stack, adj[n]...)
	}
	for _, n := range c.Nodes {
		if !visited[n.Variable] {
			return &aql.SemanticError{Desc: fmt.Sprintf("node #%s is not connected to the rest of the query", n.Variable)}
		}
	}
	return nil
}

// checkNegationHasPositivePartner enforces the design note in spec.md §9:
// every negated operator must have at least one reachable positive
// constraint, preventing Cartesian explosion.
func (c *Conjunction) checkNegationHasPositivePartner() error {
	hasPositive := false
	for _, f := range c.BinaryFilters {
		if _, ok := f.Op.(operators.NegatedOp); !ok {
			hasPositive = true
		}
	}
	if !hasPositive && len(c.BinaryFilters) > 0 {
		allNegated := true
		for _, f := range c.BinaryFilters {
			if _, ok := f.Op.(operators.NegatedOp); !ok {
				allNegated = false
			}
		}
		if allNegated && len(c.Nodes) > 2 {
			return &aql.SemanticError{Desc: "negated operator has no reachable positive constraint"}
		}
	}
	return nil
}
