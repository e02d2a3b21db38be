package conjunction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/annisgo/pkg/aql"
	"github.com/cuemby/annisgo/pkg/query/operators"
)

func buildFirst(t *testing.T, query string, opts Options) *Conjunction {
	t.Helper()
	expr, err := aql.Parse(query)
	require.NoError(t, err)
	disj, err := aql.Normalize(expr)
	require.NoError(t, err)
	require.NotEmpty(t, disj.Alternatives)

	c, err := Build(disj.Alternatives[0], opts)
	require.NoError(t, err)
	return c
}

func TestBuildResolvesNamedVariables(t *testing.T) {
	c := buildFirst(t, "pos #p", Options{})
	require.Len(t, c.Nodes, 1)
	require.Equal(t, "p", c.Nodes[0].Variable)
	require.Equal(t, "pos", c.Nodes[0].Name)
}

func TestBuildAssignsPositionalVariablesWhenUnnamed(t *testing.T) {
	c := buildFirst(t, "tok & tok", Options{})
	require.Len(t, c.Nodes, 2)
	require.Equal(t, "n1", c.Nodes[0].Variable)
	require.Equal(t, "n2", c.Nodes[1].Variable)
}

func TestBuildAttachesPrecedenceBinaryFilter(t *testing.T) {
	c := buildFirst(t, "tok #a & tok #b & #a .1,1 #b", Options{})
	require.Len(t, c.BinaryFilters, 1)
	f := c.BinaryFilters[0]
	require.Equal(t, "a", f.LHS)
	require.Equal(t, "b", f.RHS)
	prec, ok := f.Op.(operators.Precedence)
	require.True(t, ok)
	require.Equal(t, 1, prec.Min)
	require.Equal(t, 1, prec.Max)
}

func TestBuildUnboundedPrecedenceUsesZeroMax(t *testing.T) {
	c := buildFirst(t, "tok #a & tok #b & #a .* #b", Options{})
	prec := c.BinaryFilters[0].Op.(operators.Precedence)
	require.Equal(t, 1, prec.Min)
	require.Equal(t, 0, prec.Max)
}

func TestBuildQuirksModeClampsUnboundedPrecedenceTo50(t *testing.T) {
	c := buildFirst(t, "tok #a & tok #b & #a .* #b", Options{QuirksMode: true})
	prec := c.BinaryFilters[0].Op.(operators.Precedence)
	require.Equal(t, 1, prec.Min)
	require.Equal(t, 50, prec.Max)
}

func TestBuildNegationWithBothNonOptionalWrapsNegatedOp(t *testing.T) {
	c := buildFirst(t, "tok #a & tok #b & !#a _ident_ #b", Options{})
	require.Len(t, c.BinaryFilters, 1)
	_, ok := c.BinaryFilters[0].Op.(operators.NegatedOp)
	require.True(t, ok)
}

func TestBuildNegationWithOneOptionalSideBecomesUnaryFilter(t *testing.T) {
	c := buildFirst(t, "tok #a & tok #b? & !#a _ident_ #b", Options{})
	require.Empty(t, c.BinaryFilters)
	require.Len(t, c.UnaryFilters, 1)
	_, ok := c.UnaryFilters[0].Op.(operators.NonExistingUnary)
	require.True(t, ok)
}

func TestBuildNegationWithBothOptionalIsSemanticError(t *testing.T) {
	expr, err := aql.Parse("tok #a? & tok #b? & !#a _ident_ #b")
	require.NoError(t, err)
	disj, err := aql.Normalize(expr)
	require.NoError(t, err)

	_, err = Build(disj.Alternatives[0], Options{})
	require.Error(t, err)
	var semErr *aql.SemanticError
	require.ErrorAs(t, err, &semErr)
}

func TestBuildRejectsDisconnectedNodes(t *testing.T) {
	expr, err := aql.Parse("tok #a & tok #b & tok #c & #a . #b")
	require.NoError(t, err)
	disj, err := aql.Normalize(expr)
	require.NoError(t, err)

	_, err = Build(disj.Alternatives[0], Options{})
	require.Error(t, err)
}

func TestBuildArityUnaryFilter(t *testing.T) {
	c := buildFirst(t, "tok #a & #a:arity=1,3", Options{})
	require.Len(t, c.UnaryFilters, 1)
	arity, ok := c.UnaryFilters[0].Op.(operators.Arity)
	require.True(t, ok)
	require.Equal(t, 1, arity.Min)
	require.Equal(t, 3, arity.Max)
}

func TestBuildUnknownVariableInBinaryOpIsSemanticError(t *testing.T) {
	expr, err := aql.Parse("tok #a & #a . #missing")
	require.NoError(t, err)
	disj, err := aql.Normalize(expr)
	require.NoError(t, err)

	_, err = Build(disj.Alternatives[0], Options{})
	require.Error(t, err)
}
