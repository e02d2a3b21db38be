package aql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSimpleNodeSearch(t *testing.T) {
	expr, err := Parse("tok")
	require.NoError(t, err)
	require.Len(t, expr.Or, 1)
	require.Len(t, expr.Or[0].Terms, 1)

	lit := expr.Or[0].Terms[0].Literal
	require.NotNil(t, lit)
	require.NotNil(t, lit.NodeSearch)
	require.Equal(t, "tok", lit.NodeSearch.Name)
}

func TestParseNodeSearchWithValueAndVariable(t *testing.T) {
	expr, err := Parse(`pos="NN" #p`)
	require.NoError(t, err)
	lit := expr.Or[0].Terms[0].Literal.NodeSearch
	require.Equal(t, "pos", lit.Name)
	require.Equal(t, `"NN"`, lit.Value)
	require.Equal(t, "p", lit.Variable)
}

func TestParseNegatedLiteral(t *testing.T) {
	expr, err := Parse("!tok")
	require.NoError(t, err)
	require.True(t, expr.Or[0].Terms[0].Literal.Negated)
}

func TestParseBinaryPrecedenceOperator(t *testing.T) {
	expr, err := Parse("tok #a & tok #b & #a . #b")
	require.NoError(t, err)
	require.Len(t, expr.Or[0].Terms, 3)
	bin := expr.Or[0].Terms[2].Literal.BinaryOp
	require.NotNil(t, bin)
	require.Equal(t, "a", bin.LHS)
	require.Equal(t, "b", bin.RHS)
	require.Equal(t, ".", bin.Precedence)
}

func TestParseInvalidQueryReturnsSyntaxError(t *testing.T) {
	_, err := Parse("tok &")
	require.Error(t, err)
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
}

func TestParseParenthesizedSubExpression(t *testing.T) {
	expr, err := Parse("tok & (pos | lemma)")
	require.NoError(t, err)
	require.Len(t, expr.Or[0].Terms, 2)
	require.NotNil(t, expr.Or[0].Terms[1].Sub)
	require.Len(t, expr.Or[0].Terms[1].Sub.Or, 2)
}
