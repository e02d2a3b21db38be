package aql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSingleConjunctionHasOneAlternative(t *testing.T) {
	expr, err := Parse("tok & pos")
	require.NoError(t, err)

	disj, err := Normalize(expr)
	require.NoError(t, err)
	require.Len(t, disj.Alternatives, 1)
	require.Len(t, disj.Alternatives[0].Literals, 2)
}

func TestNormalizeTopLevelOrYieldsOneAlternativePerBranch(t *testing.T) {
	expr, err := Parse("tok | pos")
	require.NoError(t, err)

	disj, err := Normalize(expr)
	require.NoError(t, err)
	require.Len(t, disj.Alternatives, 2)
	require.Len(t, disj.Alternatives[0].Literals, 1)
	require.Len(t, disj.Alternatives[1].Literals, 1)
}

func TestNormalizeDistributesOrOverAnd(t *testing.T) {
	expr, err := Parse("tok & (pos | lemma)")
	require.NoError(t, err)

	disj, err := Normalize(expr)
	require.NoError(t, err)
	require.Len(t, disj.Alternatives, 2)
	for _, alt := range disj.Alternatives {
		require.Len(t, alt.Literals, 2)
		require.Equal(t, "tok", alt.Literals[0].NodeSearch.Name)
	}
	require.Equal(t, "pos", disj.Alternatives[0].Literals[1].NodeSearch.Name)
	require.Equal(t, "lemma", disj.Alternatives[1].Literals[1].NodeSearch.Name)
}

func TestNormalizeDistributesNestedParenthesesAcrossBothSides(t *testing.T) {
	expr, err := Parse("(tok | pos) & (lemma | norm)")
	require.NoError(t, err)

	disj, err := Normalize(expr)
	require.NoError(t, err)
	require.Len(t, disj.Alternatives, 4)
	for _, alt := range disj.Alternatives {
		require.Len(t, alt.Literals, 2)
	}
}

func TestRawConjunctionStringIncludesEveryLiteral(t *testing.T) {
	expr, err := Parse("tok & pos")
	require.NoError(t, err)
	disj, err := Normalize(expr)
	require.NoError(t, err)

	s := disj.Alternatives[0].String()
	require.Contains(t, s, "&")
}
