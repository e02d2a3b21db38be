package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/annisgo/pkg/corpus"
	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/updatelog"
)

// newFiveTokenCorpus builds a single-document corpus with five tokens
// ordered t1..t5 on the default "annis" Ordering component, matching the
// fixture scenario used throughout this package's Count/Find tests.
func newFiveTokenCorpus(t *testing.T, corpusName string) *Store {
	t.Helper()
	m, err := corpus.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown() })

	_, err = m.GetLoadedEntry(corpusName, true, false)
	require.NoError(t, err)

	var events []updatelog.Event
	names := []string{"n1", "n2", "n3", "n4", "n5"}
	words := []string{"The", "cat", "sat", "on", "mat"}
	for i, n := range names {
		nodeName := corpusName + "#doc#" + n
		events = append(events,
			updatelog.AddNode{NodeName: nodeName, NodeType: "node"},
			updatelog.AddNodeLabel{NodeName: nodeName, Namespace: "annis", Name: "tok", Value: words[i]},
		)
	}
	for i := 0; i+1 < len(names); i++ {
		events = append(events, updatelog.AddEdge{
			SourceNode: corpusName + "#doc#" + names[i], TargetNode: corpusName + "#doc#" + names[i+1],
			Layer: "annis", ComponentType: string(graphmodel.Ordering), ComponentName: "annis",
		})
	}
	require.NoError(t, m.Apply(corpusName, events))

	return NewStore(m)
}

func TestCountMatchesEveryToken(t *testing.T) {
	s := newFiveTokenCorpus(t, "corpus1")
	count, err := s.Count(context.Background(), "corpus1", "tok")
	require.NoError(t, err)
	require.EqualValues(t, 5, count)
}

func TestCountAdjacentTokenPairsOnFiveTokenChain(t *testing.T) {
	s := newFiveTokenCorpus(t, "corpus1")
	count, err := s.Count(context.Background(), "corpus1", "tok #a & tok #b & #a .1,1 #b")
	require.NoError(t, err)
	require.EqualValues(t, 4, count)
}

func TestCountReturnsSyntaxErrorForInvalidQuery(t *testing.T) {
	s := newFiveTokenCorpus(t, "corpus1")
	_, err := s.Count(context.Background(), "corpus1", "tok &")
	require.Error(t, err)
}

func TestCountReturnsNoSuchCorpusError(t *testing.T) {
	s := newFiveTokenCorpus(t, "corpus1")
	_, err := s.Count(context.Background(), "missing-corpus", "tok")
	require.Error(t, err)
	var notFound *corpus.NoSuchCorpusError
	require.ErrorAs(t, err, &notFound)
}

func TestFindFormatsMatchAsKeyAndEncodedNodeName(t *testing.T) {
	s := newFiveTokenCorpus(t, "corpus1")
	rows, err := s.Find(context.Background(), "corpus1", "tok", 0, -1, OrderNormal)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	require.Contains(t, rows[0], "tok::")
	require.Contains(t, rows[0], "corpus1%23doc%23n1")
}

func TestFindPaginatesAfterSorting(t *testing.T) {
	s := newFiveTokenCorpus(t, "corpus1")
	rows, err := s.Find(context.Background(), "corpus1", "tok", 1, 2, OrderNormal)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestFrequencyAggregatesAndSortsDescendingByCount(t *testing.T) {
	s := newFiveTokenCorpus(t, "corpus1")
	rows, err := s.Frequency(context.Background(), "corpus1", "tok", []FrequencyDef{
		{Variable: "n1", Key: graphmodel.AnnoKey{NS: "annis", Name: "tok"}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for _, r := range rows {
		require.EqualValues(t, 1, r.Count)
	}
}

func TestFrequencyRejectsUnknownVariable(t *testing.T) {
	s := newFiveTokenCorpus(t, "corpus1")
	_, err := s.Frequency(context.Background(), "corpus1", "tok", []FrequencyDef{
		{Variable: "does-not-exist", Key: graphmodel.AnnoKey{NS: "annis", Name: "tok"}},
	})
	require.Error(t, err)
	var invalid *corpus.InvalidFrequencyDefinitionError
	require.ErrorAs(t, err, &invalid)
}

func TestCountExtraCountsEveryMatch(t *testing.T) {
	s := newFiveTokenCorpus(t, "corpus1")
	result, err := s.CountExtra(context.Background(), "corpus1", "tok")
	require.NoError(t, err)
	require.EqualValues(t, 5, result.Count)
}
