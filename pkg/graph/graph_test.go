package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/updatelog"
)

func TestIDFromNameInvariant(t *testing.T) {
	g := New(t.TempDir())
	require.NoError(t, g.Apply([]updatelog.Event{
		updatelog.AddNode{NodeName: "doc#n1", NodeType: "node"},
	}))

	id, ok := g.IDFromName("doc#n1")
	require.True(t, ok)
	v, ok := g.NodeAnnotations().Get(id, graphmodel.AnnoNodeName)
	require.True(t, ok)
	require.Equal(t, "doc#n1", v)

	_, ok = g.IDFromName("doc#missing")
	require.False(t, ok)
}

func TestDeleteNodeRemovesAnnotationsAndEdges(t *testing.T) {
	g := New(t.TempDir())
	require.NoError(t, g.Apply([]updatelog.Event{
		updatelog.AddNode{NodeName: "doc#n1", NodeType: "node"},
		updatelog.AddNode{NodeName: "doc#n2", NodeType: "node"},
		updatelog.AddEdge{SourceNode: "doc#n1", TargetNode: "doc#n2", ComponentType: "Ordering", ComponentName: "annis"},
		updatelog.DeleteNode{NodeName: "doc#n1"},
	}))

	_, ok := g.IDFromName("doc#n1")
	require.False(t, ok)

	n2, ok := g.IDFromName("doc#n2")
	require.True(t, ok)
	c := graphmodel.Component{Type: graphmodel.Ordering, Name: "annis"}
	gs, err := g.Component(c)
	require.NoError(t, err)
	require.Empty(t, gs.Ingoing(n2))
}

func TestAddNodeLabelOnUnknownNodeFails(t *testing.T) {
	g := New(t.TempDir())
	err := g.Apply([]updatelog.Event{
		updatelog.AddNodeLabel{NodeName: "doc#missing", Namespace: "annis", Name: "pos", Value: "NN"},
	})
	require.Error(t, err)
}

func TestDocumentPathSplitsOnHash(t *testing.T) {
	require.Equal(t, "corpus/doc1", DocumentPath("corpus/doc1#n1"))
	require.Equal(t, "no-hash", DocumentPath("no-hash"))
}

func TestSaveSnapshotThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	g := New(dir)
	require.NoError(t, g.Apply([]updatelog.Event{
		updatelog.AddNode{NodeName: "doc#n1", NodeType: "node"},
		updatelog.AddNode{NodeName: "doc#n2", NodeType: "node"},
		updatelog.AddEdge{SourceNode: "doc#n1", TargetNode: "doc#n2", ComponentType: "Ordering", ComponentName: "annis"},
	}))
	require.NoError(t, g.SaveSnapshot())

	loaded, err := Load(dir)
	require.NoError(t, err)

	id1, ok := loaded.IDFromName("doc#n1")
	require.True(t, ok)
	id2, ok := loaded.IDFromName("doc#n2")
	require.True(t, ok)

	c := graphmodel.Component{Type: graphmodel.Ordering, Name: "annis"}
	gs, err := loaded.Component(c)
	require.NoError(t, err)
	require.True(t, gs.IsConnected(id1, id2, 1, 1))
}

func TestSaveSnapshotRotatesCurrentToBackupOnSecondSave(t *testing.T) {
	dir := t.TempDir()
	g := New(dir)
	require.NoError(t, g.Apply([]updatelog.Event{
		updatelog.AddNode{NodeName: "doc#n1", NodeType: "node"},
	}))
	require.NoError(t, g.SaveSnapshot())

	require.NoError(t, g.Apply([]updatelog.Event{
		updatelog.AddNode{NodeName: "doc#n2", NodeType: "node"},
	}))
	require.NoError(t, g.SaveSnapshot())

	loaded, err := Load(dir)
	require.NoError(t, err)
	_, ok := loaded.IDFromName("doc#n1")
	require.True(t, ok)
	_, ok = loaded.IDFromName("doc#n2")
	require.True(t, ok)
}
