// Package graphstorage defines the GraphStorage capability interface shared
// by every physical edge-storage implementation, and a registry that picks
// an implementation from graph statistics.
package graphstorage

import (
	"github.com/cuemby/annisgo/pkg/annostorage"
	"github.com/cuemby/annisgo/pkg/graphmodel"
)

// GraphStorage is the capability set every physical edge-store
// implementation must provide for one Component.
type GraphStorage interface {
	Outgoing(n graphmodel.NodeID) []graphmodel.Edge
	Ingoing(n graphmodel.NodeID) []graphmodel.Edge
	// AllEdges enumerates every edge currently held, used by Serialize to
	// persist the component's edges independently of its internal shape.
	AllEdges() []graphmodel.Edge

	FindConnected(n graphmodel.NodeID, min, max int) []graphmodel.NodeID
	FindConnectedInverse(n graphmodel.NodeID, min, max int) []graphmodel.NodeID
	IsConnected(from, to graphmodel.NodeID, min, max int) bool
	Distance(from, to graphmodel.NodeID) (int, bool)

	EdgeAnnotations() *annostorage.AnnoStorage[graphmodel.Edge]

	Statistics() graphmodel.GraphStatistics
	InverseHasSameCost() bool

	AddEdge(e graphmodel.Edge)
	DeleteEdge(e graphmodel.Edge)
	AsWriteable() (WriteableGraphStorage, bool)
	Copy(other GraphStorage)

	ImplID() ImplID
}

// WriteableGraphStorage is the subset of GraphStorage implementations that
// support direct mutation (as opposed to precomputed read-optimized forms
// such as a transitive closure).
type WriteableGraphStorage interface {
	GraphStorage
}

// ImplID names one registered GraphStorage implementation, persisted in a
// component's impl.cfg descriptor for self-describing deserialization.
type ImplID string

const (
	ImplAdjacencyList     ImplID = "adjacencylist"
	ImplTransitiveClosure ImplID = "transitiveclosure"
	ImplLinear            ImplID = "linear"
	ImplPrePostOrder      ImplID = "prepostorder"
)
