// Package graphmodel defines the core data types shared by every layer of
// the query engine: nodes, annotations, edges, components and matches.
package graphmodel

import "fmt"

// NodeID is an opaque identifier for a graph node.
type NodeID uint64

// AnnoKey identifies an annotation by namespace and name. Namespace may be
// empty.
type AnnoKey struct {
	NS   string
	Name string
}

func (k AnnoKey) String() string {
	if k.NS == "" {
		return k.Name
	}
	return k.NS + "::" + k.Name
}

// Annotation is a single (key, value) label attached to a node or edge.
type Annotation struct {
	Key   AnnoKey
	Value string
}

// Required annotation keys every node must carry.
var (
	AnnoNodeName = AnnoKey{NS: "annis", Name: "node_name"}
	AnnoNodeType = AnnoKey{NS: "annis", Name: "node_type"}
	AnnoDoc      = AnnoKey{NS: "annis", Name: "doc"}
)

// Node type values.
const (
	NodeTypeNode       = "node"
	NodeTypeCorpus     = "corpus"
	NodeTypeFile       = "file"
	NodeTypeDatasource = "datasource"
)

// Edge is a directed edge between two nodes.
type Edge struct {
	Source NodeID
	Target NodeID
}

func (e Edge) String() string {
	return fmt.Sprintf("%d->%d", e.Source, e.Target)
}

// ComponentType identifies the kind of relation a Component partitions.
type ComponentType string

const (
	Coverage   ComponentType = "Coverage"
	Dominance  ComponentType = "Dominance"
	Pointing   ComponentType = "Pointing"
	Ordering   ComponentType = "Ordering"
	LeftToken  ComponentType = "LeftToken"
	RightToken ComponentType = "RightToken"
	PartOf     ComponentType = "PartOf"
)

// Component is the (type, layer, name) triple that partitions a graph's
// edges into one named family, each owned by exactly one GraphStorage.
type Component struct {
	Type  ComponentType
	Layer string
	Name  string
}

func (c Component) String() string {
	layer := c.Layer
	if layer == "" {
		layer = "DEFAULT"
	}
	return fmt.Sprintf("%s/%s/%s", c.Type, layer, c.Name)
}

// Match is a single (node, annotation key) result element. A query result
// row is a tuple of Matches ordered by query-node position.
type Match struct {
	Node NodeID
	Key  AnnoKey
}

// GraphStatistics summarizes the shape of one graph storage, used only for
// cost and selectivity estimation, never for correctness.
type GraphStatistics struct {
	NodeCount        uint64
	MaxDepth         uint64
	AvgFanOut        float64
	Fan99Percentile  uint64
	InverseFan99Pctl uint64
	Cyclic           bool
	RootCount        uint64
}

// AnnoKeyStatistics summarizes the cardinality and value distribution of one
// annotation key, used only for selectivity estimation.
type AnnoKeyStatistics struct {
	Cardinality     uint64
	HistogramBounds []string
}
