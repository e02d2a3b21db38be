package graphstorage

import (
	"fmt"
	"path/filepath"

	"github.com/cuemby/annisgo/pkg/annostorage"
	"github.com/cuemby/annisgo/pkg/config"
	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/store"
)

// Factory constructs an empty GraphStorage of a given implementation.
type Factory func() WriteableGraphStorage

var registry = map[ImplID]Factory{
	ImplAdjacencyList:     func() WriteableGraphStorage { return NewAdjacencyList() },
	ImplTransitiveClosure: nil, // never the starting point for writes; see GetOptimalImplHeuristic
	ImplLinear:            func() WriteableGraphStorage { return NewLinear() },
	ImplPrePostOrder:      func() WriteableGraphStorage { return NewPrePostOrder() },
}

// CreateWriteable returns a fresh, empty writeable storage for the given
// implementation id.
func CreateWriteable(impl ImplID) (WriteableGraphStorage, error) {
	factory, ok := registry[impl]
	if !ok || factory == nil {
		return nil, fmt.Errorf("graphstorage: no writeable factory for impl %q", impl)
	}
	return factory(), nil
}

// GetOptimalImplHeuristic picks an implementation from the component type and
// statistics through a fixed sequence of shape checks: Ordering, LeftToken
// and RightToken components with an average fan-out of at most 1.1 get
// Linear, acyclic Dominance components get PrePostOrder, any other component
// with 1 to 5000 nodes and a maximum depth of at most 20 gets
// TransitiveClosure, and everything else gets AdjacencyList.
func GetOptimalImplHeuristic(componentType graphmodel.ComponentType, stats graphmodel.GraphStatistics) ImplID {
	switch componentType {
	case graphmodel.Ordering, graphmodel.LeftToken, graphmodel.RightToken:
		if stats.AvgFanOut <= 1.1 {
			return ImplLinear
		}
	case graphmodel.Dominance:
		if !stats.Cyclic {
			return ImplPrePostOrder
		}
	}

	// Small, shallow components benefit from precomputing full reachability;
	// everything else falls back to the general-purpose adjacency list.
	if stats.NodeCount > 0 && stats.NodeCount <= 5000 && stats.MaxDepth <= 20 {
		return ImplTransitiveClosure
	}
	return ImplAdjacencyList
}

// CreateFromInfo builds an empty storage matching the impl id recorded in a
// component's on-disk descriptor.
func CreateFromInfo(impl ImplID) (GraphStorage, error) {
	switch impl {
	case ImplTransitiveClosure:
		return NewTransitiveClosure(), nil
	default:
		return CreateWriteable(impl)
	}
}

const (
	edgesFileName     = "edges.bin"
	edgeAnnoFileName  = "edges_anno.bin"
)

// Deserialize loads a previously persisted component storage from dir, using
// the impl.cfg descriptor to select the concrete implementation, then
// replays its edges and edge annotations back in.
func Deserialize(dir string) (GraphStorage, error) {
	desc, err := config.LoadComponentDescriptor(dir)
	if err != nil {
		return nil, fmt.Errorf("graphstorage: read impl.cfg in %s: %w", dir, err)
	}
	gs, err := CreateFromInfo(ImplID(desc.Impl))
	if err != nil {
		return nil, err
	}

	edgesPath := filepath.Join(dir, edgesFileName)
	c, err := store.Open(edgesPath, "edges")
	if err != nil {
		return nil, fmt.Errorf("graphstorage: open %s: %w", edgesPath, err)
	}
	var edges []graphmodel.Edge
	if _, err := c.Get("edges", "all", &edges); err != nil {
		c.Close()
		return nil, fmt.Errorf("graphstorage: read edges in %s: %w", dir, err)
	}
	c.Close()
	for _, e := range edges {
		gs.AddEdge(e)
	}

	annoPath := filepath.Join(dir, edgeAnnoFileName)
	edgeAnno, err := annostorage.Load[graphmodel.Edge](annoPath)
	if err == nil {
		for _, e := range edges {
			for _, a := range edgeAnno.GetAll(e) {
				gs.EdgeAnnotations().Insert(e, a)
			}
		}
	}

	return gs, nil
}

// Serialize writes gs's impl.cfg descriptor plus its edges and edge
// annotations to dir, so Deserialize can reconstruct an equivalent storage.
func Serialize(dir string, gs GraphStorage) error {
	if err := config.SaveComponentDescriptor(dir, config.ComponentDescriptor{
		Impl:          string(gs.ImplID()),
		FormatVersion: 1,
	}); err != nil {
		return err
	}

	edges := gs.AllEdges()
	edgesPath := filepath.Join(dir, edgesFileName)
	c, err := store.Open(edgesPath, "edges")
	if err != nil {
		return fmt.Errorf("graphstorage: open %s: %w", edgesPath, err)
	}
	defer c.Close()
	if err := c.Put("edges", "all", edges); err != nil {
		return fmt.Errorf("graphstorage: write edges in %s: %w", dir, err)
	}

	return gs.EdgeAnnotations().Persist(filepath.Join(dir, edgeAnnoFileName))
}
