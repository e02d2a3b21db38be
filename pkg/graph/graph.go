// Package graph implements the Graph aggregate: the node annotation storage
// plus the component→graph-storage map that together make up one corpus'
// loaded representation, and the logic to apply update-log events to it.
package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cuemby/annisgo/pkg/annostorage"
	"github.com/cuemby/annisgo/pkg/config"
	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/graphstorage"
	"github.com/cuemby/annisgo/pkg/updatelog"
)

// Graph is one corpus' loaded in-memory representation: node annotations,
// a component→storage map, and the name→id lookup invariant 1 requires.
type Graph struct {
	mu sync.RWMutex

	nodeAnno  *annostorage.AnnoStorage[graphmodel.NodeID]
	byName    map[string]graphmodel.NodeID
	nextID    graphmodel.NodeID
	components map[graphmodel.Component]graphstorage.GraphStorage

	// loadedComponents tracks which components have had their storage
	// lazily loaded from disk; a component key may exist in the directory
	// layout without yet being in `components`.
	loadedComponents map[graphmodel.Component]bool
	dir              string
}

// New creates an empty graph rooted at dir (used both for a brand-new
// corpus and as the in-memory target of a load).
func New(dir string) *Graph {
	return &Graph{
		nodeAnno:         annostorage.New[graphmodel.NodeID](),
		byName:           make(map[string]graphmodel.NodeID),
		components:       make(map[graphmodel.Component]graphstorage.GraphStorage),
		loadedComponents: make(map[graphmodel.Component]bool),
		dir:              dir,
	}
}

// IDFromName implements invariant 1: a node is reachable by exact search on
// annis::node_name iff this returns ok.
func (g *Graph) IDFromName(name string) (graphmodel.NodeID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.byName[name]
	return id, ok
}

// NodeAnnotations returns the node-keyed annotation storage.
func (g *Graph) NodeAnnotations() *annostorage.AnnoStorage[graphmodel.NodeID] {
	return g.nodeAnno
}

// Component returns the graph storage for c, loading it from disk on first
// access if it is not yet resident.
func (g *Graph) Component(c graphmodel.Component) (graphstorage.GraphStorage, error) {
	g.mu.RLock()
	gs, ok := g.components[c]
	g.mu.RUnlock()
	if ok {
		return gs, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if gs, ok := g.components[c]; ok {
		return gs, nil
	}

	dir := g.componentDir(c)
	gs, err := graphstorage.Deserialize(dir)
	if err != nil {
		return nil, fmt.Errorf("graph: component %s not loaded: %w", c, err)
	}
	g.components[c] = gs
	g.loadedComponents[c] = true
	return gs, nil
}

// Components returns every component whose storage is currently loaded in
// memory. Components that exist only on disk and have not been accessed
// through Component yet are not listed.
func (g *Graph) Components() []graphmodel.Component {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]graphmodel.Component, 0, len(g.components))
	for c := range g.components {
		out = append(out, c)
	}
	return out
}

// EnsureComponent returns the storage for c, creating an empty writeable
// one if c does not exist. The new storage is chosen by the optimal-impl
// heuristic with empty statistics, which gives linear for Ordering,
// LeftToken and RightToken, pre/post-order for Dominance, and adjacency-list
// for every other component type.
func (g *Graph) EnsureComponent(c graphmodel.Component) (graphstorage.GraphStorage, error) {
	if gs, err := g.Component(c); err == nil {
		return gs, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	impl := graphstorage.GetOptimalImplHeuristic(c.Type, graphmodel.GraphStatistics{})
	gs, err := graphstorage.CreateWriteable(impl)
	if err != nil {
		return nil, err
	}
	g.components[c] = gs
	g.loadedComponents[c] = true
	return gs, nil
}

// ImportNode installs a node under a caller-supplied id, used when building
// an ephemeral subgraph that must preserve another graph's node identities
// rather than minting fresh sequential ones.
func (g *Graph) ImportNode(id graphmodel.NodeID, annos []graphmodel.Annotation) {
	g.mu.Lock()
	if id >= g.nextID {
		g.nextID = id + 1
	}
	for _, a := range annos {
		if a.Key == graphmodel.AnnoNodeName {
			g.byName[a.Value] = id
		}
	}
	g.mu.Unlock()

	for _, a := range annos {
		g.nodeAnno.Insert(id, a)
	}
}

// ImportEdge installs e, with its annotations, into component c, creating
// the component's storage if this is its first edge.
func (g *Graph) ImportEdge(c graphmodel.Component, e graphmodel.Edge, annos []graphmodel.Annotation) error {
	gs, err := g.EnsureComponent(c)
	if err != nil {
		return err
	}
	gs.AddEdge(e)
	for _, a := range annos {
		gs.EdgeAnnotations().Insert(e, a)
	}
	return nil
}

func (g *Graph) componentDir(c graphmodel.Component) string {
	layer := c.Layer
	if layer == "" {
		layer = "DEFAULT"
	}
	return filepath.Join(g.dir, "current", "gs", string(c.Type), layer, c.Name)
}

// addNode inserts a new node carrying the required annis::node_name and
// annis::node_type annotations.
func (g *Graph) addNode(name, nodeType string) graphmodel.NodeID {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.byName[name] = id
	g.mu.Unlock()

	g.nodeAnno.Insert(id, graphmodel.Annotation{Key: graphmodel.AnnoNodeName, Value: name})
	g.nodeAnno.Insert(id, graphmodel.Annotation{Key: graphmodel.AnnoNodeType, Value: nodeType})
	return id
}

// deleteNode removes a node, every annotation it carries, and every edge in
// every loaded component referring to it as source or target (invariant 2).
func (g *Graph) deleteNode(name string) {
	g.mu.Lock()
	id, ok := g.byName[name]
	if !ok {
		g.mu.Unlock()
		return
	}
	delete(g.byName, name)
	comps := make([]graphstorage.GraphStorage, 0, len(g.components))
	for _, gs := range g.components {
		comps = append(comps, gs)
	}
	g.mu.Unlock()

	g.nodeAnno.RemoveItem(id)
	for _, gs := range comps {
		for _, e := range gs.Outgoing(id) {
			gs.DeleteEdge(e)
		}
		for _, e := range gs.Ingoing(id) {
			gs.DeleteEdge(e)
		}
	}
}

// Apply applies a sequence of update-log events to the graph in order.
// Apply is not itself transactional across events — the caller (the corpus
// manager) is responsible for reloading from the last durable snapshot if
// Apply returns an error partway through, per invariant 5.
func (g *Graph) Apply(events []updatelog.Event) error {
	for _, ev := range events {
		if err := g.applyOne(ev); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) applyOne(ev updatelog.Event) error {
	switch e := ev.(type) {
	case updatelog.AddNode:
		g.addNode(e.NodeName, e.NodeType)
	case updatelog.DeleteNode:
		g.deleteNode(e.NodeName)
	case updatelog.AddNodeLabel:
		id, ok := g.IDFromName(e.NodeName)
		if !ok {
			return fmt.Errorf("graph: add label on unknown node %q", e.NodeName)
		}
		g.nodeAnno.Insert(id, graphmodel.Annotation{
			Key:   graphmodel.AnnoKey{NS: e.Namespace, Name: e.Name},
			Value: e.Value,
		})
	case updatelog.DeleteNodeLabel:
		id, ok := g.IDFromName(e.NodeName)
		if !ok {
			return fmt.Errorf("graph: delete label on unknown node %q", e.NodeName)
		}
		g.nodeAnno.Remove(id, graphmodel.AnnoKey{NS: e.Namespace, Name: e.Name})
	case updatelog.AddEdge:
		return g.applyEdgeEvent(e.SourceNode, e.TargetNode, e.Layer, e.ComponentType, e.ComponentName, true)
	case updatelog.DeleteEdge:
		return g.applyEdgeEvent(e.SourceNode, e.TargetNode, e.Layer, e.ComponentType, e.ComponentName, false)
	case updatelog.AddEdgeLabel:
		gs, src, tgt, err := g.resolveEdge(e.SourceNode, e.TargetNode, e.Layer, e.ComponentType, e.ComponentName)
		if err != nil {
			return err
		}
		gs.EdgeAnnotations().Insert(graphmodel.Edge{Source: src, Target: tgt}, graphmodel.Annotation{
			Key:   graphmodel.AnnoKey{NS: e.Namespace, Name: e.Name},
			Value: e.Value,
		})
	case updatelog.DeleteEdgeLabel:
		gs, src, tgt, err := g.resolveEdge(e.SourceNode, e.TargetNode, e.Layer, e.ComponentType, e.ComponentName)
		if err != nil {
			return err
		}
		gs.EdgeAnnotations().Remove(graphmodel.Edge{Source: src, Target: tgt}, graphmodel.AnnoKey{NS: e.Namespace, Name: e.Name})
	default:
		return fmt.Errorf("graph: unknown event type %T", ev)
	}
	return nil
}

func (g *Graph) applyEdgeEvent(sourceName, targetName, layer, componentType, componentName string, add bool) error {
	src, ok := g.IDFromName(sourceName)
	if !ok {
		return fmt.Errorf("graph: edge event references unknown source node %q", sourceName)
	}
	tgt, ok := g.IDFromName(targetName)
	if !ok {
		return fmt.Errorf("graph: edge event references unknown target node %q", targetName)
	}

	c := graphmodel.Component{Type: graphmodel.ComponentType(componentType), Layer: layer, Name: componentName}
	gs, err := g.EnsureComponent(c)
	if err != nil {
		return err
	}
	edge := graphmodel.Edge{Source: src, Target: tgt}
	if add {
		gs.AddEdge(edge)
	} else {
		gs.DeleteEdge(edge)
	}
	return nil
}

func (g *Graph) resolveEdge(sourceName, targetName, layer, componentType, componentName string) (graphstorage.GraphStorage, graphmodel.NodeID, graphmodel.NodeID, error) {
	src, ok := g.IDFromName(sourceName)
	if !ok {
		return nil, 0, 0, fmt.Errorf("graph: unknown source node %q", sourceName)
	}
	tgt, ok := g.IDFromName(targetName)
	if !ok {
		return nil, 0, 0, fmt.Errorf("graph: unknown target node %q", targetName)
	}
	c := graphmodel.Component{Type: graphmodel.ComponentType(componentType), Layer: layer, Name: componentName}
	gs, err := g.EnsureComponent(c)
	return gs, src, tgt, err
}

// Statistics aggregates a rough GraphStatistics across every loaded
// component, used only by the planner's cost model, never for correctness.
func (g *Graph) Statistics() graphmodel.GraphStatistics {
	g.mu.RLock()
	nodeCount := uint64(len(g.byName))
	comps := make([]graphstorage.GraphStorage, 0, len(g.components))
	for _, gs := range g.components {
		comps = append(comps, gs)
	}
	g.mu.RUnlock()

	stats := graphmodel.GraphStatistics{NodeCount: nodeCount}
	if len(comps) == 0 {
		return stats
	}
	var fanSum float64
	var maxDepth uint64
	var rootSum uint64
	for _, gs := range comps {
		s := gs.Statistics()
		fanSum += s.AvgFanOut
		if s.MaxDepth > maxDepth {
			maxDepth = s.MaxDepth
		}
		rootSum += s.RootCount
	}
	stats.AvgFanOut = fanSum / float64(len(comps))
	stats.MaxDepth = maxDepth
	stats.RootCount = rootSum
	return stats
}

// DocumentPath derives a node's containing document path by splitting its
// node_name on '#', per spec.
func DocumentPath(nodeName string) string {
	if idx := strings.IndexByte(nodeName, '#'); idx >= 0 {
		return nodeName[:idx]
	}
	return nodeName
}

// SaveSnapshot persists the node annotation storage and every loaded
// component to a fresh staging directory, then rotates it into place with
// current->backup->current renames so a crash mid-write leaves the prior
// durable snapshot recoverable from backup rather than a half-written
// current. The backup is removed once the new snapshot is in place.
func (g *Graph) SaveSnapshot() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stagingDir := filepath.Join(g.dir, "current."+uuid.NewString()+".tmp")
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("graph: create staging dir: %w", err)
	}
	if err := g.nodeAnno.Persist(filepath.Join(stagingDir, "nodes_v1.bin")); err != nil {
		os.RemoveAll(stagingDir)
		return err
	}
	for c, gs := range g.components {
		if err := graphstorage.Serialize(stagingComponentDir(stagingDir, c), gs); err != nil {
			os.RemoveAll(stagingDir)
			return err
		}
	}

	currentDir := filepath.Join(g.dir, "current")
	backupDir := filepath.Join(g.dir, "backup")
	if err := os.RemoveAll(backupDir); err != nil {
		return fmt.Errorf("graph: clear stale backup: %w", err)
	}
	if _, err := os.Stat(currentDir); err == nil {
		if err := os.Rename(currentDir, backupDir); err != nil {
			return fmt.Errorf("graph: rotate current to backup: %w", err)
		}
	}
	if err := os.Rename(stagingDir, currentDir); err != nil {
		return fmt.Errorf("graph: promote staged snapshot: %w", err)
	}
	if err := os.RemoveAll(backupDir); err != nil {
		return fmt.Errorf("graph: discard backup after save: %w", err)
	}
	return nil
}

// stagingComponentDir mirrors componentDir's layout rooted at a staging
// directory instead of dir/current.
func stagingComponentDir(stagingDir string, c graphmodel.Component) string {
	layer := c.Layer
	if layer == "" {
		layer = "DEFAULT"
	}
	return filepath.Join(stagingDir, "gs", string(c.Type), layer, c.Name)
}

// Load reconstructs a Graph from dir, loading at minimum the node
// annotation storage; component graph storages are loaded lazily on first
// access via Component.
func Load(dir string) (*Graph, error) {
	g := New(dir)
	nodesPath := filepath.Join(dir, "current", "nodes_v1.bin")
	nodeAnno, err := annostorage.Load[graphmodel.NodeID](nodesPath)
	if err != nil {
		return nil, fmt.Errorf("graph: load node annotations: %w", err)
	}
	g.nodeAnno = nodeAnno

	for _, item := range nodeAnno.ExactSearch(graphmodel.AnnoNodeName.NS, graphmodel.AnnoNodeName.Name, annostorage.ValueSearch{Kind: annostorage.Any}) {
		if name, ok := nodeAnno.Get(item, graphmodel.AnnoNodeName); ok {
			g.byName[name] = item
			if item >= g.nextID {
				g.nextID = item + 1
			}
		}
	}

	_, _ = config.Load(dir) // ensures corpus-config.toml defaults are validated eagerly
	return g, nil
}
