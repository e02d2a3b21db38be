package corpus

import (
	"sync"

	"github.com/cuemby/annisgo/pkg/graph"
)

// Entry is one corpus' cache-resident state: its loaded graph plus the
// bookkeeping the manager needs to decide whether a query against it must
// trigger further lazy loading.
type Entry struct {
	mu sync.RWMutex

	name string
	dir  string
	g    *graph.Graph

	// fullyLoaded is set once every known component's storage has been
	// brought into memory via GetFullyLoadedEntry; GetLoadedEntry alone
	// never sets it, since it only guarantees the node annotation store.
	fullyLoaded bool
}

func newEntry(name, dir string, g *graph.Graph) *Entry {
	return &Entry{name: name, dir: dir, g: g}
}

// Name returns the corpus name this entry was loaded under.
func (e *Entry) Name() string { return e.name }

// Graph returns the entry's underlying graph. Callers must hold the entry's
// read or write lock (via RLock/Lock) for the duration of any access.
func (e *Entry) Graph() *graph.Graph { return e.g }

// FullyLoaded reports whether every component has been loaded into memory.
func (e *Entry) FullyLoaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fullyLoaded
}

// RLock acquires the entry's read lock, held for the duration of a query.
func (e *Entry) RLock()   { e.mu.RLock() }
func (e *Entry) RUnlock() { e.mu.RUnlock() }

// Lock acquires the entry's write lock, held while applying update events or
// lazily loading components.
func (e *Entry) Lock()   { e.mu.Lock() }
func (e *Entry) Unlock() { e.mu.Unlock() }

// markFullyLoaded records that every component is now resident. Callers
// must hold the write lock.
func (e *Entry) markFullyLoaded() { e.fullyLoaded = true }
