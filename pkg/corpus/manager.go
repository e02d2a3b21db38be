// Package corpus implements the corpus manager: a bounded, cache-backed
// directory of corpora, each loaded on demand into a graph.Graph, guarded
// by per-entry read/write locks and a root directory advisory file lock.
package corpus

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"github.com/cuemby/annisgo/pkg/config"
	"github.com/cuemby/annisgo/pkg/graph"
	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/log"
	"github.com/cuemby/annisgo/pkg/metrics"
	"github.com/cuemby/annisgo/pkg/updatelog"
)

const rootLockFileName = "db.lock"

// defaultMaxEntries bounds the lru.Cache itself; the manager's own
// byte-budget eviction runs on top of this and usually bites first.
const defaultMaxEntries = 256

// Manager owns the directory of corpora rooted at dir. It is safe for
// concurrent use by multiple goroutines.
type Manager struct {
	dir       string
	rootLock  *flock.Flock
	byteBudget int64

	cacheMu sync.RWMutex
	cache   *lru.Cache // string -> *Entry

	bgWorkers sync.WaitGroup

	shutdownMu sync.Mutex
	shutdown   bool

	log zerolog.Logger
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithByteBudget sets the soft resident-memory budget (in bytes) the
// manager targets when evicting cache entries beyond the caller's keep set.
// Zero means unbounded (only the lru.Cache's own entry-count cap applies).
func WithByteBudget(n int64) Option {
	return func(m *Manager) { m.byteBudget = n }
}

// New constructs a Manager rooted at dir, creating dir if necessary and
// acquiring the exclusive root directory lock. Construction fails fast if
// another process already holds the lock.
func New(dir string, opts ...Option) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("corpus: create root %s: %w", dir, err)
	}

	lockPath := filepath.Join(dir, rootLockFileName)
	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, &LockCorpusDirectoryError{Dir: dir, Err: err}
	}
	if !ok {
		return nil, &LockCorpusDirectoryError{Dir: dir, Err: fmt.Errorf("already locked by another process")}
	}

	m := &Manager{
		dir:      dir,
		rootLock: fl,
		log:      log.Component("corpus"),
	}
	for _, opt := range opts {
		opt(m)
	}

	cache, err := lru.NewWithEvict(defaultMaxEntries, m.onEvicted)
	if err != nil {
		return nil, &LfuCacheError{Err: err}
	}
	m.cache = cache
	return m, nil
}

func (m *Manager) onEvicted(key, value interface{}) {
	metrics.CacheEvictionsTotal.Inc()
	metrics.CorporaLoaded.Dec()
}

func (m *Manager) corpusDir(name string) string {
	return filepath.Join(m.dir, PathEncode(name))
}

// GetLoadedEntry returns the cached entry for name, loading it from disk if
// it is not yet resident. If createIfMissing is false and no corpus
// directory exists for name, it returns a *NoSuchCorpusError. diskBased has
// no effect: every corpus is loaded into memory through graph.Load, and
// eviction accounts for it the same way whatever the flag says.
func (m *Manager) GetLoadedEntry(name string, createIfMissing, diskBased bool) (*Entry, error) {
	m.cacheMu.RLock()
	if v, ok := m.cache.Get(name); ok {
		m.cacheMu.RUnlock()
		return v.(*Entry), nil
	}
	m.cacheMu.RUnlock()

	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	if v, ok := m.cache.Get(name); ok {
		return v.(*Entry), nil
	}

	dir := m.corpusDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if !createIfMissing {
			return nil, &NoSuchCorpusError{Name: name}
		}
		if err := os.MkdirAll(filepath.Join(dir, "current"), 0o755); err != nil {
			return nil, fmt.Errorf("corpus: create %s: %w", dir, err)
		}
	}

	promoteBackupIfPresent(dir)

	g, err := graph.Load(dir)
	if err != nil {
		return nil, &LoadingGraphFailedError{Name: name, Err: err}
	}

	if wal, err := updatelog.Load(dir); err == nil && len(wal.Events()) > 0 {
		if err := g.Apply(wal.Events()); err != nil {
			return nil, &LoadingGraphFailedError{Name: name, Err: fmt.Errorf("replaying update log: %w", err)}
		}
	}
	_ = updatelog.Discard(dir)

	e := newEntry(name, dir, g)
	m.cache.Add(name, e)
	metrics.CorporaLoaded.Inc()

	m.evictLocked(name)
	return e, nil
}

// promoteBackupIfPresent renames dir/backup over dir/current when a
// previous save was interrupted partway through, implementing
// backup-takes-precedence crash recovery.
func promoteBackupIfPresent(dir string) {
	backup := filepath.Join(dir, "backup")
	if _, err := os.Stat(backup); err != nil {
		return
	}
	current := filepath.Join(dir, "current")
	_ = os.RemoveAll(current)
	_ = os.Rename(backup, current)
}

// GetFullyLoadedEntry returns name's entry with every known component's
// storage resident in memory, loading any components not yet loaded.
func (m *Manager) GetFullyLoadedEntry(name string) (*Entry, error) {
	e, err := m.GetLoadedEntry(name, false, false)
	if err != nil {
		return nil, err
	}

	e.Lock()
	defer e.Unlock()
	if e.fullyLoaded {
		return e, nil
	}

	for _, c := range discoverComponents(e.dir) {
		if _, err := e.g.Component(c); err != nil {
			return nil, &LoadingGraphFailedError{Name: name, Err: err}
		}
	}
	e.markFullyLoaded()
	return e, nil
}

// discoverComponents walks a corpus' on-disk layout for every component
// directory (one holding an impl.cfg), deriving its type/layer/name from
// the path segments graph.componentDir uses to write it.
func discoverComponents(corpusDir string) []graphmodel.Component {
	gsRoot := filepath.Join(corpusDir, "current", "gs")
	var out []graphmodel.Component
	_ = filepath.WalkDir(gsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != "impl.cfg" {
			return nil
		}
		rel, err := filepath.Rel(gsRoot, filepath.Dir(path))
		if err != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			return nil
		}
		layer := parts[1]
		if layer == "DEFAULT" {
			layer = ""
		}
		out = append(out, graphmodel.Component{
			Type:  graphmodel.ComponentType(parts[0]),
			Layer: layer,
			Name:  parts[2],
		})
		return nil
	})
	return out
}

// Apply applies events to name's corpus in memory, then durably persists
// the update log in the background. If the in-memory application fails,
// the corpus is reloaded from its last durable snapshot so the cached
// entry never diverges from disk.
func (m *Manager) Apply(name string, events []updatelog.Event) error {
	timer := metrics.NewTimer()
	e, err := m.GetLoadedEntry(name, false, false)
	if err != nil {
		return err
	}

	e.Lock()
	applyErr := e.g.Apply(events)
	if applyErr != nil {
		e.Unlock()
		m.log.Warn().Str("corpus", name).Err(applyErr).Msg("in-memory apply failed, reloading from snapshot")
		return m.reload(name)
	}

	wal, _ := updatelog.Load(e.dir)
	wal.Append(events...)
	dir := e.dir
	e.Unlock()

	m.bgWorkers.Add(1)
	go func() {
		defer m.bgWorkers.Done()
		persistTimer := metrics.NewTimer()
		if err := wal.Persist(dir); err != nil {
			m.log.Error().Str("corpus", name).Err(err).Msg("wal persist failed")
		}
		persistTimer.ObserveDuration(metrics.WALPersistDuration)
	}()

	timer.ObserveDurationVec(metrics.QueryDuration, "apply")
	return nil
}

// reload discards the cached entry for name and forces the next access to
// reread it from disk, used after a failed in-memory Apply.
func (m *Manager) reload(name string) error {
	m.cacheMu.Lock()
	m.cache.Remove(name)
	m.cacheMu.Unlock()

	_, err := m.GetLoadedEntry(name, false, false)
	return err
}

// Delete removes name from the cache and deletes its directory from disk.
func (m *Manager) Delete(name string) error {
	m.cacheMu.Lock()
	m.cache.Remove(name)
	m.cacheMu.Unlock()
	return os.RemoveAll(m.corpusDir(name))
}

// List returns the names of every corpus directory under the manager's
// root, decoded back from their on-disk percent-encoded form.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("corpus: list %s: %w", m.dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name, err := url.PathUnescape(e.Name())
		if err != nil {
			name = e.Name()
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// evictLocked enforces the byte budget, if any, evicting the oldest cached
// entries not named keep. Callers must hold cacheMu.
func (m *Manager) evictLocked(keep string) {
	if m.byteBudget <= 0 {
		return
	}
	for m.residentBytesLocked() > m.byteBudget {
		victim, ok := m.oldestEvictableLocked(keep)
		if !ok {
			return
		}
		m.cache.Remove(victim)
	}
}

// residentBytesLocked estimates memory held by cached entries as a node
// count proxy; exact RSS accounting is out of scope for this estimate, only
// its monotonic relationship to graph size matters for eviction ordering.
func (m *Manager) residentBytesLocked() int64 {
	var total int64
	for _, key := range m.cache.Keys() {
		v, ok := m.cache.Peek(key)
		if !ok {
			continue
		}
		e := v.(*Entry)
		e.RLock()
		total += int64(e.g.Statistics().NodeCount) * 256
		e.RUnlock()
	}
	return total
}

func (m *Manager) oldestEvictableLocked(keep string) (string, bool) {
	for _, key := range m.cache.Keys() {
		name := key.(string)
		if name != keep {
			return name, true
		}
	}
	return "", false
}

// Shutdown stops accepting new background work, waits for in-flight WAL
// persistence to finish, then releases the root directory lock.
func (m *Manager) Shutdown() error {
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	m.shutdownMu.Unlock()

	m.bgWorkers.Wait()
	return m.rootLock.Unlock()
}

// Config returns the persisted TOML configuration for a corpus, defaults if
// it has never been written.
func (m *Manager) Config(name string) (config.CorpusConfig, error) {
	return config.Load(m.corpusDir(name))
}
