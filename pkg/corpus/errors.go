package corpus

import "fmt"

// NoSuchCorpusError is returned by GetLoadedEntry when createIfMissing is
// false and the named corpus has no directory on disk.
type NoSuchCorpusError struct {
	Name string
}

func (e *NoSuchCorpusError) Error() string {
	return fmt.Sprintf("corpus: no such corpus %q", e.Name)
}

// CorpusExistsError is returned by import-style callers when a corpus
// directory already exists and overwrite was not requested.
type CorpusExistsError struct {
	Name string
}

func (e *CorpusExistsError) Error() string {
	return fmt.Sprintf("corpus: corpus %q already exists", e.Name)
}

// LockCorpusDirectoryError is returned when the manager cannot acquire the
// exclusive advisory lock on its root directory.
type LockCorpusDirectoryError struct {
	Dir string
	Err error
}

func (e *LockCorpusDirectoryError) Error() string {
	return fmt.Sprintf("corpus: cannot lock root directory %q: %v", e.Dir, e.Err)
}

func (e *LockCorpusDirectoryError) Unwrap() error { return e.Err }

// TimeoutError is returned when query execution exceeds its caller-supplied
// deadline.
type TimeoutError struct {
	Name string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("corpus: query on %q exceeded its deadline", e.Name)
}

// LoadingGraphFailedError wraps a failure to load a corpus' graph from disk.
type LoadingGraphFailedError struct {
	Name string
	Err  error
}

func (e *LoadingGraphFailedError) Error() string {
	return fmt.Sprintf("corpus: loading graph for %q failed: %v", e.Name, e.Err)
}

func (e *LoadingGraphFailedError) Unwrap() error { return e.Err }

// LoadingAnnotationStorageError wraps a failure to read an annotation
// storage's backing file.
type LoadingAnnotationStorageError struct {
	Path string
	Err  error
}

func (e *LoadingAnnotationStorageError) Error() string {
	return fmt.Sprintf("corpus: loading annotation storage %q failed: %v", e.Path, e.Err)
}

func (e *LoadingAnnotationStorageError) Unwrap() error { return e.Err }

// ComponentNotLoadedError is returned when a query requires a component that
// has not been lazily loaded yet and the caller asked for a fully-loaded
// graph instead of triggering the load.
type ComponentNotLoadedError struct {
	Component string
}

func (e *ComponentNotLoadedError) Error() string {
	return fmt.Sprintf("corpus: component %q is not loaded", e.Component)
}

// MissingComponentError is returned when an operation references a
// component that does not exist in the corpus at all.
type MissingComponentError struct {
	Component string
}

func (e *MissingComponentError) Error() string {
	return fmt.Sprintf("corpus: no such component %q", e.Component)
}

// NonExclusiveComponentReferenceError is returned when a caller tries to
// swap a component's storage for an optimized read-only one while another
// reader still holds a reference to it.
type NonExclusiveComponentReferenceError struct {
	Component string
}

func (e *NonExclusiveComponentReferenceError) Error() string {
	return fmt.Sprintf("corpus: component %q has other live references, cannot swap storage", e.Component)
}

// ReadOnlyComponentError is returned when a mutation targets a component
// storage that does not support direct writes (e.g. a transitive closure).
type ReadOnlyComponentError struct {
	Component string
}

func (e *ReadOnlyComponentError) Error() string {
	return fmt.Sprintf("corpus: component %q storage is read-only", e.Component)
}

// EmptyComponentPathError is returned when a component's on-disk directory
// could not be determined (e.g. an unnamed layer with no default mapping).
type EmptyComponentPathError struct{}

func (e *EmptyComponentPathError) Error() string { return "corpus: empty component path" }

// InvalidFrequencyDefinitionError is returned when a frequency query's
// definition list references an unknown node variable.
type InvalidFrequencyDefinitionError struct {
	Desc string
}

func (e *InvalidFrequencyDefinitionError) Error() string {
	return fmt.Sprintf("corpus: invalid frequency definition: %s", e.Desc)
}

// MultipleCorporaForSingleCorpusFormatError is returned by an import
// collaborator when an archive meant for exactly one corpus contains more
// than one.
type MultipleCorporaForSingleCorpusFormatError struct{}

func (e *MultipleCorporaForSingleCorpusFormatError) Error() string {
	return "corpus: archive contains multiple corpora, expected exactly one"
}

// QueriedGraphNotFullyLoadedError is returned when a query needs the fully
// loaded graph (every component resident) but only a partial load was
// performed.
type QueriedGraphNotFullyLoadedError struct {
	Name string
}

func (e *QueriedGraphNotFullyLoadedError) Error() string {
	return fmt.Sprintf("corpus: %q is not fully loaded", e.Name)
}

// LfuCacheError wraps a failure in the manager's bounded cache bookkeeping.
type LfuCacheError struct {
	Err error
}

func (e *LfuCacheError) Error() string { return fmt.Sprintf("corpus: cache error: %v", e.Err) }
func (e *LfuCacheError) Unwrap() error { return e.Err }

// CorpusCacheEntryNotLoadedError is returned when a caller acquires an entry
// handle before it has finished loading.
type CorpusCacheEntryNotLoadedError struct {
	Name string
}

func (e *CorpusCacheEntryNotLoadedError) Error() string {
	return fmt.Sprintf("corpus: cache entry %q is not loaded", e.Name)
}
