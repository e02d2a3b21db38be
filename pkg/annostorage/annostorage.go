// Package annostorage implements the dual-indexed annotation store used for
// both node annotations (T = graphmodel.NodeID) and edge annotations
// (T = graphmodel.Edge).
package annostorage

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"

	"github.com/cuemby/annisgo/pkg/graphmodel"
	"github.com/cuemby/annisgo/pkg/store"
	"github.com/cuemby/annisgo/pkg/symtab"
)

// ValueSearch describes the value predicate of an exact_search call.
type ValueSearch struct {
	Kind  ValueSearchKind
	Value string
}

type ValueSearchKind int

const (
	Any ValueSearchKind = iota
	Some
	NotSome
)

type annoIDPair struct {
	KeyID uint32
	ValID uint32
}

// AnnoStorage is a generic annotation index over item type T, which is
// either graphmodel.NodeID or graphmodel.Edge.
type AnnoStorage[T comparable] struct {
	keys   *symtab.SymbolTable[graphmodel.AnnoKey]
	values *symtab.SymbolTable[string]

	byContainer map[T][]annoIDPair
	byAnno      map[uint32]map[uint32][]T

	keySizes        map[graphmodel.AnnoKey]uint64
	histogramBounds map[uint32][]string

	largestItem T
}

// New creates an empty annotation storage.
func New[T comparable]() *AnnoStorage[T] {
	return &AnnoStorage[T]{
		keys:            symtab.New[graphmodel.AnnoKey](),
		values:          symtab.New[string](),
		byContainer:     make(map[T][]annoIDPair),
		byAnno:          make(map[uint32]map[uint32][]T),
		keySizes:        make(map[graphmodel.AnnoKey]uint64),
		histogramBounds: make(map[uint32][]string),
	}
}

// Insert adds or replaces the annotation anno on item. A no-op if the item
// already carries anno.Key with the same value.
func (s *AnnoStorage[T]) Insert(item T, anno graphmodel.Annotation) {
	keyID := s.keys.Intern(anno.Key)
	valID := s.values.Intern(anno.Value)

	pairs := s.byContainer[item]
	idx := sort.Search(len(pairs), func(i int) bool { return pairs[i].KeyID >= keyID })
	if idx < len(pairs) && pairs[idx].KeyID == keyID {
		if pairs[idx].ValID == valID {
			return
		}
		oldVal := pairs[idx].ValID
		s.removeFromByAnno(keyID, oldVal, item)
		pairs[idx].ValID = valID
	} else {
		pairs = append(pairs, annoIDPair{})
		copy(pairs[idx+1:], pairs[idx:])
		pairs[idx] = annoIDPair{KeyID: keyID, ValID: valID}
		s.keySizes[anno.Key]++
	}
	s.byContainer[item] = pairs

	if s.byAnno[keyID] == nil {
		s.byAnno[keyID] = make(map[uint32][]T)
	}
	s.byAnno[keyID][valID] = append(s.byAnno[keyID][valID], item)
}

func (s *AnnoStorage[T]) removeFromByAnno(keyID, valID uint32, item T) {
	items := s.byAnno[keyID][valID]
	for i, it := range items {
		if it == item {
			s.byAnno[keyID][valID] = append(items[:i], items[i+1:]...)
			break
		}
	}
}

// Remove deletes the annotation for key on item, returning its previous
// value if any.
func (s *AnnoStorage[T]) Remove(item T, key graphmodel.AnnoKey) (string, bool) {
	keyID, ok := s.keys.LookupID(key)
	if !ok {
		return "", false
	}

	pairs := s.byContainer[item]
	idx := sort.Search(len(pairs), func(i int) bool { return pairs[i].KeyID >= keyID })
	if idx >= len(pairs) || pairs[idx].KeyID != keyID {
		return "", false
	}

	valID := pairs[idx].ValID
	s.byContainer[item] = append(pairs[:idx], pairs[idx+1:]...)
	s.removeFromByAnno(keyID, valID, item)
	if s.keySizes[key] > 0 {
		s.keySizes[key]--
	}

	val, _ := s.values.Lookup(valID)
	return val, true
}

// RemoveItem removes every annotation belonging to item.
func (s *AnnoStorage[T]) RemoveItem(item T) {
	for _, p := range s.byContainer[item] {
		s.removeFromByAnno(p.KeyID, p.ValID, item)
		if key, ok := s.keys.Lookup(p.KeyID); ok && s.keySizes[key] > 0 {
			s.keySizes[key]--
		}
	}
	delete(s.byContainer, item)
}

// GetAll returns every annotation on item.
func (s *AnnoStorage[T]) GetAll(item T) []graphmodel.Annotation {
	pairs := s.byContainer[item]
	out := make([]graphmodel.Annotation, 0, len(pairs))
	for _, p := range pairs {
		key, _ := s.keys.Lookup(p.KeyID)
		val, _ := s.values.Lookup(p.ValID)
		out = append(out, graphmodel.Annotation{Key: key, Value: val})
	}
	return out
}

// Get returns the value of key on item, if present.
func (s *AnnoStorage[T]) Get(item T, key graphmodel.AnnoKey) (string, bool) {
	keyID, ok := s.keys.LookupID(key)
	if !ok {
		return "", false
	}
	pairs := s.byContainer[item]
	idx := sort.Search(len(pairs), func(i int) bool { return pairs[i].KeyID >= keyID })
	if idx >= len(pairs) || pairs[idx].KeyID != keyID {
		return "", false
	}
	return s.values.Lookup(pairs[idx].ValID)
}

// ExactSearch returns every item carrying an annotation under (ns, name)
// matching vs.
func (s *AnnoStorage[T]) ExactSearch(ns, name string, vs ValueSearch) []T {
	var out []T
	for _, keyID := range s.matchingKeyIDs(ns, name) {
		byVal, ok := s.byAnno[keyID]
		if !ok {
			continue
		}
		switch vs.Kind {
		case Any:
			for _, items := range byVal {
				out = append(out, items...)
			}
		case Some:
			valID, ok := s.values.LookupID(vs.Value)
			if ok {
				out = append(out, byVal[valID]...)
			}
		case NotSome:
			exclude, hasExclude := s.values.LookupID(vs.Value)
			for valID, items := range byVal {
				if hasExclude && valID == exclude {
					continue
				}
				out = append(out, items...)
			}
		}
	}
	return out
}

// RegexSearch returns every item carrying an annotation under (ns, name)
// whose value matches the anchored regex pattern. When negated and the
// pattern fails to compile, fails open by returning every item under the
// key instead of none.
func (s *AnnoStorage[T]) RegexSearch(ns, name, pattern string, negated bool) ([]T, error) {
	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		if negated {
			return s.ExactSearch(ns, name, ValueSearch{Kind: Any}), nil
		}
		return nil, fmt.Errorf("annostorage: invalid regex %q: %w", pattern, err)
	}

	var out []T
	for _, keyID := range s.matchingKeyIDs(ns, name) {
		for valID, items := range s.byAnno[keyID] {
			val, _ := s.values.Lookup(valID)
			matched := re.MatchString(val)
			if matched != negated {
				out = append(out, items...)
			}
		}
	}
	return out, nil
}

func (s *AnnoStorage[T]) matchingKeyIDs(ns, name string) []uint32 {
	if ns != "" {
		if id, ok := s.keys.LookupID(graphmodel.AnnoKey{NS: ns, Name: name}); ok {
			return []uint32{id}
		}
		return nil
	}
	var ids []uint32
	for key := range s.keySizes {
		if key.Name == name {
			if id, ok := s.keys.LookupID(key); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// GuessMaxCount estimates how many items carry a value for (ns, name)
// falling in [lower, upper], using the key's histogram and cardinality.
func (s *AnnoStorage[T]) GuessMaxCount(ns, name, lower, upper string) uint64 {
	var total uint64
	for _, keyID := range s.matchingKeyIDs(ns, name) {
		key, _ := s.keys.Lookup(keyID)
		bounds := s.histogramBounds[keyID]
		card := s.keySizes[key]
		if len(bounds) < 2 {
			total += card
			continue
		}
		buckets := len(bounds) - 1
		overlapping := 0
		for i := 0; i < buckets; i++ {
			lo, hi := bounds[i], bounds[i+1]
			if hi >= lower && lo <= upper {
				overlapping++
			}
		}
		total += card * uint64(overlapping) / uint64(buckets)
	}
	return total
}

// GuessMostFrequentValue returns the value that occurs most often among the
// histogram samples for (ns, name).
func (s *AnnoStorage[T]) GuessMostFrequentValue(ns, name string) (string, bool) {
	counts := make(map[string]int)
	for _, keyID := range s.matchingKeyIDs(ns, name) {
		for _, v := range s.histogramBounds[keyID] {
			counts[v]++
		}
	}
	best, bestCount := "", -1
	for v, c := range counts {
		if c > bestCount {
			best, bestCount = v, c
		}
	}
	return best, bestCount >= 0
}

// KeySize returns the number of items carrying key.
func (s *AnnoStorage[T]) KeySize(key graphmodel.AnnoKey) uint64 {
	return s.keySizes[key]
}

const (
	maxSampleSize  = 2500
	maxHistogramN  = 251
)

// CalculateStatistics recomputes histogram bounds for every key by sampling
// at most maxSampleSize values uniformly and picking up to maxHistogramN
// equally spaced bounds. Exact sampled values are not guaranteed to be
// deterministic across calls.
func (s *AnnoStorage[T]) CalculateStatistics() {
	for key := range s.keySizes {
		keyID, ok := s.keys.LookupID(key)
		if !ok {
			continue
		}
		byVal := s.byAnno[keyID]
		var values []string
		seen := 0
		for valID, items := range byVal {
			v, _ := s.values.Lookup(valID)
			for range items {
				seen++
				if len(values) < maxSampleSize {
					values = append(values, v)
				} else if j := rand.Intn(seen); j < maxSampleSize {
					values[j] = v
				}
			}
		}
		sort.Strings(values)

		n := maxHistogramN
		if n > len(values) {
			n = len(values)
		}
		if n == 0 {
			s.histogramBounds[keyID] = nil
			continue
		}
		bounds := make([]string, 0, n)
		for i := 0; i < n; i++ {
			idx := i * (len(values) - 1) / max(n-1, 1)
			bounds = append(bounds, values[idx])
		}
		s.histogramBounds[keyID] = bounds
	}
}

// randomSample returns a shuffled copy of items using r. Nothing in this
// module calls it; CalculateStatistics does its own sampling.
func randomSample[E any](items []E, r *rand.Rand) []E {
	out := make([]E, len(items))
	copy(out, items)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Persist writes the annotation storage to a bbolt file at path.
func (s *AnnoStorage[T]) Persist(path string) error {
	c, err := store.Open(path, "meta")
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Put("meta", "keys", s.keys.Snapshot()); err != nil {
		return err
	}
	if err := c.Put("meta", "values", s.values.Snapshot()); err != nil {
		return err
	}
	if err := c.Put("meta", "byContainer", s.byContainer); err != nil {
		return err
	}
	if err := c.Put("meta", "byAnno", s.byAnno); err != nil {
		return err
	}
	if err := c.Put("meta", "keySizes", s.keySizes); err != nil {
		return err
	}
	return c.Put("meta", "histogramBounds", s.histogramBounds)
}

// Load reads the annotation storage back from a bbolt file at path.
func Load[T comparable](path string) (*AnnoStorage[T], error) {
	c, err := store.Open(path, "meta")
	if err != nil {
		return nil, err
	}
	defer c.Close()

	s := New[T]()

	var keysSnap symtab.Snapshot[graphmodel.AnnoKey]
	if ok, err := c.Get("meta", "keys", &keysSnap); err != nil {
		return nil, err
	} else if ok {
		s.keys.Restore(keysSnap)
	}

	var valuesSnap symtab.Snapshot[string]
	if ok, err := c.Get("meta", "values", &valuesSnap); err != nil {
		return nil, err
	} else if ok {
		s.values.Restore(valuesSnap)
	}
	if _, err := c.Get("meta", "byContainer", &s.byContainer); err != nil {
		return nil, err
	}
	if _, err := c.Get("meta", "byAnno", &s.byAnno); err != nil {
		return nil, err
	}
	if _, err := c.Get("meta", "keySizes", &s.keySizes); err != nil {
		return nil, err
	}
	if _, err := c.Get("meta", "histogramBounds", &s.histogramBounds); err != nil {
		return nil, err
	}
	return s, nil
}
