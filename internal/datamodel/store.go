package datamodel

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gowebpki/jcs"
)

// ErrSurfaceDeleted is returned for writes addressed to a deleted surface.
var ErrSurfaceDeleted = errors.New("surface deleted")

// Entry is one key/value upsert within a Set call.
type Entry struct {
	Key   string
	Value Value
}

// Lookup reads values by path. Store scopes and test fakes implement it.
type Lookup interface {
	Get(path string) (Value, bool)
}

// Store holds one hierarchical data model per surface.
type Store struct {
	mu      sync.RWMutex
	models  map[string]map[string]Value
	deleted map[string]struct{}
	logger  *slog.Logger
}

// NewStore creates an empty store. A nil logger uses slog.Default.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		models:  make(map[string]map[string]Value),
		deleted: make(map[string]struct{}),
		logger:  logger.With("component", "datamodel"),
	}
}

// Set upserts entries at path. A root path replaces the whole model with the
// entries. Missing intermediate nodes are created; a scalar standing where a
// map is needed is replaced. Later entries win over earlier ones with the
// same key.
func (s *Store) Set(surfaceID, path string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, gone := s.deleted[surfaceID]; gone {
		s.logger.Warn("data model write on deleted surface dropped", "surface", surfaceID, "path", path)
		return fmt.Errorf("%w: %s", ErrSurfaceDeleted, surfaceID)
	}

	segs := Segments(path)
	if len(segs) == 0 {
		root := make(map[string]Value, len(entries))
		applyEntries(root, entries)
		s.models[surfaceID] = root
		return nil
	}

	node := s.modelLocked(surfaceID)
	for _, seg := range segs {
		child, ok := node[seg]
		if !ok || child.kind != KindMap {
			child = Map(nil)
			node[seg] = child
		}
		node = child.m
	}
	applyEntries(node, entries)
	return nil
}

func applyEntries(node map[string]Value, entries []Entry) {
	for _, e := range entries {
		if e.Key == "" || !e.Value.IsValid() {
			continue
		}
		node[e.Key] = e.Value.Clone()
	}
}

// Put writes a single value at path. Writing a map at the root replaces the
// model.
func (s *Store) Put(surfaceID, path string, v Value) error {
	if !v.IsValid() {
		return fmt.Errorf("invalid value for %s", path)
	}
	parent, last := Split(path)
	if last == "" {
		fields, ok := v.Fields()
		if !ok {
			return fmt.Errorf("cannot write %s value at the root", v.Kind())
		}
		entries := make([]Entry, 0, len(fields))
		for k, fv := range fields {
			entries = append(entries, Entry{Key: k, Value: fv})
		}
		return s.Set(surfaceID, "/", entries)
	}
	return s.Set(surfaceID, parent, []Entry{{Key: last, Value: v}})
}

// Get returns the value at path. The boolean is false when the surface, or
// any segment of the path, is absent.
func (s *Store) Get(surfaceID, path string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.getLocked(surfaceID, path)
	if !ok {
		return Value{}, false
	}
	return v.Clone(), true
}

func (s *Store) getLocked(surfaceID, path string) (Value, bool) {
	if _, gone := s.deleted[surfaceID]; gone {
		return Value{}, false
	}
	root, ok := s.models[surfaceID]
	if !ok {
		return Value{}, false
	}
	cur := Value{kind: KindMap, m: root}
	for _, seg := range Segments(path) {
		if cur.kind != KindMap {
			return Value{}, false
		}
		next, ok := cur.m[seg]
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Keys lists the child keys of the map at path in index-aware order.
func (s *Store) Keys(surfaceID, path string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.getLocked(surfaceID, path)
	if !ok || v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// Delete drops the surface's model and tombstones the id so later writes are
// refused. It reports whether a model existed.
func (s *Store) Delete(surfaceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.models[surfaceID]
	delete(s.models, surfaceID)
	s.deleted[surfaceID] = struct{}{}
	return existed
}

// Deleted reports whether surfaceID has been deleted.
func (s *Store) Deleted(surfaceID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, gone := s.deleted[surfaceID]
	return gone
}

// Snapshot returns a deep copy of the surface's whole model.
func (s *Store) Snapshot(surfaceID string) (Value, bool) {
	return s.Get(surfaceID, "/")
}

// Fingerprint hashes the canonical (RFC 8785) JSON encoding of the model.
// Equal models always produce equal fingerprints.
func (s *Store) Fingerprint(surfaceID string) (string, bool) {
	v, ok := s.Snapshot(surfaceID)
	if !ok {
		return "", false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), true
}

// Scope returns a read view of one surface whose relative paths resolve
// against base.
func (s *Store) Scope(surfaceID, base string) Scope {
	return Scope{store: s, surfaceID: surfaceID, base: base}
}

func (s *Store) modelLocked(surfaceID string) map[string]Value {
	m, ok := s.models[surfaceID]
	if !ok {
		m = make(map[string]Value)
		s.models[surfaceID] = m
	}
	return m
}

// Scope is a surface-bound Lookup with a data context for relative paths.
type Scope struct {
	store     *Store
	surfaceID string
	base      string
}

func (sc Scope) Get(path string) (Value, bool) {
	return sc.store.Get(sc.surfaceID, sc.Resolve(path))
}

// Resolve turns path into an absolute path within this scope.
func (sc Scope) Resolve(path string) string {
	return Join(sc.base, path)
}

// Within returns a nested scope rooted at path.
func (sc Scope) Within(path string) Scope {
	return Scope{store: sc.store, surfaceID: sc.surfaceID, base: sc.Resolve(path)}
}

func (sc Scope) Base() string { return sc.base }
