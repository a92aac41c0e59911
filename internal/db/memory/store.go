// Package memory implements db.Store in process memory with brute-force
// cosine search. It backs repository tests and the "memory" database
// driver for local development.
package memory

import (
	"context"
	"encoding/binary"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/querymem/internal/db"
	"github.com/kailas-cloud/querymem/internal/domain/filter"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store is an in-memory db.Store. All operations are safe for
// concurrent use; click updates are serialized under the write lock.
type Store struct {
	mu      sync.RWMutex
	hashes  map[string]map[string]string
	kv      map[string][]byte
	indexes map[string]*db.IndexDefinition
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		hashes:  make(map[string]map[string]string),
		kv:      make(map[string][]byte),
		indexes: make(map[string]*db.IndexDefinition),
	}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady always succeeds.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// HSet stores hash fields at the given key, merging into existing fields.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for f, v := range fields {
		h[f] = v
	}
	return nil
}

// HGetAll returns a copy of all hash fields at the given key.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.hashes[key]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(h))
	for f, v := range h {
		out[f] = v
	}
	return out, nil
}

// Del removes a key.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, key)
	return nil
}

// Exists reports whether a hash key is present.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hashes[key]
	return ok, nil
}

// Get retrieves a KV value.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores a KV value.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.kv[key] = v
	return nil
}

// CreateIndex registers an index definition.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	s.indexes[def.Name] = def
	return nil
}

// IndexExists reports whether an index is registered.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok, nil
}

// ClickUpdate applies a click delta under the write lock.
// Returns false when the key does not exist.
func (s *Store) ClickUpdate(_ context.Context, key string, u db.ClickDelta) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hashes[key]
	if !ok {
		return false, nil
	}

	count, _ := strconv.ParseInt(h[u.CountField], 10, 64)
	h[u.CountField] = strconv.FormatInt(count+1, 10)

	if cur := h[u.ListField]; cur == "" {
		h[u.ListField] = u.ResultID
	} else {
		h[u.ListField] = cur + u.Separator + u.ResultID
	}
	return true, nil
}

// SearchKNN scans every record under the index prefix, scores by cosine
// similarity, and returns the top K. Scores are clamped to [0, 1] to
// match the FT.SEARCH distance conversion.
func (s *Store) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefixes, err := s.indexPrefixes(q.IndexName)
	if err != nil {
		return nil, err
	}

	var entries []db.SearchEntry
	for key, h := range s.hashes {
		if !hasAnyPrefix(key, prefixes) || !matchesFilter(h, q.Filters) {
			continue
		}
		vec := bytesToVector(h["__vector"])
		if vec == nil {
			continue
		}
		score := max(0, cosine(q.Vector, vec))
		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  score,
			Fields: selectFields(h, q.ReturnFields),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Key < entries[j].Key
	})

	total := len(entries)
	if q.K > 0 && len(entries) > q.K {
		entries = entries[:q.K]
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

// SearchSort scans records under the index prefix, filters, and sorts by a
// numeric payload field.
func (s *Store) SearchSort(_ context.Context, q *db.SortQuery) (*db.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefixes, err := s.indexPrefixes(q.IndexName)
	if err != nil {
		return nil, err
	}

	type sortable struct {
		entry db.SearchEntry
		sort  float64
	}

	var hits []sortable
	for key, h := range s.hashes {
		if !hasAnyPrefix(key, prefixes) || !matchesFilter(h, q.Filters) {
			continue
		}
		v, _ := strconv.ParseFloat(h[q.SortField], 64)
		hits = append(hits, sortable{
			entry: db.SearchEntry{Key: key, Fields: selectFields(h, q.ReturnFields)},
			sort:  v,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].sort != hits[j].sort {
			if q.Desc {
				return hits[i].sort > hits[j].sort
			}
			return hits[i].sort < hits[j].sort
		}
		return hits[i].entry.Key < hits[j].entry.Key
	})

	total := len(hits)
	if q.Offset >= len(hits) {
		return &db.SearchResult{Total: total}, nil
	}
	hits = hits[q.Offset:]
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}

	entries := make([]db.SearchEntry, len(hits))
	for i, h := range hits {
		entries[i] = h.entry
	}
	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func (s *Store) indexPrefixes(name string) ([]string, error) {
	def, ok := s.indexes[name]
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	if len(def.Prefixes) == 0 {
		return []string{""}, nil
	}
	return def.Prefixes, nil
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func matchesFilter(h map[string]string, expr filter.Expression) bool {
	for _, cond := range expr.Conditions() {
		v, ok := h[cond.Key()]
		if !ok {
			return false
		}
		switch {
		case cond.IsMatch():
			// Empty tag values are not indexed, mirroring FT.SEARCH.
			if v == "" || v != cond.MatchValue() {
				return false
			}
		case cond.IsRange():
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return false
			}
			r := cond.RangeValue()
			if r.GTE != nil && f < *r.GTE {
				return false
			}
			if r.LTE != nil && f > *r.LTE {
				return false
			}
		}
	}
	return true
}

func selectFields(h map[string]string, returnFields []string) map[string]string {
	if len(returnFields) == 0 {
		out := make(map[string]string, len(h))
		for f, v := range h {
			out[f] = v
		}
		return out
	}
	out := make(map[string]string, len(returnFields))
	for _, f := range returnFields {
		if v, ok := h[f]; ok {
			out[f] = v
		}
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func bytesToVector(s string) []float32 {
	if s == "" || len(s)%4 != 0 {
		return nil
	}
	b := []byte(s)
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
