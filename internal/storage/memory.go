package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStorage is an in-process vector collection using brute-force squared L2 search.
// It mirrors QdrantStorage semantics for local runs and tests.
type MemoryStorage struct {
	mu         sync.RWMutex
	collection string
	dimension  int
	exists     bool
	order      []string
	records    map[string]Record
}

var _ VectorStore = (*MemoryStorage)(nil)

func NewMemoryStorage(collection string, dimension int) *MemoryStorage {
	if collection == "" {
		collection = DefaultCollectionName
	}
	return &MemoryStorage{
		collection: collection,
		dimension:  dimension,
	}
}

func (s *MemoryStorage) Health(context.Context) error { return nil }

func (s *MemoryStorage) CollectionName() string { return s.collection }

func (s *MemoryStorage) CollectionExists(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists, nil
}

func (s *MemoryStorage) DeleteCollection(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists = false
	s.order = nil
	s.records = nil
	return nil
}

func (s *MemoryStorage) EnsureCollection(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		s.exists = true
		s.records = make(map[string]Record)
	}
	return nil
}

func (s *MemoryStorage) Upsert(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists {
		return ErrCollectionNotFound
	}
	for _, r := range records {
		if len(r.Vector) != s.dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, expected %d",
				ErrDimensionMismatch, r.ID, len(r.Vector), s.dimension)
		}
	}

	for _, r := range records {
		if _, ok := s.records[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		s.records[r.ID] = r
	}
	return nil
}

func (s *MemoryStorage) Query(_ context.Context, vector []float32, k int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.exists {
		return nil, ErrCollectionNotFound
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	hits := make([]Hit, 0, len(s.order))
	for _, id := range s.order {
		r := s.records[id]
		hits = append(hits, Hit{
			ID:       r.ID,
			Text:     r.Text,
			URL:      r.URL,
			Title:    r.Title,
			Distance: squaredL2(r.Vector, vector),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if k < len(hits) {
		hits = hits[:max(k, 0)]
	}
	return hits, nil
}

func (s *MemoryStorage) Count(context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return 0, ErrCollectionNotFound
	}
	return uint64(len(s.records)), nil
}

// IDs returns the stored record ids in insertion order.
func (s *MemoryStorage) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

func (s *MemoryStorage) Close() error { return nil }

func squaredL2(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
