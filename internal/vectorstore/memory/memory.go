// Package memory is a flat in-memory index: every query is compared against
// every stored vector by squared Euclidean distance.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"safetyrag/internal/domain"
)

// Index is an exact, append-only nearest-neighbor index.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
}

// NewIndex creates an empty index; call Init before adding vectors.
func NewIndex() *Index { return &Index{} }

// Name returns the identifier of this index implementation.
func (s *Index) Name() string { return "memory" }

// Init fixes the dimension and drops any previously stored vectors.
func (s *Index) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return goerr.Wrap(domain.ErrIndex, "invalid dimension", goerr.V("dimension", dimension))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	return nil
}

// Add appends vectors. The batch is rejected as a whole when any vector
// has the wrong dimension.
func (s *Index) Add(_ context.Context, vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return goerr.Wrap(domain.ErrIndex, "index not initialized")
	}
	for i, v := range vectors {
		if len(v) != s.dimension {
			return goerr.Wrap(domain.ErrIndex, "vector dimension mismatch",
				goerr.V("position", len(s.vectors)+i), goerr.V("expected", s.dimension), goerr.V("actual", len(v)))
		}
	}
	for _, v := range vectors {
		cp := make([]float64, len(v))
		copy(cp, v)
		s.vectors = append(s.vectors, cp)
	}
	return nil
}

// Search returns up to k nearest positions ordered by ascending squared
// distance; equal distances keep insertion order.
func (s *Index) Search(_ context.Context, query []float64, k int) ([]domain.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(query) != s.dimension {
		return nil, goerr.Wrap(domain.ErrIndex, "query dimension mismatch",
			goerr.V("expected", s.dimension), goerr.V("actual", len(query)))
	}
	if k <= 0 || len(s.vectors) == 0 {
		return []domain.Neighbor{}, nil
	}
	if k > len(s.vectors) {
		k = len(s.vectors)
	}

	hits := make([]domain.Neighbor, len(s.vectors))
	for i, v := range s.vectors {
		hits[i] = domain.Neighbor{Position: i, Distance: squaredL2(v, query)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits[:k:k], nil
}

// Len returns the number of stored vectors.
func (s *Index) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Close is a no-op for the in-memory index.
func (s *Index) Close() error { return nil }

func squaredL2(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
