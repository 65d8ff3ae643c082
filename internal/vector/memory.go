package vector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/kioku/pkg/utils"
)

// Result is a single vector search hit.
type Result struct {
	ID    string
	Score float64
}

// MemoryStore is a flat id → vector store searched by brute-force cosine similarity.
// Re-adding an id overwrites its vector.
type MemoryStore struct {
	dimensions int
	vectors    map[string][]float32
	mu         sync.RWMutex
}

// NewMemoryStore creates a store for vectors of the given dimension. A dimension of
// zero is fixed by the first vector added.
func NewMemoryStore(dimensions int) *MemoryStore {
	return &MemoryStore{
		dimensions: dimensions,
		vectors:    make(map[string][]float32),
	}
}

// Add stores a copy of vec under id.
func (m *MemoryStore) Add(id string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty vector for %s", id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimensions == 0 {
		m.dimensions = len(vec)
	}
	if len(vec) != m.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), m.dimensions)
	}
	m.vectors[id] = utils.CopyVector(vec)
	return nil
}

// Remove drops id. Missing ids are ignored.
func (m *MemoryStore) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vectors, id)
}

// Get returns a copy of the vector stored for id.
func (m *MemoryStore) Get(id string) ([]float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vectors[id]
	if !ok {
		return nil, false
	}
	return utils.CopyVector(v), true
}

// Search returns up to k vectors with cosine similarity to query of at least threshold,
// best first. Ties are ordered by id. When filter is non-nil, only ids it accepts are scored.
func (m *MemoryStore) Search(query []float32, k int, threshold float64, filter func(id string) bool) []Result {
	if k <= 0 || len(query) == 0 {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(query) != m.dimensions {
		return nil
	}

	var results []Result
	for id, vec := range m.vectors {
		if filter != nil && !filter(id) {
			continue
		}
		score := CosineSimilarity(query, vec)
		if score < threshold {
			continue
		}
		results = append(results, Result{ID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Size returns the number of stored vectors.
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// Dimensions returns the vector dimension, or 0 if not yet fixed.
func (m *MemoryStore) Dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dimensions
}

// Clear removes all vectors. The dimension is kept.
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors = make(map[string][]float32)
}
