package embedding

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/hyperjump/kioku/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and offline development. Unless
// a fixed vector is registered for a text, it returns a vector derived from the text
// hash so that the same text always gets the same embedding.
type MockEmbedder struct {
	dimensions int

	mu    sync.RWMutex
	fixed map[string][]float32
	// FailOn makes Embed fail for this exact text.
	FailOn string

	calls atomic.Int64
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions, fixed: make(map[string][]float32)}
}

// SetVector registers the vector returned for text. It is normalized to unit length.
func (e *MockEmbedder) SetVector(text string, v []float32) {
	v = utils.CopyVector(v)
	utils.NormalizeL2(v)
	e.mu.Lock()
	e.fixed[text] = v
	e.mu.Unlock()
}

// Calls returns how many texts the model has embedded.
func (e *MockEmbedder) Calls() int64 {
	return e.calls.Load()
}

// Embed returns the registered vector for text, or one derived from its hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.FailOn != "" && text == e.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}
	e.calls.Add(1)

	e.mu.RLock()
	v, ok := e.fixed[text]
	e.mu.RUnlock()
	if ok {
		return utils.CopyVector(v), nil
	}

	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
