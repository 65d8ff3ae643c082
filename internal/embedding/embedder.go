// Package embedding turns text into vector embeddings behind a bounded cache and a worker pool.
package embedding

import (
	"context"
	"errors"
)

// ErrEmbeddingGeneration is returned when text cannot be embedded: the input is too
// short after normalization, or the underlying model failed.
var ErrEmbeddingGeneration = errors.New("embedding generation failed")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
