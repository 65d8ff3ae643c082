package embedding

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/pkg/utils"
)

// ProviderConfig configures a Provider.
type ProviderConfig struct {
	CacheSize int
	Workers   int
	// MinTextLength is the minimum rune count after trimming. Values below 1 mean 1.
	MinTextLength int
	Logger        *zap.Logger
}

// Provider wraps an Embedder with input normalization, the LRU cache and the
// inference worker pool. It is safe for concurrent use.
type Provider struct {
	embedder Embedder
	cache    *EmbeddingCache
	pool     *Pool
	minLen   int
	logger   *zap.Logger
}

type embedResult struct {
	vectors [][]float32
	err     error
}

// NewProvider wraps embedder. The provider owns the embedder and closes it on Close.
func NewProvider(embedder Embedder, cfg ProviderConfig) *Provider {
	minLen := cfg.MinTextLength
	if minLen < 1 {
		minLen = 1
	}
	logger := utils.OrNop(cfg.Logger)
	return &Provider{
		embedder: embedder,
		cache:    NewEmbeddingCache(cfg.CacheSize),
		pool:     NewPool(PoolConfig{NumWorkers: cfg.Workers, Logger: logger}),
		minLen:   minLen,
		logger:   logger,
	}
}

// Normalize returns the cache key for text: the text with surrounding whitespace removed.
// Case and inner whitespace are preserved.
func Normalize(text string) string {
	return strings.TrimSpace(text)
}

func (p *Provider) normalize(text string) (string, error) {
	key := Normalize(text)
	if utf8.RuneCountInString(key) < p.minLen {
		return "", fmt.Errorf("%w: text shorter than %d characters after normalization", ErrEmbeddingGeneration, p.minLen)
	}
	return key, nil
}

// Embed returns the embedding for text. Repeat requests for the same normalized text
// are served from the cache and return identical vectors.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	key, err := p.normalize(text)
	if err != nil {
		return nil, err
	}
	if v, ok := p.cache.Get(key); ok {
		return v, nil
	}

	vectors, err := p.infer(ctx, []string{key})
	if err != nil {
		return nil, err
	}
	p.cache.Set(key, vectors[0])
	return vectors[0], nil
}

// EmbedBatch embeds texts preserving order. Each vector equals what Embed would
// return for the same element; misses are deduplicated into one inference job.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	missIdx := make(map[string][]int)
	var misses []string

	for i, text := range texts {
		key, err := p.normalize(text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		if v, ok := p.cache.Get(key); ok {
			out[i] = v
			continue
		}
		if _, seen := missIdx[key]; !seen {
			misses = append(misses, key)
		}
		missIdx[key] = append(missIdx[key], i)
	}

	if len(misses) == 0 {
		return out, nil
	}

	vectors, err := p.infer(ctx, misses)
	if err != nil {
		return nil, err
	}
	for j, key := range misses {
		p.cache.Set(key, vectors[j])
		for _, i := range missIdx[key] {
			out[i] = utils.CopyVector(vectors[j])
		}
	}
	return out, nil
}

// infer runs the model on the worker pool and waits for the result or ctx.
func (p *Provider) infer(ctx context.Context, texts []string) ([][]float32, error) {
	done := make(chan embedResult, 1)
	job := func() {
		if err := ctx.Err(); err != nil {
			done <- embedResult{err: err}
			return
		}
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		done <- embedResult{vectors: vectors, err: err}
	}
	if err := p.pool.Submit(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingGeneration, err)
	}

	select {
	case res := <-done:
		if res.err != nil {
			p.logger.Debug("embedding inference failed", zap.Int("texts", len(texts)), zap.Error(res.err))
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingGeneration, res.err)
		}
		if len(res.vectors) != len(texts) {
			return nil, fmt.Errorf("%w: model returned %d vectors for %d texts", ErrEmbeddingGeneration, len(res.vectors), len(texts))
		}
		for i, v := range res.vectors {
			if len(v) == 0 {
				return nil, fmt.Errorf("%w: empty vector for text %d", ErrEmbeddingGeneration, i)
			}
		}
		return res.vectors, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingGeneration, ctx.Err())
	}
}

// Dimensions returns the embedding dimension of the wrapped model.
func (p *Provider) Dimensions() int {
	return p.embedder.Dimensions()
}

// Stats returns cache counters.
func (p *Provider) Stats() CacheStats {
	return p.cache.Stats()
}

// Close drains the worker pool and closes the wrapped embedder.
func (p *Provider) Close() error {
	p.pool.Close()
	return p.embedder.Close()
}

var _ Embedder = (*Provider)(nil)
