// Package index implements the on-device search index: per collection, an inverted
// keyword index and a flat vector store over messages and facts.
package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/keyword"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/vector"
	"github.com/hyperjump/kioku/pkg/utils"
)

// Embedder is the part of the embedding provider the index needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Collection indexes the documents of one logical collection. A document in the vector
// store is always present in the keyword index as well.
type Collection struct {
	name     models.Collection
	embedder Embedder
	logger   *zap.Logger

	mu       sync.RWMutex
	docs     map[string]*models.Document
	keywords *keyword.InvertedIndex
	vectors  *vector.MemoryStore
}

// NewCollection returns an empty collection. dimensions may be 0 to adopt the
// dimension of the first embedding indexed.
func NewCollection(name models.Collection, embedder Embedder, dimensions int, logger *zap.Logger) *Collection {
	return &Collection{
		name:     name,
		embedder: embedder,
		logger:   utils.OrNop(logger).With(zap.String("collection", string(name))),
		docs:     make(map[string]*models.Document),
		keywords: keyword.NewInvertedIndex(),
		vectors:  vector.NewMemoryStore(dimensions),
	}
}

// Name returns the collection name.
func (c *Collection) Name() models.Collection {
	return c.name
}

type prepared struct {
	doc       *models.Document
	embedding []float32
}

func (c *Collection) prepare(doc *models.Document) (*models.Document, error) {
	if doc == nil || doc.ID == "" {
		return nil, fmt.Errorf("document id is required")
	}
	stored := *doc
	stored.Collection = c.name
	stored.Keywords = keyword.Tokenize(doc.Content)
	stored.Embedding = nil
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if doc.Metadata != nil {
		stored.Metadata = make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			stored.Metadata[k] = v
		}
	}
	return &stored, nil
}

// IndexDocument inserts doc or overwrites the document with the same ID. When
// withEmbedding is set the content is embedded; if that fails the document is kept
// keyword-only. A precomputed doc.Embedding is used as is.
func (c *Collection) IndexDocument(ctx context.Context, doc *models.Document, withEmbedding bool) error {
	stored, err := c.prepare(doc)
	if err != nil {
		return err
	}

	emb := utils.CopyVector(doc.Embedding)
	if emb == nil && withEmbedding && c.embedder != nil {
		emb, err = c.embedder.Embed(ctx, doc.Content)
		if err != nil {
			c.logger.Warn("embedding failed, indexing keyword-only", zap.String("id", doc.ID), zap.Error(err))
			emb = nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(prepared{doc: stored, embedding: emb})
	return nil
}

// IndexBatch indexes docs as one unit. Embeddings are computed before anything is
// mutated; if ctx is cancelled by then, the batch is dropped and ctx.Err() returned.
func (c *Collection) IndexBatch(ctx context.Context, docs []*models.Document, withEmbedding bool) error {
	batch := make([]prepared, len(docs))
	for i, doc := range docs {
		stored, err := c.prepare(doc)
		if err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		batch[i] = prepared{doc: stored, embedding: utils.CopyVector(doc.Embedding)}
	}

	if withEmbedding && c.embedder != nil {
		c.embedBatch(ctx, batch)
	}

	if err := ctx.Err(); err != nil {
		c.logger.Info("batch aborted before apply", zap.Int("documents", len(batch)), zap.Error(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range batch {
		c.applyLocked(p)
	}
	return nil
}

// embedBatch fills missing embeddings. One batch call is tried first; if it fails the
// documents are embedded one by one so a single bad text only costs its own embedding.
func (c *Collection) embedBatch(ctx context.Context, batch []prepared) {
	var idx []int
	var texts []string
	for i, p := range batch {
		if p.embedding == nil {
			idx = append(idx, i)
			texts = append(texts, p.doc.Content)
		}
	}
	if len(texts) == 0 {
		return
	}

	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err == nil {
		for j, i := range idx {
			batch[i].embedding = vectors[j]
		}
		return
	}

	for _, i := range idx {
		if ctx.Err() != nil {
			return
		}
		emb, err := c.embedder.Embed(ctx, batch[i].doc.Content)
		if err != nil {
			c.logger.Warn("embedding failed, indexing keyword-only", zap.String("id", batch[i].doc.ID), zap.Error(err))
			continue
		}
		batch[i].embedding = emb
	}
}

func (c *Collection) applyLocked(p prepared) {
	id := p.doc.ID
	c.docs[id] = p.doc
	c.keywords.Add(id, p.doc.Keywords)
	if p.embedding == nil {
		c.vectors.Remove(id)
		return
	}
	if err := c.vectors.Add(id, p.embedding); err != nil {
		c.logger.Warn("dropping embedding", zap.String("id", id), zap.Error(err))
		c.vectors.Remove(id)
	}
}

// Remove deletes the document with id. Missing ids are ignored.
func (c *Collection) Remove(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors.Remove(id)
	c.keywords.Remove(id)
	delete(c.docs, id)
}

// Get returns a copy of the document with id, including its embedding if any.
func (c *Collection) Get(id string) (*models.Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.docs[id]
	if !ok {
		return nil, false
	}
	out := *d
	out.Keywords = append([]string(nil), d.Keywords...)
	out.Embedding, _ = c.vectors.Get(id)
	return &out, true
}

// OwnedIDs returns the ids of userID's documents, sorted.
func (c *Collection) OwnedIDs(userID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []string
	for id, d := range c.docs {
		if d.UserID == userID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Clear empties the collection.
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = make(map[string]*models.Document)
	c.keywords = keyword.NewInvertedIndex()
	c.vectors.Clear()
}

// Len returns the number of documents.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// EmbeddedLen returns the number of documents with an embedding.
func (c *Collection) EmbeddedLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vectors.Size()
}
