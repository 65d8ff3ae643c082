package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
	"github.com/hyperjump/kioku/pkg/utils"
)

// BlobKeyPrefix prefixes the blob key of every serialized collection.
const BlobKeyPrefix = "kioku.index."

// BlobKey returns the blob store key for a collection.
func BlobKey(c models.Collection) string {
	return BlobKeyPrefix + string(c)
}

// Stats holds per-collection document counts.
type Stats struct {
	Documents int `json:"documents"`
	Embedded  int `json:"embedded"`
}

// Index owns one Collection per models.Collection and persists them to a blob store.
type Index struct {
	collections map[models.Collection]*Collection
	blobs       storage.BlobStore
	logger      *zap.Logger

	mu      sync.Mutex
	corrupt map[string]error

	// changes counts mutations; saved is the value of changes captured by the last
	// successful Save.
	changes atomic.Uint64
	saved   atomic.Uint64
	saveMu  sync.Mutex
}

// New creates an index with an empty collection for each of models.Collections.
// blobs may be nil, in which case Load and Save are no-ops.
func New(embedder Embedder, dimensions int, blobs storage.BlobStore, logger *zap.Logger) *Index {
	logger = utils.OrNop(logger)
	ix := &Index{
		collections: make(map[models.Collection]*Collection, len(models.Collections)),
		blobs:       blobs,
		logger:      logger,
		corrupt:     make(map[string]error),
	}
	for _, name := range models.Collections {
		ix.collections[name] = NewCollection(name, embedder, dimensions, logger)
	}
	return ix
}

// Collection returns the named collection, or nil if it is unknown.
func (ix *Index) Collection(name models.Collection) *Collection {
	return ix.collections[name]
}

func (ix *Index) collectionFor(name models.Collection) (*Collection, error) {
	c := ix.collections[name]
	if c == nil {
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	return c, nil
}

// IndexDocument routes doc to its collection.
func (ix *Index) IndexDocument(ctx context.Context, doc *models.Document, withEmbedding bool) error {
	c, err := ix.collectionFor(doc.Collection)
	if err != nil {
		return err
	}
	defer ix.changes.Add(1)
	return c.IndexDocument(ctx, doc, withEmbedding)
}

// IndexBatch groups docs by collection and indexes each group as one batch.
// An unknown collection fails the call before anything is indexed.
func (ix *Index) IndexBatch(ctx context.Context, docs []*models.Document, withEmbedding bool) error {
	groups := make(map[models.Collection][]*models.Document)
	for _, d := range docs {
		if _, err := ix.collectionFor(d.Collection); err != nil {
			return err
		}
		groups[d.Collection] = append(groups[d.Collection], d)
	}
	defer ix.changes.Add(1)
	for _, name := range models.Collections {
		if len(groups[name]) == 0 {
			continue
		}
		if err := ix.collections[name].IndexBatch(ctx, groups[name], withEmbedding); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes id from the named collection.
func (ix *Index) Remove(ctx context.Context, name models.Collection, id string) error {
	c, err := ix.collectionFor(name)
	if err != nil {
		return err
	}
	c.Remove(ctx, id)
	ix.changes.Add(1)
	return nil
}

// Prune removes every document of userID in the named collection whose id is not in
// keep, and returns how many were removed.
func (ix *Index) Prune(ctx context.Context, name models.Collection, userID string, keep []string) (int, error) {
	c, err := ix.collectionFor(name)
	if err != nil {
		return 0, err
	}
	wanted := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		wanted[id] = struct{}{}
	}
	removed := 0
	for _, id := range c.OwnedIDs(userID) {
		if _, ok := wanted[id]; ok {
			continue
		}
		c.Remove(ctx, id)
		removed++
	}
	if removed > 0 {
		ix.changes.Add(1)
	}
	return removed, nil
}

// Load restores every collection from the blob store. Missing blobs leave the
// collection empty. A corrupted blob is copied aside, logged and remembered; the
// collection stays empty and that key is not read again by later loads.
func (ix *Index) Load(ctx context.Context) error {
	if ix.blobs == nil {
		return nil
	}
	var errs []error
	for _, name := range models.Collections {
		key := BlobKey(name)
		if ix.isCorrupt(key) {
			ix.logger.Warn("skipping corrupted index blob", zap.String("key", key))
			continue
		}

		data, err := ix.blobs.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", key, err))
			continue
		}

		if err := ix.collections[name].Restore(data); err != nil {
			ix.markCorrupt(key, err)
			if qerr := ix.blobs.Put(ctx, key+".corrupt", data); qerr != nil {
				ix.logger.Warn("could not keep copy of corrupted blob", zap.String("key", key), zap.Error(qerr))
			}
			ix.logger.Error("index blob corrupted, collection treated as empty", zap.String("key", key), zap.Error(err))
			continue
		}
	}
	return errors.Join(errs...)
}

// Save serializes every collection to its blob key. Writing a key clears its corrupt mark.
func (ix *Index) Save(ctx context.Context) error {
	if ix.blobs == nil {
		return nil
	}
	ix.saveMu.Lock()
	defer ix.saveMu.Unlock()
	gen := ix.changes.Load()
	for _, name := range models.Collections {
		key := BlobKey(name)
		data, err := ix.collections[name].Serialize()
		if err != nil {
			return fmt.Errorf("serialize %s: %w", name, err)
		}
		if err := ix.blobs.Put(ctx, key, data); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		ix.clearCorrupt(key)
	}
	ix.saved.Store(gen)
	ix.logger.Debug("index saved")
	return nil
}

// Dirty reports whether the index changed since the last successful Save.
func (ix *Index) Dirty() bool {
	return ix.changes.Load() != ix.saved.Load()
}

// RunAutoSave saves the index every interval while it is dirty, until ctx is done.
// A non-positive interval returns immediately.
func (ix *Index) RunAutoSave(ctx context.Context, interval time.Duration) {
	if interval <= 0 || ix.blobs == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !ix.Dirty() {
				continue
			}
			if err := ix.Save(ctx); err != nil {
				ix.logger.Warn("periodic index save failed", zap.Error(err))
			}
		}
	}
}

func (ix *Index) isCorrupt(key string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.corrupt[key]
	return ok
}

func (ix *Index) markCorrupt(key string, err error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.corrupt[key] = err
}

func (ix *Index) clearCorrupt(key string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.corrupt, key)
}

// CorruptKeys returns the blob keys that failed to restore.
func (ix *Index) CorruptKeys() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	keys := make([]string, 0, len(ix.corrupt))
	for _, name := range models.Collections {
		if _, ok := ix.corrupt[BlobKey(name)]; ok {
			keys = append(keys, BlobKey(name))
		}
	}
	return keys
}

// Clear empties every collection.
func (ix *Index) Clear() {
	for _, c := range ix.collections {
		c.Clear()
	}
	ix.changes.Add(1)
}

// Stats returns document counts per collection.
func (ix *Index) Stats() map[models.Collection]Stats {
	out := make(map[models.Collection]Stats, len(ix.collections))
	for name, c := range ix.collections {
		out[name] = Stats{Documents: c.Len(), Embedded: c.EmbeddedLen()}
	}
	return out
}
