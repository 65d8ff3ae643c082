package index

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/hyperjump/kioku/internal/keyword"
	"github.com/hyperjump/kioku/internal/models"
)

type hit struct {
	doc   *models.Document
	score float64
}

// rank orders hits by score, then newer first, then by id.
func rank(hits []hit) {
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.doc.CreatedAt.Equal(b.doc.CreatedAt) {
			return a.doc.CreatedAt.After(b.doc.CreatedAt)
		}
		return a.doc.ID < b.doc.ID
	})
}

func toResults(hits []hit, limit int, prov models.Provenance, src models.Source) []*models.SearchResult {
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]*models.SearchResult, len(hits))
	for i, h := range hits {
		r := &models.SearchResult{
			ID:         h.doc.ID,
			Collection: h.doc.Collection,
			Content:    h.doc.Content,
			Score:      h.score,
			Provenance: prov,
			Sources:    []models.Source{src},
			CreatedAt:  h.doc.CreatedAt,
			Rank:       i + 1,
		}
		if prov == models.ProvenanceKeyword {
			r.KeywordScore = h.score
		} else {
			r.SemanticScore = h.score
		}
		out[i] = r
	}
	return out
}

// KeywordSearch scores the owner's documents by the fraction of distinct query tokens
// they contain and returns the best limit. An empty query or userID matches nothing.
func (c *Collection) KeywordSearch(query, userID string, limit int) []*models.SearchResult {
	if strings.TrimSpace(query) == "" || userID == "" || limit <= 0 {
		return []*models.SearchResult{}
	}
	tokens := keyword.Tokenize(query)
	if len(tokens) == 0 {
		return []*models.SearchResult{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var hits []hit
	for id, matched := range c.keywords.Candidates(tokens) {
		doc := c.docs[id]
		if doc == nil || doc.UserID != userID {
			continue
		}
		hits = append(hits, hit{doc: doc, score: float64(matched) / float64(len(tokens))})
	}
	rank(hits)
	return toResults(hits, limit, models.ProvenanceKeyword, models.SourceLocalKeyword)
}

// SemanticSearch embeds query and returns the owner's documents whose cosine similarity
// is at least threshold, best first. Documents without an embedding are skipped.
func (c *Collection) SemanticSearch(ctx context.Context, query, userID string, limit int, threshold float64) ([]*models.SearchResult, error) {
	if strings.TrimSpace(query) == "" || userID == "" || limit <= 0 || c.embedder == nil {
		return []*models.SearchResult{}, nil
	}

	q, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	owned := func(id string) bool {
		d := c.docs[id]
		return d != nil && d.UserID == userID
	}
	matches := c.vectors.Search(q, c.vectors.Size(), threshold, owned)

	hits := make([]hit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, hit{doc: c.docs[m.ID], score: math.Max(0, m.Score)})
	}
	rank(hits)
	return toResults(hits, limit, models.ProvenanceSemantic, models.SourceLocalSemantic), nil
}
