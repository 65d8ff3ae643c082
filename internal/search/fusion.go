package search

import (
	"sort"

	"github.com/hyperjump/kioku/internal/models"
)

// Merge fuses result lists by ID. Each ID keeps its best score and the union of the
// strategies that surfaced it; an ID seen by more than one strategy becomes hybrid.
// The output is sorted by score, newer first on ties, then by ID, and cut to limit
// when limit > 0. Inputs are not modified.
func Merge(limit int, lists ...[]*models.SearchResult) []*models.SearchResult {
	byID := make(map[string]*models.SearchResult)
	var order []string

	for _, list := range lists {
		for _, r := range list {
			if r == nil {
				continue
			}
			cur, ok := byID[r.ID]
			if !ok {
				cp := *r
				cp.Sources = append([]models.Source(nil), r.Sources...)
				byID[r.ID] = &cp
				order = append(order, r.ID)
				continue
			}
			absorb(cur, r)
		}
	}

	out := make([]*models.SearchResult, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i, r := range out {
		r.Rank = i + 1
	}
	return out
}

func absorb(cur, r *models.SearchResult) {
	if r.Score > cur.Score {
		cur.Score = r.Score
	}
	cur.KeywordScore = max(cur.KeywordScore, r.KeywordScore)
	cur.SemanticScore = max(cur.SemanticScore, r.SemanticScore)
	cur.RemoteScore = max(cur.RemoteScore, r.RemoteScore)
	if cur.Content == "" {
		cur.Content = r.Content
	}
	if cur.CreatedAt.IsZero() {
		cur.CreatedAt = r.CreatedAt
	}
	for _, s := range r.Sources {
		if !cur.HasSource(s) {
			cur.Sources = append(cur.Sources, s)
		}
	}
	if len(cur.Sources) > 1 || cur.Provenance != r.Provenance {
		cur.Provenance = models.ProvenanceHybrid
	}
}
