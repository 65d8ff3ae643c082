// Package remote is the client for the durable remote store of memory entities.
// Every statement is scoped to a single user id.
package remote

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/kioku/internal/keyword"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
)

var (
	// ErrNetwork marks failures to reach the remote store.
	ErrNetwork = errors.New("remote store unreachable")

	// ErrNotFound is the same sentinel the local backend uses, so callers can
	// match either with one errors.Is.
	ErrNotFound = storage.ErrNotFound
)

// Provider names a remote store implementation.
type Provider string

const (
	ProviderPostgres Provider = "postgres"
	ProviderMemory   Provider = "memory"
)

// scoreContent returns the fraction of query tokens present in content, the same
// measure the local keyword index uses.
func scoreContent(queryTokens []string, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	have := make(map[string]struct{})
	for _, t := range keyword.Tokenize(content) {
		have[t] = struct{}{}
	}
	matched := 0
	for _, t := range queryTokens {
		if _, ok := have[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

func remoteResult(id string, c models.Collection, content string, score float64, createdAt time.Time) *models.SearchResult {
	return &models.SearchResult{
		ID:          id,
		Collection:  c,
		Content:     content,
		Score:       score,
		Provenance:  models.ProvenanceKeyword,
		Sources:     []models.Source{models.SourceRemote},
		RemoteScore: score,
		CreatedAt:   createdAt,
	}
}

func factContent(f *models.Fact) string {
	return strings.Join([]string{f.Category, f.Key, f.Value}, " ")
}

// rankRemote sorts by score, newest first on ties, drops zero scores and truncates.
func rankRemote(results []*models.SearchResult, limit int) []*models.SearchResult {
	kept := results[:0]
	for _, r := range results {
		if r.Score > 0 {
			kept = append(kept, r)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		if !kept[i].CreatedAt.Equal(kept[j].CreatedAt) {
			return kept[i].CreatedAt.After(kept[j].CreatedAt)
		}
		return kept[i].ID < kept[j].ID
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}
	for i, r := range kept {
		r.Rank = i + 1
	}
	return kept
}
