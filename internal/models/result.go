package models

import "time"

// Provenance tags which strategy kind produced a result.
type Provenance string

const (
	ProvenanceKeyword  Provenance = "keyword"
	ProvenanceSemantic Provenance = "semantic"
	ProvenanceHybrid   Provenance = "hybrid"
)

// Source names one concrete retrieval strategy.
type Source string

const (
	SourceLocalKeyword  Source = "local_keyword"
	SourceLocalSemantic Source = "local_semantic"
	SourceRemote        Source = "remote"
)

// SearchResult represents a single search hit.
type SearchResult struct {
	ID            string     `json:"id"`
	Collection    Collection `json:"collection"`
	Content       string     `json:"content"`
	Score         float64    `json:"score"`
	Provenance    Provenance `json:"provenance"`
	Sources       []Source   `json:"sources"`
	KeywordScore  float64    `json:"keyword_score,omitempty"`
	SemanticScore float64    `json:"semantic_score,omitempty"`
	RemoteScore   float64    `json:"remote_score,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Rank          int        `json:"rank"`
}

// HasSource reports whether s contributed to the result.
func (r *SearchResult) HasSource(s Source) bool {
	for _, have := range r.Sources {
		if have == s {
			return true
		}
	}
	return false
}

// SearchStats describes where results came from and how long each strategy took.
type SearchStats struct {
	LocalCount    int   `json:"local_count"`
	RemoteCount   int   `json:"remote_count"`
	KeywordCount  int   `json:"keyword_count"`
	SemanticCount int   `json:"semantic_count"`
	DurationMs    int64 `json:"duration_ms"`
	KeywordMs     int64 `json:"keyword_ms"`
	SemanticMs    int64 `json:"semantic_ms"`
	RemoteMs      int64 `json:"remote_ms"`
	Online        bool  `json:"online"`
	// Degraded is set when a strategy failed and was skipped.
	Degraded bool `json:"degraded,omitempty"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Query   string          `json:"query"`
	Mode    SearchMode      `json:"mode"`
	Results []*SearchResult `json:"results"`
	Stats   SearchStats     `json:"stats"`
}

// ContextResponse carries the message and fact halves of a context search.
type ContextResponse struct {
	Messages     []*SearchResult `json:"messages"`
	Facts        []*SearchResult `json:"facts"`
	MessageStats SearchStats     `json:"message_stats"`
	FactStats    SearchStats     `json:"fact_stats"`
}
