package models

import "fmt"

// SearchMode selects which retrieval strategies a search runs.
type SearchMode string

const (
	ModeKeyword  SearchMode = "keyword"
	ModeSemantic SearchMode = "semantic"
	ModeHybrid   SearchMode = "hybrid"
)

// ParseSearchMode maps a string to a SearchMode. Empty selects hybrid.
func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(s) {
	case "":
		return ModeHybrid, nil
	case ModeKeyword, ModeSemantic, ModeHybrid:
		return SearchMode(s), nil
	default:
		return "", fmt.Errorf("unknown search mode %q", s)
	}
}

// SearchOptions controls a single search call.
type SearchOptions struct {
	UserID     string     `json:"user_id"`
	Limit      int        `json:"limit,omitempty"`
	Mode       SearchMode `json:"mode,omitempty"`
	Collection Collection `json:"collection,omitempty"`
	// Threshold is the minimum cosine similarity for semantic hits; zero uses the configured default.
	Threshold float64 `json:"threshold,omitempty"`
}

// Normalize fills defaults and clamps the limit to max.
func (o *SearchOptions) Normalize(defaultLimit, maxLimit int, defaultThreshold float64) {
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	if maxLimit > 0 && o.Limit > maxLimit {
		o.Limit = maxLimit
	}
	if o.Mode == "" {
		o.Mode = ModeHybrid
	}
	if o.Collection == "" {
		o.Collection = CollectionMessages
	}
	if o.Threshold <= 0 {
		o.Threshold = defaultThreshold
	}
}

// ContextOptions bounds the two halves of a context search.
type ContextOptions struct {
	MessageLimit int `json:"message_limit,omitempty"`
	FactLimit    int `json:"fact_limit,omitempty"`
}
