package search

import (
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/pkg/utils"
)

// ProcessQuery collapses whitespace in query and fills defaults on a copy of opts.
// An unknown mode falls back to hybrid.
func ProcessQuery(query string, opts models.SearchOptions, cfg *config.SearchConfig) (string, models.SearchOptions) {
	query = utils.CollapseWhitespace(query)
	if _, err := models.ParseSearchMode(string(opts.Mode)); err != nil {
		opts.Mode = models.ModeHybrid
	}
	opts.Normalize(cfg.DefaultLimit, cfg.MaxLimit, cfg.SemanticThreshold)
	return query, opts
}
