// Package search provides the hybrid search orchestrator over the local index and
// the remote store.
package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/index"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/pkg/utils"
)

// RemoteSearcher is the remote store's search surface.
type RemoteSearcher interface {
	Search(ctx context.Context, collection models.Collection, userID, query string, limit int) ([]*models.SearchResult, error)
}

// Connectivity reports whether the remote store should be tried.
type Connectivity interface {
	IsOnline() bool
}

// Engine runs keyword, semantic and hybrid searches. Search never fails: a strategy
// that errors is logged and the response is marked degraded.
type Engine struct {
	index  *index.Index
	remote RemoteSearcher
	conn   Connectivity
	config *config.SearchConfig
	logger *zap.Logger
}

// NewEngine creates a search engine. remote and conn may be nil for local-only use.
func NewEngine(ix *index.Index, remote RemoteSearcher, conn Connectivity, cfg *config.SearchConfig, logger *zap.Logger) *Engine {
	return &Engine{
		index:  ix,
		remote: remote,
		conn:   conn,
		config: cfg,
		logger: utils.OrNop(logger),
	}
}

func (e *Engine) online() bool {
	return e.conn != nil && e.conn.IsOnline()
}

type strategyResult struct {
	results []*models.SearchResult
	err     error
	took    time.Duration
}

func timed(fn func() ([]*models.SearchResult, error)) strategyResult {
	start := time.Now()
	results, err := fn()
	return strategyResult{results: results, err: err, took: time.Since(start)}
}

// Search runs the strategies selected by opts.Mode and merges their results.
func (e *Engine) Search(ctx context.Context, query string, opts models.SearchOptions) *models.SearchResponse {
	start := time.Now()
	query, opts = ProcessQuery(query, opts, e.config)

	resp := &models.SearchResponse{
		Query:   query,
		Mode:    opts.Mode,
		Results: []*models.SearchResult{},
	}
	resp.Stats.Online = e.online()
	defer func() { resp.Stats.DurationMs = time.Since(start).Milliseconds() }()

	if query == "" || opts.UserID == "" {
		return resp
	}
	col := e.index.Collection(opts.Collection)
	if col == nil {
		e.logger.Warn("search on unknown collection", zap.String("collection", string(opts.Collection)))
		resp.Stats.Degraded = true
		return resp
	}

	candidates := max(e.config.TopKCandidates, opts.Limit)
	runKeyword := opts.Mode != models.ModeSemantic
	runSemantic := opts.Mode != models.ModeKeyword
	runRemote := opts.Mode == models.ModeHybrid && e.remote != nil && resp.Stats.Online

	var wg sync.WaitGroup
	var keywordR, semanticR, remoteR strategyResult
	if runKeyword {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keywordR = timed(func() ([]*models.SearchResult, error) {
				return col.KeywordSearch(query, opts.UserID, candidates), nil
			})
		}()
	}
	if runSemantic {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semanticR = timed(func() ([]*models.SearchResult, error) {
				return col.SemanticSearch(ctx, query, opts.UserID, candidates, opts.Threshold)
			})
		}()
	}
	if runRemote {
		wg.Add(1)
		go func() {
			defer wg.Done()
			remoteR = timed(func() ([]*models.SearchResult, error) {
				return e.remote.Search(ctx, opts.Collection, opts.UserID, query, candidates)
			})
		}()
	}
	wg.Wait()

	for name, r := range map[string]*strategyResult{"keyword": &keywordR, "semantic": &semanticR, "remote": &remoteR} {
		if r.err != nil {
			e.logger.Warn("search strategy failed",
				zap.String("strategy", name),
				zap.String("collection", string(opts.Collection)),
				zap.Error(r.err))
			resp.Stats.Degraded = true
			r.results = nil
		}
	}

	resp.Stats.KeywordCount = len(keywordR.results)
	resp.Stats.SemanticCount = len(semanticR.results)
	resp.Stats.KeywordMs = keywordR.took.Milliseconds()
	resp.Stats.SemanticMs = semanticR.took.Milliseconds()
	resp.Stats.RemoteMs = remoteR.took.Milliseconds()

	resp.Results = Merge(opts.Limit, keywordR.results, semanticR.results, remoteR.results)
	for _, r := range resp.Results {
		if r.HasSource(models.SourceLocalKeyword) || r.HasSource(models.SourceLocalSemantic) {
			resp.Stats.LocalCount++
		}
		if r.HasSource(models.SourceRemote) {
			resp.Stats.RemoteCount++
		}
	}

	e.logger.Debug("search",
		zap.String("mode", string(opts.Mode)),
		zap.String("collection", string(opts.Collection)),
		zap.Int("results", len(resp.Results)),
		zap.Bool("online", resp.Stats.Online),
		zap.Bool("degraded", resp.Stats.Degraded))
	return resp
}

// SearchContext runs hybrid search over messages and facts independently, for
// assembling chat context.
func (e *Engine) SearchContext(ctx context.Context, query, userID string, opts models.ContextOptions) *models.ContextResponse {
	if opts.MessageLimit <= 0 {
		opts.MessageLimit = e.config.ContextMessageLimit
	}
	if opts.FactLimit <= 0 {
		opts.FactLimit = e.config.ContextFactLimit
	}

	var (
		wg              sync.WaitGroup
		messages, facts *models.SearchResponse
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		messages = e.Search(ctx, query, models.SearchOptions{
			UserID: userID, Limit: opts.MessageLimit, Mode: models.ModeHybrid, Collection: models.CollectionMessages,
		})
	}()
	go func() {
		defer wg.Done()
		facts = e.Search(ctx, query, models.SearchOptions{
			UserID: userID, Limit: opts.FactLimit, Mode: models.ModeHybrid, Collection: models.CollectionFacts,
		})
	}()
	wg.Wait()

	return &models.ContextResponse{
		Messages:     messages.Results,
		Facts:        facts.Results,
		MessageStats: messages.Stats,
		FactStats:    facts.Stats,
	}
}
