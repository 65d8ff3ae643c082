package search

import (
	"context"
	"testing"
	"time"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/connectivity"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/index"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/remote"
	"github.com/hyperjump/kioku/internal/storage"
)

const (
	reactQuestion = "How do I speed up React?"
	reactAnswer   = "Use React.memo and code splitting to optimize performance."
	reactQuery    = "improving React app speed"
	catMessage    = "my cat likes tuna"
)

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.SearchConfig {
	return &config.SearchConfig{
		DefaultLimit:        10,
		MaxLimit:            100,
		SemanticThreshold:   0.5,
		TopKCandidates:      50,
		ContextMessageLimit: 5,
		ContextFactLimit:    5,
	}
}

func testEmbedder() *embedding.MockEmbedder {
	m := embedding.NewMockEmbedder(4)
	m.SetVector(reactQuestion, []float32{0.9, 0.3, 0, 0})
	m.SetVector(reactAnswer, []float32{0.7, 0.6, 0.1, 0})
	m.SetVector(reactQuery, []float32{1, 0, 0, 0})
	m.SetVector(catMessage, []float32{0, 0, 0, 1})
	m.SetVector("work framework react", []float32{0.8, 0, 0.2, 0})
	return m
}

func newTestIndex(t *testing.T, emb index.Embedder) *index.Index {
	t.Helper()
	ctx := context.Background()
	ix := index.New(emb, 4, storage.NewMemoryBlobStore(), nil)
	docs := []*models.Document{
		{ID: "q", UserID: "u1", Collection: models.CollectionMessages, Content: reactQuestion, CreatedAt: base},
		{ID: "a", UserID: "u1", Collection: models.CollectionMessages, Content: reactAnswer, CreatedAt: base.Add(time.Minute)},
		{ID: "cat", UserID: "u1", Collection: models.CollectionMessages, Content: catMessage, CreatedAt: base},
		{ID: "other", UserID: "u2", Collection: models.CollectionMessages, Content: reactQuestion, CreatedAt: base},
		models.FactDocument(&models.Fact{ID: "f1", UserID: "u1", Category: "work", Key: "framework", Value: "react", CreatedAt: base}),
	}
	for _, d := range docs {
		if err := ix.IndexDocument(ctx, d, true); err != nil {
			t.Fatalf("IndexDocument(%s): %v", d.ID, err)
		}
	}
	return ix
}

func resultIDs(results []*models.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestEngine_Search_modes(t *testing.T) {
	engine := NewEngine(newTestIndex(t, testEmbedder()), nil, nil, testConfig(), nil)
	ctx := context.Background()

	tests := []struct {
		mode     models.SearchMode
		wantIDs  []string
		wantProv models.Provenance
	}{
		{models.ModeKeyword, []string{"q", "a"}, models.ProvenanceKeyword},
		{models.ModeSemantic, []string{"q", "a"}, models.ProvenanceSemantic},
		{models.ModeHybrid, []string{"q", "a"}, models.ProvenanceHybrid},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			resp := engine.Search(ctx, reactQuery, models.SearchOptions{UserID: "u1", Mode: tt.mode})
			got := resultIDs(resp.Results)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("results = %v, want %v", got, tt.wantIDs)
			}
			for i := range got {
				if got[i] != tt.wantIDs[i] {
					t.Errorf("results = %v, want %v", got, tt.wantIDs)
				}
			}
			if resp.Results[0].Provenance != tt.wantProv {
				t.Errorf("provenance = %s, want %s", resp.Results[0].Provenance, tt.wantProv)
			}
			if resp.Results[0].Rank != 1 {
				t.Errorf("rank = %d", resp.Results[0].Rank)
			}
			if resp.Mode != tt.mode {
				t.Errorf("mode = %s", resp.Mode)
			}
		})
	}
}

func TestEngine_Search_hybridKeepsBestScore(t *testing.T) {
	engine := NewEngine(newTestIndex(t, testEmbedder()), nil, nil, testConfig(), nil)
	resp := engine.Search(context.Background(), reactQuery, models.SearchOptions{UserID: "u1"})
	if len(resp.Results) == 0 {
		t.Fatal("no results")
	}
	top := resp.Results[0]
	if top.Score != max(top.KeywordScore, top.SemanticScore) {
		t.Errorf("score %f, keyword %f, semantic %f", top.Score, top.KeywordScore, top.SemanticScore)
	}
	if !top.HasSource(models.SourceLocalKeyword) || !top.HasSource(models.SourceLocalSemantic) {
		t.Errorf("sources = %v", top.Sources)
	}
}

func TestEngine_Search_offlineHasNoRemoteResults(t *testing.T) {
	rs := remote.NewMemoryStore()
	_ = rs.AddMessage(context.Background(), &models.Message{ID: "r1", UserID: "u1", Content: "react speed tips", CreatedAt: base})

	monitor := connectivity.NewMonitor(false, nil)
	engine := NewEngine(newTestIndex(t, testEmbedder()), rs, monitor, testConfig(), nil)

	resp := engine.Search(context.Background(), reactQuery, models.SearchOptions{UserID: "u1", Mode: models.ModeHybrid})
	if resp.Stats.RemoteCount != 0 {
		t.Errorf("RemoteCount = %d, want 0", resp.Stats.RemoteCount)
	}
	if resp.Stats.LocalCount == 0 {
		t.Error("expected local results while offline")
	}
	if resp.Stats.Online {
		t.Error("Stats.Online should be false")
	}

	monitor.SetOnline(true)
	resp = engine.Search(context.Background(), reactQuery, models.SearchOptions{UserID: "u1", Mode: models.ModeHybrid})
	if resp.Stats.RemoteCount != 1 {
		t.Errorf("online RemoteCount = %d, want 1", resp.Stats.RemoteCount)
	}
}

func TestEngine_Search_remoteOnlyInHybrid(t *testing.T) {
	rs := remote.NewMemoryStore()
	_ = rs.AddMessage(context.Background(), &models.Message{ID: "r1", UserID: "u1", Content: "react speed tips", CreatedAt: base})
	engine := NewEngine(newTestIndex(t, testEmbedder()), rs, connectivity.NewMonitor(true, nil), testConfig(), nil)

	resp := engine.Search(context.Background(), reactQuery, models.SearchOptions{UserID: "u1", Mode: models.ModeKeyword})
	if resp.Stats.RemoteCount != 0 {
		t.Errorf("keyword mode RemoteCount = %d", resp.Stats.RemoteCount)
	}
}

func TestEngine_Search_degraded(t *testing.T) {
	emb := testEmbedder()
	emb.FailOn = reactQuery
	rs := remote.NewMemoryStore()
	rs.SetReachable(false)
	engine := NewEngine(newTestIndex(t, emb), rs, connectivity.NewMonitor(true, nil), testConfig(), nil)

	resp := engine.Search(context.Background(), reactQuery, models.SearchOptions{UserID: "u1"})
	if !resp.Stats.Degraded {
		t.Error("expected degraded response")
	}
	if resp.Stats.SemanticCount != 0 || resp.Stats.RemoteCount != 0 {
		t.Errorf("stats = %+v", resp.Stats)
	}
	if len(resp.Results) != 2 {
		t.Errorf("keyword results should survive, got %v", resultIDs(resp.Results))
	}
}

func TestEngine_Search_empty(t *testing.T) {
	engine := NewEngine(newTestIndex(t, testEmbedder()), nil, nil, testConfig(), nil)
	ctx := context.Background()

	for _, tc := range []struct {
		name, query, user string
	}{
		{"empty query", "", "u1"},
		{"blank query", "   ", "u1"},
		{"no user", reactQuery, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp := engine.Search(ctx, tc.query, models.SearchOptions{UserID: tc.user})
			if resp.Results == nil || len(resp.Results) != 0 {
				t.Errorf("results = %v, want empty non-nil", resp.Results)
			}
			if resp.Stats.Degraded {
				t.Error("empty search should not be degraded")
			}
		})
	}
}

func TestEngine_Search_limitAndOwner(t *testing.T) {
	engine := NewEngine(newTestIndex(t, testEmbedder()), nil, nil, testConfig(), nil)
	resp := engine.Search(context.Background(), reactQuery, models.SearchOptions{UserID: "u1", Limit: 1})
	if len(resp.Results) != 1 {
		t.Fatalf("len = %d, want 1", len(resp.Results))
	}
	resp = engine.Search(context.Background(), reactQuery, models.SearchOptions{UserID: "u2"})
	for _, r := range resp.Results {
		if r.ID != "other" {
			t.Errorf("u2 saw %s", r.ID)
		}
	}
}

func TestEngine_SearchContext(t *testing.T) {
	engine := NewEngine(newTestIndex(t, testEmbedder()), nil, nil, testConfig(), nil)
	ctxResp := engine.SearchContext(context.Background(), "react framework", "u1", models.ContextOptions{})

	if len(ctxResp.Facts) != 1 || ctxResp.Facts[0].ID != "f1" {
		t.Errorf("facts = %v", resultIDs(ctxResp.Facts))
	}
	if len(ctxResp.Messages) == 0 {
		t.Error("expected message hits")
	}
	for _, r := range ctxResp.Messages {
		if r.Collection != models.CollectionMessages {
			t.Errorf("message result from %s", r.Collection)
		}
	}
}
