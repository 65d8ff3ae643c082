package search

import (
	"testing"
	"time"

	"github.com/hyperjump/kioku/internal/models"
)

func result(id string, score float64, src models.Source, prov models.Provenance) *models.SearchResult {
	return &models.SearchResult{ID: id, Score: score, Sources: []models.Source{src}, Provenance: prov, CreatedAt: base}
}

func TestMerge(t *testing.T) {
	kw := []*models.SearchResult{
		result("a", 0.5, models.SourceLocalKeyword, models.ProvenanceKeyword),
		result("b", 1.0, models.SourceLocalKeyword, models.ProvenanceKeyword),
	}
	sem := []*models.SearchResult{
		result("a", 0.9, models.SourceLocalSemantic, models.ProvenanceSemantic),
		result("c", 0.6, models.SourceLocalSemantic, models.ProvenanceSemantic),
	}

	got := Merge(0, kw, sem)
	if ids := resultIDs(got); len(ids) != 3 || ids[0] != "b" || ids[1] != "a" || ids[2] != "c" {
		t.Fatalf("order = %v", ids)
	}
	a := got[1]
	if a.Score != 0.9 {
		t.Errorf("a score = %f, want 0.9", a.Score)
	}
	if a.Provenance != models.ProvenanceHybrid {
		t.Errorf("a provenance = %s", a.Provenance)
	}
	if len(a.Sources) != 2 {
		t.Errorf("a sources = %v", a.Sources)
	}
	if got[0].Provenance != models.ProvenanceKeyword {
		t.Errorf("b provenance = %s", got[0].Provenance)
	}
	for i, r := range got {
		if r.Rank != i+1 {
			t.Errorf("%s rank = %d", r.ID, r.Rank)
		}
	}

	// inputs untouched
	if kw[0].Score != 0.5 || len(kw[0].Sources) != 1 || kw[0].Rank != 0 {
		t.Errorf("input mutated: %+v", kw[0])
	}
}

func TestMerge_limitAndTies(t *testing.T) {
	older := result("x", 0.5, models.SourceRemote, models.ProvenanceKeyword)
	older.CreatedAt = base.Add(-time.Hour)
	newer := result("y", 0.5, models.SourceRemote, models.ProvenanceKeyword)

	got := Merge(1, []*models.SearchResult{older, newer})
	if len(got) != 1 || got[0].ID != "y" {
		t.Errorf("got %v, want [y]", resultIDs(got))
	}
}

func TestMerge_empty(t *testing.T) {
	got := Merge(10)
	if got == nil || len(got) != 0 {
		t.Errorf("Merge() = %v, want empty non-nil", got)
	}
	got = Merge(10, nil, []*models.SearchResult{nil})
	if len(got) != 0 {
		t.Errorf("Merge(nil) = %v", got)
	}
}
