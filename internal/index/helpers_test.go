package index

import (
	"context"
	"testing"
	"time"

	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/models"
)

const (
	reactQuestion = "How do I speed up React?"
	reactAnswer   = "Use React.memo and code splitting to optimize performance."
	reactQuery    = "improving React app speed"
)

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// reactEmbedder places the React messages and the query close together and
// everything else elsewhere.
func reactEmbedder() *embedding.MockEmbedder {
	m := embedding.NewMockEmbedder(4)
	m.SetVector(reactQuestion, []float32{0.9, 0.3, 0, 0})
	m.SetVector(reactAnswer, []float32{0.7, 0.6, 0.1, 0})
	m.SetVector(reactQuery, []float32{1, 0, 0, 0})
	m.SetVector("making the frontend faster", []float32{0.95, 0.2, 0, 0})
	m.SetVector("my cat likes tuna", []float32{0, 0, 0, 1})
	return m
}

func msg(id, user, content string, age time.Duration) *models.Document {
	return &models.Document{
		ID:         id,
		UserID:     user,
		Collection: models.CollectionMessages,
		Content:    content,
		CreatedAt:  base.Add(-age),
	}
}

func newMessages(t *testing.T, docs ...*models.Document) *Collection {
	t.Helper()
	c := NewCollection(models.CollectionMessages, reactEmbedder(), 4, nil)
	for _, d := range docs {
		if err := c.IndexDocument(context.Background(), d, true); err != nil {
			t.Fatalf("IndexDocument(%s): %v", d.ID, err)
		}
	}
	return c
}

func ids(results []*models.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}
