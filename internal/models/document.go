// Package models defines core data structures for indexed documents, memory entities, and search results.
package models

import (
	"fmt"
	"time"
)

// Collection names a logical index collection.
type Collection string

const (
	CollectionMessages Collection = "messages"
	CollectionFacts    Collection = "facts"
)

// Collections lists every collection the local index maintains.
var Collections = []Collection{CollectionMessages, CollectionFacts}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionMessages, CollectionFacts:
		return true
	default:
		return false
	}
}

// Document is one message or fact as held by the local search index.
type Document struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Collection Collection        `json:"collection"`
	Content    string            `json:"content"`
	Keywords   []string          `json:"keywords,omitempty"`
	Embedding  []float32         `json:"-"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// MessageDocument builds the indexable document for a chat message.
func MessageDocument(m *Message) *Document {
	return &Document{
		ID:         m.ID,
		UserID:     m.UserID,
		Collection: CollectionMessages,
		Content:    m.Content,
		Metadata: map[string]string{
			"session_id": m.SessionID,
			"role":       string(m.Role),
		},
		CreatedAt: m.CreatedAt,
	}
}

// FactDocument builds the indexable document for a fact. Content is the
// category, key and value joined by spaces.
func FactDocument(f *Fact) *Document {
	return &Document{
		ID:         f.ID,
		UserID:     f.UserID,
		Collection: CollectionFacts,
		Content:    fmt.Sprintf("%s %s %s", f.Category, f.Key, f.Value),
		Metadata: map[string]string{
			"category": f.Category,
			"key":      f.Key,
		},
		CreatedAt: f.CreatedAt,
	}
}
