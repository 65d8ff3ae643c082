package keyword

import "sync"

// InvertedIndex maps tokens to the set of document ids containing them.
type InvertedIndex struct {
	mu       sync.RWMutex
	postings map[string]map[string]struct{}
	docs     map[string][]string
}

// NewInvertedIndex returns an empty index.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		postings: make(map[string]map[string]struct{}),
		docs:     make(map[string][]string),
	}
}

// Add indexes tokens for id, replacing whatever id was indexed with before.
func (ix *InvertedIndex) Add(id string, tokens []string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeLocked(id)
	for _, t := range tokens {
		set, ok := ix.postings[t]
		if !ok {
			set = make(map[string]struct{})
			ix.postings[t] = set
		}
		set[id] = struct{}{}
	}
	ix.docs[id] = append([]string(nil), tokens...)
}

// Remove drops id from the index.
func (ix *InvertedIndex) Remove(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(id)
}

func (ix *InvertedIndex) removeLocked(id string) {
	tokens, ok := ix.docs[id]
	if !ok {
		return
	}
	for _, t := range tokens {
		if set, ok := ix.postings[t]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(ix.postings, t)
			}
		}
	}
	delete(ix.docs, id)
}

// Candidates returns, for every document sharing at least one token with tokens,
// the number of distinct tokens it matched.
func (ix *InvertedIndex) Candidates(tokens []string) map[string]int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make(map[string]int)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		for id := range ix.postings[t] {
			out[id]++
		}
	}
	return out
}

// Tokens returns the tokens indexed for id.
func (ix *InvertedIndex) Tokens(id string) ([]string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	t, ok := ix.docs[id]
	if !ok {
		return nil, false
	}
	return append([]string(nil), t...), true
}

// Len returns the number of indexed documents.
func (ix *InvertedIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Terms returns the number of distinct tokens.
func (ix *InvertedIndex) Terms() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings)
}
