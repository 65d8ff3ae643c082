package embedding

import (
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	// touching a makes b the least recently used entry
	c.Get("a")
	c.Set("c", []float32{6})
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestEmbeddingCache_copies(t *testing.T) {
	c := NewEmbeddingCache(4)
	in := []float32{1, 2}
	c.Set("k", in)
	in[0] = 99

	got, _ := c.Get("k")
	if got[0] != 1 {
		t.Errorf("cache aliased caller slice: %v", got)
	}
	got[1] = 42
	again, _ := c.Get("k")
	if again[1] != 2 {
		t.Errorf("cache returned aliased slice: %v", again)
	}
}

func TestEmbeddingCache_caseSensitiveKeys(t *testing.T) {
	c := NewEmbeddingCache(4)
	c.Set("React", []float32{1})
	if _, ok := c.Get("react"); ok {
		t.Error("keys must be case-sensitive")
	}
}

func TestEmbeddingCache_Stats(t *testing.T) {
	c := NewEmbeddingCache(0)
	c.Get("x")
	c.Set("x", []float32{1})
	c.Get("x")
	c.Get("x")
	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Size != 1 || s.Capacity != DefaultCacheSize {
		t.Errorf("Stats() = %+v", s)
	}
}
