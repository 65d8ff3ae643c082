package keyword

import (
	"reflect"
	"testing"
)

func TestInvertedIndex_AddCandidates(t *testing.T) {
	ix := NewInvertedIndex()
	ix.Add("a", []string{"react", "speed"})
	ix.Add("b", []string{"react", "memo", "performance"})
	ix.Add("c", []string{"golang"})

	got := ix.Candidates([]string{"react", "speed", "react"})
	want := map[string]int{"a": 2, "b": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Candidates = %v, want %v", got, want)
	}
	if ix.Len() != 3 {
		t.Errorf("Len = %d", ix.Len())
	}
}

func TestInvertedIndex_AddReplaces(t *testing.T) {
	ix := NewInvertedIndex()
	ix.Add("a", []string{"old"})
	ix.Add("a", []string{"new"})

	if got := ix.Candidates([]string{"old"}); len(got) != 0 {
		t.Errorf("stale token still indexed: %v", got)
	}
	if got := ix.Candidates([]string{"new"}); got["a"] != 1 {
		t.Errorf("new token missing: %v", got)
	}
	if ix.Terms() != 1 {
		t.Errorf("Terms = %d, want 1", ix.Terms())
	}
}

func TestInvertedIndex_Remove(t *testing.T) {
	ix := NewInvertedIndex()
	ix.Add("a", []string{"x", "y"})
	ix.Remove("a")
	ix.Remove("missing")
	if ix.Len() != 0 || ix.Terms() != 0 {
		t.Errorf("Len=%d Terms=%d after remove", ix.Len(), ix.Terms())
	}
	if _, ok := ix.Tokens("a"); ok {
		t.Error("Tokens should report missing id")
	}
}
