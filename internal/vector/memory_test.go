package vector

import (
	"math"
	"testing"
)

func TestMemoryStore_AddSearch(t *testing.T) {
	m := NewMemoryStore(3)
	for id, v := range map[string][]float32{
		"a": {1, 0, 0},
		"b": {0.9, 0.1, 0},
		"c": {0, 1, 0},
	} {
		if err := m.Add(id, v); err != nil {
			t.Fatal(err)
		}
	}
	if m.Size() != 3 {
		t.Errorf("Size=%d", m.Size())
	}

	results := m.Search([]float32{1, 0, 0}, 2, 0, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("unexpected order: %+v", results)
	}
}

func TestMemoryStore_threshold(t *testing.T) {
	m := NewMemoryStore(2)
	_ = m.Add("near", []float32{1, 0.1})
	_ = m.Add("far", []float32{0, 1})
	results := m.Search([]float32{1, 0}, 10, 0.5, nil)
	if len(results) != 1 || results[0].ID != "near" {
		t.Errorf("threshold not applied: %+v", results)
	}
}

func TestMemoryStore_filter(t *testing.T) {
	m := NewMemoryStore(2)
	_ = m.Add("mine", []float32{1, 0})
	_ = m.Add("theirs", []float32{1, 0})
	results := m.Search([]float32{1, 0}, 10, 0, func(id string) bool { return id == "mine" })
	if len(results) != 1 || results[0].ID != "mine" {
		t.Errorf("filter not applied: %+v", results)
	}
}

func TestMemoryStore_overwrite(t *testing.T) {
	m := NewMemoryStore(0)
	_ = m.Add("x", []float32{1, 0})
	_ = m.Add("x", []float32{0, 1})
	if m.Size() != 1 {
		t.Errorf("Size=%d, want 1", m.Size())
	}
	v, _ := m.Get("x")
	if v[1] != 1 {
		t.Errorf("vector not overwritten: %v", v)
	}
	if err := m.Add("y", []float32{1, 2, 3}); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestMemoryStore_copies(t *testing.T) {
	m := NewMemoryStore(2)
	in := []float32{1, 2}
	_ = m.Add("x", in)
	in[0] = 9
	v, _ := m.Get("x")
	if v[0] != 1 {
		t.Error("store aliased caller slice")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1},
		{"mismatch", []float32{1}, []float32{1, 0}, 0},
		{"zero", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodec(t *testing.T) {
	in := []float32{0, -1.5, 3.25, float32(math.Inf(1))}
	out := DecodeFloat32s(EncodeFloat32s(nil, in))
	if len(out) != len(in) {
		t.Fatalf("len = %d", len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}
