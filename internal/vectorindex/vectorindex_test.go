package vectorindex

import (
	"fmt"
	"math"
	"testing"
)

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 0},
		{"unit-apart", []float32{0, 0}, []float32{1, 0}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SquaredL2(tt.a, tt.b); got != tt.want {
				t.Errorf("SquaredL2 = %v, want %v", got, tt.want)
			}
		})
	}
}

func testIndex(t *testing.T, newIdx func(dim int) Index) {
	idx := newIdx(4)

	slotA, err := idx.Add([]float32{1, 0, 0, 0})
	if err != nil {
		t.Fatalf("Add a: %v", err)
	}
	slotB, err := idx.Add([]float32{0, 1, 0, 0})
	if err != nil {
		t.Fatalf("Add b: %v", err)
	}
	if slotA != 0 || slotB != 1 {
		t.Fatalf("slots = %d, %d, want 0, 1", slotA, slotB)
	}
	if idx.Count() != 2 {
		t.Fatalf("Count = %d, want 2", idx.Count())
	}

	matches, err := idx.Search([]float32{1, 0, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].Slot != slotA {
		t.Fatalf("Search top = %v, want slot %d", matches, slotA)
	}
	if matches[0].Distance != 0 {
		t.Errorf("exact match distance = %v, want 0", matches[0].Distance)
	}

	if _, err := idx.Add([]float32{1, 2}); err == nil {
		t.Fatal("Add with wrong dimension: expected error")
	}

	idx.Reset()
	if idx.Count() != 0 {
		t.Fatalf("Count after Reset = %d, want 0", idx.Count())
	}
	matches, err = idx.Search([]float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search after Reset: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("Search after Reset = %v, want empty", matches)
	}
}

func TestFlat(t *testing.T) {
	testIndex(t, func(dim int) Index { return NewFlat(dim) })
}

func TestHNSW(t *testing.T) {
	testIndex(t, func(dim int) Index { return NewHNSW(HNSWConfig{Dim: dim}) })
}

func TestHNSWRecall(t *testing.T) {
	const dim = 8
	idx := NewHNSW(HNSWConfig{Dim: dim, EfSearch: 64})
	vecs := make([][]float32, 200)
	for i := range vecs {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(math.Sin(float64(i*dim + j)))
		}
		vecs[i] = v
		if _, err := idx.Add(v); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}

	target := 37
	matches, err := idx.Search(vecs[target], 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Slot != target {
		t.Errorf("nearest neighbor of vecs[%d] = slot %d, want %d", target, matches[0].Slot, target)
	}
	if matches[0].Distance > 1e-4 {
		t.Errorf("self-distance = %v, want ~0", matches[0].Distance)
	}
}

func BenchmarkFlatSearch(b *testing.B) {
	idx := NewFlat(8)
	for i := 0; i < 1000; i++ {
		v := make([]float32, 8)
		for j := range v {
			v[j] = float32(i%7) / float32(j+1)
		}
		_, _ = idx.Add(v)
	}
	query := make([]float32, 8)
	for i := range query {
		query[i] = 0.5
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(query, 10)
	}
}

func TestDimensionErrorMessage(t *testing.T) {
	idx := NewFlat(3)
	_, err := idx.Add([]float32{1, 2})
	if err == nil {
		t.Fatal("expected error")
	}
	want := fmt.Sprintf("vectorindex: dimension mismatch: got %d, want %d", 2, 3)
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}
