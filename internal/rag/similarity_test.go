package rag

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"scaled", []float64{1, 1}, []float64{5, 5}, 1},
		{"truncated to shorter", []float64{1, 0, 99}, []float64{1, 0}, 1},
		{"zero vector", []float64{0, 0}, []float64{1, 2}, 0},
		{"zero after truncation", []float64{0, 0, 5}, []float64{1, 1}, 0},
		{"empty", nil, []float64{1}, 0},
		{"both empty", nil, nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, Cosine(tc.a, tc.b), 1e-12)
		})
	}
}

func TestCosine_Bounds(t *testing.T) {
	t.Parallel()

	vecs := [][]float64{
		{1e-300, 1e-300},
		{1e300, -1e300},
		{0.1, 0.2, 0.3},
		{-3, 4},
		{math.MaxFloat64 / 4, 1},
	}
	for _, a := range vecs {
		for _, b := range vecs {
			got := Cosine(a, b)
			assert.False(t, math.IsNaN(got), "Cosine(%v, %v) is NaN", a, b)
			assert.GreaterOrEqual(t, got, -1.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	}
}

func TestCompareScored_TieBreak(t *testing.T) {
	t.Parallel()

	base := ScoredChunk{Score: 0.5}
	older := base
	older.DocumentID = "z"
	newer := base
	newer.CreatedAt = older.CreatedAt.Add(1)
	newer.DocumentID = "a"

	assert.Negative(t, compareScored(older, newer), "older chunk must rank first on equal score")

	docA, docB := base, base
	docA.DocumentID, docB.DocumentID = "a", "b"
	assert.Negative(t, compareScored(docA, docB))

	idx0, idx1 := base, base
	idx1.ChunkIndex = 1
	assert.Negative(t, compareScored(idx0, idx1))

	high := base
	high.Score = 0.9
	assert.Negative(t, compareScored(high, newer), "higher score ranks first")
}
