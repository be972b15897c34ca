package voting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fewshot/distance"
	"github.com/hupe1980/fewshot/store"
)

func newSnapshot(t *testing.T, dim int, embeddings [][]float32, labels []string) *store.Snapshot {
	t.Helper()

	s, err := store.New(dim, 1000)
	require.NoError(t, err)
	for i := range embeddings {
		require.NoError(t, s.Add(embeddings[i], labels[i]))
	}
	return s.Snapshot()
}

func TestPredictEmptyStore(t *testing.T) {
	snap := newSnapshot(t, 2, nil, nil)

	rec := Predict(snap, []float32{1, 0}, 3, 0.6)
	assert.Equal(t, UnknownLabel, rec.Label)
	assert.Equal(t, 0.0, rec.Confidence)
	assert.Empty(t, rec.Scores)
	assert.False(t, rec.IsKnown)

	rec = Predict(nil, []float32{1, 0}, 3, 0.6)
	assert.Equal(t, UnknownLabel, rec.Label)
}

func TestPredictMajorityVote(t *testing.T) {
	// Two apples and one banana; query identical to the first apple.
	snap := newSnapshot(t, 2,
		[][]float32{{1, 0}, {0.8, 0.6}, {0.6, 0.8}},
		[]string{"apple", "apple", "banana"},
	)

	rec := Predict(snap, []float32{1, 0}, 3, 0.6)
	assert.Equal(t, "apple", rec.Label)
	assert.True(t, rec.IsKnown)
	assert.GreaterOrEqual(t, rec.Confidence, 2.0/3.0)

	var sum float64
	for _, score := range rec.Scores {
		sum += score
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Len(t, rec.Scores, 2)
}

func TestPredictScoresListAllKnownLabels(t *testing.T) {
	// "cherry" is known but not among the k=2 neighbors; it must still be
	// listed with score 0.
	snap := newSnapshot(t, 2,
		[][]float32{{1, 0}, {0.98, 0.199}, {-1, 0}},
		[]string{"apple", "apple", "cherry"},
	)

	rec := Predict(snap, []float32{1, 0}, 2, 0.6)
	require.Contains(t, rec.Scores, "cherry")
	assert.Equal(t, 0.0, rec.Scores["cherry"])
	assert.InDelta(t, 1.0, rec.Scores["apple"], 1e-9)
}

func TestPredictKLargerThanStore(t *testing.T) {
	snap := newSnapshot(t, 2, [][]float32{{1, 0}}, []string{"apple"})

	rec := Predict(snap, []float32{1, 0}, 5, 0.6)
	assert.Equal(t, "apple", rec.Label)
	assert.InDelta(t, 1.0, rec.Confidence, 1e-9)
}

func TestPredictConfidenceDecay(t *testing.T) {
	t.Run("FarNearestNeighbor", func(t *testing.T) {
		// Single sample at cosine distance 0.6: score 1.0 decays to 0.4.
		snap := newSnapshot(t, 2, [][]float32{{0.4, 0.9165151}}, []string{"apple"})

		rec := Predict(snap, []float32{1, 0}, 1, 0.6)
		assert.False(t, rec.IsKnown)
		assert.Equal(t, UnknownLabel, rec.Label)
		assert.InDelta(t, 0.4, rec.Confidence, 1e-5)
		// Raw scores are retained for diagnostics.
		assert.InDelta(t, 1.0, rec.Scores["apple"], 1e-9)
	})

	t.Run("BoundaryDistanceNotDecayed", func(t *testing.T) {
		// dot=1, both norms sqrt(2): cosine distance is exactly 0.5,
		// which must not trigger decay.
		snap := newSnapshot(t, 3, [][]float32{{1, 0, 1}}, []string{"apple"})

		rec := Predict(snap, []float32{1, 1, 0}, 1, 0.6)
		assert.InDelta(t, 1.0, rec.Confidence, 1e-6)
		assert.True(t, rec.IsKnown)
		assert.Equal(t, "apple", rec.Label)
	})

	t.Run("CloseNearestNeighborNotDecayed", func(t *testing.T) {
		snap := newSnapshot(t, 2, [][]float32{{0.98, 0.199}}, []string{"apple"})

		rec := Predict(snap, []float32{1, 0}, 1, 0.6)
		assert.InDelta(t, 1.0, rec.Confidence, 1e-6)
	})
}

func TestPredictTieBreaks(t *testing.T) {
	t.Run("MeanDistance", func(t *testing.T) {
		// All distances here are exact in floating point (0.5 via
		// dot=1 over norms sqrt(2)*sqrt(2), 1.0 via orthogonality).
		// zebra: one neighbor at distance 0.5 (sim 0.5).
		// ant: neighbors at distances 0.5 and 1.0 (sims 0.5+0.0=0.5).
		// Equal similarity mass, but zebra's mean distance is smaller,
		// so zebra must win despite ant's lexical priority.
		snap := newSnapshot(t, 3,
			[][]float32{
				{1, 0, 1},
				{0, 1, 1},
				{0, 0, 1},
			},
			[]string{"zebra", "ant", "ant"},
		)

		rec := Predict(snap, []float32{1, 1, 0}, 3, 0.0)
		assert.Equal(t, "zebra", rec.Label)
		assert.Equal(t, 0.5, rec.Scores["zebra"])
		assert.Equal(t, 0.5, rec.Scores["ant"])
	})

	t.Run("Lexical", func(t *testing.T) {
		// Two equidistant single-sample classes: lexical order decides.
		snap := newSnapshot(t, 3,
			[][]float32{{1, 0, 1}, {0, 1, 1}},
			[]string{"beta", "alpha"},
		)

		rec := Predict(snap, []float32{1, 1, 0}, 2, 0.0)
		assert.Equal(t, "alpha", rec.Label)
	})
}

func TestPredictNoSimilarityMass(t *testing.T) {
	// The only neighbor points the opposite way: similarity is negative,
	// so no label can accumulate score.
	snap := newSnapshot(t, 2, [][]float32{{-1, 0}}, []string{"apple"})

	rec := Predict(snap, []float32{1, 0}, 1, 0.6)
	assert.Equal(t, UnknownLabel, rec.Label)
	assert.Equal(t, 0.0, rec.Confidence)
	assert.Equal(t, 0.0, rec.Scores["apple"])
}

func TestPredictConfidenceRange(t *testing.T) {
	embeddings := [][]float32{
		{1, 0}, {0.9, 0.43588989}, {0, 1}, {-0.5, 0.8660254}, {-1, 0},
	}
	labels := []string{"a", "a", "b", "c", "c"}
	snap := newSnapshot(t, 2, embeddings, labels)

	queries := [][]float32{{1, 0}, {0, 1}, {-1, 0}, {0.70710678, 0.70710678}}
	for _, q := range queries {
		rec := Predict(snap, q, 3, 0.6)
		assert.GreaterOrEqual(t, rec.Confidence, 0.0)
		assert.LessOrEqual(t, rec.Confidence, 1.0)

		var sum float64
		for _, score := range rec.Scores {
			sum += score
		}
		if sum != 0 {
			assert.InDelta(t, 1.0, sum, 1e-9)
		}
	}
}

func TestPredictInsertionOrderTieBreak(t *testing.T) {
	// Two identical embeddings with different labels and k=1: the
	// earlier-inserted sample must be selected.
	snap := newSnapshot(t, 2,
		[][]float32{{1, 0}, {1, 0}},
		[]string{"first", "second"},
	)

	rec := Predict(snap, []float32{1, 0}, 1, 0.0)
	assert.Equal(t, "first", rec.Label)
}

func TestCosineAgreesWithDistancePackage(t *testing.T) {
	a := []float32{0.6, 0.8}
	b := []float32{1, 0}
	assert.InDelta(t, float64(distance.Cosine(a, b)), 0.4, 1e-6)
}
