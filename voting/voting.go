// Package voting implements the weighted nearest-neighbor vote that turns a
// query embedding into a Recognition. The algorithm is stateless: it runs
// against a read snapshot of the sample store and owns no data of its own.
package voting

import (
	"math"
	"sort"

	"github.com/hupe1980/fewshot/distance"
)

// UnknownLabel is the sentinel label reported when a prediction does not
// reach the confidence threshold, or when the store holds no samples.
const UnknownLabel = "unknown"

// Snapshot is a read view of the sample store.
// Implementations must not change while a vote is in progress.
type Snapshot interface {
	Len() int
	Embedding(i int) []float32
	Label(i int) string
	KnownLabels() []string
}

// Recognition is the result of a vote.
type Recognition struct {
	// Label is the winning class, or UnknownLabel when the vote did not
	// reach the confidence threshold.
	Label string
	// Confidence is the winning score after decay, in [0,1].
	Confidence float64
	// Scores maps every known label to its normalized similarity mass.
	// The values sum to 1 whenever the map is non-empty.
	Scores map[string]float64
	// IsKnown reports whether Confidence reached the threshold.
	IsKnown bool
}

// Unknown returns the result used for empty or unfit stores.
func Unknown() Recognition {
	return Recognition{
		Label:      UnknownLabel,
		Confidence: 0,
		Scores:     map[string]float64{},
		IsKnown:    false,
	}
}

// Predict votes over the k nearest samples to query.
//
// Distances are cosine distances; votes are weighted by similarity
// (1 - distance) and normalized over the selected neighbors, so the scores
// of all known labels sum to 1. Equal scores are broken by smaller mean
// neighbor distance, then by lexical label order. When the single nearest
// neighbor is farther than 0.5, the winning score is multiplied by
// (1 - nearest distance) to penalize predictions without a close match.
func Predict(snap Snapshot, query []float32, k int, threshold float64) Recognition {
	if snap == nil || snap.Len() == 0 || k <= 0 {
		return Unknown()
	}

	n := snap.Len()
	dists := make([]float64, n)
	for i := 0; i < n; i++ {
		dists[i] = float64(distance.Cosine(query, snap.Embedding(i)))
	}

	// Stable sort keeps insertion order for equal distances, which makes
	// neighbor selection deterministic.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dists[order[a]] < dists[order[b]]
	})

	kEff := k
	if n < kEff {
		kEff = n
	}
	neighbors := order[:kEff]
	nearestDist := dists[neighbors[0]]

	var simSum float64
	simMass := make(map[string]float64, kEff)
	distSum := make(map[string]float64, kEff)
	hits := make(map[string]int, kEff)
	for _, i := range neighbors {
		sim := 1 - dists[i]
		label := snap.Label(i)
		simSum += sim
		simMass[label] += sim
		distSum[label] += dists[i]
		hits[label]++
	}

	known := snap.KnownLabels()
	scores := make(map[string]float64, len(known))
	for _, label := range known {
		if simSum > 0 {
			scores[label] = simMass[label] / simSum
		} else {
			scores[label] = 0
		}
	}

	best := ""
	bestScore := math.Inf(-1)
	bestMeanDist := math.Inf(1)
	for _, label := range known { // sorted, so lexical tie-break falls out
		score := scores[label]
		meanDist := math.Inf(1)
		if hits[label] > 0 {
			meanDist = distSum[label] / float64(hits[label])
		}
		if score > bestScore || (score == bestScore && meanDist < bestMeanDist) {
			best = label
			bestScore = score
			bestMeanDist = meanDist
		}
	}

	confidence := scores[best]
	if nearestDist > 0.5 {
		confidence *= 1 - nearestDist
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	isKnown := confidence >= threshold
	label := best
	if !isKnown {
		label = UnknownLabel
	}

	return Recognition{
		Label:      label,
		Confidence: confidence,
		Scores:     scores,
		IsKnown:    isKnown,
	}
}
