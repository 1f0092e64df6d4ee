// Package matcher scores fingerprints against each other and picks the best
// match for a query.
package matcher

import (
	"fmt"
	"math"

	"qrmatch/internal/domain"
)

// Similarity returns the cosine similarity of a and b in [-1, 1].
//
// Vectors of different length fail with *domain.DimensionMismatchError.
// Vectors whose similarity is undefined (empty, zero magnitude, non-finite
// components) fail with domain.ErrDegenerateVector, so a NaN never reaches a
// caller comparing scores.
func Similarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &domain.DimensionMismatchError{Expected: len(a), Actual: len(b)}
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty vector", domain.ErrDegenerateVector)
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("%w: zero magnitude", domain.ErrDegenerateVector)
	}

	score := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("%w: non-finite similarity", domain.ErrDegenerateVector)
	}

	// rounding can push parallel vectors marginally past 1
	return math.Max(-1, math.Min(1, score)), nil
}
