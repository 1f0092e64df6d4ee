package port

import "qrmatch/internal/domain"

// Matcher selects the single best candidate for a query fingerprint.
// Implementations decide how candidates are searched; callers only see the
// resulting Selection.
type Matcher interface {
	SelectBest(query []float32, candidates []domain.Candidate, threshold float64) (domain.Selection, error)
}
