package matcher

import (
	"fmt"
	"slices"
	"strings"

	"qrmatch/internal/domain"
)

// LinearScan is the exhaustive Matcher: every candidate is scored once.
//
// Candidates are visited in ascending ID order and only a strictly greater
// score replaces the current best, so among equal top scores the smallest ID
// wins regardless of the order the store returned rows in.
type LinearScan struct{}

func NewLinearScan() *LinearScan {
	return &LinearScan{}
}

// SelectBest scores query against every candidate and applies threshold
// inclusively (best >= threshold is accepted).
func (m *LinearScan) SelectBest(query []float32, candidates []domain.Candidate, threshold float64) (domain.Selection, error) {
	if err := domain.ValidateFingerprint(query); err != nil {
		return domain.Selection{}, fmt.Errorf("query fingerprint: %w", err)
	}

	if len(candidates) == 0 {
		return domain.Selection{Outcome: domain.OutcomeEmpty}, nil
	}

	ordered := slices.Clone(candidates)
	slices.SortFunc(ordered, func(a, b domain.Candidate) int {
		return strings.Compare(a.ID, b.ID)
	})

	best := domain.Selection{Outcome: domain.OutcomeBelowThreshold}
	for i, c := range ordered {
		score, err := Similarity(query, c.Fingerprint)
		if err != nil {
			return domain.Selection{}, fmt.Errorf("candidate %s: %w", c.ID, err)
		}
		if i == 0 || score > best.Score {
			best.ID = c.ID
			best.Score = score
		}
		best.Scanned++
	}

	if best.Score >= threshold {
		best.Outcome = domain.OutcomeAccepted
	}
	return best, nil
}
