package domain

import (
	"encoding/base64"
	"time"
)

// Entry is a registered piece of text with its semantic fingerprint.
type Entry struct {
	ID          string
	Text        string
	Fingerprint []float32
	CreatedAt   time.Time
}

// Candidate returns the entry in the shape consumed by a Matcher.
func (e Entry) Candidate() Candidate {
	return Candidate{ID: e.ID, Fingerprint: e.Fingerprint}
}

type Candidate struct {
	ID          string
	Fingerprint []float32
}

// Outcome classifies the result of scanning a candidate set.
type Outcome int

const (
	// OutcomeEmpty means there was nothing to scan.
	OutcomeEmpty Outcome = iota
	// OutcomeBelowThreshold means the best candidate scored under the threshold.
	OutcomeBelowThreshold
	// OutcomeAccepted means the best candidate met the threshold.
	OutcomeAccepted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeBelowThreshold:
		return "below_threshold"
	case OutcomeAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// Selection is the result of a best-match scan. ID and Score describe the best
// candidate seen and are zero for OutcomeEmpty.
type Selection struct {
	Outcome Outcome
	ID      string
	Score   float64
	Scanned int
}

// Accepted reports whether the selection produced a match.
func (s Selection) Accepted() bool {
	return s.Outcome == OutcomeAccepted
}

// MatchResult is the assembled answer to a retrieval request.
type MatchResult struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
	Score        float64   `json:"score"`
	Artifact     []byte    `json:"-"`
	ArtifactType string    `json:"-"`
}

// DataURL returns the artifact as a base64 data URL.
func (m MatchResult) DataURL() string {
	contentType := m.ArtifactType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(m.Artifact)
}

// SchemaInfo describes what a store was populated with.
type SchemaInfo struct {
	Version   int    `json:"version"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}
