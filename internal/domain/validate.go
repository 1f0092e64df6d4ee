package domain

import (
	"fmt"
	"math"
	"regexp"
	"unicode/utf8"
)

const (
	MaxIDLength     = 100
	MaxTextLength   = 10000
	MaxPromptLength = 1000
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateID checks an entry id against the allowed length and character set.
func ValidateID(id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if len(id) > MaxIDLength {
		return &ValidationError{Field: "id", Reason: fmt.Sprintf("must be at most %d characters", MaxIDLength)}
	}
	if !idPattern.MatchString(id) {
		return &ValidationError{Field: "id", Reason: "may only contain letters, digits, '_' and '-'"}
	}
	return nil
}

// ValidateText checks registered content length, counted in characters.
func ValidateText(text string) error {
	return validateLength("text", text, MaxTextLength)
}

// ValidatePrompt checks a query prompt length, counted in characters.
func ValidatePrompt(prompt string) error {
	return validateLength("prompt", prompt, MaxPromptLength)
}

func validateLength(field, value string, max int) error {
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if n > max {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", max)}
	}
	return nil
}

// ValidateFingerprint rejects vectors that could never be compared: empty,
// zero magnitude, or containing NaN or infinity.
func ValidateFingerprint(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty fingerprint", ErrDegenerateVector)
	}
	var norm float64
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite component at %d", ErrDegenerateVector, i)
		}
		norm += f * f
	}
	if norm == 0 {
		return fmt.Errorf("%w: zero magnitude", ErrDegenerateVector)
	}
	return nil
}
