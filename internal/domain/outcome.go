package domain

import "fmt"

// Outcome is one of the mutually exclusive results a market can settle on.
// OutcomePending is the unresolved sentinel: it is never a valid selection
// for a stake or a resolution.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeA       Outcome = "a"
	OutcomeB       Outcome = "b"
	OutcomeDraw    Outcome = "draw"
)

// ParseOutcome converts a wire string into an Outcome. It accepts only the
// four canonical values.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomePending, OutcomeA, OutcomeB, OutcomeDraw:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

// Selectable reports whether the outcome is a real selection rather than the
// unresolved sentinel.
func (o Outcome) Selectable() bool {
	switch o {
	case OutcomeA, OutcomeB, OutcomeDraw:
		return true
	}
	return false
}
