package kpi

import "strings"

// Outcome is the attendance reading of a ShowRecorded outcome text.
type Outcome int

// Outcomes.
const (
	OutcomeUnknown Outcome = iota
	OutcomeShowed
	OutcomeNoShow
)

// OutcomeClassifier maps free outcome text onto an Outcome.
type OutcomeClassifier func(text string) Outcome

// ClassifyOutcome reads attendance by substring: text containing "show"
// but not "no" showed; text containing both is a no-show. Matching is case
// insensitive, so "Not interested, showed" reads as a no-show.
func ClassifyOutcome(text string) Outcome {
	s := strings.ToLower(text)
	if !strings.Contains(s, "show") {
		return OutcomeUnknown
	}
	if strings.Contains(s, "no") {
		return OutcomeNoShow
	}
	return OutcomeShowed
}
