package types

import "time"

// RecommendationKind enumerates the possible outcomes of the run-now analysis.
type RecommendationKind int

const (
	// RunNow means the next three hours are all cheap enough to start immediately.
	RunNow RecommendationKind = iota
	// RunAtTime means a specific later start time today is recommended.
	RunAtTime
	// RunTomorrow means no acceptable window remains today but tomorrow has some.
	RunTomorrow
	// NoGoodWindow means neither today nor tomorrow has an acceptable window.
	NoGoodWindow
	// InsufficientData means fewer than three hours remain today to analyze.
	InsufficientData
)

// Recommendation is the outcome of the run-now analysis. At is set for
// RunAtTime and Tomorrow holds up to three window start times for RunTomorrow.
type Recommendation struct {
	Kind     RecommendationKind
	At       time.Time
	Tomorrow []time.Time
}
