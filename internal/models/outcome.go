package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchResult is the resolved final outcome of a fixture
type MatchResult struct {
	FixtureID  uuid.UUID `db:"fixture_id" json:"fixture_id"`
	Outcome    Outcome   `db:"outcome" json:"outcome"`
	HomeGoals  int       `db:"home_goals" json:"home_goals"`
	AwayGoals  int       `db:"away_goals" json:"away_goals"`
	ResolvedAt time.Time `db:"resolved_at" json:"resolved_at"`
}

// ResolvedSample pairs a model's prediction with the observed outcome.
// The calibration controller's rolling window is built from these.
type ResolvedSample struct {
	ModelID    uuid.UUID         `db:"model_id" json:"model_id"`
	FixtureID  uuid.UUID         `db:"fixture_id" json:"fixture_id"`
	Predicted  ProbabilityTriple `db:"predicted" json:"predicted"`
	Observed   Outcome           `db:"observed" json:"observed"`
	ResolvedAt time.Time         `db:"resolved_at" json:"resolved_at"`
}

// BrierContribution returns the multi-class Brier score of this sample:
// squared error between the predicted triple and the one-hot outcome.
func (s *ResolvedSample) BrierContribution() float64 {
	score := 0.0
	for i := 0; i < NumOutcomes; i++ {
		target := 0.0
		if Outcome(i) == s.Observed {
			target = 1.0
		}
		diff := s.Predicted[i] - target
		score += diff * diff
	}
	return score
}
