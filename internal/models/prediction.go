package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProbabilityTolerance is the allowed deviation of a probability triple from 1
const ProbabilityTolerance = 1e-6

// ProbabilityTriple holds home/draw/away probabilities in outcome order
type ProbabilityTriple [NumOutcomes]float64

// Sum returns the total mass of the triple
func (p ProbabilityTriple) Sum() float64 {
	return p[OutcomeHome] + p[OutcomeDraw] + p[OutcomeAway]
}

// Normalize rescales the triple to sum to exactly 1. Non-positive mass is
// replaced by the uniform distribution rather than propagated.
func (p ProbabilityTriple) Normalize() ProbabilityTriple {
	sum := p.Sum()
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		u := 1.0 / float64(NumOutcomes)
		return ProbabilityTriple{u, u, u}
	}
	var out ProbabilityTriple
	for i := range p {
		out[i] = p[i] / sum
	}
	return out
}

// IsNormalized reports whether the triple sums to 1 within tolerance
func (p ProbabilityTriple) IsNormalized() bool {
	return math.Abs(p.Sum()-1.0) <= ProbabilityTolerance
}

// Max returns the most likely outcome and its probability
func (p ProbabilityTriple) Max() (Outcome, float64) {
	best := OutcomeHome
	for _, o := range []Outcome{OutcomeDraw, OutcomeAway} {
		if p[o] > p[best] {
			best = o
		}
	}
	return best, p[best]
}

// StakeRecommendation is an advised position on one outcome. Its absence on a
// PredictionResult is a valid result, not an error.
type StakeRecommendation struct {
	Outcome       Outcome         `json:"outcome"`
	Edge          float64         `json:"edge"`
	OfferedOdds   decimal.Decimal `json:"offered_odds"`
	StakeFraction decimal.Decimal `json:"stake_fraction"`
}

// PredictionResult is the pipeline's outbound value object. It is created
// fresh per request and never mutated afterwards.
type PredictionResult struct {
	FixtureID            uuid.UUID            `json:"fixture_id"`
	Probabilities        ProbabilityTriple    `json:"probabilities"`
	Confidence           float64              `json:"confidence"`
	ContributingModelIDs []uuid.UUID          `json:"contributing_model_ids"`
	EdgeVsMarket         [NumOutcomes]float64 `json:"edge_vs_market"`
	Recommendation       *StakeRecommendation `json:"recommendation,omitempty"`
	MissingGroups        []FeatureGroup       `json:"missing_groups,omitempty"`
	PredictedAt          time.Time            `json:"predicted_at"`
}
