// Package models defines the core domain types shared across the pipeline.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fixture represents a scheduled football match
type Fixture struct {
	ID       uuid.UUID `db:"id" json:"id" validate:"required,uuid4"`
	HomeTeam string    `db:"home_team" json:"home_team" validate:"required"`
	AwayTeam string    `db:"away_team" json:"away_team" validate:"required"`
	League   string    `db:"league" json:"league" validate:"required"`
	Kickoff  time.Time `db:"kickoff" json:"kickoff" validate:"required"`
}

// Key returns a stable human-readable identifier for logging
func (f *Fixture) Key() string {
	return fmt.Sprintf("%s|%s v %s", f.League, f.HomeTeam, f.AwayTeam)
}

// Outcome identifies one leg of the 1X2 market
type Outcome int

const (
	// OutcomeHome is a home win
	OutcomeHome Outcome = iota
	// OutcomeDraw is a draw
	OutcomeDraw
	// OutcomeAway is an away win
	OutcomeAway
)

// NumOutcomes is the size of the 1X2 market
const NumOutcomes = 3

// String returns the market label for the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeHome:
		return "home"
	case OutcomeDraw:
		return "draw"
	case OutcomeAway:
		return "away"
	default:
		return "unknown"
	}
}

// MarketOdds holds the offered decimal odds for each 1X2 outcome
type MarketOdds struct {
	Home decimal.Decimal `json:"home" validate:"required"`
	Draw decimal.Decimal `json:"draw" validate:"required"`
	Away decimal.Decimal `json:"away" validate:"required"`
}

// Odds returns the offered odds for a single outcome
func (m MarketOdds) Odds(o Outcome) decimal.Decimal {
	switch o {
	case OutcomeHome:
		return m.Home
	case OutcomeDraw:
		return m.Draw
	default:
		return m.Away
	}
}

// ImpliedProbabilities converts offered odds into market-implied probabilities,
// normalizing away the bookmaker overround so the triple sums to 1.
func (m MarketOdds) ImpliedProbabilities() ([NumOutcomes]float64, error) {
	var probs [NumOutcomes]float64
	sum := 0.0
	for i, d := range []decimal.Decimal{m.Home, m.Draw, m.Away} {
		odds, _ := d.Float64()
		if odds <= 1.0 {
			return probs, fmt.Errorf("invalid odds %s for %s: %w", d, Outcome(i), ErrInvalidOdds)
		}
		probs[i] = 1.0 / odds
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// PredictionRequest is the inbound request from the serving layer
type PredictionRequest struct {
	HomeTeam    string     `json:"home_team" validate:"required"`
	AwayTeam    string     `json:"away_team" validate:"required"`
	League      string     `json:"league" validate:"required"`
	RequestedAt time.Time  `json:"requested_at" validate:"required"`
	MarketOdds  MarketOdds `json:"market_odds" validate:"required"`
}
