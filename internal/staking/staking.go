// Package staking converts calibrated probabilities and market odds into
// gated fractional-Kelly stake recommendations.
package staking

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/config"
	"github.com/yourusername/footy-edge/internal/metrics"
	"github.com/yourusername/footy-edge/internal/models"
)

// Engine applies the edge and confidence gates and sizes stakes
type Engine struct {
	cfg    *config.StakingConfig
	logger *logrus.Logger
}

// NewEngine creates a new staking engine
func NewEngine(cfg *config.StakingConfig, logger *logrus.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// Edges computes per-outcome edge: model probability minus market-implied
// probability (overround-normalized).
func (e *Engine) Edges(probs models.ProbabilityTriple, odds models.MarketOdds) ([models.NumOutcomes]float64, error) {
	var edges [models.NumOutcomes]float64

	implied, err := odds.ImpliedProbabilities()
	if err != nil {
		return edges, err
	}

	for i := 0; i < models.NumOutcomes; i++ {
		edges[i] = probs[i] - implied[i]
	}
	return edges, nil
}

// Recommend returns a stake recommendation for the best-edge outcome, or nil
// when no outcome passes both gates. A nil recommendation is a valid,
// expected result.
func (e *Engine) Recommend(probs models.ProbabilityTriple, odds models.MarketOdds, confidence float64) (*models.StakeRecommendation, [models.NumOutcomes]float64, error) {
	edges, err := e.Edges(probs, odds)
	if err != nil {
		return nil, edges, err
	}

	if confidence < e.cfg.MinConfidenceThreshold {
		e.logger.WithFields(logrus.Fields{
			"confidence": confidence,
			"threshold":  e.cfg.MinConfidenceThreshold,
		}).Debug("Confidence below threshold, no recommendation")
		return nil, edges, nil
	}

	best := -1
	for i := 0; i < models.NumOutcomes; i++ {
		if edges[i] < e.cfg.MinEdgeThreshold {
			continue
		}
		if best < 0 || edges[i] > edges[best] {
			best = i
		}
	}
	if best < 0 {
		return nil, edges, nil
	}

	outcome := models.Outcome(best)
	stake := e.kellyFraction(probs[best], odds.Odds(outcome))
	if stake.IsZero() {
		return nil, edges, nil
	}

	rec := &models.StakeRecommendation{
		Outcome:       outcome,
		Edge:          edges[best],
		OfferedOdds:   odds.Odds(outcome),
		StakeFraction: stake,
	}

	metrics.StakeRecommendationsTotal.Inc()
	e.logger.WithFields(logrus.Fields{
		"outcome":        outcome.String(),
		"edge":           rec.Edge,
		"stake_fraction": rec.StakeFraction,
	}).Debug("Stake recommendation emitted")

	return rec, edges, nil
}

// kellyFraction sizes the stake as a bankroll fraction.
//
// Kelly criterion: f = (b*p - q) / b with b = decimal odds - 1, p the model
// probability, q = 1 - p. The full-Kelly fraction is scaled down by the
// configured fraction and capped at max_stake_fraction regardless of edge.
func (e *Engine) kellyFraction(probability float64, offeredOdds decimal.Decimal) decimal.Decimal {
	odds, _ := offeredOdds.Float64()
	b := odds - 1.0
	if b <= 0 {
		return decimal.Zero
	}

	p := probability
	q := 1.0 - p
	kelly := (b*p - q) / b
	if kelly <= 0 {
		return decimal.Zero
	}

	fraction := kelly * e.cfg.KellyFraction
	if fraction > e.cfg.MaxStakeFraction {
		fraction = e.cfg.MaxStakeFraction
	}

	return decimal.NewFromFloat(fraction).Round(6)
}
