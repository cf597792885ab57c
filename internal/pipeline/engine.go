// Package pipeline composes feature assembly, ensemble inference,
// calibration, blending and staking into the prediction serving path.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/cache"
	"github.com/yourusername/footy-edge/internal/calibration"
	"github.com/yourusername/footy-edge/internal/config"
	"github.com/yourusername/footy-edge/internal/ensemble"
	"github.com/yourusername/footy-edge/internal/feature"
	"github.com/yourusername/footy-edge/internal/metrics"
	"github.com/yourusername/footy-edge/internal/models"
	"github.com/yourusername/footy-edge/internal/staking"
	"github.com/yourusername/footy-edge/internal/store"
)

// pendingPrediction holds the raw per-model outputs for a fixture until its
// outcome resolves, so calibration can pair prediction with observation.
type pendingPrediction struct {
	modelProbs  map[uuid.UUID]models.ProbabilityTriple
	predictedAt time.Time
}

// Engine is the prediction pipeline
type Engine struct {
	cfg       *config.InferenceConfig
	fixtures  store.FixtureStore
	outcomes  store.OutcomeStore
	assembler *feature.Assembler
	ensemble  *ensemble.Engine
	calib     *calibration.Controller
	staking   *staking.Engine
	snapshots *cache.SnapshotCache
	logger    *logrus.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]pendingPrediction

	now func() time.Time
}

// New creates the prediction pipeline. The snapshot cache is optional.
func New(
	cfg *config.InferenceConfig,
	st store.Store,
	assembler *feature.Assembler,
	ens *ensemble.Engine,
	calib *calibration.Controller,
	stake *staking.Engine,
	snapshots *cache.SnapshotCache,
	logger *logrus.Logger,
) *Engine {
	return &Engine{
		cfg:       cfg,
		fixtures:  st,
		outcomes:  st,
		assembler: assembler,
		ensemble:  ens,
		calib:     calib,
		staking:   stake,
		snapshots: snapshots,
		logger:    logger,
		pending:   make(map[uuid.UUID]pendingPrediction),
		now:       time.Now,
	}
}

// Predict runs the full pipeline for one request within the configured
// latency budget. Degraded sources shrink the feature set rather than
// failing the request; only a fully unavailable ensemble is an error.
func (e *Engine) Predict(ctx context.Context, req *models.PredictionRequest) (*models.PredictionResult, error) {
	start := e.now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout())
	defer cancel()

	defer func() {
		metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	}()

	fixture, err := e.fixtures.FindFixture(ctx, req.HomeTeam, req.AwayTeam, req.League)
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues("fixture_not_found").Inc()
		return nil, fmt.Errorf("fixture %s v %s (%s): %w", req.HomeTeam, req.AwayTeam, req.League, models.ErrNotFound)
	}

	if cached := e.cachedResult(fixture.ID, req.MarketOdds); cached != nil {
		metrics.PredictionsTotal.WithLabelValues("cache_hit").Inc()
		return cached, nil
	}

	fv, err := e.assembler.Assemble(ctx, fixture.ID)
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("assembling features for fixture %s: %w", fixture.ID, err)
	}

	if fv.Completeness.PresentCount() < e.cfg.MinCompletenessGroups {
		metrics.PredictionsTotal.WithLabelValues("insufficient_data").Inc()
		return nil, fmt.Errorf("only %d of %d feature groups present for fixture %s: %w",
			fv.Completeness.PresentCount(), len(models.AllFeatureGroups), fixture.ID, models.ErrInsufficientData)
	}

	base, secondary := e.ensemble.Infer(ctx, fv)
	if !base.Available && !secondary.Available {
		metrics.PredictionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("base: %s; secondary: %s: %w", base.Reason, secondary.Reason, models.ErrInferenceFailed)
	}

	probs, agreement := e.combine(base, secondary)

	confidence := e.confidence(fv, agreement)

	rec, edges, err := e.staking.Recommend(probs, req.MarketOdds, confidence)
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("staking for fixture %s: %w", fixture.ID, err)
	}

	result := &models.PredictionResult{
		FixtureID:            fixture.ID,
		Probabilities:        probs,
		Confidence:           confidence,
		ContributingModelIDs: contributingIDs(base, secondary),
		EdgeVsMarket:         edges,
		Recommendation:       rec,
		MissingGroups:        fv.Completeness.Missing(),
		PredictedAt:          start,
	}

	e.recordPending(fixture.ID, base, secondary, start)
	e.cacheResult(fixture.ID, req.MarketOdds, result)

	metrics.PredictionsTotal.WithLabelValues("success").Inc()
	e.logger.WithFields(logrus.Fields{
		"fixture":        fixture.Key(),
		"confidence":     confidence,
		"missing_groups": len(result.MissingGroups),
		"recommended":    rec != nil,
	}).Info("Prediction served")

	return result, nil
}

// combine calibrates each available path and blends them. Calibration always
// applies per path (identity before the curve exists); the blend weight is
// forced to zero whenever the secondary path did not produce a candidate.
func (e *Engine) combine(base, secondary ensemble.Candidate) (models.ProbabilityTriple, float64) {
	if !base.Available {
		// Base artifact loaded at startup, so this is a per-request
		// failure (schema drift, timeout). Serve the secondary alone.
		calSec, _ := e.calib.Calibrate(secondary.ModelID, secondary.Probabilities)
		return calSec, 1.0
	}

	calBase, _ := e.calib.Calibrate(base.ModelID, base.Probabilities)
	if !secondary.Available {
		return calBase, 1.0
	}

	calSec, _ := e.calib.Calibrate(secondary.ModelID, secondary.Probabilities)
	w := e.calib.Weight(base.ModelID, secondary.ModelID, true)
	blended := calibration.Blend(calBase, calSec, w.Weight)
	return blended, calibration.Agreement(calBase, calSec)
}

// confidence combines calibration depth, cross-model agreement and feature
// completeness into a single [0,1] figure.
func (e *Engine) confidence(fv *models.FeatureVector, agreement float64) float64 {
	_, n := e.calib.BrierScore(e.ensemble.BaseModelID())
	sampleFactor := 1.0
	if min := e.calib.MinSamples(); min > 0 && n < min {
		sampleFactor = float64(n) / float64(min)
	}

	completeness := float64(fv.Completeness.PresentCount()) / float64(len(models.AllFeatureGroups))

	c := sampleFactor * agreement * completeness
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

// Resolve records a fixture's final result, feeds every contributing model's
// calibration window and invalidates the cached snapshot.
func (e *Engine) Resolve(ctx context.Context, result *models.MatchResult) error {
	if err := e.outcomes.WriteResult(ctx, result); err != nil {
		return fmt.Errorf("persisting result for fixture %s: %w", result.FixtureID, err)
	}

	e.mu.Lock()
	pend, ok := e.pending[result.FixtureID]
	delete(e.pending, result.FixtureID)
	e.mu.Unlock()

	if !ok {
		e.logger.WithField("fixture_id", result.FixtureID).Debug("Result resolved with no pending prediction")
		return nil
	}

	for modelID, probs := range pend.modelProbs {
		sample := &models.ResolvedSample{
			ModelID:    modelID,
			FixtureID:  result.FixtureID,
			Predicted:  probs,
			Observed:   result.Outcome,
			ResolvedAt: result.ResolvedAt,
		}
		if err := e.calib.AddResolved(ctx, sample); err != nil {
			return fmt.Errorf("feeding calibration for model %s: %w", modelID, err)
		}
	}

	if e.snapshots != nil {
		e.snapshots.Clear()
	}

	e.logger.WithFields(logrus.Fields{
		"fixture_id": result.FixtureID,
		"outcome":    result.Outcome.String(),
		"models":     len(pend.modelProbs),
	}).Info("Outcome resolved and calibration updated")

	return nil
}

// recordPending stows each contributing model's raw output until resolution
func (e *Engine) recordPending(fixtureID uuid.UUID, base, secondary ensemble.Candidate, at time.Time) {
	probs := make(map[uuid.UUID]models.ProbabilityTriple, 2)
	if base.Available {
		probs[base.ModelID] = base.Probabilities
	}
	if secondary.Available {
		probs[secondary.ModelID] = secondary.Probabilities
	}
	if len(probs) == 0 {
		return
	}

	e.mu.Lock()
	e.pending[fixtureID] = pendingPrediction{modelProbs: probs, predictedAt: at}
	e.mu.Unlock()
}

func contributingIDs(base, secondary ensemble.Candidate) []uuid.UUID {
	ids := make([]uuid.UUID, 0, 2)
	if base.Available {
		ids = append(ids, base.ModelID)
	}
	if secondary.Available {
		ids = append(ids, secondary.ModelID)
	}
	return ids
}

func snapshotKey(fixtureID uuid.UUID, odds models.MarketOdds) string {
	return fmt.Sprintf("prediction:%s:%s:%s:%s", fixtureID, odds.Home, odds.Draw, odds.Away)
}

func (e *Engine) cachedResult(fixtureID uuid.UUID, odds models.MarketOdds) *models.PredictionResult {
	if e.snapshots == nil {
		return nil
	}
	v, ok := e.snapshots.Get(snapshotKey(fixtureID, odds))
	if !ok {
		return nil
	}
	result, ok := v.(*models.PredictionResult)
	if !ok {
		return nil
	}
	return result
}

func (e *Engine) cacheResult(fixtureID uuid.UUID, odds models.MarketOdds, result *models.PredictionResult) {
	if e.snapshots == nil {
		return
	}
	e.snapshots.Set(snapshotKey(fixtureID, odds), result)
}
