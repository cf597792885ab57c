package calibration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/config"
	"github.com/yourusername/footy-edge/internal/metrics"
	"github.com/yourusername/footy-edge/internal/models"
	"github.com/yourusername/footy-edge/internal/store"
)

// modelState is the rolling calibration state for one model. Its mutex
// serializes appends and refits per model; separate models never contend.
type modelState struct {
	mu         sync.Mutex
	window     []models.ResolvedSample
	curve      *IsotonicCurve
	lastFitAt  time.Time
	sinceRefit int
}

// Controller owns the process-wide calibration state. Initialized empty at
// startup (optionally warm-started from the store), grown incrementally as
// outcomes resolve, and never reset except by explicit operator action.
type Controller struct {
	cfg      *config.CalibrationConfig
	outcomes store.OutcomeStore
	logger   *logrus.Logger

	mu     sync.RWMutex
	states map[uuid.UUID]*modelState
}

// NewController creates an empty calibration controller
func NewController(cfg *config.CalibrationConfig, outcomes store.OutcomeStore, logger *logrus.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		outcomes: outcomes,
		logger:   logger,
		states:   make(map[uuid.UUID]*modelState),
	}
}

// WarmStart loads each model's rolling window from the store, so restarts do
// not regress to identity calibration.
func (c *Controller) WarmStart(ctx context.Context, modelIDs ...uuid.UUID) error {
	for _, modelID := range modelIDs {
		if modelID == uuid.Nil {
			continue
		}
		samples, err := c.outcomes.ResolvedSamples(ctx, modelID, c.cfg.WindowSize)
		if err != nil {
			return fmt.Errorf("failed to warm start model %s: %w", modelID, err)
		}

		state := c.state(modelID)
		state.mu.Lock()
		state.window = samples
		if len(state.window) >= c.cfg.MinSamples {
			state.curve = c.fitLocked(state)
			state.lastFitAt = time.Now().UTC()
		}
		state.mu.Unlock()

		c.logger.WithFields(logrus.Fields{
			"model_id": modelID,
			"samples":  len(samples),
		}).Info("Warm-started calibration window")
	}
	return nil
}

// Calibrate rescales a probability triple through the model's fitted curve.
// Until the window holds enough resolved outcomes the triple passes through
// unchanged (identity calibration) rather than blocking predictions.
func (c *Controller) Calibrate(modelID uuid.UUID, probs models.ProbabilityTriple) (models.ProbabilityTriple, bool) {
	state := c.state(modelID)

	state.mu.Lock()
	curve := state.curve
	state.mu.Unlock()

	if curve == nil {
		return probs.Normalize(), false
	}

	var out models.ProbabilityTriple
	for i := range probs {
		out[i] = curve.Apply(probs[i])
	}
	return out.Normalize(), true
}

// AddResolved appends a resolved sample to the model's rolling window,
// persists it, and refits the curve when due. Updates for one model are
// serialized by that model's lock only.
func (c *Controller) AddResolved(ctx context.Context, sample *models.ResolvedSample) error {
	if err := c.outcomes.AppendSample(ctx, sample); err != nil {
		return fmt.Errorf("failed to persist resolved sample: %w", err)
	}

	state := c.state(sample.ModelID)
	state.mu.Lock()
	defer state.mu.Unlock()

	state.window = append(state.window, *sample)
	if len(state.window) > c.cfg.WindowSize {
		state.window = state.window[len(state.window)-c.cfg.WindowSize:]
	}
	state.sinceRefit++

	metrics.CalibrationSampleSize.WithLabelValues(sample.ModelID.String()).Set(float64(len(state.window)))
	metrics.ModelBrierScore.WithLabelValues(sample.ModelID.String()).Set(c.brierLocked(state))

	if len(state.window) >= c.cfg.MinSamples && state.sinceRefit >= c.cfg.RefitEvery {
		state.curve = c.fitLocked(state)
		state.lastFitAt = time.Now().UTC()
		state.sinceRefit = 0
		metrics.CalibrationRefitsTotal.WithLabelValues(sample.ModelID.String()).Inc()
		c.logger.WithFields(logrus.Fields{
			"model_id": sample.ModelID,
			"samples":  len(state.window),
			"blocks":   state.curve.Size(),
		}).Debug("Refit calibration curve")
	}

	return nil
}

// Refit forces an immediate refit of the model's curve on the current window.
// Refitting twice on the same window yields the same curve.
func (c *Controller) Refit(modelID uuid.UUID) {
	state := c.state(modelID)
	state.mu.Lock()
	defer state.mu.Unlock()

	if len(state.window) < c.cfg.MinSamples {
		return
	}
	state.curve = c.fitLocked(state)
	state.lastFitAt = time.Now().UTC()
	state.sinceRefit = 0
}

// Reset clears a model's calibration state. Explicit operator action only.
func (c *Controller) Reset(modelID uuid.UUID) {
	state := c.state(modelID)
	state.mu.Lock()
	defer state.mu.Unlock()

	state.window = nil
	state.curve = nil
	state.lastFitAt = time.Time{}
	state.sinceRefit = 0
	c.logger.WithField("model_id", modelID).Warn("Calibration state reset")
}

// BrierScore returns the model's rolling Brier score and window size.
// A model with no resolved history returns sample size 0.
func (c *Controller) BrierScore(modelID uuid.UUID) (float64, int) {
	state := c.state(modelID)
	state.mu.Lock()
	defer state.mu.Unlock()
	return c.brierLocked(state), len(state.window)
}

// MinSamples returns the configured minimum window size for fitting
func (c *Controller) MinSamples() int {
	return c.cfg.MinSamples
}

// SampleSize returns the model's current window size
func (c *Controller) SampleSize(modelID uuid.UUID) int {
	state := c.state(modelID)
	state.mu.Lock()
	defer state.mu.Unlock()
	return len(state.window)
}

func (c *Controller) state(modelID uuid.UUID) *modelState {
	c.mu.RLock()
	state, ok := c.states[modelID]
	c.mu.RUnlock()
	if ok {
		return state
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if state, ok = c.states[modelID]; ok {
		return state
	}
	state = &modelState{}
	c.states[modelID] = state
	return state
}

// fitLocked fits the isotonic curve on the current window. Each sample
// contributes one (predicted, indicator) pair per outcome, pooled into a
// single per-model curve. Caller holds the state lock.
func (c *Controller) fitLocked(state *modelState) *IsotonicCurve {
	n := len(state.window)
	predicted := make([]float64, 0, n*models.NumOutcomes)
	observed := make([]float64, 0, n*models.NumOutcomes)

	for _, sample := range state.window {
		for o := 0; o < models.NumOutcomes; o++ {
			predicted = append(predicted, sample.Predicted[o])
			if models.Outcome(o) == sample.Observed {
				observed = append(observed, 1)
			} else {
				observed = append(observed, 0)
			}
		}
	}

	return FitIsotonic(predicted, observed)
}

// brierLocked computes the rolling mean Brier score. Caller holds the lock.
func (c *Controller) brierLocked(state *modelState) float64 {
	if len(state.window) == 0 {
		return 0
	}
	total := 0.0
	for i := range state.window {
		total += state.window[i].BrierContribution()
	}
	return total / float64(len(state.window))
}
