package ensemble

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/config"
	"github.com/yourusername/footy-edge/internal/models"
)

// Artifact file names inside the configured artifact directory
const (
	baseArtifactFile      = "base_ensemble.json"
	secondaryArtifactFile = "secondary_stack.json"
)

// Candidate is the tagged result of one inference path. Unavailable carries
// the reason so blend logic never needs nil checks.
type Candidate struct {
	Available     bool
	Probabilities models.ProbabilityTriple
	ModelID       uuid.UUID
	Reason        string
}

// Unavailable builds an unavailable candidate with a reason
func Unavailable(reason string) Candidate {
	return Candidate{Available: false, Reason: reason}
}

// Engine runs the base super learner and the optional secondary stacked
// estimator over the same feature vector.
type Engine struct {
	base             *SuperLearner
	secondary        *SuperLearner
	secondaryEnabled bool
	secondaryBudget  time.Duration
	logger           *logrus.Logger
}

// NewEngine loads artifacts per configuration. A missing or invalid secondary
// artifact is a graceful degrade, not a startup failure; a missing base
// artifact is fatal.
func NewEngine(cfg *config.InferenceConfig, logger *logrus.Logger) (*Engine, error) {
	baseArtifact, err := LoadArtifact(filepath.Join(cfg.ArtifactDir, baseArtifactFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load base ensemble: %w", err)
	}

	engine := &Engine{
		base:             NewSuperLearner(baseArtifact),
		secondaryEnabled: cfg.SecondaryStackEnabled,
		secondaryBudget:  cfg.SecondaryStackTimeBudget(),
		logger:           logger,
	}

	if cfg.SecondaryStackEnabled {
		secondaryArtifact, err := LoadArtifact(filepath.Join(cfg.ArtifactDir, secondaryArtifactFile))
		if err != nil {
			logger.WithError(err).Warn("Secondary stack artifact unavailable, running base-only")
		} else {
			engine.secondary = NewSuperLearner(secondaryArtifact)
		}
	}

	return engine, nil
}

// NewEngineFromArtifacts builds an engine from already-loaded artifacts.
// secondary may be nil.
func NewEngineFromArtifacts(base, secondary *ModelArtifact, budget time.Duration, logger *logrus.Logger) *Engine {
	engine := &Engine{
		base:            NewSuperLearner(base),
		secondaryBudget: budget,
		logger:          logger,
	}
	if secondary != nil {
		engine.secondary = NewSuperLearner(secondary)
		engine.secondaryEnabled = true
	}
	return engine
}

// BaseModelID returns the base ensemble's model id
func (e *Engine) BaseModelID() uuid.UUID { return e.base.ModelID() }

// SecondaryModelID returns the secondary model id, or uuid.Nil when absent
func (e *Engine) SecondaryModelID() uuid.UUID {
	if e.secondary == nil {
		return uuid.Nil
	}
	return e.secondary.ModelID()
}

// Infer runs both paths over the feature vector. A schema mismatch is fatal
// to the affected path only. The caller treats the pair of candidates as the
// inference result; only both-unavailable is a pipeline error.
func (e *Engine) Infer(ctx context.Context, fv *models.FeatureVector) (base, secondary Candidate) {
	base = e.runBase(fv)
	secondary = e.runSecondary(ctx, fv)
	return base, secondary
}

func (e *Engine) runBase(fv *models.FeatureVector) Candidate {
	if err := e.base.Artifact().ValidateSchema(fv); err != nil {
		e.logger.WithError(err).Error("Base ensemble schema validation failed")
		return Unavailable(fmt.Sprintf("schema mismatch: %v", err))
	}

	probs := e.base.Predict(fv)
	if !probs.IsNormalized() {
		probs = probs.Normalize()
	}

	return Candidate{
		Available:     true,
		Probabilities: probs,
		ModelID:       e.base.ModelID(),
	}
}

func (e *Engine) runSecondary(ctx context.Context, fv *models.FeatureVector) Candidate {
	if !e.secondaryEnabled {
		return Unavailable("secondary stack disabled")
	}
	if e.secondary == nil {
		return Unavailable("secondary stack not loaded")
	}

	if err := e.secondary.Artifact().ValidateSchema(fv); err != nil {
		e.logger.WithError(err).Error("Secondary stack schema validation failed")
		return Unavailable(fmt.Sprintf("schema mismatch: %v", err))
	}

	// The secondary path may be expensive; enforce its own time budget so a
	// slow stack degrades to base-only instead of blowing the request budget.
	budgetCtx := ctx
	if e.secondaryBudget > 0 {
		var cancel context.CancelFunc
		budgetCtx, cancel = context.WithTimeout(ctx, e.secondaryBudget)
		defer cancel()
	}

	type result struct {
		probs models.ProbabilityTriple
	}
	done := make(chan result, 1)
	go func() {
		done <- result{probs: e.secondary.Predict(fv)}
	}()

	select {
	case <-budgetCtx.Done():
		e.logger.WithField("budget", e.secondaryBudget).Warn("Secondary stack exceeded time budget")
		return Unavailable("secondary stack timed out")
	case r := <-done:
		probs := r.probs
		if !probs.IsNormalized() {
			probs = probs.Normalize()
		}
		return Candidate{
			Available:     true,
			Probabilities: probs,
			ModelID:       e.secondary.ModelID(),
		}
	}
}
