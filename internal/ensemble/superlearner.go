package ensemble

import (
	"math"

	"github.com/google/uuid"

	"github.com/yourusername/footy-edge/internal/models"
)

// SuperLearner evaluates a loaded artifact: every base estimator emits a
// probability triple and the frozen meta-estimator combines them.
type SuperLearner struct {
	artifact *ModelArtifact
}

// NewSuperLearner wraps a validated artifact for inference
func NewSuperLearner(artifact *ModelArtifact) *SuperLearner {
	return &SuperLearner{artifact: artifact}
}

// ModelID returns the artifact's model identifier
func (s *SuperLearner) ModelID() uuid.UUID { return s.artifact.ModelID }

// Artifact exposes the underlying (read-only) artifact
func (s *SuperLearner) Artifact() *ModelArtifact { return s.artifact }

// Predict runs all base estimators and the meta combination. The feature
// vector must already be validated against the artifact schema.
func (s *SuperLearner) Predict(fv *models.FeatureVector) models.ProbabilityTriple {
	combined := models.ProbabilityTriple{}
	weightSum := 0.0

	for i, est := range s.artifact.Estimators {
		p := softmaxScore(est, fv.Values)
		w := s.artifact.Meta.EstimatorWeights[i]
		if w <= 0 {
			continue
		}
		for o := 0; o < models.NumOutcomes; o++ {
			combined[o] += w * p[o]
		}
		weightSum += w
	}

	if weightSum <= 0 {
		// Degenerate meta weights; fall back to uniform over estimators
		for _, est := range s.artifact.Estimators {
			p := softmaxScore(est, fv.Values)
			for o := 0; o < models.NumOutcomes; o++ {
				combined[o] += p[o]
			}
		}
	}

	return combined.Normalize()
}

// softmaxScore evaluates one multinomial logistic estimator
func softmaxScore(est EstimatorParams, values []float64) models.ProbabilityTriple {
	var logits [models.NumOutcomes]float64
	maxLogit := math.Inf(-1)

	for o := 0; o < models.NumOutcomes; o++ {
		z := est.Intercepts[o]
		for j, v := range values {
			z += est.Weights[o][j] * v
		}
		logits[o] = z
		if z > maxLogit {
			maxLogit = z
		}
	}

	// Shift by the max logit for numeric stability
	var probs models.ProbabilityTriple
	sum := 0.0
	for o := 0; o < models.NumOutcomes; o++ {
		probs[o] = math.Exp(logits[o] - maxLogit)
		sum += probs[o]
	}
	for o := range probs {
		probs[o] /= sum
	}
	return probs
}
