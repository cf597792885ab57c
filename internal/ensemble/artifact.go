// Package ensemble runs the super-learner inference paths over feature vectors.
package ensemble

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/footy-edge/internal/models"
)

// Artifact errors
var (
	ErrArtifactNotFound = errors.New("model artifact not found")
	ErrArtifactInvalid  = errors.New("model artifact invalid")
)

// EstimatorParams holds one base learner: a multinomial logistic model whose
// weights were fitted offline. Weights is outcome-major: one row of
// per-feature coefficients per 1X2 outcome.
type EstimatorParams struct {
	Name       string      `json:"name"`
	Weights    [][]float64 `json:"weights"`
	Intercepts []float64   `json:"intercepts"`
}

// MetaParams holds the frozen meta-estimator: convex combination weights over
// the base estimators, fitted once at training time.
type MetaParams struct {
	EstimatorWeights []float64 `json:"estimator_weights"`
}

// ModelArtifact is a serialized, pre-trained model consumed at serving time.
// It is read-only once loaded.
type ModelArtifact struct {
	ModelID        uuid.UUID         `json:"model_id"`
	Name           string            `json:"name"`
	TrainedAt      time.Time         `json:"trained_at"`
	SchemaVersion  string            `json:"expected_schema_version"`
	FeatureNames   []string          `json:"expected_feature_schema"`
	Estimators     []EstimatorParams `json:"estimators"`
	Meta           MetaParams        `json:"meta"`
}

// LoadArtifact reads and validates a model artifact from disk
func LoadArtifact(path string) (*ModelArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact %s: %w", path, ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	artifact := &ModelArtifact{}
	if err := json.Unmarshal(data, artifact); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}

	if err := artifact.validate(); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", filepath.Base(path), err)
	}

	return artifact, nil
}

// validate checks internal consistency of the artifact parameters
func (a *ModelArtifact) validate() error {
	if a.ModelID == uuid.Nil {
		return fmt.Errorf("missing model_id: %w", ErrArtifactInvalid)
	}
	if len(a.FeatureNames) == 0 {
		return fmt.Errorf("missing expected_feature_schema: %w", ErrArtifactInvalid)
	}
	if len(a.Estimators) == 0 {
		return fmt.Errorf("no estimators: %w", ErrArtifactInvalid)
	}
	if len(a.Meta.EstimatorWeights) != len(a.Estimators) {
		return fmt.Errorf("meta weights (%d) do not match estimators (%d): %w",
			len(a.Meta.EstimatorWeights), len(a.Estimators), ErrArtifactInvalid)
	}

	for _, est := range a.Estimators {
		if len(est.Weights) != models.NumOutcomes {
			return fmt.Errorf("estimator %s has %d weight rows, want %d: %w",
				est.Name, len(est.Weights), models.NumOutcomes, ErrArtifactInvalid)
		}
		if len(est.Intercepts) != models.NumOutcomes {
			return fmt.Errorf("estimator %s has %d intercepts, want %d: %w",
				est.Name, len(est.Intercepts), models.NumOutcomes, ErrArtifactInvalid)
		}
		for i, row := range est.Weights {
			if len(row) != len(a.FeatureNames) {
				return fmt.Errorf("estimator %s weight row %d has %d coefficients, want %d: %w",
					est.Name, i, len(row), len(a.FeatureNames), ErrArtifactInvalid)
			}
		}
	}

	return nil
}

// ValidateSchema checks that a feature vector matches the artifact's expected
// schema exactly: same names in the same order. Mismatch is a hard error,
// never a silent reshape.
func (a *ModelArtifact) ValidateSchema(fv *models.FeatureVector) error {
	if err := fv.Validate(); err != nil {
		return err
	}
	if a.SchemaVersion != "" && a.SchemaVersion != fv.SchemaVersion {
		return fmt.Errorf("artifact %s expects schema %s, vector has %s: %w",
			a.Name, a.SchemaVersion, fv.SchemaVersion, models.ErrSchemaMismatch)
	}
	if len(a.FeatureNames) != len(fv.Names) {
		return fmt.Errorf("artifact %s expects %d features, vector has %d: %w",
			a.Name, len(a.FeatureNames), len(fv.Names), models.ErrSchemaMismatch)
	}
	for i, name := range a.FeatureNames {
		if fv.Names[i] != name {
			return fmt.Errorf("artifact %s expects feature %q at position %d, vector has %q: %w",
				a.Name, name, i, fv.Names[i], models.ErrSchemaMismatch)
		}
	}
	return nil
}
