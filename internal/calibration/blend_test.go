package calibration

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/yourusername/footy-edge/internal/models"
)

func TestWeightForcedZeroWhenSecondaryUnavailable(t *testing.T) {
	c, _ := testController(t)
	baseID, secID := uuid.New(), uuid.New()

	bw := c.Weight(baseID, secID, false)
	assert.Equal(t, 0.0, bw.Weight)

	bw = c.Weight(baseID, uuid.Nil, true)
	assert.Equal(t, 0.0, bw.Weight)
}

func TestWeightClippedOnThinSample(t *testing.T) {
	c, _ := testController(t)
	baseID, secID := uuid.New(), uuid.New()

	// Neither model has resolved history
	bw := c.Weight(baseID, secID, true)
	assert.Equal(t, 0.5, bw.Weight, "no accuracy signal splits the difference")
	assert.Equal(t, "rolling_brier", bw.BasisMetric)
}

func TestWeightFavorsMoreAccurateModel(t *testing.T) {
	c, _ := testController(t)
	baseID, secID := uuid.New(), uuid.New()

	// Base is sloppy, secondary is sharp
	for i := 0; i < 5; i++ {
		addSamples(t, c, baseID, []models.ResolvedSample{
			{Predicted: models.ProbabilityTriple{0.34, 0.33, 0.33}, Observed: models.OutcomeHome},
		})
		addSamples(t, c, secID, []models.ResolvedSample{
			{Predicted: models.ProbabilityTriple{0.9, 0.05, 0.05}, Observed: models.OutcomeHome},
		})
	}

	bw := c.Weight(baseID, secID, true)
	assert.Greater(t, bw.Weight, 0.5, "more accurate secondary earns more weight")
	assert.LessOrEqual(t, bw.Weight, 0.9, "weight stays inside the configured bounds")

	// Swap roles: the weight must move the other way
	reversed := c.Weight(secID, baseID, true)
	assert.Less(t, reversed.Weight, 0.5)
	assert.GreaterOrEqual(t, reversed.Weight, 0.1)
}

func TestBlendEndpoints(t *testing.T) {
	base := models.ProbabilityTriple{0.5, 0.3, 0.2}
	secondary := models.ProbabilityTriple{0.2, 0.3, 0.5}

	atZero := Blend(base, secondary, 0)
	assert.InDelta(t, base[0], atZero[0], 1e-12)
	assert.InDelta(t, base[2], atZero[2], 1e-12)

	atOne := Blend(base, secondary, 1)
	assert.InDelta(t, secondary[0], atOne[0], 1e-12)
	assert.InDelta(t, secondary[2], atOne[2], 1e-12)
}

func TestBlendMonotonicInWeight(t *testing.T) {
	base := models.ProbabilityTriple{0.6, 0.25, 0.15}
	secondary := models.ProbabilityTriple{0.2, 0.3, 0.5}

	prev := Blend(base, secondary, 0)
	for w := 0.1; w <= 1.0; w += 0.1 {
		cur := Blend(base, secondary, w)
		assert.True(t, cur.IsNormalized())
		assert.LessOrEqual(t, cur[models.OutcomeHome], prev[models.OutcomeHome]+1e-12,
			"raising the weight moves the blend toward the secondary")
		assert.GreaterOrEqual(t, cur[models.OutcomeAway], prev[models.OutcomeAway]-1e-12)
		prev = cur
	}
}

func TestAgreement(t *testing.T) {
	same := models.ProbabilityTriple{0.4, 0.3, 0.3}
	assert.InDelta(t, 1.0, Agreement(same, same), 1e-12)

	opposite := Agreement(
		models.ProbabilityTriple{1, 0, 0},
		models.ProbabilityTriple{0, 0, 1},
	)
	assert.InDelta(t, 0.0, opposite, 1e-12)

	partial := Agreement(
		models.ProbabilityTriple{0.5, 0.3, 0.2},
		models.ProbabilityTriple{0.4, 0.3, 0.3},
	)
	assert.InDelta(t, 0.9, partial, 1e-9)
}
