package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitIsotonicMonotonic(t *testing.T) {
	predicted := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}
	observed := []float64{0, 1, 0, 0, 1, 1, 0, 1}

	curve := FitIsotonic(predicted, observed)
	require.NotNil(t, curve)

	// The fitted curve must be nondecreasing everywhere
	prev := curve.Apply(0.0)
	for p := 0.05; p <= 1.0; p += 0.05 {
		cur := curve.Apply(p)
		assert.GreaterOrEqual(t, cur, prev, "curve must be nondecreasing at %f", p)
		prev = cur
	}
}

func TestFitIsotonicDeterministic(t *testing.T) {
	predicted := []float64{0.3, 0.7, 0.1, 0.9, 0.5}
	observed := []float64{0, 1, 0, 1, 1}

	a := FitIsotonic(predicted, observed)
	b := FitIsotonic(predicted, observed)
	require.NotNil(t, a)
	require.NotNil(t, b)

	for p := 0.0; p <= 1.0; p += 0.01 {
		assert.Equal(t, a.Apply(p), b.Apply(p))
	}
}

func TestFitIsotonicPerfectlyCalibrated(t *testing.T) {
	// Already-monotonic data should fit without pooling everything away
	predicted := []float64{0.1, 0.3, 0.5, 0.7, 0.9}
	observed := []float64{0, 0, 1, 1, 1}

	curve := FitIsotonic(predicted, observed)
	require.NotNil(t, curve)
	assert.InDelta(t, 0.0, curve.Apply(0.1), 1e-9)
	assert.InDelta(t, 1.0, curve.Apply(0.9), 1e-9)
}

func TestApplyClampsOutOfRange(t *testing.T) {
	curve := FitIsotonic([]float64{0.3, 0.6}, []float64{0.2, 0.8})
	require.NotNil(t, curve)

	assert.InDelta(t, 0.2, curve.Apply(0.0), 1e-9)
	assert.InDelta(t, 0.8, curve.Apply(1.0), 1e-9)
}

func TestApplyInterpolates(t *testing.T) {
	curve := FitIsotonic([]float64{0.2, 0.8}, []float64{0.0, 1.0})
	require.NotNil(t, curve)

	assert.InDelta(t, 0.5, curve.Apply(0.5), 1e-9)
	assert.InDelta(t, 0.25, curve.Apply(0.35), 1e-9)
}

func TestFitIsotonicDegenerate(t *testing.T) {
	assert.Nil(t, FitIsotonic(nil, nil))
	assert.Nil(t, FitIsotonic([]float64{0.5}, []float64{}))

	// A nil curve applies as identity
	var c *IsotonicCurve
	assert.Equal(t, 0.42, c.Apply(0.42))
	assert.Equal(t, 0, c.Size())
}
