package calibration

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/footy-edge/internal/metrics"
	"github.com/yourusername/footy-edge/internal/models"
)

// BlendWeight is the dynamic mixing weight between the base and secondary
// paths, with the basis metric that produced it.
type BlendWeight struct {
	BaseModelID      uuid.UUID `json:"base_model_id"`
	SecondaryModelID uuid.UUID `json:"secondary_model_id"`
	Weight           float64   `json:"weight"`
	BasisMetric      string    `json:"basis_metric"`
	LastUpdatedAt    time.Time `json:"last_updated_at"`
}

// Weight computes the secondary model's blend weight from rolling Brier
// scores: lower secondary error relative to base pushes the weight up. The
// result is clipped to the configured bounds so a thin sample never earns
// total reliance. Weight is forced to 0 when the secondary path is
// unavailable.
func (c *Controller) Weight(baseID, secondaryID uuid.UUID, secondaryAvailable bool) BlendWeight {
	bw := BlendWeight{
		BaseModelID:      baseID,
		SecondaryModelID: secondaryID,
		BasisMetric:      "rolling_brier",
		LastUpdatedAt:    time.Now().UTC(),
	}

	if !secondaryAvailable || secondaryID == uuid.Nil {
		bw.Weight = 0
		metrics.BlendWeight.Set(0)
		return bw
	}

	baseBrier, baseN := c.BrierScore(baseID)
	secBrier, secN := c.BrierScore(secondaryID)

	// Without resolved history for both models there is no accuracy signal;
	// split the difference inside the configured bounds.
	if baseN < c.cfg.MinSamples || secN < c.cfg.MinSamples {
		bw.Weight = clip(0.5, c.cfg.BlendWeightMin, c.cfg.BlendWeightMax)
		metrics.BlendWeight.Set(bw.Weight)
		return bw
	}

	total := baseBrier + secBrier
	if total <= 0 {
		bw.Weight = clip(0.5, c.cfg.BlendWeightMin, c.cfg.BlendWeightMax)
		metrics.BlendWeight.Set(bw.Weight)
		return bw
	}

	// Inverse-error weighting: the secondary's share of accuracy is the
	// base's share of error
	bw.Weight = clip(baseBrier/total, c.cfg.BlendWeightMin, c.cfg.BlendWeightMax)
	metrics.BlendWeight.Set(bw.Weight)
	return bw
}

// Blend mixes the two calibrated triples with the given weight and
// renormalizes: p_final = w*secondary + (1-w)*base.
func Blend(base, secondary models.ProbabilityTriple, w float64) models.ProbabilityTriple {
	var out models.ProbabilityTriple
	for i := range out {
		out[i] = w*secondary[i] + (1-w)*base[i]
	}
	return out.Normalize()
}

// Agreement measures how close two probability triples are: 1 means
// identical, 0 means maximally different (1 - half the L1 distance).
func Agreement(a, b models.ProbabilityTriple) float64 {
	dist := 0.0
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		dist += d
	}
	agreement := 1.0 - dist/2.0
	if agreement < 0 {
		return 0
	}
	return agreement
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
