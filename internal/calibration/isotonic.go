// Package calibration rescales model probabilities against resolved outcome
// history and derives the dynamic blend weight between inference paths.
//
// The rescaling family is isotonic regression fit with the pool-adjacent-
// violators algorithm: it is monotonic by construction and makes no
// parametric assumption about either model's error shape.
package calibration

import (
	"sort"
)

// point is one (predicted, observed) training pair
type point struct {
	x float64
	y float64
	w float64
}

// IsotonicCurve is a fitted monotonic step function mapping raw predicted
// probabilities to calibrated ones. Immutable once fitted.
type IsotonicCurve struct {
	xs []float64
	ys []float64
}

// FitIsotonic fits a nondecreasing curve to (predicted, observed) pairs via
// pool-adjacent-violators. Fitting is deterministic: the same pairs always
// produce the same curve.
func FitIsotonic(predicted, observed []float64) *IsotonicCurve {
	n := len(predicted)
	if n == 0 || n != len(observed) {
		return nil
	}

	pts := make([]point, n)
	for i := range predicted {
		pts[i] = point{x: predicted[i], y: observed[i], w: 1}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].x < pts[j].x })

	// Merge duplicate x values so the PAV blocks are well defined
	merged := pts[:0]
	for _, p := range pts {
		if len(merged) > 0 && merged[len(merged)-1].x == p.x {
			last := &merged[len(merged)-1]
			last.y = (last.y*last.w + p.y*p.w) / (last.w + p.w)
			last.w += p.w
			continue
		}
		merged = append(merged, p)
	}

	// Pool adjacent violators
	blocks := make([]point, 0, len(merged))
	for _, p := range merged {
		blocks = append(blocks, p)
		for len(blocks) > 1 {
			top := blocks[len(blocks)-1]
			prev := blocks[len(blocks)-2]
			if prev.y <= top.y {
				break
			}
			pooled := point{
				x: prev.x,
				y: (prev.y*prev.w + top.y*top.w) / (prev.w + top.w),
				w: prev.w + top.w,
			}
			blocks = blocks[:len(blocks)-2]
			blocks = append(blocks, pooled)
		}
	}

	curve := &IsotonicCurve{
		xs: make([]float64, len(blocks)),
		ys: make([]float64, len(blocks)),
	}
	for i, b := range blocks {
		curve.xs[i] = b.x
		curve.ys[i] = b.y
	}
	return curve
}

// Apply maps a raw probability through the fitted curve with linear
// interpolation between block values. Inputs outside the fitted range clamp
// to the boundary blocks.
func (c *IsotonicCurve) Apply(p float64) float64 {
	if c == nil || len(c.xs) == 0 {
		return p
	}
	if p <= c.xs[0] {
		return c.ys[0]
	}
	last := len(c.xs) - 1
	if p >= c.xs[last] {
		return c.ys[last]
	}

	i := sort.SearchFloat64s(c.xs, p)
	// xs[i-1] < p < xs[i]
	x0, x1 := c.xs[i-1], c.xs[i]
	y0, y1 := c.ys[i-1], c.ys[i]
	if x1 == x0 {
		return y0
	}
	t := (p - x0) / (x1 - x0)
	return y0 + t*(y1-y0)
}

// Size returns the number of fitted blocks
func (c *IsotonicCurve) Size() int {
	if c == nil {
		return 0
	}
	return len(c.xs)
}
