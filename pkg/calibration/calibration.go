// Package calibration remaps predicted probabilities onto observed
// frequencies, fit on a held-out chronological slice. Supports
// monotonic (isotonic) and sigmoid (Platt) remapping.
package calibration

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/HatemAHMED80/kickstat/internal/config"
	"github.com/HatemAHMED80/kickstat/pkg/prob"
)

// ErrInsufficientSamples is returned when the holdout slice is too
// small to fit a stable mapping. Callers keep using raw probabilities.
var ErrInsufficientSamples = errors.New("insufficient samples to fit calibrator")

// classMap remaps one outcome's probability.
type classMap interface {
	apply(p float64) float64
}

// Calibrator holds one fitted map per outcome class. Before a
// successful Fit it passes probabilities through unchanged.
type Calibrator struct {
	cfg  config.CalibrationConfig
	maps [3]classMap
}

// New returns an identity calibrator.
func New(cfg config.CalibrationConfig) *Calibrator {
	return &Calibrator{cfg: cfg}
}

// Fitted reports whether Calibrate applies a fitted remapping.
func (c *Calibrator) Fitted() bool {
	return c.maps[0] != nil
}

// Fit learns per-class maps from chronologically ordered predictions
// and realized outcomes, using only the most recent holdout fraction.
// Per-class calibration breaks the simplex, so Calibrate renormalizes.
func (c *Calibrator) Fit(preds []prob.Vector, outcomes []int) error {
	if len(preds) != len(outcomes) {
		return fmt.Errorf("prediction and outcome counts differ: %d vs %d", len(preds), len(outcomes))
	}

	start := int(float64(len(preds)) * (1 - c.cfg.HoldoutFraction))
	holdPreds := preds[start:]
	holdOutcomes := outcomes[start:]
	if len(holdPreds) < c.cfg.MinSamples {
		return fmt.Errorf("%w: have %d in holdout, need %d", ErrInsufficientSamples, len(holdPreds), c.cfg.MinSamples)
	}

	var maps [3]classMap
	for k := 0; k < 3; k++ {
		xs := make([]float64, len(holdPreds))
		ys := make([]float64, len(holdPreds))
		for i, p := range holdPreds {
			xs[i] = p.At(k)
			if holdOutcomes[i] == k {
				ys[i] = 1
			}
		}
		switch c.cfg.Method {
		case "platt":
			maps[k] = fitPlatt(xs, ys)
		default:
			maps[k] = fitIsotonic(xs, ys)
		}
	}
	c.maps = maps
	return nil
}

// Calibrate remaps each class independently and renormalizes the
// result back onto the simplex.
func (c *Calibrator) Calibrate(v prob.Vector) prob.Vector {
	if !c.Fitted() {
		return v
	}
	const eps = 1e-6
	out := prob.Vector{
		Home: clamp(c.maps[prob.Home].apply(v.Home), eps, 1),
		Draw: clamp(c.maps[prob.Draw].apply(v.Draw), eps, 1),
		Away: clamp(c.maps[prob.Away].apply(v.Away), eps, 1),
	}
	return out.Normalized()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ---- isotonic regression ----

// isotonicMap is a monotone step function with linear interpolation
// between block centers.
type isotonicMap struct {
	x []float64 // block centers, increasing
	y []float64 // block means, non-decreasing
}

type block struct {
	sumX   float64
	sumY   float64
	weight float64
}

// fitIsotonic runs pool-adjacent-violators over (prediction, outcome)
// pairs sorted by prediction.
func fitIsotonic(xs, ys []float64) *isotonicMap {
	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return xs[order[a]] < xs[order[b]] })

	var blocks []block
	for _, i := range order {
		blocks = append(blocks, block{sumX: xs[i], sumY: ys[i], weight: 1})
		// merge backwards while the monotonicity constraint is violated
		for len(blocks) > 1 {
			last := blocks[len(blocks)-1]
			prev := blocks[len(blocks)-2]
			if prev.sumY/prev.weight <= last.sumY/last.weight {
				break
			}
			merged := block{
				sumX:   prev.sumX + last.sumX,
				sumY:   prev.sumY + last.sumY,
				weight: prev.weight + last.weight,
			}
			blocks = blocks[:len(blocks)-2]
			blocks = append(blocks, merged)
		}
	}

	m := &isotonicMap{
		x: make([]float64, len(blocks)),
		y: make([]float64, len(blocks)),
	}
	for i, b := range blocks {
		m.x[i] = b.sumX / b.weight
		m.y[i] = b.sumY / b.weight
	}
	return m
}

func (m *isotonicMap) apply(p float64) float64 {
	if len(m.x) == 0 {
		return p
	}
	if p <= m.x[0] {
		return m.y[0]
	}
	if p >= m.x[len(m.x)-1] {
		return m.y[len(m.y)-1]
	}
	i := sort.SearchFloat64s(m.x, p)
	// interpolate between neighbouring block centers
	x0, x1 := m.x[i-1], m.x[i]
	y0, y1 := m.y[i-1], m.y[i]
	if x1 == x0 {
		return y0
	}
	return y0 + (y1-y0)*(p-x0)/(x1-x0)
}

// ---- Platt scaling ----

// plattMap is the sigmoid sigma(a*p + b) fitted by gradient descent on
// log loss. A positive slope keeps the map order-preserving.
type plattMap struct {
	a float64
	b float64
}

func fitPlatt(xs, ys []float64) *plattMap {
	a, b := 1.0, 0.0
	const iterations = 2000
	const lr = 0.1
	n := float64(len(xs))

	for iter := 0; iter < iterations; iter++ {
		var gradA, gradB float64
		for i, x := range xs {
			diff := sigmoid(a*x+b) - ys[i]
			gradA += diff * x
			gradB += diff
		}
		a -= lr * gradA / n
		b -= lr * gradB / n
	}
	return &plattMap{a: a, b: b}
}

func (m *plattMap) apply(p float64) float64 {
	return sigmoid(m.a*p + m.b)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
