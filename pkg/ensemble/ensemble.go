// Package ensemble blends the constituent model outputs into a single
// probability vector and scores how much the models agree.
package ensemble

import (
	"github.com/HatemAHMED80/kickstat/internal/config"
	"github.com/HatemAHMED80/kickstat/pkg/prob"
)

// Inputs carries the constituent outputs for one fixture. Stacking is
// optional; when absent the blend uses only the two base models.
type Inputs struct {
	Score    prob.Vector
	Rating   prob.Vector
	Stacking *prob.Vector
}

// Blender combines model outputs with configured weights.
type Blender struct {
	cfg config.EnsembleConfig
}

// New returns a Blender with the given weights.
func New(cfg config.EnsembleConfig) *Blender {
	return &Blender{cfg: cfg}
}

// Blend returns the weighted combination renormalized onto the
// simplex. With a trained classifier present, its calibrated output
// takes the configured stacking share and the base weights split the
// remainder in their configured ratio.
func (b *Blender) Blend(in Inputs) prob.Vector {
	wScore := b.cfg.WeightDixonColes
	wRating := b.cfg.WeightElo

	var out prob.Vector
	if in.Stacking != nil {
		baseShare := 1 - b.cfg.WeightStacking
		baseTotal := wScore + wRating
		wScore = baseShare * wScore / baseTotal
		wRating = baseShare * wRating / baseTotal
		out = weighted(in.Score, wScore)
		out = add(out, weighted(in.Rating, wRating))
		out = add(out, weighted(*in.Stacking, b.cfg.WeightStacking))
	} else {
		out = add(weighted(in.Score, wScore), weighted(in.Rating, wRating))
	}
	return out.Normalized()
}

// Agreement returns 1 minus the RMS difference across the constituent
// vectors, a confidence signal in [0,1]: identical models score 1.
func (b *Blender) Agreement(in Inputs) float64 {
	vectors := []prob.Vector{in.Score, in.Rating}
	if in.Stacking != nil {
		vectors = append(vectors, *in.Stacking)
	}
	var total float64
	var pairs int
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			total += prob.RMSDistance(vectors[i], vectors[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 1
	}
	score := 1 - total/float64(pairs)
	if score < 0 {
		return 0
	}
	return score
}

func weighted(v prob.Vector, w float64) prob.Vector {
	return prob.Vector{Home: v.Home * w, Draw: v.Draw * w, Away: v.Away * w}
}

func add(a, b prob.Vector) prob.Vector {
	return prob.Vector{Home: a.Home + b.Home, Draw: a.Draw + b.Draw, Away: a.Away + b.Away}
}
