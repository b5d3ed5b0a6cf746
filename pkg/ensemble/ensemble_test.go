package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HatemAHMED80/kickstat/internal/config"
	"github.com/HatemAHMED80/kickstat/pkg/prob"
)

func TestBlendBaseModels(t *testing.T) {
	b := New(config.Default().Ensemble)
	in := Inputs{
		Score:  prob.Vector{Home: 0.6, Draw: 0.25, Away: 0.15},
		Rating: prob.Vector{Home: 0.4, Draw: 0.3, Away: 0.3},
	}
	out := b.Blend(in)
	assert.InDelta(t, 1.0, out.Sum(), 1e-9)
	// 65/35 default weighting
	assert.InDelta(t, 0.65*0.6+0.35*0.4, out.Home, 1e-9)
	assert.InDelta(t, 0.65*0.25+0.35*0.3, out.Draw, 1e-9)
}

func TestBlendWithStacking(t *testing.T) {
	b := New(config.Default().Ensemble)
	stack := prob.Vector{Home: 0.8, Draw: 0.1, Away: 0.1}
	base := Inputs{
		Score:  prob.Vector{Home: 0.5, Draw: 0.3, Away: 0.2},
		Rating: prob.Vector{Home: 0.5, Draw: 0.3, Away: 0.2},
	}
	withStack := base
	withStack.Stacking = &stack

	plain := b.Blend(base)
	stacked := b.Blend(withStack)
	assert.InDelta(t, 1.0, stacked.Sum(), 1e-9)
	// the confident classifier pulls the blend toward home
	assert.Greater(t, stacked.Home, plain.Home)
	assert.Less(t, stacked.Home, stack.Home)
}

func TestBlendNormalizesWhateverWeights(t *testing.T) {
	cfg := config.Default().Ensemble
	cfg.WeightDixonColes = 2.0
	cfg.WeightElo = 1.0
	b := New(cfg)
	out := b.Blend(Inputs{
		Score:  prob.Vector{Home: 0.5, Draw: 0.3, Away: 0.2},
		Rating: prob.Vector{Home: 0.2, Draw: 0.3, Away: 0.5},
	})
	assert.InDelta(t, 1.0, out.Sum(), 1e-9)
}

func TestAgreement(t *testing.T) {
	b := New(config.Default().Ensemble)
	same := prob.Vector{Home: 0.5, Draw: 0.3, Away: 0.2}
	assert.InDelta(t, 1.0, b.Agreement(Inputs{Score: same, Rating: same}), 1e-9)

	opposed := b.Agreement(Inputs{
		Score:  prob.Vector{Home: 0.9, Draw: 0.05, Away: 0.05},
		Rating: prob.Vector{Home: 0.05, Draw: 0.05, Away: 0.9},
	})
	assert.Less(t, opposed, 0.6)

	slightly := b.Agreement(Inputs{
		Score:  prob.Vector{Home: 0.5, Draw: 0.3, Away: 0.2},
		Rating: prob.Vector{Home: 0.45, Draw: 0.32, Away: 0.23},
	})
	assert.Greater(t, slightly, opposed)
}
