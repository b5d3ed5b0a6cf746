package elo

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatemAHMED80/kickstat/internal/config"
	"github.com/HatemAHMED80/kickstat/pkg/history"
)

func match(home, away string, hg, ag int) history.MatchRecord {
	return history.NewMatchRecord(home, away, time.Date(2024, 9, 1, 15, 0, 0, 0, time.UTC), hg, ag)
}

func TestWinnerGainsLoserLoses(t *testing.T) {
	r := New(config.Default().Elo)
	homeBefore := r.Rating("Leeds")
	awayBefore := r.Rating("Hull")

	newHome, newAway := r.Update(match("Leeds", "Hull", 2, 0))
	assert.Greater(t, newHome, homeBefore)
	assert.Less(t, newAway, awayBefore)

	// away win against the home advantage moves ratings the other way
	r2 := New(config.Default().Elo)
	newHome2, newAway2 := r2.Update(match("Leeds", "Hull", 0, 1))
	assert.Less(t, newHome2, r2.cfg.InitialRating)
	assert.Greater(t, newAway2, r2.cfg.InitialRating)
}

func TestDrawBetweenEqualsMovesLessThanK(t *testing.T) {
	cfg := config.Default().Elo
	r := New(cfg)
	newHome, newAway := r.Update(match("Leeds", "Hull", 1, 1))
	assert.Less(t, math.Abs(newHome-cfg.InitialRating), cfg.KFactor)
	assert.Less(t, math.Abs(newAway-cfg.InitialRating), cfg.KFactor)
	// home advantage means a draw slightly favours the away side
	assert.Less(t, newHome, cfg.InitialRating)
	assert.Greater(t, newAway, cfg.InitialRating)
}

func TestMarginMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, marginMultiplier(0))
	assert.Equal(t, 1.0, marginMultiplier(1))
	assert.Equal(t, 1.0, marginMultiplier(-1))
	assert.Equal(t, 1.5, marginMultiplier(2))
	assert.Equal(t, 1.5, marginMultiplier(-2))
	assert.InDelta(t, 14.0/8, marginMultiplier(3), 1e-12)
	assert.InDelta(t, 16.0/8, marginMultiplier(-5), 1e-12)
}

func TestBlowoutMovesMoreThanNarrowWin(t *testing.T) {
	narrow := New(config.Default().Elo)
	blowout := New(config.Default().Elo)
	narrowHome, _ := narrow.Update(match("Leeds", "Hull", 1, 0))
	blowoutHome, _ := blowout.Update(match("Leeds", "Hull", 4, 0))
	assert.Greater(t, blowoutHome, narrowHome)
}

func TestContextualBlendBelowThreshold(t *testing.T) {
	cfg := config.Default().Elo
	r := New(cfg)

	// one home win: raw home contextual rating jumped, but with a
	// single contextual match the blend stays close to global
	r.Update(match("Leeds", "Hull", 3, 0))
	global := r.Rating("Leeds")
	raw := r.home["Leeds"]
	blended := r.ContextualRating("Leeds", true)

	require.Greater(t, raw, global)
	weight := 1.0 / float64(cfg.BlendThreshold)
	assert.InDelta(t, weight*raw+(1-weight)*global, blended, 1e-9)
	assert.Less(t, blended, raw)

	// no away history yet: contextual away rating is just global
	assert.Equal(t, r.Rating("Leeds"), r.ContextualRating("Leeds", false))
}

func TestContextualFullWeightAtThreshold(t *testing.T) {
	cfg := config.Default().Elo
	r := New(cfg)
	for i := 0; i < cfg.BlendThreshold; i++ {
		r.Update(match("Leeds", "Hull", 2, 0))
	}
	assert.InDelta(t, r.home["Leeds"], r.ContextualRating("Leeds", true), 1e-9)
}

func TestSeasonTransitionRegressesContextual(t *testing.T) {
	cfg := config.Default().Elo
	r := New(cfg)
	for i := 0; i < 12; i++ {
		r.Update(match("Leeds", "Hull", 2, 0))
	}
	global := r.Rating("Leeds")
	rawBefore := r.home["Leeds"]
	require.Greater(t, rawBefore, global)

	r.SeasonTransition()

	expected := global + cfg.SeasonRetain*(rawBefore-global)
	assert.InDelta(t, expected, r.home["Leeds"], 1e-9)
	assert.Equal(t, cfg.SeasonCountCap, r.homeCount["Leeds"])
}

func TestProbabilities(t *testing.T) {
	cfg := config.Default().Elo
	r := New(cfg)

	// equal unseen teams: home edge from home advantage, draw at its base
	p := r.Probabilities("Leeds", "Hull")
	assert.InDelta(t, 1.0, p.Sum(), 1e-9)
	assert.Greater(t, p.Home, p.Away)
	assert.Greater(t, p.Draw, 0.15)

	// build a big rating gap and check the draw share shrinks
	for i := 0; i < 20; i++ {
		r.Update(match("Leeds", "Hull", 3, 0))
	}
	mismatch := r.Probabilities("Leeds", "Hull")
	assert.InDelta(t, 1.0, mismatch.Sum(), 1e-9)
	assert.Greater(t, mismatch.Home, p.Home)
	assert.Less(t, mismatch.Draw, p.Draw)
}
