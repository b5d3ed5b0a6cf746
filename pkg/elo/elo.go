// Package elo maintains incremental team strength ratings with
// separate home and away context, giving a fast 1X2 estimate that is
// independent of goal distributions.
package elo

import (
	"math"

	"github.com/HatemAHMED80/kickstat/internal/config"
	"github.com/HatemAHMED80/kickstat/pkg/history"
	"github.com/HatemAHMED80/kickstat/pkg/prob"
)

// Ratings tracks a global rating per team plus contextual home/away
// ratings with their own match counters. Updated in place after every
// match; owned by a single backtest or prediction run.
type Ratings struct {
	cfg config.EloConfig

	global map[string]float64
	home   map[string]float64
	away   map[string]float64

	homeCount map[string]int
	awayCount map[string]int
}

// New returns an empty rating set.
func New(cfg config.EloConfig) *Ratings {
	return &Ratings{
		cfg:       cfg,
		global:    make(map[string]float64),
		home:      make(map[string]float64),
		away:      make(map[string]float64),
		homeCount: make(map[string]int),
		awayCount: make(map[string]int),
	}
}

// Rating returns the team's global rating, initial for unseen teams.
func (r *Ratings) Rating(team string) float64 {
	if v, ok := r.global[team]; ok {
		return v
	}
	return r.cfg.InitialRating
}

// ContextualRating returns the team's rating at the given venue,
// blended toward the global rating until the contextual match counter
// clears the blend threshold. The raw contextual value is never
// reported on its own for thin samples.
func (r *Ratings) ContextualRating(team string, home bool) float64 {
	ctx := r.home
	counts := r.homeCount
	if !home {
		ctx = r.away
		counts = r.awayCount
	}
	contextual, ok := ctx[team]
	if !ok {
		return r.Rating(team)
	}
	weight := math.Min(1, float64(counts[team])/float64(r.cfg.BlendThreshold))
	return weight*contextual + (1-weight)*r.Rating(team)
}

// expectedScore is the logistic expectation for the side whose rating
// edge is diff.
func (r *Ratings) expectedScore(diff float64) float64 {
	return 1 / (1 + math.Pow(10, -diff/400))
}

// marginMultiplier scales the K-factor so blowouts move ratings more
// than narrow wins.
func marginMultiplier(goalDiff int) float64 {
	margin := goalDiff
	if margin < 0 {
		margin = -margin
	}
	switch {
	case margin <= 1:
		return 1.0
	case margin == 2:
		return 1.5
	default:
		return (11 + float64(margin)) / 8
	}
}

// Update applies one match result to the global and contextual ratings
// of both teams and returns the new global ratings. Always succeeds.
func (r *Ratings) Update(match history.MatchRecord) (float64, float64) {
	homeRating := r.Rating(match.HomeTeam)
	awayRating := r.Rating(match.AwayTeam)

	var score float64
	switch match.Outcome() {
	case history.HomeWin:
		score = 1.0
	case history.Draw:
		score = 0.5
	case history.AwayWin:
		score = 0.0
	}

	expected := r.expectedScore(homeRating - awayRating + r.cfg.HomeAdvantage)
	delta := r.cfg.KFactor * marginMultiplier(match.HomeGoals-match.AwayGoals) * (score - expected)

	r.global[match.HomeTeam] = homeRating + delta
	r.global[match.AwayTeam] = awayRating - delta

	r.updateContextual(match.HomeTeam, true, delta)
	r.updateContextual(match.AwayTeam, false, -delta)

	return r.global[match.HomeTeam], r.global[match.AwayTeam]
}

func (r *Ratings) updateContextual(team string, home bool, delta float64) {
	ctx := r.home
	counts := r.homeCount
	if !home {
		ctx = r.away
		counts = r.awayCount
	}
	if _, ok := ctx[team]; !ok {
		ctx[team] = r.Rating(team)
	}
	ctx[team] += delta
	counts[team]++
}

// SeasonTransition regresses contextual ratings toward global and caps
// the carried-over match counters, modeling roster churn between
// seasons. Global ratings are kept.
func (r *Ratings) SeasonTransition() {
	for team, contextual := range r.home {
		r.home[team] = r.Rating(team) + r.cfg.SeasonRetain*(contextual-r.Rating(team))
		if r.homeCount[team] > r.cfg.SeasonCountCap {
			r.homeCount[team] = r.cfg.SeasonCountCap
		}
	}
	for team, contextual := range r.away {
		r.away[team] = r.Rating(team) + r.cfg.SeasonRetain*(contextual-r.Rating(team))
		if r.awayCount[team] > r.cfg.SeasonCountCap {
			r.awayCount[team] = r.cfg.SeasonCountCap
		}
	}
}

// Probabilities estimates the 1X2 distribution from the contextual
// rating gap. The draw share starts from a configured base between
// equal sides and shrinks as the mismatch grows; the remaining mass is
// split by the logistic expectation.
func (r *Ratings) Probabilities(home, away string) prob.Vector {
	diff := r.ContextualRating(home, true) - r.ContextualRating(away, false) + r.cfg.HomeAdvantage
	expected := r.expectedScore(diff)

	draw := r.cfg.DrawBase * (1 - math.Abs(2*expected-1))
	return prob.Vector{
		Home: expected * (1 - draw),
		Draw: draw,
		Away: (1 - expected) * (1 - draw),
	}
}
