// Package predictor is the facade external callers use: fit model
// state from a match window, predict fixtures, and evaluate bookmaker
// odds against the predictions.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HatemAHMED80/kickstat/internal/config"
	"github.com/HatemAHMED80/kickstat/pkg/backtest"
	"github.com/HatemAHMED80/kickstat/pkg/dixoncoles"
	"github.com/HatemAHMED80/kickstat/pkg/edge"
	"github.com/HatemAHMED80/kickstat/pkg/elo"
	"github.com/HatemAHMED80/kickstat/pkg/ensemble"
	"github.com/HatemAHMED80/kickstat/pkg/history"
	"github.com/HatemAHMED80/kickstat/pkg/prob"
)

// ErrNotFitted is returned by Predict and EvaluateEdge before Fit.
var ErrNotFitted = errors.New("predictor has not been fitted")

// Prediction is the full market view for one fixture.
type Prediction struct {
	HomeTeam string
	AwayTeam string

	Outcomes  prob.Vector
	Agreement float64

	Over15  float64
	Over25  float64
	Over35  float64
	Under25 float64

	BTTSYes float64
	BTTSNo  float64

	TopScores         []dixoncoles.Score
	ExpectedHomeGoals float64
	ExpectedAwayGoals float64
}

// Predictor owns one fitted set of model state. Each Fit replaces the
// state wholesale; instances are not shared across concurrent runs.
type Predictor struct {
	cfg *config.Config

	model     *dixoncoles.Model
	ratings   *elo.Ratings
	blender   *ensemble.Blender
	evaluator *edge.Evaluator
	fitted    bool
}

// New returns an unfitted predictor.
func New(cfg *config.Config) *Predictor {
	return &Predictor{
		cfg:       cfg,
		model:     dixoncoles.New(cfg.Model),
		ratings:   elo.New(cfg.Elo),
		blender:   ensemble.New(cfg.Ensemble),
		evaluator: edge.NewEvaluator(cfg.Betting),
	}
}

// Fit builds model state from matches played before the reference
// date. Idempotent for the same window: the score model refits from
// scratch and the ratings replay chronologically.
func (p *Predictor) Fit(matches []history.MatchRecord, reference time.Time) error {
	hist := history.FromRecords(matches)
	window := hist.Before(reference)

	if err := p.model.Fit(window, reference); err != nil {
		return fmt.Errorf("fitting score model: %w", err)
	}

	p.ratings = elo.New(p.cfg.Elo)
	seasonGap := time.Duration(p.cfg.Backtest.SeasonGapDays) * 24 * time.Hour
	for i, match := range window {
		if i > 0 && match.Kickoff.Sub(window[i-1].Kickoff) > seasonGap {
			p.ratings.SeasonTransition()
		}
		p.ratings.Update(match)
	}

	p.fitted = true
	return nil
}

// Predict derives every market from the fitted state. A pure function
// of the current state: no history is consumed.
func (p *Predictor) Predict(home, away string) (*Prediction, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}

	matrix, err := p.model.Predict(home, away)
	if err != nil {
		return nil, err
	}

	in := ensemble.Inputs{
		Score:  matrix.Outcomes(),
		Rating: p.ratings.Probabilities(home, away),
	}

	over15, _ := matrix.OverUnder(1.5)
	over25, under25 := matrix.OverUnder(2.5)
	over35, _ := matrix.OverUnder(3.5)
	bttsYes, bttsNo := matrix.BothTeamsToScore()
	expHome, expAway := matrix.ExpectedGoals()

	return &Prediction{
		HomeTeam:          home,
		AwayTeam:          away,
		Outcomes:          p.blender.Blend(in),
		Agreement:         p.blender.Agreement(in),
		Over15:            over15,
		Over25:            over25,
		Over35:            over35,
		Under25:           under25,
		BTTSYes:           bttsYes,
		BTTSNo:            bttsNo,
		TopScores:         matrix.TopScores(5),
		ExpectedHomeGoals: expHome,
		ExpectedAwayGoals: expAway,
	}, nil
}

// EvaluateEdge scores every market the quote covers. Malformed odds
// skip their market only; the prediction itself is never affected.
func (p *Predictor) EvaluateEdge(pred *Prediction, quote *history.OddsQuote) ([]edge.EdgeRecord, error) {
	if pred == nil {
		return nil, errors.New("nil prediction")
	}
	var records []edge.EdgeRecord

	if quote.HasOutcomeOdds() {
		r, err := p.evaluator.EvaluateOutcomes(pred.Outcomes, quote)
		if err == nil {
			records = append(records, r...)
		}
	}
	if quote != nil && quote.Over25 > 1 && quote.Under25 > 1 {
		r, err := p.evaluator.EvaluateBinary("over_under_2.5", "over", "under",
			pred.Over25, pred.Under25, quote.Over25, quote.Under25)
		if err == nil {
			records = append(records, r...)
		}
	}
	if quote != nil && quote.BTTSYes > 1 && quote.BTTSNo > 1 {
		r, err := p.evaluator.EvaluateBinary("btts", "yes", "no",
			pred.BTTSYes, pred.BTTSNo, quote.BTTSYes, quote.BTTSNo)
		if err == nil {
			records = append(records, r...)
		}
	}

	if len(records) == 0 {
		return nil, edge.ErrMalformedOdds
	}
	return records, nil
}

// RunBacktest walks the matches with a freshly constructed runner so
// no state leaks between runs.
func (p *Predictor) RunBacktest(ctx context.Context, matches []history.MatchRecord) (*backtest.Result, error) {
	return backtest.NewRunner(p.cfg).Run(ctx, matches)
}
