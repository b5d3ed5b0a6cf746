// Package backtest runs the walk-forward simulation: feed, refit,
// predict, settle, one match at a time in chronological order, with no
// step ever seeing data from a later match.
package backtest

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/HatemAHMED80/kickstat/internal/config"
	"github.com/HatemAHMED80/kickstat/pkg/calibration"
	"github.com/HatemAHMED80/kickstat/pkg/dixoncoles"
	"github.com/HatemAHMED80/kickstat/pkg/edge"
	"github.com/HatemAHMED80/kickstat/pkg/elo"
	"github.com/HatemAHMED80/kickstat/pkg/ensemble"
	"github.com/HatemAHMED80/kickstat/pkg/features"
	"github.com/HatemAHMED80/kickstat/pkg/history"
	"github.com/HatemAHMED80/kickstat/pkg/prob"
	"github.com/HatemAHMED80/kickstat/pkg/stacking"
)

// Result bundles the ledger of one run with its aggregate reports.
type Result struct {
	Ledger      *Ledger
	Calibration CalibrationReport
	Betting     BettingReport
}

// Runner owns all model state for one walk-forward run. Independent
// runs never share state; construct a new Runner per run.
type Runner struct {
	cfg *config.Config

	hist       *history.History
	model      *dixoncoles.Model
	ratings    *elo.Ratings
	builder    *features.Builder
	classifier *stacking.Classifier
	calibrator *calibration.Calibrator
	blender    *ensemble.Blender
	evaluator  *edge.Evaluator

	// training rows accumulated at predict time, so retraining never
	// recomputes features at a different reference date
	featRows [][]float64
	labels   []int

	// raw classifier outputs with realized outcomes, chronological,
	// for fitting the calibrator
	stackPreds    []prob.Vector
	stackOutcomes []int
}

// NewRunner builds a runner with freshly constructed model instances.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{
		cfg:        cfg,
		hist:       history.New(),
		model:      dixoncoles.New(cfg.Model),
		ratings:    elo.New(cfg.Elo),
		builder:    features.NewBuilder(cfg.Features),
		classifier: stacking.New(cfg.Stacking),
		calibrator: calibration.New(cfg.Calibration),
		blender:    ensemble.New(cfg.Ensemble),
		evaluator:  edge.NewEvaluator(cfg.Betting),
	}
}

// Run walks the matches chronologically. Cancelling the context stops
// the iteration; the partial ledger accumulated so far is returned
// along with the context error.
func (r *Runner) Run(ctx context.Context, matches []history.MatchRecord) (*Result, error) {
	ordered := make([]history.MatchRecord, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kickoff.Before(ordered[j].Kickoff)
	})

	ledger := NewLedger(r.cfg.Backtest.InitialBankroll)
	seasonGap := time.Duration(r.cfg.Backtest.SeasonGapDays) * 24 * time.Hour

	for i, match := range ordered {
		if err := ctx.Err(); err != nil {
			return r.result(ledger), err
		}

		// feed: the previous match's result becomes known only now
		if i > 0 {
			prev := ordered[i-1]
			if match.Kickoff.Sub(prev.Kickoff) > seasonGap {
				log.Debug().Time("boundary", match.Kickoff).Msg("season gap detected, regressing contextual ratings")
				r.ratings.SeasonTransition()
			}
			if err := r.hist.Add(prev); err != nil {
				log.Warn().Err(err).Msg("skipping invalid match record")
			} else {
				r.ratings.Update(prev)
			}
		}

		if i < r.cfg.Backtest.WarmupMatches {
			continue
		}

		r.maybeRefit(i, match.Kickoff)
		r.maybeRetrain(i)

		final, agreement, matrix := r.predict(match)
		outcome := int(match.Outcome())
		pred := Prediction{
			HomeTeam:  match.HomeTeam,
			AwayTeam:  match.AwayTeam,
			Kickoff:   match.Kickoff,
			Probs:     final,
			Outcome:   outcome,
			Agreement: agreement,
			HomeGoals: match.HomeGoals,
			AwayGoals: match.AwayGoals,
		}
		if matrix != nil {
			if top := matrix.TopScores(1); len(top) == 1 {
				pred.HasScore = true
				pred.ScoreHome = top[0].HomeGoals
				pred.ScoreAway = top[0].AwayGoals
			}
		}
		ledger.RecordPrediction(pred)

		r.settle(ledger, match, final, matrix)
	}

	return r.result(ledger), nil
}

func (r *Runner) result(ledger *Ledger) *Result {
	return &Result{
		Ledger:      ledger,
		Calibration: ledger.Calibration(),
		Betting:     ledger.Betting(),
	}
}

// maybeRefit refits the score model at the configured interval using
// only matches already fed into the history.
func (r *Runner) maybeRefit(i int, reference time.Time) {
	due := !r.model.Fitted() || (i-r.cfg.Backtest.WarmupMatches)%r.cfg.Backtest.RefitInterval == 0
	if !due {
		return
	}
	if err := r.model.Fit(r.hist.All(), reference); err != nil {
		if errors.Is(err, dixoncoles.ErrInsufficientData) {
			log.Debug().Err(err).Msg("score model skipped, not enough history yet")
			return
		}
		log.Warn().Err(err).Msg("score model fit failed")
	}
}

// maybeRetrain retrains the classifier and calibrator at their
// interval on the expanding window of stored feature rows.
func (r *Runner) maybeRetrain(i int) {
	if (i-r.cfg.Backtest.WarmupMatches)%r.cfg.Backtest.RetrainInterval != 0 {
		return
	}
	if err := r.classifier.Train(r.featRows, r.labels); err != nil {
		if !errors.Is(err, stacking.ErrInsufficientSamples) {
			log.Warn().Err(err).Msg("classifier training failed")
		}
	}
	if err := r.calibrator.Fit(r.stackPreds, r.stackOutcomes); err != nil {
		if !errors.Is(err, calibration.ErrInsufficientSamples) {
			log.Warn().Err(err).Msg("calibrator fit failed")
		}
	}
}

// predict computes the ensemble probability for one fixture and stores
// the feature row for later training. The returned matrix is nil when
// the score model is not yet fitted.
func (r *Runner) predict(match history.MatchRecord) (prob.Vector, float64, *dixoncoles.ScoreMatrix) {
	ratingProbs := r.ratings.Probabilities(match.HomeTeam, match.AwayTeam)

	var matrix *dixoncoles.ScoreMatrix
	scoreProbs := ratingProbs
	if r.model.Fitted() {
		if m, err := r.model.Predict(match.HomeTeam, match.AwayTeam); err == nil {
			matrix = m
			scoreProbs = m.Outcomes()
		}
	}

	fv := r.builder.Compute(match.HomeTeam, match.AwayTeam, match.Kickoff, r.hist, scoreProbs, ratingProbs)

	in := ensemble.Inputs{Score: scoreProbs, Rating: ratingProbs}
	if r.classifier.Trained() {
		if raw, err := r.classifier.Predict(fv); err == nil {
			calibrated := r.calibrator.Calibrate(raw)
			in.Stacking = &calibrated
			r.stackPreds = append(r.stackPreds, raw)
			r.stackOutcomes = append(r.stackOutcomes, int(match.Outcome()))
		}
	}

	r.featRows = append(r.featRows, fv)
	r.labels = append(r.labels, int(match.Outcome()))

	return r.blender.Blend(in), r.blender.Agreement(in), matrix
}

// settle evaluates every quoted market, stakes the best qualifying
// selection per market, and books the realized result. Malformed odds
// skip their market only.
func (r *Runner) settle(ledger *Ledger, match history.MatchRecord, final prob.Vector, matrix *dixoncoles.ScoreMatrix) {
	quote := match.Odds
	if quote == nil {
		return
	}

	if quote.HasOutcomeOdds() {
		records, err := r.evaluator.EvaluateOutcomes(final, quote)
		if err == nil {
			won := func(rec edge.EdgeRecord) bool {
				return rec.Selection == match.Outcome().String()
			}
			r.placeBest(ledger, match, records, won)
		} else {
			log.Debug().Err(err).Msg("skipping 1X2 market")
		}
	}

	// totals and both-to-score need the scoreline grid
	if matrix == nil {
		return
	}

	if quote.Over25 > 1 && quote.Under25 > 1 {
		over, under := matrix.OverUnder(2.5)
		records, err := r.evaluator.EvaluateBinary("over_under_2.5", "over", "under", over, under, quote.Over25, quote.Under25)
		if err == nil {
			won := func(rec edge.EdgeRecord) bool {
				return (rec.Selection == "over") == (match.TotalGoals() > 2)
			}
			r.placeBest(ledger, match, records, won)
		}
	}

	if quote.BTTSYes > 1 && quote.BTTSNo > 1 {
		yes, no := matrix.BothTeamsToScore()
		records, err := r.evaluator.EvaluateBinary("btts", "yes", "no", yes, no, quote.BTTSYes, quote.BTTSNo)
		if err == nil {
			won := func(rec edge.EdgeRecord) bool {
				return (rec.Selection == "yes") == match.BothScored()
			}
			r.placeBest(ledger, match, records, won)
		}
	}
}

// placeBest stakes at most one selection per market: the qualifying
// record with the highest edge.
func (r *Runner) placeBest(ledger *Ledger, match history.MatchRecord, records []edge.EdgeRecord, won func(edge.EdgeRecord) bool) {
	best := -1
	for i, rec := range records {
		if !r.evaluator.Stakeable(rec) {
			continue
		}
		if best < 0 || rec.EdgePercent > records[best].EdgePercent {
			best = i
		}
	}
	if best < 0 || ledger.Bankroll() <= 0 {
		return
	}
	rec := records[best]
	stake := rec.KellyStake * ledger.Bankroll()
	ledger.Settle(match.HomeTeam, match.AwayTeam, match.Kickoff, rec.Market, rec.Selection, stake, rec.BestOdds, won(rec))
}
