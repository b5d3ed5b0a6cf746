// Package edge converts bookmaker odds into margin-free probabilities,
// measures model edge against them, and sizes stakes with a capped
// fractional Kelly rule.
package edge

import (
	"errors"
	"fmt"

	"github.com/HatemAHMED80/kickstat/internal/config"
	"github.com/HatemAHMED80/kickstat/pkg/history"
	"github.com/HatemAHMED80/kickstat/pkg/prob"
)

// ErrMalformedOdds is returned for decimal odds at or below 1.0 or a
// missing side of a market. The affected market is skipped; it never
// corrupts the probability prediction.
var ErrMalformedOdds = errors.New("malformed bookmaker odds")

// RiskLevel buckets a selection by how much trust the stake deserves.
type RiskLevel string

const (
	RiskSafe  RiskLevel = "safe"
	RiskValue RiskLevel = "value"
	RiskRisky RiskLevel = "risky"
)

// EdgeRecord is the evaluation of one (match, market, selection).
// Created once and never mutated.
type EdgeRecord struct {
	Market           string
	Selection        string
	ModelProbability float64
	FairProbability  float64
	EdgePercent      float64
	BestOdds         float64
	KellyStake       float64 // fraction of bankroll
	Risk             RiskLevel
}

// FairProbabilities removes the bookmaker margin by normalizing the
// reciprocals of the outcome odds to sum to exactly 1.
func FairProbabilities(odds []float64) ([]float64, error) {
	if len(odds) < 2 {
		return nil, fmt.Errorf("%w: need at least two outcomes, got %d", ErrMalformedOdds, len(odds))
	}
	inv := make([]float64, len(odds))
	var overround float64
	for i, o := range odds {
		if o <= 1.0 {
			return nil, fmt.Errorf("%w: odds %.3f at index %d", ErrMalformedOdds, o, i)
		}
		inv[i] = 1 / o
		overround += inv[i]
	}
	for i := range inv {
		inv[i] /= overround
	}
	return inv, nil
}

// Edge is the relative difference between model and fair probability,
// in percent.
func Edge(modelP, fairP float64) float64 {
	return (modelP - fairP) / fairP * 100
}

// KellyStake returns the fraction of bankroll to stake: the Kelly
// optimum floored at zero, scaled by the fractional factor and capped.
// Full Kelly is never recommended because probability estimation error
// makes it unstable.
func KellyStake(p, odds, fraction, cap float64) float64 {
	b := odds - 1
	if b <= 0 {
		return 0
	}
	q := 1 - p
	f := (b*p - q) / b
	if f <= 0 {
		return 0
	}
	f *= fraction
	if f > cap {
		return cap
	}
	return f
}

// Evaluator applies the staking policy to model predictions and quoted
// odds.
type Evaluator struct {
	cfg config.BettingConfig
}

// NewEvaluator returns an Evaluator with the given policy.
func NewEvaluator(cfg config.BettingConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// classify buckets a selection. Thresholds are tunable policy, not a
// structural invariant.
func (e *Evaluator) classify(p, edgePct float64) RiskLevel {
	switch {
	case p >= e.cfg.SafeMinProb && edgePct >= e.cfg.SafeMinEdge:
		return RiskSafe
	case p >= e.cfg.ValueMinProb && edgePct >= e.cfg.ValueMinEdge:
		return RiskValue
	}
	return RiskRisky
}

// record builds one EdgeRecord from a selection's numbers.
func (e *Evaluator) record(market, selection string, modelP, fairP, odds float64) EdgeRecord {
	edgePct := Edge(modelP, fairP)
	return EdgeRecord{
		Market:           market,
		Selection:        selection,
		ModelProbability: modelP,
		FairProbability:  fairP,
		EdgePercent:      edgePct,
		BestOdds:         odds,
		KellyStake:       KellyStake(modelP, odds, e.cfg.KellyFraction, e.cfg.MaxStake),
		Risk:             e.classify(modelP, edgePct),
	}
}

// EvaluateOutcomes scores the 1X2 market. A malformed quote returns
// ErrMalformedOdds and no records.
func (e *Evaluator) EvaluateOutcomes(model prob.Vector, quote *history.OddsQuote) ([]EdgeRecord, error) {
	if !quote.HasOutcomeOdds() {
		return nil, fmt.Errorf("%w: incomplete 1X2 quote", ErrMalformedOdds)
	}
	fair, err := FairProbabilities([]float64{quote.Home, quote.Draw, quote.Away})
	if err != nil {
		return nil, err
	}
	return []EdgeRecord{
		e.record("1X2", "home", model.Home, fair[0], quote.Home),
		e.record("1X2", "draw", model.Draw, fair[1], quote.Draw),
		e.record("1X2", "away", model.Away, fair[2], quote.Away),
	}, nil
}

// EvaluateBinary scores a two-way market such as over/under totals or
// both-teams-to-score.
func (e *Evaluator) EvaluateBinary(market, selA, selB string, pA, pB, oddsA, oddsB float64) ([]EdgeRecord, error) {
	fair, err := FairProbabilities([]float64{oddsA, oddsB})
	if err != nil {
		return nil, err
	}
	return []EdgeRecord{
		e.record(market, selA, pA, fair[0], oddsA),
		e.record(market, selB, pB, fair[1], oddsB),
	}, nil
}

// Stakeable reports whether the policy allows betting this record.
func (e *Evaluator) Stakeable(r EdgeRecord) bool {
	return r.KellyStake > 0 &&
		r.EdgePercent >= e.cfg.MinEdge &&
		r.ModelProbability >= e.cfg.MinProb
}
