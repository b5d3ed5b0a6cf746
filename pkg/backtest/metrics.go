package backtest

import "math"

// CalibrationReport summarizes how well predicted probabilities match
// realized outcomes over a run.
type CalibrationReport struct {
	Samples  int
	Brier    float64
	LogLoss  float64
	ECE      float64
	Accuracy float64

	// Exact-score hit rate over predictions that carried a most likely
	// score (the score model was fitted when they were made).
	ScoreSamples  int
	ScoreAccuracy float64
}

// MarketStats is the betting breakdown for one market.
type MarketStats struct {
	Bets   int
	Wins   int
	Staked float64
	PnL    float64
	ROI    float64
}

// BettingReport aggregates the staking results of a run.
type BettingReport struct {
	Bets          int
	Wins          int
	TotalStaked   float64
	TotalPnL      float64
	ROI           float64
	WinRate       float64
	FinalBankroll float64
	PerMarket     map[string]MarketStats
}

// Calibration computes Brier score, log loss, expected calibration
// error and accuracy over the recorded predictions.
func (l *Ledger) Calibration() CalibrationReport {
	n := len(l.Predictions)
	if n == 0 {
		return CalibrationReport{}
	}

	const eps = 1e-12
	var brier, logLoss float64
	correct, scored, scoreCorrect := 0, 0, 0
	for _, p := range l.Predictions {
		if p.HasScore {
			scored++
			if p.ScoreHome == p.HomeGoals && p.ScoreAway == p.AwayGoals {
				scoreCorrect++
			}
		}
		for k := 0; k < 3; k++ {
			target := 0.0
			if p.Outcome == k {
				target = 1.0
			}
			d := p.Probs.At(k) - target
			brier += d * d
		}
		logLoss -= math.Log(math.Max(p.Probs.At(p.Outcome), eps))
		if p.Probs.Argmax() == p.Outcome {
			correct++
		}
	}

	var eceSum float64
	for k := 0; k < 3; k++ {
		eceSum += l.classECE(k)
	}

	report := CalibrationReport{
		Samples:      n,
		Brier:        brier / float64(n),
		LogLoss:      logLoss / float64(n),
		ECE:          eceSum / 3,
		Accuracy:     float64(correct) / float64(n),
		ScoreSamples: scored,
	}
	if scored > 0 {
		report.ScoreAccuracy = float64(scoreCorrect) / float64(scored)
	}
	return report
}

// classECE bins one class's predictions into ten equal-width bins and
// weights each bin's |confidence - frequency| gap by its population.
func (l *Ledger) classECE(class int) float64 {
	const bins = 10
	var count, sumPred, sumObs [bins]float64
	for _, p := range l.Predictions {
		v := p.Probs.At(class)
		b := int(v * bins)
		if b >= bins {
			b = bins - 1
		}
		count[b]++
		sumPred[b] += v
		if p.Outcome == class {
			sumObs[b]++
		}
	}
	var total, weighted float64
	for b := 0; b < bins; b++ {
		if count[b] == 0 {
			continue
		}
		total += count[b]
		weighted += count[b] * math.Abs(sumPred[b]/count[b]-sumObs[b]/count[b])
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// Betting aggregates ROI, win rate and per-market breakdowns.
func (l *Ledger) Betting() BettingReport {
	report := BettingReport{
		FinalBankroll: l.bankroll,
		PerMarket:     make(map[string]MarketStats),
	}
	for _, bet := range l.Bets {
		report.Bets++
		report.TotalStaked += bet.Stake
		report.TotalPnL += bet.PnL
		if bet.Won {
			report.Wins++
		}

		stats := report.PerMarket[bet.Market]
		stats.Bets++
		stats.Staked += bet.Stake
		stats.PnL += bet.PnL
		if bet.Won {
			stats.Wins++
		}
		report.PerMarket[bet.Market] = stats
	}
	if report.TotalStaked > 0 {
		report.ROI = report.TotalPnL / report.TotalStaked
	}
	if report.Bets > 0 {
		report.WinRate = float64(report.Wins) / float64(report.Bets)
	}
	for market, stats := range report.PerMarket {
		if stats.Staked > 0 {
			stats.ROI = stats.PnL / stats.Staked
			report.PerMarket[market] = stats
		}
	}
	return report
}
