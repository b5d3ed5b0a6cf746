package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatemAHMED80/kickstat/pkg/prob"
)

func kickoff() time.Time {
	return time.Date(2024, 9, 1, 15, 0, 0, 0, time.UTC)
}

func TestSettleMovesBankroll(t *testing.T) {
	l := NewLedger(1000)

	win := l.Settle("Leeds", "Hull", kickoff(), "1X2", "home", 50, 2.2, true)
	assert.InDelta(t, 60.0, win.PnL, 1e-9)
	assert.InDelta(t, 1060.0, l.Bankroll(), 1e-9)
	assert.InDelta(t, 1060.0, win.BankrollAfter, 1e-9)

	loss := l.Settle("York", "Hull", kickoff(), "1X2", "away", 40, 3.0, false)
	assert.InDelta(t, -40.0, loss.PnL, 1e-9)
	assert.InDelta(t, 1020.0, l.Bankroll(), 1e-9)

	require.Len(t, l.Bets, 2)
	assert.NotEqual(t, l.Bets[0].ID, l.Bets[1].ID)
}

func TestBettingReportAggregation(t *testing.T) {
	l := NewLedger(1000)
	l.Settle("A", "B", kickoff(), "1X2", "home", 100, 2.0, true)
	l.Settle("C", "D", kickoff(), "1X2", "away", 100, 3.0, false)
	l.Settle("E", "F", kickoff(), "over_under_2.5", "over", 50, 1.9, true)

	report := l.Betting()
	assert.Equal(t, 3, report.Bets)
	assert.Equal(t, 2, report.Wins)
	assert.InDelta(t, 250.0, report.TotalStaked, 1e-9)
	assert.InDelta(t, 100-100+45.0, report.TotalPnL, 1e-9)
	assert.InDelta(t, 45.0/250.0, report.ROI, 1e-9)
	assert.InDelta(t, 2.0/3.0, report.WinRate, 1e-9)

	ou := report.PerMarket["over_under_2.5"]
	assert.Equal(t, 1, ou.Bets)
	assert.InDelta(t, 45.0/50.0, ou.ROI, 1e-9)
}

func TestCalibrationPerfectPredictions(t *testing.T) {
	l := NewLedger(0)
	for i := 0; i < 100; i++ {
		outcome := i % 3
		v := prob.Vector{Home: 0.0001, Draw: 0.0001, Away: 0.0001}
		switch outcome {
		case prob.Home:
			v.Home = 0.9998
		case prob.Draw:
			v.Draw = 0.9998
		case prob.Away:
			v.Away = 0.9998
		}
		l.RecordPrediction(Prediction{Probs: v, Outcome: outcome})
	}

	cal := l.Calibration()
	assert.Equal(t, 100, cal.Samples)
	assert.Equal(t, 1.0, cal.Accuracy)
	assert.Less(t, cal.Brier, 0.01)
	assert.Less(t, cal.ECE, 0.01)
	assert.Less(t, cal.LogLoss, 0.01)
}

func TestCalibrationScoreAccuracy(t *testing.T) {
	l := NewLedger(0)
	v := prob.Vector{Home: 0.5, Draw: 0.3, Away: 0.2}

	l.RecordPrediction(Prediction{Probs: v, Outcome: prob.Home,
		HasScore: true, ScoreHome: 2, ScoreAway: 1, HomeGoals: 2, AwayGoals: 1})
	l.RecordPrediction(Prediction{Probs: v, Outcome: prob.Home,
		HasScore: true, ScoreHome: 1, ScoreAway: 0, HomeGoals: 3, AwayGoals: 0})
	// no most likely score recorded, excluded from the hit rate
	l.RecordPrediction(Prediction{Probs: v, Outcome: prob.Draw, HomeGoals: 1, AwayGoals: 1})

	cal := l.Calibration()
	assert.Equal(t, 2, cal.ScoreSamples)
	assert.InDelta(t, 0.5, cal.ScoreAccuracy, 1e-9)
}

func TestCalibrationEmptyLedger(t *testing.T) {
	l := NewLedger(0)
	cal := l.Calibration()
	assert.Zero(t, cal.Samples)
	assert.Zero(t, cal.Brier)
}
