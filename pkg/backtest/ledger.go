package backtest

import (
	"time"

	"github.com/google/uuid"

	"github.com/HatemAHMED80/kickstat/pkg/prob"
)

// Bet is one realized staking decision. Appended once, never mutated.
type Bet struct {
	ID        string
	HomeTeam  string
	AwayTeam  string
	Kickoff   time.Time
	Market    string
	Selection string

	Stake float64 // currency amount
	Odds  float64
	Won   bool
	PnL   float64

	BankrollAfter float64
}

// Prediction pairs a recorded probability vector with the realized
// outcome, for calibration metrics. The vector is recorded at predict
// time and never recomputed.
type Prediction struct {
	HomeTeam  string
	AwayTeam  string
	Kickoff   time.Time
	Probs     prob.Vector
	Outcome   int
	Agreement float64

	// Most likely exact score, present only when the score model had
	// been fitted at predict time.
	HasScore  bool
	ScoreHome int
	ScoreAway int
	HomeGoals int
	AwayGoals int
}

// Ledger is the append-only record of one backtest run: realized bets
// plus the parallel prediction/outcome sequence. Discarded and rebuilt
// per run.
type Ledger struct {
	Bets        []Bet
	Predictions []Prediction

	bankroll float64
}

// NewLedger starts a ledger at the given bankroll.
func NewLedger(initialBankroll float64) *Ledger {
	return &Ledger{bankroll: initialBankroll}
}

// Bankroll returns the current bankroll.
func (l *Ledger) Bankroll() float64 {
	return l.bankroll
}

// RecordPrediction appends one prediction/outcome pair.
func (l *Ledger) RecordPrediction(p Prediction) {
	l.Predictions = append(l.Predictions, p)
}

// Settle appends a resolved bet and moves the bankroll.
func (l *Ledger) Settle(home, away string, kickoff time.Time, market, selection string, stake, odds float64, won bool) Bet {
	pnl := -stake
	if won {
		pnl = stake * (odds - 1)
	}
	l.bankroll += pnl
	bet := Bet{
		ID:            uuid.NewString(),
		HomeTeam:      home,
		AwayTeam:      away,
		Kickoff:       kickoff,
		Market:        market,
		Selection:     selection,
		Stake:         stake,
		Odds:          odds,
		Won:           won,
		PnL:           pnl,
		BankrollAfter: l.bankroll,
	}
	l.Bets = append(l.Bets, bet)
	return bet
}
