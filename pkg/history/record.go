package history

import (
	"fmt"
	"time"
)

// Outcome is the full-time result of a match from the home side's view.
type Outcome int

const (
	HomeWin Outcome = iota
	Draw
	AwayWin
)

func (o Outcome) String() string {
	switch o {
	case HomeWin:
		return "home"
	case Draw:
		return "draw"
	case AwayWin:
		return "away"
	}
	return "unknown"
}

// MatchRecord is an immutable historical fact about one played fixture.
// Optional statistic fields default to -1 to distinguish "not recorded"
// from a genuine zero.
type MatchRecord struct {
	HomeTeam string
	AwayTeam string
	Kickoff  time.Time

	HomeGoals int
	AwayGoals int

	// Optional action stats
	HomeShots         int
	AwayShots         int
	HomeShotsOnTarget int
	AwayShotsOnTarget int
	HomeCorners       int
	AwayCorners       int
	HomeFouls         int
	AwayFouls         int

	// Optional bookmaker odds, decimal format
	Odds *OddsQuote
}

// OddsQuote carries decimal odds per market for one fixture. A zero or
// negative price means the market side was not quoted.
type OddsQuote struct {
	Home float64
	Draw float64
	Away float64

	Over25  float64
	Under25 float64

	BTTSYes float64
	BTTSNo  float64
}

// NewMatchRecord builds a record with every optional stat set to the -1
// "not recorded" sentinel.
func NewMatchRecord(home, away string, kickoff time.Time, homeGoals, awayGoals int) MatchRecord {
	return MatchRecord{
		HomeTeam:          home,
		AwayTeam:          away,
		Kickoff:           kickoff,
		HomeGoals:         homeGoals,
		AwayGoals:         awayGoals,
		HomeShots:         -1,
		AwayShots:         -1,
		HomeShotsOnTarget: -1,
		AwayShotsOnTarget: -1,
		HomeCorners:       -1,
		AwayCorners:       -1,
		HomeFouls:         -1,
		AwayFouls:         -1,
	}
}

// Validate checks the fields set at ingestion. Records are validated
// once when added to a History and trusted afterwards.
func (m *MatchRecord) Validate() error {
	if m.HomeTeam == "" || m.AwayTeam == "" {
		return fmt.Errorf("match record missing team name: %q vs %q", m.HomeTeam, m.AwayTeam)
	}
	if m.HomeTeam == m.AwayTeam {
		return fmt.Errorf("match record with identical teams: %q", m.HomeTeam)
	}
	if m.Kickoff.IsZero() {
		return fmt.Errorf("match record %s vs %s has no kickoff time", m.HomeTeam, m.AwayTeam)
	}
	if m.HomeGoals < 0 || m.AwayGoals < 0 {
		return fmt.Errorf("match record %s vs %s has negative goals", m.HomeTeam, m.AwayTeam)
	}
	return nil
}

// Outcome returns the full-time result.
func (m *MatchRecord) Outcome() Outcome {
	switch {
	case m.HomeGoals > m.AwayGoals:
		return HomeWin
	case m.HomeGoals < m.AwayGoals:
		return AwayWin
	}
	return Draw
}

// TotalGoals returns the combined score.
func (m *MatchRecord) TotalGoals() int {
	return m.HomeGoals + m.AwayGoals
}

// BothScored reports whether both sides found the net.
func (m *MatchRecord) BothScored() bool {
	return m.HomeGoals > 0 && m.AwayGoals > 0
}

// GoalsFor returns the goals scored by the named team, or -1 if the
// team did not play in this match.
func (m *MatchRecord) GoalsFor(team string) int {
	switch team {
	case m.HomeTeam:
		return m.HomeGoals
	case m.AwayTeam:
		return m.AwayGoals
	}
	return -1
}

// GoalsAgainst returns the goals conceded by the named team, or -1 if
// the team did not play in this match.
func (m *MatchRecord) GoalsAgainst(team string) int {
	switch team {
	case m.HomeTeam:
		return m.AwayGoals
	case m.AwayTeam:
		return m.HomeGoals
	}
	return -1
}

// Points returns the league points the named team earned from this match.
func (m *MatchRecord) Points(team string) int {
	gf := m.GoalsFor(team)
	ga := m.GoalsAgainst(team)
	if gf < 0 {
		return 0
	}
	switch {
	case gf > ga:
		return 3
	case gf == ga:
		return 1
	}
	return 0
}

// HasOutcomeOdds reports whether a full 1X2 market was quoted.
func (q *OddsQuote) HasOutcomeOdds() bool {
	return q != nil && q.Home > 1.0 && q.Draw > 1.0 && q.Away > 1.0
}
