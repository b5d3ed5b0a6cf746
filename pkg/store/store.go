// Package store is the sqlite match archive. Ingested results are
// kept here so backtests and predictions can run without re-parsing
// source files.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/HatemAHMED80/kickstat/pkg/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	home_team            TEXT NOT NULL,
	away_team            TEXT NOT NULL,
	kickoff              TEXT NOT NULL,
	home_goals           INTEGER NOT NULL,
	away_goals           INTEGER NOT NULL,
	home_shots           INTEGER NOT NULL DEFAULT -1,
	away_shots           INTEGER NOT NULL DEFAULT -1,
	home_shots_on_target INTEGER NOT NULL DEFAULT -1,
	away_shots_on_target INTEGER NOT NULL DEFAULT -1,
	home_corners         INTEGER NOT NULL DEFAULT -1,
	away_corners         INTEGER NOT NULL DEFAULT -1,
	home_fouls           INTEGER NOT NULL DEFAULT -1,
	away_fouls           INTEGER NOT NULL DEFAULT -1,
	odds_home            REAL,
	odds_draw            REAL,
	odds_away            REAL,
	odds_over25          REAL,
	odds_under25         REAL,
	odds_btts_yes        REAL,
	odds_btts_no         REAL,
	PRIMARY KEY (home_team, away_team, kickoff)
);
CREATE INDEX IF NOT EXISTS idx_matches_kickoff ON matches(kickoff);
`

const matchColumns = `home_team, away_team, kickoff, home_goals, away_goals,
	home_shots, away_shots, home_shots_on_target, away_shots_on_target,
	home_corners, away_corners, home_fouls, away_fouls,
	odds_home, odds_draw, odds_away, odds_over25, odds_under25,
	odds_btts_yes, odds_btts_no`

// Store wraps one sqlite database file. Not safe for concurrent
// writers; sqlite serializes them anyway.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the database at path and
// applies the schema. Pass ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("match store opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveMatches upserts the records in one transaction. Replaying a file
// that overlaps previously ingested rows is safe: the fixture key is
// (home, away, kickoff) and later rows win.
func (s *Store) SaveMatches(matches []history.MatchRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO matches (` + matchColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("refusing to store invalid record: %w", err)
		}
		var oh, od, oa, over, under, by, bn sql.NullFloat64
		if m.Odds != nil {
			oh = nullPrice(m.Odds.Home)
			od = nullPrice(m.Odds.Draw)
			oa = nullPrice(m.Odds.Away)
			over = nullPrice(m.Odds.Over25)
			under = nullPrice(m.Odds.Under25)
			by = nullPrice(m.Odds.BTTSYes)
			bn = nullPrice(m.Odds.BTTSNo)
		}
		_, err := stmt.Exec(
			m.HomeTeam, m.AwayTeam, m.Kickoff.UTC().Format(time.RFC3339),
			m.HomeGoals, m.AwayGoals,
			m.HomeShots, m.AwayShots, m.HomeShotsOnTarget, m.AwayShotsOnTarget,
			m.HomeCorners, m.AwayCorners, m.HomeFouls, m.AwayFouls,
			oh, od, oa, over, under, by, bn)
		if err != nil {
			return fmt.Errorf("inserting %s vs %s: %w", m.HomeTeam, m.AwayTeam, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	log.Info().Int("count", len(matches)).Msg("matches stored")
	return nil
}

// LoadMatches returns every stored match in kickoff order. RFC3339
// strings sort chronologically so the database does the ordering.
func (s *Store) LoadMatches() ([]history.MatchRecord, error) {
	rows, err := s.db.Query(`SELECT ` + matchColumns + ` FROM matches ORDER BY kickoff, home_team`)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

// LoadMatchesBetween returns matches with from <= kickoff < to.
func (s *Store) LoadMatchesBetween(from, to time.Time) ([]history.MatchRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+matchColumns+` FROM matches WHERE kickoff >= ? AND kickoff < ? ORDER BY kickoff, home_team`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

// CountMatches returns the number of stored matches.
func (s *Store) CountMatches() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM matches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting matches: %w", err)
	}
	return n, nil
}

func scanMatches(rows *sql.Rows) ([]history.MatchRecord, error) {
	var out []history.MatchRecord
	for rows.Next() {
		var m history.MatchRecord
		var kickoff string
		var oh, od, oa, over, under, by, bn sql.NullFloat64
		err := rows.Scan(
			&m.HomeTeam, &m.AwayTeam, &kickoff,
			&m.HomeGoals, &m.AwayGoals,
			&m.HomeShots, &m.AwayShots, &m.HomeShotsOnTarget, &m.AwayShotsOnTarget,
			&m.HomeCorners, &m.AwayCorners, &m.HomeFouls, &m.AwayFouls,
			&oh, &od, &oa, &over, &under, &by, &bn)
		if err != nil {
			return nil, fmt.Errorf("scanning match row: %w", err)
		}
		m.Kickoff, err = time.Parse(time.RFC3339, kickoff)
		if err != nil {
			return nil, fmt.Errorf("parsing stored kickoff %q: %w", kickoff, err)
		}
		if oh.Valid || od.Valid || oa.Valid || over.Valid || under.Valid || by.Valid || bn.Valid {
			m.Odds = &history.OddsQuote{
				Home:    oh.Float64,
				Draw:    od.Float64,
				Away:    oa.Float64,
				Over25:  over.Float64,
				Under25: under.Float64,
				BTTSYes: by.Float64,
				BTTSNo:  bn.Float64,
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating match rows: %w", err)
	}
	return out, nil
}

func nullPrice(v float64) sql.NullFloat64 {
	if v <= 1.0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
