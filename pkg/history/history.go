package history

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// History is an append-only, team-indexed store of played matches.
// Matches are kept in chronological order and every query takes a
// `before` boundary, so callers can only ever see the past relative to
// the fixture they are evaluating.
type History struct {
	matches []MatchRecord
	// per-team indices into matches, chronological
	byTeam map[string][]int
	sorted bool
}

// New returns an empty History.
func New() *History {
	return &History{
		byTeam: make(map[string][]int),
		sorted: true,
	}
}

// FromRecords builds a History from a batch of records, validating and
// sorting them chronologically. Invalid records are dropped with a
// warning rather than failing the batch.
func FromRecords(records []MatchRecord) *History {
	h := New()
	for _, r := range records {
		if err := h.Add(r); err != nil {
			log.Warn().Err(err).Str("home", r.HomeTeam).Str("away", r.AwayTeam).Msg("dropping invalid match record")
		}
	}
	return h
}

// Add appends a validated record. Records may arrive out of order; the
// index is re-sorted lazily on the next query.
func (h *History) Add(r MatchRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if n := len(h.matches); n > 0 && r.Kickoff.Before(h.matches[n-1].Kickoff) {
		h.sorted = false
	}
	h.matches = append(h.matches, r)
	idx := len(h.matches) - 1
	h.byTeam[r.HomeTeam] = append(h.byTeam[r.HomeTeam], idx)
	h.byTeam[r.AwayTeam] = append(h.byTeam[r.AwayTeam], idx)
	return nil
}

// Len returns the number of stored matches.
func (h *History) Len() int {
	return len(h.matches)
}

// Teams returns every team name seen so far.
func (h *History) Teams() []string {
	teams := make([]string, 0, len(h.byTeam))
	for t := range h.byTeam {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	return teams
}

// All returns every match in chronological order. The returned slice is
// shared; callers must not mutate it.
func (h *History) All() []MatchRecord {
	h.ensureSorted()
	return h.matches
}

// Before returns all matches with kickoff strictly before the boundary,
// in chronological order.
func (h *History) Before(boundary time.Time) []MatchRecord {
	h.ensureSorted()
	n := sort.Search(len(h.matches), func(i int) bool {
		return !h.matches[i].Kickoff.Before(boundary)
	})
	return h.matches[:n]
}

// LastN returns up to n most recent matches involving the team, all
// strictly before the boundary, most recent first.
func (h *History) LastN(team string, n int, before time.Time) []MatchRecord {
	h.ensureSorted()
	idxs := h.byTeam[team]
	out := make([]MatchRecord, 0, n)
	for i := len(idxs) - 1; i >= 0 && len(out) < n; i-- {
		m := h.matches[idxs[i]]
		if m.Kickoff.Before(before) {
			out = append(out, m)
		}
	}
	return out
}

// LastNAtVenue returns up to n most recent matches the team played at
// the given venue before the boundary, most recent first.
func (h *History) LastNAtVenue(team string, home bool, n int, before time.Time) []MatchRecord {
	h.ensureSorted()
	idxs := h.byTeam[team]
	out := make([]MatchRecord, 0, n)
	for i := len(idxs) - 1; i >= 0 && len(out) < n; i-- {
		m := h.matches[idxs[i]]
		if !m.Kickoff.Before(before) {
			continue
		}
		if (home && m.HomeTeam == team) || (!home && m.AwayTeam == team) {
			out = append(out, m)
		}
	}
	return out
}

// HeadToHead returns up to n most recent meetings between the two teams
// (either venue) before the boundary, most recent first.
func (h *History) HeadToHead(teamA, teamB string, n int, before time.Time) []MatchRecord {
	h.ensureSorted()
	a := h.byTeam[teamA]
	out := make([]MatchRecord, 0, n)
	for i := len(a) - 1; i >= 0 && len(out) < n; i-- {
		m := h.matches[a[i]]
		if !m.Kickoff.Before(before) {
			continue
		}
		if m.HomeTeam == teamB || m.AwayTeam == teamB {
			out = append(out, m)
		}
	}
	return out
}

// LastMatch returns the team's most recent match before the boundary,
// or nil when the team has no prior history.
func (h *History) LastMatch(team string, before time.Time) *MatchRecord {
	matches := h.LastN(team, 1, before)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// ensureSorted restores chronological order after out-of-order Adds.
// The per-team index lists are rebuilt alongside.
func (h *History) ensureSorted() {
	if h.sorted {
		return
	}
	sort.SliceStable(h.matches, func(i, j int) bool {
		return h.matches[i].Kickoff.Before(h.matches[j].Kickoff)
	})
	for t := range h.byTeam {
		h.byTeam[t] = h.byTeam[t][:0]
	}
	for i, m := range h.matches {
		h.byTeam[m.HomeTeam] = append(h.byTeam[m.HomeTeam], i)
		h.byTeam[m.AwayTeam] = append(h.byTeam[m.AwayTeam], i)
	}
	h.sorted = true
}
