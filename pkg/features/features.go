// Package features computes the fixed-order numeric feature vector the
// stacking classifier trains on. Every value is derived only from
// matches strictly before the reference date.
package features

import (
	"time"

	"github.com/HatemAHMED80/kickstat/internal/config"
	"github.com/HatemAHMED80/kickstat/pkg/history"
	"github.com/HatemAHMED80/kickstat/pkg/prob"
)

// Neutral defaults used when a team has no prior history. Chosen to
// look like an average side rather than a hopeless one, so the
// classifier is not biased toward "no data means weak".
const (
	defaultPPG          = 1.0
	defaultGoalsFor     = 1.25
	defaultGoalsAgainst = 1.25
	defaultShots        = 11.0
	defaultShotAccuracy = 0.36
	defaultCorners      = 5.0
	defaultFouls        = 11.0
	defaultDominance    = 1.0
	defaultRestDays     = 7.0
	defaultH2HRate      = 1.0 / 3
	defaultH2HGoals     = 2.5
)

// featureNames is the canonical ordering. Training and inference must
// see identical positions, so this list is append-only.
var featureNames = []string{
	"home_ppg", "home_goals_for", "home_goals_against",
	"home_shots", "home_shot_accuracy", "home_corners", "home_fouls", "home_dominance",
	"away_ppg", "away_goals_for", "away_goals_against",
	"away_shots", "away_shot_accuracy", "away_corners", "away_fouls", "away_dominance",
	"home_venue_ppg", "away_venue_ppg",
	"h2h_home_rate", "h2h_draw_rate", "h2h_goal_rate",
	"home_rest_days", "away_rest_days",
	"score_home", "score_draw", "score_away",
	"rating_home", "rating_draw", "rating_away",
}

// Builder computes feature vectors over a match history.
type Builder struct {
	cfg config.FeaturesConfig
}

// NewBuilder returns a Builder with the given window settings.
func NewBuilder(cfg config.FeaturesConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Names returns the canonical feature ordering.
func Names() []string {
	return featureNames
}

// Size is the feature vector length.
func Size() int {
	return len(featureNames)
}

// Compute builds the vector for a fixture at the reference date. The
// base model outputs are passed in so the builder itself stays a pure
// function of the history.
func (b *Builder) Compute(home, away string, reference time.Time, h *history.History, score, rating prob.Vector) []float64 {
	v := make([]float64, 0, len(featureNames))

	v = append(v, b.teamForm(home, reference, h)...)
	v = append(v, b.teamForm(away, reference, h)...)

	v = append(v, b.venuePPG(home, true, reference, h))
	v = append(v, b.venuePPG(away, false, reference, h))

	v = append(v, b.headToHead(home, away, reference, h)...)

	v = append(v, b.restDays(home, reference, h))
	v = append(v, b.restDays(away, reference, h))

	v = append(v, score.Home, score.Draw, score.Away)
	v = append(v, rating.Home, rating.Draw, rating.Away)
	return v
}

// teamForm returns the rolling-window block for one team: ppg, goals
// for/against, shots, shot accuracy, corners, fouls, dominance.
func (b *Builder) teamForm(team string, reference time.Time, h *history.History) []float64 {
	recent := h.LastN(team, b.cfg.FormWindow, reference)
	if len(recent) == 0 {
		return []float64{
			defaultPPG, defaultGoalsFor, defaultGoalsAgainst,
			defaultShots, defaultShotAccuracy, defaultCorners, defaultFouls, defaultDominance,
		}
	}

	var points, goalsFor, goalsAgainst float64
	var shotsFor, shotsAgainst, onTargetFor float64
	var cornersFor, cornersAgainst, fouls float64
	var shotMatches, cornerMatches, foulMatches int

	for _, m := range recent {
		points += float64(m.Points(team))
		goalsFor += float64(m.GoalsFor(team))
		goalsAgainst += float64(m.GoalsAgainst(team))

		atHome := m.HomeTeam == team
		sf, sa := m.HomeShots, m.AwayShots
		stf := m.HomeShotsOnTarget
		cf, ca := m.HomeCorners, m.AwayCorners
		ff := m.HomeFouls
		if !atHome {
			sf, sa = m.AwayShots, m.HomeShots
			stf = m.AwayShotsOnTarget
			cf, ca = m.AwayCorners, m.HomeCorners
			ff = m.AwayFouls
		}
		if sf >= 0 && sa >= 0 {
			shotsFor += float64(sf)
			shotsAgainst += float64(sa)
			if stf >= 0 {
				onTargetFor += float64(stf)
			}
			shotMatches++
		}
		if cf >= 0 && ca >= 0 {
			cornersFor += float64(cf)
			cornersAgainst += float64(ca)
			cornerMatches++
		}
		if ff >= 0 {
			fouls += float64(ff)
			foulMatches++
		}
	}

	n := float64(len(recent))
	out := []float64{points / n, goalsFor / n, goalsAgainst / n}

	if shotMatches > 0 {
		avgShots := shotsFor / float64(shotMatches)
		accuracy := defaultShotAccuracy
		if shotsFor > 0 {
			accuracy = onTargetFor / shotsFor
		}
		out = append(out, avgShots, accuracy)
	} else {
		out = append(out, defaultShots, defaultShotAccuracy)
	}

	if cornerMatches > 0 {
		out = append(out, cornersFor/float64(cornerMatches))
	} else {
		out = append(out, defaultCorners)
	}
	if foulMatches > 0 {
		out = append(out, fouls/float64(foulMatches))
	} else {
		out = append(out, defaultFouls)
	}

	// dominance: attacking output generated vs conceded
	if shotMatches > 0 || cornerMatches > 0 {
		for0 := shotsFor + 0.5*cornersFor
		against := shotsAgainst + 0.5*cornersAgainst
		if against > 0 {
			out = append(out, for0/against)
		} else {
			out = append(out, defaultDominance)
		}
	} else {
		out = append(out, defaultDominance)
	}
	return out
}

func (b *Builder) venuePPG(team string, home bool, reference time.Time, h *history.History) float64 {
	recent := h.LastNAtVenue(team, home, b.cfg.FormWindow, reference)
	if len(recent) == 0 {
		return defaultPPG
	}
	var points float64
	for _, m := range recent {
		points += float64(m.Points(team))
	}
	return points / float64(len(recent))
}

// headToHead returns the home side's win rate, the draw rate, and the
// average total goals over recent meetings.
func (b *Builder) headToHead(home, away string, reference time.Time, h *history.History) []float64 {
	meetings := h.HeadToHead(home, away, b.cfg.H2HWindow, reference)
	if len(meetings) == 0 {
		return []float64{defaultH2HRate, defaultH2HRate, defaultH2HGoals}
	}
	var wins, draws, goals float64
	for _, m := range meetings {
		switch {
		case m.Points(home) == 3:
			wins++
		case m.Points(home) == 1:
			draws++
		}
		goals += float64(m.TotalGoals())
	}
	n := float64(len(meetings))
	return []float64{wins / n, draws / n, goals / n}
}

func (b *Builder) restDays(team string, reference time.Time, h *history.History) float64 {
	last := h.LastMatch(team, reference)
	if last == nil {
		return defaultRestDays
	}
	days := reference.Sub(last.Kickoff).Hours() / 24
	if days > float64(b.cfg.MaxRestDays) {
		return float64(b.cfg.MaxRestDays)
	}
	return days
}
