// Package dixoncoles fits a bivariate Poisson score model with the
// Dixon-Coles low-score correlation correction and exponential
// time-decay weighting, and derives market probabilities from the
// resulting scoreline grid.
package dixoncoles

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/HatemAHMED80/kickstat/internal/config"
	"github.com/HatemAHMED80/kickstat/pkg/history"
)

// ErrInsufficientData is returned when too few matches are available to
// fit the model. Callers fall back to a simpler model tier.
var ErrInsufficientData = errors.New("insufficient match data to fit model")

// ErrNotFitted is returned by Predict before a successful Fit.
var ErrNotFitted = errors.New("model has not been fitted")

// Ratings holds the exported model parameters after a fit. Attack and
// defense are multipliers normalized so the population mean of each is
// exactly 1; HomeAdvantage is a per-team fractional boost on the home
// side's expected goals.
type Ratings struct {
	Attack        map[string]float64
	Defense       map[string]float64
	HomeAdvantage map[string]float64

	// Mu is the weighted league-average goals per team per match.
	Mu float64
	// Rho is the low-score correlation parameter.
	Rho float64

	LogLikelihood float64
	Iterations    int
	Converged     bool
}

// Model is a fitted Dixon-Coles score model. It is replaced wholesale
// on each refit and owned by a single backtest or prediction run.
type Model struct {
	cfg     config.ModelConfig
	ratings *Ratings
}

// New returns an unfitted model with the given parameters.
func New(cfg config.ModelConfig) *Model {
	return &Model{cfg: cfg}
}

// Ratings returns the fitted parameters, or nil before a fit.
func (m *Model) Ratings() *Ratings {
	return m.ratings
}

// Fitted reports whether the model is ready to predict.
func (m *Model) Fitted() bool {
	return m.ratings != nil
}

// fitState carries the internal log-space parameters during
// optimization: lambdaHome = exp(c + a_h + d_a + g_h) and
// lambdaAway = exp(c + a_a + d_h), where a and d are zero-mean.
type fitState struct {
	teams     []string
	attack    map[string]float64
	defense   map[string]float64
	homeAdv   map[string]float64 // log(1 + advantage)
	intercept float64
	rho       float64

	matches []history.MatchRecord
	weights []float64
}

// Fit estimates all parameters from matches played strictly before the
// reference date, each weighted by exp(-ln2 * daysAgo / halfLife).
// Fitting is idempotent for a given window: the optimizer starts from
// the same initial point every time.
func (m *Model) Fit(matches []history.MatchRecord, reference time.Time) error {
	st := m.newFitState(matches, reference)
	if len(st.matches) < m.cfg.MinMatches {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(st.matches), m.cfg.MinMatches)
	}

	prevLL := m.logLikelihood(st)
	iterations := 0
	converged := false
	for iter := 0; iter < m.cfg.MaxIterations; iter++ {
		m.ascendStep(st)
		if (iter+1)%m.cfg.RhoInterval == 0 {
			st.rho = m.searchRho(st)
		}
		ll := m.logLikelihood(st)
		iterations = iter + 1
		if iter > 0 && math.Abs(ll-prevLL) < m.cfg.Tolerance {
			converged = true
			prevLL = ll
			break
		}
		prevLL = ll
	}
	st.rho = m.searchRho(st)

	if !converged {
		log.Warn().
			Int("iterations", iterations).
			Float64("log_likelihood", prevLL).
			Msg("score model did not converge, using best-effort parameters")
	}

	m.ratings = exportRatings(st, m.logLikelihood(st), iterations, converged)
	return nil
}

func (m *Model) newFitState(matches []history.MatchRecord, reference time.Time) *fitState {
	st := &fitState{
		attack:  make(map[string]float64),
		defense: make(map[string]float64),
		homeAdv: make(map[string]float64),
		rho:     (m.cfg.RhoMin + m.cfg.RhoMax) / 2,
	}

	var goalSum, weightSum float64
	for _, match := range matches {
		if !match.Kickoff.Before(reference) {
			continue
		}
		days := reference.Sub(match.Kickoff).Hours() / 24
		w := math.Exp(-math.Ln2 * days / m.cfg.HalfLifeDays)
		st.matches = append(st.matches, match)
		st.weights = append(st.weights, w)
		goalSum += w * float64(match.TotalGoals())
		weightSum += w
	}

	seen := make(map[string]bool)
	for _, match := range st.matches {
		for _, team := range []string{match.HomeTeam, match.AwayTeam} {
			if !seen[team] {
				seen[team] = true
				st.teams = append(st.teams, team)
				st.attack[team] = 0
				st.defense[team] = 0
				st.homeAdv[team] = math.Log(1 + m.cfg.InitialHomeAdv)
			}
		}
	}

	if weightSum > 0 {
		// goals per team per match, discounting the shared home boost
		st.intercept = math.Log(goalSum/(2*weightSum)) - math.Log(1+m.cfg.InitialHomeAdv)/2
	}
	return st
}

// ascendStep performs one weighted gradient ascent step on the Poisson
// part of the likelihood, rebalances the intercept in closed form, and
// re-applies the zero-mean constraint on attack and defense.
func (m *Model) ascendStep(st *fitState) {
	gradAttack := make(map[string]float64, len(st.teams))
	gradDefense := make(map[string]float64, len(st.teams))
	gradHomeAdv := make(map[string]float64, len(st.teams))

	var observed, expected float64
	for i, match := range st.matches {
		w := st.weights[i]
		lambdaHome, lambdaAway := st.lambdas(match.HomeTeam, match.AwayTeam)

		residHome := w * (float64(match.HomeGoals) - lambdaHome)
		residAway := w * (float64(match.AwayGoals) - lambdaAway)

		gradAttack[match.HomeTeam] += residHome
		gradAttack[match.AwayTeam] += residAway
		gradDefense[match.AwayTeam] += residHome
		gradDefense[match.HomeTeam] += residAway
		gradHomeAdv[match.HomeTeam] += residHome

		observed += w * float64(match.TotalGoals())
		expected += w * (lambdaHome + lambdaAway)
	}

	// ridge pulls per-team home advantage toward the population mean
	var advMean float64
	for _, team := range st.teams {
		advMean += st.homeAdv[team]
	}
	advMean /= float64(len(st.teams))
	for _, team := range st.teams {
		gradHomeAdv[team] -= m.cfg.HomeAdvRidge * (st.homeAdv[team] - advMean)
	}

	for _, team := range st.teams {
		st.attack[team] += m.cfg.LearningRate * gradAttack[team]
		st.defense[team] += m.cfg.LearningRate * gradDefense[team]
		st.homeAdv[team] += m.cfg.LearningRate * gradHomeAdv[team]
	}

	// exact multiplicative rebalance of the intercept so total expected
	// goals track total observed goals
	if observed > 0 && expected > 0 {
		st.intercept += math.Log(observed / expected)
	}

	st.normalize()
}

// normalize shifts attack and defense to zero mean in log space,
// folding the shift into the intercept so every lambda is unchanged.
func (st *fitState) normalize() {
	var attackMean, defenseMean float64
	for _, team := range st.teams {
		attackMean += st.attack[team]
		defenseMean += st.defense[team]
	}
	n := float64(len(st.teams))
	attackMean /= n
	defenseMean /= n
	for _, team := range st.teams {
		st.attack[team] -= attackMean
		st.defense[team] -= defenseMean
	}
	st.intercept += attackMean + defenseMean
}

func (st *fitState) lambdas(home, away string) (float64, float64) {
	lambdaHome := math.Exp(st.intercept + st.attack[home] + st.defense[away] + st.homeAdv[home])
	lambdaAway := math.Exp(st.intercept + st.attack[away] + st.defense[home])
	return lambdaHome, lambdaAway
}

// logLikelihood computes the weighted log-likelihood of the current
// parameters including the low-score correction and the home-advantage
// ridge penalty.
func (m *Model) logLikelihood(st *fitState) float64 {
	return m.logLikelihoodAt(st, st.rho)
}

func (m *Model) logLikelihoodAt(st *fitState, rho float64) float64 {
	ll := 0.0
	for i, match := range st.matches {
		lambdaHome, lambdaAway := st.lambdas(match.HomeTeam, match.AwayTeam)
		p := poissonProb(lambdaHome, match.HomeGoals) *
			poissonProb(lambdaAway, match.AwayGoals) *
			lowScoreAdjustment(match.HomeGoals, match.AwayGoals, rho)
		if p > 0 {
			ll += st.weights[i] * math.Log(p)
		}
	}

	var advMean float64
	for _, team := range st.teams {
		advMean += st.homeAdv[team]
	}
	advMean /= float64(len(st.teams))
	for _, team := range st.teams {
		dev := st.homeAdv[team] - advMean
		ll -= 0.5 * m.cfg.HomeAdvRidge * dev * dev
	}
	return ll
}

// searchRho maximizes the full likelihood over the bounded correlation
// parameter by golden-section search, holding all ratings fixed.
func (m *Model) searchRho(st *fitState) float64 {
	const invPhi = 0.6180339887498949
	lo, hi := m.cfg.RhoMin, m.cfg.RhoMax
	a := hi - invPhi*(hi-lo)
	b := lo + invPhi*(hi-lo)
	fa := m.logLikelihoodAt(st, a)
	fb := m.logLikelihoodAt(st, b)
	for hi-lo > 1e-5 {
		if fa > fb {
			hi = b
			b, fb = a, fa
			a = hi - invPhi*(hi-lo)
			fa = m.logLikelihoodAt(st, a)
		} else {
			lo = a
			a, fa = b, fb
			b = lo + invPhi*(hi-lo)
			fb = m.logLikelihoodAt(st, b)
		}
	}
	return (lo + hi) / 2
}

// exportRatings converts log-space parameters to the multiplier form.
// Dividing by the arithmetic mean and folding it into mu keeps every
// lambda identical while making mean(attack) and mean(defense) exactly 1.
func exportRatings(st *fitState, ll float64, iterations int, converged bool) *Ratings {
	r := &Ratings{
		Attack:        make(map[string]float64, len(st.teams)),
		Defense:       make(map[string]float64, len(st.teams)),
		HomeAdvantage: make(map[string]float64, len(st.teams)),
		Rho:           st.rho,
		LogLikelihood: ll,
		Iterations:    iterations,
		Converged:     converged,
	}

	var attackMean, defenseMean float64
	for _, team := range st.teams {
		r.Attack[team] = math.Exp(st.attack[team])
		r.Defense[team] = math.Exp(st.defense[team])
		attackMean += r.Attack[team]
		defenseMean += r.Defense[team]
	}
	n := float64(len(st.teams))
	attackMean /= n
	defenseMean /= n
	for _, team := range st.teams {
		r.Attack[team] /= attackMean
		r.Defense[team] /= defenseMean
		r.HomeAdvantage[team] = math.Exp(st.homeAdv[team]) - 1
	}
	r.Mu = math.Exp(st.intercept) * attackMean * defenseMean
	return r
}

// Lambdas returns the expected goals for a fixture. Teams missing from
// the fitted rating set fall back to neutral multipliers of 1.0 with a
// warning, never a hard failure.
func (m *Model) Lambdas(home, away string) (float64, float64, error) {
	if m.ratings == nil {
		return 0, 0, ErrNotFitted
	}
	attackHome := m.teamParam(m.ratings.Attack, home)
	defenseHome := m.teamParam(m.ratings.Defense, home)
	attackAway := m.teamParam(m.ratings.Attack, away)
	defenseAway := m.teamParam(m.ratings.Defense, away)

	homeAdv, ok := m.ratings.HomeAdvantage[home]
	if !ok {
		homeAdv = m.meanHomeAdvantage()
	}

	lambdaHome := m.ratings.Mu * attackHome * defenseAway * (1 + homeAdv)
	lambdaAway := m.ratings.Mu * attackAway * defenseHome
	return lambdaHome, lambdaAway, nil
}

// Predict builds the normalized scoreline grid for a fixture.
func (m *Model) Predict(home, away string) (*ScoreMatrix, error) {
	lambdaHome, lambdaAway, err := m.Lambdas(home, away)
	if err != nil {
		return nil, err
	}
	return NewScoreMatrix(lambdaHome, lambdaAway, m.ratings.Rho, m.cfg.MaxGoals), nil
}

func (m *Model) teamParam(params map[string]float64, team string) float64 {
	if v, ok := params[team]; ok {
		return v
	}
	log.Warn().Str("team", team).Msg("team not in fitted ratings, using neutral parameters")
	return 1.0
}

func (m *Model) meanHomeAdvantage() float64 {
	if len(m.ratings.HomeAdvantage) == 0 {
		return m.cfg.InitialHomeAdv
	}
	var sum float64
	for _, adv := range m.ratings.HomeAdvantage {
		sum += adv
	}
	return sum / float64(len(m.ratings.HomeAdvantage))
}
