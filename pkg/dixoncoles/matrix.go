package dixoncoles

import (
	"math"
	"sort"

	"github.com/HatemAHMED80/kickstat/pkg/prob"
)

// ScoreMatrix is a grid of correct-score probabilities for one fixture,
// normalized so the whole grid sums to 1. All market probabilities are
// derived from it analytically.
type ScoreMatrix struct {
	Bound  int
	Matrix [][]float64
}

// Score is one cell of the matrix with its probability.
type Score struct {
	HomeGoals   int
	AwayGoals   int
	Probability float64
}

// NewScoreMatrix builds the score grid from the two Poisson means with
// the low-score correlation adjustment applied, then renormalizes so
// truncation at the bound never leaks probability mass.
func NewScoreMatrix(lambdaHome, lambdaAway, rho float64, bound int) *ScoreMatrix {
	matrix := make([][]float64, bound+1)
	for i := range matrix {
		matrix[i] = make([]float64, bound+1)
	}

	total := 0.0
	for homeGoals := 0; homeGoals <= bound; homeGoals++ {
		probHome := poissonProb(lambdaHome, homeGoals)
		for awayGoals := 0; awayGoals <= bound; awayGoals++ {
			probAway := poissonProb(lambdaAway, awayGoals)
			p := probHome * probAway * lowScoreAdjustment(homeGoals, awayGoals, rho)
			matrix[homeGoals][awayGoals] = p
			total += p
		}
	}
	if total > 0 {
		for i := range matrix {
			for j := range matrix[i] {
				matrix[i][j] /= total
			}
		}
	}

	return &ScoreMatrix{Bound: bound, Matrix: matrix}
}

// Outcomes returns the 1X2 probabilities by summing above, on and below
// the diagonal.
func (m *ScoreMatrix) Outcomes() prob.Vector {
	var v prob.Vector
	for homeGoals := 0; homeGoals <= m.Bound; homeGoals++ {
		for awayGoals := 0; awayGoals <= m.Bound; awayGoals++ {
			p := m.Matrix[homeGoals][awayGoals]
			switch {
			case homeGoals > awayGoals:
				v.Home += p
			case homeGoals == awayGoals:
				v.Draw += p
			default:
				v.Away += p
			}
		}
	}
	return v
}

// OverUnder returns the probability of total goals strictly over the
// line, and the complement. Lines are the usual half-goal values.
func (m *ScoreMatrix) OverUnder(line float64) (over, under float64) {
	for homeGoals := 0; homeGoals <= m.Bound; homeGoals++ {
		for awayGoals := 0; awayGoals <= m.Bound; awayGoals++ {
			p := m.Matrix[homeGoals][awayGoals]
			if float64(homeGoals+awayGoals) > line {
				over += p
			} else {
				under += p
			}
		}
	}
	return over, under
}

// BothTeamsToScore returns the yes/no probabilities, excluding the zero
// row and zero column for "yes".
func (m *ScoreMatrix) BothTeamsToScore() (yes, no float64) {
	for homeGoals := 0; homeGoals <= m.Bound; homeGoals++ {
		for awayGoals := 0; awayGoals <= m.Bound; awayGoals++ {
			p := m.Matrix[homeGoals][awayGoals]
			if homeGoals > 0 && awayGoals > 0 {
				yes += p
			} else {
				no += p
			}
		}
	}
	return yes, no
}

// CorrectScore returns the probability of a specific scoreline, zero
// beyond the grid bound.
func (m *ScoreMatrix) CorrectScore(homeGoals, awayGoals int) float64 {
	if homeGoals < 0 || awayGoals < 0 || homeGoals > m.Bound || awayGoals > m.Bound {
		return 0.0
	}
	return m.Matrix[homeGoals][awayGoals]
}

// TopScores returns the n most likely scorelines, highest first.
func (m *ScoreMatrix) TopScores(n int) []Score {
	scores := make([]Score, 0, (m.Bound+1)*(m.Bound+1))
	for homeGoals := 0; homeGoals <= m.Bound; homeGoals++ {
		for awayGoals := 0; awayGoals <= m.Bound; awayGoals++ {
			scores = append(scores, Score{homeGoals, awayGoals, m.Matrix[homeGoals][awayGoals]})
		}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Probability > scores[j].Probability
	})
	if n > len(scores) {
		n = len(scores)
	}
	return scores[:n]
}

// ExpectedGoals returns the expected home and away goals under the
// (truncated, renormalized) grid.
func (m *ScoreMatrix) ExpectedGoals() (home, away float64) {
	for homeGoals := 0; homeGoals <= m.Bound; homeGoals++ {
		for awayGoals := 0; awayGoals <= m.Bound; awayGoals++ {
			p := m.Matrix[homeGoals][awayGoals]
			home += float64(homeGoals) * p
			away += float64(awayGoals) * p
		}
	}
	return home, away
}

// Total returns the grid's probability mass. Always 1 within tolerance
// after construction.
func (m *ScoreMatrix) Total() float64 {
	total := 0.0
	for i := range m.Matrix {
		for _, p := range m.Matrix[i] {
			total += p
		}
	}
	return total
}

// poissonProb calculates P(X = k) for X ~ Poisson(lambda) in log space
// for numerical stability.
func poissonProb(lambda float64, k int) float64 {
	if k < 0 {
		return 0
	}
	if lambda <= 0 {
		if k == 0 {
			return 1.0
		}
		return 0
	}
	logProb := float64(k)*math.Log(lambda) - lambda - logFactorial(k)
	return math.Exp(logProb)
}

func logFactorial(n int) float64 {
	if n <= 1 {
		return 0
	}
	result := 0.0
	for i := 2; i <= n; i++ {
		result += math.Log(float64(i))
	}
	return result
}

// lowScoreAdjustment is the correlation correction applied to the four
// low-scoring cells. With rho below zero it moves mass onto 0-0 and 1-1
// at the expense of 1-0 and 0-1, which independent Poissons get wrong.
func lowScoreAdjustment(homeGoals, awayGoals int, rho float64) float64 {
	switch {
	case homeGoals == 0 && awayGoals == 0:
		return 1 - rho
	case homeGoals == 1 && awayGoals == 0:
		return 1 + rho
	case homeGoals == 0 && awayGoals == 1:
		return 1 + rho
	case homeGoals == 1 && awayGoals == 1:
		return 1 - rho
	default:
		return 1.0
	}
}
