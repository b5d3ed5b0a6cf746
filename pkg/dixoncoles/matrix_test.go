package dixoncoles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreMatrixSumsToOne(t *testing.T) {
	m := NewScoreMatrix(1.6, 1.1, -0.1, 8)
	assert.InDelta(t, 1.0, m.Total(), 1e-9)

	outcomes := m.Outcomes()
	assert.InDelta(t, 1.0, outcomes.Sum(), 1e-4)

	yes, no := m.BothTeamsToScore()
	assert.InDelta(t, 1.0, yes+no, 1e-9)

	over, under := m.OverUnder(2.5)
	assert.InDelta(t, 1.0, over+under, 1e-9)
}

func TestOverUnderMonotoneInLine(t *testing.T) {
	m := NewScoreMatrix(1.4, 1.2, -0.05, 8)
	over15, _ := m.OverUnder(1.5)
	over25, _ := m.OverUnder(2.5)
	over35, _ := m.OverUnder(3.5)
	assert.GreaterOrEqual(t, over15, over25)
	assert.GreaterOrEqual(t, over25, over35)
}

func TestStrongerAttackFavoursHomeWin(t *testing.T) {
	m := NewScoreMatrix(2.2, 0.8, -0.1, 8)
	outcomes := m.Outcomes()
	assert.Greater(t, outcomes.Home, outcomes.Away)
	assert.Greater(t, outcomes.Home, outcomes.Draw)
}

func TestNegativeRhoBoostsLowScoringDraws(t *testing.T) {
	flat := NewScoreMatrix(1.3, 1.1, 0, 8)
	corrected := NewScoreMatrix(1.3, 1.1, -0.15, 8)

	assert.Greater(t, corrected.CorrectScore(0, 0), flat.CorrectScore(0, 0))
	assert.Greater(t, corrected.CorrectScore(1, 1), flat.CorrectScore(1, 1))
	assert.Less(t, corrected.CorrectScore(1, 0), flat.CorrectScore(1, 0))
	assert.Less(t, corrected.CorrectScore(0, 1), flat.CorrectScore(0, 1))
	// untouched cells keep their relative mass
	assert.InDelta(t, 1.0, corrected.Total(), 1e-9)
}

func TestTopScores(t *testing.T) {
	m := NewScoreMatrix(1.5, 1.1, -0.1, 8)
	top := m.TopScores(5)
	require.Len(t, top, 5)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Probability, top[i].Probability)
	}
}

func TestCorrectScoreOutOfBounds(t *testing.T) {
	m := NewScoreMatrix(1.5, 1.1, -0.1, 4)
	assert.Zero(t, m.CorrectScore(5, 0))
	assert.Zero(t, m.CorrectScore(0, -1))
}

func TestExpectedGoalsNearLambda(t *testing.T) {
	// with a generous bound, truncation loss is negligible
	m := NewScoreMatrix(1.6, 1.2, 0, 10)
	home, away := m.ExpectedGoals()
	assert.InDelta(t, 1.6, home, 0.02)
	assert.InDelta(t, 1.2, away, 0.02)
}
