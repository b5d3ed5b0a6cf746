package predictor

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatemAHMED80/kickstat/internal/config"
	"github.com/HatemAHMED80/kickstat/pkg/dixoncoles"
	"github.com/HatemAHMED80/kickstat/pkg/history"
)

func poissonSample(rng *rand.Rand, lambda float64) int {
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}

func simulatedSeason(seed int64, rounds int) []history.MatchRecord {
	rng := rand.New(rand.NewSource(seed))
	attack := []float64{1.3, 1.2, 1.1, 1.05, 1.0, 0.95, 0.9, 0.85, 0.8, 0.75}
	defense := []float64{0.8, 0.85, 0.9, 0.95, 1.0, 1.0, 1.05, 1.1, 1.15, 1.2}
	start := time.Date(2023, 8, 5, 15, 0, 0, 0, time.UTC)

	var matches []history.MatchRecord
	day := 0
	for round := 0; round < rounds; round++ {
		for i := range attack {
			for j := range attack {
				if i == j {
					continue
				}
				lambdaHome := 1.3 * attack[i] * defense[j] * 1.25
				lambdaAway := 1.3 * attack[j] * defense[i]
				m := history.NewMatchRecord(
					fmt.Sprintf("Team%d", i), fmt.Sprintf("Team%d", j),
					start.AddDate(0, 0, day), poissonSample(rng, lambdaHome), poissonSample(rng, lambdaAway))
				matches = append(matches, m)
				day++
			}
		}
	}
	return matches
}

func fittedPredictor(t *testing.T) *Predictor {
	t.Helper()
	matches := simulatedSeason(21, 2)
	p := New(config.Default())
	reference := matches[len(matches)-1].Kickoff.AddDate(0, 0, 1)
	require.NoError(t, p.Fit(matches, reference))
	return p
}

func TestPredictBeforeFit(t *testing.T) {
	p := New(config.Default())
	_, err := p.Predict("Team0", "Team1")
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestFitRejectsSmallWindow(t *testing.T) {
	p := New(config.Default())
	matches := simulatedSeason(5, 2)[:10]
	err := p.Fit(matches, matches[len(matches)-1].Kickoff.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, dixoncoles.ErrInsufficientData)
}

func TestPredictMarketsAreConsistent(t *testing.T) {
	p := fittedPredictor(t)

	pred, err := p.Predict("Team0", "Team9")
	require.NoError(t, err)

	assert.Equal(t, "Team0", pred.HomeTeam)
	assert.InDelta(t, 1.0, pred.Outcomes.Sum(), 1e-9)
	assert.Greater(t, pred.Outcomes.Home, pred.Outcomes.Away,
		"strongest home side should be favoured over the weakest away side")

	assert.InDelta(t, 1.0, pred.Over25+pred.Under25, 1e-9)
	assert.InDelta(t, 1.0, pred.BTTSYes+pred.BTTSNo, 1e-9)
	assert.GreaterOrEqual(t, pred.Over15, pred.Over25)
	assert.GreaterOrEqual(t, pred.Over25, pred.Over35)

	require.Len(t, pred.TopScores, 5)
	assert.GreaterOrEqual(t, pred.TopScores[0].Probability, pred.TopScores[4].Probability)

	assert.Greater(t, pred.ExpectedHomeGoals, 0.0)
	assert.Greater(t, pred.ExpectedAwayGoals, 0.0)
	assert.GreaterOrEqual(t, pred.Agreement, 0.0)
	assert.LessOrEqual(t, pred.Agreement, 1.0)
}

func TestFitIsRepeatable(t *testing.T) {
	matches := simulatedSeason(33, 2)
	reference := matches[len(matches)-1].Kickoff.AddDate(0, 0, 1)

	a := New(config.Default())
	b := New(config.Default())
	require.NoError(t, a.Fit(matches, reference))
	require.NoError(t, b.Fit(matches, reference))

	pa, err := a.Predict("Team3", "Team6")
	require.NoError(t, err)
	pb, err := b.Predict("Team3", "Team6")
	require.NoError(t, err)
	assert.InDelta(t, pa.Outcomes.Home, pb.Outcomes.Home, 1e-12)
	assert.InDelta(t, pa.Over25, pb.Over25, 1e-12)
}

func TestEvaluateEdgeCoversQuotedMarkets(t *testing.T) {
	p := fittedPredictor(t)
	pred, err := p.Predict("Team0", "Team9")
	require.NoError(t, err)

	quote := &history.OddsQuote{
		Home: 1.60, Draw: 4.20, Away: 6.00,
		Over25: 1.85, Under25: 1.95,
		BTTSYes: 1.90, BTTSNo: 1.90,
	}
	records, err := p.EvaluateEdge(pred, quote)
	require.NoError(t, err)
	require.Len(t, records, 7)

	markets := map[string]int{}
	for _, r := range records {
		markets[r.Market]++
		assert.Greater(t, r.BestOdds, 1.0)
		assert.GreaterOrEqual(t, r.FairProbability, 0.0)
	}
	assert.Equal(t, 3, markets["1X2"])
	assert.Equal(t, 2, markets["over_under_2.5"])
	assert.Equal(t, 2, markets["btts"])
}

func TestEvaluateEdgePartialQuote(t *testing.T) {
	p := fittedPredictor(t)
	pred, err := p.Predict("Team2", "Team7")
	require.NoError(t, err)

	// only the match result is quoted
	records, err := p.EvaluateEdge(pred, &history.OddsQuote{Home: 2.10, Draw: 3.30, Away: 3.60})
	require.NoError(t, err)
	assert.Len(t, records, 3)

	// nothing usable quoted at all
	_, err = p.EvaluateEdge(pred, &history.OddsQuote{})
	assert.Error(t, err)

	_, err = p.EvaluateEdge(nil, &history.OddsQuote{Home: 2.0, Draw: 3.0, Away: 4.0})
	assert.Error(t, err)
}
