package history

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 8, 1, 15, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestAddValidatesRecords(t *testing.T) {
	h := New()
	assert.Error(t, h.Add(NewMatchRecord("", "Leeds", day(0), 1, 0)))
	assert.Error(t, h.Add(NewMatchRecord("Leeds", "Leeds", day(0), 1, 0)))
	assert.Error(t, h.Add(NewMatchRecord("Leeds", "Hull", time.Time{}, 1, 0)))
	assert.Error(t, h.Add(NewMatchRecord("Leeds", "Hull", day(0), -1, 0)))
	require.NoError(t, h.Add(NewMatchRecord("Leeds", "Hull", day(0), 2, 1)))
	assert.Equal(t, 1, h.Len())
}

func TestLastNRespectsBoundary(t *testing.T) {
	h := New()
	for i := 0; i < 8; i++ {
		opp := "Opp"
		require.NoError(t, h.Add(NewMatchRecord("Leeds", opp, day(i*7), i, 0)))
	}

	// boundary at day 21 excludes the day-21 match itself
	got := h.LastN("Leeds", 5, day(3*7))
	require.Len(t, got, 3)
	// most recent first
	assert.Equal(t, 2, got[0].HomeGoals)
	assert.Equal(t, 1, got[1].HomeGoals)
	assert.Equal(t, 0, got[2].HomeGoals)

	assert.Empty(t, h.LastN("Leeds", 5, day(0)))
	assert.Empty(t, h.LastN("Nobody", 5, day(100)))
}

func TestLastNAtVenue(t *testing.T) {
	h := New()
	require.NoError(t, h.Add(NewMatchRecord("Leeds", "Hull", day(0), 1, 0)))
	require.NoError(t, h.Add(NewMatchRecord("Hull", "Leeds", day(7), 2, 2)))
	require.NoError(t, h.Add(NewMatchRecord("Leeds", "York", day(14), 3, 0)))

	home := h.LastNAtVenue("Leeds", true, 5, day(100))
	require.Len(t, home, 2)
	assert.Equal(t, "York", home[0].AwayTeam)

	away := h.LastNAtVenue("Leeds", false, 5, day(100))
	require.Len(t, away, 1)
	assert.Equal(t, "Hull", away[0].HomeTeam)
}

func TestHeadToHead(t *testing.T) {
	h := New()
	require.NoError(t, h.Add(NewMatchRecord("Leeds", "Hull", day(0), 1, 0)))
	require.NoError(t, h.Add(NewMatchRecord("Leeds", "York", day(7), 1, 1)))
	require.NoError(t, h.Add(NewMatchRecord("Hull", "Leeds", day(14), 0, 2)))

	h2h := h.HeadToHead("Leeds", "Hull", 10, day(100))
	require.Len(t, h2h, 2)
	assert.Equal(t, "Hull", h2h[0].HomeTeam) // most recent first
	assert.Equal(t, "Hull", h2h[1].AwayTeam)

	assert.Len(t, h.HeadToHead("Leeds", "Hull", 1, day(100)), 1)
	assert.Empty(t, h.HeadToHead("Leeds", "Hull", 10, day(0)))
}

func TestOutOfOrderAddsAreResorted(t *testing.T) {
	h := New()
	require.NoError(t, h.Add(NewMatchRecord("Leeds", "Hull", day(14), 3, 0)))
	require.NoError(t, h.Add(NewMatchRecord("Leeds", "York", day(0), 1, 0)))
	require.NoError(t, h.Add(NewMatchRecord("Hull", "Leeds", day(7), 0, 0)))

	all := h.All()
	require.Len(t, all, 3)
	assert.True(t, all[0].Kickoff.Before(all[1].Kickoff))
	assert.True(t, all[1].Kickoff.Before(all[2].Kickoff))

	last := h.LastMatch("Leeds", day(10))
	require.NotNil(t, last)
	assert.Equal(t, day(7), last.Kickoff)
}

func TestBefore(t *testing.T) {
	h := New()
	for i := 0; i < 5; i++ {
		require.NoError(t, h.Add(NewMatchRecord("A", "B", day(i), 1, 1)))
	}
	assert.Len(t, h.Before(day(3)), 3)
	assert.Len(t, h.Before(day(0)), 0)
	assert.Len(t, h.Before(day(10)), 5)
}

func TestRecordDerivations(t *testing.T) {
	m := NewMatchRecord("Leeds", "Hull", day(0), 2, 1)
	assert.Equal(t, HomeWin, m.Outcome())
	assert.Equal(t, 3, m.TotalGoals())
	assert.True(t, m.BothScored())
	assert.Equal(t, 2, m.GoalsFor("Leeds"))
	assert.Equal(t, 2, m.GoalsAgainst("Hull"))
	assert.Equal(t, 3, m.Points("Leeds"))
	assert.Equal(t, 0, m.Points("Hull"))
	assert.Equal(t, -1, m.GoalsFor("York"))

	d := NewMatchRecord("Leeds", "Hull", day(0), 0, 0)
	assert.Equal(t, Draw, d.Outcome())
	assert.False(t, d.BothScored())
	assert.Equal(t, 1, d.Points("Leeds"))
}

const sampleCSV = `Div,Date,Time,HomeTeam,AwayTeam,FTHG,FTAG,FTR,HS,AS,HST,AST,HC,AC,HF,AF,B365H,B365D,B365A,AvgH,AvgD,AvgA,B365>2.5,B365<2.5
E0,16/08/2024,20:00,Man United,Fulham,1,0,H,14,10,5,2,6,4,12,9,1.55,4.20,6.00,1.57,4.25,5.80,1.80,2.00
E0,17/08/2024,,Ipswich,Liverpool,0,2,A,8,16,2,7,3,8,10,11,6.50,4.50,1.50,,,,,
E0,bad-date,15:00,Arsenal,Wolves,2,0,H,,,,,,,,,,,,,,,,
`

func TestParseFootballDataCSV(t *testing.T) {
	matches, err := ParseFootballDataCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, matches, 2) // bad-date row skipped

	m := matches[0]
	assert.Equal(t, "Man United", m.HomeTeam)
	assert.Equal(t, "Fulham", m.AwayTeam)
	assert.Equal(t, 1, m.HomeGoals)
	assert.Equal(t, 0, m.AwayGoals)
	assert.Equal(t, 14, m.HomeShots)
	assert.Equal(t, 5, m.HomeShotsOnTarget)
	assert.Equal(t, 9, m.AwayFouls)
	require.NotNil(t, m.Odds)
	// published averages preferred over B365
	assert.InDelta(t, 1.57, m.Odds.Home, 1e-9)
	assert.InDelta(t, 4.25, m.Odds.Draw, 1e-9)
	assert.InDelta(t, 1.80, m.Odds.Over25, 1e-9)
	// August UK time is BST, one hour behind UTC
	assert.Equal(t, 19, m.Kickoff.UTC().Hour())

	m2 := matches[1]
	// no Time column value defaults to 15:00 local
	assert.Equal(t, 14, m2.Kickoff.UTC().Hour())
	require.NotNil(t, m2.Odds)
	// falls back to single-bookmaker mean
	assert.InDelta(t, 6.50, m2.Odds.Home, 1e-9)
	assert.InDelta(t, -1.0, m2.Odds.Over25, 1e-9)
}

func TestParseFootballDataCSVEmpty(t *testing.T) {
	matches, err := ParseFootballDataCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
