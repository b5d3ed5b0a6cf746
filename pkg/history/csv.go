package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ParseFootballDataCSV reads a football-data.co.uk season file into
// match records. Rows that cannot be parsed are skipped with a warning
// so one mangled line never loses a whole season.
func ParseFootballDataCSV(r io.Reader) ([]MatchRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) == 0 {
		return []MatchRecord{}, nil
	}

	headers := rows[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\uFEFF")
	}

	var matches []MatchRecord
	for i, record := range rows[1:] {
		row := make(map[string]string, len(headers))
		for j, value := range record {
			if j < len(headers) {
				row[headers[j]] = strings.TrimSpace(value)
			}
		}
		if row["HomeTeam"] == "" || row["AwayTeam"] == "" {
			continue
		}
		match, err := parseFootballDataRow(row)
		if err != nil {
			log.Warn().Err(err).Int("row", i+2).Msg("skipping unparseable match row")
			continue
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func parseFootballDataRow(row map[string]string) (MatchRecord, error) {
	kickoff, err := parseFootballDataDateTime(row)
	if err != nil {
		return MatchRecord{}, err
	}

	homeGoals, err := strconv.Atoi(row["FTHG"])
	if err != nil {
		return MatchRecord{}, fmt.Errorf("bad home goals %q: %w", row["FTHG"], err)
	}
	awayGoals, err := strconv.Atoi(row["FTAG"])
	if err != nil {
		return MatchRecord{}, fmt.Errorf("bad away goals %q: %w", row["FTAG"], err)
	}

	m := NewMatchRecord(row["HomeTeam"], row["AwayTeam"], kickoff, homeGoals, awayGoals)
	if err := m.Validate(); err != nil {
		return MatchRecord{}, err
	}

	m.HomeShots = intField(row, "HS")
	m.AwayShots = intField(row, "AS")
	m.HomeShotsOnTarget = intField(row, "HST")
	m.AwayShotsOnTarget = intField(row, "AST")
	m.HomeCorners = intField(row, "HC")
	m.AwayCorners = intField(row, "AC")
	m.HomeFouls = intField(row, "HF")
	m.AwayFouls = intField(row, "AF")

	home, draw, away := averageOutcomeOdds(row)
	if home > 0 {
		m.Odds = &OddsQuote{
			Home:    home,
			Draw:    draw,
			Away:    away,
			Over25:  floatField(row, "B365>2.5", "Avg>2.5"),
			Under25: floatField(row, "B365<2.5", "Avg<2.5"),
		}
	}
	return m, nil
}

// parseFootballDataDateTime combines the Date and Time columns. Files
// without a Time column default to a 3PM kickoff. Times are local UK
// time and converted to UTC.
func parseFootballDataDateTime(row map[string]string) (time.Time, error) {
	dateStr := row["Date"]
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("no Date field found")
	}

	var dtStr string
	if timeStr := row["Time"]; timeStr != "" {
		dtStr = dateStr + " " + timeStr
	} else {
		dtStr = dateStr + " 15:00"
	}

	formats := []string{
		"02/01/2006 15:04",
		"02/01/06 15:04",
	}
	var parsed time.Time
	var parseErr error
	for _, format := range formats {
		if t, err := time.Parse(format, dtStr); err == nil {
			parsed = t
			parseErr = nil
			break
		} else {
			parseErr = err
		}
	}
	if parseErr != nil {
		return time.Time{}, fmt.Errorf("could not parse date from %q: %w", dtStr, parseErr)
	}

	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		return parsed.UTC(), nil
	}
	local := time.Date(parsed.Year(), parsed.Month(), parsed.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, loc)
	return local.UTC(), nil
}

// averageOutcomeOdds returns (home, draw, away) decimal odds for the
// row, preferring the published market averages and falling back to a
// mean over individual bookmakers. Returns -1s when nothing is quoted.
func averageOutcomeOdds(row map[string]string) (float64, float64, float64) {
	// Published closing averages, then pre-match averages
	for _, prefix := range []string{"AvgC", "Avg"} {
		if row[prefix+"H"] != "" {
			ho, _ := strconv.ParseFloat(row[prefix+"H"], 64)
			do, _ := strconv.ParseFloat(row[prefix+"D"], 64)
			ao, _ := strconv.ParseFloat(row[prefix+"A"], 64)
			if ho > 0 && do > 0 && ao > 0 {
				return ho, do, ao
			}
		}
	}

	bookies := []string{"B365", "BF", "BS", "BW", "GB", "IW", "LB", "PS", "SO", "SB", "SJ", "SY", "VC", "WH"}
	var homeTotal, drawTotal, awayTotal float64
	var count int
	for _, bookie := range bookies {
		ho, err1 := strconv.ParseFloat(row[bookie+"H"], 64)
		do, err2 := strconv.ParseFloat(row[bookie+"D"], 64)
		ao, err3 := strconv.ParseFloat(row[bookie+"A"], 64)
		if err1 == nil && err2 == nil && err3 == nil && ho > 0 && do > 0 && ao > 0 {
			homeTotal += ho
			drawTotal += do
			awayTotal += ao
			count++
		}
	}
	if count == 0 {
		return -1.0, -1.0, -1.0
	}
	round2 := func(v float64) float64 { return math.Round(v/float64(count)*100) / 100 }
	return round2(homeTotal), round2(drawTotal), round2(awayTotal)
}

func intField(row map[string]string, key string) int {
	if v, err := strconv.Atoi(row[key]); err == nil {
		return v
	}
	return -1
}

func floatField(row map[string]string, keys ...string) float64 {
	for _, key := range keys {
		if v, err := strconv.ParseFloat(row[key], 64); err == nil && v > 0 {
			return v
		}
	}
	return -1.0
}
