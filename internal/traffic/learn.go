package traffic

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// LoadLearningCSV ingests historical delivery records and folds them into
// learned patterns. Expected header: pincode, hour, day_of_week,
// actual_time_mins, distance_km. Rows that cannot be parsed are skipped.
func (m *Model) LoadLearningCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open learning data: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to parse learning data: %w", err)
	}
	if len(rows) < 2 {
		return fmt.Errorf("learning data has no rows")
	}

	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[name] = i
	}
	for _, required := range []string{"pincode", "hour", "day_of_week", "actual_time_mins", "distance_km"} {
		if _, ok := cols[required]; !ok {
			return fmt.Errorf("learning data missing column %q", required)
		}
	}

	type bucket struct {
		speedSum float64
		count    int
	}
	buckets := make(map[PatternKey]*bucket)

	skipped := 0
	for _, row := range rows[1:] {
		key, speed, err := parseLearningRow(row, cols)
		if err != nil {
			skipped++
			continue
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.speedSum += speed
		b.count++
	}

	for key, b := range buckets {
		m.patterns[key] = LearnedPattern{
			SpeedKmh:   b.speedSum / float64(b.count),
			Samples:    b.count,
			Confidence: min(float64(b.count)/10, 1.0),
		}
	}

	m.logger.Info("loaded traffic learning data",
		"patterns", len(buckets), "skipped_rows", skipped)
	return nil
}

func parseLearningRow(row []string, cols map[string]int) (PatternKey, float64, error) {
	get := func(name string) string {
		idx := cols[name]
		if idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	hour, err := strconv.Atoi(get("hour"))
	if err != nil {
		return PatternKey{}, 0, err
	}
	day, err := strconv.Atoi(get("day_of_week"))
	if err != nil {
		return PatternKey{}, 0, err
	}
	timeMins, err := strconv.ParseFloat(get("actual_time_mins"), 64)
	if err != nil {
		return PatternKey{}, 0, err
	}
	distanceKm, err := strconv.ParseFloat(get("distance_km"), 64)
	if err != nil {
		return PatternKey{}, 0, err
	}
	if timeMins <= 0 {
		return PatternKey{}, 0, fmt.Errorf("non-positive travel time")
	}

	key := PatternKey{Pincode: get("pincode"), Hour: hour, Day: day}
	speed := distanceKm / timeMins * 60
	return key, speed, nil
}

// SetPatterns replaces the learned pattern set. Used when patterns come from
// a persisted store rather than a CSV.
func (m *Model) SetPatterns(patterns map[PatternKey]LearnedPattern) {
	if patterns == nil {
		patterns = make(map[PatternKey]LearnedPattern)
	}
	m.patterns = patterns
}

// Patterns returns a copy of the learned pattern set.
func (m *Model) Patterns() map[PatternKey]LearnedPattern {
	out := make(map[PatternKey]LearnedPattern, len(m.patterns))
	for k, v := range m.patterns {
		out[k] = v
	}
	return out
}
