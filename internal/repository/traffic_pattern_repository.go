package repository

import (
	"database/sql"
	"fmt"

	"github.com/ondc-data/geo-enricher/internal/database"
	"github.com/ondc-data/geo-enricher/internal/traffic"
)

// TrafficPatternRepository persists learned congestion patterns so API-driven
// runs share what file-based runs learned.
type TrafficPatternRepository struct {
	db *sql.DB
}

// NewTrafficPatternRepository creates a new traffic pattern repository
func NewTrafficPatternRepository(db *sql.DB) *TrafficPatternRepository {
	return &TrafficPatternRepository{db: db}
}

// SaveAll upserts every pattern in one transaction.
func (r *TrafficPatternRepository) SaveAll(patterns map[traffic.PatternKey]traffic.LearnedPattern) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO traffic_patterns (pincode, hour, day_of_week, speed_kmh, samples, confidence, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(pincode, hour, day_of_week) DO UPDATE SET
				speed_kmh = excluded.speed_kmh,
				samples = excluded.samples,
				confidence = excluded.confidence,
				updated_at = CURRENT_TIMESTAMP
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare pattern upsert: %w", err)
		}
		defer stmt.Close()

		for key, p := range patterns {
			if _, err := stmt.Exec(key.Pincode, key.Hour, key.Day, p.SpeedKmh, p.Samples, p.Confidence); err != nil {
				return fmt.Errorf("failed to save pattern %s/%d/%d: %w", key.Pincode, key.Hour, key.Day, err)
			}
		}
		return nil
	})
}

// LoadAll returns every stored pattern.
func (r *TrafficPatternRepository) LoadAll() (map[traffic.PatternKey]traffic.LearnedPattern, error) {
	rows, err := r.db.Query(`
		SELECT pincode, hour, day_of_week, speed_kmh, samples, confidence
		FROM traffic_patterns
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load traffic patterns: %w", err)
	}
	defer rows.Close()

	patterns := make(map[traffic.PatternKey]traffic.LearnedPattern)
	for rows.Next() {
		var key traffic.PatternKey
		var p traffic.LearnedPattern
		if err := rows.Scan(&key.Pincode, &key.Hour, &key.Day, &p.SpeedKmh, &p.Samples, &p.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan traffic pattern: %w", err)
		}
		patterns[key] = p
	}

	return patterns, rows.Err()
}

// Count returns the number of stored patterns.
func (r *TrafficPatternRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM traffic_patterns").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count traffic patterns: %w", err)
	}
	return count, nil
}
