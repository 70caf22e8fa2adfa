package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Migration represents one schema change, applied at most once.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations are embedded so a deployment is just the binary and its data
// directory. Append only; never edit an applied version.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_run_tasks",
		SQL: `
			CREATE TABLE IF NOT EXISTS run_tasks (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id TEXT NOT NULL DEFAULT '',
				flow TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				total_items INTEGER NOT NULL DEFAULT 0,
				processed_items INTEGER NOT NULL DEFAULT 0,
				failed_items INTEGER NOT NULL DEFAULT 0,
				start_time TIMESTAMP,
				end_time TIMESTAMP,
				eta_seconds INTEGER,
				error_message TEXT,
				created_by TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_run_tasks_status ON run_tasks(status);
		`,
	},
	{
		Version: 2,
		Name:    "create_traffic_patterns",
		SQL: `
			CREATE TABLE IF NOT EXISTS traffic_patterns (
				pincode TEXT NOT NULL,
				hour INTEGER NOT NULL,
				day_of_week INTEGER NOT NULL,
				speed_kmh REAL NOT NULL,
				samples INTEGER NOT NULL,
				confidence REAL NOT NULL,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (pincode, hour, day_of_week)
			);
		`,
	},
}

// RunMigrations applies all pending migrations in version order.
func RunMigrations(db *sql.DB) error {
	if err := initMigrationsTable(db); err != nil {
		return err
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}
		if err := applyMigration(db, migration); err != nil {
			return err
		}
	}

	return nil
}

func initMigrationsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func appliedMigrations(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func applyMigration(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if _, err := tx.Exec(migration.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)",
		migration.Version, migration.Name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}

	slog.Info("applied migration", "version", migration.Version, "name", migration.Name)
	return nil
}
