package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = map[string][]string{
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS proctor_events (
			id BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			event_type VARCHAR(50) NOT NULL,
			payload TEXT NOT NULL DEFAULT '',
			risk_score REAL NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_proctor_events_event_type ON proctor_events (event_type)`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS proctor_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			event_type VARCHAR(50) NOT NULL,
			payload TEXT NOT NULL DEFAULT '',
			risk_score REAL NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_proctor_events_event_type ON proctor_events (event_type)`,
	},
}

// Migrate creates the proctor_events table and its index when missing.
func Migrate(db *sqlx.DB) error {
	stmts, ok := schema[db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
