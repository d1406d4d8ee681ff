package database

import (
	"strings"
	"testing"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	db, err := Open(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	var name string
	if err := db.Get(&name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'proctor_events'`); err != nil {
		t.Fatalf("proctor_events missing: %v", err)
	}

	if err := Migrate(db); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestFormatDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "proctor")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "exams")
	t.Setenv("DB_SSLMODE", "")

	dsn := FormatDSN()
	for _, part := range []string{"host=db", "port=5432", "dbname=exams", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("FormatDSN() = %q, missing %q", dsn, part)
		}
	}
}

func TestSQLitePathDefault(t *testing.T) {
	t.Setenv("SQLITE_PATH", "")
	if got := SQLitePath(); got != "./proctor.db" {
		t.Errorf("SQLitePath() = %q", got)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	if _, err := New(); err == nil {
		t.Error("New() error = nil, want unsupported driver")
	}
}
