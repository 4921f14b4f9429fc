package repos

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/leadflow-backend/internal/logger"
)

// The models declare Postgres defaults (uuid_generate_v4, now, jsonb) that
// sqlite cannot migrate, so the tests lay the schema out by hand. Tests
// always set ids and timestamps explicitly.
var testSchema = []string{
	`CREATE TABLE lead (
		id text PRIMARY KEY,
		name text,
		email text,
		score real NOT NULL DEFAULT 0,
		stage text NOT NULL DEFAULT 'cold',
		events_last_24h integer NOT NULL DEFAULT 0,
		last_event_at datetime,
		lease_held numeric NOT NULL DEFAULT 0,
		created_at datetime,
		updated_at datetime,
		deleted_at datetime
	)`,
	`CREATE TABLE lead_event (
		id text PRIMARY KEY,
		event_id text NOT NULL UNIQUE,
		lead_id text NOT NULL,
		type text NOT NULL,
		occurred_at datetime NOT NULL,
		metadata text,
		consumed numeric NOT NULL DEFAULT 0,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE score_ledger_entry (
		id text PRIMARY KEY,
		lead_id text NOT NULL,
		event_id text NOT NULL,
		score_before real NOT NULL,
		score_after real NOT NULL,
		delta real NOT NULL,
		applied_at datetime NOT NULL,
		created_at datetime,
		UNIQUE (lead_id, event_id)
	)`,
	`CREATE TABLE scoring_rule (
		id text PRIMARY KEY,
		event_type text NOT NULL UNIQUE,
		points real NOT NULL,
		created_at datetime,
		updated_at datetime,
		deleted_at datetime
	)`,
	`CREATE TABLE automation_rule (
		id text PRIMARY KEY,
		name text NOT NULL UNIQUE,
		when_stage text NOT NULL,
		min_velocity integer NOT NULL DEFAULT 0,
		action text NOT NULL,
		enabled numeric NOT NULL DEFAULT 1,
		created_at datetime,
		updated_at datetime,
		deleted_at datetime
	)`,
	`CREATE TABLE automation_execution (
		id text PRIMARY KEY,
		lead_id text NOT NULL,
		rule_id text NOT NULL,
		date_bucket text NOT NULL,
		payload text,
		status text NOT NULL DEFAULT 'executed',
		created_at datetime,
		UNIQUE (lead_id, rule_id, date_bucket)
	)`,
	`CREATE TABLE work_item (
		id text PRIMARY KEY,
		lead_id text NOT NULL,
		status text NOT NULL DEFAULT 'queued',
		attempts integer NOT NULL DEFAULT 0,
		last_error text,
		last_error_at datetime,
		run_after datetime,
		locked_at datetime,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE dead_letter (
		id text PRIMARY KEY,
		work_item_id text NOT NULL,
		lead_id text NOT NULL,
		payload text,
		error text NOT NULL,
		attempts integer NOT NULL,
		failed_at datetime,
		created_at datetime
	)`,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// A second connection would see a different :memory: database.
	sqlDB.SetMaxOpenConns(1)
	for _, ddl := range testSchema {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}
