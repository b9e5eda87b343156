// Package dbtest opens throwaway sqlite databases carrying the service schema.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/siteboss-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE owners (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		mobile TEXT NOT NULL UNIQUE,
		company_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		notifications_enabled BOOLEAN NOT NULL DEFAULT 1,
		default_view TEXT NOT NULL DEFAULT 'dashboard',
		last_login_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE projects (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		location TEXT NOT NULL,
		latitude REAL,
		longitude REAL,
		budget NUMERIC NOT NULL DEFAULT 0,
		start_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		progress INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE workers (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		project_id TEXT,
		name TEXT NOT NULL,
		mobile TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		access_code_hash TEXT,
		last_login_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE transactions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		project_id TEXT,
		title TEXT NOT NULL,
		amount NUMERIC NOT NULL CHECK (amount >= 0),
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'Other',
		created_by_role TEXT NOT NULL,
		created_by_name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE issues (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		project_id TEXT,
		title TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'MEDIUM',
		status TEXT NOT NULL DEFAULT 'OPEN',
		reporter TEXT NOT NULL DEFAULT '',
		site_name TEXT NOT NULL DEFAULT '',
		resolved_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE inventory_items (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		project_id TEXT,
		name TEXT NOT NULL,
		quantity NUMERIC NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT 'Units',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		project_id TEXT,
		transaction_id TEXT,
		item TEXT NOT NULL,
		quantity TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ORDERED',
		payment_status TEXT NOT NULL DEFAULT 'PENDING',
		eta TEXT NOT NULL DEFAULT '',
		delivered_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		project_id TEXT,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		action TEXT,
		item TEXT,
		requested_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE labor_entries (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'Helper',
		present BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE feed_posts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		author TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE material_request_sagas (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		notification_id TEXT NOT NULL UNIQUE,
		project_id TEXT,
		item TEXT NOT NULL,
		quantity_label TEXT NOT NULL,
		cost NUMERIC NOT NULL,
		status TEXT NOT NULL DEFAULT 'RUNNING',
		step TEXT NOT NULL DEFAULT 'started',
		transaction_id TEXT,
		order_id TEXT,
		last_error TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		parked_at DATETIME
	)`,
}

// Open returns a fresh in-memory database with every service table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	return conn
}

// Client wraps Open in the db.Client used by services.
func Client(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.Wrap(conn), conn
}
