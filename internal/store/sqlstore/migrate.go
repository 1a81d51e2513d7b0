package sqlstore

import (
	"context"
	"fmt"

	"restoboost/internal/config"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS restaurants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		rating REAL NOT NULL DEFAULT 0,
		avg_check INTEGER NOT NULL DEFAULT 0,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		cuisine TEXT NOT NULL DEFAULT '[]',
		description TEXT NOT NULL DEFAULT '',
		photos TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS restaurant_hours (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		restaurant_id INTEGER NOT NULL,
		weekday INTEGER NOT NULL,
		open_time TEXT NOT NULL,
		close_time TEXT NOT NULL,
		is_closed BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS restaurant_services (
		id TEXT PRIMARY KEY,
		restaurant_id INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		slot_step_minutes INTEGER NOT NULL DEFAULT 60,
		is_active BOOLEAN NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS service_capacity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		service_id TEXT NOT NULL,
		restaurant_id INTEGER,
		capacity_seats INTEGER,
		date TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS discount_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		restaurant_id INTEGER NOT NULL,
		service_id TEXT,
		discount INTEGER NOT NULL DEFAULT 0,
		time_start TEXT NOT NULL,
		time_end TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		restaurant_id INTEGER NOT NULL,
		restaurant_name TEXT,
		guest_name TEXT NOT NULL DEFAULT '',
		guest_phone TEXT NOT NULL DEFAULT '',
		guest_email TEXT,
		booking_datetime TEXT NOT NULL,
		duration_minutes INTEGER,
		party_size INTEGER,
		special_requests TEXT NOT NULL DEFAULT '',
		discount_applied INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'confirmed',
		confirmation_code TEXT,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
		completed_at TEXT,
		updated_at TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_hours_restaurant_weekday ON restaurant_hours(restaurant_id, weekday)`,
	`CREATE INDEX IF NOT EXISTS idx_services_restaurant ON restaurant_services(restaurant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_capacity_service ON service_capacity(service_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rules_restaurant ON discount_rules(restaurant_id, valid_from, valid_to)`,
	`CREATE INDEX IF NOT EXISTS idx_rules_service ON discount_rules(service_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_restaurant_created ON bookings(restaurant_id, created_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_code ON bookings(confirmation_code)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS restaurants (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_check INTEGER NOT NULL DEFAULT 0,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		cuisine JSONB NOT NULL DEFAULT '[]',
		description TEXT NOT NULL DEFAULT '',
		photos JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS restaurant_hours (
		id BIGSERIAL PRIMARY KEY,
		restaurant_id BIGINT NOT NULL,
		weekday INTEGER NOT NULL,
		open_time TIME NOT NULL,
		close_time TIME NOT NULL,
		is_closed BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE TABLE IF NOT EXISTS restaurant_services (
		id TEXT PRIMARY KEY,
		restaurant_id BIGINT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		start_time TIME,
		end_time TIME,
		slot_step_minutes INTEGER NOT NULL DEFAULT 60,
		is_active BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS service_capacity (
		id BIGSERIAL PRIMARY KEY,
		service_id TEXT NOT NULL,
		restaurant_id BIGINT,
		capacity_seats INTEGER,
		date DATE
	)`,
	`CREATE TABLE IF NOT EXISTS discount_rules (
		id BIGSERIAL PRIMARY KEY,
		restaurant_id BIGINT NOT NULL,
		service_id TEXT,
		discount INTEGER NOT NULL DEFAULT 0,
		time_start TIME NOT NULL,
		time_end TIME NOT NULL,
		valid_from DATE NOT NULL,
		valid_to DATE NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGSERIAL PRIMARY KEY,
		restaurant_id BIGINT NOT NULL,
		restaurant_name TEXT,
		guest_name TEXT NOT NULL DEFAULT '',
		guest_phone TEXT NOT NULL DEFAULT '',
		guest_email TEXT,
		booking_datetime TEXT NOT NULL,
		duration_minutes INTEGER,
		party_size INTEGER,
		special_requests TEXT NOT NULL DEFAULT '',
		discount_applied INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'confirmed',
		confirmation_code TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TEXT,
		updated_at TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_hours_restaurant_weekday ON restaurant_hours(restaurant_id, weekday)`,
	`CREATE INDEX IF NOT EXISTS idx_services_restaurant ON restaurant_services(restaurant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_capacity_service ON service_capacity(service_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rules_restaurant ON discount_rules(restaurant_id, valid_from, valid_to)`,
	`CREATE INDEX IF NOT EXISTS idx_rules_service ON discount_rules(service_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_restaurant_created ON bookings(restaurant_id, created_at)`,
}

// Migrate creates the tables if they don't exist.
func (s *Store) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if s.driver == config.DriverPostgres {
		schema = postgresSchema
	}
	for _, query := range schema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("error executing query %s: %v", query, err)
		}
	}
	s.logger.Info().Int("statements", len(schema)).Msg("Schema migrated")
	return nil
}
