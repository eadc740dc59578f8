// Package store persists slots, bookings, customers and working hours in
// sqlite. It is the source of truth for slot state; every state transition
// is a conditional update checked by affected-row count.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

var (
	// ErrSlotNotFound: no slot row exists, provisioning never ran for that date/time.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrSlotUnavailable: the slot exists but is blocked or already booked.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrSlotNotAvailable: block precondition failed, the slot is not in status available.
	ErrSlotNotAvailable = errors.New("slot not available")
	// ErrSlotNotBlocked: unblock precondition failed, the slot is not in status blocked.
	ErrSlotNotBlocked = errors.New("slot not blocked")

	// ErrCustomer wraps storage failures while finding or creating the customer.
	ErrCustomer = errors.New("customer storage failure")
	// ErrBooking wraps storage failures while inserting the booking row.
	ErrBooking = errors.New("booking storage failure")
	// ErrServices wraps storage failures while inserting booking line items.
	ErrServices = errors.New("line item storage failure")
)

// DB wraps the sqlite connection.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

// NewDB opens (or creates) the database at path and bootstraps the schema.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL for concurrent readers; immediate tx lock so write transactions
	// serialize up front instead of failing on a deferred lock upgrade.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS working_hours (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location_id INTEGER NOT NULL,
			day_of_week INTEGER NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
			is_open BOOLEAN NOT NULL DEFAULT 1,
			open_time TEXT,
			close_time TEXT,
			break_start TEXT,
			break_end TEXT,
			slot_duration INTEGER NOT NULL DEFAULT 30,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(location_id, day_of_week)
		)`,

		`CREATE TABLE IF NOT EXISTS customers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			phone TEXT UNIQUE NOT NULL,
			email TEXT,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT UNIQUE NOT NULL,
			location_id INTEGER NOT NULL,
			customer_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'confirmed',
			total_price REAL NOT NULL DEFAULT 0,
			total_duration INTEGER NOT NULL DEFAULT 0,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (customer_id) REFERENCES customers(id)
		)`,

		`CREATE TABLE IF NOT EXISTS booking_line_items (
			booking_id INTEGER NOT NULL,
			service_id INTEGER NOT NULL,
			price REAL NOT NULL,
			PRIMARY KEY (booking_id, service_id),
			FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS slots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'available',
			blocked_reason TEXT,
			booking_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(location_id, date, time),
			FOREIGN KEY (booking_id) REFERENCES bookings(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_slots_location_date ON slots(location_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_status ON slots(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_location_date ON bookings(location_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers(phone)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
