package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookline/internal/models"
)

// ProvisionSlots inserts one available slot row per start time for the date,
// skipping rows that already exist. The insert is conflict-safe per row, so
// re-running over an overlapping range never reverts a blocked or booked slot
// and concurrent provisioning calls commute. Returns the number of rows
// actually inserted.
func (db *DB) ProvisionSlots(ctx context.Context, locationID int64, date string, times []string) (int64, error) {
	if len(times) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO slots (location_id, date, time, status, created_at, updated_at)
		VALUES (?, ?, ?, 'available', ?, ?)
		ON CONFLICT(location_id, date, time) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	var inserted int64
	for _, t := range times {
		result, err := stmt.ExecContext(ctx, locationID, date, t, now, now)
		if err != nil {
			return 0, fmt.Errorf("insert slot %s %s: %w", date, t, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// GetSlot returns the slot row for (location, date, time).
func (db *DB) GetSlot(ctx context.Context, locationID int64, date, timeOfDay string) (*models.Slot, error) {
	return scanSlot(db.QueryRowContext(ctx, `
		SELECT id, location_id, date, time, status, blocked_reason, booking_id, created_at, updated_at
		FROM slots
		WHERE location_id = ? AND date = ? AND time = ?`,
		locationID, date, timeOfDay,
	))
}

// ListSlots returns all slot rows for a date ordered by time.
func (db *DB) ListSlots(ctx context.Context, locationID int64, date string) ([]models.Slot, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, location_id, date, time, status, blocked_reason, booking_id, created_at, updated_at
		FROM slots
		WHERE location_id = ? AND date = ?
		ORDER BY time`,
		locationID, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []models.Slot
	for rows.Next() {
		s, err := scanSlotRow(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

// BlockSlot transitions available -> blocked, recording the reason. The
// update is conditional on the current status so concurrent conflicting
// calls resolve to one winner.
func (db *DB) BlockSlot(ctx context.Context, locationID int64, date, timeOfDay, reason string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE slots
		SET status = 'blocked', blocked_reason = ?, updated_at = ?
		WHERE location_id = ? AND date = ? AND time = ? AND status = 'available'`,
		reason, time.Now(), locationID, date, timeOfDay,
	)
	if err != nil {
		return fmt.Errorf("block slot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return db.slotPreconditionError(ctx, locationID, date, timeOfDay, ErrSlotNotAvailable)
	}
	return nil
}

// UnblockSlot transitions blocked -> available, clearing the reason.
func (db *DB) UnblockSlot(ctx context.Context, locationID int64, date, timeOfDay string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE slots
		SET status = 'available', blocked_reason = NULL, updated_at = ?
		WHERE location_id = ? AND date = ? AND time = ? AND status = 'blocked'`,
		time.Now(), locationID, date, timeOfDay,
	)
	if err != nil {
		return fmt.Errorf("unblock slot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return db.slotPreconditionError(ctx, locationID, date, timeOfDay, ErrSlotNotBlocked)
	}
	return nil
}

// slotPreconditionError distinguishes a missing row from a failed status
// precondition after a conditional update touched nothing.
func (db *DB) slotPreconditionError(ctx context.Context, locationID int64, date, timeOfDay string, precondition error) error {
	var id int64
	err := db.QueryRowContext(ctx,
		"SELECT id FROM slots WHERE location_id = ? AND date = ? AND time = ?",
		locationID, date, timeOfDay,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrSlotNotFound
	}
	if err != nil {
		return fmt.Errorf("check slot: %w", err)
	}
	return precondition
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row *sql.Row) (*models.Slot, error) {
	s, err := scanSlotRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrSlotNotFound
	}
	return s, err
}

func scanSlotRow(r rowScanner) (*models.Slot, error) {
	var s models.Slot
	var reason sql.NullString
	var bookingID sql.NullInt64
	if err := r.Scan(
		&s.ID, &s.LocationID, &s.Date, &s.Time, &s.Status,
		&reason, &bookingID, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if reason.Valid {
		s.BlockedReason = reason.String
	}
	if bookingID.Valid {
		id := bookingID.Int64
		s.BookingID = &id
	}
	return &s, nil
}
