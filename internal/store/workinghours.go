package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookline/internal/models"
)

// GetWorkingHours returns the config row for (location, day-of-week), or
// (nil, nil) when no row exists. Absence is meaningful to the resolver: it
// triggers the default policy, while an explicit closed row does not.
func (db *DB) GetWorkingHours(ctx context.Context, locationID int64, dayOfWeek int) (*models.WorkingHours, error) {
	var wh models.WorkingHours
	var openTime, closeTime, breakStart, breakEnd sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, location_id, day_of_week, is_open, open_time, close_time,
		       break_start, break_end, slot_duration, created_at, updated_at
		FROM working_hours
		WHERE location_id = ? AND day_of_week = ?`,
		locationID, dayOfWeek,
	).Scan(
		&wh.ID, &wh.LocationID, &wh.DayOfWeek, &wh.IsOpen, &openTime, &closeTime,
		&breakStart, &breakEnd, &wh.SlotDuration, &wh.CreatedAt, &wh.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	wh.OpenTime = openTime.String
	wh.CloseTime = closeTime.String
	wh.BreakStart = breakStart.String
	wh.BreakEnd = breakEnd.String
	return &wh, nil
}

// UpsertWorkingHours creates or replaces the config row for the day of week.
func (db *DB) UpsertWorkingHours(ctx context.Context, wh *models.WorkingHours) error {
	if wh == nil {
		return fmt.Errorf("working hours is nil")
	}

	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO working_hours (location_id, day_of_week, is_open, open_time, close_time,
		                           break_start, break_end, slot_duration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(location_id, day_of_week) DO UPDATE SET
			is_open = excluded.is_open,
			open_time = excluded.open_time,
			close_time = excluded.close_time,
			break_start = excluded.break_start,
			break_end = excluded.break_end,
			slot_duration = excluded.slot_duration,
			updated_at = excluded.updated_at`,
		wh.LocationID, wh.DayOfWeek, wh.IsOpen, nullable(wh.OpenTime), nullable(wh.CloseTime),
		nullable(wh.BreakStart), nullable(wh.BreakEnd), wh.SlotDuration, now, now,
	)
	return err
}

// ListWorkingHours returns all config rows for a location ordered by day.
func (db *DB) ListWorkingHours(ctx context.Context, locationID int64) ([]models.WorkingHours, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, location_id, day_of_week, is_open, open_time, close_time,
		       break_start, break_end, slot_duration, created_at, updated_at
		FROM working_hours
		WHERE location_id = ?
		ORDER BY day_of_week`,
		locationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WorkingHours
	for rows.Next() {
		var wh models.WorkingHours
		var openTime, closeTime, breakStart, breakEnd sql.NullString
		if err := rows.Scan(
			&wh.ID, &wh.LocationID, &wh.DayOfWeek, &wh.IsOpen, &openTime, &closeTime,
			&breakStart, &breakEnd, &wh.SlotDuration, &wh.CreatedAt, &wh.UpdatedAt,
		); err != nil {
			return nil, err
		}
		wh.OpenTime = openTime.String
		wh.CloseTime = closeTime.String
		wh.BreakStart = breakStart.String
		wh.BreakEnd = breakEnd.String
		out = append(out, wh)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
