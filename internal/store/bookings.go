package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookline/internal/models"

	"github.com/google/uuid"
)

// BookingParams carries everything the booking transaction needs. Line item
// prices are snapshots supplied by the caller, never re-read from a catalog,
// so later price changes cannot alter historical bookings.
type BookingParams struct {
	LocationID    int64
	Date          string // YYYY-MM-DD
	Time          string // HH:MM
	Customer      models.CustomerInfo
	Items         []models.LineItemInput
	Notes         string
	Status        string // confirmed or pending, per deployment policy
	TotalDuration int    // minutes
}

// CreateBooking reserves a slot atomically. Within one transaction it
// validates the slot, finds or creates the customer by phone, inserts the
// booking with its line items, and flips the slot to booked with a
// compare-and-swap keyed on status=available. Two simultaneous calls on the
// same slot get exactly one success and one ErrSlotUnavailable; any failure
// rolls the whole transaction back, leaving no orphaned rows.
func (db *DB) CreateBooking(ctx context.Context, p BookingParams) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Step 1: the slot must exist and be available.
	var slotID int64
	var slotStatus string
	err = tx.QueryRowContext(ctx,
		"SELECT id, status FROM slots WHERE location_id = ? AND date = ? AND time = ?",
		p.LocationID, p.Date, p.Time,
	).Scan(&slotID, &slotStatus)
	if err == sql.ErrNoRows {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch slot: %w", err)
	}
	if slotStatus != models.SlotAvailable {
		return nil, ErrSlotUnavailable
	}

	// Step 2: customer lookup by phone, create on first booking. Existing
	// records are reused without updating their fields.
	customerID, err := getOrCreateCustomer(ctx, tx, p.Customer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCustomer, err)
	}

	// Step 3: the booking row.
	now := time.Now()
	var totalPrice float64
	for _, item := range p.Items {
		totalPrice += item.Price
	}
	booking := models.Booking{
		Reference:     uuid.NewString(),
		LocationID:    p.LocationID,
		CustomerID:    customerID,
		Date:          p.Date,
		Time:          p.Time,
		Status:        p.Status,
		TotalPrice:    totalPrice,
		TotalDuration: p.TotalDuration,
		Notes:         p.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (reference, location_id, customer_id, date, time, status,
		                      total_price, total_duration, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.Reference, booking.LocationID, booking.CustomerID, booking.Date, booking.Time,
		booking.Status, booking.TotalPrice, booking.TotalDuration, booking.Notes, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBooking, err)
	}
	booking.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: last insert id: %v", ErrBooking, err)
	}

	// Step 4: line items with their price snapshots.
	for _, item := range p.Items {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO booking_line_items (booking_id, service_id, price) VALUES (?, ?, ?)",
			booking.ID, item.ServiceID, item.Price,
		); err != nil {
			return nil, fmt.Errorf("%w: service %d: %v", ErrServices, item.ServiceID, err)
		}
	}

	// Step 5: flip the slot, conditional on it still being available.
	flip, err := tx.ExecContext(ctx, `
		UPDATE slots
		SET status = 'booked', booking_id = ?, updated_at = ?
		WHERE id = ? AND status = 'available'`,
		booking.ID, now, slotID,
	)
	if err != nil {
		return nil, fmt.Errorf("update slot: %w", err)
	}
	n, err := flip.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		// Lost the race between the read and the update.
		return nil, ErrSlotUnavailable
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &booking, nil
}

func getOrCreateCustomer(ctx context.Context, tx *sql.Tx, info models.CustomerInfo) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM customers WHERE phone = ?", info.Phone).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("find customer: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		"INSERT INTO customers (name, phone, email, created_at) VALUES (?, ?, ?, ?)",
		info.Name, info.Phone, info.Email, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("create customer: %w", err)
	}
	return result.LastInsertId()
}

// GetBooking returns a booking by id.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var b models.Booking
	var notes sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, reference, location_id, customer_id, date, time, status,
		       total_price, total_duration, notes, created_at, updated_at
		FROM bookings WHERE id = ?`,
		id,
	).Scan(
		&b.ID, &b.Reference, &b.LocationID, &b.CustomerID, &b.Date, &b.Time, &b.Status,
		&b.TotalPrice, &b.TotalDuration, &notes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if notes.Valid {
		b.Notes = notes.String
	}
	return &b, nil
}

// GetLineItems returns the line items of a booking.
func (db *DB) GetLineItems(ctx context.Context, bookingID int64) ([]models.BookingLineItem, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT booking_id, service_id, price FROM booking_line_items WHERE booking_id = ? ORDER BY service_id",
		bookingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.BookingLineItem
	for rows.Next() {
		var it models.BookingLineItem
		if err := rows.Scan(&it.BookingID, &it.ServiceID, &it.Price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// BookingReportRow is one booking joined with its customer for exports.
type BookingReportRow struct {
	Booking  models.Booking
	Customer models.Customer
}

// ListBookingsForRange returns bookings within [from, to] inclusive joined
// with their customers, ordered by date and time.
func (db *DB) ListBookingsForRange(ctx context.Context, locationID int64, from, to string) ([]BookingReportRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT b.id, b.reference, b.location_id, b.customer_id, b.date, b.time, b.status,
		       b.total_price, b.total_duration, b.notes, b.created_at, b.updated_at,
		       c.id, c.name, c.phone, c.email, c.created_at
		FROM bookings b
		JOIN customers c ON c.id = b.customer_id
		WHERE b.location_id = ? AND b.date >= ? AND b.date <= ?
		ORDER BY b.date, b.time`,
		locationID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookingReportRow
	for rows.Next() {
		var r BookingReportRow
		var bookingNotes, email sql.NullString
		if err := rows.Scan(
			&r.Booking.ID, &r.Booking.Reference, &r.Booking.LocationID, &r.Booking.CustomerID,
			&r.Booking.Date, &r.Booking.Time, &r.Booking.Status,
			&r.Booking.TotalPrice, &r.Booking.TotalDuration, &bookingNotes,
			&r.Booking.CreatedAt, &r.Booking.UpdatedAt,
			&r.Customer.ID, &r.Customer.Name, &r.Customer.Phone, &email, &r.Customer.CreatedAt,
		); err != nil {
			return nil, err
		}
		if bookingNotes.Valid {
			r.Booking.Notes = bookingNotes.String
		}
		if email.Valid {
			r.Customer.Email = email.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountBookings returns the number of booking rows, used by tests and the
// readiness probe.
func (db *DB) CountBookings(ctx context.Context) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings").Scan(&n)
	return n, err
}
