package models

import "time"

// Slot statuses. A slot moves available <-> blocked via admin actions and
// available -> booked via the booking transaction. booked has no outbound
// transition here; cancellation is handled outside this service.
const (
	SlotAvailable = "available"
	SlotBlocked   = "blocked"
	SlotBooked    = "booked"
)

// Booking statuses.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
	BookingNoShow    = "no_show"
)

// Slot is a single bookable (location, date, time) unit.
type Slot struct {
	ID            int64     `json:"id"`
	LocationID    int64     `json:"location_id"`
	Date          string    `json:"date"` // YYYY-MM-DD
	Time          string    `json:"time"` // HH:MM
	Status        string    `json:"status"`
	BlockedReason string    `json:"blocked_reason,omitempty"`
	BookingID     *int64    `json:"booking_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WorkingHours is the per (location, day-of-week) schedule configuration.
/// DayOfWeek follows time.Weekday: 0=Sunday .. 6=Saturday.
type WorkingHours struct {
	ID           int64     `json:"id"`
	LocationID   int64     `json:"location_id"`
	DayOfWeek    int       `json:"day_of_week"`
	IsOpen       bool      `json:"is_open"`
	OpenTime     string    `json:"open_time"`  // HH:MM
	CloseTime    string    `json:"close_time"` // HH:MM
	BreakStart   string    `json:"break_start,omitempty"`
	BreakEnd     string    `json:"break_end,omitempty"`
	SlotDuration int       `json:"slot_duration_minutes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Customer is deduplicated by phone number; the phone is the natural key.
// Existing records are reused as-is on repeat bookings, never updated.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Booking is a confirmed (or pending, per deployment policy) reservation of
// one slot for one customer, with its service line items.
type Booking struct {
	ID            int64     `json:"id"`
	Reference     string    `json:"reference"` // external UUID reference
	LocationID    int64     `json:"location_id"`
	CustomerID    int64     `json:"customer_id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Status        string    `json:"status"`
	TotalPrice    float64   `json:"total_price"`
	TotalDuration int       `json:"total_duration_minutes"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BookingLineItem carries the price snapshot taken at booking time. Later
// catalog price changes never alter historical bookings.
type BookingLineItem struct {
	BookingID int64   `json:"booking_id"`
	ServiceID int64   `json:"service_id"`
	Price     float64 `json:"price"`
}

// CustomerInfo is the caller-supplied customer identity for a booking.
type CustomerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// LineItemInput is one requested service with its price snapshot.
type LineItemInput struct {
	ServiceID int64   `json:"service_id"`
	Price     float64 `json:"price"`
}
