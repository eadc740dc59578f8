// Package service orchestrates slot provisioning, booking and admin slot
// transitions on top of the store, publishing domain events and metrics.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookline/internal/events"
	"bookline/internal/metrics"
	"bookline/internal/models"
	"bookline/internal/schedule"
	"bookline/internal/store"
	"bookline/internal/timegrid"

	"github.com/rs/zerolog"
)

const (
	// MaxProvisionDays is the maximum date range a single provisioning
	// call may cover.
	MaxProvisionDays = 90

	dateLayout = "2006-01-02"
)

// ErrInvalidRequest signals caller input that fails validation before any
// storage work happens.
var ErrInvalidRequest = errors.New("invalid request")

// Store is the persistence surface the service needs.
type Store interface {
	ProvisionSlots(ctx context.Context, locationID int64, date string, times []string) (int64, error)
	GetSlot(ctx context.Context, locationID int64, date, timeOfDay string) (*models.Slot, error)
	ListSlots(ctx context.Context, locationID int64, date string) ([]models.Slot, error)
	BlockSlot(ctx context.Context, locationID int64, date, timeOfDay, reason string) error
	UnblockSlot(ctx context.Context, locationID int64, date, timeOfDay string) error
	CreateBooking(ctx context.Context, p store.BookingParams) (*models.Booking, error)
	GetWorkingHours(ctx context.Context, locationID int64, dayOfWeek int) (*models.WorkingHours, error)
	UpsertWorkingHours(ctx context.Context, wh *models.WorkingHours) error
	ListWorkingHours(ctx context.Context, locationID int64) ([]models.WorkingHours, error)
}

// DayCache caches per-day slot views for the read path. Booking decisions
// never consult it.
type DayCache interface {
	GetDay(ctx context.Context, locationID int64, date string) ([]models.Slot, bool)
	SetDay(ctx context.Context, locationID int64, date string, slots []models.Slot)
}

// Scheduling is the appointment scheduling service.
type Scheduling struct {
	store         Store
	resolver      *schedule.Resolver
	bus           *events.Bus
	cache         DayCache // nil disables caching
	defaultStatus string
	logger        *zerolog.Logger
}

// NewScheduling wires the scheduling service. cache may be nil.
func NewScheduling(st Store, resolver *schedule.Resolver, bus *events.Bus, cache DayCache, defaultStatus string, logger *zerolog.Logger) *Scheduling {
	if defaultStatus == "" {
		defaultStatus = models.BookingConfirmed
	}
	return &Scheduling{
		store:         st,
		resolver:      resolver,
		bus:           bus,
		cache:         cache,
		defaultStatus: defaultStatus,
		logger:        logger,
	}
}

// Provision materializes the slot grid for every date in [from, to]
// inclusive. With an override the same grid parameters apply to every day in
// the range; otherwise each day resolves through the working-hours policy.
// Existing slot rows are never touched. Returns the number of rows inserted.
func (s *Scheduling) Provision(ctx context.Context, locationID int64, from, to string, override *timegrid.Params) (int64, error) {
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return 0, fmt.Errorf("%w: start date: %v", ErrInvalidRequest, err)
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return 0, fmt.Errorf("%w: end date: %v", ErrInvalidRequest, err)
	}
	if end.Before(start) {
		return 0, fmt.Errorf("%w: start date must be before or equal to end date", ErrInvalidRequest)
	}
	if end.Sub(start) > MaxProvisionDays*24*time.Hour {
		return 0, fmt.Errorf("%w: date range exceeds maximum of %d days", ErrInvalidRequest, MaxProvisionDays)
	}

	if override != nil {
		// Validate once up front so a bad override fails before any insert.
		if _, err := timegrid.Generate(*override); err != nil {
			return 0, err
		}
	}

	var total int64
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		var grid []string
		if override != nil {
			grid, err = timegrid.Generate(*override)
		} else {
			grid, err = s.dayGrid(ctx, locationID, date)
		}
		if err != nil {
			return total, err
		}
		if len(grid) == 0 {
			continue
		}

		inserted, err := s.store.ProvisionSlots(ctx, locationID, date.Format(dateLayout), grid)
		if err != nil {
			return total, fmt.Errorf("provision %s: %w", date.Format(dateLayout), err)
		}
		total += inserted
	}

	metrics.AddSlotsProvisioned(total)
	s.bus.Publish(events.Event{Type: events.SlotsProvisioned, LocationID: locationID})
	s.logger.Info().
		Int64("location_id", locationID).
		Str("from", from).
		Str("to", to).
		Int64("inserted", total).
		Msg("slots provisioned")
	return total, nil
}

func (s *Scheduling) dayGrid(ctx context.Context, locationID int64, date time.Time) ([]string, error) {
	day, err := s.resolver.Resolve(ctx, locationID, date)
	if err != nil {
		return nil, err
	}
	if !day.Open {
		return nil, nil
	}
	return timegrid.Generate(day.Grid)
}

// BookRequest is the booking operation input.
type BookRequest struct {
	LocationID    int64
	Date          string
	Time          string
	Customer      models.CustomerInfo
	Items         []models.LineItemInput
	Notes         string
	TotalDuration int
}

// Book atomically reserves the slot and records the booking.
func (s *Scheduling) Book(ctx context.Context, req BookRequest) (*models.Booking, error) {
	if err := validateBookRequest(req); err != nil {
		return nil, err
	}

	booking, err := s.store.CreateBooking(ctx, store.BookingParams{
		LocationID:    req.LocationID,
		Date:          req.Date,
		Time:          req.Time,
		Customer:      req.Customer,
		Items:         req.Items,
		Notes:         req.Notes,
		Status:        s.defaultStatus,
		TotalDuration: req.TotalDuration,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSlotNotFound):
			metrics.IncBookingRejected("slot_not_found")
		case errors.Is(err, store.ErrSlotUnavailable):
			metrics.IncBookingRejected("slot_unavailable")
		default:
			metrics.IncBookingRejected("storage")
		}
		return nil, err
	}

	metrics.IncBookingCreated(booking.Status)
	s.bus.Publish(events.Event{
		Type:       events.BookingCreated,
		LocationID: booking.LocationID,
		Date:       booking.Date,
		Time:       booking.Time,
		BookingID:  booking.ID,
	})
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Str("reference", booking.Reference).
		Int64("location_id", booking.LocationID).
		Str("date", booking.Date).
		Str("time", booking.Time).
		Msg("booking created")
	return booking, nil
}

func validateBookRequest(req BookRequest) error {
	if req.Customer.Phone == "" {
		return fmt.Errorf("%w: customer phone is required", ErrInvalidRequest)
	}
	if req.Customer.Name == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidRequest)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: at least one service is required", ErrInvalidRequest)
	}
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		return fmt.Errorf("%w: date: %v", ErrInvalidRequest, err)
	}
	if _, err := timegrid.ParseClock(req.Time); err != nil {
		return fmt.Errorf("%w: time: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Block transitions a slot from available to blocked.
func (s *Scheduling) Block(ctx context.Context, locationID int64, date, timeOfDay, reason string) error {
	if err := s.store.BlockSlot(ctx, locationID, date, timeOfDay, reason); err != nil {
		return err
	}
	metrics.IncSlotTransition("block")
	s.bus.Publish(events.Event{Type: events.SlotBlocked, LocationID: locationID, Date: date, Time: timeOfDay})
	s.logger.Info().
		Int64("location_id", locationID).
		Str("date", date).
		Str("time", timeOfDay).
		Str("reason", reason).
		Msg("slot blocked")
	return nil
}

// Unblock transitions a slot from blocked back to available.
func (s *Scheduling) Unblock(ctx context.Context, locationID int64, date, timeOfDay string) error {
	if err := s.store.UnblockSlot(ctx, locationID, date, timeOfDay); err != nil {
		return err
	}
	metrics.IncSlotTransition("unblock")
	s.bus.Publish(events.Event{Type: events.SlotUnblocked, LocationID: locationID, Date: date, Time: timeOfDay})
	s.logger.Info().
		Int64("location_id", locationID).
		Str("date", date).
		Str("time", timeOfDay).
		Msg("slot unblocked")
	return nil
}

// DayAvailability returns the slot rows for a date, through the read cache
// when one is configured.
func (s *Scheduling) DayAvailability(ctx context.Context, locationID int64, date string) ([]models.Slot, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date: %v", ErrInvalidRequest, err)
	}

	if s.cache != nil {
		if slots, ok := s.cache.GetDay(ctx, locationID, date); ok {
			return slots, nil
		}
	}

	slots, err := s.store.ListSlots(ctx, locationID, date)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetDay(ctx, locationID, date, slots)
	}
	return slots, nil
}

// SetWorkingHours validates and stores the per-day-of-week configuration.
func (s *Scheduling) SetWorkingHours(ctx context.Context, wh *models.WorkingHours) error {
	if err := schedule.Validate(wh); err != nil {
		return err
	}
	if err := s.store.UpsertWorkingHours(ctx, wh); err != nil {
		return err
	}
	s.logger.Info().
		Int64("location_id", wh.LocationID).
		Int("day_of_week", wh.DayOfWeek).
		Bool("is_open", wh.IsOpen).
		Msg("working hours updated")
	return nil
}

// WorkingHours lists the configured rows for a location.
func (s *Scheduling) WorkingHours(ctx context.Context, locationID int64) ([]models.WorkingHours, error) {
	return s.store.ListWorkingHours(ctx, locationID)
}
