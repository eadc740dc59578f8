// Package schedule resolves a calendar date to the day's slot grid inputs.
package schedule

import (
	"context"
	"fmt"
	"time"

	"bookline/internal/models"
	"bookline/internal/timegrid"
)

// DefaultHours is the fallback applied when a location has no working-hours
// row for a day of week at all: Mon-Sat 08:00-18:00 with a 12:00-13:00 break
// and 30-minute slots, Sunday closed.
var DefaultHours = struct {
	OpenTime     string
	CloseTime    string
	BreakStart   string
	BreakEnd     string
	SlotDuration int
}{
	OpenTime:     "08:00",
	CloseTime:    "18:00",
	BreakStart:   "12:00",
	BreakEnd:     "13:00",
	SlotDuration: 30,
}

// ConfigSource looks up the working-hours row for (location, day-of-week).
// A nil row with nil error means no configuration exists for that day.
type ConfigSource interface {
	GetWorkingHours(ctx context.Context, locationID int64, dayOfWeek int) (*models.WorkingHours, error)
}

// Day is the resolved schedule for one calendar date.
type Day struct {
	Open bool
	Grid timegrid.Params
}

// Resolver maps dates to day schedules with an explicit three-way policy:
// a configured open day uses its row, a configured closed day stays closed,
// and only a fully unconfigured day falls back to DefaultHours. Treating
// "closed" and "unconfigured" the same would silently reopen closed days.
type Resolver struct {
	source ConfigSource
}

// NewResolver creates a resolver backed by the given config source.
func NewResolver(source ConfigSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the effective schedule for the date.
func (r *Resolver) Resolve(ctx context.Context, locationID int64, date time.Time) (Day, error) {
	dayOfWeek := int(date.Weekday()) // 0=Sunday .. 6=Saturday

	wh, err := r.source.GetWorkingHours(ctx, locationID, dayOfWeek)
	if err != nil {
		return Day{}, fmt.Errorf("get working hours: %w", err)
	}

	if wh != nil {
		if !wh.IsOpen {
			return Day{Open: false}, nil
		}
		return Day{
			Open: true,
			Grid: timegrid.Params{
				Open:         wh.OpenTime,
				Close:        wh.CloseTime,
				SlotDuration: wh.SlotDuration,
				BreakStart:   wh.BreakStart,
				BreakEnd:     wh.BreakEnd,
			},
		}, nil
	}

	if dayOfWeek == 0 {
		return Day{Open: false}, nil
	}
	return Day{
		Open: true,
		Grid: timegrid.Params{
			Open:         DefaultHours.OpenTime,
			Close:        DefaultHours.CloseTime,
			SlotDuration: DefaultHours.SlotDuration,
			BreakStart:   DefaultHours.BreakStart,
			BreakEnd:     DefaultHours.BreakEnd,
		},
	}, nil
}

// Validate checks the working-hours invariants before a row is stored:
// open before close, break inside the open window, positive duration.
func Validate(wh *models.WorkingHours) error {
	if wh.DayOfWeek < 0 || wh.DayOfWeek > 6 {
		return fmt.Errorf("%w: day_of_week must be 0..6, got %d", timegrid.ErrInvalidConfig, wh.DayOfWeek)
	}
	if !wh.IsOpen {
		return nil
	}

	open, err := timegrid.ParseClock(wh.OpenTime)
	if err != nil {
		return fmt.Errorf("%w: open time: %v", timegrid.ErrInvalidConfig, err)
	}
	closeAt, err := timegrid.ParseClock(wh.CloseTime)
	if err != nil {
		return fmt.Errorf("%w: close time: %v", timegrid.ErrInvalidConfig, err)
	}
	if open >= closeAt {
		return fmt.Errorf("%w: open %s must be before close %s", timegrid.ErrInvalidConfig, wh.OpenTime, wh.CloseTime)
	}
	if wh.SlotDuration <= 0 {
		return fmt.Errorf("%w: slot duration must be positive, got %d", timegrid.ErrInvalidConfig, wh.SlotDuration)
	}

	if wh.BreakStart == "" && wh.BreakEnd == "" {
		return nil
	}
	if wh.BreakStart == "" || wh.BreakEnd == "" {
		return fmt.Errorf("%w: break start and end must be set together", timegrid.ErrInvalidConfig)
	}
	breakStart, err := timegrid.ParseClock(wh.BreakStart)
	if err != nil {
		return fmt.Errorf("%w: break start: %v", timegrid.ErrInvalidConfig, err)
	}
	breakEnd, err := timegrid.ParseClock(wh.BreakEnd)
	if err != nil {
		return fmt.Errorf("%w: break end: %v", timegrid.ErrInvalidConfig, err)
	}
	if breakStart >= breakEnd {
		return fmt.Errorf("%w: break start %s must be before break end %s", timegrid.ErrInvalidConfig, wh.BreakStart, wh.BreakEnd)
	}
	if breakStart < open || breakEnd > closeAt {
		return fmt.Errorf("%w: break %s-%s must lie within %s-%s", timegrid.ErrInvalidConfig, wh.BreakStart, wh.BreakEnd, wh.OpenTime, wh.CloseTime)
	}
	return nil
}
