// Package timegrid derives a day's bookable slot start times from working
// hours. It is pure: no clock, no I/O, identical inputs give identical output.
package timegrid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidConfig signals unusable schedule parameters (malformed times,
// non-positive slot duration, inverted break window).
var ErrInvalidConfig = errors.New("invalid schedule config")

// Params are the generator inputs, all same-day times of day as "HH:MM".
// BreakStart/BreakEnd are optional but must be set together.
type Params struct {
	Open         string
	Close        string
	SlotDuration int // minutes
	BreakStart   string
	BreakEnd     string
}

// Generate returns the ordered slot start times for the day. Starting at
// Open it emits the current time and advances by SlotDuration while still
// before Close. Times inside [BreakStart, BreakEnd) are suppressed; a slot
// landing exactly on BreakEnd is the next bookable one. Open >= Close
// produces an empty grid.
func Generate(p Params) ([]string, error) {
	if p.SlotDuration <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive, got %d", ErrInvalidConfig, p.SlotDuration)
	}

	open, err := ParseClock(p.Open)
	if err != nil {
		return nil, fmt.Errorf("%w: open time: %v", ErrInvalidConfig, err)
	}
	closeAt, err := ParseClock(p.Close)
	if err != nil {
		return nil, fmt.Errorf("%w: close time: %v", ErrInvalidConfig, err)
	}

	hasBreak := p.BreakStart != "" || p.BreakEnd != ""
	var breakStart, breakEnd int
	if hasBreak {
		if p.BreakStart == "" || p.BreakEnd == "" {
			return nil, fmt.Errorf("%w: break start and end must be set together", ErrInvalidConfig)
		}
		breakStart, err = ParseClock(p.BreakStart)
		if err != nil {
			return nil, fmt.Errorf("%w: break start: %v", ErrInvalidConfig, err)
		}
		breakEnd, err = ParseClock(p.BreakEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: break end: %v", ErrInvalidConfig, err)
		}
		if breakStart >= breakEnd {
			return nil, fmt.Errorf("%w: break start %s must be before break end %s", ErrInvalidConfig, p.BreakStart, p.BreakEnd)
		}
	}

	var grid []string
	for cursor := open; cursor < closeAt; cursor += p.SlotDuration {
		if hasBreak && cursor >= breakStart && cursor < breakEnd {
			continue
		}
		grid = append(grid, FormatClock(cursor))
	}
	return grid, nil
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %q", s)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
