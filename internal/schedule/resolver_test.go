package schedule

import (
	"context"
	"testing"
	"time"

	"bookline/internal/models"
	"bookline/internal/timegrid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	rows map[int]*models.WorkingHours // keyed by day of week
	err  error
}

func (s *stubSource) GetWorkingHours(_ context.Context, _ int64, dayOfWeek int) (*models.WorkingHours, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows[dayOfWeek], nil
}

// 2026-03-02 is a Monday, 2026-03-01 a Sunday.
var (
	monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	sunday = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
)

func TestResolveConfiguredOpenDay(t *testing.T) {
	source := &stubSource{rows: map[int]*models.WorkingHours{
		1: {DayOfWeek: 1, IsOpen: true, OpenTime: "10:00", CloseTime: "20:00", SlotDuration: 45},
	}}
	r := NewResolver(source)

	day, err := r.Resolve(context.Background(), 1, monday)
	require.NoError(t, err)
	assert.True(t, day.Open)
	assert.Equal(t, "10:00", day.Grid.Open)
	assert.Equal(t, "20:00", day.Grid.Close)
	assert.Equal(t, 45, day.Grid.SlotDuration)
	assert.Empty(t, day.Grid.BreakStart)
}

func TestResolveConfiguredClosedDayDoesNotFallBack(t *testing.T) {
	// A Monday explicitly marked closed must stay closed even though the
	// default policy would open it.
	source := &stubSource{rows: map[int]*models.WorkingHours{
		1: {DayOfWeek: 1, IsOpen: false},
	}}
	r := NewResolver(source)

	day, err := r.Resolve(context.Background(), 1, monday)
	require.NoError(t, err)
	assert.False(t, day.Open)
}

func TestResolveUnconfiguredDayUsesDefaults(t *testing.T) {
	r := NewResolver(&stubSource{})

	day, err := r.Resolve(context.Background(), 1, monday)
	require.NoError(t, err)
	assert.True(t, day.Open)
	assert.Equal(t, DefaultHours.OpenTime, day.Grid.Open)
	assert.Equal(t, DefaultHours.CloseTime, day.Grid.Close)
	assert.Equal(t, DefaultHours.BreakStart, day.Grid.BreakStart)
	assert.Equal(t, DefaultHours.BreakEnd, day.Grid.BreakEnd)
	assert.Equal(t, DefaultHours.SlotDuration, day.Grid.SlotDuration)
}

func TestResolveUnconfiguredSundayClosed(t *testing.T) {
	r := NewResolver(&stubSource{})

	day, err := r.Resolve(context.Background(), 1, sunday)
	require.NoError(t, err)
	assert.False(t, day.Open)
}

func TestResolveSourceError(t *testing.T) {
	r := NewResolver(&stubSource{err: assert.AnError})

	_, err := r.Resolve(context.Background(), 1, monday)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestValidate(t *testing.T) {
	valid := func() *models.WorkingHours {
		return &models.WorkingHours{
			DayOfWeek: 2, IsOpen: true,
			OpenTime: "09:00", CloseTime: "18:00",
			BreakStart: "13:00", BreakEnd: "14:00",
			SlotDuration: 30,
		}
	}

	t.Run("valid row", func(t *testing.T) {
		assert.NoError(t, Validate(valid()))
	})

	t.Run("closed day skips time checks", func(t *testing.T) {
		assert.NoError(t, Validate(&models.WorkingHours{DayOfWeek: 0, IsOpen: false}))
	})

	tests := []struct {
		name   string
		mutate func(*models.WorkingHours)
	}{
		{"day of week out of range", func(wh *models.WorkingHours) { wh.DayOfWeek = 7 }},
		{"open after close", func(wh *models.WorkingHours) { wh.OpenTime = "19:00" }},
		{"zero duration", func(wh *models.WorkingHours) { wh.SlotDuration = 0 }},
		{"break end only", func(wh *models.WorkingHours) { wh.BreakStart = "" }},
		{"inverted break", func(wh *models.WorkingHours) { wh.BreakStart = "15:00"; wh.BreakEnd = "14:00" }},
		{"break outside hours", func(wh *models.WorkingHours) { wh.BreakStart = "08:00"; wh.BreakEnd = "10:00"; wh.OpenTime = "09:00" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wh := valid()
			tt.mutate(wh)
			assert.ErrorIs(t, Validate(wh), timegrid.ErrInvalidConfig)
		})
	}
}
