package service

import (
	"context"
	"testing"

	"bookline/internal/events"
	"bookline/internal/models"
	"bookline/internal/schedule"
	"bookline/internal/store"
	"bookline/internal/timegrid"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ProvisionSlots(ctx context.Context, locationID int64, date string, times []string) (int64, error) {
	args := m.Called(ctx, locationID, date, times)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) GetSlot(ctx context.Context, locationID int64, date, timeOfDay string) (*models.Slot, error) {
	args := m.Called(ctx, locationID, date, timeOfDay)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Slot), args.Error(1)
}

func (m *mockStore) ListSlots(ctx context.Context, locationID int64, date string) ([]models.Slot, error) {
	args := m.Called(ctx, locationID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Slot), args.Error(1)
}

func (m *mockStore) BlockSlot(ctx context.Context, locationID int64, date, timeOfDay, reason string) error {
	return m.Called(ctx, locationID, date, timeOfDay, reason).Error(0)
}

func (m *mockStore) UnblockSlot(ctx context.Context, locationID int64, date, timeOfDay string) error {
	return m.Called(ctx, locationID, date, timeOfDay).Error(0)
}

func (m *mockStore) CreateBooking(ctx context.Context, p store.BookingParams) (*models.Booking, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) GetWorkingHours(ctx context.Context, locationID int64, dayOfWeek int) (*models.WorkingHours, error) {
	args := m.Called(ctx, locationID, dayOfWeek)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkingHours), args.Error(1)
}

func (m *mockStore) UpsertWorkingHours(ctx context.Context, wh *models.WorkingHours) error {
	return m.Called(ctx, wh).Error(0)
}

func (m *mockStore) ListWorkingHours(ctx context.Context, locationID int64) ([]models.WorkingHours, error) {
	args := m.Called(ctx, locationID)
	return args.Get(0).([]models.WorkingHours), args.Error(1)
}

type stubCache struct {
	days map[string][]models.Slot
	sets int
}

func (c *stubCache) GetDay(_ context.Context, _ int64, date string) ([]models.Slot, bool) {
	slots, ok := c.days[date]
	return slots, ok
}

func (c *stubCache) SetDay(_ context.Context, _ int64, date string, slots []models.Slot) {
	if c.days == nil {
		c.days = make(map[string][]models.Slot)
	}
	c.days[date] = slots
	c.sets++
}

func newTestService(st Store, cache DayCache) (*Scheduling, *events.Bus) {
	bus := events.NewBus()
	logger := zerolog.Nop()
	resolver := schedule.NewResolver(st)
	return NewScheduling(st, resolver, bus, cache, models.BookingConfirmed, &logger), bus
}

func validBookRequest() BookRequest {
	return BookRequest{
		LocationID:    1,
		Date:          "2026-04-20",
		Time:          "10:30",
		Customer:      models.CustomerInfo{Name: "Lee Chan", Phone: "+15550123"},
		Items:         []models.LineItemInput{{ServiceID: 3, Price: 42.0}},
		TotalDuration: 30,
	}
}

func TestProvisionWithOverride(t *testing.T) {
	st := new(mockStore)
	svc, _ := newTestService(st, nil)
	ctx := context.Background()

	override := &timegrid.Params{Open: "08:00", Close: "10:00", SlotDuration: 30}
	grid := []string{"08:00", "08:30", "09:00", "09:30"}
	st.On("ProvisionSlots", ctx, int64(1), "2026-04-20", grid).Return(int64(4), nil).Once()
	st.On("ProvisionSlots", ctx, int64(1), "2026-04-21", grid).Return(int64(4), nil).Once()

	total, err := svc.Provision(ctx, 1, "2026-04-20", "2026-04-21", override)
	require.NoError(t, err)
	assert.Equal(t, int64(8), total)
	st.AssertExpectations(t)
}

func TestProvisionInvalidOverrideFailsBeforeInsert(t *testing.T) {
	st := new(mockStore)
	svc, _ := newTestService(st, nil)

	_, err := svc.Provision(context.Background(), 1, "2026-04-20", "2026-04-21",
		&timegrid.Params{Open: "08:00", Close: "10:00", SlotDuration: 0})
	assert.ErrorIs(t, err, timegrid.ErrInvalidConfig)
	st.AssertNotCalled(t, "ProvisionSlots", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProvisionRangeValidation(t *testing.T) {
	st := new(mockStore)
	svc, _ := newTestService(st, nil)
	ctx := context.Background()

	_, err := svc.Provision(ctx, 1, "20-04-2026", "2026-04-21", nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Provision(ctx, 1, "2026-04-21", "2026-04-20", nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Provision(ctx, 1, "2026-01-01", "2026-06-01", nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestProvisionResolvesPerDay(t *testing.T) {
	st := new(mockStore)
	svc, _ := newTestService(st, nil)
	ctx := context.Background()

	// 2026-04-20 is a Monday, configured open; Tuesday has no row; Wednesday
	// is explicitly closed.
	st.On("GetWorkingHours", ctx, int64(1), 1).Return(&models.WorkingHours{
		DayOfWeek: 1, IsOpen: true, OpenTime: "09:00", CloseTime: "11:00", SlotDuration: 60,
	}, nil).Once()
	st.On("GetWorkingHours", ctx, int64(1), 2).Return(nil, nil).Once()
	st.On("GetWorkingHours", ctx, int64(1), 3).Return(&models.WorkingHours{
		DayOfWeek: 3, IsOpen: false,
	}, nil).Once()

	st.On("ProvisionSlots", ctx, int64(1), "2026-04-20", []string{"09:00", "10:00"}).Return(int64(2), nil).Once()
	// Tuesday is unconfigured: the default weekly pattern applies.
	st.On("ProvisionSlots", ctx, int64(1), "2026-04-21", mock.MatchedBy(func(times []string) bool {
		return len(times) > 0 && times[0] == schedule.DefaultHours.OpenTime
	})).Return(int64(18), nil).Once()
	// Wednesday is closed: no insert at all.

	total, err := svc.Provision(ctx, 1, "2026-04-20", "2026-04-22", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)
	st.AssertExpectations(t)
}

func TestBook(t *testing.T) {
	st := new(mockStore)
	svc, bus := newTestService(st, nil)
	ctx := context.Background()

	var published []events.Event
	bus.Subscribe(events.BookingCreated, func(e events.Event) { published = append(published, e) })

	st.On("CreateBooking", ctx, mock.MatchedBy(func(p store.BookingParams) bool {
		return p.Status == models.BookingConfirmed && p.Date == "2026-04-20" && p.Time == "10:30"
	})).Return(&models.Booking{ID: 7, Reference: "ref", LocationID: 1, Date: "2026-04-20", Time: "10:30", Status: models.BookingConfirmed}, nil).Once()

	booking, err := svc.Book(ctx, validBookRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(7), booking.ID)

	require.Len(t, published, 1)
	assert.Equal(t, int64(7), published[0].BookingID)
	assert.Equal(t, "2026-04-20", published[0].Date)
	st.AssertExpectations(t)
}

func TestBookValidation(t *testing.T) {
	st := new(mockStore)
	svc, _ := newTestService(st, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*BookRequest)
	}{
		{"missing phone", func(r *BookRequest) { r.Customer.Phone = "" }},
		{"missing name", func(r *BookRequest) { r.Customer.Name = "" }},
		{"no services", func(r *BookRequest) { r.Items = nil }},
		{"bad date", func(r *BookRequest) { r.Date = "April 20" }},
		{"bad time", func(r *BookRequest) { r.Time = "noon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validBookRequest()
			tt.mutate(&req)
			_, err := svc.Book(ctx, req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	st.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestBookSlotUnavailablePassthrough(t *testing.T) {
	st := new(mockStore)
	svc, _ := newTestService(st, nil)
	ctx := context.Background()

	st.On("CreateBooking", ctx, mock.Anything).Return(nil, store.ErrSlotUnavailable).Once()

	_, err := svc.Book(ctx, validBookRequest())
	assert.ErrorIs(t, err, store.ErrSlotUnavailable)
}

func TestBlockAndUnblockPublishEvents(t *testing.T) {
	st := new(mockStore)
	svc, bus := newTestService(st, nil)
	ctx := context.Background()

	var got []string
	bus.Subscribe(events.SlotBlocked, func(e events.Event) { got = append(got, e.Type) })
	bus.Subscribe(events.SlotUnblocked, func(e events.Event) { got = append(got, e.Type) })

	st.On("BlockSlot", ctx, int64(1), "2026-04-20", "10:00", "repair").Return(nil).Once()
	st.On("UnblockSlot", ctx, int64(1), "2026-04-20", "10:00").Return(nil).Once()

	require.NoError(t, svc.Block(ctx, 1, "2026-04-20", "10:00", "repair"))
	require.NoError(t, svc.Unblock(ctx, 1, "2026-04-20", "10:00"))
	assert.Equal(t, []string{events.SlotBlocked, events.SlotUnblocked}, got)
	st.AssertExpectations(t)
}

func TestBlockErrorSuppressesEvent(t *testing.T) {
	st := new(mockStore)
	svc, bus := newTestService(st, nil)
	ctx := context.Background()

	fired := false
	bus.Subscribe(events.SlotBlocked, func(events.Event) { fired = true })

	st.On("BlockSlot", ctx, int64(1), "2026-04-20", "10:00", "x").Return(store.ErrSlotNotAvailable).Once()

	err := svc.Block(ctx, 1, "2026-04-20", "10:00", "x")
	assert.ErrorIs(t, err, store.ErrSlotNotAvailable)
	assert.False(t, fired)
}

func TestDayAvailabilityUsesCache(t *testing.T) {
	st := new(mockStore)
	cache := &stubCache{}
	svc, _ := newTestService(st, cache)
	ctx := context.Background()

	slots := []models.Slot{{LocationID: 1, Date: "2026-04-20", Time: "09:00", Status: models.SlotAvailable}}
	st.On("ListSlots", ctx, int64(1), "2026-04-20").Return(slots, nil).Once()

	got, err := svc.DayAvailability(ctx, 1, "2026-04-20")
	require.NoError(t, err)
	assert.Equal(t, slots, got)
	assert.Equal(t, 1, cache.sets)

	// Second read is served from cache; the store is not consulted again.
	got, err = svc.DayAvailability(ctx, 1, "2026-04-20")
	require.NoError(t, err)
	assert.Equal(t, slots, got)
	st.AssertExpectations(t)
}

func TestSetWorkingHoursValidates(t *testing.T) {
	st := new(mockStore)
	svc, _ := newTestService(st, nil)
	ctx := context.Background()

	err := svc.SetWorkingHours(ctx, &models.WorkingHours{
		LocationID: 1, DayOfWeek: 1, IsOpen: true,
		OpenTime: "18:00", CloseTime: "08:00", SlotDuration: 30,
	})
	assert.ErrorIs(t, err, timegrid.ErrInvalidConfig)
	st.AssertNotCalled(t, "UpsertWorkingHours", mock.Anything, mock.Anything)

	wh := &models.WorkingHours{
		LocationID: 1, DayOfWeek: 1, IsOpen: true,
		OpenTime: "08:00", CloseTime: "18:00", SlotDuration: 30,
	}
	st.On("UpsertWorkingHours", ctx, wh).Return(nil).Once()
	assert.NoError(t, svc.SetWorkingHours(ctx, wh))
	st.AssertExpectations(t)
}
