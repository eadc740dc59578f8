package cache

import (
	"context"
	"testing"
	"time"

	"bookline/internal/events"
	"bookline/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Availability, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := zerolog.Nop()
	return NewAvailability(client, time.Minute, &logger), mr
}

func sampleSlots() []models.Slot {
	return []models.Slot{
		{LocationID: 1, Date: "2026-04-20", Time: "09:00", Status: models.SlotAvailable},
		{LocationID: 1, Date: "2026-04-20", Time: "09:30", Status: models.SlotBooked},
	}
}

func TestDayRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := c.GetDay(ctx, 1, "2026-04-20")
	assert.False(t, ok)

	c.SetDay(ctx, 1, "2026-04-20", sampleSlots())

	got, ok := c.GetDay(ctx, 1, "2026-04-20")
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "09:30", got[1].Time)
	assert.Equal(t, models.SlotBooked, got[1].Status)
}

func TestTTLExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.SetDay(ctx, 1, "2026-04-20", sampleSlots())
	mr.FastForward(2 * time.Minute)

	_, ok := c.GetDay(ctx, 1, "2026-04-20")
	assert.False(t, ok)
}

func TestInvalidationOnEvents(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	bus := events.NewBus()
	c.SubscribeInvalidation(bus)

	c.SetDay(ctx, 1, "2026-04-20", sampleSlots())
	c.SetDay(ctx, 1, "2026-04-21", sampleSlots())
	c.SetDay(ctx, 2, "2026-04-20", sampleSlots())

	bus.Publish(events.Event{Type: events.BookingCreated, LocationID: 1, Date: "2026-04-20", Time: "09:00"})

	_, ok := c.GetDay(ctx, 1, "2026-04-20")
	assert.False(t, ok, "booked day must be invalidated")
	_, ok = c.GetDay(ctx, 1, "2026-04-21")
	assert.True(t, ok, "other days stay cached")
	_, ok = c.GetDay(ctx, 2, "2026-04-20")
	assert.True(t, ok, "other locations stay cached")
}

func TestProvisioningInvalidatesWholeLocation(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	bus := events.NewBus()
	c.SubscribeInvalidation(bus)

	c.SetDay(ctx, 1, "2026-04-20", sampleSlots())
	c.SetDay(ctx, 1, "2026-04-21", sampleSlots())
	c.SetDay(ctx, 2, "2026-04-20", sampleSlots())

	bus.Publish(events.Event{Type: events.SlotsProvisioned, LocationID: 1})

	_, ok := c.GetDay(ctx, 1, "2026-04-20")
	assert.False(t, ok)
	_, ok = c.GetDay(ctx, 1, "2026-04-21")
	assert.False(t, ok)
	_, ok = c.GetDay(ctx, 2, "2026-04-20")
	assert.True(t, ok)
}
