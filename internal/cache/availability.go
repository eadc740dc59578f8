// Package cache keeps a short-lived Redis view of per-day slot availability
// for the read path. Booking, blocking and provisioning correctness never
// depend on it: writes go to the store and invalidate the affected day here.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookline/internal/events"
	"bookline/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Availability is a read-through day cache backed by Redis.
type Availability struct {
	client *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// NewAvailability creates the cache with the given TTL.
func NewAvailability(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *Availability {
	return &Availability{client: client, ttl: ttl, logger: logger}
}

func dayKey(locationID int64, date string) string {
	return fmt.Sprintf("availability:%d:%s", locationID, date)
}

// GetDay returns the cached slot view for a date, if present.
func (a *Availability) GetDay(ctx context.Context, locationID int64, date string) ([]models.Slot, bool) {
	val, err := a.client.Get(ctx, dayKey(locationID, date)).Result()
	if err != nil {
		if err != redis.Nil {
			a.logger.Debug().Err(err).Msg("availability cache read failed")
		}
		return nil, false
	}

	var slots []models.Slot
	if err := json.Unmarshal([]byte(val), &slots); err != nil {
		return nil, false
	}
	return slots, true
}

// SetDay stores the slot view for a date with the configured TTL. Failures
// are logged and ignored: the cache is best-effort.
func (a *Availability) SetDay(ctx context.Context, locationID int64, date string, slots []models.Slot) {
	data, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := a.client.Set(ctx, dayKey(locationID, date), data, a.ttl).Err(); err != nil {
		a.logger.Debug().Err(err).Msg("availability cache write failed")
	}
}

// InvalidateDay drops the cached view for a date.
func (a *Availability) InvalidateDay(ctx context.Context, locationID int64, date string) {
	if err := a.client.Del(ctx, dayKey(locationID, date)).Err(); err != nil {
		a.logger.Debug().Err(err).Msg("availability cache invalidation failed")
	}
}

// InvalidateLocation drops every cached day for a location. Used after
// provisioning, which touches an unbounded set of dates.
func (a *Availability) InvalidateLocation(ctx context.Context, locationID int64) {
	pattern := fmt.Sprintf("availability:%d:*", locationID)
	iter := a.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := a.client.Del(ctx, iter.Val()).Err(); err != nil {
			a.logger.Debug().Err(err).Str("key", iter.Val()).Msg("availability cache invalidation failed")
		}
	}
	if err := iter.Err(); err != nil {
		a.logger.Debug().Err(err).Msg("availability cache scan failed")
	}
}

// SubscribeInvalidation wires the cache to the event bus so every slot state
// change drops the stale day view.
func (a *Availability) SubscribeInvalidation(bus *events.Bus) {
	perDay := func(e events.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		a.InvalidateDay(ctx, e.LocationID, e.Date)
	}
	bus.Subscribe(events.BookingCreated, perDay)
	bus.Subscribe(events.SlotBlocked, perDay)
	bus.Subscribe(events.SlotUnblocked, perDay)
	bus.Subscribe(events.SlotsProvisioned, func(e events.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.InvalidateLocation(ctx, e.LocationID)
	})
}
