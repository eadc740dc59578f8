package notify

import (
	"errors"
	"testing"

	"bookline/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *stubSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, msg)
	}
	return tgbotapi.Message{}, s.err
}

func TestNotifiesOnBooking(t *testing.T) {
	sender := &stubSender{}
	logger := zerolog.Nop()
	bus := events.NewBus()
	NewWithSender(sender, 42, &logger).Subscribe(bus)

	bus.Publish(events.Event{Type: events.BookingCreated, BookingID: 9, LocationID: 1, Date: "2026-04-20", Time: "10:30"})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Contains(t, sender.sent[0].Text, "booking #9")
	assert.Contains(t, sender.sent[0].Text, "2026-04-20 10:30")
}

func TestNotifiesOnBlockAndUnblock(t *testing.T) {
	sender := &stubSender{}
	logger := zerolog.Nop()
	bus := events.NewBus()
	NewWithSender(sender, 42, &logger).Subscribe(bus)

	bus.Publish(events.Event{Type: events.SlotBlocked, LocationID: 1, Date: "2026-04-20", Time: "10:30"})
	bus.Publish(events.Event{Type: events.SlotUnblocked, LocationID: 1, Date: "2026-04-20", Time: "10:30"})

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0].Text, "blocked")
	assert.Contains(t, sender.sent[1].Text, "unblocked")
}

func TestSendFailureIsSwallowed(t *testing.T) {
	sender := &stubSender{err: errors.New("telegram down")}
	logger := zerolog.Nop()
	bus := events.NewBus()
	NewWithSender(sender, 42, &logger).Subscribe(bus)

	// Must not panic or propagate; the booking flow never sees this error.
	bus.Publish(events.Event{Type: events.BookingCreated, BookingID: 1, LocationID: 1, Date: "2026-04-20", Time: "10:30"})
}
