// Package notify pushes admin notifications about scheduling activity to a
// Telegram chat. Delivery is best-effort: a failed send is logged, never
// propagated back into the booking flow.
package notify

import (
	"fmt"

	"bookline/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the Telegram API surface the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram notifies an admin chat about bookings and slot blocks.
type Telegram struct {
	sender Sender
	chatID int64
	logger *zerolog.Logger
}

// NewTelegram connects a bot and returns the notifier.
func NewTelegram(token string, chatID int64, logger *zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifier connected")
	return &Telegram{sender: bot, chatID: chatID, logger: logger}, nil
}

// NewWithSender builds a notifier around an existing sender.
func NewWithSender(sender Sender, chatID int64, logger *zerolog.Logger) *Telegram {
	return &Telegram{sender: sender, chatID: chatID, logger: logger}
}

// Subscribe wires the notifier to the event bus.
func (t *Telegram) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.BookingCreated, func(e events.Event) {
		t.send(fmt.Sprintf("New booking #%d: location %d, %s %s", e.BookingID, e.LocationID, e.Date, e.Time))
	})
	bus.Subscribe(events.SlotBlocked, func(e events.Event) {
		t.send(fmt.Sprintf("Slot blocked: location %d, %s %s", e.LocationID, e.Date, e.Time))
	})
	bus.Subscribe(events.SlotUnblocked, func(e events.Event) {
		t.send(fmt.Sprintf("Slot unblocked: location %d, %s %s", e.LocationID, e.Date, e.Time))
	})
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.sender.Send(msg); err != nil {
		t.logger.Error().Err(err).Msg("telegram notification failed")
	}
}
