package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/courtbot/tennis-bot/internal/booking"
	"github.com/courtbot/tennis-bot/internal/slots"
)

const bookingsFetchTimeout = 2 * time.Minute

// NewBookingsHandler fetches the account's upcoming bookings from the club
// site. This opens a real browser session, so the handler is slow and
// rate-limited like everything else.
func NewBookingsHandler(agent *booking.Agent, log *slog.Logger) Handler {
	return func(c telebot.Context) error {
		_ = c.Notify(telebot.Typing)

		ctx, cancel := context.WithTimeout(context.Background(), bookingsFetchTimeout)
		defer cancel()

		session, err := agent.OpenSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		booked, err := agent.ExistingBookings(ctx, session)
		if err != nil {
			return err
		}

		if len(booked) == 0 {
			return c.Send("No upcoming bookings.")
		}

		if log != nil {
			log.Info("fetched bookings for chat",
				slog.Int64("chat_id", chatID(c)), slog.Int("count", len(booked)))
		}

		return c.Send(formatBookings(booked))
	}
}

func formatBookings(booked []slots.Slot) string {
	var sb strings.Builder
	sb.WriteString("Upcoming bookings:\n")

	for _, b := range booked {
		fmt.Fprintf(&sb, "• %s on %s at %s\n",
			b.CourtName,
			b.Date.Format("Mon, 2 Jan 2006"),
			slots.FormatClock(b.Start),
		)
	}

	return strings.TrimRight(sb.String(), "\n")
}
