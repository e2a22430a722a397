package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/courtbot/tennis-bot/internal/bot/keyboard"
	"github.com/courtbot/tennis-bot/internal/domain"
	"github.com/courtbot/tennis-bot/internal/history"
	"github.com/courtbot/tennis-bot/internal/slots"
)

const (
	historyPageSize = 5
	// Recent attempts fetched per request; older rows need the database.
	historyFetchLimit = 50
)

// NewHistoryHandler shows the first page of recent booking attempts.
func NewHistoryHandler(attempts history.Repository, kb *keyboard.Builder) Handler {
	return func(c telebot.Context) error {
		if attempts == nil {
			return c.Send("Booking history is not enabled.")
		}

		text, markup, err := historyPage(context.Background(), attempts, kb, 1)
		if err != nil {
			return err
		}
		return c.Send(text, markup)
	}
}

// NewHistoryPageCallback flips between history pages.
func NewHistoryPageCallback(attempts history.Repository, kb *keyboard.Builder) CallbackHandler {
	return func(c telebot.Context, payload string) error {
		defer func() { _ = c.Respond() }()

		if attempts == nil {
			return nil
		}

		page, err := strconv.Atoi(payload)
		if err != nil || page < 1 {
			page = 1
		}

		text, markup, err := historyPage(context.Background(), attempts, kb, page)
		if err != nil {
			return err
		}
		return c.Edit(text, markup)
	}
}

func historyPage(ctx context.Context, attempts history.Repository, kb *keyboard.Builder, page int) (string, *telebot.ReplyMarkup, error) {
	recent, err := attempts.Recent(ctx, historyFetchLimit)
	if err != nil {
		return "", nil, err
	}

	if len(recent) == 0 {
		return "No booking attempts recorded yet.", nil, nil
	}

	totalPages := (len(recent) + historyPageSize - 1) / historyPageSize
	if page > totalPages {
		page = totalPages
	}

	from := (page - 1) * historyPageSize
	to := from + historyPageSize
	if to > len(recent) {
		to = len(recent)
	}

	return formatAttempts(recent[from:to]), kb.HistoryPager(page, totalPages), nil
}

func formatAttempts(attempts []domain.BookingAttempt) string {
	var sb strings.Builder
	sb.WriteString("Recent booking attempts:\n")

	for _, a := range attempts {
		outcome := "❌"
		if a.Success {
			outcome = "✅"
		}

		fmt.Fprintf(&sb, "%s %s", outcome, a.TargetDate.Format("2006-01-02"))
		if a.Success {
			fmt.Fprintf(&sb, " court %d at %s", a.Court, slots.FormatClock(a.StartMinute))
		} else if a.ErrorDetail != "" {
			fmt.Fprintf(&sb, ": %s", a.ErrorDetail)
		}
		fmt.Fprintf(&sb, " (%s)\n", a.Trigger)
	}

	return strings.TrimRight(sb.String(), "\n")
}
