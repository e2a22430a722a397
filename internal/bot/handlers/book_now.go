package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/courtbot/tennis-bot/internal/bot/keyboard"
)

// RunTrigger starts an immediate booking run, either by enqueueing a task or
// by launching the pipeline directly.
type RunTrigger func(ctx context.Context) error

// NewBookNowHandler asks for confirmation before an immediate booking run. A
// run drives a real browser against the club account, so a stray tap should
// not start one.
func NewBookNowHandler(kb *keyboard.Builder) Handler {
	return func(c telebot.Context) error {
		return c.Send("Start a booking run right now?", kb.ConfirmBookRun())
	}
}

// NewBookRunCallback handles the confirm/cancel answer.
func NewBookRunCallback(trigger RunTrigger, log *slog.Logger) CallbackHandler {
	return func(c telebot.Context, payload string) error {
		defer func() { _ = c.Respond() }()

		if payload != "confirm" {
			return c.Edit("Booking run cancelled.")
		}

		if err := trigger(context.Background()); err != nil {
			if log != nil {
				log.Error("failed to start booking run", slog.Any("error", err))
			}
			return c.Edit("Could not start the booking run. Please try again later.")
		}

		return c.Edit("Booking run started. You will be notified of the outcome.")
	}
}
