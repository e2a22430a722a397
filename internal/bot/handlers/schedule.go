package handlers

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/courtbot/tennis-bot/internal/pipeline"
	"github.com/courtbot/tennis-bot/internal/prefs"
)

// NewScheduleHandler reports the configured booking preferences.
func NewScheduleHandler(store *prefs.Store) Handler {
	return func(c telebot.Context) error {
		return c.Send(store.Describe())
	}
}

// NewStatusHandler reports the outcome of the most recent booking run.
func NewStatusHandler(lastRun func() *pipeline.RunReport) Handler {
	return func(c telebot.Context) error {
		return c.Send(lastRun().Describe())
	}
}

// NewHelpHandler lists the available commands.
func NewHelpHandler() Handler {
	const helpText = `Court booking bot commands:

/start - subscribe to booking notifications
/stop - unsubscribe
/book_now - start a booking run immediately
/schedule - show the configured booking preferences
/bookings - list upcoming court bookings
/status - show the last booking run outcome
/history - show recent booking attempts
/help - this message`

	return func(c telebot.Context) error {
		return c.Send(helpText)
	}
}
