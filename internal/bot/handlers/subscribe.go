package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/courtbot/tennis-bot/internal/bot/keyboard"
	"github.com/courtbot/tennis-bot/internal/subscribers"
)

// NewStartHandler subscribes the chat to booking notifications.
func NewStartHandler(store subscribers.Store, kb *keyboard.Builder, log *slog.Logger) Handler {
	return func(c telebot.Context) error {
		id := chatID(c)
		if id == 0 {
			return nil
		}

		added, err := store.Add(context.Background(), id)
		if err != nil {
			return err
		}

		if log != nil {
			log.Info("subscriber added", slog.Int64("chat_id", id), slog.Bool("new", added))
		}

		message := "You are already subscribed to booking notifications."
		if added {
			message = "Welcome! You will now receive booking notifications."
		}

		return c.Send(message, kb.MainMenu())
	}
}

// NewStopHandler unsubscribes the chat.
func NewStopHandler(store subscribers.Store, log *slog.Logger) Handler {
	return func(c telebot.Context) error {
		id := chatID(c)
		if id == 0 {
			return nil
		}

		removed, err := store.Remove(context.Background(), id)
		if err != nil {
			return err
		}

		if log != nil {
			log.Info("subscriber removed", slog.Int64("chat_id", id), slog.Bool("present", removed))
		}

		if !removed {
			return c.Send("You were not subscribed.")
		}
		return c.Send("You will no longer receive booking notifications. Send /start to re-subscribe.")
	}
}
