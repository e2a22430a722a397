// Package handlers implements the bot's command and callback handlers.
package handlers

import (
	telebot "gopkg.in/telebot.v3"
)

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// CallbackHandler processes inline callback events. The payload is the
// decoded data portion of the callback.
type CallbackHandler func(c telebot.Context, payload string) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// chatID picks the chat to operate on, falling back to the sender for
// updates that carry no chat.
func chatID(c telebot.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if sender := c.Sender(); sender != nil {
		return sender.ID
	}
	return 0
}
