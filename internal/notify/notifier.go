// Package notify broadcasts booking outcomes to subscribed chats.
package notify

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/courtbot/tennis-bot/internal/errors"
	"github.com/courtbot/tennis-bot/internal/subscribers"
	"github.com/courtbot/tennis-bot/pkg/metrics"
)

// Notifier delivers pipeline outcome messages.
type Notifier interface {
	// Broadcast sends message to every current subscriber. Delivery failures
	// are logged and counted, never retried.
	Broadcast(ctx context.Context, message string)
	// BroadcastSilent is Broadcast without a client-side notification sound,
	// for routine status messages.
	BroadcastSilent(ctx context.Context, message string)
}

// DebugSink receives failure diagnostics. Kept separate from Notifier:
// page dumps show the signed-in account, so they go to the owner chat only,
// never to the broadcast list.
type DebugSink interface {
	SendDebugSnapshot(ctx context.Context, caption string, pageHTML string, screenshot []byte)
}

// Sender is the subset of telebot.Bot used for outbound messages.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelegramNotifier broadcasts through the Telegram bot API. Before each
// broadcast it snapshots the subscriber list, so subscribe/unsubscribe
// commands arriving mid-broadcast do not change who receives this round.
type TelegramNotifier struct {
	sender  Sender
	store   subscribers.Store
	ownerID int64
	log     *slog.Logger
}

// NewTelegramNotifier builds a notifier over the given sender and subscriber
// store. ownerID is the chat that receives debug snapshots; zero disables
// them.
func NewTelegramNotifier(sender Sender, store subscribers.Store, ownerID int64, log *slog.Logger) *TelegramNotifier {
	if log == nil {
		log = slog.Default()
	}

	return &TelegramNotifier{
		sender:  sender,
		store:   store,
		ownerID: ownerID,
		log:     log,
	}
}

func (n *TelegramNotifier) Broadcast(ctx context.Context, message string) {
	n.broadcast(ctx, message)
}

func (n *TelegramNotifier) BroadcastSilent(ctx context.Context, message string) {
	n.broadcast(ctx, message, &telebot.SendOptions{DisableNotification: true})
}

// SendDebugSnapshot delivers the captured page state of a failed run to the
// owner chat as a screenshot plus the page HTML as a document.
func (n *TelegramNotifier) SendDebugSnapshot(_ context.Context, caption string, pageHTML string, screenshot []byte) {
	if n.ownerID == 0 {
		return
	}
	owner := telebot.ChatID(n.ownerID)

	if len(screenshot) > 0 {
		photo := &telebot.Photo{
			File:    telebot.FromReader(bytes.NewReader(screenshot)),
			Caption: caption,
		}
		if _, err := n.sender.Send(owner, photo); err != nil {
			n.log.Error("failed to deliver debug screenshot", slog.Any("error", err))
		}
	}

	if pageHTML != "" {
		document := &telebot.Document{
			File:     telebot.FromReader(strings.NewReader(pageHTML)),
			FileName: "page.html",
			MIME:     "text/html",
		}
		if _, err := n.sender.Send(owner, document); err != nil {
			n.log.Error("failed to deliver debug page dump", slog.Any("error", err))
		}
	}
}

func (n *TelegramNotifier) broadcast(ctx context.Context, message string, opts ...interface{}) {
	snapshot, err := n.store.Snapshot(ctx)
	if err != nil {
		n.log.Error("cannot broadcast, subscriber snapshot failed", slog.Any("error", err))
		return
	}

	metrics.SetSubscribers(len(snapshot))
	n.log.Info("broadcasting message", slog.Int("subscribers", len(snapshot)))

	for _, chatID := range snapshot {
		if _, err := n.sender.Send(telebot.ChatID(chatID), message, opts...); err != nil {
			notifyErr := apperrors.NewNotificationError(err)
			n.log.Error("failed to deliver notification",
				slog.Int64("chat_id", chatID), slog.Any("error", notifyErr))
			metrics.RecordNotification("error")
			continue
		}
		metrics.RecordNotification("ok")
	}
}
