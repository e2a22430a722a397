package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/courtbot/tennis-bot/internal/subscribers"
)

type fakeSender struct {
	sent     []telebot.Recipient
	payloads []interface{}
	failFor  map[string]error
}

func (f *fakeSender) Send(to telebot.Recipient, what interface{}, _ ...interface{}) (*telebot.Message, error) {
	f.sent = append(f.sent, to)
	f.payloads = append(f.payloads, what)
	if err, ok := f.failFor[to.Recipient()]; ok {
		return nil, err
	}
	return &telebot.Message{}, nil
}

func testStore(t *testing.T, ids ...int64) subscribers.Store {
	t.Helper()
	store, err := subscribers.NewFileStore(
		filepath.Join(t.TempDir(), "subs.json"),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	require.NoError(t, err)
	for _, id := range ids {
		_, err := store.Add(context.Background(), id)
		require.NoError(t, err)
	}
	return store
}

func TestBroadcast_SendsToAllSubscribers(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTelegramNotifier(sender, testStore(t, 7, 42), 7,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	notifier.Broadcast(context.Background(), "booked!")

	require.Len(t, sender.sent, 2)
}

func TestBroadcast_DeliveryFailureDoesNotStopOthers(t *testing.T) {
	sender := &fakeSender{failFor: map[string]error{"7": errors.New("blocked")}}
	notifier := NewTelegramNotifier(sender, testStore(t, 7, 42), 7,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	notifier.Broadcast(context.Background(), "booked!")

	// Both deliveries are attempted; the failure is logged, not retried.
	require.Len(t, sender.sent, 2)
}

func TestBroadcast_NoSubscribers(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTelegramNotifier(sender, testStore(t), 7,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	notifier.Broadcast(context.Background(), "booked!")

	require.Empty(t, sender.sent)
}

func TestSendDebugSnapshot_GoesToOwnerOnly(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTelegramNotifier(sender, testStore(t, 7, 42), 7,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	notifier.SendDebugSnapshot(context.Background(), "run failed", "<html></html>", []byte{1, 2, 3})

	require.Len(t, sender.sent, 2)
	for _, to := range sender.sent {
		require.Equal(t, "7", to.Recipient())
	}

	photo, ok := sender.payloads[0].(*telebot.Photo)
	require.True(t, ok)
	require.Equal(t, "run failed", photo.Caption)

	document, ok := sender.payloads[1].(*telebot.Document)
	require.True(t, ok)
	require.Equal(t, "page.html", document.FileName)
}

func TestSendDebugSnapshot_NoOwnerConfigured(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTelegramNotifier(sender, testStore(t, 7), 0,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	notifier.SendDebugSnapshot(context.Background(), "run failed", "<html></html>", []byte{1})

	require.Empty(t, sender.sent)
}
