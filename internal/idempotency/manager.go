// Package idempotency suppresses duplicate Telegram updates. Telegram
// redelivers updates after timeouts, and a redelivered /book_now must not
// start a second browser run.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrDuplicate marks an update that was already handled or is being handled.
var ErrDuplicate = errors.New("duplicate update")

// Operation is the handler body guarded by the manager.
type Operation func(ctx context.Context) error

// Manager executes an operation at most once per key.
type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) error
}

type manager struct {
	store Store
	log   *slog.Logger
}

// NewManager builds a Manager on top of a Store.
func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{store: store, log: log}
}

// Execute runs fn unless the key was already claimed. A duplicate is dropped
// with ErrDuplicate rather than waited on: for bot commands the first
// delivery already answers the user.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) error {
	if fn == nil {
		return errors.New("operation fn cannot be nil")
	}

	claimed, err := m.store.Claim(ctx, key, ttl)
	if err != nil {
		return err
	}
	if !claimed {
		m.log.Debug("dropping duplicate update", slog.String("key", key))
		return ErrDuplicate
	}

	if err := fn(ctx); err != nil {
		// Release so the user can retry the failed command.
		if releaseErr := m.store.Release(ctx, key); releaseErr != nil {
			m.log.Error("failed to release idempotency key",
				slog.String("key", key), slog.Any("error", releaseErr))
		}
		return err
	}

	return nil
}
