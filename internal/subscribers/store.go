// Package subscribers tracks which chat identities receive booking outcome
// notifications.
package subscribers

import "context"

// Store manages the subscriber list. Add and Remove are idempotent: adding an
// existing subscriber or removing a missing one is not an error, and a
// subscribe followed by an unsubscribe leaves the list as it was.
type Store interface {
	// Add registers a chat identity. It reports whether the identity was new.
	Add(ctx context.Context, chatID int64) (bool, error)
	// Remove drops a chat identity. It reports whether the identity was present.
	Remove(ctx context.Context, chatID int64) (bool, error)
	// Snapshot returns the current subscriber list as an independent copy,
	// sorted ascending. Broadcasts iterate the snapshot, so mutations during
	// a broadcast do not affect it.
	Snapshot(ctx context.Context) ([]int64, error)
}
