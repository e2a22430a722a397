// Package ratelimit bounds how often a user can drive the bot. The booking
// site sees a real browser session per run, so command spam is expensive.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrLimitExceeded is returned alongside a blocked Result.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Result reports one sliding-window evaluation.
type Result struct {
	// Allowed is false when the key already spent its budget for the window.
	Allowed   bool
	Remaining int
	// ResetAt is when the oldest counted event leaves the window.
	ResetAt time.Time
}

// Limiter counts events per key over a sliding window.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}
