// Package booking drives the reservation site through a headless browser and
// walks candidate slots until one is booked.
package booking

import (
	"context"
	"time"

	"github.com/courtbot/tennis-bot/internal/slots"
)

// Credentials is the club account shared by the whole process.
type Credentials struct {
	Username string
	Password string
}

// PageDriver abstracts the browser automation engine so the concrete engine
// is swappable and the agent is testable with a fake.
type PageDriver interface {
	// NewSession opens a fresh browser session on the booking site's day view.
	NewSession(ctx context.Context) (Session, error)
}

// DebugArtifacts is the page state captured when a run aborts, for
// after-the-fact diagnosis of layout changes and flow breakage.
type DebugArtifacts struct {
	PageHTML   string
	Screenshot []byte
}

// Session is one authenticated browser visit to the booking site.
type Session interface {
	// Authenticate signs in with the club credentials. Failure to reach the
	// signed-in state is an authentication error.
	Authenticate(ctx context.Context, creds Credentials) error
	// DayView navigates to the court availability page for date and returns
	// the rendered HTML.
	DayView(ctx context.Context, date time.Time) (string, error)
	// BookingsPage returns the rendered HTML of the existing-bookings page,
	// or an empty string when the account has no bookings.
	BookingsPage(ctx context.Context) (string, error)
	// Book navigates to the slot's booking flow and submits the reservation.
	// In dry-run mode everything short of the final submission happens.
	Book(ctx context.Context, slot slots.Slot, card Card, dryRun bool) error
	// DebugArtifacts captures the current page HTML and a screenshot.
	DebugArtifacts(ctx context.Context) (DebugArtifacts, error)
	// Close releases the browser session.
	Close() error
}
