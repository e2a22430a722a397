package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/courtbot/tennis-bot/internal/errors"
	"github.com/courtbot/tennis-bot/internal/slots"
	"github.com/courtbot/tennis-bot/pkg/metrics"
)

// Result is the outcome of a booking run's attempt phase. Ephemeral; it only
// exists to compose the notification and the history record.
type Result struct {
	Slot     *slots.Slot
	Success  bool
	Attempts int
	// Reason explains a non-success in user-facing terms.
	Reason string
	Err    error
}

// Agent performs the browser-driven half of a booking run: session setup,
// page fetching, and walking candidate slots until one is reserved.
type Agent struct {
	driver PageDriver
	parser *slots.Parser
	creds  Credentials
	card   Card
	dryRun bool
	log    *slog.Logger
}

// NewAgent wires an Agent to a page driver.
func NewAgent(driver PageDriver, parser *slots.Parser, creds Credentials, card Card, dryRun bool, log *slog.Logger) *Agent {
	if log == nil {
		log = slog.Default()
	}

	return &Agent{
		driver: driver,
		parser: parser,
		creds:  creds,
		card:   card,
		dryRun: dryRun,
		log:    log,
	}
}

// OpenSession starts an authenticated browser session. The caller must Close it.
func (a *Agent) OpenSession(ctx context.Context) (Session, error) {
	session, err := a.driver.NewSession(ctx)
	if err != nil {
		return nil, err
	}

	if err := session.Authenticate(ctx, a.creds); err != nil {
		_ = session.Close()
		return nil, err
	}
	return session, nil
}

// FetchAvailable retrieves and parses the available slots for date.
func (a *Agent) FetchAvailable(ctx context.Context, session Session, date time.Time) ([]slots.Slot, error) {
	html, err := session.DayView(ctx, date)
	if err != nil {
		return nil, err
	}
	return a.parser.ParseDayView(html, date)
}

// ExistingBookings retrieves and parses the account's current bookings.
func (a *Agent) ExistingBookings(ctx context.Context, session Session) ([]slots.Slot, error) {
	html, err := session.BookingsPage(ctx)
	if err != nil {
		return nil, err
	}
	if html == "" {
		return nil, nil
	}
	return a.parser.ParseBookingsList(html)
}

// HasBookingAt reports whether an existing booking already covers the target
// date and any of the preferred start times.
func (a *Agent) HasBookingAt(ctx context.Context, session Session, date time.Time, preferences []slots.Preference) (bool, error) {
	booked, err := a.ExistingBookings(ctx, session)
	if err != nil {
		return false, err
	}

	for _, b := range booked {
		if b.Date.Year() != date.Year() || b.Date.YearDay() != date.YearDay() {
			continue
		}
		for _, p := range preferences {
			for _, r := range p.Times {
				if r.Contains(b.Start) {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// BookFirst attempts the candidates in order and returns the outcome of the
// run. An unavailable slot, or a browser timeout while submitting one,
// advances to the next candidate; any other error aborts. Once a submission
// goes through there is no rollback, so nothing is ever retried.
func (a *Agent) BookFirst(ctx context.Context, session Session, candidates []slots.Candidate) Result {
	if len(candidates) == 0 {
		return Result{Reason: "no suitable slot found"}
	}

	attempts := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempts, Reason: "booking run cancelled", Err: err}
		}

		slot := candidate.Slot
		attempts++

		err := session.Book(ctx, slot, a.card, a.dryRun)
		if err == nil {
			metrics.RecordBookingAttempt("success")
			a.log.Info("booked slot",
				slog.String("slot", slot.Key),
				slog.Int("court", slot.Court),
				slog.String("start", slots.FormatClock(slot.Start)),
				slog.Bool("dry_run", a.dryRun),
			)
			booked := slot
			return Result{Slot: &booked, Success: true, Attempts: attempts}
		}

		if isAttemptFailure(err) {
			metrics.RecordBookingAttempt("slot_unavailable")
			a.log.Warn("candidate failed, moving to next",
				slog.String("slot", slot.Key), slog.Any("error", err))
			continue
		}

		metrics.RecordBookingAttempt("aborted")
		return Result{
			Attempts: attempts,
			Reason:   "booking run aborted",
			Err:      err,
		}
	}

	return Result{
		Attempts: attempts,
		Reason:   "all candidate slots were unavailable",
	}
}

// isAttemptFailure classifies errors that exhaust a single candidate rather
// than the whole run: the slot being taken, or the browser timing out on
// that slot's booking flow.
func isAttemptFailure(err error) bool {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr == nil {
		return false
	}
	return appErr.Code == "E300" || appErr.Code == "E400"
}
