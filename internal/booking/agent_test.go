package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/courtbot/tennis-bot/internal/errors"
	"github.com/courtbot/tennis-bot/internal/slots"
)

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSession scripts per-slot booking outcomes keyed by slot key.
type fakeSession struct {
	authErr      error
	dayViewHTML  string
	bookingsHTML string
	bookErrs     map[string]error
	bookCalls    []string
	closed       bool
}

func (f *fakeSession) Authenticate(_ context.Context, _ Credentials) error { return f.authErr }

func (f *fakeSession) DayView(_ context.Context, _ time.Time) (string, error) {
	return f.dayViewHTML, nil
}

func (f *fakeSession) BookingsPage(_ context.Context) (string, error) {
	return f.bookingsHTML, nil
}

func (f *fakeSession) Book(_ context.Context, slot slots.Slot, _ Card, _ bool) error {
	f.bookCalls = append(f.bookCalls, slot.Key)
	return f.bookErrs[slot.Key]
}

func (f *fakeSession) DebugArtifacts(_ context.Context) (DebugArtifacts, error) {
	return DebugArtifacts{}, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

type fakeDriver struct {
	session *fakeSession
	err     error
}

func (f *fakeDriver) NewSession(_ context.Context) (Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func newTestAgent(driver PageDriver) *Agent {
	return NewAgent(driver, slots.NewParser(testLog()),
		Credentials{Username: "user", Password: "pass"}, Card{}, false, testLog())
}

func candidates(keys ...string) []slots.Candidate {
	out := make([]slots.Candidate, len(keys))
	for i, key := range keys {
		out[i] = slots.Candidate{Slot: slots.Slot{Key: key, Court: i + 1, Start: 1080}}
	}
	return out
}

func TestBookFirst_ThirdCandidateSucceeds(t *testing.T) {
	session := &fakeSession{bookErrs: map[string]error{
		"a": apperrors.NewSlotUnavailableError("a"),
		"b": apperrors.NewSlotUnavailableError("b"),
	}}
	agent := newTestAgent(&fakeDriver{session: session})

	result := agent.BookFirst(context.Background(), session, candidates("a", "b", "c"))

	require.True(t, result.Success)
	require.Equal(t, 3, result.Attempts)
	require.Equal(t, "c", result.Slot.Key)
	require.Equal(t, []string{"a", "b", "c"}, session.bookCalls)
}

func TestBookFirst_NoCandidates(t *testing.T) {
	session := &fakeSession{}
	agent := newTestAgent(&fakeDriver{session: session})

	result := agent.BookFirst(context.Background(), session, nil)

	require.False(t, result.Success)
	require.Zero(t, result.Attempts)
	require.Equal(t, "no suitable slot found", result.Reason)
	require.Empty(t, session.bookCalls, "agent must not book when there are no candidates")
}

func TestBookFirst_AllUnavailable(t *testing.T) {
	session := &fakeSession{bookErrs: map[string]error{
		"a": apperrors.NewSlotUnavailableError("a"),
		"b": apperrors.NewSlotUnavailableError("b"),
	}}
	agent := newTestAgent(&fakeDriver{session: session})

	result := agent.BookFirst(context.Background(), session, candidates("a", "b"))

	require.False(t, result.Success)
	require.Equal(t, 2, result.Attempts)
	require.Equal(t, "all candidate slots were unavailable", result.Reason)
	require.NoError(t, result.Err)
}

func TestBookFirst_TimeoutAdvancesToNextCandidate(t *testing.T) {
	session := &fakeSession{bookErrs: map[string]error{
		"a": apperrors.NewAutomationTimeoutError("confirm paynow", context.DeadlineExceeded),
	}}
	agent := newTestAgent(&fakeDriver{session: session})

	result := agent.BookFirst(context.Background(), session, candidates("a", "b"))

	require.True(t, result.Success)
	require.Equal(t, 2, result.Attempts)
	require.Equal(t, "b", result.Slot.Key)
}

func TestBookFirst_AbortsOnOtherErrors(t *testing.T) {
	bookErr := apperrors.NewAuthenticationError(errors.New("session expired"))
	session := &fakeSession{bookErrs: map[string]error{"a": bookErr}}
	agent := newTestAgent(&fakeDriver{session: session})

	result := agent.BookFirst(context.Background(), session, candidates("a", "b"))

	require.False(t, result.Success)
	require.Equal(t, 1, result.Attempts)
	require.ErrorIs(t, result.Err, bookErr)
	require.Equal(t, []string{"a"}, session.bookCalls, "run must abort after a non-attempt error")
}

func TestBookFirst_CancelledContext(t *testing.T) {
	session := &fakeSession{}
	agent := newTestAgent(&fakeDriver{session: session})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := agent.BookFirst(ctx, session, candidates("a"))

	require.False(t, result.Success)
	require.ErrorIs(t, result.Err, context.Canceled)
	require.Empty(t, session.bookCalls)
}

func TestOpenSession_AuthFailureClosesSession(t *testing.T) {
	authErr := apperrors.NewAuthenticationError(errors.New("bad credentials"))
	session := &fakeSession{authErr: authErr}
	agent := newTestAgent(&fakeDriver{session: session})

	_, err := agent.OpenSession(context.Background())

	require.ErrorIs(t, err, authErr)
	require.True(t, session.closed)
}

func TestFetchAvailable(t *testing.T) {
	session := &fakeSession{dayViewHTML: `
	<div class="resource" data-resource-name="Court 1">
		<div class="resource-interval" data-system-start-time="1080">
			<span class="available-booking-slot"></span>
			<a class="book-interval" data-test-id="c1-1080"></a>
		</div>
	</div>`}
	agent := newTestAgent(&fakeDriver{session: session})

	date := time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC)
	available, err := agent.FetchAvailable(context.Background(), session, date)

	require.NoError(t, err)
	require.Len(t, available, 1)
	require.Equal(t, date, available[0].Date)
}

func TestHasBookingAt(t *testing.T) {
	session := &fakeSession{bookingsHTML: `
	<div class="block-panel">
		<div class="block-panel-title"><h2>Mon, 14 Apr 2025, 18:00 - 19:00</h2></div>
		<span class="block-panel-row-label">Resource(s)</span>
		<span class="block-panel-row-value">Court 1</span>
		<a class="cs-btn" href="/Booking/Details/abc">Details</a>
	</div>`}
	agent := newTestAgent(&fakeDriver{session: session})

	date := time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC)
	preferences := []slots.Preference{{
		Weekdays: []time.Weekday{time.Monday},
		Times:    []slots.Range{{From: 1080, To: 1140}},
	}}

	has, err := agent.HasBookingAt(context.Background(), session, date, preferences)
	require.NoError(t, err)
	require.True(t, has)

	otherDay := date.AddDate(0, 0, 1)
	has, err = agent.HasBookingAt(context.Background(), session, otherDay, preferences)
	require.NoError(t, err)
	require.False(t, has)
}

func TestHasBookingAt_NoBookingsPage(t *testing.T) {
	session := &fakeSession{bookingsHTML: ""}
	agent := newTestAgent(&fakeDriver{session: session})

	has, err := agent.HasBookingAt(context.Background(), session, time.Now(), nil)
	require.NoError(t, err)
	require.False(t, has)
}

func TestParseCard(t *testing.T) {
	card, err := ParseCard("4242424242424242@12/30@123")
	require.NoError(t, err)
	require.Equal(t, Card{Number: "4242424242424242", Expiry: "12/30", CVC: "123"}, card)

	_, err = ParseCard("4242@12/30")
	require.Error(t, err)

	_, err = ParseCard("@@")
	require.Error(t, err)
}
