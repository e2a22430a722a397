package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courtbot/tennis-bot/internal/booking"
	"github.com/courtbot/tennis-bot/internal/domain"
	apperrors "github.com/courtbot/tennis-bot/internal/errors"
	"github.com/courtbot/tennis-bot/internal/prefs"
	"github.com/courtbot/tennis-bot/internal/slots"
)

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSession struct {
	authErr      error
	dayHTML      string
	bookingsHTML string
	bookErrs     map[string]error

	bookCalls []string
	closed    bool
}

func (s *fakeSession) Authenticate(context.Context, booking.Credentials) error { return s.authErr }

func (s *fakeSession) DayView(context.Context, time.Time) (string, error) { return s.dayHTML, nil }

func (s *fakeSession) BookingsPage(context.Context) (string, error) { return s.bookingsHTML, nil }

func (s *fakeSession) Book(_ context.Context, slot slots.Slot, _ booking.Card, _ bool) error {
	s.bookCalls = append(s.bookCalls, slot.Key)
	return s.bookErrs[slot.Key]
}

func (s *fakeSession) DebugArtifacts(context.Context) (booking.DebugArtifacts, error) {
	return booking.DebugArtifacts{PageHTML: s.dayHTML, Screenshot: []byte{0x89, 'P', 'N', 'G'}}, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeDriver struct {
	session  *fakeSession
	sessions int
}

func (d *fakeDriver) NewSession(context.Context) (booking.Session, error) {
	d.sessions++
	return d.session, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	silent   []string
}

func (n *fakeNotifier) Broadcast(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) BroadcastSilent(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.silent = append(n.silent, message)
}

// debugNotifier also records owner-directed debug snapshots.
type debugNotifier struct {
	fakeNotifier

	captions    []string
	pageDumps   []string
	screenshots [][]byte
}

func (n *debugNotifier) SendDebugSnapshot(_ context.Context, caption string, pageHTML string, screenshot []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.captions = append(n.captions, caption)
	n.pageDumps = append(n.pageDumps, pageHTML)
	n.screenshots = append(n.screenshots, screenshot)
}

type fakeHistory struct {
	recorded []*domain.BookingAttempt
}

func (h *fakeHistory) Record(_ context.Context, attempt *domain.BookingAttempt) error {
	h.recorded = append(h.recorded, attempt)
	return nil
}

func (h *fakeHistory) Recent(context.Context, int) ([]domain.BookingAttempt, error) {
	return nil, nil
}

func (h *fakeHistory) PurgeOlderThan(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

const saturdayPrefs = `
preferences:
  - user_id: 388546127
    weekdays: [saturday]
    times: ["08:00-10:00"]
    courts: [3, 4]
    priority: 1
`

// Two available slots on the target Saturday, court 3 at 08:00 preferred.
const saturdayDayView = `
<div class="resource" data-resource-name="Court 3">
	<div class="resource-interval" data-system-start-time="480" data-system-end-time="540">
		<span class="available-booking-slot"></span>
		<a class="book-interval" data-test-id="booking-123|2025-04-12|480"></a>
	</div>
</div>
<div class="resource" data-resource-name="Court 4">
	<div class="resource-interval" data-system-start-time="540">
		<span class="available-booking-slot"></span>
		<a class="book-interval" data-test-id="booking-456|2025-04-12|540"></a>
	</div>
</div>
`

func newPrefsStore(t *testing.T, content string) *prefs.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "booking_preferences.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store, err := prefs.NewStore(path, testLog())
	require.NoError(t, err)
	return store
}

// newPipeline wires a pipeline whose clock is pinned so that the target date
// (now + 7 days) is Saturday 2025-04-12.
func newPipeline(t *testing.T, session *fakeSession) (*Pipeline, *fakeDriver, *fakeNotifier, *fakeHistory) {
	t.Helper()

	driver := &fakeDriver{session: session}
	agent := booking.NewAgent(driver, slots.NewParser(testLog()), booking.Credentials{}, booking.Card{}, false, testLog())
	notifier := &fakeNotifier{}
	hist := &fakeHistory{}

	p := New(agent, newPrefsStore(t, saturdayPrefs), notifier, hist, nil, 7, testLog())
	p.now = func() time.Time { return time.Date(2025, 4, 5, 0, 15, 0, 0, time.UTC) }

	return p, driver, notifier, hist
}

func TestRun_BooksPreferredSlot(t *testing.T) {
	session := &fakeSession{dayHTML: saturdayDayView}
	p, _, notifier, hist := newPipeline(t, session)

	report := p.Run(context.Background(), TriggerSchedule)

	require.Equal(t, "booked", report.Outcome)
	require.Equal(t, []string{"booking-123|2025-04-12|480"}, session.bookCalls)
	require.True(t, session.closed)

	require.Len(t, notifier.messages, 1)
	require.Contains(t, notifier.messages[0], "✅ Booked Court 3 for 2025-04-12 at 08:00")

	require.Len(t, hist.recorded, 1)
	require.True(t, hist.recorded[0].Success)
	require.Equal(t, "booking-123|2025-04-12|480", hist.recorded[0].SlotKey)
	require.Equal(t, TriggerSchedule, hist.recorded[0].Trigger)

	require.Same(t, report, p.LastRun())
}

func TestRun_MondayEveningCourtOne(t *testing.T) {
	session := &fakeSession{dayHTML: `
<div class="resource" data-resource-name="Court 1">
	<div class="resource-interval" data-system-start-time="1080" data-system-end-time="1140">
		<span class="available-booking-slot"></span>
		<a class="book-interval" data-test-id="booking-m1|2025-04-14|1080"></a>
	</div>
</div>
<div class="resource" data-resource-name="Court 2">
	<div class="resource-interval" data-system-start-time="1080">
		<span class="available-booking-slot"></span>
		<a class="book-interval" data-test-id="booking-m2|2025-04-14|1080"></a>
	</div>
</div>`}

	driver := &fakeDriver{session: session}
	agent := booking.NewAgent(driver, slots.NewParser(testLog()), booking.Credentials{}, booking.Card{}, false, testLog())
	notifier := &fakeNotifier{}
	hist := &fakeHistory{}

	store := newPrefsStore(t, `
preferences:
  - user_id: 388546127
    weekdays: [monday]
    times: ["18:00-19:00"]
    courts: [1]
    priority: 1
`)

	p := New(agent, store, notifier, hist, nil, 7, testLog())
	// Target lands on Monday 2025-04-14.
	p.now = func() time.Time { return time.Date(2025, 4, 7, 0, 15, 0, 0, time.UTC) }

	report := p.Run(context.Background(), TriggerSchedule)

	require.Equal(t, "booked", report.Outcome)
	require.Equal(t, []string{"booking-m1|2025-04-14|1080"}, session.bookCalls)
	require.Len(t, notifier.messages, 1)
	require.Contains(t, notifier.messages[0], "✅ Booked Court 1 for 2025-04-14 at 18:00")
}

func TestRun_NoPreferencesForWeekday(t *testing.T) {
	session := &fakeSession{dayHTML: saturdayDayView}
	p, driver, notifier, _ := newPipeline(t, session)
	// Target lands on a Monday, which has no preference entry.
	p.now = func() time.Time { return time.Date(2025, 4, 7, 0, 15, 0, 0, time.UTC) }

	report := p.Run(context.Background(), TriggerSchedule)

	require.Equal(t, "no_preferences", report.Outcome)
	require.Zero(t, driver.sessions)
	require.Empty(t, notifier.messages)
	require.Len(t, notifier.silent, 1)
	require.Contains(t, notifier.silent[0], "No booking preferences for Monday")
}

func TestRun_SkipsWhenAlreadyBooked(t *testing.T) {
	session := &fakeSession{
		dayHTML: saturdayDayView,
		bookingsHTML: `
<div class="block-panel">
	<div class="block-panel-title"><h2>Sat, 12 Apr 2025, 08:00 - 09:00</h2></div>
	<span class="block-panel-row-label">Resource(s)</span>
	<span class="block-panel-row-value">Court 3</span>
	<a class="cs-btn" href="/PrioryPark2/Booking/Details/abc123">Details</a>
</div>`,
	}
	p, _, notifier, _ := newPipeline(t, session)

	report := p.Run(context.Background(), TriggerSchedule)

	require.Equal(t, "already_booked", report.Outcome)
	require.Empty(t, session.bookCalls)
	require.Len(t, notifier.silent, 1)
	require.Contains(t, notifier.silent[0], "Already have a booking for 2025-04-12")
}

func TestRun_NoSuitableSlot(t *testing.T) {
	// Only court 1 is free; the preference wants courts 3 and 4.
	session := &fakeSession{dayHTML: `
<div class="resource" data-resource-name="Court 1">
	<div class="resource-interval" data-system-start-time="480">
		<span class="available-booking-slot"></span>
		<a class="book-interval" data-test-id="booking-789|2025-04-12|480"></a>
	</div>
</div>`}
	p, _, notifier, _ := newPipeline(t, session)

	report := p.Run(context.Background(), TriggerSchedule)

	require.Equal(t, "no_slot", report.Outcome)
	require.Empty(t, session.bookCalls)
	require.Len(t, notifier.messages, 1)
	require.Contains(t, notifier.messages[0], "No suitable slot found for 2025-04-12")
}

func TestRun_AllCandidatesUnavailable(t *testing.T) {
	session := &fakeSession{
		dayHTML: saturdayDayView,
		bookErrs: map[string]error{
			"booking-123|2025-04-12|480": apperrors.NewSlotUnavailableError("booking-123|2025-04-12|480"),
			"booking-456|2025-04-12|540": apperrors.NewSlotUnavailableError("booking-456|2025-04-12|540"),
		},
	}
	p, _, notifier, hist := newPipeline(t, session)

	report := p.Run(context.Background(), TriggerManual)

	require.Equal(t, "failed", report.Outcome)
	require.Len(t, session.bookCalls, 2)

	require.Len(t, notifier.messages, 2)
	require.Contains(t, notifier.messages[0], "❌ Could not book a court for 2025-04-12")
	require.Contains(t, notifier.messages[1], "/book_now")

	require.Len(t, hist.recorded, 1)
	require.False(t, hist.recorded[0].Success)
	require.Equal(t, 2, hist.recorded[0].Attempts)
	require.Equal(t, TriggerManual, hist.recorded[0].Trigger)
}

func TestRun_AbortsOnAuthenticationFailure(t *testing.T) {
	session := &fakeSession{
		dayHTML: saturdayDayView,
		authErr: apperrors.NewAuthenticationError(nil),
	}
	p, _, notifier, hist := newPipeline(t, session)

	report := p.Run(context.Background(), TriggerSchedule)

	require.Equal(t, "aborted", report.Outcome)
	require.True(t, session.closed)
	require.Empty(t, session.bookCalls)

	require.Len(t, notifier.messages, 2)
	require.Contains(t, notifier.messages[0], "❌ Failed to book a court for 2025-04-12")

	require.Len(t, hist.recorded, 1)
	require.False(t, hist.recorded[0].Success)
	require.NotEmpty(t, hist.recorded[0].ErrorDetail)
}

func TestRun_AbortSendsPageStateToOwner(t *testing.T) {
	session := &fakeSession{
		dayHTML: saturdayDayView,
		bookErrs: map[string]error{
			"booking-123|2025-04-12|480": apperrors.NewPageParseError("confirmation layout changed", nil),
		},
	}

	driver := &fakeDriver{session: session}
	agent := booking.NewAgent(driver, slots.NewParser(testLog()), booking.Credentials{}, booking.Card{}, false, testLog())
	notifier := &debugNotifier{}

	p := New(agent, newPrefsStore(t, saturdayPrefs), notifier, nil, nil, 7, testLog())
	p.now = func() time.Time { return time.Date(2025, 4, 5, 0, 15, 0, 0, time.UTC) }

	report := p.Run(context.Background(), TriggerSchedule)

	require.Equal(t, "aborted", report.Outcome)
	require.Len(t, notifier.captions, 1)
	require.Contains(t, notifier.captions[0], "2025-04-12")
	require.Equal(t, []string{saturdayDayView}, notifier.pageDumps)
	require.NotEmpty(t, notifier.screenshots[0])
}

func TestDescribe(t *testing.T) {
	var report *RunReport
	require.Equal(t, "No booking run has happened yet.", report.Describe())

	session := &fakeSession{dayHTML: saturdayDayView}
	p, _, _, _ := newPipeline(t, session)

	report = p.Run(context.Background(), TriggerSchedule)
	description := report.Describe()
	require.Contains(t, description, "booked")
	require.Contains(t, description, "2025-04-12")
}
