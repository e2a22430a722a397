package slots

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/courtbot/tennis-bot/internal/errors"
)

func testParser() *Parser {
	return NewParser(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const dayViewHTML = `
<div class="resource" data-resource-name="Court 3">
	<div class="resource-interval" data-system-start-time="480" data-system-end-time="540">
		<span class="available-booking-slot"></span>
		<a class="book-interval" data-test-id="booking-123|2025-04-12|480"></a>
	</div>
	<div class="resource-interval" data-system-start-time="540">
		<span class="booked-slot"></span>
	</div>
</div>
<div class="resource" data-resource-name="Court 4">
	<div class="resource-interval" data-system-start-time="540">
		<span class="available-booking-slot"></span>
		<a class="book-interval" data-test-id="booking-456|2025-04-12|540"></a>
	</div>
</div>
`

func TestParseDayView(t *testing.T) {
	date := time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC)

	parsed, err := testParser().ParseDayView(dayViewHTML, date)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	require.Equal(t, Slot{
		Key:       "booking-123|2025-04-12|480",
		Court:     3,
		CourtName: "Court 3",
		Start:     480,
		End:       540,
		Date:      date,
		Capacity:  1,
	}, parsed[0])

	require.Equal(t, 4, parsed[1].Court)
	require.Equal(t, 540, parsed[1].Start)
	// No explicit end attribute: intervals default to an hour.
	require.Equal(t, 600, parsed[1].End)
}

func TestParseDayView_Empty(t *testing.T) {
	parsed, err := testParser().ParseDayView("", time.Now())
	require.NoError(t, err)
	require.Empty(t, parsed)
}

func TestParseDayView_NoAvailableSlots(t *testing.T) {
	html := `
	<div class="resource" data-resource-name="Court 1">
		<div class="resource-interval" data-system-start-time="480">
			<span class="unavailable"></span>
		</div>
	</div>`

	parsed, err := testParser().ParseDayView(html, time.Now())
	require.NoError(t, err)
	require.Empty(t, parsed)
}

func TestParseDayView_MalformedIntervalSkipped(t *testing.T) {
	html := `
	<div class="resource" data-resource-name="Court 1">
		<div class="resource-interval">
			<span class="available-booking-slot"></span>
			<a class="book-interval" data-test-id="key1"></a>
		</div>
		<div class="resource-interval" data-system-start-time="oops">
			<span class="available-booking-slot"></span>
			<a class="book-interval" data-test-id="key2"></a>
		</div>
		<div class="resource-interval" data-system-start-time="480">
			<span class="available-booking-slot"></span>
		</div>
	</div>`

	parsed, err := testParser().ParseDayView(html, time.Now())
	require.NoError(t, err)
	require.Empty(t, parsed)
}

func TestParseDayView_UnknownResourceName(t *testing.T) {
	testCases := []struct {
		name string
		html string
	}{
		{
			name: "missing attribute",
			html: `<div class="resource"><div class="resource-interval"></div></div>`,
		},
		{
			name: "not a court",
			html: `<div class="resource" data-resource-name="Padel A"></div>`,
		},
		{
			name: "unparseable number",
			html: `<div class="resource" data-resource-name="Court one"></div>`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testParser().ParseDayView(tc.html, time.Now())
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, "E200", appErr.Code)
		})
	}
}

const bookingPanelsHTML = `
<div class="block-panel">
	<div class="block-panel-title"><h2>Tue, 19 Aug 2025, 16:00 - 17:00</h2></div>
	<span class="block-panel-row-label">Resource(s)</span>
	<span class="block-panel-row-value">Court 3</span>
	<a class="cs-btn" href="/PrioryPark2/Booking/Details/abc123">Details</a>
</div>
`

const bookingTableHTML = `
<table><tbody id="booking-tbody">
	<tr>
		<td class="booking-summary"><strong>19/08/2025</strong>
			<a href="/PrioryPark2/Booking/Confirmation/def456">view</a></td>
		<td class="time"><span class="booking-time">16:00 - 17:00</span></td>
		<td class="resource"><span class="booking-resource">Court 3</span></td>
	</tr>
</tbody></table>
`

func TestParseBookingsList_Panels(t *testing.T) {
	booked, err := testParser().ParseBookingsList(bookingPanelsHTML)
	require.NoError(t, err)
	require.Len(t, booked, 1)

	require.Equal(t, "abc123", booked[0].Key)
	require.Equal(t, 3, booked[0].Court)
	require.Equal(t, 960, booked[0].Start)
	require.Equal(t, time.Date(2025, 8, 19, 16, 0, 0, 0, time.UTC), booked[0].Date)
}

func TestParseBookingsList_LegacyTableFallback(t *testing.T) {
	booked, err := testParser().ParseBookingsList(bookingTableHTML)
	require.NoError(t, err)
	require.Len(t, booked, 1)

	require.Equal(t, "def456", booked[0].Key)
	require.Equal(t, 3, booked[0].Court)
	require.Equal(t, 960, booked[0].Start)
	require.Equal(t, time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC), booked[0].Date)
}

func TestParseBookingsList_Empty(t *testing.T) {
	booked, err := testParser().ParseBookingsList("<html><body></body></html>")
	require.NoError(t, err)
	require.Empty(t, booked)
}
