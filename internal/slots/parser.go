package slots

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "github.com/courtbot/tennis-bot/internal/errors"
)

// Parser extracts slots from the booking site's server-rendered pages.
type Parser struct {
	log *slog.Logger
}

// NewParser constructs a Parser that reports skipped-element statistics
// through the provided logger.
func NewParser(log *slog.Logger) *Parser {
	if log == nil {
		log = slog.Default()
	}
	return &Parser{log: log}
}

// parseStats counts how many interval elements survived parsing. When a run
// yields zero slots these numbers tell us whether the page was empty or the
// layout changed.
type parseStats struct {
	valid   int
	skipped map[string]int
}

func newParseStats() *parseStats {
	return &parseStats{skipped: make(map[string]int)}
}

func (s *parseStats) skip(reason string) { s.skipped[reason]++ }

func (s *parseStats) attrs() []any {
	args := []any{slog.Int("valid", s.valid)}
	for reason, count := range s.skipped {
		args = append(args, slog.Int("skipped_"+reason, count))
	}
	return args
}

// ParseDayView parses the court day view into available slots. The date is
// stamped onto every slot. An unrecognized resource element is a page-parse
// error; malformed intervals are skipped and counted.
func (p *Parser) ParseDayView(html string, date time.Time) ([]Slot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperrors.NewPageParseError("day view not parseable as HTML", err)
	}

	stats := newParseStats()
	var available []Slot
	var parseErr error

	doc.Find("div.resource").EachWithBreak(func(_ int, resource *goquery.Selection) bool {
		name, _ := resource.Attr("data-resource-name")
		court, err := parseCourtNumber(name)
		if err != nil {
			parseErr = err
			return false
		}

		resource.Find("div.resource-interval").Each(func(_ int, interval *goquery.Selection) {
			slot, ok := parseInterval(interval, stats)
			if !ok {
				return
			}
			slot.Court = court
			slot.CourtName = name
			slot.Date = date
			available = append(available, slot)
		})

		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}

	p.log.Info("parsed day view", stats.attrs()...)
	return available, nil
}

func parseInterval(interval *goquery.Selection, stats *parseStats) (Slot, bool) {
	if interval.Find("span.available-booking-slot").Length() == 0 {
		stats.skip("unavailable")
		return Slot{}, false
	}

	startAttr, ok := interval.Attr("data-system-start-time")
	if !ok {
		stats.skip("no_start_time")
		return Slot{}, false
	}
	start, err := strconv.Atoi(startAttr)
	if err != nil {
		stats.skip("bad_start_time")
		return Slot{}, false
	}

	end := start + 60
	if endAttr, ok := interval.Attr("data-system-end-time"); ok {
		if parsed, err := strconv.Atoi(endAttr); err == nil {
			end = parsed
		}
	}

	capacity := 1
	if capAttr, ok := interval.Attr("data-capacity"); ok {
		if parsed, err := strconv.Atoi(capAttr); err == nil {
			capacity = parsed
		}
	}

	key, ok := interval.Find("a.book-interval").Attr("data-test-id")
	if !ok || key == "" {
		stats.skip("no_book_link")
		return Slot{}, false
	}

	stats.valid++
	return Slot{Key: key, Start: start, End: end, Capacity: capacity}, true
}

func parseCourtNumber(resourceName string) (int, error) {
	if !strings.Contains(resourceName, "Court") {
		return 0, apperrors.NewPageParseError(
			fmt.Sprintf("invalid or missing data-resource-name: %q", resourceName), nil)
	}

	fields := strings.Fields(resourceName)
	court, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0, apperrors.NewPageParseError(
			fmt.Sprintf("could not parse court number from %q", resourceName), err)
	}

	return court, nil
}

// ParseBookingsList parses booked slots from the bookings page, trying the
// current layout first and falling back to the legacy table layout.
func (p *Parser) ParseBookingsList(html string) ([]Slot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperrors.NewPageParseError("bookings list not parseable as HTML", err)
	}

	if booked := p.parseBookingPanels(doc); len(booked) > 0 {
		return booked, nil
	}
	return p.parseBookingTable(doc), nil
}

func (p *Parser) parseBookingPanels(doc *goquery.Document) []Slot {
	stats := newParseStats()
	var booked []Slot

	doc.Find("div.block-panel").Each(func(_ int, panel *goquery.Selection) {
		// Title reads like "Tue, 19 Aug 2025, 16:00 - 17:00".
		title := strings.TrimSpace(panel.Find("div.block-panel-title h2").Text())
		parts := strings.SplitN(title, ",", 3)
		if len(parts) != 3 {
			stats.skip("bad_title")
			return
		}
		timePart, _, _ := strings.Cut(parts[2], "-")
		when, err := time.Parse("2 Jan 2006 15:04",
			strings.TrimSpace(parts[1])+" "+strings.TrimSpace(timePart))
		if err != nil {
			stats.skip("bad_title")
			return
		}

		court, ok := courtFromPanel(panel)
		if !ok {
			stats.skip("no_resource")
			return
		}

		href, ok := panel.Find("a.cs-btn").Attr("href")
		if !ok {
			stats.skip("no_details_link")
			return
		}

		stats.valid++
		booked = append(booked, Slot{
			Key:   lastPathSegment(href),
			Court: court,
			Start: when.Hour()*60 + when.Minute(),
			End:   when.Hour()*60 + when.Minute() + 60,
			Date:  when,
		})
	})

	p.log.Info("parsed bookings panels", stats.attrs()...)
	return booked
}

func courtFromPanel(panel *goquery.Selection) (int, bool) {
	court := 0
	found := false

	panel.Find("span.block-panel-row-label").EachWithBreak(func(_ int, label *goquery.Selection) bool {
		if !strings.Contains(label.Text(), "Resource(s)") {
			return true
		}
		value := label.NextFiltered("span.block-panel-row-value").Text()
		fields := strings.Fields(strings.TrimSpace(value))
		if len(fields) == 0 {
			return false
		}
		parsed, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			return false
		}
		court = parsed
		found = true
		return false
	})

	return court, found
}

func (p *Parser) parseBookingTable(doc *goquery.Document) []Slot {
	stats := newParseStats()
	var booked []Slot

	doc.Find("tbody#booking-tbody tr").Each(func(_ int, row *goquery.Selection) {
		date, err := time.Parse("02/01/2006",
			strings.TrimSpace(row.Find("td.booking-summary strong").Text()))
		if err != nil {
			stats.skip("bad_date")
			return
		}

		timeText := strings.TrimSpace(row.Find("td.time span.booking-time").Text())
		startText, _, _ := strings.Cut(timeText, "-")
		start, err := ParseClock(startText)
		if err != nil {
			stats.skip("bad_time")
			return
		}

		courtText := strings.TrimSpace(row.Find("td.resource span.booking-resource").Text())
		fields := strings.Fields(courtText)
		if len(fields) == 0 {
			stats.skip("no_resource")
			return
		}
		court, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			stats.skip("no_resource")
			return
		}

		href, ok := row.Find("td.booking-summary a").Attr("href")
		if !ok {
			stats.skip("no_details_link")
			return
		}

		stats.valid++
		booked = append(booked, Slot{
			Key:   lastPathSegment(href),
			Court: court,
			Start: start,
			End:   start + 60,
			Date:  date,
		})
	})

	p.log.Info("parsed bookings table", stats.attrs()...)
	return booked
}

func lastPathSegment(href string) string {
	segments := strings.Split(href, "/")
	return segments[len(segments)-1]
}
