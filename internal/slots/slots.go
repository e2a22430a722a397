// Package slots defines the bookable-slot model, the preference model, and
// the pure matching logic that pairs them up.
package slots

import (
	"fmt"
	"strings"
	"time"
)

// Slot is one bookable time window on a specific court. Produced fresh per
// fetch and never persisted.
type Slot struct {
	// Key is the site's booking identifier for the interval
	// (the data-test-id attribute on the book link).
	Key       string
	Court     int
	CourtName string
	// Start and End are minutes since midnight.
	Start    int
	End      int
	Date     time.Time
	Capacity int
}

func (s Slot) String() string {
	return fmt.Sprintf("Slot<key=%s court=%d date=%s start=%s>",
		s.Key, s.Court, s.Date.Format("2006-01-02"), FormatClock(s.Start))
}

// FormatClock converts minutes since midnight to HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseClock converts HH:MM to minutes since midnight.
func ParseClock(s string) (int, error) {
	var hours, minutes int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &hours, &minutes); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", s)
	}
	return hours*60 + minutes, nil
}

// Range is a half-open window of start times, in minutes since midnight.
// A degenerate range (From == To) matches exactly that start time.
type Range struct {
	From int
	To   int
}

// ParseRange accepts "HH:MM-HH:MM" or a bare "HH:MM" for an exact time.
func ParseRange(s string) (Range, error) {
	from, to, found := strings.Cut(s, "-")
	fromMin, err := ParseClock(from)
	if err != nil {
		return Range{}, err
	}
	if !found {
		return Range{From: fromMin, To: fromMin}, nil
	}

	toMin, err := ParseClock(to)
	if err != nil {
		return Range{}, err
	}
	if toMin < fromMin {
		return Range{}, fmt.Errorf("parse range %q: end before start", s)
	}
	return Range{From: fromMin, To: toMin}, nil
}

// Contains reports whether a slot starting at the given minute falls in the
// range.
func (r Range) Contains(minutes int) bool {
	if r.From == r.To {
		return minutes == r.From
	}
	return minutes >= r.From && minutes < r.To
}

func (r Range) String() string {
	if r.From == r.To {
		return FormatClock(r.From)
	}
	return FormatClock(r.From) + "-" + FormatClock(r.To)
}

// Preference is one user's desired booking conditions for a set of weekdays.
type Preference struct {
	UserID   int64
	Weekdays []time.Weekday
	Times    []Range
	// Courts lists acceptable courts in order of preference.
	// Empty means any court.
	Courts []int
	// Priority orders preferences against each other; 1 is highest.
	Priority int
}

// AppliesTo reports whether the preference covers the given weekday.
func (p Preference) AppliesTo(day time.Weekday) bool {
	for _, d := range p.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

func (p Preference) wantsTime(minutes int) bool {
	for _, r := range p.Times {
		if r.Contains(minutes) {
			return true
		}
	}
	return false
}

// courtRank returns the position of court in the stated order, or -1 when the
// court is not acceptable.
func (p Preference) courtRank(court int) int {
	if len(p.Courts) == 0 {
		return 0
	}
	for i, c := range p.Courts {
		if c == court {
			return i
		}
	}
	return -1
}

func (p Preference) String() string {
	days := make([]string, len(p.Weekdays))
	for i, d := range p.Weekdays {
		days[i] = strings.ToLower(d.String())
	}
	times := make([]string, len(p.Times))
	for i, r := range p.Times {
		times[i] = r.String()
	}
	return fmt.Sprintf("Preference<user=%d days=%s times=%s courts=%v priority=%d>",
		p.UserID, strings.Join(days, ","), strings.Join(times, ","), p.Courts, p.Priority)
}
