package slots

import (
	"sort"
	"time"
)

// Candidate is a slot that satisfies a preference and is eligible for a
// booking attempt.
type Candidate struct {
	Slot       Slot
	Preference Preference
}

// Match intersects the fetched slots with the preferences applicable to the
// target weekday and returns candidates in attempt order: preference priority
// first, then the preference's stated court order, then start time. A slot
// appears at most once, under its highest-priority match.
//
// Match is deterministic and has no side effects. Only slots that satisfy a
// preference's day, time, and court filters are returned; there is no
// fallback to off-preference courts.
func Match(available []Slot, preferences []Preference, weekday func(Slot) bool) []Candidate {
	applicable := make([]Preference, 0, len(preferences))
	for _, p := range preferences {
		applicable = append(applicable, p)
	}
	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[i].Priority < applicable[j].Priority
	})

	seen := make(map[string]bool, len(available))
	var candidates []Candidate

	for _, pref := range applicable {
		var matched []Candidate
		for _, slot := range available {
			if seen[slot.Key] {
				continue
			}
			if weekday != nil && !weekday(slot) {
				continue
			}
			if !pref.wantsTime(slot.Start) {
				continue
			}
			if pref.courtRank(slot.Court) < 0 {
				continue
			}
			matched = append(matched, Candidate{Slot: slot, Preference: pref})
		}

		sort.SliceStable(matched, func(i, j int) bool {
			ri, rj := pref.courtRank(matched[i].Slot.Court), pref.courtRank(matched[j].Slot.Court)
			if ri != rj {
				return ri < rj
			}
			return matched[i].Slot.Start < matched[j].Slot.Start
		})

		for _, c := range matched {
			seen[c.Slot.Key] = true
			candidates = append(candidates, c)
		}
	}

	return candidates
}

// MatchForDay is the common entry point: it keeps only preferences covering
// the target date's weekday and only slots dated on that day (undated slots
// are assumed to belong to the fetched day view).
func MatchForDay(available []Slot, preferences []Preference, date time.Time) []Candidate {
	applicable := make([]Preference, 0, len(preferences))
	for _, p := range preferences {
		if p.AppliesTo(date.Weekday()) {
			applicable = append(applicable, p)
		}
	}

	return Match(available, applicable, func(s Slot) bool {
		if s.Date.IsZero() {
			return true
		}
		return s.Date.Year() == date.Year() && s.Date.YearDay() == date.YearDay()
	})
}
