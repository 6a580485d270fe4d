// Package streak computes consecutive-day streaks from dated events. Dates
// are calendar days in the caller's timezone, passed as YYYY-MM-DD strings,
// so the math here never touches clocks or zones.
package streak

import (
	"fmt"
	"time"

	"github.com/stridehq/stride/internal/model"
)

// DayFormat is the wire and storage format for event days.
const DayFormat = "2006-01-02"

func parseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return t, nil
}

// daysBetween returns b - a in whole days. Both inputs are midnight UTC, so
// the division is exact.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// Advance applies one qualifying event on day and reports whether the state
// changed. A repeat event on the already-recorded day is a no-op, as is an
// event dated before the last recorded day.
func Advance(st model.Streak, day string) (model.Streak, bool, error) {
	eventDay, err := parseDay(day)
	if err != nil {
		return st, false, err
	}

	if st.LastEventDate == "" {
		st.Current = 1
		if st.Longest < 1 {
			st.Longest = 1
		}
		st.Total++
		st.LastEventDate = day
		return st, true, nil
	}

	lastDay, err := parseDay(st.LastEventDate)
	if err != nil {
		return st, false, err
	}

	switch gap := daysBetween(lastDay, eventDay); {
	case gap <= 0:
		return st, false, nil
	case gap == 1:
		st.Current++
	default:
		st.Current = 1
	}
	if st.Current > st.Longest {
		st.Longest = st.Current
	}
	st.Total++
	st.LastEventDate = day
	return st, true, nil
}

// ProjectedCurrent returns the streak length as of today without mutating
// state. Once a full day has passed with no event the run is over, even
// though the stored row still carries the last counted value.
func ProjectedCurrent(st model.Streak, today string) (int, error) {
	if st.LastEventDate == "" {
		return 0, nil
	}
	lastDay, err := parseDay(st.LastEventDate)
	if err != nil {
		return 0, err
	}
	todayDay, err := parseDay(today)
	if err != nil {
		return 0, err
	}
	if daysBetween(lastDay, todayDay) > 1 {
		return 0, nil
	}
	return st.Current, nil
}
