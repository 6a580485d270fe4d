package streak

import (
	"fmt"
	"time"

	"github.com/stridehq/stride/internal/apperr"
	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/store"
)

// Tracker maintains persisted streak rows per scope. A nil habitID addresses
// the user's sign-in streak; a non-nil one addresses that habit's streak.
type Tracker struct {
	streaks *store.StreakStore
}

func NewTracker(streaks *store.StreakStore) *Tracker {
	return &Tracker{streaks: streaks}
}

// Next computes the streak state an event on day would produce, without
// persisting anything. The flag reports whether the row needs saving.
// Callers that bundle the save into a wider transaction use this and hand
// the result to the store; RecordEvent is the standalone form.
func (t *Tracker) Next(userID int64, habitID *int64, day string) (*model.Streak, bool, error) {
	if _, err := time.ParseInLocation(DayFormat, day, time.UTC); err != nil {
		return nil, false, apperr.Invalid("date", "must be a YYYY-MM-DD date")
	}

	st, err := t.streaks.Get(userID, habitID)
	if err != nil {
		return nil, false, err
	}
	if st == nil {
		st = &model.Streak{UserID: userID, HabitID: habitID}
	}

	updated, changed, err := Advance(*st, day)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return st, false, nil
	}
	return &updated, true, nil
}

// RecordEvent folds one qualifying event on day into the scope's streak and
// returns the updated state. Repeat events on the same day leave the row
// untouched.
func (t *Tracker) RecordEvent(userID int64, habitID *int64, day string) (*model.Streak, error) {
	st, changed, err := t.Next(userID, habitID, day)
	if err != nil {
		return nil, err
	}
	if !changed {
		return st, nil
	}
	if err := t.streaks.Save(*st); err != nil {
		return nil, fmt.Errorf("save streak: %w", err)
	}
	return st, nil
}

// Get reads the scope's streak as of today. Current is projected: a run that
// lapsed reads as zero while Longest and Total keep their stored values.
// Scopes with no events yet read as an all-zero streak.
func (t *Tracker) Get(userID int64, habitID *int64, today string) (*model.Streak, error) {
	st, err := t.streaks.Get(userID, habitID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return &model.Streak{UserID: userID, HabitID: habitID}, nil
	}
	current, err := ProjectedCurrent(*st, today)
	if err != nil {
		return nil, err
	}
	st.Current = current
	return st, nil
}
