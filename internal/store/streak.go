package store

import (
	"database/sql"
	"fmt"

	"github.com/stridehq/stride/internal/model"
)

// StreakStore persists per-scope streak state and the daily sign-in facts.
type StreakStore struct {
	db *sql.DB
}

func NewStreakStore(db *sql.DB) *StreakStore {
	return &StreakStore{db: db}
}

// Get returns the streak row for the scope, or nil before the first event.
// habitID nil addresses the user's sign-in streak.
func (s *StreakStore) Get(userID int64, habitID *int64) (*model.Streak, error) {
	var hID sql.NullInt64
	if habitID != nil {
		hID = sql.NullInt64{Int64: *habitID, Valid: true}
	}

	var st model.Streak
	var rowHabitID sql.NullInt64
	var lastDate sql.NullString
	err := s.db.QueryRow(
		`SELECT user_id, habit_id, current_streak, longest_streak, total_count, last_event_date
		 FROM streaks WHERE user_id = ? AND COALESCE(habit_id, 0) = COALESCE(?, 0)`,
		userID, hID,
	).Scan(&st.UserID, &rowHabitID, &st.Current, &st.Longest, &st.Total, &lastDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}

	if rowHabitID.Valid {
		st.HabitID = &rowHabitID.Int64
	}
	st.LastEventDate = lastDate.String
	return &st, nil
}

// saveStreak upserts the streak row on any execer so transactional callers
// (check-in, sign-in) can bundle it with their own writes.
func saveStreak(e execer, st model.Streak) error {
	var hID sql.NullInt64
	if st.HabitID != nil {
		hID = sql.NullInt64{Int64: *st.HabitID, Valid: true}
	}

	result, err := e.Exec(
		`UPDATE streaks SET current_streak = ?, longest_streak = ?, total_count = ?, last_event_date = ?, updated_at = datetime('now')
		 WHERE user_id = ? AND COALESCE(habit_id, 0) = COALESCE(?, 0)`,
		st.Current, st.Longest, st.Total, st.LastEventDate, st.UserID, hID,
	)
	if err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, err = e.Exec(
		`INSERT INTO streaks (user_id, habit_id, current_streak, longest_streak, total_count, last_event_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		st.UserID, hID, st.Current, st.Longest, st.Total, st.LastEventDate,
	)
	if err != nil {
		return fmt.Errorf("insert streak: %w", err)
	}
	return nil
}

// Save upserts the streak row for its scope.
func (s *StreakStore) Save(st model.Streak) error {
	return saveStreak(s.db, st)
}

// ListLapsing returns sign-in streaks whose last event fell on day: still
// alive, but gone at the next midnight without a new event. The reminder
// sweep reads this with day set to yesterday.
func (s *StreakStore) ListLapsing(day string) ([]model.Streak, error) {
	rows, err := s.db.Query(
		`SELECT user_id, habit_id, current_streak, longest_streak, total_count, last_event_date
		 FROM streaks WHERE habit_id IS NULL AND last_event_date = ? ORDER BY user_id ASC`,
		day,
	)
	if err != nil {
		return nil, fmt.Errorf("list lapsing streaks: %w", err)
	}
	defer rows.Close()

	var streaks []model.Streak
	for rows.Next() {
		var st model.Streak
		var habitID sql.NullInt64
		var lastDate sql.NullString
		if err := rows.Scan(&st.UserID, &habitID, &st.Current, &st.Longest, &st.Total, &lastDate); err != nil {
			return nil, fmt.Errorf("scan lapsing streak: %w", err)
		}
		st.LastEventDate = lastDate.String
		streaks = append(streaks, st)
	}
	return streaks, rows.Err()
}

// RecordSignin inserts the daily sign-in fact. It returns false when the day
// was already recorded; the unique index is the idempotence guard.
func (s *StreakStore) RecordSignin(userID int64, day string) (bool, error) {
	_, err := s.db.Exec(
		`INSERT INTO signin_events (user_id, signin_date) VALUES (?, ?)`,
		userID, day,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert signin event: %w", err)
	}
	return true, nil
}

// Signin records the daily sign-in fact, the bonus ledger entry, and the
// advanced streak (when st is non-nil) in one transaction. Nothing lands
// unless everything does, so a failed attempt leaves the day free to retry.
// A repeat for the day rolls back and returns false.
func (s *StreakStore) Signin(userID int64, day string, points int64, description string, st *model.Streak) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO signin_events (user_id, signin_date) VALUES (?, ?)`,
		userID, day,
	); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert signin event: %w", err)
	}

	if points != 0 {
		if _, err := insertEntry(tx, userID, points, nil, nil, description); err != nil {
			return false, err
		}
	}
	if st != nil {
		if err := saveStreak(tx, *st); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit signin: %w", err)
	}
	return true, nil
}

func (s *StreakStore) CountSignins(userID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM signin_events WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count signin events: %w", err)
	}
	return n, nil
}
