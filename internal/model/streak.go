package model

// Streak is the persisted streak state for one scope: HabitID set for a habit
// streak, nil for the user's sign-in streak. LastEventDate is YYYY-MM-DD in
// the user's reference calendar, empty before the first event.
type Streak struct {
	UserID        int64  `json:"user_id"`
	HabitID       *int64 `json:"habit_id"`
	Current       int    `json:"current_streak"`
	Longest       int    `json:"longest_streak"`
	Total         int    `json:"total_count"`
	LastEventDate string `json:"last_event_date"`
}
