package model

import "time"

type Habit struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Points      int       `json:"points"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HabitCompletion is a per-day completion fact. CompletedOn is a calendar day
// in the user's timezone, formatted YYYY-MM-DD; at most one exists per habit
// per day.
type HabitCompletion struct {
	ID          int64     `json:"id"`
	HabitID     int64     `json:"habit_id"`
	UserID      int64     `json:"user_id"`
	CompletedOn string    `json:"completed_on"`
	CreatedAt   time.Time `json:"created_at"`
}
