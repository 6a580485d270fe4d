package model

import "time"

// PointEntry is an immutable signed point transaction. At most one of GoalID
// and TaskID is set; both are attribution only and never drive behavior.
type PointEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Points      int64     `json:"points"`
	GoalID      *int64    `json:"goal_id"`
	TaskID      *int64    `json:"task_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// DayTotal is one bucket of a day-grouped points breakdown.
type DayTotal struct {
	Day    string `json:"day"`
	Points int64  `json:"points"`
}

type PointsSummary struct {
	Total     int64 `json:"total"`
	Last7Days int64 `json:"last_7_days"`
	Today     int64 `json:"today"`
}
