package model

import "time"

// TrophyFamily names one of the independent achievement families. Each family
// has its own reference table of thresholds.
type TrophyFamily string

const (
	TrophyFamilyHabitStreak TrophyFamily = "habit_streak"
	TrophyFamilyHabitTotal  TrophyFamily = "habit_total"
	TrophyFamilySignin      TrophyFamily = "signin"
)

// Trophy is immutable reference data seeded by migration.
type Trophy struct {
	ID          int64  `json:"id"`
	Threshold   int    `json:"threshold"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UserTrophy struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user_id"`
	Family    TrophyFamily `json:"family"`
	TrophyID  int64        `json:"trophy_id"`
	HabitID   *int64       `json:"habit_id"`
	AwardedAt time.Time    `json:"awarded_at"`
}

// AwardedTrophy joins a user's award with its reference row for display.
type AwardedTrophy struct {
	UserTrophy
	Threshold   int    `json:"threshold"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
