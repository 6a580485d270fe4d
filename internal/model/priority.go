package model

import "time"

type PriorityType string

const (
	PriorityTypeAIRecommended PriorityType = "ai_recommended"
	PriorityTypeManual        PriorityType = "manual"
	PriorityTypeFireAuto      PriorityType = "fire_auto"
)

type Priority struct {
	ID            int64        `json:"id"`
	UserID        int64        `json:"user_id"`
	Title         string       `json:"title"`
	PriorityType  PriorityType `json:"priority_type"`
	PriorityScore float64      `json:"priority_score"`
	OrderIndex    int          `json:"order_index"`
	IsCompleted   bool         `json:"is_completed"`
	IsDeleted     bool         `json:"is_deleted"`
	DeletedAt     *time.Time   `json:"deleted_at"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
