package model

import "time"

// Profile holds what the mentor knows about the baby
type Profile struct {
	UserID   string     `json:"id"`
	BabyName string     `json:"baby_name"`
	BabyDOB  *time.Time `json:"baby_dob,omitempty"`
	Language string     `json:"language"`
}

// Care event types logged from the home screen
const (
	EventFeeding = "feeding"
	EventSleep   = "sleep"
	EventDiaper  = "diaper"
	EventBath    = "bath"
	EventWalk    = "walk"
)

// CareEvent is one row of the logs table
type CareEvent struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
