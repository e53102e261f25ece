package model

import "time"

// UsageCounter is one row of usage_limits: successful scans of a user on a day
type UsageCounter struct {
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"`
	ScanCount int       `json:"scan_count"`
	UpdatedAt time.Time `json:"updated_at"`
}
