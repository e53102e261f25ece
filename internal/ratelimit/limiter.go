//go:generate go run go.uber.org/mock/mockgen -source=limiter.go -destination=../mocks/mock_limiter.go -package=mocks

// Package ratelimit enforces the daily per-user scan quota of the cry pipeline.
package ratelimit

import (
	"context"
	"time"
)

// DefaultDailyQuota is the number of successful scans a user gets per UTC day
const DefaultDailyQuota = 10

// Usage is the counter observed by Check
type Usage struct {
	Count  int
	Exists bool // false when Check created the day's counter
}

// Limiter tracks successful scans per user and UTC day.
// Check never increments; Increment must be atomic under concurrency.
type Limiter interface {
	Check(ctx context.Context, userID, day string) (Usage, error)
	Increment(ctx context.Context, userID, day string) (int, error)
}

// Day returns the UTC calendar day key for t
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Exceeded reports whether another scan would go over the quota
func Exceeded(u Usage, quota int) bool {
	return u.Count >= quota
}

// Remaining is the number of scans left today, never negative
func Remaining(u Usage, quota int) int {
	if u.Count >= quota {
		return 0
	}
	return quota - u.Count
}
