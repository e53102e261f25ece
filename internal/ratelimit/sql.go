package ratelimit

import (
	"context"

	"babyzen/internal/repository"
)

// SQLLimiter keeps the counters in the usage_limits table
type SQLLimiter struct {
	repo repository.UsageRepository
}

// NewSQLLimiter creates a limiter over a usage repository
func NewSQLLimiter(repo repository.UsageRepository) *SQLLimiter {
	return &SQLLimiter{repo: repo}
}

// Check reads the day's counter, creating it at zero when missing
func (l *SQLLimiter) Check(ctx context.Context, userID, day string) (Usage, error) {
	counter, created, err := l.repo.EnsureUsage(ctx, userID, day)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Count: counter.ScanCount, Exists: !created}, nil
}

// Increment adds one successful scan
func (l *SQLLimiter) Increment(ctx context.Context, userID, day string) (int, error) {
	return l.repo.IncrementUsage(ctx, userID, day)
}
