package repository

import (
	"context"
	"errors"

	"babyzen/internal/model"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a single-row lookup matches nothing
var ErrNotFound = errors.New("record not found")

// UsageRepository stores the per-user, per-day scan counters
type UsageRepository interface {
	// EnsureUsage creates the row with a zero count when missing and returns it.
	// created reports whether this call inserted the row.
	EnsureUsage(ctx context.Context, userID, date string) (counter model.UsageCounter, created bool, err error)

	// IncrementUsage atomically adds one scan and returns the new count
	IncrementUsage(ctx context.Context, userID, date string) (int, error)
}

// AuditRepository appends ai_logs rows. It is the only privileged write path.
type AuditRepository interface {
	InsertAuditLog(ctx context.Context, entry *model.AuditLogEntry) error
}

// CryRepository stores classification results
type CryRepository interface {
	InsertCry(ctx context.Context, cry *model.Cry) error

	// ListCries returns the user's most recent cries, newest first
	ListCries(ctx context.Context, userID string, limit int) ([]model.Cry, error)
}

// ChatRepository stores mentor conversations
type ChatRepository interface {
	// LatestSession returns ErrNotFound when the user has no session yet
	LatestSession(ctx context.Context, userID string) (*model.ChatSession, error)
	CreateSession(ctx context.Context, userID string) (*model.ChatSession, error)

	// ListMessages returns the last limit messages of a session in chronological order
	ListMessages(ctx context.Context, userID string, sessionID uuid.UUID, limit int) ([]model.ChatMessage, error)

	// InsertMessage fails with ErrNotFound when the session is not the user's
	InsertMessage(ctx context.Context, userID string, msg *model.ChatMessage) error
}

// ProfileRepository reads and writes the baby profile
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpsertProfile(ctx context.Context, profile *model.Profile) error
}

// EventRepository reads and writes care events (logs table)
type EventRepository interface {
	InsertEvent(ctx context.Context, event *model.CareEvent) error

	// RecentEvents returns the user's latest events, newest first
	RecentEvents(ctx context.Context, userID string, limit int) ([]model.CareEvent, error)
}

// UserRepository is everything the user-scoped connection serves
type UserRepository interface {
	UsageRepository
	CryRepository
	ChatRepository
	ProfileRepository
	EventRepository
}
