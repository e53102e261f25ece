package model

import (
	"time"

	"github.com/google/uuid"
)

// Function names written to ai_logs
const (
	FunctionAnalyzeCry = "analyze-cry"
	FunctionAIMentor   = "ai-mentor"
)

// AuditLogEntry is one ai_logs row describing a single pipeline invocation
type AuditLogEntry struct {
	ID           uuid.UUID `json:"id"`
	UserID       string    `json:"user_id"`
	FunctionName string    `json:"function_name"`
	DurationMs   int64     `json:"duration_ms"`
	TokenUsage   *int      `json:"token_usage,omitempty"`
	Error        *string   `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewAuditLogEntry builds an entry; zero tokens and an empty error are stored as NULL
func NewAuditLogEntry(userID, function string, duration time.Duration, tokens int, errMsg string) AuditLogEntry {
	entry := AuditLogEntry{
		ID:           uuid.New(),
		UserID:       userID,
		FunctionName: function,
		DurationMs:   duration.Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
	if tokens > 0 {
		entry.TokenUsage = &tokens
	}
	if errMsg != "" {
		entry.Error = &errMsg
	}
	return entry
}
