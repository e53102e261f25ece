package repository

import (
	"context"
	"database/sql"
	"fmt"

	"babyzen/internal/model"
)

// ServiceRepository is the audit write path. It can only append audit rows,
// with every value bound as a parameter. On sqlite its connection has the same
// file access as the user-scoped one; the split is in the API, not the engine.
type ServiceRepository struct {
	db *sql.DB
}

// NewServiceRepository wraps the connection named by SERVICE_DATABASE_URL
func NewServiceRepository(db *sql.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// InsertAuditLog appends one ai_logs row
func (r *ServiceRepository) InsertAuditLog(ctx context.Context, entry *model.AuditLogEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ai_logs (id, user_id, function_name, duration_ms, token_usage, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.FunctionName, entry.DurationMs, entry.TokenUsage, entry.Error, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
