// Package audit writes ai_logs entries without blocking the response path.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"babyzen/internal/logging"
	"babyzen/internal/metrics"
	"babyzen/internal/model"
	"babyzen/internal/repository"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single audit write
const DefaultTimeout = 5 * time.Second

// Recorder dispatches audit writes to background goroutines
type Recorder struct {
	repo    repository.AuditRepository
	timeout time.Duration
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewRecorder creates a recorder writing through repo
func NewRecorder(repo repository.AuditRepository, timeout time.Duration, log zerolog.Logger) *Recorder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Recorder{
		repo:    repo,
		timeout: timeout,
		log:     logging.Component(log, "audit"),
	}
}

// Record writes entry in the background. It returns immediately; failures
// are logged and counted, never returned to the caller.
func (r *Recorder) Record(entry model.AuditLogEntry) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				metrics.AuditWriteFailures.Inc()
				r.log.Error().Str("panic", fmt.Sprint(p)).Str("function", entry.FunctionName).
					Msg("[Audit] Panic while writing audit log")
			}
		}()

		// detached from the request: the response may already be sent
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.repo.InsertAuditLog(ctx, &entry); err != nil {
			metrics.AuditWriteFailures.Inc()
			r.log.Error().Err(err).Str("function", entry.FunctionName).Str("user_id", entry.UserID).
				Msg("[Audit] Failed to write audit log")
			return
		}
		r.log.Debug().Str("function", entry.FunctionName).Int64("duration_ms", entry.DurationMs).
			Msg("[Audit] Audit log written")
	}()
}

// Wait blocks until every dispatched write has finished
func (r *Recorder) Wait() {
	r.wg.Wait()
}
