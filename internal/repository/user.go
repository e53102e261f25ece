package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"babyzen/internal/model"

	"github.com/google/uuid"
)

// SQLRepository is the user-scoped data access layer. Every statement is
// filtered by the caller's user id.
type SQLRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLRepository wraps the user-scoped connection
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureUsage lazily creates the day's counter
func (r *SQLRepository) EnsureUsage(ctx context.Context, userID, date string) (model.UsageCounter, bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO usage_limits (user_id, date, scan_count, updated_at) VALUES (?, ?, 0, ?)
		 ON CONFLICT(user_id, date) DO NOTHING`,
		userID, date, r.now())
	if err != nil {
		return model.UsageCounter{}, false, fmt.Errorf("failed to ensure usage row: %w", err)
	}
	affected, _ := res.RowsAffected()

	counter := model.UsageCounter{UserID: userID, Date: date}
	err = r.db.QueryRowContext(ctx,
		`SELECT scan_count, updated_at FROM usage_limits WHERE user_id = ? AND date = ?`,
		userID, date).Scan(&counter.ScanCount, &counter.UpdatedAt)
	if err != nil {
		return model.UsageCounter{}, false, fmt.Errorf("failed to read usage row: %w", err)
	}
	return counter, affected == 1, nil
}

// IncrementUsage adds one scan in a single statement so concurrent requests
// never lose an update
func (r *SQLRepository) IncrementUsage(ctx context.Context, userID, date string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO usage_limits (user_id, date, scan_count, updated_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET scan_count = scan_count + 1, updated_at = excluded.updated_at
		 RETURNING scan_count`,
		userID, date, r.now()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}
	return count, nil
}

// InsertCry stores a classification result
func (r *SQLRepository) InsertCry(ctx context.Context, cry *model.Cry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cries (id, user_id, type, confidence, reasoning, advice_key, soothe_sound,
			transcript, language, is_fallback, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cry.ID, cry.UserID, string(cry.Type), cry.Confidence, cry.Reasoning, string(cry.AdviceKey),
		string(cry.SootheSound), cry.Transcript, cry.Language, cry.IsFallback, cry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert cry: %w", err)
	}
	return nil
}

// ListCries returns the newest cries of the user
func (r *SQLRepository) ListCries(ctx context.Context, userID string, limit int) ([]model.Cry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, confidence, reasoning, advice_key, soothe_sound,
			transcript, language, is_fallback, created_at
		 FROM cries WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cries: %w", err)
	}
	defer rows.Close()

	var out []model.Cry
	for rows.Next() {
		var c model.Cry
		var typ, advice, sound string
		if err := rows.Scan(&c.ID, &c.UserID, &typ, &c.Confidence, &c.Reasoning, &advice, &sound,
			&c.Transcript, &c.Language, &c.IsFallback, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cry: %w", err)
		}
		c.Type = model.CryType(typ)
		c.AdviceKey = model.AdviceKey(advice)
		c.SootheSound = model.SootheSound(sound)
		out = append(out, c)
	}
	return out, rows.Err()
}

// LatestSession returns the user's most recent chat session
func (r *SQLRepository) LatestSession(ctx context.Context, userID string) (*model.ChatSession, error) {
	var s model.ChatSession
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at FROM chat_sessions WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		userID).Scan(&s.ID, &s.UserID, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest session: %w", err)
	}
	return &s, nil
}

// CreateSession opens a new chat session for the user
func (r *SQLRepository) CreateSession(ctx context.Context, userID string) (*model.ChatSession, error) {
	s := &model.ChatSession{ID: uuid.New(), UserID: userID, CreatedAt: r.now()}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, created_at) VALUES (?, ?, ?)`,
		s.ID, s.UserID, s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// ListMessages returns the tail of a session owned by the user
func (r *SQLRepository) ListMessages(ctx context.Context, userID string, sessionID uuid.UUID, limit int) ([]model.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.session_id, m.role, m.content, m.created_at
		 FROM chat_messages m JOIN chat_sessions s ON s.id = m.session_id
		 WHERE m.session_id = ? AND s.user_id = ?
		 ORDER BY m.created_at DESC, m.rowid DESC LIMIT ?`,
		sessionID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// newest first from the query, callers want chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// InsertMessage appends a message to a session owned by the user
func (r *SQLRepository) InsertMessage(ctx context.Context, userID string, msg *model.ChatMessage) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, created_at)
		 SELECT ?, id, ?, ?, ? FROM chat_sessions WHERE id = ? AND user_id = ?`,
		msg.ID, msg.Role, msg.Content, msg.CreatedAt, msg.SessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetProfile returns the user's profile
func (r *SQLRepository) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	var dob sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, baby_name, baby_dob, language FROM profiles WHERE id = ?`,
		userID).Scan(&p.UserID, &p.BabyName, &dob, &p.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if dob.Valid {
		t := dob.Time
		p.BabyDOB = &t
	}
	return &p, nil
}

// UpsertProfile creates or replaces the user's profile
func (r *SQLRepository) UpsertProfile(ctx context.Context, p *model.Profile) error {
	var dob any
	if p.BabyDOB != nil {
		dob = p.BabyDOB.UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, baby_name, baby_dob, language) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET baby_name = excluded.baby_name,
			baby_dob = excluded.baby_dob, language = excluded.language`,
		p.UserID, p.BabyName, dob, p.Language)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// InsertEvent logs a care event and sets its id
func (r *SQLRepository) InsertEvent(ctx context.Context, e *model.CareEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO logs (user_id, type, created_at) VALUES (?, ?, ?)`,
		e.UserID, e.Type, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// RecentEvents returns the user's newest care events
func (r *SQLRepository) RecentEvents(ctx context.Context, userID string, limit int) ([]model.CareEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, created_at FROM logs WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []model.CareEvent
	for rows.Next() {
		var e model.CareEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
