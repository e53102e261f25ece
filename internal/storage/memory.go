// Package storage keeps every repository in process memory. It backs the
// server when no DATABASE_URL is configured and the orchestration tests.
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"babyzen/internal/model"
	"babyzen/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type usageKey struct {
	userID string
	date   string
}

// MemoryStore implements the user and service repositories
type MemoryStore struct {
	mu       sync.Mutex
	usage    map[usageKey]*model.UsageCounter
	audit    []model.AuditLogEntry
	cries    []model.Cry
	sessions []model.ChatSession
	messages []model.ChatMessage
	profiles map[string]model.Profile
	events   []model.CareEvent
	nextID   int64
	now      func() time.Time
}

var (
	_ repository.UserRepository  = (*MemoryStore)(nil)
	_ repository.AuditRepository = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		usage:    make(map[usageKey]*model.UsageCounter),
		profiles: make(map[string]model.Profile),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EnsureUsage lazily creates the day's counter
func (s *MemoryStore) EnsureUsage(ctx context.Context, userID, date string) (model.UsageCounter, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey{userID, date}
	if c, ok := s.usage[key]; ok {
		return *c, false, nil
	}
	c := &model.UsageCounter{UserID: userID, Date: date, UpdatedAt: s.now()}
	s.usage[key] = c
	return *c, true, nil
}

// IncrementUsage adds one scan and returns the new count
func (s *MemoryStore) IncrementUsage(ctx context.Context, userID, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey{userID, date}
	c, ok := s.usage[key]
	if !ok {
		c = &model.UsageCounter{UserID: userID, Date: date}
		s.usage[key] = c
	}
	c.ScanCount++
	c.UpdatedAt = s.now()
	return c.ScanCount, nil
}

// InsertAuditLog appends an audit entry
func (s *MemoryStore) InsertAuditLog(ctx context.Context, entry *model.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, *entry)
	return nil
}

// AuditLogs returns a copy of every audit entry in insertion order
func (s *MemoryStore) AuditLogs() []model.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditLogEntry(nil), s.audit...)
}

// InsertCry stores a classification result
func (s *MemoryStore) InsertCry(ctx context.Context, cry *model.Cry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cries = append(s.cries, *cry)
	return nil
}

// ListCries returns the user's newest cries
func (s *MemoryStore) ListCries(ctx context.Context, userID string, limit int) ([]model.Cry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mine := lo.Filter(s.cries, func(c model.Cry, _ int) bool { return c.UserID == userID })
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	return newestFirst(mine, limit), nil
}

// LatestSession returns the user's newest chat session
func (s *MemoryStore) LatestSession(ctx context.Context, userID string) (*model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *model.ChatSession
	for i := range s.sessions {
		sess := s.sessions[i]
		if sess.UserID != userID {
			continue
		}
		if latest == nil || !sess.CreatedAt.Before(latest.CreatedAt) {
			latest = &sess
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

// CreateSession opens a chat session for the user
func (s *MemoryStore) CreateSession(ctx context.Context, userID string) (*model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := model.ChatSession{ID: uuid.New(), UserID: userID, CreatedAt: s.now()}
	s.sessions = append(s.sessions, sess)
	return &sess, nil
}

// ListMessages returns the chronological tail of the user's session
func (s *MemoryStore) ListMessages(ctx context.Context, userID string, sessionID uuid.UUID, limit int) ([]model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ownsSession(userID, sessionID) {
		return nil, nil
	}
	msgs := lo.Filter(s.messages, func(m model.ChatMessage, _ int) bool { return m.SessionID == sessionID })
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// InsertMessage appends a message to the user's session
func (s *MemoryStore) InsertMessage(ctx context.Context, userID string, msg *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ownsSession(userID, msg.SessionID) {
		return repository.ErrNotFound
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *MemoryStore) ownsSession(userID string, sessionID uuid.UUID) bool {
	return lo.ContainsBy(s.sessions, func(sess model.ChatSession) bool {
		return sess.ID == sessionID && sess.UserID == userID
	})
}

// GetProfile returns the user's profile
func (s *MemoryStore) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

// UpsertProfile creates or replaces the user's profile
func (s *MemoryStore) UpsertProfile(ctx context.Context, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = *p
	return nil
}

// InsertEvent logs a care event and sets its id
func (s *MemoryStore) InsertEvent(ctx context.Context, e *model.CareEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	e.ID = s.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.events = append(s.events, *e)
	return nil
}

// RecentEvents returns the user's newest care events
func (s *MemoryStore) RecentEvents(ctx context.Context, userID string, limit int) ([]model.CareEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mine := lo.Filter(s.events, func(e model.CareEvent, _ int) bool { return e.UserID == userID })
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	return newestFirst(mine, limit), nil
}

func newestFirst[T any](sorted []T, limit int) []T {
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
