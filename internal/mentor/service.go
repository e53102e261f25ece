// Package mentor answers parenting questions with the recent history of the
// baby as context, and keeps the conversation per user.
package mentor

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"babyzen/internal/ai"
	"babyzen/internal/auth"
	"babyzen/internal/logging"
	"babyzen/internal/metrics"
	"babyzen/internal/model"
	"babyzen/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	DefaultHistoryLimit  = 10
	DefaultMaxReplyChars = 600
	MaxMessageChars      = 2000

	recentEventsLimit = 5
	recentCriesLimit  = 3
)

var (
	ErrEmptyMessage    = errors.New("message is required")
	ErrMessageTooLong  = errors.New("message is too long")
	ErrEmptyCompletion = errors.New("mentor returned an empty reply")
)

// Auditor accepts audit entries without blocking
type Auditor interface {
	Record(entry model.AuditLogEntry)
}

// Deps are the collaborators of the mentor
type Deps struct {
	LLM      ai.Mentor
	Profiles repository.ProfileRepository
	Events   repository.EventRepository
	Cries    repository.CryRepository
	Chats    repository.ChatRepository
	Audit    Auditor
	Log      zerolog.Logger
}

// Options tune the mentor; zero values take defaults
type Options struct {
	HistoryLimit    int
	MaxReplyChars   int
	ProviderTimeout time.Duration
	Now             func() time.Time
}

// Reply is the mentor's answer
type Reply struct {
	Response  string    `json:"response"`
	SessionID uuid.UUID `json:"session_id"`
	Language  string    `json:"language"`
}

// Service implements POST /ai-mentor
type Service struct {
	deps Deps
	opts Options
	log  zerolog.Logger
}

// NewService creates a mentor service
func NewService(deps Deps, opts Options) *Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.MaxReplyChars <= 0 {
		opts.MaxReplyChars = DefaultMaxReplyChars
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{deps: deps, opts: opts, log: logging.Component(deps.Log, "mentor")}
}

// Ask answers message for the caller and stores both turns
func (s *Service) Ask(ctx context.Context, ac auth.AuthContext, message string) (*Reply, error) {
	if ac.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxMessageChars {
		return nil, ErrMessageTooLong
	}

	log := s.log.With().Str("user_id", ac.UserID).Logger()
	now := s.opts.Now()

	// Context is best effort: a failed read only makes the answer less personal
	bc := s.loadContext(ctx, log, ac.UserID)
	language := replyLanguage(bc.profile, message)
	systemPrompt := ai.BuildMentorSystemPrompt(language, bc.render(now))

	session, history := s.loadHistory(ctx, log, ac.UserID)

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	completion, err := s.deps.LLM.Reply(callCtx, systemPrompt, history, message)
	cancel()
	metrics.ObserveProvider("mentor", start)

	if err == nil && (completion == nil || strings.TrimSpace(completion.Content) == "") {
		err = ErrEmptyCompletion
	}
	if err != nil {
		log.Error().Err(err).Msg("[Mentor] Completion failed")
		s.deps.Audit.Record(model.NewAuditLogEntry(ac.UserID, model.FunctionAIMentor, time.Since(start), 0, err.Error()))
		return nil, err
	}

	text := truncateRunes(strings.TrimSpace(completion.Content), s.opts.MaxReplyChars)
	s.deps.Audit.Record(model.NewAuditLogEntry(ac.UserID, model.FunctionAIMentor, time.Since(start), completion.TotalTokens, ""))

	reply := &Reply{Response: text, Language: language}
	if session != nil {
		reply.SessionID = session.ID
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		s.persistTurn(persistCtx, log, ac.UserID, session.ID, message, text, now)
	}

	log.Info().Str("language", language).Int("history", len(history)).Int("reply_length", len(text)).
		Msg("[Mentor] Reply sent")
	return reply, nil
}

func (s *Service) loadContext(ctx context.Context, log zerolog.Logger, userID string) babyContext {
	var bc babyContext

	profile, err := s.deps.Profiles.GetProfile(ctx, userID)
	switch {
	case err == nil:
		bc.profile = profile
	case !errors.Is(err, repository.ErrNotFound):
		log.Warn().Err(err).Msg("[Mentor] Profile unavailable")
	}

	if bc.events, err = s.deps.Events.RecentEvents(ctx, userID, recentEventsLimit); err != nil {
		log.Warn().Err(err).Msg("[Mentor] Events unavailable")
	}
	if bc.cries, err = s.deps.Cries.ListCries(ctx, userID, recentCriesLimit); err != nil {
		log.Warn().Err(err).Msg("[Mentor] Cries unavailable")
	}
	return bc
}

// loadHistory returns the user's latest session, creating one on first use
func (s *Service) loadHistory(ctx context.Context, log zerolog.Logger, userID string) (*model.ChatSession, []ai.MentorMessage) {
	session, err := s.deps.Chats.LatestSession(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		session, err = s.deps.Chats.CreateSession(ctx, userID)
	}
	if err != nil {
		log.Warn().Err(err).Msg("[Mentor] Chat session unavailable, answering without history")
		return nil, nil
	}

	msgs, err := s.deps.Chats.ListMessages(ctx, userID, session.ID, s.opts.HistoryLimit)
	if err != nil {
		log.Warn().Err(err).Msg("[Mentor] History unavailable")
		return session, nil
	}

	history := lo.FilterMap(msgs, func(m model.ChatMessage, _ int) (ai.MentorMessage, bool) {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			return ai.MentorMessage{}, false
		}
		return ai.MentorMessage{Role: m.Role, Content: m.Content}, true
	})
	return session, history
}

func (s *Service) persistTurn(ctx context.Context, log zerolog.Logger, userID string, sessionID uuid.UUID, question, answer string, at time.Time) {
	turn := []model.ChatMessage{
		{ID: uuid.New(), SessionID: sessionID, Role: model.RoleUser, Content: question, CreatedAt: at.UTC()},
		// one tick later so ordering by time keeps the reply after the question
		{ID: uuid.New(), SessionID: sessionID, Role: model.RoleAssistant, Content: answer, CreatedAt: at.UTC().Add(time.Millisecond)},
	}
	for i := range turn {
		if err := s.deps.Chats.InsertMessage(ctx, userID, &turn[i]); err != nil {
			log.Error().Err(err).Str("role", turn[i].Role).Msg("[Mentor] Failed to store message")
		}
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
