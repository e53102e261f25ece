package mentor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"babyzen/internal/ai"
	"babyzen/internal/audit"
	"babyzen/internal/auth"
	"babyzen/internal/mocks"
	"babyzen/internal/model"
	"babyzen/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	parent   = auth.AuthContext{UserID: "user-1", Role: auth.RoleAuthenticated}
)

type fixture struct {
	llm      *mocks.MockMentor
	store    *storage.MemoryStore
	recorder *audit.Recorder
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		llm:   mocks.NewMockMentor(ctrl),
		store: storage.NewMemoryStore(),
	}
	f.recorder = audit.NewRecorder(f.store, time.Second, zerolog.Nop())
	f.service = NewService(Deps{
		LLM:      f.llm,
		Profiles: f.store,
		Events:   f.store,
		Cries:    f.store,
		Chats:    f.store,
		Audit:    f.recorder,
		Log:      zerolog.Nop(),
	}, Options{ProviderTimeout: time.Second, Now: func() time.Time { return fixedNow }})
	return f
}

func (f *fixture) auditLogs() []model.AuditLogEntry {
	f.recorder.Wait()
	return f.store.AuditLogs()
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		description string
		dob         time.Time
		expected    string
	}{
		{description: "newborn", dob: fixedNow.AddDate(0, 0, -12), expected: "12 days"},
		{description: "one day", dob: fixedNow.AddDate(0, 0, -1), expected: "1 day"},
		{description: "months", dob: fixedNow.AddDate(0, -3, 0), expected: "3 months"},
		{description: "month not yet complete", dob: time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC), expected: "27 days"},
		{description: "year and months", dob: fixedNow.AddDate(-1, -2, 0), expected: "1 year 2 months"},
		{description: "whole years", dob: fixedNow.AddDate(-2, 0, 0), expected: "2 years"},
		{description: "future date", dob: fixedNow.AddDate(0, 0, 3), expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			require.Equal(t, tt.expected, formatAge(tt.dob, fixedNow))
		})
	}
}

func TestFormatRelative(t *testing.T) {
	tests := []struct {
		description string
		ago         time.Duration
		expected    string
	}{
		{description: "seconds", ago: 20 * time.Second, expected: "just now"},
		{description: "minutes", ago: 25 * time.Minute, expected: "25 min ago"},
		{description: "hours", ago: 3*time.Hour + 10*time.Minute, expected: "3 h ago"},
		{description: "one day", ago: 30 * time.Hour, expected: "1 day ago"},
		{description: "days", ago: 50 * time.Hour, expected: "2 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			require.Equal(t, tt.expected, formatRelative(fixedNow.Add(-tt.ago), fixedNow))
		})
	}
}

func TestRender(t *testing.T) {
	req := require.New(t)
	dob := fixedNow.AddDate(0, -4, 0)

	text := babyContext{
		profile: &model.Profile{UserID: "user-1", BabyName: " Mia ", BabyDOB: &dob},
		events: []model.CareEvent{
			{Type: model.EventFeeding, CreatedAt: fixedNow.Add(-25 * time.Minute)},
			{Type: model.EventSleep, CreatedAt: fixedNow.Add(-3 * time.Hour)},
		},
		cries: []model.Cry{{Type: model.CryHunger}, {Type: model.CrySleep}},
	}.render(fixedNow)

	req.Contains(text, "Baby name: Mia.")
	req.Contains(text, "Age: 4 months.")
	req.Contains(text, "Recent events: feeding (25 min ago), sleep (3 h ago).")
	req.Contains(text, "Recent cries: Hunger, Sleep.")

	empty := babyContext{}.render(fixedNow)
	req.Equal("Baby name: Baby.\n", empty)
}

func TestReplyLanguage(t *testing.T) {
	tests := []struct {
		description string
		profile     *model.Profile
		message     string
		expected    string
	}{
		{
			description: "profile language wins",
			profile:     &model.Profile{Language: "ru-RU"},
			message:     "My baby keeps waking up every hour at night, what should I do?",
			expected:    "ru",
		},
		{
			description: "detected from message",
			message:     "Mi bebé no quiere dormir por la noche y llora mucho, ¿qué puedo hacer para ayudarle?",
			expected:    "es",
		},
		{
			description: "unsupported profile language falls through to detection",
			profile:     &model.Profile{Language: "xx"},
			message:     "Mi bebé no quiere dormir por la noche y llora mucho, ¿qué puedo hacer para ayudarle?",
			expected:    "es",
		},
		{
			description: "undetectable message defaults to English",
			message:     "???",
			expected:    model.DefaultLanguage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			require.Equal(t, tt.expected, replyLanguage(tt.profile, tt.message))
		})
	}
}

func TestAsk(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	dob := fixedNow.AddDate(0, -3, 0)
	req.NoError(f.store.UpsertProfile(ctx, &model.Profile{UserID: parent.UserID, BabyName: "Mia", BabyDOB: &dob, Language: "en"}))
	req.NoError(f.store.InsertEvent(ctx, &model.CareEvent{UserID: parent.UserID, Type: model.EventFeeding, CreatedAt: fixedNow.Add(-40 * time.Minute)}))
	req.NoError(f.store.InsertCry(ctx, model.NewCry(parent.UserID, model.CryClassification{DetectedType: model.CryHunger, Confidence: 0.8}, "Neh", "en", false, fixedNow.Add(-time.Hour))))
	// someone else's data never reaches the prompt
	req.NoError(f.store.InsertEvent(ctx, &model.CareEvent{UserID: "user-2", Type: model.EventBath, CreatedAt: fixedNow}))

	f.llm.EXPECT().
		Reply(gomock.Any(), gomock.Any(), gomock.Len(0), "Why does she cry after feeding?").
		DoAndReturn(func(_ context.Context, systemPrompt string, _ []ai.MentorMessage, _ string) (*ai.Completion, error) {
			req.Contains(systemPrompt, "Baby name: Mia.")
			req.Contains(systemPrompt, "Age: 3 months.")
			req.Contains(systemPrompt, "feeding (40 min ago)")
			req.Contains(systemPrompt, "Recent cries: Hunger.")
			req.NotContains(systemPrompt, "bath")
			req.Contains(systemPrompt, "English (en)")
			return &ai.Completion{Content: "  It may be gas. Try burping her.  ", TotalTokens: 90}, nil
		})

	reply, err := f.service.Ask(ctx, parent, "  Why does she cry after feeding?  ")
	req.NoError(err)
	req.Equal("It may be gas. Try burping her.", reply.Response)
	req.Equal("en", reply.Language)

	session, err := f.store.LatestSession(ctx, parent.UserID)
	req.NoError(err)
	req.Equal(session.ID, reply.SessionID)

	msgs, err := f.store.ListMessages(ctx, parent.UserID, session.ID, 10)
	req.NoError(err)
	req.Len(msgs, 2)
	req.Equal(model.RoleUser, msgs[0].Role)
	req.Equal("Why does she cry after feeding?", msgs[0].Content)
	req.Equal(model.RoleAssistant, msgs[1].Role)
	req.Equal(reply.Response, msgs[1].Content)

	logs := f.auditLogs()
	req.Len(logs, 1)
	req.Equal(model.FunctionAIMentor, logs[0].FunctionName)
	req.NotNil(logs[0].TokenUsage)
	req.Equal(90, *logs[0].TokenUsage)
	req.Nil(logs[0].Error)
}

func TestAskSendsHistory(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.store.CreateSession(ctx, parent.UserID)
	req.NoError(err)
	for i := 0; i < 14; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		req.NoError(f.store.InsertMessage(ctx, parent.UserID, &model.ChatMessage{
			SessionID: session.ID,
			Role:      role,
			Content:   strings.Repeat("x", i+1),
			CreatedAt: fixedNow.Add(time.Duration(i-20) * time.Minute),
		}))
	}

	f.llm.EXPECT().
		Reply(gomock.Any(), gomock.Any(), gomock.Any(), "And at night?").
		DoAndReturn(func(_ context.Context, _ string, history []ai.MentorMessage, _ string) (*ai.Completion, error) {
			req.Len(history, DefaultHistoryLimit)
			// oldest first, ending with the newest stored turn
			req.Equal(strings.Repeat("x", 5), history[0].Content)
			req.Equal(strings.Repeat("x", 14), history[len(history)-1].Content)
			req.Equal(model.RoleAssistant, history[len(history)-1].Role)
			return &ai.Completion{Content: "Keep the room dark.", TotalTokens: 40}, nil
		})

	reply, err := f.service.Ask(ctx, parent, "And at night?")
	req.NoError(err)
	req.Equal(session.ID, reply.SessionID)
}

func TestAskCapsReply(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	long := strings.Repeat("спокойно ", 100)
	f.llm.EXPECT().Reply(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&ai.Completion{Content: long, TotalTokens: 250}, nil)

	reply, err := f.service.Ask(context.Background(), parent, "Как успокоить малыша?")
	req.NoError(err)
	req.Equal(DefaultMaxReplyChars, len([]rune(reply.Response)))
}

func TestAskRejections(t *testing.T) {
	tests := []struct {
		description string
		caller      auth.AuthContext
		message     string
		expectedErr error
	}{
		{description: "anonymous", caller: auth.AuthContext{}, message: "hello", expectedErr: auth.ErrUnauthenticated},
		{description: "blank message", caller: parent, message: "   ", expectedErr: ErrEmptyMessage},
		{description: "message too long", caller: parent, message: strings.Repeat("a", MaxMessageChars+1), expectedErr: ErrMessageTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t)

			reply, err := f.service.Ask(context.Background(), tt.caller, tt.message)
			req.ErrorIs(err, tt.expectedErr)
			req.Nil(reply)
			req.Empty(f.auditLogs())
		})
	}
}

func TestAskProviderFailure(t *testing.T) {
	tests := []struct {
		description string
		completion  *ai.Completion
		err         error
		expectedErr error
	}{
		{
			description: "provider error",
			err:         &ai.ProviderError{Operation: "mentor", StatusCode: 500, Message: "upstream down"},
		},
		{
			description: "empty completion",
			completion:  &ai.Completion{Content: "   "},
			expectedErr: ErrEmptyCompletion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t)
			f.llm.EXPECT().Reply(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(tt.completion, tt.err)

			reply, err := f.service.Ask(context.Background(), parent, "Is this normal?")
			req.Error(err)
			req.Nil(reply)
			if tt.expectedErr != nil {
				req.ErrorIs(err, tt.expectedErr)
			}
			var pe *ai.ProviderError
			if tt.err != nil {
				req.True(errors.As(err, &pe))
			}

			logs := f.auditLogs()
			req.Len(logs, 1)
			req.Equal(model.FunctionAIMentor, logs[0].FunctionName)
			req.NotNil(logs[0].Error)

			session, err := f.store.LatestSession(context.Background(), parent.UserID)
			req.NoError(err)
			msgs, err := f.store.ListMessages(context.Background(), parent.UserID, session.ID, 10)
			req.NoError(err)
			req.Empty(msgs)
		})
	}
}
