package pipeline

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"babyzen/internal/ai"
	"babyzen/internal/audio"
	"babyzen/internal/audit"
	"babyzen/internal/auth"
	"babyzen/internal/mocks"
	"babyzen/internal/model"
	"babyzen/internal/ratelimit"
	"babyzen/internal/storage"
	"babyzen/internal/stt"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const hungerRU = `{"detected_type":"Hunger","confidence":0.87,"reasoning":"Я слышу звук «Neh» — малыш голоден.","advice_key":"feed_baby","soothe_sound":"lullaby"}`

var (
	fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	today    = "2026-10-17"
	caller   = auth.AuthContext{UserID: "user-1", Role: auth.RoleAuthenticated}
	cryAudio = model.RawAudio{Data: []byte("m4a-bytes"), Filename: "audio.m4a", MimeType: "audio/mp4"}
)

type fixture struct {
	limiter    *mocks.MockLimiter
	stt        *mocks.MockProvider
	classifier *mocks.MockClassifier
	store      *storage.MemoryStore
	recorder   *audit.Recorder
	analyzer   *Analyzer
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		limiter:    mocks.NewMockLimiter(ctrl),
		stt:        mocks.NewMockProvider(ctrl),
		classifier: mocks.NewMockClassifier(ctrl),
		store:      storage.NewMemoryStore(),
	}
	f.stt.EXPECT().Name().Return("whisper").AnyTimes()
	f.recorder = audit.NewRecorder(f.store, time.Second, zerolog.Nop())
	f.analyzer = NewAnalyzer(Deps{
		Limiter:    f.limiter,
		STT:        f.stt,
		Classifier: f.classifier,
		Cries:      f.store,
		Audit:      f.recorder,
		Log:        zerolog.Nop(),
	}, Options{
		ProviderTimeout: timeout,
		Now:             func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) auditLogs() []model.AuditLogEntry {
	f.recorder.Wait()
	return f.store.AuditLogs()
}

func (f *fixture) cries(t *testing.T) []model.Cry {
	cries, err := f.store.ListCries(context.Background(), caller.UserID, 10)
	require.NoError(t, err)
	return cries
}

func TestAnalyzeEndToEnd(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Second)

	gomock.InOrder(
		f.limiter.EXPECT().Check(gomock.Any(), "user-1", today).Return(ratelimit.Usage{Count: 0, Exists: false}, nil),
		f.stt.EXPECT().Transcribe(gomock.Any(), cryAudio).Return(&stt.Result{Transcript: "Neh neh neh", Provider: "whisper"}, nil),
		f.classifier.EXPECT().Classify(gomock.Any(), "Neh neh neh", "ru").Return(&ai.Completion{Content: hungerRU, TotalTokens: 120}, nil),
		f.limiter.EXPECT().Increment(gomock.Any(), "user-1", today).Return(1, nil).Times(1),
	)

	out, perr := f.analyzer.Analyze(context.Background(), caller, model.CryAnalysisRequest{Audio: cryAudio, Language: "ru"})
	req.Nil(perr)
	req.False(out.Fallback)
	req.Equal(model.CryHunger, out.Classification.DetectedType)
	req.Equal(0.87, out.Classification.Confidence)
	req.Equal("Я слышу звук «Neh» — малыш голоден.", out.Classification.Reasoning)
	req.Equal(model.AdviceFeedBaby, out.Classification.AdviceKey)
	req.Equal(model.SoundLullaby, out.Classification.SootheSound)
	req.Equal(1, out.ScansToday)

	logs := f.auditLogs()
	req.Len(logs, 1)
	req.Equal(model.FunctionAnalyzeCry, logs[0].FunctionName)
	req.Equal("user-1", logs[0].UserID)
	req.Nil(logs[0].Error)
	req.NotNil(logs[0].TokenUsage)
	req.Equal(120, *logs[0].TokenUsage)

	cries := f.cries(t)
	req.Len(cries, 1)
	req.Equal(out.CryID, cries[0].ID)
	req.Equal("Neh neh neh", cries[0].Transcript)
	req.Equal("ru", cries[0].Language)
}

func TestAnalyzeNormalizesLanguage(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Second)

	f.limiter.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).Return(ratelimit.Usage{Exists: true}, nil)
	f.stt.EXPECT().Transcribe(gomock.Any(), gomock.Any()).Return(&stt.Result{Transcript: "  Owh  "}, nil)
	f.classifier.EXPECT().Classify(gomock.Any(), "Owh", "pt").Return(&ai.Completion{Content: hungerRU}, nil)
	f.limiter.EXPECT().Increment(gomock.Any(), gomock.Any(), gomock.Any()).Return(4, nil)

	_, perr := f.analyzer.Analyze(context.Background(), caller, model.CryAnalysisRequest{Audio: cryAudio, Language: "pt-BR"})
	req.Nil(perr)
}

func TestAnalyzeQuotaBlocksProviders(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Second)

	// no Transcribe, Classify or Increment expectations: any call fails the test
	f.limiter.EXPECT().Check(gomock.Any(), "user-1", today).Return(ratelimit.Usage{Count: 10, Exists: true}, nil)

	out, perr := f.analyzer.Analyze(context.Background(), caller, model.CryAnalysisRequest{Audio: cryAudio})
	req.Nil(out)
	req.NotNil(perr)
	req.Equal(KindQuotaExceeded, perr.Kind)
	req.Empty(f.auditLogs())
	req.Empty(f.cries(t))
}

func TestAnalyzeAuthPrecedesCost(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Second)

	out, perr := f.analyzer.Analyze(context.Background(), auth.AuthContext{}, model.CryAnalysisRequest{Audio: cryAudio})
	req.Nil(out)
	req.Equal(KindAuth, perr.Kind)

	_, perr = f.analyzer.AnalyzeUpload(context.Background(), auth.AuthContext{}, nil)
	req.Equal(KindAuth, perr.Kind)
	req.Empty(f.auditLogs())
}

func TestAnalyzeLimiterFailure(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Second)

	f.limiter.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).Return(ratelimit.Usage{}, errors.New("db down"))

	_, perr := f.analyzer.Analyze(context.Background(), caller, model.CryAnalysisRequest{Audio: cryAudio})
	req.Equal(KindInternal, perr.Kind)
	req.Empty(f.auditLogs())
}

func TestAnalyzeProviderFailures(t *testing.T) {
	tests := []struct {
		description string
		setup       func(f *fixture)
		wantMessage string
	}{
		{
			description: "transcription rejected",
			setup: func(f *fixture) {
				f.stt.EXPECT().Transcribe(gomock.Any(), gomock.Any()).
					Return(nil, &stt.ProviderError{Provider: "whisper", StatusCode: http.StatusBadRequest, Message: "Invalid file format."})
			},
			wantMessage: "Transcription failed: Invalid file format.",
		},
		{
			description: "classification rejected",
			setup: func(f *fixture) {
				f.stt.EXPECT().Transcribe(gomock.Any(), gomock.Any()).Return(&stt.Result{Transcript: "Heh"}, nil)
				f.classifier.EXPECT().Classify(gomock.Any(), "Heh", "en").
					Return(nil, &ai.ProviderError{Operation: "classification", StatusCode: http.StatusTooManyRequests, Message: "Rate limit reached"})
			},
			wantMessage: "Classification failed: Rate limit reached",
		},
		{
			description: "transcription hangs",
			setup: func(f *fixture) {
				f.stt.EXPECT().Transcribe(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, _ model.RawAudio) (*stt.Result, error) {
						<-ctx.Done()
						return nil, ctx.Err()
					})
			},
			wantMessage: "Analysis timed out, please try again",
		},
		{
			description: "untyped provider error is not echoed",
			setup: func(f *fixture) {
				f.stt.EXPECT().Transcribe(gomock.Any(), gomock.Any()).
					Return(nil, errors.New(`Post "https://speech.example/recognize?key=secret-key": connection refused`))
			},
			wantMessage: "Analysis failed, please try again",
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t, 50*time.Millisecond)

			f.limiter.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).Return(ratelimit.Usage{Count: 3, Exists: true}, nil)
			tt.setup(f)

			out, perr := f.analyzer.Analyze(context.Background(), caller, model.CryAnalysisRequest{Audio: cryAudio})
			req.Nil(out)
			req.Equal(KindProvider, perr.Kind)
			req.Equal(tt.wantMessage, perr.Message)

			logs := f.auditLogs()
			req.Len(logs, 1)
			req.NotNil(logs[0].Error)
			req.Equal(tt.wantMessage, *logs[0].Error)
			req.Empty(f.cries(t))
		})
	}
}

func TestAnalyzeFallbackStillCounts(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Second)

	f.limiter.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).Return(ratelimit.Usage{Count: 2, Exists: true}, nil)
	f.stt.EXPECT().Transcribe(gomock.Any(), gomock.Any()).Return(&stt.Result{}, nil)
	f.classifier.EXPECT().Classify(gomock.Any(), "", "en").Return(&ai.Completion{Content: "not json at all", TotalTokens: 30}, nil)
	f.limiter.EXPECT().Increment(gomock.Any(), "user-1", today).Return(3, nil).Times(1)

	out, perr := f.analyzer.Analyze(context.Background(), caller, model.CryAnalysisRequest{Audio: cryAudio})
	req.Nil(perr)
	req.True(out.Fallback)
	req.Equal(ai.FallbackClassification, out.Classification)

	logs := f.auditLogs()
	req.Len(logs, 1)
	req.NotNil(logs[0].Error)
	req.Contains(*logs[0].Error, ai.ErrSchemaValidation.Error())
	req.Equal(30, *logs[0].TokenUsage)

	cries := f.cries(t)
	req.Len(cries, 1)
	req.True(cries[0].IsFallback)
}

func TestAnalyzeIncrementFailureIsAudited(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Second)

	f.limiter.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).Return(ratelimit.Usage{Exists: true}, nil)
	f.stt.EXPECT().Transcribe(gomock.Any(), gomock.Any()).Return(&stt.Result{Transcript: "Eairh"}, nil)
	f.classifier.EXPECT().Classify(gomock.Any(), gomock.Any(), gomock.Any()).Return(&ai.Completion{Content: hungerRU}, nil)
	f.limiter.EXPECT().Increment(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, errors.New("db down"))

	out, perr := f.analyzer.Analyze(context.Background(), caller, model.CryAnalysisRequest{Audio: cryAudio})
	req.Nil(perr)
	req.Equal(model.CryHunger, out.Classification.DetectedType)

	logs := f.auditLogs()
	req.Len(logs, 1)
	req.Contains(*logs[0].Error, "quota increment failed")
}

func TestAnalyzeUploadMalformed(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Second)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	req.NoError(w.WriteField("language", "ru"))
	req.NoError(w.WriteField("audio", "oops"))
	req.NoError(w.Close())

	form, err := audio.ReadForm(multipart.NewReader(&body, w.Boundary()), 0)
	req.NoError(err)

	out, perr := f.analyzer.AnalyzeUpload(context.Background(), caller, form)
	req.Nil(out)
	req.Equal(KindMalformed, perr.Kind)
	req.Equal("No file uploaded", perr.Message)
	req.Equal([]string{"audio", "language"}, perr.ReceivedParts)
	req.Empty(f.auditLogs())
}

func TestAnalyzeUploadUnnamedBlob(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Second)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreatePart(map[string][]string{"Content-Disposition": {`form-data; name="file"`}})
	req.NoError(err)
	_, err = part.Write([]byte{0x00, 0x01, 0x02, 0x03})
	req.NoError(err)
	req.NoError(w.WriteField("language", "de"))
	req.NoError(w.Close())

	form, err := audio.ReadForm(multipart.NewReader(&body, w.Boundary()), 0)
	req.NoError(err)

	want := model.RawAudio{Data: []byte{0x00, 0x01, 0x02, 0x03}, Filename: audio.DefaultBlobFilename, MimeType: audio.DefaultMimeType}
	f.limiter.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).Return(ratelimit.Usage{Exists: true}, nil)
	f.stt.EXPECT().Transcribe(gomock.Any(), want).Return(&stt.Result{Transcript: "Eh"}, nil)
	f.classifier.EXPECT().Classify(gomock.Any(), "Eh", "de").Return(&ai.Completion{Content: hungerRU}, nil)
	f.limiter.EXPECT().Increment(gomock.Any(), gomock.Any(), gomock.Any()).Return(1, nil)

	_, perr := f.analyzer.AnalyzeUpload(context.Background(), caller, form)
	req.Nil(perr)
}
