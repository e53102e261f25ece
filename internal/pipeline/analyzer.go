// Package pipeline runs one cry analysis request: quota check, transcription,
// classification, validation, then the quota increment, persistence and audit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"babyzen/internal/ai"
	"babyzen/internal/audio"
	"babyzen/internal/auth"
	"babyzen/internal/logging"
	"babyzen/internal/metrics"
	"babyzen/internal/model"
	"babyzen/internal/ratelimit"
	"babyzen/internal/repository"
	"babyzen/internal/stt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultProviderTimeout = 60 * time.Second
	persistTimeout         = 5 * time.Second
)

// Auditor accepts audit entries without blocking
type Auditor interface {
	Record(entry model.AuditLogEntry)
}

// Deps are the collaborators of the analyzer
type Deps struct {
	Limiter    ratelimit.Limiter
	STT        stt.Provider
	Classifier ai.Classifier
	Cries      repository.CryRepository
	Audit      Auditor
	Log        zerolog.Logger
}

// Options tune the analyzer; zero values take defaults
type Options struct {
	DailyQuota      int
	ProviderTimeout time.Duration
	Now             func() time.Time
}

// Outcome is a successful analysis
type Outcome struct {
	Classification model.CryClassification
	Transcript     string
	CryID          uuid.UUID
	Fallback       bool
	ScansToday     int
}

// Analyzer orchestrates POST /analyze-cry
type Analyzer struct {
	deps            Deps
	quota           int
	providerTimeout time.Duration
	now             func() time.Time
	log             zerolog.Logger
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(deps Deps, opts Options) *Analyzer {
	if opts.DailyQuota <= 0 {
		opts.DailyQuota = ratelimit.DefaultDailyQuota
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = defaultProviderTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Analyzer{
		deps:            deps,
		quota:           opts.DailyQuota,
		providerTimeout: opts.ProviderTimeout,
		now:             opts.Now,
		log:             logging.Component(deps.Log, "analyze"),
	}
}

// AnalyzeUpload normalizes a parsed multipart body and runs Analyze
func (a *Analyzer) AnalyzeUpload(ctx context.Context, ac auth.AuthContext, form *audio.Form) (*Outcome, *PipelineError) {
	if ac.UserID == "" {
		return nil, a.reject(&PipelineError{Kind: KindAuth, Message: "Unauthorized"})
	}

	part, err := form.AudioPart(audio.FieldFile)
	if err != nil {
		a.log.Warn().Err(err).Strs("received", form.Received()).Msg("[Analyze] Rejected upload")
		return nil, a.reject(Malformed(err))
	}

	return a.Analyze(ctx, ac, model.CryAnalysisRequest{
		Audio:    audio.Normalize(part),
		Language: form.Value(audio.FieldLanguage),
	})
}

// Analyze runs the pipeline for an already normalized request
func (a *Analyzer) Analyze(ctx context.Context, ac auth.AuthContext, req model.CryAnalysisRequest) (*Outcome, *PipelineError) {
	if ac.UserID == "" {
		return nil, a.reject(&PipelineError{Kind: KindAuth, Message: "Unauthorized"})
	}
	if req.Audio.Size() == 0 {
		return nil, a.reject(Malformed(audio.ErrEmptyAudio))
	}

	language := model.NormalizeLanguage(req.Language)
	day := ratelimit.Day(a.now())
	log := a.log.With().Str("user_id", ac.UserID).Str("language", language).Logger()

	usage, err := a.deps.Limiter.Check(ctx, ac.UserID, day)
	if err != nil {
		log.Error().Err(err).Msg("[Analyze] Quota check failed")
		return nil, a.reject(&PipelineError{Kind: KindInternal, Message: "Could not verify daily limit", Err: err})
	}
	if ratelimit.Exceeded(usage, a.quota) {
		log.Info().Int("count", usage.Count).Int("quota", a.quota).Msg("[Analyze] Daily limit reached")
		return nil, a.reject(&PipelineError{Kind: KindQuotaExceeded, Message: "Daily limit reached"})
	}

	start := a.now()
	log.Info().
		Str("filename", req.Audio.Filename).
		Str("mime_type", req.Audio.MimeType).
		Int("size", req.Audio.Size()).
		Msg("[Analyze] Processing audio")

	transcript, err := a.transcribe(ctx, req.Audio)
	if err != nil {
		return nil, a.providerFailure(log, ac.UserID, start, err)
	}

	completion, err := a.classify(ctx, transcript, language)
	if err != nil {
		return nil, a.providerFailure(log, ac.UserID, start, err)
	}

	classification, verr := ai.ParseAndValidate(completion.Content)
	fallback := verr != nil
	if fallback {
		metrics.ClassificationFallbacks.Inc()
		log.Error().Err(verr).Str("raw", logging.Truncate(completion.Content, 500)).
			Msg("[Analyze] Model output replaced by fallback")
	}

	// The response is already decided; the writes below must not depend on
	// the client still being connected.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	var auditErrs []string
	if verr != nil {
		auditErrs = append(auditErrs, verr.Error())
	}

	count, err := a.deps.Limiter.Increment(persistCtx, ac.UserID, day)
	if err != nil {
		log.Error().Err(err).Msg("[Analyze] Quota increment failed")
		auditErrs = append(auditErrs, "quota increment failed: "+err.Error())
	}

	cry := model.NewCry(ac.UserID, classification, transcript, language, fallback, a.now())
	if err := a.deps.Cries.InsertCry(persistCtx, cry); err != nil {
		log.Error().Err(err).Msg("[Analyze] Failed to store cry")
	}

	a.deps.Audit.Record(model.NewAuditLogEntry(
		ac.UserID, model.FunctionAnalyzeCry, a.now().Sub(start), completion.TotalTokens, strings.Join(auditErrs, "; "),
	))

	outcome := "success"
	if fallback {
		outcome = "fallback"
	}
	metrics.PipelineOutcomes.WithLabelValues(outcome).Inc()

	log.Info().
		Str("detected_type", string(classification.DetectedType)).
		Float64("confidence", classification.Confidence).
		Bool("fallback", fallback).
		Int("scans_today", count).
		Msg("[Analyze] Analysis complete")

	return &Outcome{
		Classification: classification,
		Transcript:     transcript,
		CryID:          cry.ID,
		Fallback:       fallback,
		ScansToday:     count,
	}, nil
}

func (a *Analyzer) transcribe(ctx context.Context, raw model.RawAudio) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	defer cancel()

	start := time.Now()
	res, err := a.deps.STT.Transcribe(ctx, raw)
	metrics.ObserveProvider(a.deps.STT.Name(), start)
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", nil
	}
	return strings.TrimSpace(res.Transcript), nil
}

func (a *Analyzer) classify(ctx context.Context, transcript, language string) (*ai.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	defer cancel()

	start := time.Now()
	completion, err := a.deps.Classifier.Classify(ctx, transcript, language)
	metrics.ObserveProvider("classifier", start)
	if err != nil {
		return nil, err
	}
	if completion == nil {
		return nil, errors.New("classifier returned no completion")
	}
	return completion, nil
}

// providerFailure audits an upstream failure and builds the caller error
func (a *Analyzer) providerFailure(log zerolog.Logger, userID string, start time.Time, err error) *PipelineError {
	message := providerMessage(err)
	log.Error().Err(err).Msg("[Analyze] Provider call failed")

	a.deps.Audit.Record(model.NewAuditLogEntry(userID, model.FunctionAnalyzeCry, a.now().Sub(start), 0, message))
	return a.reject(&PipelineError{Kind: KindProvider, Message: message, Err: err})
}

func providerMessage(err error) string {
	var sttErr *stt.ProviderError
	var aiErr *ai.ProviderError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Analysis timed out, please try again"
	case errors.As(err, &sttErr):
		return fmt.Sprintf("Transcription failed: %s", sttErr.Message)
	case errors.As(err, &aiErr):
		return fmt.Sprintf("Classification failed: %s", aiErr.Message)
	default:
		return "Analysis failed, please try again"
	}
}

func (a *Analyzer) reject(pe *PipelineError) *PipelineError {
	metrics.PipelineOutcomes.WithLabelValues(string(pe.Kind)).Inc()
	return pe
}
