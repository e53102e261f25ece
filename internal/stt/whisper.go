package stt

import (
	"bytes"
	"context"
	"time"

	"babyzen/internal/logging"
	"babyzen/internal/model"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// WhisperProvider implements STT using the OpenAI audio transcription endpoint
type WhisperProvider struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewWhisperProvider creates a Whisper provider. baseURL may be empty for the public API.
func NewWhisperProvider(apiKey, baseURL, sttModel string, log zerolog.Logger) *WhisperProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if sttModel == "" {
		sttModel = openai.Whisper1
	}
	return &WhisperProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  sttModel,
		log:    logging.Component(log, "whisper_stt"),
	}
}

// Name returns the provider name
func (p *WhisperProvider) Name() string {
	return "whisper"
}

// Transcribe sends the audio with the phoneme prompt. No language is passed so
// the recognizer does not force the cry sounds into words of one language.
func (p *WhisperProvider) Transcribe(ctx context.Context, audio model.RawAudio) (*Result, error) {
	startTime := time.Now()
	p.log.Debug().
		Str("filename", audio.Filename).
		Str("mime_type", audio.MimeType).
		Int("size", audio.Size()).
		Msg("[Whisper STT] Processing audio")

	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.model,
		FilePath: audio.Filename,
		Reader:   bytes.NewReader(audio.Data),
		Prompt:   CryPhonemePrompt,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		pe := fromOpenAI(p.Name(), err)
		p.log.Error().Err(err).Int("status", pe.StatusCode).Str("error", pe.Message).Msg("[Whisper STT] Transcription failed")
		return nil, pe
	}

	p.log.Info().
		Int("length", len(resp.Text)).
		Dur("duration", time.Since(startTime)).
		Msg("[Whisper STT] Transcription successful")

	return &Result{
		Transcript:  resp.Text,
		Provider:    p.Name(),
		RawResponse: resp.Text,
	}, nil
}
