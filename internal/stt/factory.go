package stt

import (
	"context"
	"fmt"
	"strings"

	"babyzen/internal/config"

	"github.com/rs/zerolog"
)

// CreateProvider creates an STT provider based on configuration
func CreateProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Provider, error) {
	providerName := strings.ToLower(cfg.STTProvider)
	if providerName == "" {
		providerName = "whisper"
		log.Info().Msg("[STT Factory] STT_PROVIDER not set, defaulting to 'whisper'")
	}

	switch providerName {
	case "whisper":
		log.Info().Str("model", cfg.OpenAISTTModel).Msg("[STT Factory] Creating Whisper STT provider")
		return NewWhisperProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAISTTModel, log), nil
	case "google":
		return createGoogleProvider(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unsupported STT provider: %s. Supported: whisper, google", providerName)
	}
}

// createGoogleProvider creates a Google STT provider
// GOOGLE_STT_KEY_FILE can be either:
//   - An API key (39 characters, typically starts with "AIzaSy")
//   - A file path to a JSON key file (e.g., "./keys/google-service-account.json")
//   - A JSON string containing the service account credentials
func createGoogleProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Provider, error) {
	// Project ID is optional when using API key
	if !IsGoogleAPIKey(cfg.GoogleSTTKeyFile) && cfg.GoogleSTTProjectID == "" {
		return nil, fmt.Errorf("GOOGLE_STT_PROJECT_ID environment variable is required when using service account")
	}

	if IsGoogleAPIKey(cfg.GoogleSTTKeyFile) {
		log.Info().Msg("[STT Factory] Creating Google STT provider with API key")
	} else {
		log.Info().Str("project", cfg.GoogleSTTProjectID).Msg("[STT Factory] Creating Google STT provider")
	}
	return NewGoogleProvider(ctx, cfg.GoogleSTTProjectID, cfg.GoogleSTTKeyFile, log)
}
