package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"babyzen/internal/logging"
	"babyzen/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleSpeechEndpoint = "https://speech.googleapis.com/v1"
	googleScope          = "https://www.googleapis.com/auth/cloud-platform"
	phraseBoost          = 15
)

// GoogleProvider implements STT using Google Cloud Speech-to-Text REST API
type GoogleProvider struct {
	projectID  string
	apiKey     string
	endpoint   string
	httpClient *http.Client
	useAPIKey  bool // true if using API key, false if using service account
	log        zerolog.Logger
}

// IsGoogleAPIKey reports whether keyData looks like an API key rather than
// service account credentials
func IsGoogleAPIKey(keyData string) bool {
	keyData = strings.TrimSpace(keyData)
	return len(keyData) == 39 && strings.HasPrefix(keyData, "AIzaSy")
}

// NewGoogleProvider creates a new Google STT provider
// keyData can be either:
//   - An API key (39 characters, typically starts with "AIzaSy")
//   - A file path to a JSON key file (e.g., "./keys/google-service-account.json")
//   - A JSON string containing the service account credentials
//   - Empty, to use application default credentials
func NewGoogleProvider(ctx context.Context, projectID, keyData string, log zerolog.Logger) (*GoogleProvider, error) {
	log = logging.Component(log, "google_stt")
	keyDataTrimmed := strings.TrimSpace(keyData)

	if IsGoogleAPIKey(keyDataTrimmed) {
		log.Info().Msg("[Google STT] Using API key authentication")
		return &GoogleProvider{
			projectID:  projectID,
			apiKey:     keyDataTrimmed,
			endpoint:   googleSpeechEndpoint,
			httpClient: &http.Client{Timeout: 90 * time.Second},
			useAPIKey:  true,
			log:        log,
		}, nil
	}

	var client *http.Client
	if keyDataTrimmed == "" {
		creds, err := google.FindDefaultCredentials(ctx, googleScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w. Please set GOOGLE_STT_KEY_FILE", err)
		}
		client = oauth2.NewClient(ctx, creds.TokenSource)
	} else {
		var jsonData []byte
		if strings.HasPrefix(keyDataTrimmed, "{") {
			log.Info().Msg("[Google STT] Using JSON credentials from environment variable")
			jsonData = []byte(keyDataTrimmed)
		} else {
			log.Info().Str("path", keyDataTrimmed).Msg("[Google STT] Reading key file")
			var err error
			jsonData, err = os.ReadFile(keyDataTrimmed)
			if err != nil {
				return nil, fmt.Errorf("failed to read key file '%s': %w", keyDataTrimmed, err)
			}
		}

		creds, err := google.CredentialsFromJSON(ctx, jsonData, googleScope)
		if err != nil {
			return nil, fmt.Errorf("failed to create credentials from JSON: %w", err)
		}
		client = oauth2.NewClient(ctx, creds.TokenSource)
	}

	return &GoogleProvider{
		projectID:  projectID,
		endpoint:   googleSpeechEndpoint,
		httpClient: client,
		log:        log,
	}, nil
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return "google"
}

// GoogleSTTRequest represents Google Speech-to-Text API request
type GoogleSTTRequest struct {
	Config GoogleSTTConfig `json:"config"`
	Audio  GoogleSTTAudio  `json:"audio"`
}

// GoogleSTTConfig represents recognition config
type GoogleSTTConfig struct {
	Encoding        string                 `json:"encoding,omitempty"`
	SampleRateHertz int                    `json:"sampleRateHertz,omitempty"`
	LanguageCode    string                 `json:"languageCode"`
	SpeechContexts  []GoogleSpeechContext  `json:"speechContexts,omitempty"`
	Model           string                 `json:"model,omitempty"`
	Metadata        *GoogleRecognitionMeta `json:"metadata,omitempty"`
}

// GoogleSpeechContext carries phrase hints for the recognizer
type GoogleSpeechContext struct {
	Phrases []string `json:"phrases"`
	Boost   float64  `json:"boost,omitempty"`
}

// GoogleRecognitionMeta describes the recording to the recognizer
type GoogleRecognitionMeta struct {
	InteractionType     string `json:"interactionType,omitempty"`
	RecordingDeviceType string `json:"recordingDeviceType,omitempty"`
}

// GoogleSTTAudio represents audio data
type GoogleSTTAudio struct {
	Content string `json:"content"` // Base64 encoded
}

// GoogleSTTResponse represents Google Speech-to-Text API response
type GoogleSTTResponse struct {
	Results []GoogleSTTResult `json:"results"`
	Error   *GoogleSTTError   `json:"error,omitempty"`
}

// GoogleSTTResult represents a recognition result
type GoogleSTTResult struct {
	Alternatives []GoogleSTTAlternative `json:"alternatives"`
}

// GoogleSTTAlternative represents a transcript alternative
type GoogleSTTAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// GoogleSTTError represents an API error
type GoogleSTTError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type googleErrorEnvelope struct {
	Error *GoogleSTTError `json:"error"`
}

// Transcribe transcribes the audio using Google Cloud Speech-to-Text REST API
func (p *GoogleProvider) Transcribe(ctx context.Context, audio model.RawAudio) (*Result, error) {
	startTime := time.Now()

	fileExt := filepath.Ext(audio.Filename)
	p.log.Debug().
		Str("filename", audio.Filename).
		Int("size", audio.Size()).
		Str("extension", fileExt).
		Msg("[Google STT] Processing audio")

	encoding, sampleRate := getGoogleAudioConfig(fileExt)

	reqBody := GoogleSTTRequest{
		Config: GoogleSTTConfig{
			Encoding:        encoding,
			SampleRateHertz: sampleRate,
			LanguageCode:    "en-US",
			SpeechContexts:  []GoogleSpeechContext{{Phrases: CryPhonemes, Boost: phraseBoost}},
			Model:           "default",
			Metadata: &GoogleRecognitionMeta{
				InteractionType:     "DICTATION",
				RecordingDeviceType: "SMARTPHONE",
			},
		},
		Audio: GoogleSTTAudio{
			Content: base64.StdEncoding.EncodeToString(audio.Data),
		},
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var apiURL string
	if p.useAPIKey {
		apiURL = p.endpoint + "/speech:recognize"
	} else {
		apiURL = fmt.Sprintf("%s/projects/%s:recognize", p.endpoint, p.projectID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.useAPIKey {
		req.Header.Set("X-Goog-Api-Key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.log.Error().Err(redactKey(err, p.apiKey)).Msg("[Google STT] HTTP error")
		return nil, &ProviderError{Provider: p.Name(), Message: unreachableMessage, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}
	p.log.Debug().Str("preview", logging.Truncate(string(body), 500)).Msg("[Google STT] Response preview")

	if resp.StatusCode != http.StatusOK {
		var envelope googleErrorEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
			p.log.Error().Int("code", envelope.Error.Code).Str("status", envelope.Error.Status).
				Msg("[Google STT] API error: " + envelope.Error.Message)
			return nil, &ProviderError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: envelope.Error.Message}
		}
		p.log.Error().Int("status", resp.StatusCode).Str("preview", logging.Truncate(string(body), 200)).
			Msg("[Google STT] Unexpected error response")
		return nil, &ProviderError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: fmt.Sprintf("unexpected response (status %d)", resp.StatusCode)}
	}

	var sttResp GoogleSTTResponse
	if err := json.Unmarshal(body, &sttResp); err != nil {
		return nil, &ProviderError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: "failed to parse response", Err: err}
	}
	if sttResp.Error != nil {
		return nil, &ProviderError{Provider: p.Name(), StatusCode: sttResp.Error.Code, Message: sttResp.Error.Message}
	}

	// No results means no recognizable speech; the cry is still classified
	var parts []string
	var confidence float64
	for i, r := range sttResp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(r.Alternatives[0].Transcript))
		if i == 0 {
			confidence = r.Alternatives[0].Confidence
		}
	}
	transcript := strings.TrimSpace(strings.Join(parts, " "))

	p.log.Info().
		Float64("confidence", confidence).
		Int("length", len(transcript)).
		Dur("duration", time.Since(startTime)).
		Msg("[Google STT] Transcription successful")

	return &Result{
		Transcript:  transcript,
		Confidence:  confidence,
		Provider:    p.Name(),
		RawResponse: string(body),
	}, nil
}

// getGoogleAudioConfig determines encoding and sample rate based on file extension.
// Containers the recognizer can inspect itself get no explicit encoding.
func getGoogleAudioConfig(fileExt string) (string, int) {
	switch strings.ToLower(fileExt) {
	case ".wav":
		return "LINEAR16", 16000
	case ".mp3":
		return "MP3", 44100
	case ".ogg", ".oga":
		return "OGG_OPUS", 48000
	case ".webm":
		return "WEBM_OPUS", 48000
	case ".flac":
		return "FLAC", 0
	default:
		return "", 0
	}
}

// redactKey strips the API key from an error before it is logged
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
