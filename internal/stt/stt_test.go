package stt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"babyzen/internal/config"
	"babyzen/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testAudio = model.RawAudio{
	Data:     []byte("fake-m4a-bytes"),
	Filename: "audio.m4a",
	MimeType: "audio/mp4",
}

func TestWhisperSendsPhonemePrompt(t *testing.T) {
	req := require.New(t)

	var gotPrompt, gotModel, gotFilename, gotLanguage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotPrompt = r.FormValue("prompt")
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		if fh := r.MultipartForm.File["file"]; len(fh) > 0 {
			gotFilename = fh[0].Filename
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"Neh neh neh"}`)
	}))
	defer srv.Close()

	p := NewWhisperProvider("test-key", srv.URL+"/v1", "", zerolog.Nop())
	res, err := p.Transcribe(context.Background(), testAudio)
	req.NoError(err)
	req.Equal("Neh neh neh", res.Transcript)
	req.Equal("whisper", res.Provider)
	req.Equal(CryPhonemePrompt, gotPrompt)
	req.Equal("whisper-1", gotModel)
	req.Equal("audio.m4a", gotFilename)
	req.Empty(gotLanguage)
}

func TestWhisperEmptyTranscriptIsNotAnError(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":""}`)
	}))
	defer srv.Close()

	p := NewWhisperProvider("test-key", srv.URL+"/v1", "whisper-1", zerolog.Nop())
	res, err := p.Transcribe(context.Background(), testAudio)
	req.NoError(err)
	req.Empty(res.Transcript)
}

func TestWhisperProviderError(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid file format.","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	p := NewWhisperProvider("test-key", srv.URL+"/v1", "whisper-1", zerolog.Nop())
	_, err := p.Transcribe(context.Background(), testAudio)
	req.Error(err)

	var pe *ProviderError
	req.True(errors.As(err, &pe))
	req.Equal("whisper", pe.Provider)
	req.Equal(http.StatusBadRequest, pe.StatusCode)
	req.Equal("Invalid file format.", pe.Message)
}

func TestGoogleSendsPhraseHints(t *testing.T) {
	req := require.New(t)

	var got GoogleSTTRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"results":[{"alternatives":[{"transcript":" Neh neh ","confidence":0.8}]},{"alternatives":[{"transcript":"eh"}]}]}`)
	}))
	defer srv.Close()

	p, err := NewGoogleProvider(context.Background(), "", "AIzaSy"+strings.Repeat("x", 33), zerolog.Nop())
	req.NoError(err)
	p.endpoint = srv.URL

	res, err := p.Transcribe(context.Background(), testAudio)
	req.NoError(err)
	req.Equal("Neh neh eh", res.Transcript)
	req.InDelta(0.8, res.Confidence, 1e-9)

	req.Len(got.Config.SpeechContexts, 1)
	req.Equal(CryPhonemes, got.Config.SpeechContexts[0].Phrases)
	decoded, err := base64.StdEncoding.DecodeString(got.Audio.Content)
	req.NoError(err)
	req.Equal(testAudio.Data, decoded)
}

func TestGoogleNoResultsIsEmptyTranscript(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	p, err := NewGoogleProvider(context.Background(), "", "AIzaSy"+strings.Repeat("x", 33), zerolog.Nop())
	req.NoError(err)
	p.endpoint = srv.URL

	res, err := p.Transcribe(context.Background(), testAudio)
	req.NoError(err)
	req.Empty(res.Transcript)
}

func TestGoogleAPIError(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	}))
	defer srv.Close()

	p, err := NewGoogleProvider(context.Background(), "", "AIzaSy"+strings.Repeat("x", 33), zerolog.Nop())
	req.NoError(err)
	p.endpoint = srv.URL

	_, err = p.Transcribe(context.Background(), testAudio)
	var pe *ProviderError
	req.True(errors.As(err, &pe))
	req.Equal(http.StatusForbidden, pe.StatusCode)
	req.Equal("API key not valid", pe.Message)
}

func TestGoogleSendsKeyInHeader(t *testing.T) {
	req := require.New(t)
	key := "AIzaSy" + strings.Repeat("k", 33)

	var gotKey, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Goog-Api-Key")
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	p, err := NewGoogleProvider(context.Background(), "", key, zerolog.Nop())
	req.NoError(err)
	p.endpoint = srv.URL

	_, err = p.Transcribe(context.Background(), testAudio)
	req.NoError(err)
	req.Equal(key, gotKey)
	req.Empty(gotQuery)
}

func TestGoogleTransportErrorHidesKey(t *testing.T) {
	req := require.New(t)
	key := "AIzaSy" + strings.Repeat("X", 33)

	p, err := NewGoogleProvider(context.Background(), "proj", key, zerolog.Nop())
	req.NoError(err)
	// nothing listens on port 1
	p.endpoint = "http://127.0.0.1:1"

	_, err = p.Transcribe(context.Background(), testAudio)
	var pe *ProviderError
	req.True(errors.As(err, &pe))
	req.Equal(unreachableMessage, pe.Message)
	req.NotContains(pe.Message, key)
	req.NotContains(pe.Error(), key)
	req.Error(pe.Err)
}

func TestGoogleNonJSONErrorIsNotEchoed(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>upstream proxy internals</html>")
	}))
	defer srv.Close()

	p, err := NewGoogleProvider(context.Background(), "", "AIzaSy"+strings.Repeat("x", 33), zerolog.Nop())
	req.NoError(err)
	p.endpoint = srv.URL

	_, err = p.Transcribe(context.Background(), testAudio)
	var pe *ProviderError
	req.True(errors.As(err, &pe))
	req.Equal("unexpected response (status 502)", pe.Message)
}

func TestRedactKey(t *testing.T) {
	req := require.New(t)

	err := redactKey(errors.New(`Post "https://x/recognize?key=abc123": refused`), "abc123")
	req.NotContains(err.Error(), "abc123")
	req.Contains(err.Error(), "REDACTED")

	plain := errors.New("refused")
	req.Equal(plain, redactKey(plain, "abc123"))
	req.Equal(plain, redactKey(plain, ""))
}

func TestCreateProvider(t *testing.T) {
	tests := []struct {
		description string
		cfg         config.Config
		wantName    string
		wantErr     bool
	}{
		{description: "default is whisper", cfg: config.Config{OpenAIKey: "k"}, wantName: "whisper"},
		{description: "google with api key", cfg: config.Config{STTProvider: "google", GoogleSTTKeyFile: "AIzaSy" + strings.Repeat("y", 33)}, wantName: "google"},
		{description: "google service account needs project", cfg: config.Config{STTProvider: "google", GoogleSTTKeyFile: "/nope.json"}, wantErr: true},
		{description: "unknown provider", cfg: config.Config{STTProvider: "fpt"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)

			p, err := CreateProvider(context.Background(), &tt.cfg, zerolog.Nop())
			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
			req.Equal(tt.wantName, p.Name())
		})
	}
}
