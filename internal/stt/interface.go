//go:generate go run go.uber.org/mock/mockgen -source=interface.go -destination=../mocks/mock_stt_provider.go -package=mocks
package stt

import (
	"context"

	"babyzen/internal/model"
)

// Provider defines the interface for speech-to-text providers
type Provider interface {
	// Transcribe converts the audio into text. An empty transcript is a valid
	// result: a cry without recognizable phonemes still goes on to classification.
	Transcribe(ctx context.Context, audio model.RawAudio) (*Result, error)

	// Name returns the name of the provider (e.g., "whisper", "google")
	Name() string
}

// CryPhonemePrompt biases the recognizer toward the Dunstan cry phonemes
const CryPhonemePrompt = "Baby crying sounds, phonemes: Neh, Owh, Heh, Eairh, Eh."

// CryPhonemes are the same hints as a phrase list, for providers that take one
var CryPhonemes = []string{"Neh", "Owh", "Heh", "Eairh", "Eh"}
