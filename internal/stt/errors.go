package stt

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// unreachableMessage replaces transport errors, whose text may carry request URLs
const unreachableMessage = "speech service unreachable"

// ProviderError is returned when the transcription provider fails or rejects a call
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s transcription failed (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s transcription failed: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// fromOpenAI translates go-openai errors into a ProviderError
func fromOpenAI(provider string, err error) *ProviderError {
	pe := &ProviderError{Provider: provider, Message: unreachableMessage, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.HTTPStatusCode
		pe.Message = apiErr.Message
	case errors.As(err, &reqErr):
		pe.StatusCode = reqErr.HTTPStatusCode
		if text := http.StatusText(reqErr.HTTPStatusCode); text != "" {
			pe.Message = text
		}
	}
	return pe
}
