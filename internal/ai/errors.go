package ai

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// ErrSchemaValidation marks model output that had to be replaced by the fallback
var ErrSchemaValidation = errors.New("classification output failed schema validation")

// ProviderError is returned when the language model call fails
type ProviderError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (status %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// unreachableMessage replaces transport errors, whose text may carry request URLs
const unreachableMessage = "model service unreachable"

func providerError(operation string, err error) *ProviderError {
	pe := &ProviderError{Operation: operation, Message: unreachableMessage, Err: err}

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
