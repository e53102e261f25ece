package pipeline

import (
	"errors"
	"fmt"

	"babyzen/internal/audio"
)

// Kind classifies why a request did not produce a classification
type Kind string

const (
	KindAuth          Kind = "auth"
	KindMalformed     Kind = "malformed_request"
	KindQuotaExceeded Kind = "quota_exceeded"
	KindProvider      Kind = "provider"
	KindInternal      Kind = "internal"
)

// PipelineError is the caller-facing failure of one analysis request
type PipelineError struct {
	Kind          Kind
	Message       string
	ReceivedParts []string
	Err           error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Malformed translates ingress errors, keeping the part names the client sent
func Malformed(err error) *PipelineError {
	pe := &PipelineError{Kind: KindMalformed, Message: "Invalid upload", Err: err}

	var missing *audio.MissingPartError
	switch {
	case errors.As(err, &missing):
		pe.Message = "No file uploaded"
		pe.ReceivedParts = missing.Received
	case errors.Is(err, audio.ErrNotAudio):
		pe.Message = "Uploaded item is not a valid File or Blob"
	case errors.Is(err, audio.ErrEmptyAudio):
		pe.Message = "Uploaded file is empty"
	case errors.Is(err, audio.ErrTooLarge):
		pe.Message = "Uploaded file is too large"
	}
	return pe
}
