// Package audio turns the heterogeneous multipart uploads sent by the mobile
// clients into one canonical model.RawAudio value.
package audio

import (
	"errors"
	"fmt"
	"strings"
)

// Form field names used by POST /analyze-cry
const (
	FieldFile     = "file"
	FieldLanguage = "language"
)

var (
	ErrEmptyAudio = errors.New("uploaded audio is empty")
	ErrNotAudio   = errors.New("uploaded item is not a valid file or blob")
	ErrTooLarge   = errors.New("uploaded form exceeds the size limit")
)

// MissingPartError reports which part names the client actually sent
type MissingPartError struct {
	Field    string
	Received []string
}

func (e *MissingPartError) Error() string {
	return fmt.Sprintf("no %q part uploaded, received: [%s]", e.Field, strings.Join(e.Received, ", "))
}

// Part is either a NamedFile or an UnnamedBlob
type Part interface {
	isPart()
}

// NamedFile is a part that carried a filename (iOS, web)
type NamedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UnnamedBlob is a bare binary part without a filename (Android)
type UnnamedBlob struct {
	ContentType string
	Data        []byte
}

func (NamedFile) isPart()   {}
func (UnnamedBlob) isPart() {}
