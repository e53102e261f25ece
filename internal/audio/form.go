package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strings"
)

// DefaultMaxFormBytes matches the upload limit of the transcription provider
const DefaultMaxFormBytes = 25 << 20

type rawPart struct {
	filename    string
	contentType string
	data        []byte
}

// Form is a parsed multipart body keeping per-part filename and content type,
// which mime/multipart.Form drops for parts without a filename
type Form struct {
	parts    map[string]rawPart
	received []string
}

// ReadForm reads every part of r. The first part wins when a name repeats.
func ReadForm(r *multipart.Reader, maxBytes int64) (*Form, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFormBytes
	}
	form := &Form{parts: make(map[string]rawPart)}
	seen := make(map[string]bool)
	remaining := maxBytes

	for {
		p, err := r.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read multipart part: %w", err)
		}

		name := p.FormName()
		if name == "" {
			_ = p.Close()
			continue
		}

		var buf bytes.Buffer
		n, err := io.Copy(&buf, io.LimitReader(p, remaining+1))
		_ = p.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read part %q: %w", name, err)
		}
		if n > remaining {
			return nil, ErrTooLarge
		}
		remaining -= n

		if !seen[name] {
			seen[name] = true
			form.received = append(form.received, name)
			form.parts[name] = rawPart{
				filename:    p.FileName(),
				contentType: strings.TrimSpace(p.Header.Get("Content-Type")),
				data:        buf.Bytes(),
			}
		}
	}

	sort.Strings(form.received)
	return form, nil
}

// Received returns the sorted part names present in the body
func (f *Form) Received() []string {
	out := make([]string, len(f.received))
	copy(out, f.received)
	return out
}

// Value returns a text field, or "" when absent
func (f *Form) Value(name string) string {
	p, ok := f.parts[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(string(p.data))
}

// AudioPart resolves the named part into a NamedFile or an UnnamedBlob
func (f *Form) AudioPart(name string) (Part, error) {
	p, ok := f.parts[name]
	if !ok {
		return nil, &MissingPartError{Field: name, Received: f.Received()}
	}
	if len(p.data) == 0 {
		return nil, ErrEmptyAudio
	}
	if p.filename != "" {
		return NamedFile{Filename: p.filename, ContentType: p.contentType, Data: p.data}, nil
	}
	// a filename-less part explicitly declared as text is a plain form value,
	// e.g. a client that stringified its blob
	if strings.HasPrefix(strings.ToLower(p.contentType), "text/") {
		return nil, ErrNotAudio
	}
	return UnnamedBlob{ContentType: p.contentType, Data: p.data}, nil
}
