package audio

import (
	"mime"
	"path/filepath"
	"strings"

	"babyzen/internal/model"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// DefaultBlobFilename is the name given to uploads that arrive without one
	DefaultBlobFilename = "audio.m4a"
	// DefaultMimeType is used when neither the client nor sniffing yields an audio type
	DefaultMimeType = "audio/mp4"
)

// Normalize produces the canonical audio value for either part variant
func Normalize(p Part) model.RawAudio {
	switch v := p.(type) {
	case NamedFile:
		mimeType := resolveMimeType(v.ContentType, v.Filename, v.Data)
		return model.RawAudio{
			Data:     v.Data,
			Filename: ensureExtension(filepath.Base(v.Filename), mimeType),
			MimeType: mimeType,
		}
	case UnnamedBlob:
		return model.RawAudio{
			Data:     v.Data,
			Filename: DefaultBlobFilename,
			MimeType: resolveMimeType(v.ContentType, "", v.Data),
		}
	default:
		return model.RawAudio{Filename: DefaultBlobFilename, MimeType: DefaultMimeType}
	}
}

// resolveMimeType prefers the declared type, then the file extension, then sniffing
func resolveMimeType(declared, filename string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && isMediaType(mt) {
		return mt
	}
	if ct := contentTypeFromExt(filename); ct != "" {
		return ct
	}
	if detected := mimetype.Detect(data); detected != nil && isMediaType(detected.String()) {
		mt, _, err := mime.ParseMediaType(detected.String())
		if err == nil {
			return mt
		}
	}
	return DefaultMimeType
}

func isMediaType(mt string) bool {
	mt = strings.ToLower(mt)
	return strings.HasPrefix(mt, "audio/") || strings.HasPrefix(mt, "video/")
}

// contentTypeFromExt determines MIME type based on file extension
func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return "audio/wav"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".aac":
		return "audio/aac"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".flac":
		return "audio/flac"
	case ".caf":
		return "audio/x-caf"
	case ".3gp":
		return "audio/3gpp"
	default:
		return ""
	}
}

// ensureExtension appends an extension matching mimeType when the name has none;
// the transcription provider detects the container from the filename
func ensureExtension(name, mimeType string) string {
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "audio"
	}
	if filepath.Ext(name) != "" {
		return name
	}
	return name + extensionFor(mimeType)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/aac":
		return ".aac"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm", "video/webm":
		return ".webm"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	default:
		return ".m4a"
	}
}
