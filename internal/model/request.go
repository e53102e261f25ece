package model

import "strings"

// RawAudio is the canonical audio payload every downstream stage works with
type RawAudio struct {
	Data     []byte
	Filename string
	MimeType string
}

// Size returns the payload length in bytes
func (a RawAudio) Size() int {
	return len(a.Data)
}

// CryAnalysisRequest is the normalized body of POST /analyze-cry.
// The caller identity is never part of the request body.
type CryAnalysisRequest struct {
	Audio    RawAudio
	Language string
}

// DefaultLanguage is used when the client sends no usable language hint
const DefaultLanguage = "en"

// supportedLanguages are the ISO-639-1 codes the reasoning text can be written in
var supportedLanguages = map[string]string{
	"en": "English",
	"ru": "Russian",
	"uk": "Ukrainian",
	"es": "Spanish",
	"pt": "Portuguese",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pl": "Polish",
	"tr": "Turkish",
	"kk": "Kazakh",
	"vi": "Vietnamese",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"ar": "Arabic",
	"hi": "Hindi",
}

// NormalizeLanguage maps a client hint ("ru", "ru-RU", " EN ") to a supported
// ISO-639-1 code, falling back to DefaultLanguage
func NormalizeLanguage(hint string) string {
	code := strings.ToLower(strings.TrimSpace(hint))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if _, ok := supportedLanguages[code]; ok {
		return code
	}
	return DefaultLanguage
}

// LanguageName returns the English name of a supported language code
func LanguageName(code string) string {
	if name, ok := supportedLanguages[NormalizeLanguage(code)]; ok {
		return name
	}
	return supportedLanguages[DefaultLanguage]
}

// IsSupportedLanguage reports whether hint maps to a supported code on its own
func IsSupportedLanguage(hint string) bool {
	code := strings.ToLower(strings.TrimSpace(hint))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	_, ok := supportedLanguages[code]
	return ok
}
