package ai

import (
	"fmt"
	"strings"

	"babyzen/internal/model"
)

// BuildCryPrompt builds the system prompt for cry classification.
// Only the reasoning is localized; enum fields stay in English.
func BuildCryPrompt(language string) string {
	lang := model.NormalizeLanguage(language)
	langName := model.LanguageName(lang)

	return fmt.Sprintf(`You are a supportive, expert pediatrician specializing in Dunstan Baby Language.
Analyze the cry transcript. The transcript was produced by a speech recognizer listening for the phonemes Neh, Owh, Heh, Eairh and Eh; it may be empty or noisy.

IMPORTANT: Output the "reasoning" field in the following language: %s (%s).
The "detected_type", "advice_key" and "soothe_sound" values must remain in English exactly as listed.

Style of reasoning:
- Speak naturally, gently, and empathetically to the parent.
- Avoid robotic phrases like "Cry with sounds". Instead use "I hear the sound..." or "The baby is making...".
- Explain clearly why it is this specific type based on the phonemes heard.
- If no phonemes are recognizable, answer "Unknown" with a low confidence.

Return JSON only:
{
  "detected_type": %s,
  "confidence": 0.0 to 1.0,
  "reasoning": "Natural, comforting explanation in %s.",
  "advice_key": %s,
  "soothe_sound": %s
}`,
		langName, lang,
		quoteAlternatives(model.CryTypes),
		langName,
		quoteAlternatives(model.AdviceKeys),
		quoteAlternatives(model.SootheSounds),
	)
}

// BuildCryUserPrompt wraps the transcript for the user turn
func BuildCryUserPrompt(transcript string) string {
	return fmt.Sprintf("Transcript: %q", strings.TrimSpace(transcript))
}

// BuildMentorSystemPrompt builds the system prompt for the parenting mentor
func BuildMentorSystemPrompt(language, contextText string) string {
	lang := model.NormalizeLanguage(language)

	return fmt.Sprintf(`You are an experienced pediatric advisor and sleep consultant.
Your responses are informational guidance only and NOT medical diagnosis.
If symptoms sound serious, recommend consulting a healthcare professional.
Keep answers under 4 short sentences.
Be calm, empathetic and confident.
Respond in this language: %s (%s).

Context:
%s`, model.LanguageName(lang), lang, strings.TrimSpace(contextText))
}

func quoteAlternatives[T ~string](values []T) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", string(v))
	}
	return strings.Join(quoted, " | ")
}
