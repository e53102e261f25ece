package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"babyzen/internal/model"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FallbackClassification is returned whenever the model output cannot be used
var FallbackClassification = model.CryClassification{
	DetectedType: model.CryUnknown,
	Confidence:   0.5,
	Reasoning:    "We couldn't confidently analyze this cry. Please check on your baby and try again.",
	AdviceKey:    model.AdviceCheckBaby,
	SootheSound:  model.SoundNatureSounds,
}

// rawClassification mirrors the JSON the model is asked to return.
// Pointers tell a missing field apart from a zero value.
type rawClassification struct {
	DetectedType *string  `json:"detected_type" validate:"required,oneof=Hunger Sleep Discomfort Gas Burp Unknown"`
	Confidence   *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
	Reasoning    *string  `json:"reasoning" validate:"required,min=1"`
	AdviceKey    *string  `json:"advice_key" validate:"required,oneof=feed_baby sleep_baby check_diaper check_baby burp_baby massage_tummy"`
	SootheSound  *string  `json:"soothe_sound" validate:"omitempty,oneof=white_noise shushing heartbeat lullaby nature_sounds"`
}

// ParseAndValidate always returns a complete, valid classification. A non-nil
// error wraps ErrSchemaValidation and means the fallback was substituted.
func ParseAndValidate(raw string) (model.CryClassification, error) {
	content := extractJSONFromMarkdown(raw)
	if content == "" {
		return FallbackClassification, fmt.Errorf("%w: empty model output", ErrSchemaValidation)
	}

	var parsed rawClassification
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return FallbackClassification, fmt.Errorf("%w: invalid JSON: %v", ErrSchemaValidation, err)
	}

	if parsed.Reasoning != nil {
		trimmed := strings.TrimSpace(*parsed.Reasoning)
		parsed.Reasoning = &trimmed
	}
	if parsed.SootheSound != nil && strings.TrimSpace(*parsed.SootheSound) == "" {
		parsed.SootheSound = nil
	}

	if err := validate.Struct(parsed); err != nil {
		return FallbackClassification, fmt.Errorf("%w: %s", ErrSchemaValidation, describeValidation(err))
	}

	c := model.CryClassification{
		DetectedType: model.CryType(*parsed.DetectedType),
		Confidence:   *parsed.Confidence,
		Reasoning:    *parsed.Reasoning,
		AdviceKey:    model.AdviceKey(*parsed.AdviceKey),
	}
	if parsed.SootheSound != nil {
		c.SootheSound = model.SootheSound(*parsed.SootheSound)
	} else {
		c.SootheSound = model.DefaultSootheSound(c.DetectedType)
	}
	return c, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

// extractJSONFromMarkdown extracts JSON from markdown code blocks
func extractJSONFromMarkdown(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	content = strings.TrimSpace(content)

	// Prose around the object
	if !strings.HasPrefix(content, "{") {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start >= 0 && end > start {
			content = content[start : end+1]
		}
	}
	return content
}
