//go:generate go run go.uber.org/mock/mockgen -source=openai.go -destination=../mocks/mock_ai.go -package=mocks
package ai

import (
	"context"
	"errors"
	"time"

	"babyzen/internal/logging"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

const (
	classifyTemperature = 0.3
	mentorTemperature   = 0.4
	mentorMaxTokens     = 250
)

// Completion is the raw text returned by the model plus its token usage
type Completion struct {
	Content     string
	TotalTokens int
}

// Classifier turns a cry transcript into raw model output for ParseAndValidate
type Classifier interface {
	Classify(ctx context.Context, transcript, language string) (*Completion, error)
}

// MentorMessage is one prior turn of a mentor conversation
type MentorMessage struct {
	Role    string
	Content string
}

// Mentor answers a parent's question given a system prompt and history
type Mentor interface {
	Reply(ctx context.Context, systemPrompt string, history []MentorMessage, message string) (*Completion, error)
}

// OpenAIClient implements Classifier and Mentor on the chat completions API
type OpenAIClient struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAIClient creates a client. baseURL may be empty for the public API.
func NewOpenAIClient(apiKey, baseURL, chatModel string, log zerolog.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if chatModel == "" {
		chatModel = openai.GPT4o
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  chatModel,
		log:    logging.Component(log, "openai"),
	}
}

// Classify asks the model for a JSON classification of the transcript
func (c *OpenAIClient) Classify(ctx context.Context, transcript, language string) (*Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: BuildCryPrompt(language)},
			{Role: openai.ChatMessageRoleUser, Content: BuildCryUserPrompt(transcript)},
		},
		Temperature: classifyTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	c.log.Debug().
		Str("language", language).
		Int("transcript_length", len(transcript)).
		Msg("[Classify] Calling OpenAI")

	return c.complete(ctx, "classification", req)
}

// Reply asks the model for a short mentor answer
func (c *OpenAIClient) Reply(ctx context.Context, systemPrompt string, history []MentorMessage, message string) (*Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: mentorTemperature,
		MaxTokens:   mentorMaxTokens,
	}

	c.log.Debug().Int("history", len(history)).Msg("[Mentor] Calling OpenAI")
	return c.complete(ctx, "mentor completion", req)
}

func (c *OpenAIClient) complete(ctx context.Context, operation string, req openai.ChatCompletionRequest) (*Completion, error) {
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		pe := providerError(operation, err)
		c.log.Error().Err(err).Int("status", pe.StatusCode).Str("error", pe.Message).Msgf("[OpenAI] %s failed", operation)
		return nil, pe
	}

	c.log.Info().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Int("total_tokens", resp.Usage.TotalTokens).
		Dur("duration", time.Since(start)).
		Msgf("[OpenAI] %s response received", operation)

	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Operation: operation, Message: "OpenAI returned no choices", Err: errors.New("no choices")}
	}

	content := resp.Choices[0].Message.Content
	c.log.Debug().Str("preview", logging.Truncate(content, 500)).Msg("[OpenAI] Response preview")

	return &Completion{Content: content, TotalTokens: resp.Usage.TotalTokens}, nil
}
