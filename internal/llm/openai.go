package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultDeepSeekModel   = "deepseek-chat"
	DefaultDeepSeekBaseURL = "https://api.deepseek.com/v1"
)

// OpenAI completes through any OpenAI-compatible chat API, DeepSeek included.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature *float64
	maxTokens   int
}

// NewOpenAI also serves OpenAI-compatible APIs through s.BaseURL.
func NewOpenAI(s Settings) *OpenAI {
	cfg := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	model := s.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: s.Temperature,
		maxTokens:   s.MaxTokens,
	}
}

func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Complete(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  make([]openai.ChatCompletionMessage, len(messages)),
		MaxTokens: o.maxTokens,
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: openAIRole(m.Role), Content: m.Content}
	}
	if o.temperature != nil {
		req.Temperature = float32(*o.temperature)
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm: %s: %w", o.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: %s: %w", o.model, ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIRole(r Role) string {
	switch r {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}
