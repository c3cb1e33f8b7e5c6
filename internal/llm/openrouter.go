package llm

import (
	"context"
	"fmt"

	"github.com/lorenzotomasdiez/roulette-duel/internal/openrouter"
)

// OpenRouter completes through the OpenRouter chat API.
type OpenRouter struct {
	client      *openrouter.Client
	model       string
	temperature *float64
	maxTokens   int
}

// NewOpenRouter uses s.BaseURL when set. Without a model it picks the first
// free model OpenRouter lists, or a known free model if listing fails.
func NewOpenRouter(ctx context.Context, s Settings) (*OpenRouter, error) {
	client := openrouter.NewClient(s.APIKey, openrouter.WithBaseURL(s.BaseURL))
	model := s.Model
	if model == "" {
		model = ResolveFreeModels(ctx, client, 1)[0]
	}
	return &OpenRouter{
		client:      client,
		model:       model,
		temperature: s.Temperature,
		maxTokens:   s.MaxTokens,
	}, nil
}

// ResolveFreeModels returns n free model IDs, cycling when fewer are listed.
func ResolveFreeModels(ctx context.Context, client *openrouter.Client, n int) []string {
	models, err := client.ListModels(ctx)
	var selected []openrouter.Model
	if err == nil {
		selected = NewRegistry(models).SelectModels(n)
	}
	if len(selected) == 0 {
		selected = NewRegistry(DefaultFreeModels()).SelectModels(n)
	}
	ids := make([]string, len(selected))
	for i, m := range selected {
		ids[i] = m.ID
	}
	return ids
}

func (o *OpenRouter) Model() string { return o.model }

func (o *OpenRouter) Complete(ctx context.Context, messages []Message) (string, error) {
	msgs := make([]openrouter.Message, len(messages))
	for i, m := range messages {
		msgs[i] = openrouter.Message{Role: string(m.Role), Content: m.Content}
	}
	text, err := o.client.Complete(ctx, openrouter.ChatRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm: %s: %w", o.model, err)
	}
	return text, nil
}
