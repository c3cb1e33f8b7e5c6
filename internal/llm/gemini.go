package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini completes through the Google Generative AI API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature *float64
	maxTokens   int
}

// NewGemini dials the Gemini API with s.APIKey.
func NewGemini(ctx context.Context, s Settings) (*Gemini, error) {
	opts := []option.ClientOption{option.WithAPIKey(s.APIKey)}
	if s.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(s.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: gemini: %w", err)
	}
	model := s.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{
		client:      client,
		model:       model,
		temperature: s.Temperature,
		maxTokens:   s.MaxTokens,
	}, nil
}

func (g *Gemini) Model() string { return g.model }

func (g *Gemini) Close() error { return g.client.Close() }

func (g *Gemini) Complete(ctx context.Context, messages []Message) (string, error) {
	system, history, last := geminiContents(messages)
	if last == "" {
		return "", fmt.Errorf("llm: %s: no user message", g.model)
	}

	model := g.client.GenerativeModel(g.model)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if g.temperature != nil {
		model.SetTemperature(float32(*g.temperature))
	}
	if g.maxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.maxTokens))
	}

	chat := model.StartChat()
	chat.History = history
	resp, err := chat.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", fmt.Errorf("llm: %s: %w", g.model, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("llm: %s: %w", g.model, ErrEmptyResponse)
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("llm: %s: %w", g.model, ErrEmptyResponse)
	}
	return sb.String(), nil
}

// geminiContents splits a conversation into the system instruction, the chat
// history and the final user message Gemini expects to be sent separately.
func geminiContents(messages []Message) (system string, history []*genai.Content, last string) {
	var sys []string
	var turns []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			sys = append(sys, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if n := len(turns); n > 0 && turns[n-1].Role == RoleUser {
		last = turns[n-1].Content
		turns = turns[:n-1]
	}
	for _, m := range turns {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return strings.Join(sys, "\n\n"), history, last
}
