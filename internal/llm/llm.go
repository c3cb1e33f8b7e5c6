// Package llm hides chat-completion providers behind a single Completer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// Completer turns a conversation into the assistant's next reply.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, messages []Message) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderDeepSeek   = "deepseek"
	ProviderGemini     = "gemini"
)

var (
	ErrMissingAPIKey   = errors.New("llm: missing API key")
	ErrUnknownProvider = errors.New("llm: unknown provider")
	ErrEmptyResponse   = errors.New("llm: empty response")
)

// Settings selects and tunes a provider. A nil Temperature keeps the
// provider default; an empty Model picks one per provider.
type Settings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature *float64
	MaxTokens   int
}

// New builds the Completer for s.Provider.
func New(ctx context.Context, s Settings) (Completer, error) {
	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	if provider == "" {
		provider = ProviderOpenRouter
	}
	if s.APIKey == "" {
		return nil, fmt.Errorf("%w for %s", ErrMissingAPIKey, provider)
	}
	switch provider {
	case ProviderOpenRouter:
		return NewOpenRouter(ctx, s)
	case ProviderOpenAI:
		return NewOpenAI(s), nil
	case ProviderDeepSeek:
		if s.BaseURL == "" {
			s.BaseURL = DefaultDeepSeekBaseURL
		}
		if s.Model == "" {
			s.Model = DefaultDeepSeekModel
		}
		return NewOpenAI(s), nil
	case ProviderGemini:
		return NewGemini(ctx, s)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownProvider, s.Provider)
}

// Close releases provider resources when the completer holds any.
func Close(c Completer) error {
	if closer, ok := c.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
