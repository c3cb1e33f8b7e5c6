package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/lorenzotomasdiez/roulette-duel/internal/llm"
)

// Config holds process-wide settings read from the environment.
type Config struct {
	OpenRouterKey     string `env:"OPENROUTER_API_KEY"`
	OpenAIKey         string `env:"OPENAI_API_KEY"`
	DeepSeekKey       string `env:"DEEPSEEK_API_KEY"`
	GeminiKey         string `env:"GEMINI_API_KEY"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL"`
	OpenAIBaseURL     string `env:"OPENAI_BASE_URL"`
	DeepSeekBaseURL   string `env:"DEEPSEEK_BASE_URL" envDefault:"https://api.deepseek.com/v1"`

	OutputDir    string        `env:"ROULETTE_OUTPUT_DIR" envDefault:"output"`
	DBPath       string        `env:"ROULETTE_DB" envDefault:"roulette.db"`
	AgentTimeout time.Duration `env:"ROULETTE_AGENT_TIMEOUT" envDefault:"90s"`
	MaxAttempts  int           `env:"ROULETTE_MAX_ATTEMPTS" envDefault:"3"`
	MaxTokens    int           `env:"ROULETTE_MAX_TOKENS" envDefault:"1024"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.AgentTimeout <= 0 {
		return nil, fmt.Errorf("config: ROULETTE_AGENT_TIMEOUT must be positive, got %s", cfg.AgentTimeout)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("config: ROULETTE_MAX_ATTEMPTS must be >= 1, got %d", cfg.MaxAttempts)
	}
	if cfg.MaxTokens < 0 {
		return nil, fmt.Errorf("config: ROULETTE_MAX_TOKENS must be >= 0, got %d", cfg.MaxTokens)
	}
	return &cfg, nil
}

// keyVar names the environment variable holding each provider's API key.
var keyVar = map[string]string{
	llm.ProviderOpenRouter: "OPENROUTER_API_KEY",
	llm.ProviderOpenAI:     "OPENAI_API_KEY",
	llm.ProviderDeepSeek:   "DEEPSEEK_API_KEY",
	llm.ProviderGemini:     "GEMINI_API_KEY",
}

func (c *Config) apiKey(provider string) string {
	switch provider {
	case llm.ProviderOpenRouter:
		return c.OpenRouterKey
	case llm.ProviderOpenAI:
		return c.OpenAIKey
	case llm.ProviderDeepSeek:
		return c.DeepSeekKey
	case llm.ProviderGemini:
		return c.GeminiKey
	}
	return ""
}

func (c *Config) baseURL(provider string) string {
	switch provider {
	case llm.ProviderOpenRouter:
		return c.OpenRouterBaseURL
	case llm.ProviderOpenAI:
		return c.OpenAIBaseURL
	case llm.ProviderDeepSeek:
		return c.DeepSeekBaseURL
	}
	return ""
}

// LLMSettings resolves the provider settings for an LLM-backed player.
func (c *Config) LLMSettings(p PlayerConfig) (llm.Settings, error) {
	provider := p.backend()
	if !IsLLMBackend(provider) {
		return llm.Settings{}, fmt.Errorf("config: player %s uses backend %q, not an LLM", p.Name, p.Backend)
	}
	key := c.apiKey(provider)
	if key == "" {
		return llm.Settings{}, fmt.Errorf("config: %s is required for player %s", keyVar[provider], p.Name)
	}
	return llm.Settings{
		Provider:    provider,
		Model:       p.Model,
		APIKey:      key,
		BaseURL:     c.baseURL(provider),
		Temperature: p.Temperature,
		MaxTokens:   c.MaxTokens,
	}, nil
}

func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: opening .env: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
	return scanner.Err()
}
