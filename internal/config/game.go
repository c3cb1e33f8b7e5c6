package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lorenzotomasdiez/roulette-duel/internal/agent"
	"github.com/lorenzotomasdiez/roulette-duel/internal/game"
	"github.com/lorenzotomasdiez/roulette-duel/internal/llm"
)

const (
	BackendRandom   = "random"
	BackendScripted = "scripted"
)

// IsLLMBackend reports whether backend names a language model provider.
func IsLLMBackend(backend string) bool {
	switch backend {
	case llm.ProviderOpenRouter, llm.ProviderOpenAI, llm.ProviderDeepSeek, llm.ProviderGemini:
		return true
	}
	return false
}

// PlayerConfig declares one seat of the duel.
type PlayerConfig struct {
	Name        string          `yaml:"name"`
	Role        string          `yaml:"role"`
	Style       string          `yaml:"style,omitempty"`
	Backend     string          `yaml:"backend"`
	Model       string          `yaml:"model,omitempty"`
	Temperature *float64        `yaml:"temperature,omitempty"`
	Items       []game.ItemKind `yaml:"items,omitempty"`
	Seed        int64           `yaml:"seed,omitempty"`
	Script      *agent.Script   `yaml:"script,omitempty"`
}

func (p PlayerConfig) backend() string {
	b := strings.ToLower(strings.TrimSpace(p.Backend))
	if b == "" {
		return llm.ProviderOpenRouter
	}
	return b
}

// Game is the YAML game file. Bullets 0 loads a random count and Seed 0 lets
// the caller pick a seed.
type Game struct {
	Chambers    int            `yaml:"chambers"`
	Bullets     int            `yaml:"bullets"`
	Seed        int64          `yaml:"seed,omitempty"`
	FirstPlayer int            `yaml:"first_player"`
	Players     []PlayerConfig `yaml:"players"`
}

// DefaultGame is the classic Gambler against Detective duel.
func DefaultGame() *Game {
	return &Game{
		Chambers: 8,
		Players: []PlayerConfig{
			{
				Name:    "Bill",
				Role:    "Gambler",
				Style:   "Aggressive and bold, likes taking risks, applies extreme pressure and is skilled at lying to disrupt the opponent's judgment",
				Backend: llm.ProviderOpenRouter,
			},
			{
				Name:    "Lee",
				Role:    "Detective",
				Style:   "Calm and analytical, good at reasoning, uses logical analysis to see through the opponent's lies and strategies",
				Backend: llm.ProviderOpenRouter,
			},
		},
	}
}

// LoadGame reads a game file. Unknown fields are rejected.
func LoadGame(path string) (*Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading game file: %w", err)
	}
	return ParseGame(data)
}

// ParseGame decodes and validates a YAML game file.
func ParseGame(data []byte) (*Game, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var g Game
	if err := dec.Decode(&g); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parsing game file: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

func (g *Game) Validate() error {
	if g.Chambers < 2 {
		return fmt.Errorf("config: chambers must be >= 2, got %d", g.Chambers)
	}
	if g.Bullets < 0 || g.Bullets > g.Chambers/2 {
		return fmt.Errorf("config: bullets must be in [0, %d], got %d", g.Chambers/2, g.Bullets)
	}
	if g.FirstPlayer != 0 && g.FirstPlayer != 1 {
		return fmt.Errorf("config: first_player must be 0 or 1, got %d", g.FirstPlayer)
	}
	if len(g.Players) != 2 {
		return fmt.Errorf("config: exactly 2 players required, got %d", len(g.Players))
	}
	for i, p := range g.Players {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("config: players[%d].name is required", i)
		}
		if strings.TrimSpace(p.Role) == "" {
			return fmt.Errorf("config: players[%d].role is required", i)
		}
		b := p.backend()
		if !IsLLMBackend(b) && b != BackendRandom && b != BackendScripted {
			return fmt.Errorf("config: players[%d].backend %q is not supported", i, p.Backend)
		}
		if b == BackendScripted && p.Script == nil {
			return fmt.Errorf("config: players[%d] uses the scripted backend without a script", i)
		}
		if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
			return fmt.Errorf("config: players[%d].temperature must be in [0, 2], got %g", i, *p.Temperature)
		}
	}
	if g.Players[0].Name == g.Players[1].Name {
		return fmt.Errorf("config: player names must differ, both are %q", g.Players[0].Name)
	}
	return nil
}

// Setup converts the file into an engine setup. gameID may be empty.
func (g *Game) Setup(gameID string) game.Setup {
	s := game.Setup{
		GameID:      gameID,
		Seed:        g.Seed,
		Chambers:    g.Chambers,
		Bullets:     g.Bullets,
		FirstPlayer: g.FirstPlayer,
	}
	for i, p := range g.Players[:2] {
		s.Players[i] = game.PlayerSetup{
			Name:      p.Name,
			RoleName:  p.Role,
			RoleStyle: p.Style,
			Items:     p.Items,
		}
	}
	return s
}

// Backend returns the normalized backend of player i.
func (g *Game) Backend(i int) string { return g.Players[i].backend() }
