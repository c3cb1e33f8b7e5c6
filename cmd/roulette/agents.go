package main

import (
	"context"
	"fmt"

	"github.com/lorenzotomasdiez/roulette-duel/internal/agent"
	"github.com/lorenzotomasdiez/roulette-duel/internal/config"
	"github.com/lorenzotomasdiez/roulette-duel/internal/game"
	"github.com/lorenzotomasdiez/roulette-duel/internal/llm"
	"github.com/lorenzotomasdiez/roulette-duel/internal/openrouter"
)

// seat is a built decision agent plus what the header shows about it.
type seat struct {
	agent     game.Agent
	label     string
	completer llm.Completer
}

// replyFunc receives raw model replies for the game log.
type replyFunc func(player string, step game.Step, raw string)

// buildSeats creates one agent per player. OpenRouter players without a model
// get distinct free models when the listing offers enough of them.
func buildSeats(ctx context.Context, cfg *config.Config, g *config.Game, onReply replyFunc) ([2]seat, error) {
	var seats [2]seat

	freeModels, err := resolveFreeModels(ctx, cfg, g)
	if err != nil {
		return seats, err
	}

	for i, p := range g.Players[:2] {
		backend := g.Backend(i)
		switch {
		case backend == config.BackendRandom:
			seed := p.Seed
			if seed == 0 {
				seed = g.Seed + int64(i) + 1
			}
			seats[i] = seat{agent: agent.NewRandom(seed), label: fmt.Sprintf("random policy (seed %d)", seed)}
		case backend == config.BackendScripted:
			seats[i] = seat{agent: agent.NewScripted(*p.Script), label: "scripted"}
		default:
			settings, err := cfg.LLMSettings(p)
			if err != nil {
				closeSeats(seats)
				return seats, err
			}
			if settings.Model == "" && freeModels[i] != "" {
				settings.Model = freeModels[i]
			}
			c, err := llm.New(ctx, settings)
			if err != nil {
				closeSeats(seats)
				return seats, fmt.Errorf("player %s: %w", p.Name, err)
			}
			a := agent.NewLLM(c)
			a.OnReply = onReply
			seats[i] = seat{agent: a, label: backend + "/" + modelName(c, settings.Model), completer: c}
		}
	}
	return seats, nil
}

// resolveFreeModels picks a model for each OpenRouter seat that has none.
func resolveFreeModels(ctx context.Context, cfg *config.Config, g *config.Game) ([2]string, error) {
	var out [2]string
	var need []int
	for i, p := range g.Players[:2] {
		if g.Backend(i) == llm.ProviderOpenRouter && p.Model == "" {
			need = append(need, i)
		}
	}
	if len(need) == 0 {
		return out, nil
	}
	if cfg.OpenRouterKey == "" {
		return out, fmt.Errorf("config: OPENROUTER_API_KEY is required for player %s", g.Players[need[0]].Name)
	}

	client := openrouter.NewClient(cfg.OpenRouterKey, openrouter.WithBaseURL(cfg.OpenRouterBaseURL))
	ids := llm.ResolveFreeModels(ctx, client, len(need))
	for j, i := range need {
		out[i] = ids[j%len(ids)]
	}
	return out, nil
}

func modelName(c llm.Completer, fallback string) string {
	if m, ok := c.(interface{ Model() string }); ok {
		return m.Model()
	}
	return fallback
}

func closeSeats(seats [2]seat) {
	for _, s := range seats {
		if s.completer != nil {
			_ = llm.Close(s.completer)
		}
	}
}

func agentsOf(seats [2]seat) [2]game.Agent {
	return [2]game.Agent{seats[0].agent, seats[1].agent}
}
