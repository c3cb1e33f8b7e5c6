package llm

import (
	"github.com/lorenzotomasdiez/roulette-duel/internal/openrouter"
)

// Registry holds the free models offered by OpenRouter.
type Registry struct {
	free []openrouter.Model
}

// NewRegistry keeps only free models. Models with nil Pricing are excluded.
func NewRegistry(models []openrouter.Model) *Registry {
	var free []openrouter.Model
	for _, m := range models {
		if m.Free() {
			free = append(free, m)
		}
	}
	return &Registry{free: free}
}

func (r *Registry) FreeModels() []openrouter.Model {
	return r.free
}

// SelectModels returns n models from the free list, cycling if n > available.
func (r *Registry) SelectModels(n int) []openrouter.Model {
	if len(r.free) == 0 {
		return nil
	}
	selected := make([]openrouter.Model, n)
	for i := range n {
		selected[i] = r.free[i%len(r.free)]
	}
	return selected
}

// DefaultFreeModels is used when the live model list cannot be fetched.
func DefaultFreeModels() []openrouter.Model {
	free := &openrouter.Pricing{Prompt: "0", Completion: "0"}
	return []openrouter.Model{
		{ID: "deepseek/deepseek-chat-v3-0324:free", Name: "DeepSeek V3 0324", Pricing: free},
		{ID: "qwen/qwen3-235b-a22b:free", Name: "Qwen3 235B A22B", Pricing: free},
		{ID: "meta-llama/llama-3.3-70b-instruct:free", Name: "Llama 3.3 70B Instruct", Pricing: free},
		{ID: "openai/gpt-oss-120b:free", Name: "GPT OSS 120B", Pricing: free},
	}
}
