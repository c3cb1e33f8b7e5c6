package agent

import (
	"context"
	"math/rand"
	"sync"

	"github.com/lorenzotomasdiez/roulette-duel/internal/game"
)

var taunts = []string{
	"Your hands are shaking.",
	"I know exactly where the bullet is.",
	"Luck runs out eventually.",
	"Go ahead, pull it.",
	"",
}

// Random is a seeded policy for offline games. It uses what its own Checks
// revealed and otherwise plays the odds.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns an agent seeded for reproducible play.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// Communicate sends a random taunt and occasionally proposes a draw.
func (r *Random) Communicate(_ context.Context, req game.Request) (game.Communication, error) {
	msg := taunts[r.intn(len(taunts))]
	return game.Communication{Message: msg, ProposeDraw: r.intn(8) == 0}, nil
}

// RespondToDraw accepts more readily when the chamber under the trigger is
// known to be loaded.
func (r *Random) RespondToDraw(_ context.Context, req game.Request, _ string) (bool, error) {
	if loaded, ok := currentChamber(req.Snapshot); ok && loaded {
		return true, nil
	}
	return r.intn(4) == 0, nil
}

// ChooseItem uses Check while the chamber is unknown, otherwise a random
// held item or none.
func (r *Random) ChooseItem(_ context.Context, req game.Request) (game.ItemChoice, error) {
	inv := req.Snapshot.Self.Inventory
	if _, known := currentChamber(req.Snapshot); !known && inv.Count(game.Check) > 0 {
		return game.ItemChoice{Name: game.Check.String()}, nil
	}
	kinds := inv.Kinds()
	if len(kinds) == 0 || r.intn(3) != 0 {
		return game.ItemChoice{}, nil
	}
	return game.ItemChoice{Name: kinds[r.intn(len(kinds))].String()}, nil
}

// ChooseTarget follows a Check result when there is one and flips a coin
// otherwise.
func (r *Random) ChooseTarget(_ context.Context, req game.Request) (game.Target, error) {
	if loaded, ok := currentChamber(req.Snapshot); ok {
		if loaded {
			return game.TargetOpponent, nil
		}
		return game.TargetSelf, nil
	}
	if r.intn(2) == 0 {
		return game.TargetSelf, nil
	}
	return game.TargetOpponent, nil
}

// currentChamber reports what this turn's Check revealed about the chamber
// under the trigger. Older checks may be stale after shots or pushes.
func currentChamber(s game.Snapshot) (loaded, known bool) {
	for i := len(s.Known) - 1; i >= 0; i-- {
		k := s.Known[i]
		if k.Turn == s.Turn && k.Chamber == s.Trigger {
			return k.Loaded, true
		}
	}
	return false, false
}
