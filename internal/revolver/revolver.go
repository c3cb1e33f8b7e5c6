package revolver

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	// ErrInvalidLoad is returned by Load for impossible chamber/bullet counts.
	ErrInvalidLoad = errors.New("revolver: invalid load")
	// ErrFull is returned by AddBullet when every chamber is already loaded.
	ErrFull = errors.New("revolver: all chambers loaded")
)

// Revolver is a cylinder of chambers and the position that fires next.
type Revolver struct {
	chambers []bool
	trigger  int
	rng      *rand.Rand
}

// Load places bullets in distinct chambers chosen uniformly at random.
// The trigger starts at chamber 0.
func Load(rng *rand.Rand, chambers, bullets int) (*Revolver, error) {
	if chambers < 2 {
		return nil, fmt.Errorf("%w: chamber count must be >= 2, got %d", ErrInvalidLoad, chambers)
	}
	if bullets < 1 || bullets > chambers/2 {
		return nil, fmt.Errorf("%w: bullet count must be in [1, %d], got %d", ErrInvalidLoad, chambers/2, bullets)
	}
	r := &Revolver{chambers: make([]bool, chambers), rng: rng}
	for _, idx := range rng.Perm(chambers)[:bullets] {
		r.chambers[idx] = true
	}
	return r, nil
}

// FromChambers builds a revolver with a fixed layout. rng is used by AddBullet.
func FromChambers(loaded []bool, trigger int, rng *rand.Rand) (*Revolver, error) {
	if len(loaded) < 2 {
		return nil, fmt.Errorf("%w: chamber count must be >= 2, got %d", ErrInvalidLoad, len(loaded))
	}
	chambers := make([]bool, len(loaded))
	copy(chambers, loaded)
	r := &Revolver{chambers: chambers, rng: rng}
	r.trigger = r.index(trigger)
	return r, nil
}

// Fire discharges the chamber under the trigger, empties it and advances.
func (r *Revolver) Fire() bool {
	loaded := r.chambers[r.trigger]
	r.chambers[r.trigger] = false
	r.trigger = r.index(r.trigger + 1)
	return loaded
}

// Peek reports whether the chamber offset positions after the trigger is loaded.
func (r *Revolver) Peek(offset int) bool {
	return r.chambers[r.index(r.trigger+offset)]
}

// AddBullet loads one empty chamber chosen uniformly at random and returns its index.
func (r *Revolver) AddBullet() (int, error) {
	var empty []int
	for i, loaded := range r.chambers {
		if !loaded {
			empty = append(empty, i)
		}
	}
	if len(empty) == 0 {
		return -1, ErrFull
	}
	idx := empty[r.rng.Intn(len(empty))]
	r.chambers[idx] = true
	return idx, nil
}

// Advance rotates the cylinder n positions without firing.
func (r *Revolver) Advance(n int) {
	r.trigger = r.index(r.trigger + n)
}

// Trigger returns the index of the chamber that fires next.
func (r *Revolver) Trigger() int { return r.trigger }

// Size returns the number of chambers.
func (r *Revolver) Size() int { return len(r.chambers) }

// Loaded returns the number of loaded chambers.
func (r *Revolver) Loaded() int {
	n := 0
	for _, loaded := range r.chambers {
		if loaded {
			n++
		}
	}
	return n
}

// Chambers returns a copy of the chamber layout.
func (r *Revolver) Chambers() []bool {
	out := make([]bool, len(r.chambers))
	copy(out, r.chambers)
	return out
}

func (r *Revolver) index(i int) int {
	n := len(r.chambers)
	return ((i % n) + n) % n
}
