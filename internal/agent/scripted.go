package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/lorenzotomasdiez/roulette-duel/internal/game"
)

// Script lists a player's decisions in order. When a list runs out its last
// entry repeats; an empty list falls back to silence, declining, no item and
// shooting the opponent.
type Script struct {
	Messages []game.Communication `json:"messages,omitempty" yaml:"messages,omitempty"`
	Accepts  []bool               `json:"accepts,omitempty" yaml:"accepts,omitempty"`
	Items    []string             `json:"items,omitempty" yaml:"items,omitempty"`
	Targets  []game.Target        `json:"targets,omitempty" yaml:"targets,omitempty"`
}

// Scripted plays a fixed Script.
type Scripted struct {
	mu     sync.Mutex
	script Script
	next   map[game.Step]int
}

// NewScripted returns an agent that plays s step by step.
func NewScripted(s Script) *Scripted {
	return &Scripted{script: s, next: map[game.Step]int{}}
}

func scriptAt[T any](s *Scripted, step game.Step, list []T, def T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.next[step]
	s.next[step]++
	switch {
	case len(list) == 0:
		return def
	case i < len(list):
		return list[i]
	}
	return list[len(list)-1]
}

func (s *Scripted) Communicate(context.Context, game.Request) (game.Communication, error) {
	return scriptAt(s, game.StepCommunicate, s.script.Messages, game.Communication{}), nil
}

func (s *Scripted) RespondToDraw(context.Context, game.Request, string) (bool, error) {
	return scriptAt(s, game.StepDrawResponse, s.script.Accepts, false), nil
}

func (s *Scripted) ChooseItem(context.Context, game.Request) (game.ItemChoice, error) {
	return game.ItemChoice{Name: scriptAt(s, game.StepItem, s.script.Items, "")}, nil
}

func (s *Scripted) ChooseTarget(context.Context, game.Request) (game.Target, error) {
	return scriptAt(s, game.StepTarget, s.script.Targets, game.TargetOpponent), nil
}

// Replay feeds back one player's recorded decisions. Attempts that failed in
// the recorded game fail again, so retries and forced defaults recur when the
// engine uses the recorded attempt limit.
type Replay struct {
	mu        sync.Mutex
	player    string
	decisions []game.Decision
	pos       int

	// OnExhausted, when set, runs when a decision is asked for after the
	// recording ran out.
	OnExhausted func()
}

// NewReplay builds a Replay from the decision events of actor.
func NewReplay(rec *game.Record, actor string) *Replay {
	return &Replay{player: actor, decisions: rec.Decisions(actor)}
}

// Remaining reports how many recorded decisions were not consumed.
func (r *Replay) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.decisions) - r.pos
}

func (r *Replay) take(step game.Step, attempt int) (game.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos >= len(r.decisions) {
		if r.OnExhausted != nil {
			r.OnExhausted()
		}
		return game.Decision{}, &game.ProtocolError{Step: step, Reason: fmt.Sprintf("replay of %s has no decision left", r.player)}
	}
	d := r.decisions[r.pos]
	if d.Step != step {
		return game.Decision{}, &game.ProtocolError{Step: step, Reason: fmt.Sprintf("replay of %s diverged: recorded %s", r.player, d.Step)}
	}
	last := attempt >= d.Attempts-1
	if d.Forced || !last {
		if last {
			r.pos++
		}
		return game.Decision{}, &game.ProtocolError{Step: step, Reason: fmt.Sprintf("recorded attempt %d failed", attempt+1)}
	}
	r.pos++
	return d, nil
}

func (r *Replay) Communicate(_ context.Context, req game.Request) (game.Communication, error) {
	d, err := r.take(game.StepCommunicate, req.Attempt)
	if err != nil {
		return game.Communication{}, err
	}
	return game.Communication{Message: d.Message, ProposeDraw: d.ProposeDraw}, nil
}

func (r *Replay) RespondToDraw(_ context.Context, req game.Request, _ string) (bool, error) {
	d, err := r.take(game.StepDrawResponse, req.Attempt)
	if err != nil {
		return false, err
	}
	return d.Accept, nil
}

func (r *Replay) ChooseItem(_ context.Context, req game.Request) (game.ItemChoice, error) {
	d, err := r.take(game.StepItem, req.Attempt)
	if err != nil {
		return game.ItemChoice{}, err
	}
	return game.ItemChoice{Name: d.Item}, nil
}

func (r *Replay) ChooseTarget(_ context.Context, req game.Request) (game.Target, error) {
	d, err := r.take(game.StepTarget, req.Attempt)
	if err != nil {
		return 0, err
	}
	return d.Target, nil
}
