package game

import (
	"fmt"
	"strings"
)

// Modifiers are transient effects carried by a player across turns.
type Modifiers struct {
	ReversedNextAction bool `json:"reversed_next_action" yaml:"reversed_next_action"`
}

// Player is one duelist. RoleStyle is passed to the decision agent untouched.
type Player struct {
	Name      string
	RoleName  string
	RoleStyle string
	Inventory Inventory
	Alive     bool
	Modifiers Modifiers
}

// Opponent returns the other seat in a two-player game.
func Opponent(seat int) int { return 1 - seat }

// Target is the side a shot is aimed at, relative to the shooter.
type Target int

const (
	TargetSelf Target = iota + 1
	TargetOpponent
)

func (t Target) String() string {
	switch t {
	case TargetSelf:
		return "self"
	case TargetOpponent:
		return "opponent"
	}
	return fmt.Sprintf("Target(%d)", int(t))
}

func (t Target) Valid() bool { return t == TargetSelf || t == TargetOpponent }

// Flip swaps self and opponent.
func (t Target) Flip() Target {
	if t == TargetSelf {
		return TargetOpponent
	}
	return TargetSelf
}

// ParseTarget accepts "self"/"opponent" and a few common synonyms.
func ParseTarget(s string) (Target, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "self", "me", "myself":
		return TargetSelf, true
	case "opponent", "other", "enemy":
		return TargetOpponent, true
	}
	return 0, false
}

func (t Target) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return []byte(""), nil
	}
	return []byte(t.String()), nil
}

func (t *Target) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = 0
		return nil
	}
	parsed, ok := ParseTarget(string(b))
	if !ok {
		return fmt.Errorf("game: unknown target %q", string(b))
	}
	*t = parsed
	return nil
}
