package game

import (
	"errors"
	"fmt"
	"time"
)

// ErrItemUnavailable is returned when a player uses an item they do not hold.
var ErrItemUnavailable = errors.New("game: item unavailable")

// ConfigError reports invalid setup parameters. It is returned before any turn runs.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("game: config %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("game: config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// AgentTimeoutError is recorded when a decision call exceeds its deadline.
type AgentTimeoutError struct {
	Player  string
	Step    Step
	Timeout time.Duration
}

func (e *AgentTimeoutError) Error() string {
	return fmt.Sprintf("game: agent %s timed out after %s during %s", e.Player, e.Timeout, e.Step)
}

// ProtocolError is returned by agents whose reply cannot be turned into a decision.
type ProtocolError struct {
	Step   Step
	Reason string
	Raw    string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("game: malformed %s response: %s", e.Step, e.Reason)
}

// InvariantError means the engine reached a state its rules should make impossible.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "game: invariant violated: " + e.Reason
}
