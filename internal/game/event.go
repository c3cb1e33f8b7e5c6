package game

// EventKind names an entry in the game log.
type EventKind string

const (
	EventGameStarted    EventKind = "game_started"
	EventDecision       EventKind = "decision"
	EventAgentRetry     EventKind = "agent_retry"
	EventForcedDefault  EventKind = "forced_default"
	EventMessage        EventKind = "message"
	EventDrawProposed   EventKind = "draw_proposed"
	EventDrawResponse   EventKind = "draw_response"
	EventItemUsed       EventKind = "item_used"
	EventItemRejected   EventKind = "item_rejected"
	EventReverseApplied EventKind = "reverse_applied"
	EventShot           EventKind = "shot"
	EventContractTick   EventKind = "contract_tick"
	EventGameOver       EventKind = "game_over"
)

// Event is one entry of the game log. Detail is the spectator view; Public is
// the line players see, empty when the event is hidden from them.
type Event struct {
	Seq           int       `json:"seq" yaml:"seq"`
	Turn          int       `json:"turn" yaml:"turn"`
	Round         int       `json:"round" yaml:"round"`
	Actor         string    `json:"actor,omitempty" yaml:"actor,omitempty"`
	Kind          EventKind `json:"kind" yaml:"kind"`
	Detail        string    `json:"detail,omitempty" yaml:"detail,omitempty"`
	Public        string    `json:"public,omitempty" yaml:"public,omitempty"`
	Item          string    `json:"item,omitempty" yaml:"item,omitempty"`
	Target        string    `json:"target,omitempty" yaml:"target,omitempty"`
	Victim        string    `json:"victim,omitempty" yaml:"victim,omitempty"`
	Chamber       int       `json:"chamber,omitempty" yaml:"chamber,omitempty"`
	Loaded        bool      `json:"loaded,omitempty" yaml:"loaded,omitempty"`
	Trigger       int       `json:"trigger" yaml:"trigger"`
	ContractTurns int       `json:"contract_turns" yaml:"contract_turns"`
	Decision      *Decision `json:"decision,omitempty" yaml:"decision,omitempty"`
	Outcome       *Outcome  `json:"outcome,omitempty" yaml:"outcome,omitempty"`
}

// Decision is the value the engine applied for one agent query.
type Decision struct {
	Step        Step   `json:"step" yaml:"step"`
	Message     string `json:"message,omitempty" yaml:"message,omitempty"`
	ProposeDraw bool   `json:"propose_draw,omitempty" yaml:"propose_draw,omitempty"`
	Accept      bool   `json:"accept,omitempty" yaml:"accept,omitempty"`
	Item        string `json:"item,omitempty" yaml:"item,omitempty"`
	Target      Target `json:"target,omitempty" yaml:"target,omitempty"`
	Forced      bool   `json:"forced,omitempty" yaml:"forced,omitempty"`
	Attempts    int    `json:"attempts" yaml:"attempts"`
}

// Record is everything needed to audit or replay a finished game.
type Record struct {
	GameID        string  `json:"game_id" yaml:"game_id"`
	Setup         Setup   `json:"setup" yaml:"setup"`
	Outcome       Outcome `json:"outcome" yaml:"outcome"`
	Turns         int     `json:"turns" yaml:"turns"`
	MaxAttempts   int     `json:"max_attempts" yaml:"max_attempts"`
	Events        []Event `json:"events" yaml:"events"`
	FinalChambers []bool  `json:"final_chambers" yaml:"final_chambers"`
}

// Decisions returns the decision events of one player in log order.
func (r *Record) Decisions(actor string) []Decision {
	var out []Decision
	for _, ev := range r.Events {
		if ev.Kind == EventDecision && ev.Actor == actor && ev.Decision != nil {
			out = append(out, *ev.Decision)
		}
	}
	return out
}
