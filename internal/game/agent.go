package game

import "context"

// Step identifies which decision an agent is asked for.
type Step string

const (
	StepCommunicate  Step = "communicate"
	StepDrawResponse Step = "draw_response"
	StepItem         Step = "item"
	StepTarget       Step = "target"
)

// Request is one decision query. Attempt counts from 0; on retries Problem
// explains why the previous answer was rejected.
type Request struct {
	Snapshot Snapshot
	Attempt  int
	Problem  string
}

// Communication is a player's table talk for the turn.
type Communication struct {
	Message     string `json:"message" yaml:"message"`
	ProposeDraw bool   `json:"propose_draw" yaml:"propose_draw"`
}

// ItemChoice names the item to use. An empty Name means no item.
type ItemChoice struct {
	Name string `json:"item" yaml:"item"`
}

// Agent decides one player's actions. Implementations must honor ctx and
// must not retain or mutate the snapshot.
type Agent interface {
	Communicate(ctx context.Context, req Request) (Communication, error)
	RespondToDraw(ctx context.Context, req Request, proposal string) (bool, error)
	ChooseItem(ctx context.Context, req Request) (ItemChoice, error)
	ChooseTarget(ctx context.Context, req Request) (Target, error)
}
