package game

import (
	"fmt"

	"github.com/lorenzotomasdiez/roulette-duel/internal/revolver"
)

// OutcomeKind classifies how a game ended.
type OutcomeKind int

const (
	Ongoing OutcomeKind = iota
	Shot
	Draw
	ContractLoss
)

func (k OutcomeKind) String() string {
	switch k {
	case Ongoing:
		return "ongoing"
	case Shot:
		return "shot"
	case Draw:
		return "draw"
	case ContractLoss:
		return "contract_loss"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

func (k OutcomeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *OutcomeKind) UnmarshalText(b []byte) error {
	for _, c := range []OutcomeKind{Ongoing, Shot, Draw, ContractLoss} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("game: unknown outcome %q", string(b))
}

// Outcome is the terminal result. Loser is set only for Shot.
type Outcome struct {
	Kind   OutcomeKind `json:"kind" yaml:"kind"`
	Loser  string      `json:"loser,omitempty" yaml:"loser,omitempty"`
	Reason string      `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (o Outcome) Terminal() bool { return o.Kind != Ongoing }

func (o Outcome) String() string {
	switch o.Kind {
	case Shot:
		return fmt.Sprintf("%s was shot", o.Loser)
	case Draw:
		if o.Reason != "" {
			return "draw (" + o.Reason + ")"
		}
		return "draw"
	case ContractLoss:
		return "contract loss: both players die"
	}
	return "ongoing"
}

// KnownChamber is private knowledge gained from a Check.
type KnownChamber struct {
	Chamber int  `json:"chamber" yaml:"chamber"`
	Loaded  bool `json:"loaded" yaml:"loaded"`
	Turn    int  `json:"turn" yaml:"turn"`
}

// State is the full mutable game state. Only the engine mutates it.
type State struct {
	Revolver      *revolver.Revolver
	Players       [2]*Player
	Channel       *Channel
	ContractTurns int
	TurnOwner     int
	Turn          int
	Round         int
	Outcome       Outcome

	initialBullets int
	history        []string
	known          [2][]KnownChamber
	notes          [2][]string
}

// Snapshot is the read-only view handed to one player's agent.
type Snapshot struct {
	Self           PlayerView
	Opponent       OpponentView
	Chambers       int
	Trigger        int
	InitialBullets int
	ContractTurns  int
	Turn           int
	Round          int
	Transcript     []Message
	History        []string
	Known          []KnownChamber
	Notes          []string
}

// PlayerView is what a player knows about themselves.
type PlayerView struct {
	Name      string
	RoleName  string
	RoleStyle string
	Inventory Inventory
}

// OpponentView is what a player knows about the other side.
type OpponentView struct {
	Name      string
	RoleName  string
	ItemCount int
}

// Snapshot builds the view for seat. It never exposes bullet positions.
func (st *State) Snapshot(seat int) Snapshot {
	self := st.Players[seat]
	opp := st.Players[Opponent(seat)]
	return Snapshot{
		Self: PlayerView{
			Name:      self.Name,
			RoleName:  self.RoleName,
			RoleStyle: self.RoleStyle,
			Inventory: self.Inventory.Clone(),
		},
		Opponent: OpponentView{
			Name:      opp.Name,
			RoleName:  opp.RoleName,
			ItemCount: opp.Inventory.Total(),
		},
		Chambers:       st.Revolver.Size(),
		Trigger:        st.Revolver.Trigger(),
		InitialBullets: st.initialBullets,
		ContractTurns:  st.ContractTurns,
		Turn:           st.Turn,
		Round:          st.Round,
		Transcript:     st.Channel.Transcript(),
		History:        append([]string(nil), st.history...),
		Known:          append([]KnownChamber(nil), st.known[seat]...),
		Notes:          append([]string(nil), st.notes[seat]...),
	}
}

// Seat returns the seat index of the named player, or -1.
func (st *State) Seat(name string) int {
	for i, p := range st.Players {
		if p.Name == name {
			return i
		}
	}
	return -1
}
