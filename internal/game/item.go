package game

import (
	"fmt"
	"slices"
	"strings"
)

// ItemKind enumerates the items a player can hold.
type ItemKind int

const (
	Bullet ItemKind = iota + 1
	Check
	Reverse
	Contract
	Push
)

// ContractLength is the number of turns a Contract stays active.
const ContractLength = 3

// AllItems lists every item kind in declaration order.
var AllItems = []ItemKind{Bullet, Check, Reverse, Contract, Push}

var itemNames = map[ItemKind]string{
	Bullet:   "Bullet",
	Check:    "Check",
	Reverse:  "Reverse",
	Contract: "Contract",
	Push:     "Push",
}

// String returns the display name of k.
func (k ItemKind) String() string {
	if name, ok := itemNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ItemKind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k ItemKind) Valid() bool {
	_, ok := itemNames[k]
	return ok
}

// ParseItemKind matches a name case-insensitively.
func ParseItemKind(s string) (ItemKind, bool) {
	s = strings.TrimSpace(s)
	for _, k := range AllItems {
		if strings.EqualFold(s, itemNames[k]) {
			return k, true
		}
	}
	return 0, false
}

// MarshalText encodes k by name so records stay readable.
func (k ItemKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("game: unknown item kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts any name ParseItemKind accepts.
func (k *ItemKind) UnmarshalText(b []byte) error {
	parsed, ok := ParseItemKind(string(b))
	if !ok {
		return fmt.Errorf("game: unknown item %q", string(b))
	}
	*k = parsed
	return nil
}

// Inventory counts the items one player holds.
type Inventory map[ItemKind]int

// NewInventory builds an inventory from a list of grants.
func NewInventory(items ...ItemKind) Inventory {
	inv := Inventory{}
	for _, k := range items {
		inv.Add(k, 1)
	}
	return inv
}

// Count returns how many items of kind k are held.
func (inv Inventory) Count(k ItemKind) int { return inv[k] }

// Add grants n items of kind k.
func (inv Inventory) Add(k ItemKind, n int) {
	if n <= 0 {
		return
	}
	inv[k] += n
}

// Take removes one item of kind k.
func (inv Inventory) Take(k ItemKind) error {
	if inv[k] <= 0 {
		return fmt.Errorf("%w: %s", ErrItemUnavailable, k)
	}
	inv[k]--
	if inv[k] == 0 {
		delete(inv, k)
	}
	return nil
}

// Total is the number of items held across all kinds.
func (inv Inventory) Total() int {
	n := 0
	for _, c := range inv {
		n += c
	}
	return n
}

// Kinds returns the held kinds in declaration order.
func (inv Inventory) Kinds() []ItemKind {
	var kinds []ItemKind
	for _, k := range AllItems {
		if inv[k] > 0 {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Clone returns an independent copy.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for k, c := range inv {
		if c > 0 {
			out[k] = c
		}
	}
	return out
}

// String lists the held items, e.g. "Bullet x2, Check".
func (inv Inventory) String() string {
	kinds := inv.Kinds()
	if len(kinds) == 0 {
		return "None"
	}
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if inv[k] > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", k, inv[k]))
		} else {
			parts = append(parts, k.String())
		}
	}
	return strings.Join(parts, ", ")
}

// Effect describes the result of using an item.
type Effect struct {
	Item    ItemKind
	Detail  string // spectator view
	Public  string // what both players see
	Private string // only the acting player sees this
	NoOp    bool
	Known   *KnownChamber
}

// UseItem consumes one item of kind from the actor and applies its effect.
func UseItem(st *State, actor int, kind ItemKind) (Effect, error) {
	p := st.Players[actor]
	opp := st.Players[Opponent(actor)]
	if !kind.Valid() {
		return Effect{}, fmt.Errorf("%w: unknown kind %d", ErrItemUnavailable, int(kind))
	}
	if err := p.Inventory.Take(kind); err != nil {
		return Effect{}, err
	}

	eff := Effect{Item: kind, Public: p.Name + " used an item"}
	switch kind {
	case Bullet:
		idx, err := st.Revolver.AddBullet()
		if err != nil {
			eff.NoOp = true
			eff.Detail = "all chambers already loaded, Bullet has no effect"
			eff.Private = "All chambers were already loaded; the Bullet had no effect"
			break
		}
		eff.Detail = fmt.Sprintf("bullet added to chamber %d", idx+1)
		eff.Private = "An extra bullet was loaded into a random empty chamber"
	case Check:
		pos := st.Revolver.Trigger()
		loaded := st.Revolver.Peek(0)
		eff.Known = &KnownChamber{Chamber: pos, Loaded: loaded, Turn: st.Turn}
		eff.Detail = fmt.Sprintf("checked chamber %d: %s", pos+1, loadedWord(loaded))
		eff.Private = fmt.Sprintf("Chamber %d (under the trigger) %s", pos+1, map[bool]string{true: "holds a bullet", false: "is empty"}[loaded])
	case Reverse:
		opp.Modifiers.ReversedNextAction = true
		eff.Detail = fmt.Sprintf("%s's next shot will be reversed", opp.Name)
		eff.Private = fmt.Sprintf("%s's next shot will be reversed", opp.Name)
	case Contract:
		if st.ContractTurns > 0 {
			eff.Detail = fmt.Sprintf("contract renewed from %d to %d turns", st.ContractTurns, ContractLength)
		} else {
			eff.Detail = fmt.Sprintf("contract active for %d turns", ContractLength)
		}
		st.ContractTurns = ContractLength
		eff.Public = fmt.Sprintf("%s signed a Contract: for the next %d turns any hit kills both players", p.Name, ContractLength)
	case Push:
		st.Revolver.Advance(1)
		eff.Detail = fmt.Sprintf("trigger pushed to chamber %d", st.Revolver.Trigger()+1)
		eff.Public = fmt.Sprintf("%s used an item; the trigger is now at chamber %d", p.Name, st.Revolver.Trigger()+1)
	default:
		return Effect{}, &InvariantError{Reason: fmt.Sprintf("no resolution for item %s", kind)}
	}
	return eff, nil
}

// DealItems hands out ceil(chambers/3) items per player from a shuffled pool
// holding every kind (players+2) times.
func DealItems(shuffle func(n int, swap func(i, j int)), chambers, players int) [][]ItemKind {
	var pool []ItemKind
	for range players + 2 {
		pool = append(pool, AllItems...)
	}
	shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	per := (chambers + 2) / 3
	hands := make([][]ItemKind, players)
	for i := range players {
		end := min((i+1)*per, len(pool))
		start := min(i*per, end)
		hands[i] = slices.Clone(pool[start:end])
	}
	return hands
}

func loadedWord(loaded bool) string {
	if loaded {
		return "loaded"
	}
	return "empty"
}
