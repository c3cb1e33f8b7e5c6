package game

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/lorenzotomasdiez/roulette-duel/internal/revolver"
)

func newTestState(t *testing.T, chambers []bool, itemsA, itemsB []ItemKind) *State {
	t.Helper()
	rev, err := revolver.FromChambers(chambers, 0, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("FromChambers: %v", err)
	}
	return &State{
		Revolver: rev,
		Players: [2]*Player{
			{Name: "A", RoleName: "r", Inventory: NewInventory(itemsA...), Alive: true},
			{Name: "B", RoleName: "r", Inventory: NewInventory(itemsB...), Alive: true},
		},
		Channel: NewChannel(),
		Turn:    1,
		Round:   1,
	}
}

func TestParseItemKind(t *testing.T) {
	tests := []struct {
		in   string
		want ItemKind
		ok   bool
	}{
		{"Bullet", Bullet, true},
		{"check", Check, true},
		{" REVERSE ", Reverse, true},
		{"contract", Contract, true},
		{"push", Push, true},
		{"grenade", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseItemKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseItemKind(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInventory(t *testing.T) {
	inv := NewInventory(Check, Check, Push)
	if inv.Total() != 3 || inv.Count(Check) != 2 {
		t.Fatalf("unexpected inventory %v", inv)
	}
	if got := inv.String(); got != "Check x2, Push" {
		t.Errorf("String() = %q", got)
	}
	if err := inv.Take(Push); err != nil {
		t.Fatalf("Take(Push): %v", err)
	}
	if err := inv.Take(Push); !errors.Is(err, ErrItemUnavailable) {
		t.Errorf("second Take(Push) = %v, want ErrItemUnavailable", err)
	}
	if _, ok := inv[Push]; ok {
		t.Error("empty kinds should be removed")
	}
	if got := (Inventory{}).String(); got != "None" {
		t.Errorf("empty String() = %q", got)
	}
	clone := inv.Clone()
	clone.Add(Bullet, 1)
	if inv.Count(Bullet) != 0 {
		t.Error("Clone must not share storage")
	}
}

func TestUseItemUnavailable(t *testing.T) {
	st := newTestState(t, layout(6, 2), nil, nil)
	if _, err := UseItem(st, 0, Check); !errors.Is(err, ErrItemUnavailable) {
		t.Errorf("expected ErrItemUnavailable, got %v", err)
	}
}

func TestUseBulletLoadsEmptyChamber(t *testing.T) {
	st := newTestState(t, layout(6, 2), []ItemKind{Bullet}, nil)
	eff, err := UseItem(st, 0, Bullet)
	if err != nil {
		t.Fatalf("UseItem: %v", err)
	}
	if eff.NoOp || st.Revolver.Loaded() != 2 {
		t.Errorf("expected a second bullet, loaded=%d noop=%v", st.Revolver.Loaded(), eff.NoOp)
	}
	if eff.Public != "A used an item" {
		t.Errorf("Bullet should stay hidden from the opponent, public = %q", eff.Public)
	}
}

func TestUseBulletWhenFullIsNoOp(t *testing.T) {
	st := newTestState(t, []bool{true, true}, []ItemKind{Bullet}, nil)
	eff, err := UseItem(st, 0, Bullet)
	if err != nil {
		t.Fatalf("UseItem: %v", err)
	}
	if !eff.NoOp {
		t.Error("expected a no-op when every chamber is loaded")
	}
	if st.Players[0].Inventory.Count(Bullet) != 0 {
		t.Error("the item is consumed even without effect")
	}
}

func TestUseCheckRevealsTriggerChamber(t *testing.T) {
	st := newTestState(t, layout(6, 0), []ItemKind{Check}, nil)
	eff, err := UseItem(st, 0, Check)
	if err != nil {
		t.Fatalf("UseItem: %v", err)
	}
	if eff.Known == nil || eff.Known.Chamber != 0 || !eff.Known.Loaded {
		t.Errorf("Known = %+v, want chamber 0 loaded", eff.Known)
	}
	if st.Revolver.Trigger() != 0 || !st.Revolver.Peek(0) {
		t.Error("Check must not change the revolver")
	}
}

func TestUseReverseFlagsOpponent(t *testing.T) {
	st := newTestState(t, layout(6, 0), []ItemKind{Reverse}, nil)
	if _, err := UseItem(st, 0, Reverse); err != nil {
		t.Fatalf("UseItem: %v", err)
	}
	if !st.Players[1].Modifiers.ReversedNextAction {
		t.Error("opponent should carry the reverse flag")
	}
	if st.Players[0].Modifiers.ReversedNextAction {
		t.Error("actor must not be flagged")
	}
}

func TestUseContractRenewsToFullLength(t *testing.T) {
	st := newTestState(t, layout(6, 0), []ItemKind{Contract}, []ItemKind{Contract})
	if _, err := UseItem(st, 0, Contract); err != nil {
		t.Fatalf("UseItem: %v", err)
	}
	if st.ContractTurns != ContractLength {
		t.Fatalf("ContractTurns = %d", st.ContractTurns)
	}
	st.ContractTurns = 1
	eff, err := UseItem(st, 1, Contract)
	if err != nil {
		t.Fatalf("UseItem: %v", err)
	}
	if st.ContractTurns != ContractLength {
		t.Errorf("renewal should reset to %d, got %d", ContractLength, st.ContractTurns)
	}
	if eff.Public == "B used an item" {
		t.Error("Contract is announced publicly")
	}
}

func TestUsePushAdvancesTrigger(t *testing.T) {
	st := newTestState(t, layout(6, 0), []ItemKind{Push}, nil)
	if _, err := UseItem(st, 0, Push); err != nil {
		t.Fatalf("UseItem: %v", err)
	}
	if st.Revolver.Trigger() != 1 {
		t.Errorf("trigger = %d, want 1", st.Revolver.Trigger())
	}
	if !st.Revolver.Chambers()[0] {
		t.Error("Push must not fire the skipped chamber")
	}
}

func TestDealItems(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	hands := DealItems(rng.Shuffle, 8, 2)
	if len(hands) != 2 {
		t.Fatalf("hands = %d", len(hands))
	}
	for i, h := range hands {
		if len(h) != 3 {
			t.Errorf("hand %d has %d items, want 3", i, len(h))
		}
		for _, k := range h {
			if !k.Valid() {
				t.Errorf("hand %d holds invalid kind %d", i, k)
			}
		}
	}

	again := DealItems(rand.New(rand.NewSource(3)).Shuffle, 8, 2)
	for i := range hands {
		for j := range hands[i] {
			if hands[i][j] != again[i][j] {
				t.Fatal("same seed should deal the same hands")
			}
		}
	}
}

func TestDealItemsCapsAtPool(t *testing.T) {
	hands := DealItems(rand.New(rand.NewSource(1)).Shuffle, 60, 2)
	total := len(hands[0]) + len(hands[1])
	if total != len(AllItems)*4 {
		t.Errorf("dealt %d items, want the whole pool of %d", total, len(AllItems)*4)
	}
}

func TestTargetParsing(t *testing.T) {
	for in, want := range map[string]Target{"self": TargetSelf, "Me": TargetSelf, "opponent": TargetOpponent, " other ": TargetOpponent} {
		got, ok := ParseTarget(in)
		if !ok || got != want {
			t.Errorf("ParseTarget(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseTarget("sky"); ok {
		t.Error("ParseTarget should reject unknown targets")
	}
	if TargetSelf.Flip() != TargetOpponent || TargetOpponent.Flip() != TargetSelf {
		t.Error("Flip should swap sides")
	}
}
