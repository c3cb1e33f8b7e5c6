package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lorenzotomasdiez/roulette-duel/internal/game"
	"github.com/lorenzotomasdiez/roulette-duel/internal/llm"
)

func testSnapshot() game.Snapshot {
	return game.Snapshot{
		Self: game.PlayerView{
			Name:      "Bill",
			RoleName:  "Gambler",
			RoleStyle: "Aggressive and bold",
			Inventory: game.NewInventory(game.Check, game.Check, game.Push),
		},
		Opponent:       game.OpponentView{Name: "Lee", RoleName: "Detective", ItemCount: 2},
		Chambers:       8,
		Trigger:        2,
		InitialBullets: 3,
		ContractTurns:  2,
		Turn:           3,
		Round:          2,
		Transcript:     []game.Message{{Turn: 2, Round: 1, Speaker: "Lee", Text: "I know where it is.", Proposal: true}},
		History:        []string{"Turn 1: Bill shoots Bill at chamber 1: empty"},
		Known:          []game.KnownChamber{{Chamber: 2, Loaded: true, Turn: 3}},
		Notes:          []string{"Turn 3: Chamber 3 (under the trigger) holds a bullet"},
	}
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"plain", `{"target": "self"}`, true},
		{"code block", "Thinking...\n```json\n{\"target\": \"opponent\"}\n```", true},
		{"bare code block", "```\n{\"target\": \"self\"}\n```", true},
		{"embedded", `I will do it. {"target": "self"} That's final.`, true},
		{"prose", "I shoot myself.", false},
		{"broken", `{"target": `, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r targetReply
			if got := parseJSON(tt.raw, &r); got != tt.ok {
				t.Errorf("parseJSON(%q) = %v, want %v", tt.raw, got, tt.ok)
			}
		})
	}
}

func replying(reply string) llm.Completer {
	return llm.CompleterFunc(func(context.Context, []llm.Message) (string, error) {
		return reply, nil
	})
}

func TestLLMChooseTarget(t *testing.T) {
	a := NewLLM(replying("```json\n{\"target\": \"Opponent\"}\n```"))
	got, err := a.ChooseTarget(context.Background(), game.Request{Snapshot: testSnapshot()})
	if err != nil {
		t.Fatalf("ChooseTarget: %v", err)
	}
	if got != game.TargetOpponent {
		t.Errorf("target = %v", got)
	}
}

func TestLLMMalformedRepliesAreProtocolErrors(t *testing.T) {
	ctx := context.Background()
	req := game.Request{Snapshot: testSnapshot()}
	var perr *game.ProtocolError

	if _, err := NewLLM(replying(`{"target": "ceiling"}`)).ChooseTarget(ctx, req); !errors.As(err, &perr) {
		t.Errorf("unknown target: expected ProtocolError, got %v", err)
	}
	if _, err := NewLLM(replying("I pull the trigger.")).ChooseTarget(ctx, req); !errors.As(err, &perr) || perr.Raw != "I pull the trigger." {
		t.Errorf("prose: expected ProtocolError with raw reply, got %v", err)
	}
	if _, err := NewLLM(replying(`{"propose_draw": true}`)).Communicate(ctx, req); !errors.As(err, &perr) {
		t.Errorf("missing message: expected ProtocolError, got %v", err)
	}
	if _, err := NewLLM(replying(`{"reason": "no"}`)).RespondToDraw(ctx, req, "truce"); !errors.As(err, &perr) {
		t.Errorf("missing accept: expected ProtocolError, got %v", err)
	}
	if _, err := NewLLM(replying(`{}`)).ChooseItem(ctx, req); !errors.As(err, &perr) {
		t.Errorf("missing item: expected ProtocolError, got %v", err)
	}
}

func TestLLMTransportErrorIsNotProtocolError(t *testing.T) {
	boom := errors.New("connection reset")
	a := NewLLM(llm.CompleterFunc(func(context.Context, []llm.Message) (string, error) { return "", boom }))
	_, err := a.ChooseItem(context.Background(), game.Request{Snapshot: testSnapshot()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	var perr *game.ProtocolError
	if errors.As(err, &perr) {
		t.Error("transport failures are not protocol errors")
	}
}

func TestLLMDecisions(t *testing.T) {
	ctx := context.Background()
	req := game.Request{Snapshot: testSnapshot()}

	comm, err := NewLLM(replying(`{"message": "  Your move.  ", "propose_draw": true}`)).Communicate(ctx, req)
	if err != nil || comm.Message != "Your move." || !comm.ProposeDraw {
		t.Errorf("Communicate = %+v, %v", comm, err)
	}
	accept, err := NewLLM(replying(`{"accept": true, "reason": "fair"}`)).RespondToDraw(ctx, req, "truce")
	if err != nil || !accept {
		t.Errorf("RespondToDraw = %v, %v", accept, err)
	}
	item, err := NewLLM(replying(`{"item": "none"}`)).ChooseItem(ctx, req)
	if err != nil || item.Name != "none" {
		t.Errorf("ChooseItem = %+v, %v", item, err)
	}
}

func TestBuildMessages(t *testing.T) {
	snap := testSnapshot()
	msgs, err := buildMessages(game.Request{Snapshot: snap}, game.StepTarget, "")
	if err != nil {
		t.Fatalf("buildMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != llm.RoleSystem || msgs[1].Role != llm.RoleUser {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	system, user := msgs[0].Content, msgs[1].Content
	for _, want := range []string{"You are Bill, playing as Gambler.", "Aggressive and bold", "Lee (Detective)", "8 chambers", "3 of them were loaded"} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing %q:\n%s", want, system)
		}
	}
	for _, want := range []string{
		"Turn 3, round 2.",
		"The trigger is at chamber 3 of 8.",
		"active, 2 turn(s) left",
		"Your items: Check x2, Push",
		"Lee holds 2 item(s).",
		"chamber 3 was loaded on turn 3",
		"Turn 1: Bill shoots Bill at chamber 1: empty",
		"Lee (turn 2): I know where it is. [proposes a draw]",
		`{"target": "self"}`,
	} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q:\n%s", want, user)
		}
	}
}

func TestBuildMessagesRetryAddsProblem(t *testing.T) {
	msgs, err := buildMessages(game.Request{Snapshot: testSnapshot(), Attempt: 1, Problem: "reply is not a JSON object"}, game.StepItem, "")
	if err != nil {
		t.Fatalf("buildMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected a clarifying message, got %d messages", len(msgs))
	}
	if !strings.Contains(msgs[2].Content, "reply is not a JSON object") {
		t.Errorf("clarification should name the problem: %q", msgs[2].Content)
	}
}

func TestBuildMessagesDrawResponseQuotesProposal(t *testing.T) {
	msgs, err := buildMessages(game.Request{Snapshot: testSnapshot()}, game.StepDrawResponse, "Let's call it even.")
	if err != nil {
		t.Fatalf("buildMessages: %v", err)
	}
	if !strings.Contains(msgs[1].Content, `Lee proposes a draw: "Let's call it even."`) {
		t.Errorf("draw prompt missing proposal:\n%s", msgs[1].Content)
	}
}

func TestBuildMessagesEmptyState(t *testing.T) {
	snap := game.Snapshot{
		Self:     game.PlayerView{Name: "A", RoleName: "r", Inventory: game.Inventory{}},
		Opponent: game.OpponentView{Name: "B", RoleName: "r"},
		Chambers: 6,
		Turn:     1,
		Round:    1,
	}
	msgs, err := buildMessages(game.Request{Snapshot: snap}, game.StepCommunicate, "")
	if err != nil {
		t.Fatalf("buildMessages: %v", err)
	}
	user := msgs[1].Content
	for _, want := range []string{"Your items: None", "Contract: inactive", "- nothing yet", "- no messages yet"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q:\n%s", want, user)
		}
	}
	if strings.Contains(user, "Chambers you checked") {
		t.Error("no checks should mean no checked-chambers section")
	}
}

// stepCompleter answers by recognizing which instruction ended the prompt.
func stepCompleter(answers map[string]string) llm.Completer {
	return llm.CompleterFunc(func(_ context.Context, msgs []llm.Message) (string, error) {
		last := msgs[len(msgs)-1].Content
		for marker, reply := range answers {
			if strings.Contains(last, marker) {
				return reply, nil
			}
		}
		return "", errors.New("unexpected prompt")
	})
}

func TestLLMAgentsPlayFullGame(t *testing.T) {
	bill := NewLLM(stepCompleter(map[string]string{
		`{"message":`: `{"message": "You first... no, me first.", "propose_draw": false}`,
		`{"item":`:    `{"item": "none"}`,
		`{"target":`:  "Sure.\n```json\n{\"target\": \"self\"}\n```",
	}))
	lee := NewLLM(stepCompleter(map[string]string{
		`{"message":`: `{"message": "Steady.", "propose_draw": false}`,
		`{"item":`:    `{"item": "none"}`,
		`{"target":`:  `{"target": "self"}`,
	}))
	var replies int
	bill.OnReply = func(player string, _ game.Step, _ string) {
		if player != "Bill" {
			t.Errorf("OnReply player = %q", player)
		}
		replies++
	}

	setup := game.Setup{
		Seed:   5,
		Layout: []bool{false, false, false, true},
		Players: [2]game.PlayerSetup{
			{Name: "Bill", RoleName: "Gambler", Items: []game.ItemKind{}},
			{Name: "Lee", RoleName: "Detective", Items: []game.ItemKind{}},
		},
	}
	e, err := game.NewEngine(setup, [2]game.Agent{bill, lee}, game.Options{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	rec, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Outcome.Kind != game.Shot || rec.Outcome.Loser != "Lee" {
		t.Errorf("outcome = %+v, want Shot(Lee)", rec.Outcome)
	}
	if replies != 6 {
		t.Errorf("Bill replied %d times, want 6", replies)
	}
}
