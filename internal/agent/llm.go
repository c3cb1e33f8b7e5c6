// Package agent provides decision agents for the duel: LLM-backed players,
// a seeded random policy, scripted players and replays of recorded games.
package agent

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/lorenzotomasdiez/roulette-duel/internal/game"
	"github.com/lorenzotomasdiez/roulette-duel/internal/llm"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	ParseFS(promptFS, "prompts/*.tmpl"))

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// LLM asks a language model for every decision.
type LLM struct {
	completer llm.Completer

	// OnReply, when set, receives every raw model reply.
	OnReply func(player string, step game.Step, raw string)
}

// NewLLM wraps a completion client as a game agent.
func NewLLM(c llm.Completer) *LLM {
	return &LLM{completer: c}
}

type promptData struct {
	game.Snapshot
	Proposal       string
	ContractLength int
}

type communicateReply struct {
	Message     *string `json:"message"`
	ProposeDraw bool    `json:"propose_draw"`
}

type drawReply struct {
	Accept *bool  `json:"accept"`
	Reason string `json:"reason"`
}

type itemReply struct {
	Item *string `json:"item"`
}

type targetReply struct {
	Target string `json:"target"`
}

// Communicate asks the model for its table talk and draw proposal.
func (a *LLM) Communicate(ctx context.Context, req game.Request) (game.Communication, error) {
	var r communicateReply
	if err := a.decide(ctx, req, game.StepCommunicate, "", &r); err != nil {
		return game.Communication{}, err
	}
	if r.Message == nil {
		return game.Communication{}, &game.ProtocolError{Step: game.StepCommunicate, Reason: `missing "message" field`}
	}
	return game.Communication{Message: strings.TrimSpace(*r.Message), ProposeDraw: r.ProposeDraw}, nil
}

// RespondToDraw asks the model to accept or refuse the proposal.
func (a *LLM) RespondToDraw(ctx context.Context, req game.Request, proposal string) (bool, error) {
	var r drawReply
	if err := a.decide(ctx, req, game.StepDrawResponse, proposal, &r); err != nil {
		return false, err
	}
	if r.Accept == nil {
		return false, &game.ProtocolError{Step: game.StepDrawResponse, Reason: `missing "accept" field`}
	}
	return *r.Accept, nil
}

// ChooseItem asks the model for an item to use, or none.
func (a *LLM) ChooseItem(ctx context.Context, req game.Request) (game.ItemChoice, error) {
	var r itemReply
	if err := a.decide(ctx, req, game.StepItem, "", &r); err != nil {
		return game.ItemChoice{}, err
	}
	if r.Item == nil {
		return game.ItemChoice{}, &game.ProtocolError{Step: game.StepItem, Reason: `missing "item" field`}
	}
	return game.ItemChoice{Name: *r.Item}, nil
}

// ChooseTarget asks the model where to point the revolver.
func (a *LLM) ChooseTarget(ctx context.Context, req game.Request) (game.Target, error) {
	var r targetReply
	if err := a.decide(ctx, req, game.StepTarget, "", &r); err != nil {
		return 0, err
	}
	t, ok := game.ParseTarget(r.Target)
	if !ok {
		return 0, &game.ProtocolError{Step: game.StepTarget, Reason: fmt.Sprintf(`"target" must be "self" or "opponent", got %q`, r.Target)}
	}
	return t, nil
}

func (a *LLM) decide(ctx context.Context, req game.Request, step game.Step, proposal string, out any) error {
	msgs, err := buildMessages(req, step, proposal)
	if err != nil {
		return err
	}
	raw, err := a.completer.Complete(ctx, msgs)
	if err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if a.OnReply != nil {
		a.OnReply(req.Snapshot.Self.Name, step, raw)
	}
	if !parseJSON(raw, out) {
		return &game.ProtocolError{Step: step, Reason: "reply is not a JSON object", Raw: raw}
	}
	return nil
}

func buildMessages(req game.Request, step game.Step, proposal string) ([]llm.Message, error) {
	data := promptData{Snapshot: req.Snapshot, Proposal: proposal, ContractLength: game.ContractLength}

	system, err := render("system.tmpl", data)
	if err != nil {
		return nil, err
	}
	state, err := render("state.tmpl", data)
	if err != nil {
		return nil, err
	}
	instruction, err := render(string(step)+".tmpl", data)
	if err != nil {
		return nil, err
	}

	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: state + "\n\n" + instruction},
	}
	if req.Attempt > 0 {
		msgs = append(msgs, llm.Message{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Your previous response was rejected: %s. Return ONLY a JSON object, no markdown, no explanation.", req.Problem),
		})
	}
	return msgs, nil
}

func render(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("agent: render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// parseJSON decodes raw into out, trying the whole reply, then a fenced code
// block, then the span from the first { to the last }.
func parseJSON(raw string, out any) bool {
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), out); err == nil {
		return true
	}

	if matches := codeBlockRe.FindStringSubmatch(raw); len(matches) > 1 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(matches[1])), out); err == nil {
			return true
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), out); err == nil {
			return true
		}
	}
	return false
}
