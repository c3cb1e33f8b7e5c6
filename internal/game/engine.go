package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lorenzotomasdiez/roulette-duel/internal/revolver"
)

const (
	DefaultMaxAttempts  = 3
	DefaultAgentTimeout = 90 * time.Second
)

// PlayerSetup declares one seat. A nil Items list means the player is dealt
// a random hand; the engine's Setup then lists the dealt hand.
type PlayerSetup struct {
	Name      string     `json:"name" yaml:"name"`
	RoleName  string     `json:"role" yaml:"role"`
	RoleStyle string     `json:"style" yaml:"style"`
	Items     []ItemKind `json:"items" yaml:"items"`
}

// Setup is the full configuration of one game. Bullets == 0 picks a random
// count in [1, Chambers/2]. Layout, when set, fixes the chamber contents and
// overrides Chambers and Bullets.
type Setup struct {
	GameID      string         `json:"game_id" yaml:"game_id"`
	Seed        int64          `json:"seed" yaml:"seed"`
	Chambers    int            `json:"chambers" yaml:"chambers"`
	Bullets     int            `json:"bullets" yaml:"bullets"`
	FirstPlayer int            `json:"first_player" yaml:"first_player"`
	Players     [2]PlayerSetup `json:"players" yaml:"players"`
	Layout      []bool         `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// Options tunes the engine's handling of agents.
type Options struct {
	MaxAttempts  int
	AgentTimeout time.Duration
	MaxTurns     int // 0 derives a bound from the setup
	Logger       *log.Logger
}

// Engine runs one game between two agents. It is single-use.
type Engine struct {
	setup    Setup
	state    *State
	agents   [2]Agent
	opts     Options
	maxTurns int
	events   []Event
	started  bool
	OnEvent  func(Event)
}

// NewEngine validates the setup, loads the revolver and hands out items.
// Invalid setups return *ConfigError.
func NewEngine(setup Setup, agents [2]Agent, opts Options) (*Engine, error) {
	if err := validateSetup(&setup, agents); err != nil {
		return nil, err
	}
	if setup.GameID == "" {
		setup.GameID = uuid.NewString()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.AgentTimeout <= 0 {
		opts.AgentTimeout = DefaultAgentTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	rng := rand.New(rand.NewSource(setup.Seed))
	var rev *revolver.Revolver
	var err error
	if setup.Layout != nil {
		rev, err = revolver.FromChambers(setup.Layout, 0, rng)
	} else {
		bullets := setup.Bullets
		if bullets == 0 {
			bullets = 1 + rng.Intn(setup.Chambers/2)
		}
		rev, err = revolver.Load(rng, setup.Chambers, bullets)
	}
	if err != nil {
		return nil, &ConfigError{Field: "revolver", Reason: "cannot load", Err: err}
	}

	// Always deal so the random stream does not depend on which seats are declared.
	hands := DealItems(rng.Shuffle, rev.Size(), len(setup.Players))

	st := &State{
		Revolver:       rev,
		Channel:        NewChannel(),
		TurnOwner:      setup.FirstPlayer,
		Round:          1,
		initialBullets: rev.Loaded(),
	}
	totalItems := 0
	for i, ps := range setup.Players {
		items := ps.Items
		if items == nil {
			items = hands[i]
		}
		setup.Players[i].Items = append([]ItemKind{}, items...)
		st.Players[i] = &Player{
			Name:      ps.Name,
			RoleName:  ps.RoleName,
			RoleStyle: ps.RoleStyle,
			Inventory: NewInventory(items...),
			Alive:     true,
		}
		totalItems += len(items)
	}

	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		// Only Push can skip a loaded chamber, so each held item costs at most one extra lap.
		maxTurns = rev.Size() * (totalItems + 2)
	}

	return &Engine{
		setup:    setup,
		state:    st,
		agents:   agents,
		opts:     opts,
		maxTurns: maxTurns,
	}, nil
}

func validateSetup(s *Setup, agents [2]Agent) error {
	if s.Layout != nil {
		s.Chambers = len(s.Layout)
		loaded := 0
		for _, l := range s.Layout {
			if l {
				loaded++
			}
		}
		if loaded < 1 || loaded > len(s.Layout)/2 {
			return &ConfigError{Field: "layout", Reason: fmt.Sprintf("loaded chambers must be in [1, %d], got %d", len(s.Layout)/2, loaded)}
		}
		s.Bullets = loaded
	}
	if s.Chambers < 2 {
		return &ConfigError{Field: "chambers", Reason: fmt.Sprintf("must be >= 2, got %d", s.Chambers)}
	}
	if s.Bullets < 0 || s.Bullets > s.Chambers/2 {
		return &ConfigError{Field: "bullets", Reason: fmt.Sprintf("must be in [1, %d] or 0 for random, got %d", s.Chambers/2, s.Bullets)}
	}
	if s.FirstPlayer != 0 && s.FirstPlayer != 1 {
		return &ConfigError{Field: "first_player", Reason: fmt.Sprintf("must be 0 or 1, got %d", s.FirstPlayer)}
	}
	for i, p := range s.Players {
		field := fmt.Sprintf("players[%d]", i)
		if strings.TrimSpace(p.Name) == "" {
			return &ConfigError{Field: field + ".name", Reason: "is required"}
		}
		if strings.TrimSpace(p.RoleName) == "" {
			return &ConfigError{Field: field + ".role", Reason: "is required"}
		}
		for _, k := range p.Items {
			if !k.Valid() {
				return &ConfigError{Field: field + ".items", Reason: fmt.Sprintf("unknown item kind %d", int(k))}
			}
		}
		if agents[i] == nil {
			return &ConfigError{Field: field, Reason: "has no decision agent"}
		}
	}
	if s.Players[0].Name == s.Players[1].Name {
		return &ConfigError{Field: "players", Reason: fmt.Sprintf("names must differ, both are %q", s.Players[0].Name)}
	}
	return nil
}

// State exposes the live state for spectators. Callers must not mutate it.
func (e *Engine) State() *State { return e.state }

// Setup returns the validated setup, including the assigned game ID.
func (e *Engine) Setup() Setup { return e.setup }

// Run plays until a terminal outcome. Cancelling ctx ends the game as a draw
// at the next step boundary. Only invariant violations are returned as errors.
func (e *Engine) Run(ctx context.Context) (*Record, error) {
	if e.started {
		return nil, errors.New("game: engine already ran")
	}
	e.started = true
	e.emitStart()

	for !e.state.Outcome.Terminal() {
		if e.aborted(ctx) {
			break
		}
		if e.state.Turn >= e.maxTurns {
			return nil, &InvariantError{Reason: fmt.Sprintf("no outcome after %d turns", e.state.Turn)}
		}
		e.playTurn(ctx)
	}

	return &Record{
		GameID:        e.setup.GameID,
		Setup:         e.setup,
		Outcome:       e.state.Outcome,
		Turns:         e.state.Turn,
		MaxAttempts:   e.opts.MaxAttempts,
		Events:        append([]Event(nil), e.events...),
		FinalChambers: e.state.Revolver.Chambers(),
	}, nil
}

func (e *Engine) playTurn(ctx context.Context) {
	st := e.state
	st.Turn++
	seat := st.TurnOwner

	if e.communicate(ctx, seat) {
		return
	}
	if !e.useItem(ctx, seat) {
		return
	}
	target, ok := e.chooseTarget(ctx, seat)
	if !ok {
		return
	}
	e.fire(seat, target)
	if st.Outcome.Terminal() {
		return
	}

	st.TurnOwner = Opponent(seat)
	if st.Turn%2 == 0 {
		st.Channel.ResetRound()
		st.Round++
	}
}

// communicate runs the talk step and reports whether the game ended.
func (e *Engine) communicate(ctx context.Context, seat int) bool {
	st := e.state
	p := st.Players[seat]
	ans, ok := ask(ctx, e, seat, StepCommunicate, func(ctx context.Context, req Request) (Communication, error) {
		return e.agents[seat].Communicate(ctx, req)
	}, nil, Communication{})
	if !ok {
		return true
	}
	comm := ans.value
	e.decide(seat, Decision{Step: StepCommunicate, Message: comm.Message, ProposeDraw: comm.ProposeDraw, Forced: ans.forced, Attempts: ans.attempts})

	spoke := strings.TrimSpace(comm.Message) != ""
	if spoke || comm.ProposeDraw {
		st.Channel.Record(st.Turn, st.Round, p.Name, comm.Message, comm.ProposeDraw)
	}
	if spoke {
		e.emit(Event{Kind: EventMessage, Actor: p.Name, Detail: fmt.Sprintf("%s says: %s", p.Name, comm.Message)})
	}
	if !comm.ProposeDraw {
		return false
	}

	st.Channel.ProposeDraw(seat)
	e.emit(Event{
		Kind:   EventDrawProposed,
		Actor:  p.Name,
		Detail: fmt.Sprintf("%s proposes a draw", p.Name),
		Public: fmt.Sprintf("%s proposed a draw", p.Name),
	})

	opp := Opponent(seat)
	if !st.Channel.Proposed(opp) {
		resp, ok := ask(ctx, e, opp, StepDrawResponse, func(ctx context.Context, req Request) (bool, error) {
			return e.agents[opp].RespondToDraw(ctx, req, comm.Message)
		}, nil, false)
		if !ok {
			return true
		}
		e.decide(opp, Decision{Step: StepDrawResponse, Accept: resp.value, Forced: resp.forced, Attempts: resp.attempts})
		verdict := "declines"
		if resp.value {
			verdict = "accepts"
			st.Channel.ProposeDraw(opp)
		}
		line := fmt.Sprintf("%s %s the draw", st.Players[opp].Name, verdict)
		e.emit(Event{Kind: EventDrawResponse, Actor: st.Players[opp].Name, Detail: line, Public: line})
	}

	if st.Channel.Agreed() {
		e.finish(Outcome{Kind: Draw, Reason: "agreed"})
		return true
	}
	return false
}

// useItem runs the item step. It returns false when the game was aborted.
func (e *Engine) useItem(ctx context.Context, seat int) bool {
	st := e.state
	p := st.Players[seat]
	ans, ok := ask(ctx, e, seat, StepItem, func(ctx context.Context, req Request) (ItemChoice, error) {
		return e.agents[seat].ChooseItem(ctx, req)
	}, nil, ItemChoice{})
	if !ok {
		return false
	}
	name := strings.TrimSpace(ans.value.Name)
	e.decide(seat, Decision{Step: StepItem, Item: name, Forced: ans.forced, Attempts: ans.attempts})
	if name == "" || strings.EqualFold(name, "none") {
		return true
	}

	kind, known := ParseItemKind(name)
	if !known {
		e.emit(Event{Kind: EventItemRejected, Actor: p.Name, Item: name, Detail: fmt.Sprintf("%s named unknown item %q; no item used", p.Name, name)})
		e.opts.Logger.Printf("%s named unknown item %q", p.Name, name)
		return true
	}
	eff, err := UseItem(st, seat, kind)
	if err != nil {
		e.emit(Event{Kind: EventItemRejected, Actor: p.Name, Item: kind.String(), Detail: fmt.Sprintf("%s does not hold %s; no item used", p.Name, kind)})
		e.opts.Logger.Printf("%s: %v", p.Name, err)
		return true
	}
	if eff.Known != nil {
		st.known[seat] = append(st.known[seat], *eff.Known)
	}
	if eff.Private != "" {
		st.notes[seat] = append(st.notes[seat], fmt.Sprintf("Turn %d: %s", st.Turn, eff.Private))
	}
	if eff.NoOp {
		e.opts.Logger.Printf("%s used %s with no effect: %s", p.Name, kind, eff.Detail)
	}
	e.emit(Event{
		Kind:   EventItemUsed,
		Actor:  p.Name,
		Item:   kind.String(),
		Detail: fmt.Sprintf("%s used %s: %s", p.Name, kind, eff.Detail),
		Public: eff.Public,
	})
	return true
}

func (e *Engine) chooseTarget(ctx context.Context, seat int) (Target, bool) {
	st := e.state
	p := st.Players[seat]
	ans, ok := ask(ctx, e, seat, StepTarget, func(ctx context.Context, req Request) (Target, error) {
		return e.agents[seat].ChooseTarget(ctx, req)
	}, func(t Target) error {
		if !t.Valid() {
			return &ProtocolError{Step: StepTarget, Reason: "target must be self or opponent"}
		}
		return nil
	}, TargetOpponent)
	if !ok {
		return 0, false
	}
	e.decide(seat, Decision{Step: StepTarget, Target: ans.value, Forced: ans.forced, Attempts: ans.attempts})

	target := ans.value
	if p.Modifiers.ReversedNextAction {
		p.Modifiers.ReversedNextAction = false
		line := fmt.Sprintf("Reverse: %s aimed at %s but the shot turns to %s", p.Name, target, target.Flip())
		target = target.Flip()
		e.emit(Event{Kind: EventReverseApplied, Actor: p.Name, Target: target.String(), Detail: line, Public: line})
	}
	return target, true
}

func (e *Engine) fire(seat int, target Target) {
	st := e.state
	shooter := st.Players[seat]
	victim := shooter
	if target == TargetOpponent {
		victim = st.Players[Opponent(seat)]
	}

	chamber := st.Revolver.Trigger()
	loaded := st.Revolver.Fire()
	result := "empty"
	if loaded {
		result = "BANG"
	}
	line := fmt.Sprintf("%s shoots %s at chamber %d: %s", shooter.Name, victim.Name, chamber+1, result)
	e.emit(Event{
		Kind:    EventShot,
		Actor:   shooter.Name,
		Target:  target.String(),
		Victim:  victim.Name,
		Chamber: chamber + 1,
		Loaded:  loaded,
		Detail:  line,
		Public:  line,
	})

	if loaded {
		if st.ContractTurns > 0 {
			for _, p := range st.Players {
				p.Alive = false
			}
			e.finish(Outcome{Kind: ContractLoss, Reason: fmt.Sprintf("%s was hit under contract", victim.Name)})
			return
		}
		victim.Alive = false
		e.finish(Outcome{Kind: Shot, Loser: victim.Name})
		return
	}

	if st.ContractTurns > 0 {
		st.ContractTurns--
		line := fmt.Sprintf("Contract: %d turns left", st.ContractTurns)
		if st.ContractTurns == 0 {
			line = "Contract expired"
		}
		e.emit(Event{Kind: EventContractTick, Detail: line, Public: line})
	}
}

func (e *Engine) aborted(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	if !e.state.Outcome.Terminal() {
		e.opts.Logger.Printf("game %s aborted: %v", e.setup.GameID, ctx.Err())
		e.finish(Outcome{Kind: Draw, Reason: "aborted"})
	}
	return true
}

func (e *Engine) finish(o Outcome) {
	e.state.Outcome = o
	e.emit(Event{Kind: EventGameOver, Detail: "Game over: " + o.String(), Public: "Game over: " + o.String(), Outcome: &o})
}

func (e *Engine) decide(seat int, d Decision) {
	e.emit(Event{Kind: EventDecision, Actor: e.state.Players[seat].Name, Decision: &d})
}

func (e *Engine) emitStart() {
	st := e.state
	var positions []string
	for i, loaded := range st.Revolver.Chambers() {
		if loaded {
			positions = append(positions, fmt.Sprint(i+1))
		}
	}
	first := st.Players[st.TurnOwner].Name
	e.emit(Event{
		Kind: EventGameStarted,
		Detail: fmt.Sprintf("%d chambers, bullets at [%s]; %s holds %s; %s holds %s; %s goes first",
			st.Revolver.Size(), strings.Join(positions, " "),
			st.Players[0].Name, st.Players[0].Inventory,
			st.Players[1].Name, st.Players[1].Inventory, first),
		Public: fmt.Sprintf("Game started: %d chambers, %d bullets loaded, trigger at chamber %d; %s goes first",
			st.Revolver.Size(), st.initialBullets, st.Revolver.Trigger()+1, first),
	})
}

func (e *Engine) emit(ev Event) {
	st := e.state
	ev.Seq = len(e.events) + 1
	ev.Turn = st.Turn
	ev.Round = st.Round
	ev.Trigger = st.Revolver.Trigger() + 1
	ev.ContractTurns = st.ContractTurns
	e.events = append(e.events, ev)
	if ev.Public != "" {
		st.history = append(st.history, fmt.Sprintf("Turn %d: %s", ev.Turn, ev.Public))
	}
	if e.OnEvent != nil {
		e.OnEvent(ev)
	}
}

type answer[T any] struct {
	value    T
	forced   bool
	attempts int
}

// ask queries an agent with a per-call timeout, retrying rejected answers up
// to MaxAttempts before falling back. It returns false when ctx was cancelled.
func ask[T any](ctx context.Context, e *Engine, seat int, step Step, call func(context.Context, Request) (T, error), validate func(T) error, fallback T) (answer[T], bool) {
	name := e.state.Players[seat].Name
	var problem string
	for attempt := range e.opts.MaxAttempts {
		if e.aborted(ctx) {
			return answer[T]{}, false
		}
		req := Request{Snapshot: e.state.Snapshot(seat), Attempt: attempt, Problem: problem}
		v, err := callWithTimeout(ctx, e.opts.AgentTimeout, req, call)
		if e.aborted(ctx) {
			return answer[T]{}, false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = &AgentTimeoutError{Player: name, Step: step, Timeout: e.opts.AgentTimeout}
		} else if err == nil && validate != nil {
			err = validate(v)
		}
		if err == nil {
			return answer[T]{value: v, attempts: attempt + 1}, true
		}

		problem = err.Error()
		var perr *ProtocolError
		if errors.As(err, &perr) {
			problem = perr.Reason
		}
		e.emit(Event{Kind: EventAgentRetry, Actor: name, Detail: fmt.Sprintf("%s attempt %d/%d failed: %v", step, attempt+1, e.opts.MaxAttempts, err)})
		e.opts.Logger.Printf("agent %s: %s attempt %d/%d failed: %v", name, step, attempt+1, e.opts.MaxAttempts, err)
	}

	e.emit(Event{Kind: EventForcedDefault, Actor: name, Detail: fmt.Sprintf("%s: default applied after %d failed attempts", step, e.opts.MaxAttempts)})
	e.opts.Logger.Printf("agent %s: forcing default %s after %d failed attempts", name, step, e.opts.MaxAttempts)
	return answer[T]{value: fallback, forced: true, attempts: e.opts.MaxAttempts}, true
}

type result[T any] struct {
	value T
	err   error
}

// callWithTimeout runs call on its own goroutine so an agent that ignores its
// context cannot hold the game past the deadline. An answer that arrives
// after the deadline is discarded and reported as context.DeadlineExceeded.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, req Request, call func(context.Context, Request) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		v, err := call(callCtx, req)
		done <- result[T]{v, err}
	}()

	var zero T
	select {
	case r := <-done:
		if callCtx.Err() != nil {
			return zero, callCtx.Err()
		}
		return r.value, r.err
	case <-callCtx.Done():
		return zero, callCtx.Err()
	}
}
