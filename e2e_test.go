package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lorenzotomasdiez/roulette-duel/internal/agent"
	"github.com/lorenzotomasdiez/roulette-duel/internal/config"
	"github.com/lorenzotomasdiez/roulette-duel/internal/game"
	"github.com/lorenzotomasdiez/roulette-duel/internal/llm"
	"github.com/lorenzotomasdiez/roulette-duel/internal/openrouter"
	"github.com/lorenzotomasdiez/roulette-duel/internal/output"
	"github.com/lorenzotomasdiez/roulette-duel/internal/store"
)

func TestE2EFullDuelWithMockServer(t *testing.T) {
	var requestCount, targetCalls atomic.Int32

	// Mock OpenRouter server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)

		var req openrouter.ChatRequest
		json.NewDecoder(r.Body).Decode(&req)

		// Verify auth header
		auth := r.Header.Get("Authorization")
		if auth != "Bearer test-key-123" {
			t.Errorf("bad auth header: %s", auth)
		}
		if req.MaxTokens != 512 {
			t.Errorf("max_tokens = %d, want 512", req.MaxTokens)
		}
		if len(req.Messages) < 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
			return
		}

		// The second message carries the state and the step instruction
		prompt := req.Messages[1].Content
		var content string
		switch {
		case strings.Contains(prompt, "proposes a draw"):
			content = `{"accept": false, "reason": "I can win this"}`
		case strings.Contains(prompt, "Decide whether to use"):
			held := prompt[strings.Index(prompt, "You hold:"):]
			held = held[:strings.Index(held, "\n")]
			if strings.Contains(held, "Check") {
				content = "```json\n{\"item\": \"Check\"}\n```"
			} else {
				content = `{"item": "none"}`
			}
		case strings.Contains(prompt, "Now fire"):
			// The very first answer is prose so the engine has to retry
			if targetCalls.Add(1) == 1 {
				content = "I pull the trigger without a word."
			} else {
				content = `{"target": "opponent"}`
			}
		default:
			content = `Sure. {"message": "I can see your hands shaking.", "propose_draw": false}`
		}

		resp := openrouter.ChatResponse{
			Choices: []openrouter.Choice{{Message: openrouter.Message{Role: "assistant", Content: content}}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	// Build the full pipeline with real components
	cfg := &config.Config{
		OpenRouterKey:     "test-key-123",
		OpenRouterBaseURL: server.URL,
		MaxAttempts:       3,
		MaxTokens:         512,
	}
	g := config.DefaultGame()
	g.Seed = 11
	models := llm.DefaultFreeModels()

	var agents [2]game.Agent
	for i := range g.Players {
		g.Players[i].Model = models[i].ID
		settings, err := cfg.LLMSettings(g.Players[i])
		if err != nil {
			t.Fatalf("LLMSettings: %v", err)
		}
		c, err := llm.New(context.Background(), settings)
		if err != nil {
			t.Fatalf("llm.New: %v", err)
		}
		defer llm.Close(c)
		agents[i] = agent.NewLLM(c)
	}

	// Setup output
	dir, err := output.CreateOutputDir(t.TempDir(), output.GenerateSlug("Bill vs Lee"))
	if err != nil {
		t.Fatalf("CreateOutputDir: %v", err)
	}
	writer := output.NewWriter(dir)
	printer := output.NewPrinter(os.Stdout)

	engine, err := game.NewEngine(g.Setup(""), agents, game.Options{
		MaxAttempts: cfg.MaxAttempts,
		Logger:      log.New(writer, "engine: ", 0),
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	engine.OnEvent = func(ev game.Event) {
		printer.PrintEvent(ev)
		writer.Log(ev.Detail)
	}

	rec, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("game failed: %v", err)
	}

	// Write outputs
	for _, write := range []func(*game.Record) error{writer.WriteJSON, writer.WriteYAML, writer.WriteMarkdown} {
		if err := write(rec); err != nil {
			t.Fatalf("writing record: %v", err)
		}
	}
	if err := writer.WriteLog(); err != nil {
		t.Fatalf("WriteLog: %v", err)
	}

	// Verify outputs exist
	for _, name := range []string{"record.json", "record.yaml", "report.md", "game.log"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}

	// Verify the game
	if rec.Outcome.Kind != game.Shot {
		t.Fatalf("outcome = %+v, want a shot", rec.Outcome)
	}
	var retries, messages int
	for _, ev := range rec.Events {
		switch ev.Kind {
		case game.EventAgentRetry:
			retries++
		case game.EventMessage:
			messages++
		}
	}
	if retries != 1 {
		t.Errorf("retries = %d, want 1", retries)
	}
	if messages != rec.Turns {
		t.Errorf("messages = %d, want one per turn (%d)", messages, rec.Turns)
	}

	// Verify the log caught the retry warning
	logData, _ := os.ReadFile(filepath.Join(dir, "game.log"))
	if !strings.Contains(string(logData), "engine: agent Bill: target attempt 1/3 failed") {
		t.Errorf("game.log missing retry warning:\n%s", logData)
	}

	// Store, reload and replay the game
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "games.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer db.Close()
	if err := db.SaveGame(context.Background(), rec); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	stored, err := db.LoadGame(context.Background(), rec.GameID)
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}

	fromDisk, err := output.LoadRecord(dir)
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	for name, r := range map[string]*game.Record{"store": stored, "disk": fromDisk} {
		replay, err := game.NewEngine(r.Setup, [2]game.Agent{
			agent.NewReplay(r, r.Setup.Players[0].Name),
			agent.NewReplay(r, r.Setup.Players[1].Name),
		}, game.Options{MaxAttempts: r.MaxAttempts})
		if err != nil {
			t.Fatalf("%s replay NewEngine: %v", name, err)
		}
		got, err := replay.Run(context.Background())
		if err != nil {
			t.Fatalf("%s replay: %v", name, err)
		}
		if got.Outcome != rec.Outcome || got.Turns != rec.Turns || len(got.Events) != len(rec.Events) {
			t.Errorf("%s replay = %+v after %d turns (%d events), want %+v after %d turns (%d events)",
				name, got.Outcome, got.Turns, len(got.Events), rec.Outcome, rec.Turns, len(rec.Events))
		}
	}

	t.Logf("E2E complete: %s after %d turns, %d API calls", rec.Outcome, rec.Turns, requestCount.Load())
}
