package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/roulette-duel/internal/config"
	"github.com/lorenzotomasdiez/roulette-duel/internal/game"
	"github.com/lorenzotomasdiez/roulette-duel/internal/output"
	"github.com/lorenzotomasdiez/roulette-duel/internal/store"
)

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play one duel",
		RunE:  runPlay,
	}
	cmd.Flags().String("game", "", "YAML game file (default: Bill the Gambler against Lee the Detective)")
	cmd.Flags().Int64("seed", 0, "Random seed for the cylinder and items (default: from the game file, else time-based)")
	cmd.Flags().Int("chambers", 0, "Override the number of chambers")
	cmd.Flags().Int("bullets", -1, "Override the number of bullets (0 picks a random count)")
	cmd.Flags().Bool("spectator", false, "Show hidden information: items used, Check results and the cylinder")
	cmd.Flags().String("name", "", "Override output folder name (default: auto-slug from player names)")
	cmd.Flags().Bool("no-store", false, "Do not save the game to the database")
	return cmd
}

func runPlay(cmd *cobra.Command, args []string) error {
	gameFile, _ := cmd.Flags().GetString("game")
	seed, _ := cmd.Flags().GetInt64("seed")
	chambers, _ := cmd.Flags().GetInt("chambers")
	bullets, _ := cmd.Flags().GetInt("bullets")
	spectator, _ := cmd.Flags().GetBool("spectator")
	verbose, _ := cmd.Flags().GetBool("verbose")
	name, _ := cmd.Flags().GetString("name")
	noStore, _ := cmd.Flags().GetBool("no-store")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	g := config.DefaultGame()
	if gameFile != "" {
		if g, err = config.LoadGame(gameFile); err != nil {
			return err
		}
	}
	if chambers > 0 {
		g.Chambers = chambers
	}
	if bullets >= 0 {
		g.Bullets = bullets
	}
	if seed != 0 {
		g.Seed = seed
	}
	if g.Seed == 0 {
		g.Seed = time.Now().UnixNano()
	}
	if err := g.Validate(); err != nil {
		return err
	}

	// Ctrl+C ends the game as a draw
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slug := name
	if slug == "" {
		slug = output.GenerateSlug(g.Players[0].Name + " vs " + g.Players[1].Name)
	}
	outDir, err := output.CreateOutputDir(cfg.OutputDir, slug)
	if err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	writer := output.NewWriter(outDir)

	seats, err := buildSeats(ctx, cfg, g, func(player string, step game.Step, raw string) {
		writer.Logf("%s %s reply: %s", player, step, raw)
	})
	if err != nil {
		return err
	}
	defer closeSeats(seats)

	printer := output.NewPrinter(cmd.OutOrStdout())
	printer.Spectator = spectator
	printer.Verbose = verbose

	engine, err := game.NewEngine(g.Setup(""), agentsOf(seats), game.Options{
		MaxAttempts:  cfg.MaxAttempts,
		AgentTimeout: cfg.AgentTimeout,
		Logger:       log.New(writer, "engine: ", 0),
	})
	if err != nil {
		return err
	}
	engine.OnEvent = func(ev game.Event) {
		printer.PrintEvent(ev)
		if ev.Detail != "" {
			writer.Logf("[Turn %d] %s", ev.Turn, ev.Detail)
		}
		switch ev.Kind {
		case game.EventGameStarted, game.EventShot, game.EventItemUsed:
			rev := engine.State().Revolver
			printer.PrintRevolver(rev.Chambers(), rev.Trigger())
		}
	}

	setup := engine.Setup()
	out := cmd.OutOrStdout()
	printer.Title(fmt.Sprintf("%s vs %s", setup.Players[0].Name, setup.Players[1].Name))
	for i, p := range setup.Players {
		fmt.Fprintf(out, "%s the %s: %s\n", p.Name, p.RoleName, seats[i].label)
	}
	fmt.Fprintf(out, "Game: %s | Seed: %d | Chambers: %d | Output: %s\n\n", setup.GameID, setup.Seed, setup.Chambers, outDir)

	rec, err := engine.Run(ctx)
	if err != nil {
		writer.Logf("game failed: %v", err)
		_ = writer.WriteLog()
		return fmt.Errorf("game: %w", err)
	}

	if err := writeRecord(writer, rec); err != nil {
		return err
	}
	if !noStore {
		// not ctx: an interrupted game is still stored
		if err := saveRecord(context.Background(), cfg.DBPath, rec); err != nil {
			return err
		}
	}

	printer.PrintOutcome(rec)
	fmt.Fprintf(out, "\nGame complete. Output saved to: %s\n", outDir)
	return nil
}

func writeRecord(w *output.Writer, rec *game.Record) error {
	if err := w.WriteJSON(rec); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	if err := w.WriteYAML(rec); err != nil {
		return fmt.Errorf("writing YAML: %w", err)
	}
	if err := w.WriteMarkdown(rec); err != nil {
		return fmt.Errorf("writing markdown: %w", err)
	}
	if err := w.WriteLog(); err != nil {
		return fmt.Errorf("writing log: %w", err)
	}
	return nil
}

func saveRecord(ctx context.Context, path string, rec *game.Record) error {
	db, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.SaveGame(ctx, rec)
}
