package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/roulette-duel/internal/agent"
	"github.com/lorenzotomasdiez/roulette-duel/internal/game"
	"github.com/lorenzotomasdiez/roulette-duel/internal/output"
	"github.com/lorenzotomasdiez/roulette-duel/internal/store"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [record]",
		Short: "Replay a finished game from its record and verify the outcome",
		Long:  "Replays a game from a record.json, record.yaml or output directory, or from the database with --id. Every recorded decision is fed back to the engine and the outcome must match.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runReplay,
	}
	cmd.Flags().String("id", "", "Replay a stored game by id instead of a record file")
	cmd.Flags().Bool("spectator", false, "Show hidden information while replaying")
	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")
	spectator, _ := cmd.Flags().GetBool("spectator")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if (id == "") == (len(args) == 0) {
		return errors.New("replay needs either a record path or --id")
	}

	var rec *game.Record
	var err error
	if id != "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := store.Open(cmd.Context(), cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if rec, err = db.LoadGame(cmd.Context(), id); err != nil {
			return err
		}
	} else if rec, err = output.LoadRecord(args[0]); err != nil {
		return err
	}

	printer := output.NewPrinter(cmd.OutOrStdout())
	printer.Spectator = spectator
	printer.Verbose = verbose
	printer.Title(fmt.Sprintf("Replay %s", rec.GameID))

	got, err := replayRecord(cmd.Context(), rec, printer.PrintEvent)
	if err != nil {
		return err
	}
	printer.PrintOutcome(got)
	fmt.Fprintln(cmd.OutOrStdout(), "\nReplay matches the recorded outcome.")
	return nil
}

// replayRecord reruns rec with its recorded decisions and reports an error
// when the replayed game diverges.
func replayRecord(ctx context.Context, rec *game.Record, onEvent func(game.Event)) (*game.Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	setup := rec.Setup
	replays := [2]*agent.Replay{
		agent.NewReplay(rec, setup.Players[0].Name),
		agent.NewReplay(rec, setup.Players[1].Name),
	}
	engine, err := game.NewEngine(setup, [2]game.Agent{replays[0], replays[1]}, game.Options{
		MaxAttempts: rec.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	// An interrupted game is interrupted again once the recording runs out.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if rec.Outcome == (game.Outcome{Kind: game.Draw, Reason: "aborted"}) {
		for _, r := range replays {
			r.OnExhausted = cancel
		}
	}
	engine.OnEvent = onEvent

	got, err := engine.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if got.Outcome != rec.Outcome || got.Turns != rec.Turns {
		return got, fmt.Errorf("replay: diverged: got %s after %d turns, recorded %s after %d turns",
			got.Outcome, got.Turns, rec.Outcome, rec.Turns)
	}
	for i, r := range replays {
		if n := r.Remaining(); n > 0 {
			return got, fmt.Errorf("replay: %s has %d unused decisions", setup.Players[i].Name, n)
		}
	}
	return got, nil
}
