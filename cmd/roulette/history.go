package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/roulette-duel/internal/game"
	"github.com/lorenzotomasdiez/roulette-duel/internal/output"
	"github.com/lorenzotomasdiez/roulette-duel/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [game-id]",
		Short: "List stored games, or show the log of one game",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	cmd.Flags().Int("limit", 20, "Maximum number of games to list (0 for all)")
	cmd.Flags().Bool("shots", false, "Only show shots when printing one game")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	shots, _ := cmd.Flags().GetBool("shots")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := store.Open(cmd.Context(), cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		var kinds []game.EventKind
		if shots {
			kinds = append(kinds, game.EventShot, game.EventGameOver)
		}
		events, err := db.Events(cmd.Context(), args[0], kinds...)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return fmt.Errorf("%w: %s", store.ErrNotFound, args[0])
		}
		for _, ev := range events {
			if ev.Kind == game.EventDecision {
				continue
			}
			fmt.Fprintf(out, "%4d  turn %-3d %s\n", ev.Seq, ev.Turn, ev.Detail)
		}
		return nil
	}

	games, err := db.ListGames(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		fmt.Fprintln(out, "No games played yet.")
		return nil
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "PLAYED", "PLAYERS", "CHAMBERS", "TURNS", "OUTCOME")
	for _, g := range games {
		rec := &game.Record{
			Setup:   game.Setup{Players: [2]game.PlayerSetup{{Name: g.Players[0]}, {Name: g.Players[1]}}},
			Outcome: g.Outcome,
		}
		t.Row(
			g.ID,
			g.CreatedAt.Format("2006-01-02 15:04"),
			g.Players[0]+" vs "+g.Players[1],
			fmt.Sprint(g.Chambers),
			fmt.Sprint(g.Turns),
			output.FormatOutcome(rec),
		)
	}
	fmt.Fprintln(out, t.Render())
	return nil
}
