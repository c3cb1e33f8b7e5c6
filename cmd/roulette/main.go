package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/roulette-duel/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "roulette",
		Short:         "Two-player Russian Roulette duel between language models",
		Long:          "Runs a Russian Roulette duel between two agents backed by language models, a random policy or a script. Players talk, bluff, use items and may agree to a draw.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("env-file", ".env", "Dotenv file loaded before reading the environment")
	root.PersistentFlags().String("output-dir", "", "Output directory for game records (overrides ROULETTE_OUTPUT_DIR)")
	root.PersistentFlags().String("db", "", "SQLite database of finished games (overrides ROULETTE_DB)")
	root.PersistentFlags().Bool("verbose", false, "Show every agent decision, retry and raw model reply")

	root.AddCommand(newPlayCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newHistoryCmd())
	return root
}

// loadConfig reads the dotenv file and environment, then applies the
// persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.OutputDir = dir
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DBPath = db
	}
	return cfg, nil
}
