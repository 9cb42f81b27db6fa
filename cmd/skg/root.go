package main

import (
	"os"

	"github.com/spf13/cobra"

	"skg/internal/config"
	"skg/internal/logging"
)

var (
	rootDir    string
	rootFormat string
	rootDB     string
)

var rootCmd = &cobra.Command{
	Use:   "skg",
	Short: "Semantic knowledge graph consistency engine",
	Long: `skg keeps a derived knowledge graph of code symbols consistent as the
underlying repository changes commit by commit: entity diffing, edge repair,
cost-bounded re-justification scheduling, drift classification, and an
append-only change ledger.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "dir", ".", "Project directory (holds .skg/)")
	rootCmd.PersistentFlags().StringVar(&rootFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.PersistentFlags().StringVar(&rootDB, "db", "", "Database path override (\":memory:\" for ephemeral)")
}

// loadConfig loads configuration for the --dir the command runs against.
func loadConfig() (*config.Config, error) {
	dir := rootDir
	if dir == "" {
		dir = "."
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if rootDB != "" {
		cfg.Storage.DBPath = rootDB
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	format := logging.HumanFormat
	if cfg.Logging.Format == "json" {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.LogLevel(cfg.Logging.Level),
		Output: os.Stderr,
	})
}
