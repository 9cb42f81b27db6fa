package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skg/internal/provider"
	"skg/internal/quarantine"
	"skg/internal/run"
	"skg/internal/storage"
)

var runInput string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one incremental consistency run",
	Long: `Execute one incremental run from an extraction result file:
diff the fresh entities against the stored snapshot, repair edges, build
the cost-bounded re-justification cascade, and classify drift per changed
entity.

The input file is JSON produced by the upstream extractor:
  {"orgId": "...", "repoId": "...", "units": [{"filePath": "...", ...}]}

Runs for the same repository must not overlap; the caller serializes them.`,
	RunE: runIncremental,
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "Extraction result file (JSON); required")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}

func runIncremental(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	data, err := os.ReadFile(runInput)
	if err != nil {
		return fmt.Errorf("read extraction input: %w", err)
	}
	var req run.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parse extraction input: %w", err)
	}
	if req.OrgID == "" {
		req.OrgID = cfg.OrgID
	}
	if req.RepoID == "" {
		req.RepoID = cfg.RepoID
	}

	db, err := storage.Open(cfg.Storage.DBPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	store := storage.NewSQLite(db)

	var embedder provider.Embedder
	if cfg.Provider.APIKey != "" {
		opts := []provider.Option{}
		if cfg.Provider.EmbeddingModel != "" {
			opts = append(opts, provider.WithEmbeddingModel(cfg.Provider.EmbeddingModel))
		}
		openAI, err := provider.NewOpenAI(cfg.Provider.APIKey, opts...)
		if err != nil {
			return err
		}
		embedder = openAI
	}

	guard := quarantine.Guard{
		SizeLimit: cfg.Quarantine.MaxUnitBytes,
		Timeout:   cfg.Quarantine.UnitTimeout,
	}
	runner := run.NewRunner(store, cfg.Cascade, guard, embedder, logger)
	report, err := runner.Incremental(context.Background(), req)
	if err != nil {
		return err
	}

	return printResponse(report)
}

func printResponse(resp interface{}) error {
	out, err := FormatResponse(resp, OutputFormat(rootFormat))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
