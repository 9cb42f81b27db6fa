package main

import (
	"context"

	"github.com/spf13/cobra"

	"skg/internal/ledger"
	"skg/internal/storage"
)

type statusReport struct {
	OrgID       string         `json:"orgId"`
	RepoID      string         `json:"repoId"`
	DBPath      string         `json:"dbPath"`
	Entities    int            `json:"entities"`
	Kinds       map[string]int `json:"kinds,omitempty"`
	Uncommitted int            `json:"uncommittedLedgerEntries"`
}

var statusBranch string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the stored knowledge graph",
	RunE:  status,
}

func init() {
	statusCmd.Flags().StringVar(&statusBranch, "branch", "main", "Branch for the ledger summary")
	rootCmd.AddCommand(statusCmd)
}

func status(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	db, err := storage.Open(cfg.Storage.DBPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	store := storage.NewSQLite(db)

	ctx := context.Background()
	entities, err := store.Entities(ctx, cfg.OrgID, cfg.RepoID)
	if err != nil {
		return err
	}
	kinds := make(map[string]int)
	for _, e := range entities {
		kinds[string(e.Kind)]++
	}

	pending, err := ledger.NewStore(db, logger).Uncommitted(ctx, statusBranch)
	if err != nil {
		return err
	}

	return printResponse(statusReport{
		OrgID:       cfg.OrgID,
		RepoID:      cfg.RepoID,
		DBPath:      cfg.Storage.DBPath,
		Entities:    len(entities),
		Kinds:       kinds,
		Uncommitted: len(pending),
	})
}
