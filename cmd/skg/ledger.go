package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"skg/internal/ledger"
	"skg/internal/storage"
)

var (
	ledgerBranch string
	ledgerStatus string
	ledgerUser   string
	ledgerCursor string
	ledgerLimit  int
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and rewind the change ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger entries chronologically",
	Long: `List ledger entries oldest first. Paginate with --cursor; the
response carries a nextCursor when more entries remain.`,
	RunE: ledgerList,
}

var ledgerRevertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Revert all uncommitted entries on a branch",
	Long: `Revert every pending and working entry on the branch in one
atomic step. Committed entries are never touched.`,
	RunE: ledgerRevert,
}

func init() {
	ledgerListCmd.Flags().StringVar(&ledgerBranch, "branch", "", "Filter by branch")
	ledgerListCmd.Flags().StringVar(&ledgerStatus, "status", "", "Filter by status (pending, working, committed, reverted)")
	ledgerListCmd.Flags().StringVar(&ledgerUser, "user", "", "Filter by user id")
	ledgerListCmd.Flags().StringVar(&ledgerCursor, "cursor", "", "Resume from a previous page")
	ledgerListCmd.Flags().IntVar(&ledgerLimit, "limit", 0, "Page size (0 uses the default)")

	ledgerRevertCmd.Flags().StringVar(&ledgerBranch, "branch", "", "Branch to revert; required")
	_ = ledgerRevertCmd.MarkFlagRequired("branch")

	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerRevertCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func openLedger() (*ledger.Store, *storage.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)
	db, err := storage.Open(cfg.Storage.DBPath, logger)
	if err != nil {
		return nil, nil, err
	}
	return ledger.NewStore(db, logger), db, nil
}

func ledgerList(cmd *cobra.Command, args []string) error {
	store, db, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	if ledgerStatus != "" {
		if _, ok := ledger.ParseStatus(ledgerStatus); !ok {
			return fmt.Errorf("unknown status %q", ledgerStatus)
		}
	}
	page, err := store.List(context.Background(), ledger.Filter{
		Branch: ledgerBranch,
		Status: ledger.Status(ledgerStatus),
		UserID: ledgerUser,
		Cursor: ledgerCursor,
		Limit:  ledgerLimit,
	})
	if err != nil {
		return err
	}
	return printResponse(page)
}

func ledgerRevert(cmd *cobra.Command, args []string) error {
	store, db, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	entries, err := store.Uncommitted(ctx, ledgerBranch)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if err := store.RevertAll(ctx, ids); err != nil {
		return err
	}
	return printResponse(map[string]interface{}{
		"branch":   ledgerBranch,
		"reverted": len(ids),
	})
}
