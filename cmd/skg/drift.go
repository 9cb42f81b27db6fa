package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skg/internal/drift"
	"skg/internal/provider"
)

var (
	driftBefore string
	driftAfter  string
)

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Classify the drift between two versions of a source fragment",
	Long: `Classify the change between two files holding the before and after
text of one entity. Structurally identical inputs are stable; otherwise
the embedding similarity decides between cosmetic, refactor, and
intent_drift. Without a configured provider the similarity is 0 and a
structural change classifies as intent_drift.`,
	RunE: driftClassify,
}

func init() {
	driftCmd.Flags().StringVar(&driftBefore, "before", "", "File with the previous version; required")
	driftCmd.Flags().StringVar(&driftAfter, "after", "", "File with the current version; required")
	_ = driftCmd.MarkFlagRequired("before")
	_ = driftCmd.MarkFlagRequired("after")
	rootCmd.AddCommand(driftCmd)
}

func driftClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	before, err := os.ReadFile(driftBefore)
	if err != nil {
		return fmt.Errorf("read before file: %w", err)
	}
	after, err := os.ReadFile(driftAfter)
	if err != nil {
		return fmt.Errorf("read after file: %w", err)
	}

	in := drift.Input{
		ASTHashOld: drift.StructuralHash(drift.NormalizeStructure(string(before))),
		ASTHashNew: drift.StructuralHash(drift.NormalizeStructure(string(after))),
	}

	if in.ASTHashOld != in.ASTHashNew && cfg.Provider.APIKey != "" {
		opts := []provider.Option{}
		if cfg.Provider.EmbeddingModel != "" {
			opts = append(opts, provider.WithEmbeddingModel(cfg.Provider.EmbeddingModel))
		}
		openAI, err := provider.NewOpenAI(cfg.Provider.APIKey, opts...)
		if err != nil {
			return err
		}
		ctx := context.Background()
		if in.EmbeddingOld, err = openAI.Embed(ctx, string(before)); err != nil {
			return err
		}
		if in.EmbeddingNew, err = openAI.Embed(ctx, string(after)); err != nil {
			return err
		}
	}

	return printResponse(drift.Classify(in))
}
