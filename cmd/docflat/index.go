// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docflat/internal/index"
	"github.com/pdiddy/docflat/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index <artifact-directory>",
	Short: "Index flattened artifacts for full-text search",
	Long: `Index walks a directory for *_processed.json and *_processed.yaml
artifacts and stores their blocks in a SQLite database with FTS5 indexing.
Unchanged artifacts are skipped on subsequent runs; changed ones replace
their previous blocks.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().String("db", index.DefaultDBPath, "SQLite index database")

	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	store, err := index.Open(indexConfig(), slog.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), args[0], cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d artifact(s) failed indexing", summary.Failed)
	}
	return nil
}

func indexConfig() types.IndexConfig {
	return types.IndexConfig{
		DBPath:     viper.GetString("db"),
		MaxResults: viper.GetInt("max_results"),
	}
}
