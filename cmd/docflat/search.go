// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docflat/internal/index"
)

var searchCmd = &cobra.Command{
	Use:   "search [terms...]",
	Short: "Search indexed blocks by text, block type, or artifact",
	Long: `Search queries the block index built by "docflat index". Terms are
matched against block text and must all be present. Results are ranked by
relevance when the SQLite build supports FTS5, and listed in document order
otherwise.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("db", index.DefaultDBPath, "SQLite index database")
	searchCmd.Flags().String("type", "", "filter by block type, e.g. SectionHeader")
	searchCmd.Flags().String("artifact", "", "filter by artifact path (relative paths resolve against the working directory)")
	searchCmd.Flags().Int("max-results", 20, "default result limit")
	searchCmd.Flags().Int("limit", 0, "maximum results (0 = use --max-results)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	blockType, _ := cmd.Flags().GetString("type")
	artifactPath, _ := cmd.Flags().GetString("artifact")
	limit, _ := cmd.Flags().GetInt("limit")

	q := index.Query{
		Terms:     strings.Join(args, " "),
		BlockType: blockType,
		Artifact:  artifactPath,
		Limit:     limit,
	}
	if q.IsEmpty() {
		return fmt.Errorf("search terms or filter required: provide terms, --type, or --artifact")
	}

	store, err := index.Open(indexConfig(), slog.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	hits, err := store.Search(context.Background(), q)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatHits(cmd.OutOrStdout(), hits, jsonOutput)
}

func formatHits(w io.Writer, hits []index.Hit, jsonOutput bool) error {
	if jsonOutput {
		if hits == nil {
			hits = []index.Hit{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-14s  %-24s  %-30s  %s\n", "Rank", "Type", "Block", "Artifact", "Text")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for i, h := range hits {
		fmt.Fprintf(w, "%-4d  %-14s  %-24s  %-30s  %s\n",
			i+1, h.BlockType, truncate(h.BlockID, 24), truncate(h.Artifact, 30), truncate(oneLine(h.Text), 60))
	}
	fmt.Fprintf(w, "\n%d results\n", len(hits))
	return nil
}

// truncate shortens s to n runes, keeping the tail for paths and the head
// otherwise.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if strings.ContainsRune(s, '/') {
		return "..." + string(r[len(r)-n+3:])
	}
	return string(r[:n-3]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
