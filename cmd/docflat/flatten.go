// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docflat/internal/batch"
	"github.com/pdiddy/docflat/internal/extractor"
	"github.com/pdiddy/docflat/internal/flatten"
	"github.com/pdiddy/docflat/internal/secrets"
	"github.com/pdiddy/docflat/pkg/types"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten <file-or-directory>",
	Short: "Flatten a block tree, a PDF, or a directory of them",
	Long: `Flatten converts one input file, or every supported file under a
directory, into a flat list of content blocks.

JSON inputs must be marker block trees. PDFs are first run through marker
using the configured backend (local binary, container image, or server).

A single file produces {stem}_processed.json next to it (or in --output-dir).
A directory produces a mirrored tree under {dir}_processed (or --output-dir).
In directory mode, files that fail are listed in the summary and the run
continues; use --strict to exit non-zero when any file was left unprocessed.`,
	Args: cobra.ExactArgs(1),
	RunE: runFlatten,
}

func init() {
	f := flattenCmd.Flags()
	f.StringP("output-dir", "o", "", "destination directory for artifacts")
	f.String("format", "json", "artifact format: json or yaml")
	f.Bool("keep-html", false, "keep the source markup on each block")
	f.Bool("markdown", false, "add a Markdown rendering of each block")
	f.StringSlice("exclude-types", nil, "additional block types to drop with their subtrees")
	f.String("backend", "local", "PDF extraction backend: local, container, or server")
	f.String("marker-path", "", "marker_single binary for the local backend (default: marker_single on PATH)")
	f.String("marker-image", "", "marker image for the container backend (default: marker:latest)")
	f.String("marker-url", "", "marker server base URL for the server backend")
	f.String("temp-dir", "", "parent directory for extraction work directories")
	f.Bool("preflight", false, "validate PDFs with pdfcpu before extraction")
	f.Bool("strict", false, "exit non-zero when any file in a directory run is unprocessed")

	rootCmd.AddCommand(flattenCmd)
}

func runFlatten(cmd *cobra.Command, args []string) error {
	cfg, err := flattenConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	input := args[0]
	info, err := os.Stat(input)
	if err != nil {
		return types.IOError(input, err)
	}
	out := cmd.OutOrStdout()

	if !info.IsDir() {
		proc := newProcessor(cfg)
		res, err := proc.ProcessFile(ctx, input, cfg.OutputDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "processed: %s -> %s (%d blocks)\n", res.Path, res.Output, res.Blocks)
		return nil
	}

	return runBatch(ctx, cfg, input, out)
}

func runBatch(ctx context.Context, cfg types.FlattenConfig, root string, out io.Writer) error {
	orch := &batch.Orchestrator{
		Processor: newProcessor(cfg),
		OutputDir: cfg.OutputDir,
		Out:       out,
		Logger:    slog.Default(),
	}
	summary, err := orch.Run(ctx, root)
	if err != nil {
		return err
	}
	summary.Print(out)

	if cfg.Strict && summary.HasFailures() {
		return fmt.Errorf("%d file(s) unprocessed", len(summary.Unprocessed))
	}
	return nil
}

// newExtractor sets up the configured extraction backend.
var newExtractor = func(ctx context.Context, cfg types.ExtractionConfig) (extractor.Extractor, error) {
	return extractor.New(ctx, cfg, nil)
}

// newProcessor assembles the per-file pipeline. The extraction backend is
// set up on the first PDF; a backend that cannot be set up fails each PDF
// instead of the whole run.
func newProcessor(cfg types.FlattenConfig) *batch.Processor {
	proc := &batch.Processor{
		Flattener: &flatten.Flattener{
			Policy:   flatten.DefaultPolicy().WithPruned(cfg.ExcludeTypes...),
			KeepHTML: cfg.KeepHTML,
			Markdown: cfg.Markdown,
			Logger:   slog.Default(),
		},
		Format:  cfg.Format,
		TempDir: cfg.Extraction.TempDir,
		Logger:  slog.Default(),
	}
	proc.Extractor = extractor.Lazy(func(ctx context.Context) (extractor.Extractor, error) {
		ext, err := newExtractor(ctx, cfg.Extraction)
		if err != nil {
			slog.Warn("PDF extraction unavailable", "backend", cfg.Extraction.Backend, "error", err)
		}
		return ext, err
	})
	if cfg.Extraction.Preflight {
		proc.Preflight = extractor.Preflight
	}
	return proc
}

// flattenConfig reads the flatten settings from flags, DOCFLAT_* variables,
// and the config file, in that order of precedence.
func flattenConfig() (types.FlattenConfig, error) {
	format := types.OutputFormat(strings.ToLower(viper.GetString("format")))
	switch format {
	case "":
		format = types.FormatJSON
	case types.FormatJSON, types.FormatYAML:
	default:
		return types.FlattenConfig{}, fmt.Errorf("unsupported format %q: use json or yaml", format)
	}

	backend := types.ExtractionBackend(strings.ToLower(viper.GetString("backend")))
	switch backend {
	case "":
		backend = types.BackendLocal
	case types.BackendLocal, types.BackendContainer, types.BackendServer:
	default:
		return types.FlattenConfig{}, fmt.Errorf("unsupported backend %q: use local, container, or server", backend)
	}

	return types.FlattenConfig{
		OutputDir:    viper.GetString("output_dir"),
		Format:       format,
		KeepHTML:     viper.GetBool("keep_html"),
		Markdown:     viper.GetBool("markdown"),
		ExcludeTypes: viper.GetStringSlice("exclude_types"),
		Strict:       viper.GetBool("strict"),
		Extraction: types.ExtractionConfig{
			Backend:      backend,
			MarkerPath:   viper.GetString("marker_path"),
			MarkerImage:  viper.GetString("marker_image"),
			MarkerURL:    viper.GetString("marker_url"),
			MarkerAPIKey: loadedSecrets.Get(secrets.MarkerAPIKey, viper.GetString("marker_api_key")),
			TempDir:      viper.GetString("temp_dir"),
			Preflight:    viper.GetBool("preflight"),
		},
	}, nil
}
