// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pdiddy/docflat/internal/artifact"
	"github.com/pdiddy/docflat/internal/blocktree"
	"github.com/pdiddy/docflat/internal/extractor"
	"github.com/pdiddy/docflat/internal/flatten"
	"github.com/pdiddy/docflat/internal/outpath"
	"github.com/pdiddy/docflat/pkg/types"
)

// Outcome is the result of processing one file successfully.
type Outcome struct {
	Path   string
	Output string
	Blocks int
	Stats  flatten.Stats
}

// Processor turns one input file into a flattened artifact.
type Processor struct {
	Flattener *flatten.Flattener

	// Extractor produces block trees from PDFs. PDFs fail with an
	// extraction error when it is nil.
	Extractor extractor.Extractor

	// Preflight, when set, validates a PDF before extraction.
	Preflight func(pdfPath string) (int, error)

	Format types.OutputFormat

	// TempDir is the parent of per-extraction work directories.
	TempDir string

	Logger *slog.Logger
}

// Load reads the block tree for path according to kind.
func (p *Processor) Load(ctx context.Context, path string, kind Kind) (*types.Document, error) {
	switch kind {
	case KindJSON:
		return blocktree.ParseFile(path)
	case KindPDF:
		return p.extract(ctx, path)
	default:
		return nil, types.UnsupportedError(path)
	}
}

func (p *Processor) extract(ctx context.Context, pdfPath string) (*types.Document, error) {
	if p.Extractor == nil {
		return nil, types.ExtractionError(pdfPath, fmt.Errorf("no extraction backend configured"))
	}
	if p.Preflight != nil {
		pages, err := p.Preflight(pdfPath)
		if err != nil {
			return nil, err
		}
		p.logger().Debug("preflight passed", "path", pdfPath, "pages", pages)
	}

	work, err := os.MkdirTemp(p.TempDir, "docflat-*")
	if err != nil {
		return nil, types.IOError(pdfPath, fmt.Errorf("creating work directory: %w", err))
	}
	defer os.RemoveAll(work)

	p.logger().Debug("extracting", "path", pdfPath, "workdir", work)
	return p.Extractor.Extract(ctx, pdfPath, work)
}

// Process loads src, flattens it, and writes the artifact to dst.
func (p *Processor) Process(ctx context.Context, src, dst string, kind Kind) (Outcome, error) {
	doc, err := p.Load(ctx, src, kind)
	if err != nil {
		return Outcome{}, err
	}

	p.logger().Debug("block tree loaded", "path", src, "nodes", doc.NodeCount())
	blocks, stats := p.flattener().FlattenWithStats(doc)

	if err := outpath.Ensure(dst); err != nil {
		return Outcome{}, types.IOError(src, err)
	}
	if err := artifact.Write(dst, blocks, p.Format); err != nil {
		return Outcome{}, types.IOError(src, err)
	}
	p.logger().Debug("artifact written", "input", src, "output", dst,
		"blocks", len(blocks), "visited", stats.Visited, "pruned", stats.Pruned)
	return Outcome{Path: src, Output: dst, Blocks: len(blocks), Stats: stats}, nil
}

// ProcessFile handles single-file mode: the artifact goes next to input, or
// into outDir when given. Errors are returned, not recorded.
func (p *Processor) ProcessFile(ctx context.Context, input, outDir string) (Outcome, error) {
	kind := Classify(input)
	if kind == KindUnsupported {
		return Outcome{}, types.UnsupportedError(input)
	}
	info, err := os.Stat(input)
	if err != nil {
		return Outcome{}, types.IOError(input, err)
	}
	if info.IsDir() {
		return Outcome{}, types.IOError(input, fmt.Errorf("is a directory"))
	}

	dst, err := outpath.Single(input, outDir, p.Format.Ext())
	if err != nil {
		return Outcome{}, types.IOError(input, err)
	}
	return p.Process(ctx, input, dst, kind)
}

func (p *Processor) flattener() *flatten.Flattener {
	if p.Flattener != nil {
		return p.Flattener
	}
	return flatten.New()
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
