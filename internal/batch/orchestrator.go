// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch walks an input directory and flattens every supported file
// it finds, recording failures instead of aborting.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pdiddy/docflat/internal/outpath"
	"github.com/pdiddy/docflat/pkg/types"
)

// Summary holds the outcome of a batch run.
type Summary struct {
	// Root is the canonical input root and DestRoot the artifact root.
	Root     string
	DestRoot string

	Processed   []Outcome
	Unprocessed []types.Unprocessed
}

// Total returns the number of files the run looked at.
func (s Summary) Total() int {
	return len(s.Processed) + len(s.Unprocessed)
}

// HasFailures reports whether any file was left unprocessed.
func (s Summary) HasFailures() bool {
	return len(s.Unprocessed) > 0
}

// Print writes the batch summary followed by every unprocessed file and
// its reason.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "\nBatch summary: %d processed, %d unprocessed (total: %d)\n",
		len(s.Processed), len(s.Unprocessed), s.Total())
	if !s.HasFailures() {
		return
	}
	fmt.Fprintf(w, "\nUnprocessed files:\n")
	for _, u := range s.Unprocessed {
		fmt.Fprintf(w, "  %s: %s\n", u.Path, u.Reason)
	}
}

// Orchestrator runs a Processor over every file under a directory.
type Orchestrator struct {
	Processor *Processor

	// OutputDir overrides the destination root ({input}_processed).
	OutputDir string

	// Out receives per-file status lines. Nil discards them.
	Out io.Writer

	Logger *slog.Logger
}

// Run discovers files under root and processes them one at a time. Only a
// failure to walk root itself is returned; per-file failures end up in
// Summary.Unprocessed. Cancelling ctx stops the run before the next file.
func (o *Orchestrator) Run(ctx context.Context, root string) (Summary, error) {
	destRoot := outpath.BatchRoot(root, o.OutputDir)
	walker := &Walker{Skip: []string{destRoot}}

	disc, err := walker.Discover(root)
	if err != nil {
		return Summary{}, err
	}
	o.logger().Info("discovered files", "root", disc.Root, "dest", destRoot,
		"pdf", disc.Count(KindPDF), "json", disc.Count(KindJSON), "other", disc.Count(KindUnsupported))

	summary := Summary{Root: disc.Root, DestRoot: destRoot}
	for _, e := range disc.Entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		out, err := o.process(ctx, disc.Root, destRoot, e)
		if err != nil {
			fmt.Fprintf(o.out(), "failed:  %s (%s)\n", e.Path, types.ReasonOf(err))
			summary.Unprocessed = append(summary.Unprocessed, types.Unprocessed{
				Path:   e.Path,
				Reason: types.ReasonOf(err),
			})
			continue
		}
		fmt.Fprintf(o.out(), "processed: %s -> %s (%d blocks)\n", out.Path, out.Output, out.Blocks)
		summary.Processed = append(summary.Processed, out)
	}
	return summary, nil
}

func (o *Orchestrator) process(ctx context.Context, root, destRoot string, e Entry) (Outcome, error) {
	switch e.Kind {
	case KindUnsupported:
		return Outcome{}, types.UnsupportedError(e.Path)
	case KindUnreadable:
		return Outcome{}, types.IOError(e.Path, e.Err)
	}
	dst, err := outpath.Batch(root, destRoot, e.Path, o.Processor.Format.Ext())
	if err != nil {
		return Outcome{}, types.IOError(e.Path, err)
	}
	return o.Processor.Process(ctx, e.Path, dst, e.Kind)
}

func (o *Orchestrator) out() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return io.Discard
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
