// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extractor turns a PDF into a block tree by running the marker
// extraction tool. Backends run marker as a local binary, inside a
// container image, or through a marker server.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdiddy/docflat/internal/blocktree"
	"github.com/pdiddy/docflat/internal/container"
	"github.com/pdiddy/docflat/internal/outpath"
	"github.com/pdiddy/docflat/pkg/types"
)

const (
	defaultMarkerPath  = "marker_single"
	defaultMarkerImage = "marker:latest"
)

// Extractor produces the block tree of a PDF. workDir is an empty directory
// owned by the call; backends that write intermediate files put them there.
type Extractor interface {
	Extract(ctx context.Context, pdfPath, workDir string) (*types.Document, error)
}

// New returns the Extractor selected by cfg.Backend. exec may be nil to use
// the real process executor.
func New(ctx context.Context, cfg types.ExtractionConfig, exec container.Executor) (Extractor, error) {
	if exec == nil {
		exec = container.OSExecutor{}
	}

	switch cfg.Backend {
	case types.BackendLocal, "":
		return &LocalExtractor{MarkerPath: cfg.MarkerPath, Exec: exec}, nil
	case types.BackendContainer:
		rt, err := container.DetectRuntime(ctx, exec)
		if err != nil {
			return nil, err
		}
		return NewContainerExtractor(ctx, rt, cfg.MarkerImage)
	case types.BackendServer:
		s, err := NewServerExtractor(cfg.MarkerURL, nil)
		if err != nil {
			return nil, err
		}
		s.APIKey = cfg.MarkerAPIKey
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported backend %q: use local, container, or server", cfg.Backend)
	}
}

// Unavailable returns an Extractor that fails every PDF with err. A batch
// uses it when the configured backend cannot be set up, so JSON inputs are
// still processed.
func Unavailable(err error) Extractor {
	return unavailable{err: err}
}

type unavailable struct{ err error }

func (u unavailable) Extract(_ context.Context, pdfPath, _ string) (*types.Document, error) {
	return nil, types.ExtractionError(pdfPath, u.err)
}

// Lazy returns an Extractor that runs setup on its first Extract call and
// reuses the result. A setup failure is reported for every PDF, like
// Unavailable, and setup is not retried.
func Lazy(setup func(ctx context.Context) (Extractor, error)) Extractor {
	return &lazy{setup: setup}
}

type lazy struct {
	setup func(ctx context.Context) (Extractor, error)
	once  sync.Once
	ext   Extractor
}

func (l *lazy) Extract(ctx context.Context, pdfPath, workDir string) (*types.Document, error) {
	l.once.Do(func() {
		ext, err := l.setup(ctx)
		if err != nil {
			ext = Unavailable(err)
		}
		l.ext = ext
	})
	return l.ext.Extract(ctx, pdfPath, workDir)
}

// markerArgs are the marker_single arguments selecting JSON output into outDir.
func markerArgs(pdfPath, outDir string) []string {
	return []string{pdfPath, "--output_format", "json", "--output_dir", outDir}
}

// readOutput loads the tree marker wrote for pdfPath into workDir. marker
// writes {stem}.json directly into the output directory; newer releases nest
// it as {stem}/{stem}.json, which is accepted too.
func readOutput(pdfPath, workDir string) (*types.Document, error) {
	stem := outpath.Stem(pdfPath)
	candidates := []string{
		filepath.Join(workDir, stem+".json"),
		filepath.Join(workDir, stem, stem+".json"),
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err != nil {
			continue
		}
		doc, err := blocktree.ParseFile(c)
		if err != nil {
			var fe *types.FileError
			if errors.As(err, &fe) {
				fe.Path = pdfPath
			}
			return nil, err
		}
		return doc, nil
	}
	return nil, types.ExtractionError(pdfPath,
		fmt.Errorf("marker did not produce %s", candidates[0]))
}
