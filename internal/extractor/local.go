// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/docflat/internal/container"
	"github.com/pdiddy/docflat/pkg/types"
)

// LocalExtractor runs a marker_single binary on the host.
type LocalExtractor struct {
	// MarkerPath is the binary to run (default "marker_single" on PATH).
	MarkerPath string
	Exec       container.Executor
}

// Extract runs marker on pdfPath with workDir as its output directory. The
// call blocks until marker exits; a non-zero exit is an extraction error
// carrying marker's stderr.
func (l *LocalExtractor) Extract(ctx context.Context, pdfPath, workDir string) (*types.Document, error) {
	bin := l.MarkerPath
	if bin == "" {
		bin = defaultMarkerPath
	}
	exec := l.Exec
	if exec == nil {
		exec = container.OSExecutor{}
	}

	var stderr bytes.Buffer
	if err := exec.Run(ctx, bin, markerArgs(pdfPath, workDir), io.Discard, &stderr); err != nil {
		return nil, types.ExtractionError(pdfPath, toolFailure(bin, err, stderr.String()))
	}
	return readOutput(pdfPath, workDir)
}

func toolFailure(tool string, err error, stderr string) error {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%s failed: %w: %s", tool, err, lastLines(msg, 5))
	}
	return fmt.Errorf("%s failed: %w", tool, err)
}

// lastLines keeps the tail of a diagnostic, where tools put the actual error.
func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
