// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pdiddy/docflat/internal/container"
	"github.com/pdiddy/docflat/pkg/types"
)

const (
	containerInputDir  = "/input"
	containerOutputDir = "/output"
)

// ContainerExtractor runs marker_single inside a container image. The PDF's
// directory is mounted read-only and the work directory receives the output.
type ContainerExtractor struct {
	runtime container.Runtime
	image   string
}

// NewContainerExtractor creates an extractor that uses rt to run image
// (default "marker:latest"). It verifies that the image exists locally.
func NewContainerExtractor(ctx context.Context, rt container.Runtime, image string) (*ContainerExtractor, error) {
	if image == "" {
		image = defaultMarkerImage
	}
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("marker image not available in %s: %w", rt.Name(), err)
	}
	return &ContainerExtractor{runtime: rt, image: image}, nil
}

// Extract runs marker in a fresh container for pdfPath.
func (c *ContainerExtractor) Extract(ctx context.Context, pdfPath, workDir string) (*types.Document, error) {
	absPDF, err := filepath.Abs(pdfPath)
	if err != nil {
		return nil, types.IOError(pdfPath, err)
	}
	absWork, err := filepath.Abs(workDir)
	if err != nil {
		return nil, types.IOError(pdfPath, err)
	}

	inContainer := containerInputDir + "/" + filepath.Base(absPDF)
	args := append([]string{defaultMarkerPath}, markerArgs(inContainer, containerOutputDir)...)

	var stderr bytes.Buffer
	err = c.runtime.Run(ctx, container.RunSpec{
		Image: c.image,
		Mounts: []container.Mount{
			{Source: filepath.Dir(absPDF), Target: containerInputDir, ReadOnly: true},
			{Source: absWork, Target: containerOutputDir},
		},
		Args:   args,
		Stdout: io.Discard,
		Stderr: &stderr,
	})
	if err != nil {
		return nil, types.ExtractionError(pdfPath, toolFailure(c.image, err, stderr.String()))
	}
	return readOutput(pdfPath, workDir)
}
