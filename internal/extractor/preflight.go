// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extractor

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdiddy/docflat/pkg/types"
)

// Preflight validates pdfPath with pdfcpu and returns its page count. It
// lets a batch reject files that are not PDFs before starting marker, which
// can take minutes per document.
func Preflight(pdfPath string) (int, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, types.IOError(pdfPath, fmt.Errorf("opening PDF: %w", err))
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return 0, types.ExtractionError(pdfPath, fmt.Errorf("validating PDF: %w", err))
	}
	return ctx.PageCount, nil
}
