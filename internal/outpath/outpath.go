// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package outpath derives artifact destinations from input paths.
//
// Every artifact is named {stem}_processed.{ext}. In single-file mode it is
// written next to the input or into an explicit output directory; in batch
// mode it mirrors the input's position relative to the input root under a
// destination root that defaults to a sibling {root}_processed directory.
package outpath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Suffix marks docflat artifacts. Files whose name contains it are never
// picked up as inputs by the batch walker.
const Suffix = "_processed"

// ErrCollision is returned when a destination would overwrite its input.
var ErrCollision = errors.New("destination equals input path")

// Stem returns the file name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FileName returns the artifact file name for input.
func FileName(input, ext string) string {
	return Stem(input) + Suffix + "." + strings.TrimPrefix(ext, ".")
}

// Single returns the destination of input in single-file mode. With an empty
// outDir the artifact is a sibling of input.
func Single(input, outDir, ext string) (string, error) {
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return checked(input, filepath.Join(dir, FileName(input, ext)))
}

// BatchRoot returns the destination root for inputDir: outDir when given,
// otherwise a sibling directory named {base}_processed. Relative inputs such
// as "." are resolved first so the sibling is named after the directory.
func BatchRoot(inputDir, outDir string) string {
	if outDir != "" {
		return filepath.Clean(outDir)
	}
	dir := filepath.Clean(inputDir)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return filepath.Join(filepath.Dir(dir), filepath.Base(dir)+Suffix)
}

// Batch returns the destination of file, found under inputRoot, rebased
// under destRoot.
func Batch(inputRoot, destRoot, file, ext string) (string, error) {
	rel, err := filepath.Rel(inputRoot, file)
	if err != nil {
		return "", fmt.Errorf("relating %s to %s: %w", file, inputRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", file, inputRoot)
	}
	dst := filepath.Join(destRoot, filepath.Dir(rel), FileName(file, ext))
	return checked(file, dst)
}

// Ensure creates the parent directories of path.
func Ensure(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return nil
}

func checked(input, dst string) (string, error) {
	if filepath.Clean(dst) == filepath.Clean(input) {
		return "", fmt.Errorf("%w: %s", ErrCollision, input)
	}
	return dst, nil
}
