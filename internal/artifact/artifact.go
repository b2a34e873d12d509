// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact serializes flattened blocks to disk and reads them back.
// An artifact is a top-level array of flat blocks, as JSON (indented by two
// spaces) or YAML.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docflat/pkg/types"
)

// Encode serializes blocks in the given format. A nil slice encodes as an
// empty array.
func Encode(blocks []types.FlatBlock, format types.OutputFormat) ([]byte, error) {
	if blocks == nil {
		blocks = []types.FlatBlock{}
	}
	switch format {
	case types.FormatJSON, "":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(blocks); err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return buf.Bytes(), nil
	case types.FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(blocks); err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q: use json or yaml", format)
	}
}

// Write serializes blocks to path through a temp file in the same directory,
// so a failed write never leaves a truncated artifact behind.
func Write(path string, blocks []types.FlatBlock, format types.OutputFormat) error {
	data, err := Encode(blocks, format)
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".docflat-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing artifact: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting artifact mode: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Read loads an artifact, choosing the decoder by file extension.
func Read(path string) ([]types.FlatBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", path, err)
	}

	var blocks []types.FlatBlock
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &blocks)
	default:
		err = json.Unmarshal(data, &blocks)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing artifact %s: %w", path, err)
	}
	return blocks, nil
}
