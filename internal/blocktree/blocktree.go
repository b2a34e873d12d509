// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package blocktree decodes the hierarchical block tree emitted by the
// extraction tool.
//
// Decoding is strict at the top level and lenient below it: the document
// must be an object whose "children" is an array of objects, but a malformed
// field inside a block falls back to its zero value and a malformed nested
// child is dropped instead of failing the whole document.
package blocktree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pdiddy/docflat/pkg/types"
)

// Parse decodes a block tree. Failures are *types.FileError of kind
// types.ErrSchema with an empty path.
func Parse(data []byte) (*types.Document, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, schemaErr("decoding document: %v", err)
	}
	if root == nil {
		return nil, schemaErr("document is not an object")
	}

	raw, ok := root["children"]
	if !ok || isNull(raw) {
		return nil, schemaErr("document has no children")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, schemaErr("children is not an array")
	}

	doc := &types.Document{Children: make([]types.Block, 0, len(items))}
	for i, item := range items {
		b, ok := decodeBlock(item)
		if !ok {
			return nil, schemaErr("children[%d] is not a block object", i)
		}
		doc.Children = append(doc.Children, b)
	}
	return doc, nil
}

// ParseFile reads and decodes the block tree at path. Read failures are
// types.ErrIO, decoding failures types.ErrSchema; both carry the path.
func ParseFile(path string) (*types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.IOError(path, fmt.Errorf("reading block tree: %w", err))
	}
	doc, err := Parse(data)
	if err != nil {
		if fe, ok := err.(*types.FileError); ok {
			fe.Path = path
		}
		return nil, err
	}
	return doc, nil
}

func schemaErr(format string, args ...any) error {
	return types.SchemaError("", fmt.Errorf(format, args...))
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeBlock decodes one block leniently. It reports false only when raw is
// not a JSON object.
func decodeBlock(raw json.RawMessage) (types.Block, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return types.Block{}, false
	}

	b := types.Block{
		ID:        decodeString(fields["id"]),
		BlockType: decodeString(fields["block_type"]),
		HTML:      decodeString(fields["html"]),
	}
	if b.BlockType == "" {
		b.BlockType = types.BlockUnknown
	}

	decodeInto(fields["polygon"], &b.Polygon)
	decodeInto(fields["bbox"], &b.BBox)
	decodeInto(fields["section_hierarchy"], &b.SectionHierarchy)
	decodeInto(fields["images"], &b.Images)

	var children []json.RawMessage
	if decodeInto(fields["children"], &children) {
		for _, c := range children {
			if child, ok := decodeBlock(c); ok {
				b.Children = append(b.Children, child)
			}
		}
	}
	return b, true
}

// decodeString returns raw as a string. Numbers keep their literal form;
// anything else yields "".
func decodeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// decodeInto decodes raw into v, leaving v at its zero value on any error.
func decodeInto[T any](raw json.RawMessage, v *T) bool {
	if len(raw) == 0 || isNull(raw) {
		return false
	}
	var tmp T
	if err := json.Unmarshal(raw, &tmp); err != nil {
		return false
	}
	*v = tmp
	return true
}
