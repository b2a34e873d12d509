// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package blocktree

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docflat/pkg/types"
)

const sampleTree = `{
  "children": [
    {
      "id": "/page/1/Page/0",
      "block_type": "Page",
      "html": null,
      "polygon": [[0.0, 0.0], [612.0, 0.0], [612.0, 792.0], [0.0, 792.0]],
      "children": [
        {
          "id": "/page/1/SectionHeader/1",
          "block_type": "SectionHeader",
          "html": "<h1>Introduction</h1>",
          "bbox": [100, 100, 200, 130],
          "section_hierarchy": {"1": "/page/1/SectionHeader/1"},
          "children": null
        },
        {
          "id": "/page/1/Text/2",
          "block_type": "Text",
          "html": "<p>This is some sample text content.</p>"
        }
      ]
    }
  ]
}`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sampleTree))
	require.NoError(t, err)
	require.Len(t, doc.Children, 1)

	page := doc.Children[0]
	assert.Equal(t, "/page/1/Page/0", page.ID)
	assert.Equal(t, types.BlockPage, page.BlockType)
	assert.Empty(t, page.HTML)
	assert.Len(t, page.Polygon, 4)
	require.Len(t, page.Children, 2)

	header := page.Children[0]
	assert.Equal(t, "<h1>Introduction</h1>", header.HTML)
	assert.Equal(t, []float64{100, 100, 200, 130}, header.BBox)
	assert.Equal(t, map[string]string{"1": "/page/1/SectionHeader/1"}, header.SectionHierarchy)
	assert.Empty(t, header.Children)

	assert.Equal(t, 3, doc.NodeCount())
}

func TestParseSchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		errMsg string
	}{
		{name: "invalid json", input: `{"children": [`, errMsg: "decoding document"},
		{name: "top level array", input: `[{"id": "a"}]`, errMsg: "decoding document"},
		{name: "top level null", input: `null`, errMsg: "not an object"},
		{name: "missing children", input: `{"pages": []}`, errMsg: "no children"},
		{name: "null children", input: `{"children": null}`, errMsg: "no children"},
		{name: "children not array", input: `{"children": {"id": "a"}}`, errMsg: "not an array"},
		{name: "child not object", input: `{"children": [{"id": "a"}, 42]}`, errMsg: "children[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrSchema), "want schema error, got %v", err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseLenientFields(t *testing.T) {
	input := `{"children": [
	  {
	    "id": 17,
	    "html": ["not", "a", "string"],
	    "polygon": "garbage",
	    "images": {"a": 1},
	    "children": [
	      "stray string",
	      {"id": "ok", "block_type": "Text", "html": "<p>kept</p>"},
	      null
	    ]
	  },
	  {"block_type": "Text", "children": {"not": "an array"}}
	]}`

	doc, err := Parse([]byte(input))
	require.NoError(t, err)
	require.Len(t, doc.Children, 2)

	first := doc.Children[0]
	assert.Equal(t, "17", first.ID)
	assert.Equal(t, types.BlockUnknown, first.BlockType)
	assert.Empty(t, first.HTML)
	assert.Nil(t, first.Polygon)
	assert.Nil(t, first.Images)
	require.Len(t, first.Children, 1)
	assert.Equal(t, "ok", first.Children[0].ID)

	second := doc.Children[1]
	assert.Equal(t, "", second.ID)
	assert.Empty(t, second.Children)
}

func TestParseEmptyChildren(t *testing.T) {
	doc, err := Parse([]byte(`{"children": []}`))
	require.NoError(t, err)
	assert.Empty(t, doc.Children)
	assert.Equal(t, 0, doc.NodeCount())
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(sampleTree), 0o644))
	doc, err := ParseFile(good)
	require.NoError(t, err)
	assert.Len(t, doc.Children, 1)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"title": "x"}`), 0o644))
	_, err = ParseFile(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSchema)
	assert.Contains(t, err.Error(), bad)

	_, err = ParseFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIO)
}
