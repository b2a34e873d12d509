// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the docflat pipeline:
// the hierarchical block tree read from the extraction tool, the flattened
// records docflat writes, batch bookkeeping, error kinds, and configuration.
package types

// Well-known block types assigned by the extraction tool. The set is open;
// these are the names the flatten policy refers to.
const (
	BlockPage          = "Page"
	BlockHeader        = "Header"
	BlockFooter        = "Footer"
	BlockPageHeader    = "PageHeader"
	BlockPageFooter    = "PageFooter"
	BlockPicture       = "Picture"
	BlockListGroup     = "ListGroup"
	BlockSectionHeader = "SectionHeader"
	BlockText          = "Text"

	// BlockUnknown is assigned when a block carries no usable block_type.
	BlockUnknown = "Unknown"
)

// Block is one node of the hierarchical tree emitted by the extraction tool.
type Block struct {
	// ID is an opaque identifier, e.g. "/page/1/Text/2".
	ID string `json:"id"`

	// BlockType is the category label (Page, SectionHeader, Text, ...).
	BlockType string `json:"block_type"`

	// HTML is the raw markup of the block. Empty when absent or null.
	HTML string `json:"html,omitempty"`

	// Polygon is the block outline as a list of [x, y] points.
	Polygon [][]float64 `json:"polygon,omitempty"`

	// BBox is the axis-aligned bounding box [x0, y0, x1, y1].
	BBox []float64 `json:"bbox,omitempty"`

	// Children are the nested blocks in document order.
	Children []Block `json:"children,omitempty"`

	// SectionHierarchy maps heading levels to the block IDs of the enclosing headings.
	SectionHierarchy map[string]string `json:"section_hierarchy,omitempty"`

	// Images maps image keys to encoded image data.
	Images map[string]string `json:"images,omitempty"`
}

// Document is the root of a block tree.
type Document struct {
	Children []Block `json:"children"`
}

// NodeCount returns the number of blocks in the tree, root excluded.
func (d *Document) NodeCount() int {
	n := 0
	stack := make([]*Block, 0, len(d.Children))
	for i := range d.Children {
		stack = append(stack, &d.Children[i])
	}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		for i := range b.Children {
			stack = append(stack, &b.Children[i])
		}
	}
	return n
}

// FlatBlock is a single record of docflat's output. It carries no structure.
type FlatBlock struct {
	ID        string `json:"id" yaml:"id"`
	BlockType string `json:"block_type" yaml:"block_type"`

	// HTML is the source markup, retained only when the keep-html option is set.
	HTML string `json:"html,omitempty" yaml:"html,omitempty"`

	// Text is the plain text derived from HTML. Omitted when empty.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Markdown is a Markdown rendering of HTML, present only when enabled.
	Markdown string `json:"markdown,omitempty" yaml:"markdown,omitempty"`
}

// Unprocessed records a discovered file that produced no artifact.
type Unprocessed struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

// ReasonUnsupported is the reason recorded for files that are neither PDF nor JSON.
const ReasonUnsupported = "unsupported file type"
