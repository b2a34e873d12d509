// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package flatten turns a block tree into an ordered list of content blocks.
//
// The walk is pre-order, depth-first, left to right, driven by an explicit
// stack so arbitrarily deep trees cannot exhaust the goroutine stack. A
// Policy decides which block types are dropped: transparent types are not
// emitted but their children are visited; pruned types are dropped along
// with their whole subtree.
package flatten

import (
	"log/slog"

	"github.com/pdiddy/docflat/internal/htmltext"
	"github.com/pdiddy/docflat/pkg/types"
)

// Policy is the content-type exclusion set.
type Policy struct {
	Transparent map[string]bool
	Pruned      map[string]bool
}

// DefaultPolicy treats Page as a pure container and prunes headers,
// footers, pictures, and list groups.
func DefaultPolicy() Policy {
	return Policy{
		Transparent: map[string]bool{types.BlockPage: true},
		Pruned: map[string]bool{
			types.BlockHeader:     true,
			types.BlockFooter:     true,
			types.BlockPageHeader: true,
			types.BlockPageFooter: true,
			types.BlockPicture:    true,
			types.BlockListGroup:  true,
		},
	}
}

// WithPruned returns a copy of p that also prunes the given block types.
// A type already marked transparent stays transparent.
func (p Policy) WithPruned(blockTypes ...string) Policy {
	out := Policy{
		Transparent: make(map[string]bool, len(p.Transparent)),
		Pruned:      make(map[string]bool, len(p.Pruned)+len(blockTypes)),
	}
	for k, v := range p.Transparent {
		out.Transparent[k] = v
	}
	for k, v := range p.Pruned {
		out.Pruned[k] = v
	}
	for _, bt := range blockTypes {
		if bt != "" && !out.Transparent[bt] {
			out.Pruned[bt] = true
		}
	}
	return out
}

// Excluded reports whether blocks of type blockType are never emitted.
func (p Policy) Excluded(blockType string) bool {
	return p.Transparent[blockType] || p.Pruned[blockType]
}

// Stats counts what a single Flatten call did.
type Stats struct {
	Visited int
	Emitted int
	// Pruned counts pruned subtree roots; their descendants are not visited.
	Pruned int
}

// Flattener converts block trees using a fixed policy and output options.
type Flattener struct {
	Policy Policy

	// KeepHTML copies the source markup into each flat block.
	KeepHTML bool

	// Markdown adds a Markdown rendering of the markup to each flat block.
	Markdown bool

	Logger *slog.Logger
}

// New returns a Flattener with the default policy.
func New() *Flattener {
	return &Flattener{Policy: DefaultPolicy()}
}

// Flatten returns the content blocks of doc in traversal order.
func (f *Flattener) Flatten(doc *types.Document) []types.FlatBlock {
	out, _ := f.FlattenWithStats(doc)
	return out
}

// FlattenWithStats is Flatten plus traversal counters. It never fails: the
// output is always a subset of the tree's nodes, in pre-order.
func (f *Flattener) FlattenWithStats(doc *types.Document) ([]types.FlatBlock, Stats) {
	var stats Stats
	if doc == nil {
		return []types.FlatBlock{}, stats
	}

	out := make([]types.FlatBlock, 0, len(doc.Children))
	stack := make([]*types.Block, 0, len(doc.Children))
	stack = pushChildren(stack, doc.Children)

	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stats.Visited++

		switch {
		case f.Policy.Pruned[b.BlockType]:
			stats.Pruned++
			continue
		case f.Policy.Transparent[b.BlockType]:
		default:
			out = append(out, f.convert(b))
			stats.Emitted++
		}
		stack = pushChildren(stack, b.Children)
	}

	f.logger().Debug("flattened block tree",
		"visited", stats.Visited, "emitted", stats.Emitted, "pruned", stats.Pruned)
	return out, stats
}

// pushChildren pushes children in reverse so the leftmost child pops first.
func pushChildren(stack []*types.Block, children []types.Block) []*types.Block {
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, &children[i])
	}
	return stack
}

func (f *Flattener) convert(b *types.Block) types.FlatBlock {
	fb := types.FlatBlock{
		ID:        b.ID,
		BlockType: b.BlockType,
		Text:      htmltext.Extract(b.HTML),
	}
	if f.KeepHTML {
		fb.HTML = b.HTML
	}
	if f.Markdown {
		md, err := htmltext.Markdown(b.HTML)
		if err != nil {
			f.logger().Warn("markdown rendering failed", "block", b.ID, "error", err)
		} else {
			fb.Markdown = md
		}
	}
	return fb
}

func (f *Flattener) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}
