// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docflat/internal/artifact"
	"github.com/pdiddy/docflat/internal/flatten"
	"github.com/pdiddy/docflat/pkg/types"
)

const goodTree = `{"children": [
  {"id": "/page/0", "block_type": "Page", "children": [
    {"id": "/page/0/PageHeader/0", "block_type": "PageHeader", "html": "<p>Running head</p>"},
    {"id": "/page/0/SectionHeader/1", "block_type": "SectionHeader", "html": "<h1>Intro</h1>"},
    {"id": "/page/0/Text/2", "block_type": "Text", "html": "<p>Body</p>"}
  ]}
]}`

// fakeExtractor implements extractor.Extractor for testing.
type fakeExtractor struct {
	doc      *types.Document
	err      error
	calls    []string
	workDirs []string
}

func (f *fakeExtractor) Extract(_ context.Context, pdfPath, workDir string) (*types.Document, error) {
	f.calls = append(f.calls, pdfPath)
	f.workDirs = append(f.workDirs, workDir)
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func pageDoc() *types.Document {
	return &types.Document{Children: []types.Block{{
		ID: "/page/0", BlockType: types.BlockPage,
		Children: []types.Block{{ID: "/page/0/Text/0", BlockType: types.BlockText, HTML: "<p>From PDF</p>"}},
	}}}
}

func newProcessor(ext *fakeExtractor) *Processor {
	p := &Processor{Flattener: flatten.New(), Format: types.FormatJSON}
	if ext != nil {
		p.Extractor = ext
	}
	return p
}

func TestRunMixedDirectory(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"good.json":         goodTree,
		"bad.json":          `{"pages": []}`,
		"notes.txt":         "plain text",
		"nested/more.json":  goodTree,
		"target/skip.json":  goodTree,
		".git/hooks/x.json": goodTree,
	})
	dest := filepath.Join(t.TempDir(), "out")

	var log bytes.Buffer
	o := &Orchestrator{Processor: newProcessor(nil), OutputDir: dest, Out: &log}
	summary, err := o.Run(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, summary.Processed, 2)
	require.Len(t, summary.Unprocessed, 2)
	assert.Equal(t, 4, summary.Total())
	assert.True(t, summary.HasFailures())

	reasons := map[string]string{}
	for _, u := range summary.Unprocessed {
		reasons[filepath.Base(u.Path)] = u.Reason
	}
	assert.Contains(t, reasons["bad.json"], "schema error")
	assert.Equal(t, types.ReasonUnsupported, reasons["notes.txt"])

	blocks, err := artifact.Read(filepath.Join(dest, "good_processed.json"))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "Intro", blocks[0].Text)
	assert.Equal(t, "Body", blocks[1].Text)

	assert.FileExists(t, filepath.Join(dest, "nested", "more_processed.json"))
	assert.NoFileExists(t, filepath.Join(dest, "target", "skip_processed.json"))
	assert.NoFileExists(t, filepath.Join(dest, "bad_processed.json"))

	assert.Contains(t, log.String(), "processed: ")
	assert.Contains(t, log.String(), "failed:  ")
}

func TestRunDefaultDestinationIsSibling(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "docs")
	writeFiles(t, root, map[string]string{"a.json": goodTree})

	o := &Orchestrator{Processor: newProcessor(nil)}
	summary, err := o.Run(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, summary.Processed, 1)

	assert.Equal(t, filepath.Join(parent, "docs_processed"), summary.DestRoot)
	assert.FileExists(t, filepath.Join(parent, "docs_processed", "a_processed.json"))
}

func TestRunCurrentDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "docs")
	writeFiles(t, root, map[string]string{"a.json": goodTree})
	t.Chdir(root)
	wd, err := os.Getwd()
	require.NoError(t, err)

	o := &Orchestrator{Processor: newProcessor(nil)}
	summary, err := o.Run(context.Background(), ".")
	require.NoError(t, err)
	require.Len(t, summary.Processed, 1)

	sibling := filepath.Join(filepath.Dir(wd), "docs_processed")
	assert.Equal(t, sibling, summary.DestRoot)
	assert.FileExists(t, filepath.Join(sibling, "a_processed.json"))
	assert.NoDirExists(t, filepath.Join(root, "._processed"))
}

func TestRunRerunIsStable(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.json": goodTree, "b.json": goodTree})
	// Destination nested inside the input.
	dest := filepath.Join(root, "out")

	o := &Orchestrator{Processor: newProcessor(nil), OutputDir: dest}
	first, err := o.Run(context.Background(), root)
	require.NoError(t, err)
	second, err := o.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Len(t, first.Processed, 2)
	assert.Len(t, second.Processed, 2)
	assert.Empty(t, second.Unprocessed)
}

func TestRunSiblingArtifactsAreIgnored(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.json":           goodTree,
		"a_processed.json": `[{"id": "x", "block_type": "Text", "text": "old"}]`,
	})

	o := &Orchestrator{Processor: newProcessor(nil), OutputDir: t.TempDir()}
	summary, err := o.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, summary.Processed, 1)
	assert.Empty(t, summary.Unprocessed)
}

func TestRunPDFs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"paper.pdf": "%PDF-1.4", "scan.PDF": "%PDF-1.4"})
	dest := t.TempDir()

	ext := &fakeExtractor{doc: pageDoc()}
	o := &Orchestrator{Processor: newProcessor(ext), OutputDir: dest}
	summary, err := o.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Len(t, summary.Processed, 2)
	assert.Len(t, ext.calls, 2)
	require.Len(t, ext.workDirs, 2)
	assert.NotEqual(t, ext.workDirs[0], ext.workDirs[1])
	for _, dir := range ext.workDirs {
		assert.NoDirExists(t, dir)
	}

	blocks, err := artifact.Read(filepath.Join(dest, "paper_processed.json"))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "From PDF", blocks[0].Text)
}

func TestRunExtractionFailureIsRecorded(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"broken.pdf": "%PDF", "ok.json": goodTree})

	ext := &fakeExtractor{err: types.ExtractionError("broken.pdf", errors.New("marker_single failed: exit status 1"))}
	o := &Orchestrator{Processor: newProcessor(ext), OutputDir: t.TempDir()}
	summary, err := o.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Len(t, summary.Processed, 1)
	require.Len(t, summary.Unprocessed, 1)
	assert.Equal(t, "extraction error: marker_single failed: exit status 1", summary.Unprocessed[0].Reason)
}

func TestRunPreflightRejects(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"fake.pdf": "not a pdf"})

	ext := &fakeExtractor{doc: pageDoc()}
	p := newProcessor(ext)
	p.Preflight = func(path string) (int, error) {
		return 0, types.ExtractionError(path, errors.New("validating PDF: bad header"))
	}
	o := &Orchestrator{Processor: p, OutputDir: t.TempDir()}
	summary, err := o.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Empty(t, ext.calls)
	require.Len(t, summary.Unprocessed, 1)
	assert.Contains(t, summary.Unprocessed[0].Reason, "bad header")
}

func TestRunWithoutExtractor(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"paper.pdf": "%PDF"})

	o := &Orchestrator{Processor: newProcessor(nil), OutputDir: t.TempDir()}
	summary, err := o.Run(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, summary.Unprocessed, 1)
	assert.Contains(t, summary.Unprocessed[0].Reason, "extraction error")
}

func TestRunYAMLFormat(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.json": goodTree})
	dest := t.TempDir()

	p := newProcessor(nil)
	p.Format = types.FormatYAML
	o := &Orchestrator{Processor: p, OutputDir: dest}
	_, err := o.Run(context.Background(), root)
	require.NoError(t, err)

	blocks, err := artifact.Read(filepath.Join(dest, "a_processed.yaml"))
	require.NoError(t, err)
	assert.Len(t, blocks, 2)
}

func TestRunMissingRoot(t *testing.T) {
	o := &Orchestrator{Processor: newProcessor(nil)}
	_, err := o.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.json": goodTree})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := &Orchestrator{Processor: newProcessor(nil), OutputDir: t.TempDir()}
	summary, err := o.Run(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, summary.Processed)
}

func TestSummaryPrint(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		want    []string
		absent  []string
	}{
		{
			name:    "all processed",
			summary: Summary{Processed: []Outcome{{Path: "a.json"}}},
			want:    []string{"Batch summary: 1 processed, 0 unprocessed (total: 1)"},
			absent:  []string{"Unprocessed files"},
		},
		{
			name: "with failures",
			summary: Summary{
				Processed: []Outcome{{Path: "a.json"}},
				Unprocessed: []types.Unprocessed{
					{Path: "/in/notes.txt", Reason: types.ReasonUnsupported},
					{Path: "/in/bad.json", Reason: "schema error: top-level value has no children array"},
				},
			},
			want: []string{
				"Batch summary: 1 processed, 2 unprocessed (total: 3)",
				"Unprocessed files:",
				"  /in/notes.txt: unsupported file type",
				"  /in/bad.json: schema error: top-level value has no children array",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.summary.Print(&buf)
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, buf.String(), a)
			}
		})
	}
}

func TestProcessFile(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		outDir   bool
		wantErr  error
		wantName string
	}{
		{name: "sibling artifact", file: "doc.json", content: goodTree, wantName: "doc_processed.json"},
		{name: "output directory", file: "doc.json", content: goodTree, outDir: true, wantName: "doc_processed.json"},
		{name: "unsupported type", file: "doc.txt", content: "text", wantErr: types.ErrUnsupported},
		{name: "schema error", file: "doc.json", content: `[1, 2]`, wantErr: types.ErrSchema},
		{name: "invalid json", file: "doc.json", content: `{`, wantErr: types.ErrSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			input := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(input, []byte(tt.content), 0o644))

			wantDir := dir
			outDir := ""
			if tt.outDir {
				outDir = filepath.Join(t.TempDir(), "new", "dir")
				wantDir = outDir
			}

			out, err := newProcessor(nil).ProcessFile(context.Background(), input, outDir)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(wantDir, tt.wantName), out.Output)
			assert.Equal(t, 2, out.Blocks)
			assert.Equal(t, 1, out.Stats.Pruned)
			assert.FileExists(t, out.Output)
		})
	}
}

func TestProcessFileMissing(t *testing.T) {
	_, err := newProcessor(nil).ProcessFile(context.Background(), filepath.Join(t.TempDir(), "gone.json"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIO)
}
