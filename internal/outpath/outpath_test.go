// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingle(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		outDir string
		ext    string
		want   string
	}{
		{
			name:  "sibling of pdf",
			input: "/path/to/document.pdf",
			ext:   "json",
			want:  "/path/to/document_processed.json",
		},
		{
			name:  "sibling of json",
			input: "/path/to/document.json",
			ext:   "json",
			want:  "/path/to/document_processed.json",
		},
		{
			name:   "explicit output directory",
			input:  "/path/to/document.pdf",
			outDir: "/custom/output",
			ext:    "json",
			want:   "/custom/output/document_processed.json",
		},
		{
			name:  "yaml extension with leading dot",
			input: "/path/to/report.v2.json",
			ext:   ".yaml",
			want:  "/path/to/report.v2_processed.yaml",
		},
		{
			name:  "relative input",
			input: "doc.pdf",
			ext:   "json",
			want:  "doc_processed.json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Single(tt.input, tt.outDir, tt.ext)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEqual(t, tt.input, got)
		})
	}
}

func TestSingleNeverReturnsInput(t *testing.T) {
	// An input already carrying the suffix still gets a distinct name.
	got, err := Single("/data/a_processed.json", "", "json")
	require.NoError(t, err)
	assert.Equal(t, "/data/a_processed_processed.json", got)

	_, err = checked("/data/a.json", "/data/./a.json")
	assert.ErrorIs(t, err, ErrCollision)
}

func TestBatchRoot(t *testing.T) {
	assert.Equal(t, "/data/papers_processed", BatchRoot("/data/papers", ""))
	assert.Equal(t, "/data/papers_processed", BatchRoot("/data/papers/", ""))
	assert.Equal(t, "/out", BatchRoot("/data/papers", "/out/"))
}

func TestBatchRootRelative(t *testing.T) {
	parent := t.TempDir()
	docs := filepath.Join(parent, "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "nested"), 0o755))

	t.Chdir(docs)
	wd, err := os.Getwd()
	require.NoError(t, err)
	sibling := filepath.Join(filepath.Dir(wd), "docs_processed")

	assert.Equal(t, sibling, BatchRoot(".", ""))
	assert.Equal(t, sibling, BatchRoot("./", ""))
	assert.Equal(t, filepath.Join(wd, "nested_processed"), BatchRoot("nested", ""))

	t.Chdir(filepath.Join(docs, "nested"))
	assert.Equal(t, sibling, BatchRoot("..", ""))
}

func TestBatch(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		want    string
		wantErr bool
	}{
		{name: "top level", file: "/in/a.pdf", want: "/out/a_processed.json"},
		{name: "nested", file: "/in/x/y/b.json", want: "/out/x/y/b_processed.json"},
		{name: "outside root", file: "/elsewhere/c.pdf", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Batch("/in", "/out", tt.file, "json")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBatchIntoInputRoot(t *testing.T) {
	got, err := Batch("/in", "/in", "/in/sub/a.json", "json")
	require.NoError(t, err)
	assert.Equal(t, "/in/sub/a_processed.json", got)
}

func TestEnsure(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a", "b", "c_processed.json")
	require.NoError(t, Ensure(dst))

	info, err := os.Stat(filepath.Dir(dst))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	assert.Error(t, Ensure(filepath.Join(blocker, "sub", "x.json")))
}
