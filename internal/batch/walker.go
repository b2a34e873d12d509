// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/docflat/internal/outpath"
)

// Kind classifies a discovered file.
type Kind int

const (
	KindUnsupported Kind = iota
	KindPDF
	KindJSON
	// KindUnreadable marks an entry the walk could not read.
	KindUnreadable
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindJSON:
		return "json"
	case KindUnreadable:
		return "unreadable"
	default:
		return "unsupported"
	}
}

// Classify routes a path by extension, ignoring case.
func Classify(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF
	case ".json":
		return KindJSON
	default:
		return KindUnsupported
	}
}

// DefaultExcludeDirs are build and version-control directories never walked.
var DefaultExcludeDirs = []string{"target", ".git"}

// Entry is one discovered file.
type Entry struct {
	Path string
	Kind Kind
	// Err is set for KindUnreadable entries.
	Err error
}

// Discovery is the result of walking an input root.
type Discovery struct {
	// Root is the canonical input root.
	Root    string
	Entries []Entry
}

// Count returns the number of entries of kind k.
func (d Discovery) Count(k Kind) int {
	n := 0
	for _, e := range d.Entries {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Walker discovers candidate files under an input root.
type Walker struct {
	// ExcludeDirs are directory names skipped wherever they appear below the
	// root (default DefaultExcludeDirs).
	ExcludeDirs []string

	// Skip lists directories that are never entered, e.g. a destination
	// root nested inside the input.
	Skip []string
}

// Discover walks root in lexical order. Only a root that cannot be
// canonicalized or read is an error; unreadable entries below it are
// returned as KindUnreadable. Excluded directories, skipped directories,
// and files whose name carries the artifact suffix are left out entirely.
func (w *Walker) Discover(root string) (Discovery, error) {
	canon, err := canonical(root)
	if err != nil {
		return Discovery{}, fmt.Errorf("resolving input root %s: %w", root, err)
	}

	exclude := w.ExcludeDirs
	if exclude == nil {
		exclude = DefaultExcludeDirs
	}
	skip := make(map[string]bool, len(w.Skip))
	for _, s := range w.Skip {
		if c, err := canonical(s); err == nil {
			skip[c] = true
		}
	}

	disc := Discovery{Root: canon}
	err = filepath.WalkDir(canon, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == canon {
				return err
			}
			disc.Entries = append(disc.Entries, Entry{Path: path, Kind: KindUnreadable, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == canon {
				return nil
			}
			if skip[path] || excluded(canon, path, exclude, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			// Directory links are not followed.
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				return nil
			}
		}
		if strings.Contains(d.Name(), outpath.Suffix) || excluded(canon, path, exclude, false) {
			return nil
		}
		disc.Entries = append(disc.Entries, Entry{Path: path, Kind: Classify(path)})
		return nil
	})
	if err != nil {
		return Discovery{}, fmt.Errorf("walking %s: %w", canon, err)
	}
	return disc, nil
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// excluded reports whether path lies under an excluded directory of root.
// The check uses the canonical form of path; when that cannot be resolved
// it falls back to matching "/<name>/" segments of the path below root.
func excluded(root, path string, names []string, isDir bool) bool {
	canon, err := filepath.EvalSymlinks(path)
	if err != nil {
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		slashed := "/" + filepath.ToSlash(rel)
		if isDir {
			slashed += "/"
		}
		for _, n := range names {
			if strings.Contains(slashed, "/"+n+"/") {
				return true
			}
		}
		return false
	}

	rel, err := filepath.Rel(root, canon)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		// Symlinked in from outside the root.
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if !isDir {
		parts = parts[:len(parts)-1]
	}
	for _, p := range parts {
		for _, n := range names {
			if p == n {
				return true
			}
		}
	}
	return false
}
