// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index stores flattened artifacts in SQLite and searches their
// block text.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/docflat/internal/artifact"
	"github.com/pdiddy/docflat/internal/outpath"
	"github.com/pdiddy/docflat/pkg/types"
)

const (
	// DefaultDBPath is used when IndexConfig.DBPath is empty.
	DefaultDBPath = "docflat.db"

	defaultMaxResults = 20
)

// Store manages the block index database.
type Store struct {
	db         *sql.DB
	maxResults int
	// fts is false when the SQLite build lacks FTS5; search then falls
	// back to LIKE matching.
	fts    bool
	logger *slog.Logger
}

// Open opens or creates the index at cfg.DBPath and creates the schema if
// it does not exist.
func Open(cfg types.IndexConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, maxResults: maxResults, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// FullText reports whether searches use FTS5.
func (s *Store) FullText() bool {
	return s.fts
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS artifacts (
			path TEXT PRIMARY KEY,
			mod_time TEXT NOT NULL,
			blocks INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS blocks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			artifact TEXT NOT NULL REFERENCES artifacts(path) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			block_id TEXT NOT NULL,
			block_type TEXT NOT NULL,
			text TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_artifact ON blocks(artifact)`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_type ON blocks(block_type)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='blocks_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		s.fts = true
		return nil
	}

	if _, err := s.db.Exec(`CREATE VIRTUAL TABLE blocks_fts USING fts5(text, content=blocks, content_rowid=rowid)`); err != nil {
		s.logger.Debug("FTS5 unavailable, using LIKE search", "error", err)
		return nil
	}
	triggers := []string{
		`CREATE TRIGGER blocks_ai AFTER INSERT ON blocks BEGIN
			INSERT INTO blocks_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER blocks_ad AFTER DELETE ON blocks BEGIN
			INSERT INTO blocks_fts(blocks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
		`CREATE TRIGGER blocks_au AFTER UPDATE ON blocks BEGIN
			INSERT INTO blocks_fts(blocks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			INSERT INTO blocks_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
	}
	for _, stmt := range triggers {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	s.fts = true
	return nil
}

// IngestSummary holds counts from an indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
	// Removed counts indexed artifacts under the directory that are gone
	// from disk.
	Removed int
}

// Total returns the number of artifacts looked at.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// IsArtifact reports whether path names a docflat artifact.
func IsArtifact(path string) bool {
	name := filepath.Base(path)
	if !strings.Contains(name, outpath.Suffix) {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Ingest indexes every artifact under dir. Artifacts whose modification
// time matches the stored one are skipped; changed ones replace their
// previous blocks, and indexed artifacts under dir that no longer exist are
// removed. Per-artifact failures are counted and reported on w.
func (s *Store) Ingest(ctx context.Context, dir string, w io.Writer) (IngestSummary, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsArtifact(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading artifact directory %s: %w", dir, err)
	}

	var summary IngestSummary
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", path, err)
			summary.Failed++
			continue
		}
		seen[abs] = true
		info, err := os.Stat(abs)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", path, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT mod_time FROM artifacts WHERE path = ?`, abs,
		).Scan(&storedModTime)
		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", path)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		blocks, err := artifact.Read(abs)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", path, err)
			summary.Failed++
			continue
		}

		if err := s.ingestArtifact(ctx, abs, modTime, blocks); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", path, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d blocks)\n", path, len(blocks))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d blocks)\n", path, len(blocks))
			summary.Indexed++
		}
	}

	removed, err := s.prune(ctx, dir, seen, w)
	if err != nil {
		return summary, err
	}
	summary.Removed = removed

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d, removed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed, summary.Removed)
	return summary, nil
}

// prune deletes indexed artifacts under dir that were not seen on disk.
func (s *Store) prune(ctx context.Context, dir string, seen map[string]bool, w io.Writer) (int, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", dir, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path FROM artifacts ORDER BY path`)
	if err != nil {
		return 0, fmt.Errorf("listing artifacts: %w", err)
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning artifact: %w", err)
		}
		if !seen[path] && within(root, path) {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("listing artifacts: %w", err)
	}
	rows.Close()

	for i, path := range stale {
		if err := s.removeArtifact(ctx, path); err != nil {
			return i, err
		}
		fmt.Fprintf(w, "removed %s\n", path)
	}
	return len(stale), nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *Store) removeArtifact(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE artifact = ?`, path); err != nil {
		return fmt.Errorf("deleting blocks of %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("deleting artifact %s: %w", path, err)
	}
	return tx.Commit()
}

func (s *Store) ingestArtifact(ctx context.Context, path, modTime string, blocks []types.FlatBlock) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE artifact = ?`, path); err != nil {
		return fmt.Errorf("deleting old blocks: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO artifacts (path, mod_time, blocks) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET mod_time=excluded.mod_time, blocks=excluded.blocks`,
		path, modTime, len(blocks),
	)
	if err != nil {
		return fmt.Errorf("upserting artifact: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO blocks (artifact, seq, block_id, block_type, text) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, b := range blocks {
		if _, err := stmt.ExecContext(ctx, path, i, b.ID, b.BlockType, b.Text); err != nil {
			return fmt.Errorf("inserting block %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

// Counts returns the number of indexed artifacts and blocks.
func (s *Store) Counts(ctx context.Context) (artifacts, blocks int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT (SELECT count(*) FROM artifacts), (SELECT count(*) FROM blocks)`,
	).Scan(&artifacts, &blocks)
	if err != nil {
		return 0, 0, fmt.Errorf("counting index rows: %w", err)
	}
	return artifacts, blocks, nil
}
