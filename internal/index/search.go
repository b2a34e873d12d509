// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Query holds search parameters.
type Query struct {
	// Terms are matched against block text; all must match.
	Terms string

	// BlockType restricts hits to one block type.
	BlockType string

	// Artifact restricts hits to one artifact path. Relative paths are
	// resolved against the working directory, as Ingest stores them.
	Artifact string

	// Limit caps the result count. Zero uses the store default.
	Limit int
}

// IsEmpty reports whether the query has no terms or filters.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Terms) == "" && q.BlockType == "" && q.Artifact == ""
}

// Hit is one matching block.
type Hit struct {
	Artifact  string `json:"artifact" yaml:"artifact"`
	Seq       int    `json:"seq" yaml:"seq"`
	BlockID   string `json:"block_id" yaml:"block_id"`
	BlockType string `json:"block_type" yaml:"block_type"`
	Text      string `json:"text" yaml:"text"`
}

// Search returns blocks matching q. Full-text results are ranked by
// relevance; otherwise hits come in artifact and block order.
func (s *Store) Search(ctx context.Context, q Query) ([]Hit, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = s.maxResults
	}
	terms := strings.Fields(q.Terms)
	if q.Artifact != "" {
		abs, err := filepath.Abs(q.Artifact)
		if err != nil {
			return nil, fmt.Errorf("resolving artifact %s: %w", q.Artifact, err)
		}
		q.Artifact = abs
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = s.fts && len(terms) > 0
	)

	if useFTS {
		qb.WriteString(
			`SELECT b.artifact, b.seq, b.block_id, b.block_type, b.text
			FROM blocks_fts
			JOIN blocks b ON b.rowid = blocks_fts.rowid
			WHERE blocks_fts MATCH ?`)
		args = append(args, ftsQuery(terms))
	} else {
		qb.WriteString(
			`SELECT b.artifact, b.seq, b.block_id, b.block_type, b.text
			FROM blocks b
			WHERE 1=1`)
		for _, t := range terms {
			qb.WriteString(` AND b.text LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(t)+"%")
		}
	}

	if q.BlockType != "" {
		qb.WriteString(` AND b.block_type = ?`)
		args = append(args, q.BlockType)
	}
	if q.Artifact != "" {
		qb.WriteString(` AND b.artifact = ?`)
		args = append(args, q.Artifact)
	}

	if useFTS {
		qb.WriteString(` ORDER BY blocks_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY b.artifact, b.seq`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Artifact, &h.Seq, &h.BlockID, &h.BlockType, &h.Text); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ftsQuery quotes each term so FTS5 treats punctuation literally.
func ftsQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
