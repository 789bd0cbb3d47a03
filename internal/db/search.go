package db

import (
	"context"
	"strings"
	"unicode"

	"canopy/explorer/internal/errors"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "is": true,
	"it": true, "and": true, "or": true, "with": true, "from": true,
	"by": true, "this": true, "that": true, "as": true, "be": true,
}

// BuildFTSQuery preprocesses a label query for FTS5.
// Splits on whitespace, trims punctuation, drops stopwords and single
// characters, and turns each remaining word into a quoted prefix term
// joined with " OR ".
func BuildFTSQuery(query string) string {
	words := strings.Fields(query)
	var filtered []string
	for _, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if len(trimmed) < 2 {
			continue
		}
		if stopwords[strings.ToLower(trimmed)] {
			continue
		}
		filtered = append(filtered, `"`+strings.ReplaceAll(trimmed, `"`, `""`)+`"*`)
	}
	return strings.Join(filtered, " OR ")
}

// SearchNodes finds nodes whose label or detail matches query. Uses the FTS5
// index when present and falls back to a label LIKE scan otherwise.
func (d *DB) SearchNodes(ctx context.Context, query string, limit int) ([]Node, error) {
	ftsQuery := BuildFTSQuery(query)
	if ftsQuery == "" {
		return []Node{}, nil
	}

	nodes, err := d.queryNodes(ctx, `
		SELECT n.id, n.label, n.parent_id, n.is_always_visible, n.has_children, n.ord
		FROM nodes n
		JOIN nodes_fts fts ON n.id = fts.id
		WHERE nodes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return d.searchByLabel(ctx, query, limit)
		}
		return nil, errors.Wrap(err, "searching nodes")
	}
	return nodes, nil
}

func (d *DB) searchByLabel(ctx context.Context, query string, limit int) ([]Node, error) {
	nodes, err := d.queryNodes(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE label LIKE ? ORDER BY ord, id LIMIT ?`,
		"%"+strings.TrimSpace(query)+"%", limit)
	return nodes, errors.Wrap(err, "searching node labels")
}
