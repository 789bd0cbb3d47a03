package cmd

import (
	"context"
	"fmt"
	"strings"

	"canopy/explorer/internal/db"
	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
)

const maxMatches = 10

// ResolveNode finds a node by full ID, ID prefix, or label. With a database
// the label step searches its full-text index first; labels are otherwise
// matched case-insensitively, exact before substring.
func ResolveNode(ctx context.Context, snap *graph.Snapshot, d *db.DB, reference string) (*graph.Node, error) {
	// 1. Exact ID match
	if n, ok := snap.Nodes[reference]; ok {
		return n, nil
	}

	// 2. ID prefix match
	var prefixed []string
	if d != nil {
		rows, err := d.SearchByIDPrefix(ctx, reference, maxMatches)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			prefixed = append(prefixed, r.ID)
		}
	} else {
		for _, id := range snap.Order {
			if strings.HasPrefix(id, reference) {
				prefixed = append(prefixed, id)
			}
		}
	}
	if n, done, err := pick(snap, reference, prefixed); done {
		return n, err
	}

	// 3. Label search
	if d != nil {
		rows, err := d.SearchNodes(ctx, reference, maxMatches)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, r := range rows {
			found = append(found, r.ID)
		}
		if n, done, err := pick(snap, reference, found); done {
			return n, err
		}
	}
	var exact, partial []string
	needle := strings.ToLower(reference)
	for _, id := range snap.Order {
		label := strings.ToLower(snap.Nodes[id].Label)
		switch {
		case label == needle:
			exact = append(exact, id)
		case strings.Contains(label, needle):
			partial = append(partial, id)
		}
	}
	if n, done, err := pick(snap, reference, exact); done {
		return n, err
	}
	if n, done, err := pick(snap, reference, partial); done {
		return n, err
	}

	return nil, errors.NewNotFoundError("node not found: %s", reference)
}

// pick resolves a candidate list: one match wins, several are ambiguous,
// none lets the caller try the next strategy. IDs missing from snap are
// ignored.
func pick(snap *graph.Snapshot, reference string, ids []string) (*graph.Node, bool, error) {
	var matches []*graph.Node
	for _, id := range ids {
		if n, ok := snap.Nodes[id]; ok {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return nil, false, nil
	case 1:
		return matches[0], true, nil
	}

	limit := min(len(matches), maxMatches)
	lines := make([]string, limit)
	for i := range limit {
		lines[i] = fmt.Sprintf("  %s %s", truncID(matches[i].ID), matches[i].Label)
	}
	err := errors.Newf("ambiguous reference '%s'. %d matches:\n%s", reference, len(matches), strings.Join(lines, "\n"))
	return nil, true, errors.WithHint(err, "use a full node ID instead")
}

func truncID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncLabel(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Find a safe UTF-8 boundary
	truncated := s[:max]
	for len(truncated) > 0 && truncated[len(truncated)-1]>>6 == 2 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "..."
}
