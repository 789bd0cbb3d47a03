package db

// Node represents a row in the nodes table
type Node struct {
	ID              string  `json:"id"`
	Label           string  `json:"label"`
	ParentID        *string `json:"parent_id"` // nil for roots
	IsAlwaysVisible bool    `json:"is_always_visible"`
	HasChildren     bool    `json:"has_children"`
	Ord             int     `json:"ord"` // model order within the whole catalog
}

// Parent returns the parent ID, or "" for roots
func (n Node) Parent() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// Edge represents a row in the edges table
type Edge struct {
	ID       string  `json:"id"`
	SourceID string  `json:"source_id"`
	TargetID string  `json:"target_id"`
	Fixed    bool    `json:"fixed"`
	Label    *string `json:"label"`
	Ord      int     `json:"ord"`
}

// DetailRow is a node's detail payload as stored (JSON text)
type DetailRow struct {
	NodeID string
	JSON   string
}
