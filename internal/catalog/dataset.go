package catalog

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
)

// Dataset is the on-disk and on-wire shape of a whole catalog: the default
// (skeleton) graph, the child graph revealed by each expandable node, and
// popup details keyed by node ID.
type Dataset struct {
	Default  Subgraph                `json:"default" yaml:"default"`
	Children map[string]Subgraph     `json:"children" yaml:"children"`
	Details  map[string]graph.Detail `json:"details,omitempty" yaml:"details,omitempty"`
}

//go:embed sample.json
var sampleJSON []byte

// Sample returns the built-in demo dataset: two trees, a fixed cross edge
// 30-312, and a four-level hidden hierarchy under node 1.
func Sample() *Dataset {
	ds, err := ParseDataset(sampleJSON, "json")
	if err != nil {
		panic(errors.Wrap(err, "embedded sample dataset"))
	}
	return ds
}

// LoadFile reads a dataset from a .json, .yaml or .yml file
func LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading dataset %s", path)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	ds, err := ParseDataset(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "loading dataset %s", path)
	}
	return ds, nil
}

// ParseDataset decodes and validates a dataset. format is "json" or "yaml".
func ParseDataset(data []byte, format string) (*Dataset, error) {
	var ds Dataset
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &ds); err != nil {
			return nil, errors.Wrap(err, "parsing yaml")
		}
	case "json":
		if err := json.Unmarshal(data, &ds); err != nil {
			return nil, errors.Wrap(err, "parsing json")
		}
	default:
		return nil, errors.Newf("unknown dataset format %q", format)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate checks that node IDs are unique, child sets agree with their
// key, and every edge connects known nodes.
func (ds *Dataset) Validate() error {
	seen := make(map[string]bool)
	add := func(n graph.Node) error {
		if n.ID == "" {
			return errors.New("node with empty id")
		}
		if seen[n.ID] {
			return errors.Newf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
		return nil
	}

	for _, n := range ds.Default.Nodes {
		if err := add(n); err != nil {
			return errors.Wrap(err, "default graph")
		}
	}
	for _, key := range ds.childKeys() {
		for _, n := range ds.Children[key].Nodes {
			if err := add(n); err != nil {
				return errors.Wrapf(err, "children of %s", key)
			}
			if n.Parent != key {
				return errors.WithHintf(
					errors.Newf("node %q listed under %q has parent %q", n.ID, key, n.Parent),
					"set \"parent\": %q on the node or move it to the right child set", key)
			}
		}
	}

	check := func(where string, edges []graph.Edge) error {
		for _, e := range edges {
			if !seen[e.Source] || !seen[e.Target] {
				return errors.Newf("%s: edge %q connects unknown nodes %q -> %q", where, e.ID, e.Source, e.Target)
			}
		}
		return nil
	}
	if err := check("default graph", ds.Default.Edges); err != nil {
		return err
	}
	for _, key := range ds.childKeys() {
		if err := check("children of "+key, ds.Children[key].Edges); err != nil {
			return err
		}
	}
	return nil
}

// childKeys returns the Children keys in a stable order: parents reachable
// from the default graph first (breadth-first in model order), then the
// rest sorted.
func (ds *Dataset) childKeys() []string {
	var keys []string
	done := make(map[string]bool)
	queue := make([]string, 0, len(ds.Default.Nodes))
	for _, n := range ds.Default.Nodes {
		queue = append(queue, n.ID)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sub, ok := ds.Children[id]
		if !ok || done[id] {
			continue
		}
		done[id] = true
		keys = append(keys, id)
		for _, n := range sub.Nodes {
			queue = append(queue, n.ID)
		}
	}

	var rest []string
	for id := range ds.Children {
		if !done[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
