package csvsource

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vvka-141/graphload/pkg/graphload"
)

// Well-known file names.
const (
	NodeFilePrefix      = "nodes_"
	EdgeFilePrefix      = "edges_"
	IndexesFileName     = "indexes.csv"
	ConstraintsFileName = "constraints.csv"
)

// FileSpec is one discovered node or edge file.
type FileSpec struct {
	Name string
	Kind graphload.RecordKind
	// Label is the node label (nodes_) or relationship type (edges_) taken
	// from the file name.
	Label       string
	Compression Compression
	Size        int64
}

// Plan lists the files of a load run in processing order.
type Plan struct {
	Nodes []FileSpec
	Edges []FileSpec
	// HasIndexes and HasConstraints report the optional schema files.
	HasIndexes     bool
	HasConstraints bool
}

// Files returns node files followed by edge files.
func (p *Plan) Files() []FileSpec {
	out := make([]FileSpec, 0, len(p.Nodes)+len(p.Edges))
	out = append(out, p.Nodes...)
	return append(out, p.Edges...)
}

// NodeLabels returns the label of every node file.
func (p *Plan) NodeLabels() []string {
	labels := make([]string, len(p.Nodes))
	for i, f := range p.Nodes {
		labels[i] = f.Label
	}
	return labels
}

// Filter selects files by doublestar glob. A file passes when it matches
// any include pattern (or there are none) and no exclude pattern.
type Filter struct {
	Include []string
	Exclude []string
}

// Validate reports malformed patterns.
func (f Filter) Validate() error {
	for _, p := range append(append([]string(nil), f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q: %w", p, graphload.ErrInvalidConfig)
		}
	}
	return nil
}

// Match reports whether name passes the filter.
func (f Filter) Match(name string) bool {
	if len(f.Include) > 0 && !matchAny(f.Include, name) {
		return false
	}
	return !matchAny(f.Exclude, name)
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// SanitizeLabel makes a file-name label usable as a single node label.
func SanitizeLabel(label string) string {
	return strings.ReplaceAll(label, ":", "_")
}

// ParseFileName classifies a node or edge file name. Other names report false.
func ParseFileName(name string) (FileSpec, bool) {
	stem, compression, ok := splitExtension(name)
	if !ok {
		return FileSpec{}, false
	}
	switch {
	case strings.HasPrefix(stem, NodeFilePrefix) && len(stem) > len(NodeFilePrefix):
		return FileSpec{
			Name:        name,
			Kind:        graphload.KindNode,
			Label:       SanitizeLabel(strings.TrimPrefix(stem, NodeFilePrefix)),
			Compression: compression,
		}, true
	case strings.HasPrefix(stem, EdgeFilePrefix) && len(stem) > len(EdgeFilePrefix):
		return FileSpec{
			Name:        name,
			Kind:        graphload.KindEdge,
			Label:       strings.TrimPrefix(stem, EdgeFilePrefix),
			Compression: compression,
		}, true
	}
	return FileSpec{}, false
}

// Discover lists src and builds the plan. Files are sorted by name within
// each kind; the filter applies to node and edge files only.
func Discover(ctx context.Context, src graphload.Source, filter Filter) (*Plan, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	entries, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", src, err)
	}

	plan := &Plan{}
	for _, e := range entries {
		switch e.Name {
		case IndexesFileName:
			plan.HasIndexes = true
			continue
		case ConstraintsFileName:
			plan.HasConstraints = true
			continue
		}
		spec, ok := ParseFileName(e.Name)
		if !ok || !filter.Match(e.Name) {
			continue
		}
		spec.Size = e.Size
		if spec.Kind == graphload.KindNode {
			plan.Nodes = append(plan.Nodes, spec)
		} else {
			plan.Edges = append(plan.Edges, spec)
		}
	}

	byName := func(files []FileSpec) func(i, j int) bool {
		return func(i, j int) bool { return files[i].Name < files[j].Name }
	}
	sort.Slice(plan.Nodes, byName(plan.Nodes))
	sort.Slice(plan.Edges, byName(plan.Edges))
	return plan, nil
}
