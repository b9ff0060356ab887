// Package labels checks that the labels referenced by edge files name node
// files, and rewrites them to the node files' spelling.
package labels

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vvka-141/graphload/internal/cypher"
	"github.com/vvka-141/graphload/pkg/graphload"
)

// Resolver rewrites edge label specs to node-file spelling.
// The zero value and Identity leave every spec unchanged.
type Resolver struct {
	mapping map[string]string
}

// Identity returns a Resolver that changes nothing, used when the check is skipped.
func Identity() *Resolver {
	return &Resolver{}
}

// Validate builds a Resolver for edgeLabels against the labels of the node
// files. Each edge label must match a node label exactly or
// case-insensitively; a compound label ("OS:Process") is accepted when every
// part does. Unmatched labels produce an error wrapping
// graphload.ErrLabelMismatch that names all of them.
func Validate(nodeLabels, edgeLabels []string) (*Resolver, error) {
	exact := make(map[string]bool, len(nodeLabels))
	folded := make(map[string]string, len(nodeLabels))

	sorted := append([]string(nil), nodeLabels...)
	sort.Strings(sorted)
	for _, l := range sorted {
		exact[l] = true
		key := strings.ToLower(l)
		if _, taken := folded[key]; !taken {
			folded[key] = l
		}
	}

	match := func(label string) (string, bool) {
		if exact[label] {
			return label, true
		}
		if l, ok := folded[strings.ToLower(label)]; ok {
			return l, true
		}
		return "", false
	}

	r := &Resolver{mapping: make(map[string]string)}
	var missing []string
	for _, label := range edgeLabels {
		if label == "" {
			continue
		}
		if l, ok := match(label); ok {
			if l != label {
				r.mapping[label] = l
			}
			continue
		}

		parts := cypher.ParseLabelSpec(label)
		if len(parts) < 2 {
			missing = append(missing, label)
			continue
		}
		resolved := make(cypher.LabelSpec, 0, len(parts))
		for _, p := range parts {
			l, ok := match(p)
			if !ok {
				break
			}
			resolved = append(resolved, l)
		}
		if len(resolved) != len(parts) {
			missing = append(missing, label)
			continue
		}
		if spec := resolved.String(); spec != label {
			r.mapping[label] = spec
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("edge files reference labels without node files: %s: %w",
			strings.Join(missing, ", "), graphload.ErrLabelMismatch)
	}
	return r, nil
}

// Resolve returns the node-file spelling of spec, or spec itself.
func (r *Resolver) Resolve(spec string) string {
	if mapped, ok := r.mapping[spec]; ok {
		return mapped
	}
	return spec
}

// Mappings returns every rewritten label, sorted by the edge spelling.
func (r *Resolver) Mappings() [][2]string {
	out := make([][2]string, 0, len(r.mapping))
	for from, to := range r.mapping {
		out = append(out, [2]string{from, to})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
