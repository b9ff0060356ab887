package cypher

import "strings"

// LabelSpec is a parsed compound label such as "OS:Process". The first
// element is the primary label used for index-friendly matching.
type LabelSpec []string

// ParseLabelSpec splits a colon-joined label specification. Surrounding
// whitespace and empty components are dropped.
func ParseLabelSpec(spec string) LabelSpec {
	if spec == "" {
		return nil
	}
	parts := strings.Split(spec, ":")
	labels := make(LabelSpec, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}

// Primary returns the first label, or "" when the spec holds none.
func (s LabelSpec) Primary() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// String joins the labels back with colons.
func (s LabelSpec) String() string {
	return strings.Join(s, ":")
}

// PrimaryLabel returns the label used to match nodes for spec: the trimmed
// spec up to its first colon. A spec with a leading colon has no primary
// label and matches nodes of any label.
func PrimaryLabel(spec string) string {
	primary, _, _ := strings.Cut(strings.TrimSpace(spec), ":")
	return primary
}
