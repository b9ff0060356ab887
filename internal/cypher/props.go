package cypher

import "strings"

// Property is one named literal.
type Property struct {
	Name  string
	Value Literal
}

// PropertyMap is an ordered set of properties with unique names.
type PropertyMap []Property

// Set adds a property, replacing the value of an existing name in place.
func (m *PropertyMap) Set(name string, value Literal) {
	for i := range *m {
		if (*m)[i].Name == name {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, Property{Name: name, Value: value})
}

// Get returns the literal stored under name.
func (m PropertyMap) Get(name string) (Literal, bool) {
	for _, p := range m {
		if p.Name == name {
			return p.Value, true
		}
	}
	return Literal{}, false
}

// BuildMap renders a map literal. Names are emitted verbatim in map order.
func BuildMap(props PropertyMap) string {
	if len(props) == 0 {
		return "{}"
	}
	var b strings.Builder
	writeMap(&b, props)
	return b.String()
}

func writeMap(b *strings.Builder, props PropertyMap) {
	if len(props) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteByte('{')
	for i, p := range props {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(p.Value.String())
	}
	b.WriteByte('}')
}
