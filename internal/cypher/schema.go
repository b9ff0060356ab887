package cypher

import "strings"

// IndexStatement creates a range index on label over one or more properties.
func IndexStatement(label string, properties ...string) string {
	return "CREATE INDEX FOR (n:" + QuoteName(label) + ") ON (" + propertyList(properties) + ")"
}

// UniqueConstraintStatement requires the combination of properties to be unique per label.
func UniqueConstraintStatement(label string, properties ...string) string {
	target := propertyList(properties)
	if len(properties) > 1 {
		target = "(" + target + ")"
	}
	return "CREATE CONSTRAINT FOR (n:" + QuoteName(label) + ") REQUIRE " + target + " IS UNIQUE"
}

func propertyList(properties []string) string {
	parts := make([]string, len(properties))
	for i, p := range properties {
		parts[i] = "n." + QuoteName(p)
	}
	return strings.Join(parts, ", ")
}
