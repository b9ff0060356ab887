// Package schema creates the indexes and uniqueness constraints a load
// relies on: an id index per node label plus whatever indexes.csv and
// constraints.csv declare.
package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vvka-141/graphload/pkg/graphload"
)

// IndexDef declares range indexes on every label for every property.
type IndexDef struct {
	Labels     []string
	Properties []string
}

// ConstraintDef declares a uniqueness constraint.
type ConstraintDef struct {
	Labels     []string
	Properties []string
	// Type is the upper-cased constraint type, e.g. "UNIQUE".
	Type string
	// EntityType is "NODE" or "RELATIONSHIP"; NODE when the column is absent.
	EntityType string
}

// Unique reports whether the constraint is a uniqueness constraint.
func (c ConstraintDef) Unique() bool {
	return strings.Contains(c.Type, "UNIQUE")
}

// OnNodes reports whether the constraint applies to nodes.
func (c ConstraintDef) OnNodes() bool {
	return c.EntityType == "NODE"
}

// ParseIndexes reads indexes.csv. Columns: labels, properties, uniqueness,
// type. Lists are separated by ';'. Rows without labels or properties,
// LOOKUP indexes and UNIQUE indexes (created by constraints instead) are
// skipped and counted.
func ParseIndexes(r io.Reader) (defs []IndexDef, skipped int, err error) {
	err = readRows(r, func(row map[string]string) {
		labels := splitList(row["labels"])
		props := splitList(row["properties"])
		if len(labels) == 0 || len(props) == 0 ||
			strings.EqualFold(strings.TrimSpace(row["type"]), "LOOKUP") ||
			strings.TrimSpace(row["uniqueness"]) == "UNIQUE" {
			skipped++
			return
		}
		defs = append(defs, IndexDef{Labels: labels, Properties: props})
	})
	return defs, skipped, err
}

// ParseConstraints reads constraints.csv. Columns: labels, properties,
// type, entity_type. Rows without labels or properties are skipped and
// counted.
func ParseConstraints(r io.Reader) (defs []ConstraintDef, skipped int, err error) {
	err = readRows(r, func(row map[string]string) {
		labels := splitList(row["labels"])
		props := splitList(row["properties"])
		if len(labels) == 0 || len(props) == 0 {
			skipped++
			return
		}
		entity, ok := row["entity_type"]
		if !ok || strings.TrimSpace(entity) == "" {
			entity = "NODE"
		}
		defs = append(defs, ConstraintDef{
			Labels:     labels,
			Properties: props,
			Type:       strings.ToUpper(strings.TrimSpace(row["type"])),
			EntityType: strings.ToUpper(strings.TrimSpace(entity)),
		})
	})
	return defs, skipped, err
}

func readRows(r io.Reader, fn func(map[string]string)) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unreadable header: %w: %w", graphload.ErrInvalidInput, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", graphload.ErrInvalidInput, err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		fn(row)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
