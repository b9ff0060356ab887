package cypher

import (
	"strings"

	"github.com/vvka-141/graphload/pkg/graphload"
)

// NodeRecord is one node row. Label is a single label chosen by the caller.
type NodeRecord struct {
	ID         string
	Label      string
	Properties PropertyMap
}

// EdgeRecord is one relationship row. The label specs may be compound or empty.
type EdgeRecord struct {
	SourceID        string
	TargetID        string
	SourceLabelSpec string
	TargetLabelSpec string
	RelType         string
	Properties      PropertyMap
}

// EdgeKey is the match pattern shared by every record of one edge batch.
type EdgeKey struct {
	SourceLabel string
	TargetLabel string
	RelType     string
}

// Key resolves the primary endpoint labels of r.
func (r EdgeRecord) Key() EdgeKey {
	return EdgeKey{
		SourceLabel: PrimaryLabel(r.SourceLabelSpec),
		TargetLabel: PrimaryLabel(r.TargetLabelSpec),
		RelType:     r.RelType,
	}
}

// Incomplete reports whether either endpoint id is missing.
func (r EdgeRecord) Incomplete() bool {
	return r.SourceID == "" || r.TargetID == ""
}

func verb(mode graphload.LoadMode) string {
	if mode == graphload.LoadModeUpsert {
		return "MERGE"
	}
	return "CREATE"
}

// nodePattern renders "(v:Label {id: row.key})", omitting the label when empty.
func nodePattern(b *strings.Builder, variable, label, key string) {
	b.WriteByte('(')
	b.WriteString(variable)
	if label != "" {
		b.WriteByte(':')
		b.WriteString(QuoteName(label))
	}
	b.WriteString(" {id: row.")
	b.WriteString(key)
	b.WriteString("})")
}

// SynthesizeNodeBatch builds one UNWIND query for a batch of node records.
// All records share the label of the first record.
func SynthesizeNodeBatch(records []NodeRecord, mode graphload.LoadMode) string {
	if len(records) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("UNWIND [")
	for i, r := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("{id: ")
		b.WriteString(EncodeID(r.ID).String())
		b.WriteString(", props: ")
		writeMap(&b, r.Properties)
		b.WriteByte('}')
	}
	b.WriteString("] AS row ")
	b.WriteString(verb(mode))
	b.WriteByte(' ')
	nodePattern(&b, "n", records[0].Label, "id")
	b.WriteString(" SET n += row.props")
	return b.String()
}

// SynthesizeEdgeBatch builds one UNWIND query for a batch of edge records.
// All records share the EdgeKey of the first record. Endpoints are always
// merged; only the relationship clause follows mode.
func SynthesizeEdgeBatch(records []EdgeRecord, mode graphload.LoadMode) string {
	if len(records) == 0 {
		return ""
	}
	key := records[0].Key()

	var b strings.Builder
	b.WriteString("UNWIND [")
	for i, r := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("{source_id: ")
		b.WriteString(EncodeID(r.SourceID).String())
		b.WriteString(", target_id: ")
		b.WriteString(EncodeID(r.TargetID).String())
		b.WriteString(", props: ")
		writeMap(&b, r.Properties)
		b.WriteByte('}')
	}
	b.WriteString("] AS row MERGE ")
	nodePattern(&b, "a", key.SourceLabel, "source_id")
	b.WriteString(" MERGE ")
	nodePattern(&b, "b", key.TargetLabel, "target_id")
	b.WriteByte(' ')
	b.WriteString(verb(mode))
	b.WriteString(" (a)-[r:")
	b.WriteString(QuoteName(key.RelType))
	b.WriteString("]->(b) SET r += row.props")
	return b.String()
}
