package executor

import (
	"github.com/vvka-141/graphload/internal/batch"
	"github.com/vvka-141/graphload/internal/cypher"
	"github.com/vvka-141/graphload/pkg/graphload"
)

// NodeJob prepares a node batch. The per-record query uses the same
// synthesis rules with a one-element list.
func NodeJob[K comparable](scope string, b batch.Batch[cypher.NodeRecord, K], mode graphload.LoadMode) Job {
	return Job{
		Scope:   scope,
		Kind:    graphload.KindNode,
		Index:   b.Index,
		Query:   cypher.SynthesizeNodeBatch(b.Records, mode),
		Records: b.Len(),
		Single: func(i int) string {
			return cypher.SynthesizeNodeBatch(b.Records[i:i+1], mode)
		},
	}
}

// EdgeJob prepares an edge batch. All records must share one EdgeKey.
func EdgeJob(scope string, b batch.Batch[cypher.EdgeRecord, cypher.EdgeKey], mode graphload.LoadMode) Job {
	return Job{
		Scope:   scope,
		Kind:    graphload.KindEdge,
		Index:   b.Index,
		Query:   cypher.SynthesizeEdgeBatch(b.Records, mode),
		Records: b.Len(),
		Single: func(i int) string {
			return cypher.SynthesizeEdgeBatch(b.Records[i:i+1], mode)
		},
	}
}
