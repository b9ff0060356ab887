package graphload

// EventSink receives load events. The loader calls it synchronously; it owns
// formatting and destination. Implementations used with parallel loading must
// be safe for concurrent use.
type EventSink interface {
	OnProgress(p Progress)
	OnBatchOutcome(o BatchOutcome)
}
