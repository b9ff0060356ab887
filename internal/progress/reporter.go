// Package progress decides when load progress is reported and provides the
// EventSink implementations used by the CLI.
package progress

import "github.com/vvka-141/graphload/pkg/graphload"

// ShouldReport reports whether current warrants a notification: it is a
// positive multiple of every, or it equals total. every == 0 disables reporting.
func ShouldReport(current, total, every int) bool {
	if every <= 0 {
		return false
	}
	if current == total {
		return true
	}
	return current > 0 && current%every == 0
}

// Report emits a progress notification for scope when ShouldReport allows it.
func Report(sink graphload.EventSink, scope string, current, total, every int) bool {
	if sink == nil || !ShouldReport(current, total, every) {
		return false
	}
	sink.OnProgress(graphload.Progress{Scope: scope, Current: current, Total: total})
	return true
}

// Tracker reports progress for counters that advance by whole batches.
// A notification is emitted whenever an advance crosses a multiple of the
// interval or reaches the total, carrying the actual count.
type Tracker struct {
	sink    graphload.EventSink
	scope   string
	total   int
	every   int
	current int
}

// NewTracker returns a Tracker for one file. every == 0 disables reporting.
func NewTracker(sink graphload.EventSink, scope string, total, every int) *Tracker {
	return &Tracker{sink: sink, scope: scope, total: total, every: every}
}

// Advance adds n processed records and reports when due.
func (t *Tracker) Advance(n int) bool {
	prev := t.current
	t.current += n
	if t.sink == nil || t.every <= 0 || n <= 0 {
		return false
	}
	if t.current == t.total || t.current/t.every > prev/t.every {
		t.sink.OnProgress(graphload.Progress{Scope: t.scope, Current: t.current, Total: t.total})
		return true
	}
	return false
}

// Current returns the records processed so far.
func (t *Tracker) Current() int { return t.current }
