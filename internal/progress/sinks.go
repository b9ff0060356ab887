package progress

import (
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/vvka-141/graphload/pkg/graphload"
)

// LogSink writes events through a Logger.
type LogSink struct {
	logger graphload.Logger
}

// NewLogSink creates a sink that logs progress at info level and batch
// outcomes at verbose level, with fallback batches raised to warnings.
func NewLogSink(logger graphload.Logger) *LogSink {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) OnProgress(p graphload.Progress) {
	s.logger.Info("Progress: %.1f%% (%s/%s) %s",
		p.Percent(), humanize.Comma(int64(p.Current)), humanize.Comma(int64(p.Total)), p.Scope)
}

func (s *LogSink) OnBatchOutcome(o graphload.BatchOutcome) {
	if o.Outcome.FallbackUsed {
		s.logger.Warn("%s batch %d: fallback loaded %d/%d records (%d failed) in %v",
			o.Scope, o.Index+1, o.Outcome.Succeeded, o.Records, o.Outcome.Failed, o.Outcome.Elapsed)
		return
	}
	s.logger.Verbose("%s batch %d: %d %ss in %v",
		o.Scope, o.Index+1, o.Outcome.Succeeded, o.Kind, o.Outcome.Elapsed)
}

// MultiSink fans events out to several sinks in order.
type MultiSink []graphload.EventSink

func (m MultiSink) OnProgress(p graphload.Progress) {
	for _, s := range m {
		s.OnProgress(p)
	}
}

func (m MultiSink) OnBatchOutcome(o graphload.BatchOutcome) {
	for _, s := range m {
		s.OnBatchOutcome(o)
	}
}

// NullSink discards every event.
type NullSink struct{}

func (NullSink) OnProgress(graphload.Progress)         {}
func (NullSink) OnBatchOutcome(graphload.BatchOutcome) {}

// Recorder keeps every event in memory. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	progress []graphload.Progress
	outcomes []graphload.BatchOutcome
}

func (r *Recorder) OnProgress(p graphload.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *Recorder) OnBatchOutcome(o graphload.BatchOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

// Progress returns a copy of the recorded progress events.
func (r *Recorder) Progress() []graphload.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]graphload.Progress(nil), r.progress...)
}

// Outcomes returns a copy of the recorded batch outcomes.
func (r *Recorder) Outcomes() []graphload.BatchOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]graphload.BatchOutcome(nil), r.outcomes...)
}

// Synchronized serializes calls into a sink that is not safe for concurrent use.
func Synchronized(sink graphload.EventSink) graphload.EventSink {
	return &syncSink{sink: sink}
}

type syncSink struct {
	mu   sync.Mutex
	sink graphload.EventSink
}

func (s *syncSink) OnProgress(p graphload.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.OnProgress(p)
}

func (s *syncSink) OnBatchOutcome(o graphload.BatchOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.OnBatchOutcome(o)
}

var (
	_ graphload.EventSink = (*LogSink)(nil)
	_ graphload.EventSink = MultiSink(nil)
	_ graphload.EventSink = NullSink{}
	_ graphload.EventSink = (*Recorder)(nil)
)
