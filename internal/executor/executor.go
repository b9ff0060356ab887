// Package executor sends synthesized batch queries to the graph database and
// falls back to one query per record when a batch is rejected.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vvka-141/graphload/internal/retry"
	"github.com/vvka-141/graphload/pkg/graphload"
)

// Job is one batch ready for execution.
type Job struct {
	Scope string
	Kind  graphload.RecordKind
	// Index is the zero-based batch position within its file.
	Index int
	// Query loads every record of the batch at once.
	Query string
	// Records is the number of records the query covers.
	Records int
	// Single synthesizes the query for record i alone.
	Single func(i int) string
}

type state int

const (
	stateBatched state = iota
	stateFallback
	stateDone
)

// Executor runs Jobs against one client. It is safe for concurrent use when
// the client and sink are.
type Executor struct {
	client graphload.GraphClient
	retry  *retry.Executor
	logger graphload.Logger
	sink   graphload.EventSink
}

// New creates an Executor. Panics on nil dependencies.
func New(client graphload.GraphClient, retryExecutor *retry.Executor, logger graphload.Logger, sink graphload.EventSink) *Executor {
	if client == nil {
		panic("client cannot be nil")
	}
	if retryExecutor == nil {
		panic("retryExecutor cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if sink == nil {
		panic("sink cannot be nil")
	}
	return &Executor{client: client, retry: retryExecutor, logger: logger, sink: sink}
}

// Execute resolves one job to an outcome in which every record is either
// succeeded or failed.
//
// A rejected batch switches to per-record execution; a failing record is
// counted and the remaining records still run. The only error returned wraps
// graphload.ErrConnectionLost (or the context error): the database stopped
// answering, unattempted records are counted as failed and the caller should
// stop the run.
func (e *Executor) Execute(ctx context.Context, job Job) (graphload.LoadOutcome, error) {
	start := time.Now()
	var outcome graphload.LoadOutcome
	var fatal error

	for st := stateBatched; st != stateDone; {
		switch st {
		case stateBatched:
			e.logger.Verbose("%s batch %d (%d records): %s", job.Scope, job.Index+1, job.Records, job.Query)
			err := e.run(ctx, job.Query)
			switch {
			case err == nil:
				outcome.Succeeded = job.Records
				st = stateDone
			case e.isFatal(ctx, err):
				outcome.Failed = job.Records
				fatal = e.wrapFatal(ctx, job, err)
				st = stateDone
			default:
				e.logger.Warn("%s batch %d failed, loading %d records individually: %v (query: %s)",
					job.Scope, job.Index+1, job.Records, err, preview(job.Query))
				outcome.FallbackUsed = true
				st = stateFallback
			}

		case stateFallback:
			outcome.Succeeded, outcome.Failed, fatal = e.fallback(ctx, job)
			st = stateDone
		}
	}

	outcome.Elapsed = time.Since(start)
	e.sink.OnBatchOutcome(graphload.BatchOutcome{
		Scope:   job.Scope,
		Kind:    job.Kind,
		Index:   job.Index,
		Records: job.Records,
		Outcome: outcome,
	})
	return outcome, fatal
}

func (e *Executor) fallback(ctx context.Context, job Job) (succeeded, failed int, fatal error) {
	for i := 0; i < job.Records; i++ {
		q := job.Single(i)
		err := e.run(ctx, q)
		if err == nil {
			succeeded++
			continue
		}
		if e.isFatal(ctx, err) {
			return succeeded, failed + job.Records - i, e.wrapFatal(ctx, job, err)
		}
		failed++
		e.logger.Error("%s batch %d record %d failed: %v", job.Scope, job.Index+1, i+1, err)
		e.logger.Verbose("failed query: %s", q)
	}
	return succeeded, failed, nil
}

func (e *Executor) run(ctx context.Context, query string) error {
	return e.retry.Execute(ctx, func(ctx context.Context) error {
		_, err := e.client.Query(ctx, query)
		return err
	})
}

// isFatal reports whether err ends the run rather than the batch: the context
// is done or the retry budget for a connection-level failure is spent.
func (e *Executor) isFatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return e.retry.Classifier().IsTransient(err)
}

func (e *Executor) wrapFatal(ctx context.Context, job Job, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(err, ctxErr) {
			return fmt.Errorf("%s batch %d: %w", job.Scope, job.Index+1, err)
		}
		return fmt.Errorf("%s batch %d: %w (last error: %v)", job.Scope, job.Index+1, ctxErr, err)
	}
	return fmt.Errorf("%s batch %d: %w: %w", job.Scope, job.Index+1, graphload.ErrConnectionLost, err)
}

func preview(q string) string {
	if len(q) <= graphload.MaxQueryPreviewLength {
		return q
	}
	return q[:graphload.MaxQueryPreviewLength] + "..."
}
