package retry

import (
	"context"
	"time"

	"github.com/vvka-141/graphload/pkg/graphload"
)

// Executor re-runs an operation while the classifier calls its error
// transient and the strategy allows another attempt.
type Executor struct {
	classifier graphload.ErrorClassifier
	strategy   graphload.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor creates a retry executor.
// Panics if classifier or strategy is nil.
func NewExecutor(classifier graphload.ErrorClassifier, strategy graphload.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// NewDefaultExecutor retries transient failures up to maxAttempts times with
// the package default delays.
func NewDefaultExecutor(maxAttempts int) *Executor {
	return NewExecutor(NewClassifier(), NewExponentialBackoff(maxAttempts,
		WithInitialDelay(graphload.DefaultRetryInitialDelay),
		WithMaxDelay(graphload.DefaultRetryMaxDelay),
	))
}

// WithOnRetry returns a copy of e that calls callback before each retry.
// The receiver is not modified.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Classifier returns the classifier deciding which errors are retried.
func (e *Executor) Classifier() graphload.ErrorClassifier {
	return e.classifier
}

// Execute runs operation until it succeeds, fails with a non-transient error,
// exhausts the retry budget or ctx is done. It returns the last error.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	err := operation(ctx)
	if err == nil || !e.classifier.IsTransient(err) {
		return err
	}

	maxAttempts := e.strategy.MaxAttempts()
	for attempt := 0; maxAttempts < 0 || attempt < maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err = operation(ctx)
		if err == nil || !e.classifier.IsTransient(err) {
			return err
		}
	}
	return err
}
