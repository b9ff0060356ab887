// Package retry re-runs operations that failed for connection-level reasons.
//
// It serves two callers: connectors, which retry the initial dial while a
// database container or server is still starting, and the batch executor,
// which retries a query whose reply was lost to a dropped connection before
// declaring the connection gone.
//
//	classifier := retry.NewClassifier()
//	strategy := retry.NewExponentialBackoff(3, retry.WithInitialDelay(200*time.Millisecond))
//	executor := retry.NewExecutor(classifier, strategy)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    _, err := client.Query(ctx, q)
//	    return err
//	})
//
// Errors the database reports about a query (syntax, constraint violation,
// type mismatch) are never transient and return immediately.
//
// Executor instances are safe for concurrent use. WithOnRetry returns a copy.
package retry
