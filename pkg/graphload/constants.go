package graphload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Load completed, every record accounted for
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Graph database unreachable or lost mid-run
	ExitInputError      = 12 // Unreadable or inconsistent CSV input
	ExitLoadIncomplete  = 13 // Records failed and fail-fast aborted the run
)

const (
	// DefaultBatchSize is the number of records synthesized into one query.
	DefaultBatchSize = 5000

	// DefaultProgressInterval is the record interval between progress notifications.
	// Zero disables progress reporting.
	DefaultProgressInterval = 1000

	// DefaultHost is the default graph database host.
	DefaultHost = "localhost"

	// DefaultPort is the default FalkorDB (Redis protocol) port.
	DefaultPort = 6379

	// DefaultCSVDir is the directory scanned for nodes_*.csv and edges_*.csv files.
	DefaultCSVDir = "csv_output"

	// DefaultParallel loads one file at a time.
	DefaultParallel = 1

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 10 * time.Second

	// DefaultRetryMaxAttempts is the default maximum number of retry attempts
	// for transient connection failures.
	DefaultRetryMaxAttempts = 3

	// MaxQueryPreviewLength bounds the query text included in error messages.
	// The full query is still available at verbose level.
	MaxQueryPreviewLength = 200

	// HealthCheckLabel is the label of the probe node created and removed
	// by the pre-load health check.
	HealthCheckLabel = "GraphloadHealthCheck"
)
