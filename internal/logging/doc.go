// Package logging provides concrete implementations of the graphload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: leveled, timestamped output to stderr backed by charmbracelet/log
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
