package graphload

import (
	"context"
	"io"
)

// SourceEntry describes one file available from a Source.
type SourceEntry struct {
	// Name is the file name relative to the source root, using forward slashes.
	Name string
	Size int64
}

// Source lists and opens the CSV files of a load run.
type Source interface {
	// List returns the entries at the source root, sorted by name.
	List(ctx context.Context) ([]SourceEntry, error)

	// Open returns the raw (possibly compressed) content of a file.
	// Returns an error wrapping ErrFileNotFound when the file does not exist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// String describes the source for logging.
	String() string
}
