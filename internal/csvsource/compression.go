package csvsource

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies how a CSV file is encoded on the wire.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "none"
	}
}

// csvExtensions maps file suffixes to their compression, longest first.
var csvExtensions = []struct {
	suffix      string
	compression Compression
}{
	{".csv.gz", CompressionGzip},
	{".csv.zst", CompressionZstd},
	{".csv", CompressionNone},
}

// splitExtension returns the stem of a CSV file name and its compression.
func splitExtension(name string) (stem string, c Compression, ok bool) {
	lower := strings.ToLower(name)
	for _, ext := range csvExtensions {
		if strings.HasSuffix(lower, ext.suffix) {
			return name[:len(name)-len(ext.suffix)], ext.compression, true
		}
	}
	return "", CompressionNone, false
}

// decompress wraps rc so that reads return plain CSV bytes. Closing the
// result closes rc.
func decompress(rc io.ReadCloser, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionGzip:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("invalid gzip stream: %w", err)
		}
		return &stackedCloser{Reader: zr, closers: []func() error{zr.Close, rc.Close}}, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("invalid zstd stream: %w", err)
		}
		return &stackedCloser{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			rc.Close,
		}}, nil
	default:
		return rc, nil
	}
}

type stackedCloser struct {
	io.Reader
	closers []func() error
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
