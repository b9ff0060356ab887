package csvsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/vvka-141/graphload/pkg/graphload"
)

// DirSource serves the regular files directly inside a directory.
// Subdirectories are not descended into.
type DirSource struct {
	root string
	fsys fs.FS
}

// NewDirSource creates a source for root. The directory must exist.
func NewDirSource(root string) (*DirSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("CSV directory %q: %w", root, graphload.ErrFileNotFound)
		}
		return nil, fmt.Errorf("CSV directory %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory: %w", root, graphload.ErrInvalidInput)
	}
	return &DirSource{root: root, fsys: os.DirFS(root)}, nil
}

func (s *DirSource) List(ctx context.Context) ([]graphload.SourceEntry, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.root, err)
	}
	var out []graphload.SourceEntry
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		out = append(out, graphload.SourceEntry{Name: e.Name(), Size: info.Size()})
	}
	return out, nil
}

func (s *DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, fmt.Errorf("invalid file name %q: %w", name, graphload.ErrInvalidInput)
	}
	f, err := s.fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, graphload.ErrFileNotFound)
		}
		return nil, err
	}
	return f, nil
}

func (s *DirSource) String() string {
	return s.root
}

// MemorySource holds file contents in memory. Safe for concurrent use.
type MemorySource struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemorySource creates an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{files: make(map[string][]byte)}
}

// AddFile stores content under name, replacing any previous content.
func (s *MemorySource) AddFile(name, content string) {
	s.AddBytes(name, []byte(content))
}

// AddBytes stores raw content, e.g. a compressed file.
func (s *MemorySource) AddBytes(name string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = content
}

func (s *MemorySource) List(context.Context) ([]graphload.SourceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]graphload.SourceEntry, 0, len(s.files))
	for name, content := range s.files {
		out = append(out, graphload.SourceEntry{Name: name, Size: int64(len(content))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemorySource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, graphload.ErrFileNotFound)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *MemorySource) String() string {
	return "memory"
}

// validName accepts a single path element.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && path.Clean(name) == name
}
