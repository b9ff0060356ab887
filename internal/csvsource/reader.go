package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/vvka-141/graphload/internal/cypher"
	"github.com/vvka-141/graphload/pkg/graphload"
)

// Reserved column names. They carry identity and routing, never properties.
const (
	ColumnID          = "id"
	ColumnLabels      = "labels"
	ColumnSource      = "source"
	ColumnTarget      = "target"
	ColumnType        = "type"
	ColumnSourceLabel = "source_label"
	ColumnTargetLabel = "target_label"
)

var (
	nodeReserved = []string{ColumnID, ColumnLabels}
	edgeReserved = []string{ColumnSource, ColumnTarget, ColumnType, ColumnSourceLabel, ColumnTargetLabel}
)

// Options controls CSV parsing.
type Options struct {
	// Delimiter is the field separator; zero means comma.
	Delimiter rune
}

// RowError reports a row that could not be converted. The reader stays
// usable and the row counts as failed.
type RowError struct {
	File string
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.File, e.Line, e.Err)
}

func (e *RowError) Unwrap() []error {
	return []error{graphload.ErrInvalidInput, e.Err}
}

var errMissingID = errors.New("missing node id")

// PropertyKey turns a header cell into a property key: duplicated type
// annotations such as "Date:Date" collapse to "Date" and names that are not
// plain identifiers are backtick-quoted.
func PropertyKey(header string) string {
	key := strings.TrimSpace(header)
	if a, b, ok := strings.Cut(key, ":"); ok && a == b {
		key = a
	}
	return cypher.QuoteName(key)
}

type column struct {
	index int
	key   string
}

// table is an open CSV file positioned after its header row.
type table struct {
	file     string
	rc       io.ReadCloser
	r        *csv.Reader
	header   map[string]int
	props    []column
	finished bool
}

func openTable(ctx context.Context, src graphload.Source, spec FileSpec, opts Options, reserved []string) (*table, error) {
	raw, err := src.Open(ctx, spec.Name)
	if err != nil {
		return nil, err
	}
	rc, err := decompress(raw, spec.Compression)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", spec.Name, graphload.ErrInvalidInput, err)
	}

	r := csv.NewReader(rc)
	if opts.Delimiter != 0 {
		r.Comma = opts.Delimiter
	}
	r.ReuseRecord = true

	t := &table{file: spec.Name, rc: rc, r: r, header: make(map[string]int)}
	headerRow, err := r.Read()
	if err == io.EOF {
		t.finished = true
		return t, nil
	}
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("%s: unreadable header: %w: %w", spec.Name, graphload.ErrInvalidInput, err)
	}

	for i, h := range headerRow {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		if _, dup := t.header[name]; !dup {
			t.header[name] = i
		}
		if !contains(reserved, name) {
			t.props = append(t.props, column{index: i, key: PropertyKey(name)})
		}
	}
	return t, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// next returns the next data row. Malformed rows come back as *RowError.
func (t *table) next() ([]string, int, error) {
	if t.finished {
		return nil, 0, io.EOF
	}
	rec, err := t.r.Read()
	if err == io.EOF {
		t.finished = true
		return nil, 0, io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, parseErr.StartLine, &RowError{File: t.file, Line: parseErr.StartLine, Err: parseErr.Err}
		}
		t.finished = true
		return nil, 0, fmt.Errorf("%s: %w: %w", t.file, graphload.ErrInvalidInput, err)
	}
	line, _ := t.r.FieldPos(0)
	return rec, line, nil
}

func (t *table) has(name string) bool {
	_, ok := t.header[name]
	return ok
}

func (t *table) field(rec []string, name string) string {
	i, ok := t.header[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func (t *table) properties(rec []string) cypher.PropertyMap {
	var props cypher.PropertyMap
	for _, c := range t.props {
		if c.index >= len(rec) || rec[c.index] == "" {
			continue
		}
		props.Set(c.key, cypher.Encode(rec[c.index]))
	}
	return props
}

func (t *table) Close() error {
	return t.rc.Close()
}

// NodeReader streams the rows of a nodes_ file.
type NodeReader struct {
	t     *table
	label string
}

// OpenNodes opens a node file. The header must have an id column.
func OpenNodes(ctx context.Context, src graphload.Source, spec FileSpec, opts Options) (*NodeReader, error) {
	t, err := openTable(ctx, src, spec, opts, nodeReserved)
	if err != nil {
		return nil, err
	}
	if !t.finished && !t.has(ColumnID) {
		t.Close()
		return nil, fmt.Errorf("%s: header has no %q column: %w", spec.Name, ColumnID, graphload.ErrInvalidInput)
	}
	return &NodeReader{t: t, label: spec.Label}, nil
}

// Next returns the next node, io.EOF at the end, a *RowError for a row that
// must be counted failed, or another error that ends the file.
func (r *NodeReader) Next() (cypher.NodeRecord, error) {
	rec, line, err := r.t.next()
	if err != nil {
		return cypher.NodeRecord{}, err
	}
	id := r.t.field(rec, ColumnID)
	if id == "" {
		return cypher.NodeRecord{}, &RowError{File: r.t.file, Line: line, Err: errMissingID}
	}
	return cypher.NodeRecord{
		ID:         id,
		Label:      r.label,
		Properties: r.t.properties(rec),
	}, nil
}

func (r *NodeReader) Close() error { return r.t.Close() }

// EdgeReader streams the rows of an edges_ file.
type EdgeReader struct {
	t       *table
	relType string
}

// OpenEdges opens an edge file. The header must have source and target columns.
func OpenEdges(ctx context.Context, src graphload.Source, spec FileSpec, opts Options) (*EdgeReader, error) {
	t, err := openTable(ctx, src, spec, opts, edgeReserved)
	if err != nil {
		return nil, err
	}
	if !t.finished && (!t.has(ColumnSource) || !t.has(ColumnTarget)) {
		t.Close()
		return nil, fmt.Errorf("%s: header needs %q and %q columns: %w", spec.Name, ColumnSource, ColumnTarget, graphload.ErrInvalidInput)
	}
	return &EdgeReader{t: t, relType: spec.Label}, nil
}

// Next returns the next edge. Rows with an empty endpoint id are returned
// as is; EdgeRecord.Incomplete reports them.
func (r *EdgeReader) Next() (cypher.EdgeRecord, error) {
	rec, _, err := r.t.next()
	if err != nil {
		return cypher.EdgeRecord{}, err
	}
	return cypher.EdgeRecord{
		SourceID:        r.t.field(rec, ColumnSource),
		TargetID:        r.t.field(rec, ColumnTarget),
		SourceLabelSpec: strings.TrimSpace(r.t.field(rec, ColumnSourceLabel)),
		TargetLabelSpec: strings.TrimSpace(r.t.field(rec, ColumnTargetLabel)),
		RelType:         r.relType,
		Properties:      r.t.properties(rec),
	}, nil
}

func (r *EdgeReader) Close() error { return r.t.Close() }

// Survey is the result of a pre-pass over one file.
type Survey struct {
	// Records counts data rows, malformed ones included.
	Records int
	// Labels holds the distinct non-empty source_label and target_label
	// values of an edge file, sorted.
	Labels []string
}

// SurveyFile reads spec once without converting rows.
func SurveyFile(ctx context.Context, src graphload.Source, spec FileSpec, opts Options) (Survey, error) {
	t, err := openTable(ctx, src, spec, opts, nil)
	if err != nil {
		return Survey{}, err
	}
	defer t.Close()

	var s Survey
	labels := make(map[string]struct{})
	for {
		if s.Records%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return s, err
			}
		}
		rec, _, err := t.next()
		if err == io.EOF {
			break
		}
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			s.Records++
			continue
		}
		if err != nil {
			return s, err
		}
		s.Records++
		if spec.Kind == graphload.KindEdge {
			for _, col := range []string{ColumnSourceLabel, ColumnTargetLabel} {
				if l := strings.TrimSpace(t.field(rec, col)); l != "" {
					labels[l] = struct{}{}
				}
			}
		}
	}

	for l := range labels {
		s.Labels = append(s.Labels, l)
	}
	sort.Strings(s.Labels)
	return s, nil
}
