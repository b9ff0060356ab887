package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/graphload/internal/csvsource"
	"github.com/vvka-141/graphload/internal/progress"
	"github.com/vvka-141/graphload/pkg/graphload"
)

func sampleSource() *csvsource.MemorySource {
	src := csvsource.NewMemorySource()
	src.AddFile("nodes_Person.csv", "id,name,age\n1,Alice,30\n2,Bob,25\n3,Carol,41\n")
	src.AddFile("nodes_Company.csv", "id,name\n10,Acme\n")
	src.AddFile("edges_WORKS_AT.csv",
		"source,target,source_label,target_label,since\n1,10,person,Company,2020\n2,10,Person,company,2021\n")
	return src
}

func testConfig() graphload.LoadConfig {
	cfg := graphload.NewLoadConfig("test")
	cfg.Retries = 0
	cfg.BatchSize = 2
	return cfg
}

func newService(client graphload.GraphClient, logger graphload.Logger, sink graphload.EventSink) (*LoadService, *mockConnector) {
	conn := &mockConnector{client: client}
	return NewLoadService(conn, logger, sink), conn
}

func TestLoad_NodesThenEdges(t *testing.T) {
	graph := newFakeGraph()
	svc, _ := newService(graph, &captureLogger{}, progress.NullSink{})

	summary, err := svc.Load(context.Background(), sampleSource(), testConfig())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "test", summary.Graph)
	assert.False(t, summary.Aborted)
	assert.Equal(t, 4, summary.Nodes.Succeeded)
	assert.Equal(t, 2, summary.Edges.Succeeded)
	assert.Zero(t, summary.Total().Failed)

	require.Len(t, summary.Files, 3)
	assert.Equal(t, "nodes_Company.csv", summary.Files[0].File)
	assert.Equal(t, "nodes_Person.csv", summary.Files[1].File)
	assert.Equal(t, 2, summary.Files[1].Batches, "3 records with batch size 2")
	assert.Equal(t, graphload.KindEdge, summary.Files[2].Kind)
	assert.Equal(t, "WORKS_AT", summary.Files[2].Label)

	total, distinct := graph.nodeCount()
	assert.Equal(t, 4, total)
	assert.Equal(t, 4, distinct)
	assert.Equal(t, 2, graph.edgeCount())
	assert.True(t, graph.closed, "client must be closed after the run")

	// Edge labels are rewritten to the node files' spelling.
	queries := graph.loadQueries()
	last := queries[len(queries)-1]
	assert.Contains(t, last, "MERGE (a:Person {id: row.source_id})")
	assert.Contains(t, last, "MERGE (b:Company {id: row.target_id})")
	assert.Contains(t, last, "CREATE (a)-[r:WORKS_AT]->(b)")
}

func TestLoad_RunsHealthCheckAndSchemaFirst(t *testing.T) {
	graph := newFakeGraph()
	svc, _ := newService(graph, &captureLogger{}, progress.NullSink{})

	_, err := svc.Load(context.Background(), sampleSource(), testConfig())
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(graph.queries), 5)
	assert.Equal(t, []string{queryHealthRead, queryHealthCreate, queryHealthDelete}, graph.queries[:3])
	assert.Equal(t, "CREATE INDEX FOR (n:Company) ON (n.id)", graph.queries[3])
	assert.Equal(t, "CREATE INDEX FOR (n:Person) ON (n.id)", graph.queries[4])
}

func TestLoad_SkipSchema(t *testing.T) {
	graph := newFakeGraph()
	logger := &captureLogger{}
	svc, _ := newService(graph, logger, progress.NullSink{})

	cfg := testConfig()
	cfg.SkipSchema = true
	cfg.Mode = graphload.LoadModeUpsert

	_, err := svc.Load(context.Background(), sampleSource(), cfg)
	require.NoError(t, err)

	assert.False(t, graph.executed("CREATE INDEX FOR (n:Person) ON (n.id)"))
	assert.True(t, logger.contains("WARN", "without id indexes"))
}

func TestLoad_UpsertIsIdempotent(t *testing.T) {
	graph := newFakeGraph()
	svc, _ := newService(graph, &captureLogger{}, progress.NullSink{})

	cfg := testConfig()
	cfg.Mode = graphload.LoadModeUpsert

	for i := 0; i < 2; i++ {
		_, err := svc.Load(context.Background(), sampleSource(), cfg)
		require.NoError(t, err)
	}

	total, distinct := graph.nodeCount()
	assert.Equal(t, 4, total)
	assert.Equal(t, 4, distinct)
	assert.Equal(t, 2, graph.edgeCount())
}

func TestLoad_InsertDuplicatesOnRerun(t *testing.T) {
	graph := newFakeGraph()
	svc, _ := newService(graph, &captureLogger{}, progress.NullSink{})

	for i := 0; i < 2; i++ {
		_, err := svc.Load(context.Background(), sampleSource(), testConfig())
		require.NoError(t, err)
	}

	total, distinct := graph.nodeCount()
	assert.Equal(t, 8, total)
	assert.Equal(t, 4, distinct)
	assert.Equal(t, 4, graph.edgeCount())
}

func TestLoad_FallbackIsolatesBadRecord(t *testing.T) {
	graph := newFakeGraph()
	graph.fail = func(q string) error {
		if strings.HasPrefix(q, "UNWIND") && strings.Contains(q, "{id: '3'") {
			return errors.New("Invalid input")
		}
		return nil
	}
	logger := &captureLogger{}
	rec := &progress.Recorder{}
	svc, _ := newService(graph, logger, rec)

	cfg := testConfig()
	cfg.BatchSize = 5
	summary, err := svc.Load(context.Background(), sampleSource(), cfg)
	require.NoError(t, err, "failures without fail-fast do not fail the run")

	assert.Equal(t, 3, summary.Nodes.Succeeded)
	assert.Equal(t, 1, summary.Nodes.Failed)
	assert.True(t, summary.Nodes.FallbackUsed)
	assert.True(t, logger.contains("WARN", "1 record(s) failed to load"))

	var fallback int
	for _, o := range rec.Outcomes() {
		if o.Outcome.FallbackUsed {
			fallback++
			assert.Equal(t, "nodes_Person.csv", o.Scope)
		}
	}
	assert.Equal(t, 1, fallback)
}

func TestLoad_FailFast(t *testing.T) {
	graph := newFakeGraph()
	graph.fail = func(q string) error {
		if strings.Contains(q, "{id: '10'") {
			return errors.New("constraint violation")
		}
		return nil
	}
	svc, _ := newService(graph, &captureLogger{}, progress.NullSink{})

	cfg := testConfig()
	cfg.FailFast = true
	summary, err := svc.Load(context.Background(), sampleSource(), cfg)

	require.Error(t, err)
	assert.True(t, errors.Is(err, graphload.ErrLoadIncomplete))
	assert.Equal(t, graphload.ExitLoadIncomplete, graphload.ExitCodeForError(err))
	assert.True(t, summary.Aborted)
	require.Len(t, summary.Files, 1, "nodes_Company.csv fails first and stops the run")
	assert.Equal(t, 1, summary.Nodes.Failed)

	total, _ := graph.nodeCount()
	assert.Zero(t, total)
}

func TestLoad_ConnectionLostAborts(t *testing.T) {
	graph := newFakeGraph()
	graph.fail = func(q string) error {
		if strings.HasPrefix(q, "UNWIND") {
			return io.EOF
		}
		return nil
	}
	svc, _ := newService(graph, &captureLogger{}, progress.NullSink{})

	summary, err := svc.Load(context.Background(), sampleSource(), testConfig())

	require.Error(t, err)
	assert.True(t, errors.Is(err, graphload.ErrConnectionLost))
	assert.True(t, summary.Aborted)
	assert.Equal(t, 1, summary.Nodes.Failed)
	assert.Len(t, graph.loadQueries(), 1, "no fallback after a lost connection")
}

func TestLoad_ConnectFailure(t *testing.T) {
	conn := &mockConnector{err: fmt.Errorf("%w: refused", graphload.ErrConnectionFailed)}
	svc := NewLoadService(conn, &captureLogger{}, progress.NullSink{})

	_, err := svc.Load(context.Background(), sampleSource(), testConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, graphload.ErrConnectionFailed))
}

func TestLoad_HealthCheckFailure(t *testing.T) {
	graph := newFakeGraph()
	graph.fail = func(q string) error {
		if q == queryHealthCreate {
			return errors.New("READONLY You can't write against a read only replica")
		}
		return nil
	}
	svc, _ := newService(graph, &captureLogger{}, progress.NullSink{})

	_, err := svc.Load(context.Background(), sampleSource(), testConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, graphload.ErrHealthCheckFailed))
	assert.Empty(t, graph.loadQueries())
}

func TestLoad_LabelMismatchStopsBeforeConnecting(t *testing.T) {
	src := sampleSource()
	src.AddFile("edges_OWNS.csv", "source,target,source_label,target_label\n1,99,Person,Vehicle\n")
	svc, conn := newService(newFakeGraph(), &captureLogger{}, progress.NullSink{})

	_, err := svc.Load(context.Background(), src, testConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, graphload.ErrLabelMismatch))
	assert.Contains(t, err.Error(), "Vehicle")
	assert.Zero(t, conn.calls)
}

func TestLoad_SkipLabelCheck(t *testing.T) {
	src := sampleSource()
	src.AddFile("edges_OWNS.csv", "source,target,source_label,target_label\n1,99,Person,Vehicle\n")
	graph := newFakeGraph()
	svc, _ := newService(graph, &captureLogger{}, progress.NullSink{})

	cfg := testConfig()
	cfg.SkipLabelCheck = true
	summary, err := svc.Load(context.Background(), src, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Edges.Succeeded)

	// Without the check, edge labels are sent as written.
	var sawLower bool
	for _, q := range graph.loadQueries() {
		if strings.Contains(q, "(a:person ") {
			sawLower = true
		}
	}
	assert.True(t, sawLower)
}

func TestLoad_IncompleteEdges(t *testing.T) {
	newSource := func() *csvsource.MemorySource {
		src := csvsource.NewMemorySource()
		src.AddFile("nodes_Person.csv", "id\n1\n2\n")
		src.AddFile("edges_KNOWS.csv", "source,target\n1,2\n1,\n,2\n")
		return src
	}

	t.Run("skipped by default", func(t *testing.T) {
		logger := &captureLogger{}
		svc, _ := newService(newFakeGraph(), logger, progress.NullSink{})
		summary, err := svc.Load(context.Background(), newSource(), testConfig())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Edges.Succeeded)
		assert.Equal(t, 2, summary.Edges.Failed)
		assert.True(t, logger.contains("WARN", "missing endpoint"))
	})

	t.Run("kept on request", func(t *testing.T) {
		graph := newFakeGraph()
		logger := &captureLogger{}
		svc, _ := newService(graph, logger, progress.NullSink{})
		cfg := testConfig()
		cfg.KeepIncompleteEdges = true
		summary, err := svc.Load(context.Background(), newSource(), cfg)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Edges.Succeeded)
		assert.Zero(t, summary.Edges.Failed)

		var sawNull bool
		for _, q := range graph.loadQueries() {
			if strings.Contains(q, "target_id: null") {
				sawNull = true
			}
		}
		assert.True(t, sawNull)
		assert.Equal(t, 2, countContaining(logger, "missing endpoint as null"))
		assert.True(t, logger.contains("WARN", "missing endpoint"))
	})

	t.Run("kept warnings are capped", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("source,target\n")
		for i := 0; i < maxRowWarnings+5; i++ {
			b.WriteString("1,\n")
		}
		src := csvsource.NewMemorySource()
		src.AddFile("nodes_Person.csv", "id\n1\n")
		src.AddFile("edges_KNOWS.csv", b.String())

		logger := &captureLogger{}
		svc, _ := newService(newFakeGraph(), logger, progress.NullSink{})
		cfg := testConfig()
		cfg.KeepIncompleteEdges = true
		summary, err := svc.Load(context.Background(), src, cfg)
		require.NoError(t, err)
		assert.Equal(t, maxRowWarnings+5, summary.Edges.Succeeded)
		assert.Equal(t, maxRowWarnings, countContaining(logger, "missing endpoint as null"))
		assert.True(t, logger.contains("WARN", "further row warnings are suppressed"))
	})
}

func TestLoad_RejectedRowsAreCountedAndWarningsCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,name\n")
	for i := 0; i < 15; i++ {
		b.WriteString(",nameless\n")
	}
	b.WriteString("1,ok\n")

	src := csvsource.NewMemorySource()
	src.AddFile("nodes_Thing.csv", b.String())
	logger := &captureLogger{}
	svc, _ := newService(newFakeGraph(), logger, progress.NullSink{})

	summary, err := svc.Load(context.Background(), src, testConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Nodes.Succeeded)
	assert.Equal(t, 15, summary.Nodes.Failed)
	assert.Equal(t, maxRowWarnings, countContaining(logger, "Skipping row"))
	assert.True(t, logger.contains("WARN", "further row warnings are suppressed"))
}

func countContaining(l *captureLogger, substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

func TestLoad_ProgressEvents(t *testing.T) {
	src := csvsource.NewMemorySource()
	src.AddFile("nodes_N.csv", "id\n1\n2\n3\n4\n5\n")
	rec := &progress.Recorder{}
	svc, _ := newService(newFakeGraph(), &captureLogger{}, rec)

	cfg := testConfig()
	cfg.ProgressInterval = 2
	_, err := svc.Load(context.Background(), src, cfg)
	require.NoError(t, err)

	var current []int
	for _, p := range rec.Progress() {
		assert.Equal(t, "nodes_N.csv", p.Scope)
		assert.Equal(t, 5, p.Total)
		current = append(current, p.Current)
	}
	assert.Equal(t, []int{2, 4, 5}, current)
	assert.Len(t, rec.Outcomes(), 3)
}

func TestLoad_Parallel(t *testing.T) {
	src := csvsource.NewMemorySource()
	for i := 0; i < 6; i++ {
		src.AddFile(fmt.Sprintf("nodes_L%d.csv", i), "id\n1\n2\n3\n")
	}
	var inFlight, peak atomic.Int32
	graph := newFakeGraph()
	graph.fail = func(string) error { return nil }
	svc, _ := newService(&concurrencyProbe{fakeGraph: graph, inFlight: &inFlight, peak: &peak}, &captureLogger{}, progress.NullSink{})

	cfg := testConfig()
	cfg.Parallel = 3
	summary, err := svc.Load(context.Background(), src, cfg)
	require.NoError(t, err)

	assert.Equal(t, 18, summary.Nodes.Succeeded)
	require.Len(t, summary.Files, 6)
	for i, f := range summary.Files {
		assert.Equal(t, fmt.Sprintf("nodes_L%d.csv", i), f.File, "outcomes keep file order")
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

// concurrencyProbe records the peak number of concurrent queries.
type concurrencyProbe struct {
	*fakeGraph
	inFlight *atomic.Int32
	peak     *atomic.Int32
}

func (p *concurrencyProbe) Query(ctx context.Context, q string) (*graphload.QueryResult, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	return p.fakeGraph.Query(ctx, q)
}

func TestLoad_NoFiles(t *testing.T) {
	logger := &captureLogger{}
	svc, conn := newService(newFakeGraph(), logger, progress.NullSink{})

	summary, err := svc.Load(context.Background(), csvsource.NewMemorySource(), testConfig())
	require.NoError(t, err)
	assert.Empty(t, summary.Files)
	assert.Zero(t, conn.calls)
	assert.True(t, logger.contains("WARN", "No node or edge files"))
}

func TestLoad_InvalidConfig(t *testing.T) {
	svc, _ := newService(newFakeGraph(), &captureLogger{}, progress.NullSink{})
	cfg := testConfig()
	cfg.BatchSize = 0

	_, err := svc.Load(context.Background(), sampleSource(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, graphload.ErrInvalidConfig))
}

func TestLoad_IncludeFilter(t *testing.T) {
	graph := newFakeGraph()
	svc, _ := newService(graph, &captureLogger{}, progress.NullSink{})

	cfg := testConfig()
	cfg.Include = []string{"nodes_*"}
	summary, err := svc.Load(context.Background(), sampleSource(), cfg)
	require.NoError(t, err)
	assert.Len(t, summary.Files, 2)
	assert.Zero(t, graph.edgeCount())
}

func TestLoad_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	graph := newFakeGraph()
	graph.fail = func(q string) error {
		if strings.HasPrefix(q, "UNWIND") {
			cancel()
		}
		return nil
	}
	svc, _ := newService(graph, &captureLogger{}, progress.NullSink{})

	summary, err := svc.Load(ctx, sampleSource(), testConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, summary.Aborted)
}

func TestNewLoadService_Panics(t *testing.T) {
	assert.Panics(t, func() { NewLoadService(nil, &captureLogger{}, progress.NullSink{}) })
	assert.Panics(t, func() { NewLoadService(&mockConnector{}, nil, progress.NullSink{}) })
	assert.Panics(t, func() { NewLoadService(&mockConnector{}, &captureLogger{}, nil) })
}
