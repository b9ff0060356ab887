package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/vvka-141/graphload/pkg/graphload"
)

type mockConnector struct {
	client graphload.GraphClient
	err    error
	calls  int
}

func (m *mockConnector) Connect(_ context.Context) (graphload.GraphClient, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.client, nil
}

var (
	nodeQuery  = regexp.MustCompile(`AS row (CREATE|MERGE) \(n:(\S+) \{id: row\.id\}\)`)
	nodeRowID  = regexp.MustCompile(`\{id: '([^']*)'`)
	edgeRowKey = regexp.MustCompile(`\{source_id: ([^,]+), target_id: ([^,]+),`)
)

// fakeGraph is a GraphClient that understands just enough of the
// synthesized UNWIND queries to count what a real graph would hold.
type fakeGraph struct {
	mu      sync.Mutex
	queries []string
	nodes   map[string]int
	edges   map[string]int
	closed  bool
	fail    func(query string) error
	result  func(query string) *graphload.QueryResult
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{nodes: make(map[string]int), edges: make(map[string]int)}
}

func (g *fakeGraph) Query(ctx context.Context, query string) (*graphload.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queries = append(g.queries, query)
	if g.fail != nil {
		if err := g.fail(query); err != nil {
			return nil, err
		}
	}

	if m := nodeQuery.FindStringSubmatch(query); m != nil {
		for _, id := range nodeRowID.FindAllStringSubmatch(query, -1) {
			key := m[2] + "/" + id[1]
			if m[1] == "CREATE" {
				g.nodes[key]++
			} else {
				g.nodes[key] = 1
			}
		}
	} else if strings.Contains(query, "]->(b)") {
		merge := strings.Contains(query, "MERGE (a)-[")
		for _, row := range edgeRowKey.FindAllStringSubmatch(query, -1) {
			key := row[1] + "->" + row[2]
			if merge {
				g.edges[key] = 1
			} else {
				g.edges[key]++
			}
		}
	}

	if g.result != nil {
		if res := g.result(query); res != nil {
			return res, nil
		}
	}
	return &graphload.QueryResult{}, nil
}

func (g *fakeGraph) Ping(context.Context) error { return nil }

func (g *fakeGraph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func (g *fakeGraph) nodeCount() (total, distinct int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		total += n
	}
	return total, len(g.nodes)
}

func (g *fakeGraph) edgeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, n := range g.edges {
		total += n
	}
	return total
}

// loadQueries returns the UNWIND queries in order.
func (g *fakeGraph) loadQueries() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, q := range g.queries {
		if strings.HasPrefix(q, "UNWIND") {
			out = append(out, q)
		}
	}
	return out
}

func (g *fakeGraph) executed(query string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, q := range g.queries {
		if q == query {
			return true
		}
	}
	return false
}

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *captureLogger) Verbose(f string, a ...interface{}) { l.add("VERBOSE", f, a...) }
func (l *captureLogger) Info(f string, a ...interface{})    { l.add("INFO", f, a...) }
func (l *captureLogger) Warn(f string, a ...interface{})    { l.add("WARN", f, a...) }
func (l *captureLogger) Error(f string, a ...interface{})   { l.add("ERROR", f, a...) }

func (l *captureLogger) contains(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.HasPrefix(line, level+" ") && strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func (l *captureLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.HasPrefix(line, level+" ") {
			n++
		}
	}
	return n
}
