package graphdb

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/graphload/pkg/graphload"
)

// AGEClient runs openCypher through Apache AGE's cypher() set-returning
// function on PostgreSQL.
type AGEClient struct {
	pool    *pgxpool.Pool
	graph   string
	release func()
}

// NewAGEClient wraps a pool whose connections have AGE loaded (see
// configureAGEPool).
func NewAGEClient(pool *pgxpool.Pool, graph string) *AGEClient {
	return &AGEClient{pool: pool, graph: graph}
}

// Query wraps query in cypher() and collects every row. AGE reports no
// write statistics, so only RunTime is populated.
func (c *AGEClient) Query(ctx context.Context, query string) (*graphload.QueryResult, error) {
	start := time.Now()
	rows, err := c.pool.Query(ctx, WrapCypher(c.graph, query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &graphload.QueryResult{}
	for _, fd := range rows.FieldDescriptions() {
		out.Columns = append(out.Columns, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out.Rows = append(out.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out.Stats.RunTime = time.Since(start)
	return out, nil
}

// Ping checks that a pooled connection answers.
func (c *AGEClient) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close closes the pool, then releases the dialer the pool connected through.
func (c *AGEClient) Close() error {
	c.pool.Close()
	if c.release != nil {
		c.release()
		c.release = nil
	}
	return nil
}

// EnsureGraph creates the AGE graph when it does not exist yet.
func (c *AGEClient) EnsureGraph(ctx context.Context) error {
	var exists bool
	err := c.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM ag_catalog.ag_graph WHERE name = $1)", c.graph).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up graph %q: %w", c.graph, err)
	}
	if exists {
		return nil
	}
	if _, err := c.pool.Exec(ctx, "SELECT ag_catalog.create_graph($1)", c.graph); err != nil {
		return fmt.Errorf("failed to create graph %q: %w", c.graph, err)
	}
	return nil
}

// configureAGEPool loads the extension on every new connection.
func configureAGEPool(poolConfig *pgxpool.Config, logger graphload.Logger) {
	configurePool(poolConfig, logger)
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, "LOAD 'age'"); err != nil {
			return fmt.Errorf("failed to load AGE extension: %w", err)
		}
		if _, err := conn.Exec(ctx, `SET search_path = ag_catalog, "$user", public`); err != nil {
			return err
		}
		return nil
	}
}

// WrapCypher builds the SQL statement that runs query on graph. The query
// text travels inside a dollar-quoted string whose tag does not occur in it;
// the result column list matches the arity of the final RETURN clause.
func WrapCypher(graph, query string) string {
	tag := dollarTag(query)
	var b strings.Builder
	b.WriteString("SELECT * FROM ag_catalog.cypher('")
	b.WriteString(strings.ReplaceAll(graph, "'", "''"))
	b.WriteString("', ")
	b.WriteString(tag)
	b.WriteString(query)
	b.WriteString(tag)
	b.WriteString(") AS (")
	n := returnArity(query)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "c%d ag_catalog.agtype", i)
	}
	b.WriteString(")")
	return b.String()
}

func dollarTag(query string) string {
	tag := "$graphload$"
	for i := 1; strings.Contains(query, tag); i++ {
		tag = fmt.Sprintf("$graphload%d$", i)
	}
	return tag
}

// returnArity counts the projections of the last top-level RETURN, up to a
// top-level ORDER BY, SKIP or LIMIT. Quoted strings, backticked names and
// nested brackets are skipped. Queries without RETURN still need one result
// column.
func returnArity(query string) int {
	depth := 0
	returnAt := -1
	for i := 0; i < len(query); i++ {
		switch ch := query[i]; ch {
		case '\'', '"', '`':
			i = skipQuoted(query, i, ch)
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if depth == 0 && isKeywordAt(query, i, "RETURN") {
				returnAt = i + len("RETURN")
				i = returnAt - 1
			}
		}
	}
	if returnAt < 0 {
		return 1
	}

	n := 1
	depth = 0
	for i := returnAt; i < len(query); i++ {
		switch ch := query[i]; ch {
		case '\'', '"', '`':
			i = skipQuoted(query, i, ch)
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				n++
			}
		default:
			if depth == 0 && endsProjection(query, i) {
				return n
			}
		}
	}
	return n
}

func endsProjection(query string, i int) bool {
	return isKeywordAt(query, i, "ORDER") || isKeywordAt(query, i, "SKIP") || isKeywordAt(query, i, "LIMIT")
}

// skipQuoted returns the index of the quote closing the one at start.
// Backticked names have no escapes; a doubled backtick reopens the name.
func skipQuoted(s string, start int, quote byte) int {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if quote != '`' {
				i++
			}
		case quote:
			return i
		}
	}
	return len(s)
}

func isKeywordAt(s string, i int, kw string) bool {
	if len(s)-i < len(kw) || !strings.EqualFold(s[i:i+len(kw)], kw) {
		return false
	}
	if i > 0 && isWordByte(s[i-1]) {
		return false
	}
	end := i + len(kw)
	return end == len(s) || !isWordByte(s[end])
}

func isWordByte(b byte) bool {
	return b == '_' || unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b))
}
