package graphdb

import (
	"context"
	"fmt"
	"time"

	"github.com/RedisGraph/redisgraph-go"
	"github.com/gomodule/redigo/redis"

	"github.com/vvka-141/graphload/pkg/graphload"
)

// Pool sizing for the FalkorDB client.
const (
	// DefaultMaxIdle keeps enough connections warm for --parallel loads.
	DefaultMaxIdle = 8

	// DefaultIdleTimeout closes connections unused for this long.
	DefaultIdleTimeout = 5 * time.Minute

	// DefaultDialTimeout bounds TCP connect and TLS handshake.
	DefaultDialTimeout = 10 * time.Second
)

// FalkorClient runs queries against one FalkorDB graph. Each call borrows a
// pooled connection, so the client is safe for concurrent use.
type FalkorClient struct {
	pool  *redis.Pool
	graph string
}

// NewFalkorClient wraps an existing pool.
func NewFalkorClient(pool *redis.Pool, graph string) *FalkorClient {
	return &FalkorClient{pool: pool, graph: graph}
}

func newFalkorPool(config *graphload.ConnectionConfig) *redis.Pool {
	opts := []redis.DialOption{
		redis.DialConnectTimeout(DefaultDialTimeout),
	}
	if config.Username != "" {
		opts = append(opts, redis.DialUsername(config.Username))
	}
	if config.Password != "" {
		opts = append(opts, redis.DialPassword(config.Password))
	}
	if config.TLS {
		opts = append(opts, redis.DialUseTLS(true))
	}
	addr := config.Address()

	return &redis.Pool{
		MaxIdle:     DefaultMaxIdle,
		IdleTimeout: DefaultIdleTimeout,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// Graph returns the graph key queries run against.
func (c *FalkorClient) Graph() string {
	return c.graph
}

// Query sends one GRAPH.QUERY and converts the reply.
func (c *FalkorClient) Query(ctx context.Context, query string) (*graphload.QueryResult, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	g := redisgraph.GraphNew(c.graph, conn)
	res, err := g.Query(query)
	if err != nil {
		return nil, err
	}
	return convertFalkorResult(res), nil
}

func convertFalkorResult(res *redisgraph.QueryResult) *graphload.QueryResult {
	out := &graphload.QueryResult{
		Stats: graphload.QueryStats{
			NodesCreated:         res.NodesCreated(),
			NodesDeleted:         res.NodesDeleted(),
			RelationshipsCreated: res.RelationshipsCreated(),
			PropertiesSet:        res.PropertiesSet(),
			RunTime:              time.Duration(float64(res.RunTime()) * float64(time.Millisecond)),
		},
	}
	for res.Next() {
		record := res.Record()
		if out.Columns == nil {
			out.Columns = record.Keys()
		}
		out.Rows = append(out.Rows, record.Values())
	}
	return out
}

// Ping sends PING on a pooled connection.
func (c *FalkorClient) Ping(ctx context.Context) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = redis.String(conn.Do("PING"))
	return err
}

// CreateUniqueConstraint issues GRAPH.CONSTRAINT CREATE. FalkorDB requires an
// exact-match index on the same properties to exist first.
func (c *FalkorClient) CreateUniqueConstraint(ctx context.Context, label string, properties []string) error {
	if len(properties) == 0 {
		return fmt.Errorf("unique constraint on %s needs at least one property: %w", label, graphload.ErrInvalidInput)
	}
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do("GRAPH.CONSTRAINT", constraintArgs(c.graph, label, properties)...)
	return err
}

func constraintArgs(graph, label string, properties []string) []interface{} {
	args := []interface{}{"CREATE", graph, "UNIQUE", "NODE", label, "PROPERTIES", len(properties)}
	for _, p := range properties {
		args = append(args, p)
	}
	return args
}

// DeleteGraph drops the whole graph key. Missing graphs are not an error.
func (c *FalkorClient) DeleteGraph(ctx context.Context) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do("GRAPH.DELETE", c.graph)
	if err != nil && isMissingGraph(err) {
		return nil
	}
	return err
}

// Close releases every pooled connection.
func (c *FalkorClient) Close() error {
	return c.pool.Close()
}
