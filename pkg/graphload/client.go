package graphload

import (
	"context"
	"time"
)

// GraphClient sends query text to a graph database and returns the reply.
// A call either completes or fails; there is no streamed or partial response.
type GraphClient interface {
	// Query executes one query as a single unit of work.
	Query(ctx context.Context, query string) (*QueryResult, error)

	// Ping verifies the server is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

// ConstraintCreator is implemented by clients whose backend manages
// uniqueness constraints outside the query language.
type ConstraintCreator interface {
	CreateUniqueConstraint(ctx context.Context, label string, properties []string) error
}

// Connector establishes a GraphClient.
type Connector interface {
	// Connect returns a ready client. The caller must Close it.
	Connect(ctx context.Context) (GraphClient, error)
}

// QueryResult is the backend-neutral reply to a query.
type QueryResult struct {
	Columns []string
	Rows    [][]any
	Stats   QueryStats
}

// QueryStats reports the side effects of a query.
type QueryStats struct {
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	PropertiesSet        int
	RunTime              time.Duration
}
