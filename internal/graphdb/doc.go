// Package graphdb connects graphload to a graph database.
//
// Two backends implement graphload.GraphClient:
//   - FalkorClient sends GRAPH.QUERY over the Redis protocol (redigo pool,
//     redisgraph-go reply parsing).
//   - AGEClient wraps each query in Apache AGE's cypher() function and runs
//     it through a pgx pool. Azure Entra ID tokens can stand in for the
//     PostgreSQL password.
//
// NewConnector picks the backend from a graphload.ConnectionConfig and retries
// transient failures while the first connection is established.
package graphdb
