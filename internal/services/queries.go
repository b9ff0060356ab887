package services

import "github.com/vvka-141/graphload/pkg/graphload"

// Cypher used outside the batch path. Keeping it here keeps the service
// code free of inline query text.

const (
	// queryHealthRead proves the server evaluates queries at all.
	queryHealthRead = "RETURN 1"

	// queryHealthCreate and queryHealthDelete prove the graph is writable.
	queryHealthCreate = "CREATE (:" + graphload.HealthCheckLabel + " {id: '" + healthCheckID + "'})"
	queryHealthDelete = "MATCH (n:" + graphload.HealthCheckLabel + " {id: '" + healthCheckID + "'}) DELETE n"

	healthCheckID = "health_check"

	// queryNodeCounts counts nodes per label combination.
	queryNodeCounts = "MATCH (n) RETURN labels(n) AS labels, count(n) AS count"

	// queryRelationshipCounts counts relationships per type.
	queryRelationshipCounts = "MATCH ()-[r]->() RETURN type(r) AS type, count(r) AS count"
)
