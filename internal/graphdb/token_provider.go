package graphdb

import (
	"context"
	"time"
)

// TokenProvider acquires short-lived credentials used as the PostgreSQL
// password for the AGE backend.
type TokenProvider interface {
	// GetToken returns the token and its expiry time.
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the provider for logs. Must not include secrets.
	String() string
}

// AzurePostgreSQLScope is the OAuth scope for Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"

// tokenExpiryWarning is the remaining lifetime below which a token is
// reported as about to expire.
const tokenExpiryWarning = 5 * time.Minute
