package graphdb

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/graphload/pkg/graphload"
)

// newCloudSQLAGEConnector connects through the Cloud SQL Go Connector with
// IAM database authentication. User and database come from the DSN; the
// host is ignored in favour of the instance connection name.
func newCloudSQLAGEConnector(cfg *graphload.ConnectionConfig, logger graphload.Logger) *AGEConnector {
	c := NewAGEConnector(cfg, nil, logger)
	c.dial = func(ctx context.Context, poolConfig *pgxpool.Config) (func(), error) {
		dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
		if err != nil {
			return nil, fmt.Errorf("failed to create Cloud SQL dialer: %w", err)
		}
		instance := cfg.GoogleInstance
		poolConfig.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.Dial(ctx, instance)
		}
		// the connector terminates TLS itself
		poolConfig.ConnConfig.TLSConfig = nil
		poolConfig.ConnConfig.Fallbacks = nil
		return func() { _ = dialer.Close() }, nil
	}
	return c
}
