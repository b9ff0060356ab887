package graphdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/graphload/internal/retry"
	"github.com/vvka-141/graphload/pkg/graphload"
)

// AGE pool configuration.
const (
	DefaultMaxConns        = 8
	DefaultMinConns        = 1
	DefaultMaxConnIdleTime = 30 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger graphload.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("postgres: %s", notice.Message)
	}
}

// NewConnector picks the connector for config.Backend and config.AuthMethod.
func NewConnector(config *graphload.ConnectionConfig, logger graphload.Logger) (graphload.Connector, error) {
	switch config.Backend {
	case graphload.BackendFalkorDB:
		if config.AuthMethod != graphload.AuthMethodStandard {
			return nil, fmt.Errorf("%s auth is not available for falkordb: %w", config.AuthMethod, graphload.ErrUnsupportedAuthMethod)
		}
		return NewFalkorConnector(config, logger), nil
	case graphload.BackendAGE:
		switch config.AuthMethod {
		case graphload.AuthMethodStandard:
			return NewAGEConnector(config, nil, logger), nil
		case graphload.AuthMethodAzureEntraID:
			return newAzureAGEConnector(config, logger)
		case graphload.AuthMethodAWSIAM:
			return newAWSAGEConnector(config, logger)
		case graphload.AuthMethodGoogleIAM:
			return newCloudSQLAGEConnector(config, logger), nil
		default:
			return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, graphload.ErrUnsupportedAuthMethod)
		}
	default:
		return nil, fmt.Errorf("backend %v: %w", config.Backend, graphload.ErrUnsupportedBackend)
	}
}

func newRetryExecutor(logger graphload.Logger, what string) *retry.Executor {
	return retry.NewDefaultExecutor(graphload.DefaultRetryMaxAttempts).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Warn("%s failed (attempt %d), retrying in %v: %v", what, attempt+1, delay.Round(time.Millisecond), err)
		})
}

// FalkorConnector opens a pooled FalkorDB client and verifies it with PING.
type FalkorConnector struct {
	config        *graphload.ConnectionConfig
	retryExecutor *retry.Executor
}

// NewFalkorConnector creates a connector that retries transient dial failures.
func NewFalkorConnector(config *graphload.ConnectionConfig, logger graphload.Logger) *FalkorConnector {
	return &FalkorConnector{
		config:        config,
		retryExecutor: newRetryExecutor(logger, "connecting to FalkorDB"),
	}
}

func (c *FalkorConnector) Connect(ctx context.Context) (graphload.GraphClient, error) {
	var client *FalkorClient

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		candidate := NewFalkorClient(newFalkorPool(c.config), c.config.Graph)
		if err := candidate.Ping(ctx); err != nil {
			candidate.Close()
			return err
		}
		client = candidate
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", graphload.ErrConnectionFailed, wrapFalkorError(err, c.config))
	}
	return client, nil
}

// AGEConnector opens a pgx pool with the AGE extension loaded and makes
// sure the target graph exists. With a TokenProvider, each new physical
// connection authenticates with a fresh token.
type AGEConnector struct {
	config        *graphload.ConnectionConfig
	tokenProvider TokenProvider
	logger        graphload.Logger
	retryExecutor *retry.Executor

	// dial, when set, replaces network dialing for the pool. The returned
	// release func runs when the client closes.
	dial func(ctx context.Context, poolConfig *pgxpool.Config) (release func(), err error)
}

// NewAGEConnector creates an AGE connector. tokenProvider may be nil for
// password authentication from the DSN.
func NewAGEConnector(config *graphload.ConnectionConfig, tokenProvider TokenProvider, logger graphload.Logger) *AGEConnector {
	return &AGEConnector{
		config:        config,
		tokenProvider: tokenProvider,
		logger:        logger,
		retryExecutor: newRetryExecutor(logger, "connecting to PostgreSQL"),
	}
}

func (c *AGEConnector) Connect(ctx context.Context) (graphload.GraphClient, error) {
	poolConfig, err := pgxpool.ParseConfig(c.config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w: %w", graphload.ErrInvalidConfig, err)
	}
	configureAGEPool(poolConfig, c.logger)
	if c.tokenProvider != nil {
		poolConfig.BeforeConnect = c.injectToken
	}
	host, port, database := poolConfig.ConnConfig.Host, int(poolConfig.ConnConfig.Port), poolConfig.ConnConfig.Database

	release := func() {}
	if c.dial != nil {
		if release, err = c.dial(ctx, poolConfig); err != nil {
			return nil, fmt.Errorf("%w: %w", graphload.ErrConnectionFailed, err)
		}
	}

	var client *AGEClient
	err = c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return err
		}
		client = NewAGEClient(pool, c.config.Graph)
		return nil
	})
	if err != nil {
		release()
		return nil, fmt.Errorf("%w: %w", graphload.ErrConnectionFailed, wrapPostgresError(err, host, port, database))
	}
	client.release = release

	if err := client.EnsureGraph(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", graphload.ErrConnectionFailed, wrapPostgresError(err, host, port, database))
	}
	return client, nil
}

func (c *AGEConnector) injectToken(ctx context.Context, cc *pgx.ConnConfig) error {
	token, expiresOn, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire token from %s: %w", c.tokenProvider, err)
	}
	if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
		c.logger.Warn("%s token expires in %v", c.tokenProvider, remaining.Round(time.Second))
	}
	cc.Password = token
	return nil
}

// newAzureAGEConnector uses Service Principal credentials when all three are
// set and the DefaultAzureCredential chain otherwise.
func newAzureAGEConnector(config *graphload.ConnectionConfig, logger graphload.Logger) (graphload.Connector, error) {
	var provider TokenProvider
	var err error

	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		provider, err = NewAzureServicePrincipalProvider(config.AzureTenantID, config.AzureClientID, config.AzureClientSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Service Principal provider: %w", err)
		}
	} else {
		provider, err = NewAzureDefaultCredentialProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Default Credential provider: %w", err)
		}
	}

	return NewAGEConnector(config, provider, logger), nil
}

// wrapFalkorError adds actionable guidance to raw dial and handshake errors.
func wrapFalkorError(err error, config *graphload.ConnectionConfig) error {
	errStr := strings.ToLower(err.Error())
	addr := config.Address()

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - FalkorDB is not running (check: redis-cli -h %s -p %d ping)
  - Wrong host or port
  - Firewall blocking the connection

Original error: %w`, addr, config.Host, config.Port, err)

	case strings.Contains(errStr, "no such host"):
		return fmt.Errorf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable

Original error: %w`, config.Host, err)

	case strings.Contains(errStr, "noauth") || strings.Contains(errStr, "wrongpass") ||
		strings.Contains(errStr, "invalid password") || strings.Contains(errStr, "invalid username-password"):
		return fmt.Errorf(`authentication failed for %s

Possible causes:
  - Wrong password (check --password or $FALKORDB_PASSWORD)
  - Wrong ACL username
  - Server requires a password but none was given

Original error: %w`, addr, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or still loading its dataset
  - Firewall silently dropping packets
  - TLS required by the server (try a rediss:// address)

Original error: %w`, addr, err)

	case strings.Contains(errStr, "tls") || strings.Contains(errStr, "certificate"):
		return fmt.Errorf(`TLS handshake with %s failed

Possible causes:
  - Server does not speak TLS on this port
  - Certificate is not trusted by this machine

Original error: %w`, addr, err)

	default:
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
}

// wrapPostgresError adds actionable guidance for the AGE backend.
func wrapPostgresError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port
  - Firewall blocking the connection

Original error: %w`, addr, host, port, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or the connection string)
  - Wrong username
  - Expired Azure token (re-run az login)

Original error: %w`, database, err)

	case strings.Contains(errStr, `could not access file "age"`) ||
		(strings.Contains(errStr, "ag_catalog") && strings.Contains(errStr, "does not exist")):
		return fmt.Errorf(`Apache AGE is not available in database "%s"

To enable it:
  CREATE EXTENSION IF NOT EXISTS age;

On Azure Database for PostgreSQL, add AGE to the azure.extensions and
shared_preload_libraries server parameters first.

Original error: %w`, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`database "%s" does not exist

To create it:
  createdb %s

Original error: %w`, database, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets

Original error: %w`, addr, err)

	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}

func isMissingGraph(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "invalid graph operation on empty key") ||
		strings.Contains(msg, "graph does not exist") ||
		strings.Contains(msg, "empty key")
}

var (
	_ graphload.Connector         = (*FalkorConnector)(nil)
	_ graphload.Connector         = (*AGEConnector)(nil)
	_ graphload.GraphClient       = (*FalkorClient)(nil)
	_ graphload.GraphClient       = (*AGEClient)(nil)
	_ graphload.ConstraintCreator = (*FalkorClient)(nil)
)
