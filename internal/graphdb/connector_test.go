package graphdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/graphload/internal/logging"
	"github.com/vvka-141/graphload/pkg/graphload"
)

// fakeConn records commands and answers from a canned reply table.
type fakeConn struct {
	mu       sync.Mutex
	commands [][]interface{}
	replies  map[string]interface{}
	errs     map[string]error
}

func (c *fakeConn) Close() error { return nil }
func (c *fakeConn) Err() error   { return nil }

func (c *fakeConn) Do(cmd string, args ...interface{}) (interface{}, error) {
	if cmd == "" {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, append([]interface{}{cmd}, args...))
	if err, ok := c.errs[cmd]; ok {
		return nil, err
	}
	return c.replies[cmd], nil
}

func (c *fakeConn) Send(string, ...interface{}) error { return nil }
func (c *fakeConn) Flush() error                      { return nil }
func (c *fakeConn) Receive() (interface{}, error)     { return nil, nil }

func newFakeClient(conn *fakeConn) *FalkorClient {
	pool := &redis.Pool{Dial: func() (redis.Conn, error) { return conn, nil }}
	return NewFalkorClient(pool, "social")
}

type mockTokenProvider struct {
	token     string
	expiresOn time.Time
	err       error
}

func (m *mockTokenProvider) GetToken(context.Context) (string, time.Time, error) {
	if m.err != nil {
		return "", time.Time{}, m.err
	}
	return m.token, m.expiresOn, nil
}

func (m *mockTokenProvider) String() string { return "MockTokenProvider" }

type warnCounter struct {
	logging.NullLogger
	mu    sync.Mutex
	warns []string
}

func (w *warnCounter) Warn(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warns = append(w.warns, fmt.Sprintf(format, args...))
}

func TestFalkorClient_Ping(t *testing.T) {
	conn := &fakeConn{replies: map[string]interface{}{"PING": "PONG"}}
	client := newFakeClient(conn)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))
	require.Len(t, conn.commands, 1)
	assert.Equal(t, "PING", conn.commands[0][0])
}

func TestFalkorClient_CreateUniqueConstraint(t *testing.T) {
	conn := &fakeConn{replies: map[string]interface{}{"GRAPH.CONSTRAINT": "PENDING"}}
	client := newFakeClient(conn)
	defer client.Close()

	err := client.CreateUniqueConstraint(context.Background(), "Person", []string{"email", "tenant"})
	require.NoError(t, err)

	require.Len(t, conn.commands, 1)
	assert.Equal(t, []interface{}{
		"GRAPH.CONSTRAINT", "CREATE", "social", "UNIQUE", "NODE", "Person", "PROPERTIES", 2, "email", "tenant",
	}, conn.commands[0])
}

func TestFalkorClient_CreateUniqueConstraint_NoProperties(t *testing.T) {
	client := newFakeClient(&fakeConn{})
	err := client.CreateUniqueConstraint(context.Background(), "Person", nil)
	assert.ErrorIs(t, err, graphload.ErrInvalidInput)
}

func TestFalkorClient_DeleteGraph_MissingIsNotAnError(t *testing.T) {
	conn := &fakeConn{errs: map[string]error{
		"GRAPH.DELETE": redis.Error("ERR Invalid graph operation on empty key"),
	}}
	client := newFakeClient(conn)

	assert.NoError(t, client.DeleteGraph(context.Background()))
}

func TestFalkorClient_DeleteGraph_OtherErrors(t *testing.T) {
	conn := &fakeConn{errs: map[string]error{
		"GRAPH.DELETE": redis.Error("NOPERM this user has no permissions"),
	}}
	client := newFakeClient(conn)

	assert.Error(t, client.DeleteGraph(context.Background()))
}

func TestNewConnector(t *testing.T) {
	logger := logging.NewNullLogger()

	t.Run("falkordb", func(t *testing.T) {
		c, err := NewConnector(&graphload.ConnectionConfig{Backend: graphload.BackendFalkorDB}, logger)
		require.NoError(t, err)
		assert.IsType(t, &FalkorConnector{}, c)
	})

	t.Run("falkordb rejects azure auth", func(t *testing.T) {
		_, err := NewConnector(&graphload.ConnectionConfig{
			Backend:    graphload.BackendFalkorDB,
			AuthMethod: graphload.AuthMethodAzureEntraID,
		}, logger)
		assert.ErrorIs(t, err, graphload.ErrUnsupportedAuthMethod)
	})

	t.Run("age", func(t *testing.T) {
		c, err := NewConnector(&graphload.ConnectionConfig{Backend: graphload.BackendAGE, DSN: "postgres://localhost/db"}, logger)
		require.NoError(t, err)
		ageConn, ok := c.(*AGEConnector)
		require.True(t, ok)
		assert.Nil(t, ageConn.tokenProvider)
	})

	t.Run("age with service principal", func(t *testing.T) {
		c, err := NewConnector(&graphload.ConnectionConfig{
			Backend:           graphload.BackendAGE,
			DSN:               "postgres://loader@server.postgres.database.azure.com/db",
			AuthMethod:        graphload.AuthMethodAzureEntraID,
			AzureTenantID:     "tenant-id",
			AzureClientID:     "client-id",
			AzureClientSecret: "client-secret",
		}, logger)
		require.NoError(t, err)
		ageConn := c.(*AGEConnector)
		assert.IsType(t, &AzureServicePrincipalProvider{}, ageConn.tokenProvider)
		assert.NotContains(t, ageConn.tokenProvider.String(), "client-secret")
	})

	t.Run("age with aws iam", func(t *testing.T) {
		c, err := NewConnector(&graphload.ConnectionConfig{
			Backend:    graphload.BackendAGE,
			DSN:        "postgres://loader@graphs.abc123.eu-west-1.rds.amazonaws.com:5432/db",
			AuthMethod: graphload.AuthMethodAWSIAM,
			AWSRegion:  "eu-west-1",
		}, logger)
		require.NoError(t, err)
		provider, ok := c.(*AGEConnector).tokenProvider.(*AWSIAMTokenProvider)
		require.True(t, ok)
		assert.Equal(t, "graphs.abc123.eu-west-1.rds.amazonaws.com:5432", provider.endpoint)
		assert.Equal(t, "loader", provider.username)
	})

	t.Run("age with aws iam needs region", func(t *testing.T) {
		_, err := NewConnector(&graphload.ConnectionConfig{
			Backend:    graphload.BackendAGE,
			DSN:        "postgres://loader@host/db",
			AuthMethod: graphload.AuthMethodAWSIAM,
		}, logger)
		assert.ErrorIs(t, err, graphload.ErrInvalidConfig)
	})

	t.Run("age with cloud sql", func(t *testing.T) {
		c, err := NewConnector(&graphload.ConnectionConfig{
			Backend:        graphload.BackendAGE,
			DSN:            "user=loader@proj.iam dbname=graphs",
			AuthMethod:     graphload.AuthMethodGoogleIAM,
			GoogleInstance: "proj:europe-west1:graphs",
		}, logger)
		require.NoError(t, err)
		ageConn := c.(*AGEConnector)
		assert.Nil(t, ageConn.tokenProvider)
		assert.NotNil(t, ageConn.dial)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewConnector(&graphload.ConnectionConfig{Backend: graphload.Backend(99)}, logger)
		assert.ErrorIs(t, err, graphload.ErrUnsupportedBackend)
	})
}

func TestFalkorConnector_ConnectionRefused(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping retry timing test in short mode")
	}
	config := &graphload.ConnectionConfig{
		Backend: graphload.BackendFalkorDB,
		Host:    "127.0.0.1",
		Port:    1,
		Graph:   "g",
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := NewFalkorConnector(config, logging.NewNullLogger()).Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, graphload.ErrConnectionFailed)
	assert.Equal(t, graphload.ExitConnectionError, graphload.ExitCodeForError(err))
}

func TestAGEConnector_InvalidDSN(t *testing.T) {
	config := &graphload.ConnectionConfig{Backend: graphload.BackendAGE, DSN: "postgres://host:notaport/db", Graph: "g"}
	_, err := NewAGEConnector(config, nil, logging.NewNullLogger()).Connect(context.Background())
	assert.ErrorIs(t, err, graphload.ErrInvalidConfig)
}

func TestAGEConnector_InjectToken(t *testing.T) {
	t.Run("sets password", func(t *testing.T) {
		logger := &warnCounter{}
		c := NewAGEConnector(&graphload.ConnectionConfig{}, &mockTokenProvider{
			token:     "fresh-token",
			expiresOn: time.Now().Add(time.Hour),
		}, logger)

		cc := &pgx.ConnConfig{}
		require.NoError(t, c.injectToken(context.Background(), cc))
		assert.Equal(t, "fresh-token", cc.Password)
		assert.Empty(t, logger.warns)
	})

	t.Run("warns when expiring", func(t *testing.T) {
		logger := &warnCounter{}
		c := NewAGEConnector(&graphload.ConnectionConfig{}, &mockTokenProvider{
			token:     "short-token",
			expiresOn: time.Now().Add(time.Minute),
		}, logger)

		require.NoError(t, c.injectToken(context.Background(), &pgx.ConnConfig{}))
		require.Len(t, logger.warns, 1)
		assert.Contains(t, logger.warns[0], "expires in")
	})

	t.Run("provider failure", func(t *testing.T) {
		c := NewAGEConnector(&graphload.ConnectionConfig{}, &mockTokenProvider{err: errors.New("no credential")}, &warnCounter{})
		err := c.injectToken(context.Background(), &pgx.ConnConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MockTokenProvider")
	})
}

func TestNewAzureServicePrincipalProvider_RequiresAllParams(t *testing.T) {
	tests := []struct {
		name                             string
		tenantID, clientID, clientSecret string
		wantErr                          bool
	}{
		{"all params provided", "tenant-id", "client-id", "client-secret", false},
		{"missing tenant ID", "", "client-id", "client-secret", true},
		{"missing client ID", "tenant-id", "", "client-secret", true},
		{"missing client secret", "tenant-id", "client-id", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAzureServicePrincipalProvider(tt.tenantID, tt.clientID, tt.clientSecret)
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWrapFalkorError(t *testing.T) {
	config := &graphload.ConnectionConfig{Host: "graph.local", Port: 6379}

	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"refused", errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"), "redis-cli -h graph.local -p 6379 ping"},
		{"dns", errors.New("dial tcp: lookup graph.local: no such host"), "cannot resolve host"},
		{"noauth", redis.Error("NOAUTH Authentication required."), "authentication failed"},
		{"wrongpass", redis.Error("WRONGPASS invalid username-password pair"), "authentication failed"},
		{"timeout", errors.New("dial tcp: i/o timeout"), "timed out"},
		{"tls", errors.New("tls: first record does not look like a TLS handshake"), "TLS handshake"},
		{"other", errors.New("something odd"), "failed to connect to graph.local:6379"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := wrapFalkorError(tt.err, config)
			assert.Contains(t, wrapped.Error(), tt.contains)
			assert.ErrorIs(t, wrapped, tt.err)
		})
	}
}

func TestWrapPostgresError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"refused", errors.New("connect: connection refused"), "pg_isready"},
		{"auth", errors.New(`FATAL: password authentication failed for user "loader"`), "password authentication failed"},
		{"no age", errors.New(`ERROR: could not access file "age": No such file or directory`), "CREATE EXTENSION IF NOT EXISTS age"},
		{"no catalog", errors.New(`ERROR: relation "ag_catalog.ag_graph" does not exist`), "Apache AGE is not available"},
		{"no database", errors.New(`FATAL: database "graphs" does not exist`), "createdb graphs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := wrapPostgresError(tt.err, "db.local", 5432, "graphs")
			if !strings.Contains(wrapped.Error(), tt.contains) {
				t.Errorf("expected %q in:\n%s", tt.contains, wrapped.Error())
			}
		})
	}
}
