// Package testinfra starts throwaway graph databases for integration tests.
package testinfra

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	FalkorDBImage = "falkordb/falkordb:latest"
	FalkorDBPort  = "6379/tcp"

	AGEImage    = "apache/age:release_PG16_1.5.0"
	AGEUser     = "postgres"
	AGEPassword = "postgres"
	AGEDatabase = "postgres"

	// AddrEnv points integration tests at an existing FalkorDB instead of a
	// container, e.g. "falkor://localhost:6379".
	AddrEnv = "GRAPHLOAD_TEST_ADDR"
)

type FalkorDBContainer struct {
	testcontainers.Container
	// Addr is a falkor:// URL without a graph path.
	Addr string
}

func StartFalkorDB(ctx context.Context) (*FalkorDBContainer, error) {
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        FalkorDBImage,
			ExposedPorts: []string{FalkorDBPort},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start falkordb: %w", err)
	}

	endpoint, err := ctr.PortEndpoint(ctx, FalkorDBPort, "")
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get falkordb endpoint: %w", err)
	}

	return &FalkorDBContainer{Container: ctr, Addr: "falkor://" + endpoint}, nil
}

type AGEContainer struct {
	*postgres.PostgresContainer
	ConnString string
}

func StartAGE(ctx context.Context) (*AGEContainer, error) {
	ctr, err := postgres.Run(ctx,
		AGEImage,
		postgres.WithUsername(AGEUser),
		postgres.WithPassword(AGEPassword),
		postgres.WithDatabase(AGEDatabase),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start age: %w", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	if _, _, err := ctr.Exec(ctx, []string{"psql", "-U", AGEUser, "-d", AGEDatabase, "-c", "CREATE EXTENSION IF NOT EXISTS age"}); err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("create age extension: %w", err)
	}

	return &AGEContainer{PostgresContainer: ctr, ConnString: connStr}, nil
}

// FalkorDBAddr returns the address from AddrEnv when set. Otherwise it
// starts a container and returns its address with a cleanup function.
func FalkorDBAddr(ctx context.Context) (addr string, cleanup func(), err error) {
	if addr := os.Getenv(AddrEnv); addr != "" {
		return addr, func() {}, nil
	}
	ctr, err := StartFalkorDB(ctx)
	if err != nil {
		return "", nil, err
	}
	return ctr.Addr, func() { ctr.Terminate(context.Background()) }, nil //nolint:errcheck
}
