//go:build integration_test

package sqltest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const postgresImage = "postgres:16-alpine"

// server is the Postgres container shared by every test of the package.
var server struct {
	once      sync.Once
	container *postgres.PostgresContainer
	adminDSN  string
	err       error
}

func init() {
	engines = append(engines, struct {
		name    string
		factory LocationFactory
	}{
		name:    "Postgres",
		factory: NewPostgresLocation,
	})
}

// postgresAdminDSN starts the shared container on first use and returns the
// DSN of its maintenance database.
func postgresAdminDSN(t testing.TB) string {
	t.Helper()

	server.once.Do(func() {
		ctx, cancel := context.WithTimeout(
			context.Background(), 2*time.Minute,
		)
		defer cancel()

		server.container, server.err = postgres.Run(ctx, postgresImage,
			postgres.WithDatabase("coinstore"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			postgres.BasicWaitStrategies(),
		)
		if server.err != nil {
			return
		}

		server.adminDSN, server.err = server.container.ConnectionString(
			ctx, "sslmode=disable",
		)
	})
	require.NoError(t, server.err, "postgres container unavailable")

	return server.adminDSN
}

// adminExec runs a single statement against the maintenance database.
func adminExec(ctx context.Context, adminDSN, stmt string) error {
	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, stmt)

	return err
}

// NewPostgresLocation creates an empty database inside the shared container
// and returns its DSN. The database is dropped when the test ends.
func NewPostgresLocation(t testing.TB) Location {
	t.Helper()

	adminDSN := postgresAdminDSN(t)
	name := "coinstore_test_" + deterministicTestID(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err := adminExec(ctx, adminDSN, fmt.Sprintf("CREATE DATABASE %s", name))
	require.NoError(t, err, "create test database")

	dsn, err := setDBNameInDSN(adminDSN, name)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(
			context.Background(), 30*time.Second,
		)
		defer cancel()

		stmt := fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)",
			name)
		if err := adminExec(ctx, adminDSN, stmt); err != nil {
			t.Logf("Unable to drop %s: %v", name, err)
		}
	})

	return Location{Engine: Postgres, DSN: dsn}
}
