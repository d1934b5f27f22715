// Package testutil provides test helpers for a disposable PostgreSQL container
// and gRPC clients.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/dungeon/internal/config"
	"github.com/cory-johannsen/dungeon/internal/storage/postgres"
	"github.com/cory-johannsen/dungeon/migrations"
)

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "dungeon"
	pgPassword = "dungeon"
	pgDatabase = "dungeon_test"
)

// Postgres is a running throwaway database and a pool connected to it.
type Postgres struct {
	Pool   *postgres.Pool
	Config config.DatabaseConfig
}

// DSN returns the connection string for the container.
func (p *Postgres) DSN() string { return p.Config.DSN() }

// StartPostgres runs a PostgreSQL container for the life of t. Tests are
// skipped under -short.
//
// Precondition: Docker must be reachable.
// Postcondition: The pool has answered a ping; the container and pool are
// released by t.Cleanup.
func StartPostgres(t *testing.T) *Postgres {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in short mode")
	}
	ctx := context.Background()
	start := time.Now()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			},
			// The server restarts once after initdb, so the ready line appears twice.
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithDeadline(45 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting %s: %v", pgImage, err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	cfg, err := containerConfig(ctx, ctr)
	if err != nil {
		t.Fatal(err)
	}
	pool, err := postgres.NewPool(ctx, cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("connecting to %s: %v", pgImage, err)
	}
	t.Cleanup(pool.Close)

	t.Logf("postgres ready at %s:%d [%s]", cfg.Host, cfg.Port, time.Since(start))
	return &Postgres{Pool: pool, Config: cfg}
}

func containerConfig(ctx context.Context, ctr testcontainers.Container) (config.DatabaseConfig, error) {
	host, err := ctr.Host(ctx)
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	return config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            pgUser,
		Password:        pgPassword,
		Name:            pgDatabase,
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}, nil
}

// MigratedPool starts a container, applies the schema and returns its pgx pool.
func MigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pg := StartPostgres(t)
	if err := migrations.Up(pg.DSN()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return pg.Pool.DB()
}
