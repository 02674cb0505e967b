//go:build integration

package testutils

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/omq/mealsync/internal/infrastructure/config"
	"github.com/omq/mealsync/internal/infrastructure/persistence/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	// registers the "pgx" database/sql driver used by the readiness probe
	_ "github.com/jackc/pgx/v5/stdlib"
)

// TestDatabase is a migrated PostgreSQL instance running in a container
type TestDatabase struct {
	Container testcontainers.Container
	Config    config.DatabaseConfig
	DSN       string
}

// DatabaseConfig holds test database configuration
type DatabaseConfig struct {
	Image    string
	Database string
	Username string
	Password string
}

// DefaultDatabaseConfig returns the default test database configuration
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Image:    "postgres:15-alpine",
		Database: "mealsync_test",
		Username: "test_user",
		Password: "test_password",
	}
}

// SetupTestDatabase starts postgres, applies the migrations and terminates
// the container when t finishes
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	cfg := DefaultDatabaseConfig()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        cfg.Image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       cfg.Database,
				"POSTGRES_USER":     cfg.Username,
				"POSTGRES_PASSWORD": cfg.Password,
			},
			WaitingFor: wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
				return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
					cfg.Username, cfg.Password, host, port.Port(), cfg.Database)
			}).WithStartupTimeout(60 * time.Second),
			Tmpfs: map[string]string{
				"/var/lib/postgresql/data": "rw",
			},
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	dbCfg := config.DatabaseConfig{
		Driver:          "postgres",
		Host:            host,
		Port:            port,
		Database:        cfg.Database,
		Username:        cfg.Username,
		Password:        cfg.Password,
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		LogLevel:        "silent",
	}
	dsn := dbCfg.DSN(host)

	require.NoError(t, migrations.Run(dsn, cfg.Database, zap.NewNop()), "Failed to run migrations")

	return &TestDatabase{Container: container, Config: dbCfg, DSN: dsn}
}
