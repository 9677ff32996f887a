package testhelpers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/config"
	"github.com/DanielPopoola/ficmart-billing/internal/infrastructure/persistence/postgres"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "billing"
	pgPassword = "billing"
	pgDatabase = "billing_test"
)

// billingTables is every table the migrations create, truncated between tests.
var billingTables = []string{"purchases", "command_locks"}

type TestDatabase struct {
	Container testcontainers.Container
	DB        *postgres.DB
}

// SetupTestDatabase starts a PostgreSQL container, applies every up
// migration in db/migrations and returns a connected pool. The container is
// terminated when t finishes.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			},
			// postgres restarts once after initdb; the second line is the real one.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)

	db, err := postgres.Connect(ctx, containerConfig(ctx, t, container), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	td := &TestDatabase{Container: container, DB: db}
	t.Cleanup(func() { td.Cleanup(t) })

	require.NoError(t, applyMigrations(ctx, db, migrationsDir()))
	return td
}

func containerConfig(ctx context.Context, t *testing.T, c testcontainers.Container) *config.DatabaseConfig {
	t.Helper()
	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return &config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            pgUser,
		Password:        pgPassword,
		Name:            pgDatabase,
		SSLMode:         "disable",
		MaxOpenConns:    16,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// Cleanup is safe to call more than once.
func (td *TestDatabase) Cleanup(t *testing.T) {
	if td.Container == nil {
		return
	}
	td.DB.Close()
	require.NoError(t, td.Container.Terminate(context.Background()))
	td.Container = nil
}

func (td *TestDatabase) CleanTables(t *testing.T) {
	_, err := td.DB.Pool.Exec(context.Background(), "TRUNCATE TABLE "+strings.Join(billingTables, ", "))
	require.NoError(t, err)
}

func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "db", "migrations")
}

// applyMigrations runs the *.up.sql files in name order.
func applyMigrations(ctx context.Context, db *postgres.DB, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("list migrations in %s: %w", dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %s", dir)
	}
	slices.Sort(files)

	for _, f := range files {
		sql, err := os.ReadFile(f) //nolint:gosec // fixed directory inside the repo
		if err != nil {
			return fmt.Errorf("read migration %s: %w", filepath.Base(f), err)
		}
		if _, err := db.Pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}
