package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

// setupTestDB starts a PostgreSQL container and applies the embedded schema.
// Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	require.NoError(t, pool.Migrate(ctx), "failed to apply migrations")
	// Applying twice must be harmless.
	require.NoError(t, pool.Migrate(ctx), "migrations are not idempotent")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// createTestStrategy inserts a strategy so trades can reference it.
func createTestStrategy(t *testing.T, ctx context.Context, pool *Pool, name string) *domain.Strategy {
	t.Helper()

	st, err := NewStrategyStore(pool).Create(ctx, &domain.Strategy{
		OwnerID:  "owner-1",
		Name:     name,
		Symbol:   "BTCUSDT",
		Interval: "1h",
	})
	require.NoError(t, err, "failed to create strategy")
	return st
}

func ptr[T any](v T) *T {
	return &v
}
