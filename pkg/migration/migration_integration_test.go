//go:build integration

package migration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"rephrase-server/migrations"
	"rephrase-server/pkg/database"
	"rephrase-server/pkg/migration"
)

func TestMigrator_UpDownUp(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("migration_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgContainer) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := database.NewPool(ctx, database.PoolConfig{DSN: dsn, ConnectRetries: 3, RetryDelay: time.Second}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	m := migration.NewMigrator(migration.Config{MigrationsFS: migrations.FS}, pool, zap.NewNop())

	tableExists := func() bool {
		var exists bool
		require.NoError(t, pool.QueryRow(ctx, `SELECT to_regclass('public.rephrase_history') IS NOT NULL`).Scan(&exists))
		return exists
	}

	require.NoError(t, m.Up())
	require.True(t, tableExists())

	// повторный Up без изменений
	require.NoError(t, m.Up())

	require.NoError(t, m.Down())
	require.False(t, tableExists())

	require.NoError(t, m.Up())
	require.True(t, tableExists())
}
