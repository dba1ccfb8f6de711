package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	coredatabase "github.com/m3rciful/seatwatch/core/database"
	"github.com/m3rciful/seatwatch/internal/storage"
	"github.com/m3rciful/seatwatch/internal/storage/storagetest"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("seatwatch"),
		tcpostgres.WithUsername("seatwatch"),
		tcpostgres.WithPassword("seatwatch"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, coredatabase.Migrate(dsn, "../../../migrations"))
	return dsn
}

func TestStore(t *testing.T) {
	dsn := startPostgres(t)
	storagetest.Run(t, func(t *testing.T) storage.Store {
		db, err := coredatabase.ConnectDSN(context.Background(), dsn, 4)
		require.NoError(t, err)
		_, err = db.Exec(`TRUNCATE subscription_states, search_states, subscriptions RESTART IDENTITY`)
		require.NoError(t, err)
		s := New(db)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
