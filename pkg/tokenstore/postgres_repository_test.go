package tokenstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("../../migrations", "tasknest_db.sql")),
		postgres.WithDatabase("tasknest_db"),
		postgres.WithUsername("tasknest"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)

	connString, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return pool
}

func insertTestAccount(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		"INSERT INTO accounts (id, email) VALUES ($1, $2)",
		id, id.String()+"@example.com")
	require.NoError(t, err)
	return id
}

func TestPostgresRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool := setupTestDatabase(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()
	accountID := insertTestAccount(t, pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	token := &Token{
		ID:        uuid.New(),
		AccountID: accountID,
		Value:     "integration-token",
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	}

	t.Run("InsertAndGet", func(t *testing.T) {
		require.NoError(t, repo.Insert(ctx, token))

		stored, err := repo.GetByValue(ctx, token.Value)
		require.NoError(t, err)
		assert.Equal(t, token.ID, stored.ID)
		assert.Equal(t, accountID, stored.AccountID)
		assert.Nil(t, stored.UsedAt)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.GetByValue(ctx, "missing")
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("ConsumeIfUnused", func(t *testing.T) {
		won, err := repo.ConsumeIfUnused(ctx, token.Value, now.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, won)

		won, err = repo.ConsumeIfUnused(ctx, token.Value, now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.False(t, won)

		stored, err := repo.GetByValue(ctx, token.Value)
		require.NoError(t, err)
		require.NotNil(t, stored.UsedAt)
		assert.True(t, now.Add(time.Hour).Equal(*stored.UsedAt))
	})

	t.Run("ConcurrentConsumeSingleWinner", func(t *testing.T) {
		fresh := &Token{
			ID:        uuid.New(),
			AccountID: accountID,
			Value:     "contended-token",
			IssuedAt:  now,
			ExpiresAt: now.Add(24 * time.Hour),
		}
		require.NoError(t, repo.Insert(ctx, fresh))

		const workers = 10
		wins := make([]bool, workers)
		errs := make([]error, workers)

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				won, err := repo.ConsumeIfUnused(ctx, fresh.Value, time.Now().UTC())
				errs[i] = err
				wins[i] = won
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			require.NoError(t, err, "worker %d", i)
		}

		winners := 0
		for _, won := range wins {
			if won {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
	})
}
