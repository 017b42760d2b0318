package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestToken(accountID uuid.UUID) *Token {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Token{
		ID:        uuid.New(),
		AccountID: accountID,
		Value:     "tok-" + uuid.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

func TestFileRepository_InsertAndGet(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	token := newTestToken(uuid.New())
	require.NoError(t, repo.Insert(ctx, token))

	t.Run("Found", func(t *testing.T) {
		stored, err := repo.GetByValue(ctx, token.Value)
		require.NoError(t, err)
		assert.Equal(t, token.ID, stored.ID)
		assert.Equal(t, token.AccountID, stored.AccountID)
		assert.True(t, token.ExpiresAt.Equal(stored.ExpiresAt))
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetByValue(ctx, "missing")
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("ReturnedCopyIsDetached", func(t *testing.T) {
		stored, err := repo.GetByValue(ctx, token.Value)
		require.NoError(t, err)
		stored.Value = "mutated"

		again, err := repo.GetByValue(ctx, token.Value)
		require.NoError(t, err)
		assert.Equal(t, token.Value, again.Value)
	})
}

func TestFileRepository_ConsumeIfUnused(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	token := newTestToken(uuid.New())
	require.NoError(t, repo.Insert(ctx, token))
	usedAt := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)

	t.Run("FirstConsumeWins", func(t *testing.T) {
		won, err := repo.ConsumeIfUnused(ctx, token.Value, usedAt)
		require.NoError(t, err)
		assert.True(t, won)

		stored, err := repo.GetByValue(ctx, token.Value)
		require.NoError(t, err)
		require.NotNil(t, stored.UsedAt)
		assert.True(t, usedAt.Equal(*stored.UsedAt))
	})

	t.Run("SecondConsumeLoses", func(t *testing.T) {
		won, err := repo.ConsumeIfUnused(ctx, token.Value, usedAt.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, won)

		// The original consumption timestamp is untouched.
		stored, err := repo.GetByValue(ctx, token.Value)
		require.NoError(t, err)
		require.NotNil(t, stored.UsedAt)
		assert.True(t, usedAt.Equal(*stored.UsedAt))
	})

	t.Run("MissingToken", func(t *testing.T) {
		_, err := repo.ConsumeIfUnused(ctx, "missing", usedAt)
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})
}

func TestFileRepository_PersistsAcrossReload(t *testing.T) {
	dataDir := t.TempDir()
	ctx := context.Background()

	repo, err := NewFileRepository(dataDir)
	require.NoError(t, err)

	token := newTestToken(uuid.New())
	require.NoError(t, repo.Insert(ctx, token))
	_, err = repo.ConsumeIfUnused(ctx, token.Value, token.IssuedAt.Add(time.Hour))
	require.NoError(t, err)

	reloaded, err := NewFileRepository(dataDir)
	require.NoError(t, err)

	stored, err := reloaded.GetByValue(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, token.ID, stored.ID)
	require.NotNil(t, stored.UsedAt)
}
