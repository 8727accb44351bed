package session

import (
	"context"
	"testing"
	"time"

	"storefront/internal/db/dbtest"
	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(ctx, t)
	repo := NewPostgres(pool)
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, repo.Create(ctx, Session{Key: "k1", ExpiresAt: now.Add(time.Hour)}))
	assert.ErrorIs(t, repo.Create(ctx, Session{Key: "k1", ExpiresAt: now.Add(time.Hour)}), domain.ErrAlreadyExists)

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Empty(t, got.CartID)

	var cartID string
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO carts (session_key, currency) VALUES ('k1', 'JPY') RETURNING id::text`).Scan(&cartID))
	require.NoError(t, repo.SetCart(ctx, "k1", cartID))
	require.NoError(t, repo.Touch(ctx, "k1", now.Add(2*time.Hour)))

	got, err = repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, cartID, got.CartID)
	assert.True(t, got.ExpiresAt.Equal(now.Add(2*time.Hour)))

	assert.ErrorIs(t, repo.Touch(ctx, "missing", now), domain.ErrNotFound)
	assert.ErrorIs(t, repo.SetCart(ctx, "missing", cartID), domain.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "k1"))
	assert.ErrorIs(t, repo.Delete(ctx, "k1"), domain.ErrNotFound)
}

func TestPostgres_DeleteExpiredSessions(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(ctx, t)
	repo := NewPostgres(pool)
	now := time.Now()

	require.NoError(t, repo.Create(ctx, Session{Key: "old", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.Create(ctx, Session{Key: "live", ExpiresAt: now.Add(time.Hour)}))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = repo.Get(ctx, "live")
	assert.NoError(t, err)
}
