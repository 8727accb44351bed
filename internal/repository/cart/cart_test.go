package cart

import (
	"context"
	"testing"
	"time"

	"storefront/internal/db/dbtest"
	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestPostgres_CreateAndFindActive(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	created, err := repo.Create(ctx, CreateCartInput{SessionKey: strPtr("sess-1"), Currency: "JPY", ExpiresAt: &exp})
	require.NoError(t, err)
	assert.Equal(t, domain.CartActive, created.Status)
	assert.Equal(t, "JPY", created.Currency)
	assert.Nil(t, created.UserID)

	found, err := repo.FindActive(ctx, domain.Identity{SessionKey: "sess-1"}, false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindActive(ctx, domain.Identity{SessionKey: "other"}, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_OneActiveCartPerSession(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	_, err := repo.Create(ctx, CreateCartInput{SessionKey: strPtr("dup"), Currency: "JPY"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CreateCartInput{SessionKey: strPtr("dup"), Currency: "JPY"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestPostgres_LinesLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)
	productID := dbtest.InsertProduct(ctx, t, pool, "mug", 1000, "JPY", 5)

	cart, err := repo.Create(ctx, CreateCartInput{SessionKey: strPtr("s"), Currency: "JPY"})
	require.NoError(t, err)

	line, err := repo.InsertLine(ctx, NewLine{
		CartID: cart.ID, ProductID: productID, ProductTitle: "Mug", ProductSlug: "mug",
		Quantity: 2, UnitPrice: 1000, Currency: "JPY",
	})
	require.NoError(t, err)

	got, err := repo.LockLine(ctx, cart.ID, productID)
	require.NoError(t, err)
	assert.Equal(t, line.ID, got.ID)

	updated, err := repo.UpdateLineQuantity(ctx, line.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)
	assert.Equal(t, int64(1000), updated.UnitPrice)

	n, err := repo.DeleteLinesNotInCurrency(ctx, cart.ID, "JPY")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.DeleteLine(ctx, line.ID))
	lines, err := repo.Lines(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.ErrorIs(t, repo.DeleteLine(ctx, line.ID), domain.ErrNotFound)
}

func TestPostgres_MergeCandidateAndOwner(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)
	userID := dbtest.InsertCustomer(ctx, t, pool, "merge@example.com")

	anon, err := repo.Create(ctx, CreateCartInput{SessionKey: strPtr("old-key"), Currency: "JPY"})
	require.NoError(t, err)

	got, err := repo.LockMergeCandidate(ctx, "", []string{"missing", "old-key"})
	require.NoError(t, err)
	assert.Equal(t, anon.ID, got.ID)

	require.NoError(t, repo.SetOwner(ctx, anon.ID, userID))
	owned, err := repo.FindActive(ctx, domain.Identity{UserID: userID}, false)
	require.NoError(t, err)
	assert.Equal(t, anon.ID, owned.ID)
	assert.Nil(t, owned.SessionKey)

	_, err = repo.LockMergeCandidate(ctx, anon.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
