package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"multichain-distributor/internal/storage"
)

func TestReserveStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewReserveStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertReserve(ctx, "ethereum", 1.5, 1000))
	require.NoError(t, s.UpsertReserve(ctx, "ethereum", 2.25, 2000))

	r, err := s.GetReserve(ctx, "ethereum")
	require.NoError(t, err)
	require.Equal(t, "ethereum", r.Network)
	require.InDelta(t, 3.75, r.Amount, 1e-9, "reserve must accumulate")
	require.Equal(t, int64(2000), r.LastAttemptAt)
}

func TestReserveStore_NegativeDelta(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewReserveStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertReserve(ctx, "bitcoin", 10, 1000))
	require.NoError(t, s.UpsertReserve(ctx, "bitcoin", -4, 2000))

	r, err := s.GetReserve(ctx, "bitcoin")
	require.NoError(t, err)
	require.InDelta(t, 6.0, r.Amount, 1e-9)
}

func TestReserveStore_GetMissing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewReserveStore(pool)

	_, err := s.GetReserve(context.Background(), "unknown")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReserveStore_ListOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewReserveStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertReserve(ctx, "stellar", 1, 1000))
	require.NoError(t, s.UpsertReserve(ctx, "bitcoin", 2, 1000))
	require.NoError(t, s.UpsertReserve(ctx, "polkadot", 3, 1000))

	reserves, err := s.ListReserves(ctx)
	require.NoError(t, err)
	require.Len(t, reserves, 3)
	require.Equal(t, "bitcoin", reserves[0].Network)
	require.Equal(t, "polkadot", reserves[1].Network)
	require.Equal(t, "stellar", reserves[2].Network)
}

func TestReserveStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewReserveStore(pool)

	err := s.UpsertReserve(context.Background(), "", 1, 1000)
	require.ErrorIs(t, err, storage.ErrInvalidInput)
}
