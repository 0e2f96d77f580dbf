package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

func TestTokenStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewTokenStore(pool)
	ctx := context.Background()

	m := &domain.TokenMetrics{
		Mint:      "mint1",
		Price:     ptr(2.5),
		Liquidity: ptr(400.0),
		Supply:    ptr(1_000_000.0),
		Decimals:  ptr(6),
		MarketCap: ptr(2_500_000.0),
		Pools: []domain.PoolQuote{
			{Address: "pool1", TokenA: "mint1", TokenB: "ref", Price: ptr(2.5), Liquidity: 400, Kind: domain.PoolKindAMM},
		},
	}
	require.NoError(t, s.Upsert(ctx, m))

	got, err := s.GetByMint(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, 2.5, *got.Price)
	assert.Equal(t, 6, *got.Decimals)
	require.Len(t, got.Pools, 1)
	assert.Equal(t, "pool1", got.Pools[0].Address)
	assert.Equal(t, domain.PoolKindAMM, got.Pools[0].Kind)
}

func TestTokenStore_PartialUpsertPreservesColumns(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewTokenStore(pool)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, &domain.TokenMetrics{
		Mint: "mint1", Price: ptr(2.0), Supply: ptr(500.0), Decimals: ptr(9),
	}))
	// A later evaluation that only derived a price must not erase supply
	// or decimals.
	require.NoError(t, s.Upsert(ctx, &domain.TokenMetrics{
		Mint: "mint1", Price: ptr(3.0),
	}))

	got, err := s.GetByMint(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, *got.Price)
	assert.Equal(t, 500.0, *got.Supply)
	assert.Equal(t, 9, *got.Decimals)
}

func TestTokenStore_VolumeWindowsRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewTokenStore(pool)
	ctx := context.Background()

	m := &domain.TokenMetrics{Mint: "mint1"}
	m.Volume.Volume5m = ptr(10.0)
	m.Volume.Trades5m = ptr(int64(2))
	m.Volume.Volume24h = ptr(70.0)
	m.Volume.Trades24h = ptr(int64(5))
	require.NoError(t, s.Upsert(ctx, m))

	got, err := s.GetByMint(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, *got.Volume.Volume5m)
	assert.Equal(t, int64(5), *got.Volume.Trades24h)
	assert.Nil(t, got.Volume.Volume1h)
}

func TestTokenStore_GetByMintNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewTokenStore(pool)

	_, err := s.GetByMint(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_ListMints(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewTokenStore(pool)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, &domain.TokenMetrics{Mint: "b"}))
	require.NoError(t, s.Upsert(ctx, &domain.TokenMetrics{Mint: "a"}))

	mints, err := s.ListMints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, mints)
}

func TestTokenStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewTokenStore(pool)

	err := s.Upsert(context.Background(), &domain.TokenMetrics{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
