package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

func TestHolderStore_RecordAndTop(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewHolderStore(pool)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, &domain.HolderBalance{Mint: "mint1", Owner: "alice", Balance: 50}))
	require.NoError(t, s.Record(ctx, &domain.HolderBalance{Mint: "mint1", Owner: "bob", Balance: 100}))
	require.NoError(t, s.Record(ctx, &domain.HolderBalance{Mint: "mint1", Owner: "carol", Balance: 0}))

	top, err := s.TopByMint(ctx, "mint1", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "bob", top[0].Owner)
	assert.Equal(t, "alice", top[1].Owner)
}

func TestHolderStore_UpsertReplacesBalance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewHolderStore(pool)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, &domain.HolderBalance{Mint: "mint1", Owner: "alice", Balance: 50}))
	// Alice sells everything; she no longer counts as a holder.
	require.NoError(t, s.Record(ctx, &domain.HolderBalance{Mint: "mint1", Owner: "alice", Balance: 0}))

	count, err := s.CountByMint(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestHolderStore_MintIsolation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewHolderStore(pool)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, &domain.HolderBalance{Mint: "mint1", Owner: "alice", Balance: 50}))
	require.NoError(t, s.Record(ctx, &domain.HolderBalance{Mint: "mint2", Owner: "alice", Balance: 70}))

	count, err := s.CountByMint(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestHolderStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewHolderStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, s.Record(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, s.Record(ctx, &domain.HolderBalance{Mint: "mint1"}), storage.ErrInvalidInput)
}
