package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

func TestCandleStore_FoldsOHLC(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewCandleStore(conn)
	ctx := context.Background()
	ts := time.Now().UTC().Truncate(time.Minute)

	require.NoError(t, s.RecordTrade(ctx, "mint1", 2.0, 10, ts))
	require.NoError(t, s.RecordTrade(ctx, "mint1", 3.0, 5, ts.Add(10*time.Second)))
	require.NoError(t, s.RecordTrade(ctx, "mint1", 1.5, 8, ts.Add(30*time.Second)))

	candles, err := s.GetByMint(ctx, "mint1", 60, ts.Add(-time.Minute), ts.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, candles, 1)

	c := candles[0]
	assert.Equal(t, 2.0, c.Open)
	assert.Equal(t, 3.0, c.High)
	assert.Equal(t, 1.5, c.Low)
	assert.Equal(t, 1.5, c.Close)
	assert.Equal(t, 23.0, c.Volume)
	assert.Equal(t, int64(3), c.Trades)
	assert.Equal(t, ts.UnixMilli(), c.BucketStartMs)
}

func TestCandleStore_AllBucketWidthsServed(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewCandleStore(conn)
	ctx := context.Background()
	ts := time.Now().UTC()

	require.NoError(t, s.RecordTrade(ctx, "mint1", 2.0, 10, ts))

	for _, width := range domain.CandleBuckets {
		candles, err := s.GetByMint(ctx, "mint1", width, ts.Add(-24*time.Hour), ts.Add(time.Minute))
		require.NoError(t, err, "bucket width %d", width)
		assert.Len(t, candles, 1, "bucket width %d", width)
	}
}

func TestCandleStore_SeparateBuckets(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewCandleStore(conn)
	ctx := context.Background()
	ts := time.Now().UTC().Truncate(time.Hour)

	require.NoError(t, s.RecordTrade(ctx, "mint1", 2.0, 10, ts))
	require.NoError(t, s.RecordTrade(ctx, "mint1", 4.0, 10, ts.Add(3*time.Minute)))

	candles, err := s.GetByMint(ctx, "mint1", 60, ts.Add(-time.Minute), ts.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Less(t, candles[0].BucketStartMs, candles[1].BucketStartMs)
}

func TestCandleStore_RejectsNonPositivePrice(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewCandleStore(conn)

	err := s.RecordTrade(context.Background(), "mint1", 0, 10, time.Now())
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestCandleStore_RejectsUnsupportedWidth(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewCandleStore(conn)

	_, err := s.GetByMint(context.Background(), "mint1", 7, time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
