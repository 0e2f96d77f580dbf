package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse. Trades are
// stored as raw ticks; candles of any supported width are aggregated at
// query time, so one insert serves every bucket width.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// RecordTrade stores one priced trade tick.
func (s *CandleStore) RecordTrade(ctx context.Context, mint string, price, quoteVolume float64, ts time.Time) error {
	if mint == "" || price <= 0 {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO trade_ticks (mint, ts, price, volume) VALUES (?, ?, ?, ?)`
	if err := s.conn.Exec(ctx, query, mint, ts, price, quoteVolume); err != nil {
		return fmt.Errorf("insert trade tick: %w", err)
	}
	return nil
}

// GetByMint retrieves candles of one bucket width within [from, to],
// ordered by bucket start ASC.
func (s *CandleStore) GetByMint(ctx context.Context, mint string, bucketSeconds int, from, to time.Time) ([]*domain.Candle, error) {
	if !supportedBucket(bucketSeconds) {
		return nil, storage.ErrInvalidInput
	}

	// The interval is validated against the fixed bucket list above, so
	// interpolating it into the query text is safe.
	query := fmt.Sprintf(`
		SELECT
			toStartOfInterval(ts, INTERVAL %d SECOND) AS bucket,
			argMin(price, ts),
			max(price),
			min(price),
			argMax(price, ts),
			sum(volume),
			count()
		FROM trade_ticks
		WHERE mint = ? AND ts >= ? AND ts <= ?
		GROUP BY bucket
		ORDER BY bucket ASC
	`, bucketSeconds)

	rows, err := s.conn.Query(ctx, query, mint, from, to)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	var candles []*domain.Candle
	for rows.Next() {
		var (
			bucket time.Time
			c      domain.Candle
			trades uint64
		)
		err := rows.Scan(&bucket, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &trades)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		c.Mint = mint
		c.BucketSeconds = bucketSeconds
		c.BucketStartMs = bucket.UnixMilli()
		c.Trades = int64(trades)
		candles = append(candles, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}
	return candles, nil
}

func supportedBucket(bucketSeconds int) bool {
	for _, width := range domain.CandleBuckets {
		if width == bucketSeconds {
			return true
		}
	}
	return false
}
