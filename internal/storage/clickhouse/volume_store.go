package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

// VolumeStore implements storage.VolumeStore using ClickHouse. Each trade
// becomes one row in a SummingMergeTree keyed by (mint, minute bucket);
// reads aggregate with sum() so unmerged parts never undercount.
type VolumeStore struct {
	conn *Conn
}

// NewVolumeStore creates a new VolumeStore.
func NewVolumeStore(conn *Conn) *VolumeStore {
	return &VolumeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.VolumeStore = (*VolumeStore)(nil)

// AddTrade accumulates quoteVolume into the minute bucket containing ts.
func (s *VolumeStore) AddTrade(ctx context.Context, mint string, quoteVolume float64, ts time.Time) error {
	if mint == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO volume_buckets (mint, bucket_start, volume, trades) VALUES (?, ?, ?, ?)`
	if err := s.conn.Exec(ctx, query, mint, ts.Truncate(time.Minute), quoteVolume, uint64(1)); err != nil {
		return fmt.Errorf("insert volume bucket: %w", err)
	}
	return nil
}

// Stats aggregates the rolling windows ending at now. A window with no
// trades keeps nil fields; callers treat that as "unknown", not zero.
func (s *VolumeStore) Stats(ctx context.Context, mint string, now time.Time) (domain.VolumeWindows, error) {
	query := `
		SELECT
			sumIf(volume, bucket_start > ?), sumIf(trades, bucket_start > ?),
			sumIf(volume, bucket_start > ?), sumIf(trades, bucket_start > ?),
			sumIf(volume, bucket_start > ?), sumIf(trades, bucket_start > ?),
			sum(volume), sum(trades)
		FROM volume_buckets
		WHERE mint = ? AND bucket_start > ? AND bucket_start <= ?
	`

	cut5m := now.Add(-5 * time.Minute)
	cut1h := now.Add(-time.Hour)
	cut6h := now.Add(-6 * time.Hour)
	cut24h := now.Add(-24 * time.Hour)

	var (
		vol5m, vol1h, vol6h, vol24h        float64
		trades5m, trades1h, trades6h, t24h uint64
	)
	err := s.conn.QueryRow(ctx, query,
		cut5m, cut5m, cut1h, cut1h, cut6h, cut6h,
		mint, cut24h, now,
	).Scan(
		&vol5m, &trades5m,
		&vol1h, &trades1h,
		&vol6h, &trades6h,
		&vol24h, &t24h,
	)
	if err != nil {
		return domain.VolumeWindows{}, fmt.Errorf("query volume stats: %w", err)
	}

	var w domain.VolumeWindows
	fill := func(volume **float64, trades **int64, v float64, n uint64) {
		if n == 0 {
			return
		}
		count := int64(n)
		*volume = &v
		*trades = &count
	}
	fill(&w.Volume5m, &w.Trades5m, vol5m, trades5m)
	fill(&w.Volume1h, &w.Trades1h, vol1h, trades1h)
	fill(&w.Volume6h, &w.Trades6h, vol6h, trades6h)
	fill(&w.Volume24h, &w.Trades24h, vol24h, t24h)
	return w, nil
}

// PruneBefore drops buckets older than cutoff and reports how many.
// Deletion is a ClickHouse mutation and completes asynchronously.
func (s *VolumeStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT uniqExact(mint, bucket_start) FROM volume_buckets WHERE bucket_start < ?`, cutoff,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count prunable buckets: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.conn.Exec(ctx, `ALTER TABLE volume_buckets DELETE WHERE bucket_start < ?`, cutoff); err != nil {
		return 0, fmt.Errorf("prune volume buckets: %w", err)
	}
	return int64(count), nil
}
