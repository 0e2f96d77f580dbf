package storage

import (
	"context"
	"time"

	"solana-token-indexer/internal/domain"
)

// TokenStore provides access to the per-mint metrics snapshot storage.
type TokenStore interface {
	// Upsert writes a metrics snapshot keyed by mint. Partial updates are
	// allowed: nil fields leave the stored values untouched.
	Upsert(ctx context.Context, m *domain.TokenMetrics) error

	// GetByMint retrieves the latest snapshot. Returns ErrNotFound if the
	// mint has never been observed.
	GetByMint(ctx context.Context, mint string) (*domain.TokenMetrics, error)

	// ListMints returns every tracked mint address.
	ListMints(ctx context.Context) ([]string, error)
}

// MetadataStore provides access to token display metadata storage.
type MetadataStore interface {
	// Upsert writes metadata keyed by mint. Empty fields leave the stored
	// values untouched.
	Upsert(ctx context.Context, m *domain.TokenMetadata) error

	// GetByMint retrieves metadata. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error)
}

// TradeStore provides access to classified trade storage.
type TradeStore interface {
	// Insert adds a trade. Returns ErrDuplicateKey if (signature, mint)
	// exists; reprocessing a transaction must not double-count it.
	Insert(ctx context.Context, t *domain.ClassifiedTrade) error

	// GetByMint retrieves up to limit trades for a mint, newest first.
	GetByMint(ctx context.Context, mint string, limit int) ([]*domain.ClassifiedTrade, error)

	// CountByMint returns the number of recorded trades for a mint.
	CountByMint(ctx context.Context, mint string) (int64, error)
}

// HolderStore provides access to latest-balance holder storage.
type HolderStore interface {
	// Record upserts the latest observed balance for (mint, owner).
	Record(ctx context.Context, h *domain.HolderBalance) error

	// TopByMint retrieves up to limit holders of a mint, largest balance
	// first, excluding zero balances.
	TopByMint(ctx context.Context, mint string, limit int) ([]*domain.HolderBalance, error)

	// CountByMint returns the number of holders with a positive balance.
	CountByMint(ctx context.Context, mint string) (int64, error)
}

// VolumeStore provides access to minute-resolution volume buckets.
type VolumeStore interface {
	// AddTrade accumulates quoteVolume into the minute bucket containing ts.
	AddTrade(ctx context.Context, mint string, quoteVolume float64, ts time.Time) error

	// Stats aggregates the rolling windows ending at now.
	Stats(ctx context.Context, mint string, now time.Time) (domain.VolumeWindows, error)

	// PruneBefore drops buckets older than cutoff and reports how many.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CandleStore provides access to OHLC candle storage.
type CandleStore interface {
	// RecordTrade folds one trade into every supported bucket width.
	RecordTrade(ctx context.Context, mint string, price, quoteVolume float64, ts time.Time) error

	// GetByMint retrieves candles of one bucket width within [from, to],
	// ordered by bucket start ASC.
	GetByMint(ctx context.Context, mint string, bucketSeconds int, from, to time.Time) ([]*domain.Candle, error)
}
