package postgres

import (
	"context"
	"fmt"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a classified trade. Returns ErrDuplicateKey when
// (signature, mint) already exists; reprocessing a transaction must not
// double-count it.
func (s *TradeStore) Insert(ctx context.Context, t *domain.ClassifiedTrade) error {
	if t == nil || t.Signature == "" || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (
			signature, mint, side, base_amount, price, quote_value, trader, block_time_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		t.Signature,
		t.Mint,
		t.Side,
		t.BaseAmount,
		t.Price,
		t.QuoteValue,
		t.Trader,
		t.BlockTimeMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByMint retrieves up to limit trades for a mint, newest first.
func (s *TradeStore) GetByMint(ctx context.Context, mint string, limit int) ([]*domain.ClassifiedTrade, error) {
	query := `
		SELECT signature, mint, side, base_amount, price, quote_value, trader, block_time_ms
		FROM trades
		WHERE mint = $1
		ORDER BY block_time_ms DESC, signature ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, mint, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades by mint: %w", err)
	}
	defer rows.Close()

	var trades []*domain.ClassifiedTrade
	for rows.Next() {
		var t domain.ClassifiedTrade
		err := rows.Scan(
			&t.Signature,
			&t.Mint,
			&t.Side,
			&t.BaseAmount,
			&t.Price,
			&t.QuoteValue,
			&t.Trader,
			&t.BlockTimeMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}

// CountByMint returns the number of recorded trades for a mint.
func (s *TradeStore) CountByMint(ctx context.Context, mint string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM trades WHERE mint = $1`, mint).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count trades by mint: %w", err)
	}
	return count, nil
}
