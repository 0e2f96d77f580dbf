package postgres

import (
	"context"
	"fmt"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

// HolderStore implements storage.HolderStore using PostgreSQL.
type HolderStore struct {
	pool *Pool
}

// NewHolderStore creates a new HolderStore.
func NewHolderStore(pool *Pool) *HolderStore {
	return &HolderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HolderStore = (*HolderStore)(nil)

// Record upserts the latest observed balance for (mint, owner). Zero
// balances are kept as rows so a drained holder stays visible in the
// table, but they are excluded from TopByMint and CountByMint.
func (s *HolderStore) Record(ctx context.Context, h *domain.HolderBalance) error {
	if h == nil || h.Mint == "" || h.Owner == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO holders (mint, owner, balance, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (mint, owner) DO UPDATE SET
			balance    = EXCLUDED.balance,
			updated_at = now()
	`

	if _, err := s.pool.Exec(ctx, query, h.Mint, h.Owner, h.Balance); err != nil {
		return fmt.Errorf("record holder: %w", err)
	}
	return nil
}

// TopByMint retrieves up to limit holders of a mint, largest balance first,
// excluding zero balances.
func (s *HolderStore) TopByMint(ctx context.Context, mint string, limit int) ([]*domain.HolderBalance, error) {
	query := `
		SELECT mint, owner, balance
		FROM holders
		WHERE mint = $1 AND balance > 0
		ORDER BY balance DESC, owner ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, mint, limit)
	if err != nil {
		return nil, fmt.Errorf("query top holders: %w", err)
	}
	defer rows.Close()

	var holders []*domain.HolderBalance
	for rows.Next() {
		var h domain.HolderBalance
		if err := rows.Scan(&h.Mint, &h.Owner, &h.Balance); err != nil {
			return nil, fmt.Errorf("scan holder row: %w", err)
		}
		holders = append(holders, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder rows: %w", err)
	}
	return holders, nil
}

// CountByMint returns the number of holders with a positive balance.
func (s *HolderStore) CountByMint(ctx context.Context, mint string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM holders WHERE mint = $1 AND balance > 0`, mint,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count holders by mint: %w", err)
	}
	return count, nil
}
