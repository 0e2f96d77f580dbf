package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert writes a metrics snapshot keyed by mint. NULL columns from a
// partial snapshot keep the previously stored values via COALESCE, so an
// evaluation that could not price a token never erases an earlier price.
func (s *TokenStore) Upsert(ctx context.Context, m *domain.TokenMetrics) error {
	if m == nil || m.Mint == "" {
		return storage.ErrInvalidInput
	}

	pools, err := marshalPools(m.Pools)
	if err != nil {
		return fmt.Errorf("marshal pools: %w", err)
	}

	query := `
		INSERT INTO tokens (
			mint, price, liquidity, supply, decimals, market_cap, pools,
			volume_5m, trades_5m, volume_1h, trades_1h,
			volume_6h, trades_6h, volume_24h, trades_24h,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now())
		ON CONFLICT (mint) DO UPDATE SET
			price      = COALESCE(EXCLUDED.price, tokens.price),
			liquidity  = COALESCE(EXCLUDED.liquidity, tokens.liquidity),
			supply     = COALESCE(EXCLUDED.supply, tokens.supply),
			decimals   = COALESCE(EXCLUDED.decimals, tokens.decimals),
			market_cap = COALESCE(EXCLUDED.market_cap, tokens.market_cap),
			pools      = COALESCE(EXCLUDED.pools, tokens.pools),
			volume_5m  = COALESCE(EXCLUDED.volume_5m, tokens.volume_5m),
			trades_5m  = COALESCE(EXCLUDED.trades_5m, tokens.trades_5m),
			volume_1h  = COALESCE(EXCLUDED.volume_1h, tokens.volume_1h),
			trades_1h  = COALESCE(EXCLUDED.trades_1h, tokens.trades_1h),
			volume_6h  = COALESCE(EXCLUDED.volume_6h, tokens.volume_6h),
			trades_6h  = COALESCE(EXCLUDED.trades_6h, tokens.trades_6h),
			volume_24h = COALESCE(EXCLUDED.volume_24h, tokens.volume_24h),
			trades_24h = COALESCE(EXCLUDED.trades_24h, tokens.trades_24h),
			updated_at = now()
	`

	_, err = s.pool.Exec(ctx, query,
		m.Mint,
		m.Price,
		m.Liquidity,
		m.Supply,
		m.Decimals,
		m.MarketCap,
		pools,
		m.Volume.Volume5m, m.Volume.Trades5m,
		m.Volume.Volume1h, m.Volume.Trades1h,
		m.Volume.Volume6h, m.Volume.Trades6h,
		m.Volume.Volume24h, m.Volume.Trades24h,
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// GetByMint retrieves the latest snapshot. Returns ErrNotFound if the mint
// has never been observed.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.TokenMetrics, error) {
	query := `
		SELECT mint, price, liquidity, supply, decimals, market_cap, pools,
		       volume_5m, trades_5m, volume_1h, trades_1h,
		       volume_6h, trades_6h, volume_24h, trades_24h
		FROM tokens
		WHERE mint = $1
	`

	var (
		m     domain.TokenMetrics
		pools []byte
	)
	err := s.pool.QueryRow(ctx, query, mint).Scan(
		&m.Mint,
		&m.Price,
		&m.Liquidity,
		&m.Supply,
		&m.Decimals,
		&m.MarketCap,
		&pools,
		&m.Volume.Volume5m, &m.Volume.Trades5m,
		&m.Volume.Volume1h, &m.Volume.Trades1h,
		&m.Volume.Volume6h, &m.Volume.Trades6h,
		&m.Volume.Volume24h, &m.Volume.Trades24h,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by mint: %w", err)
	}

	if len(pools) > 0 {
		if err := json.Unmarshal(pools, &m.Pools); err != nil {
			return nil, fmt.Errorf("unmarshal pools: %w", err)
		}
	}
	return &m, nil
}

// ListMints returns every tracked mint address.
func (s *TokenStore) ListMints(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT mint FROM tokens ORDER BY mint ASC`)
	if err != nil {
		return nil, fmt.Errorf("list mints: %w", err)
	}
	defer rows.Close()

	var mints []string
	for rows.Next() {
		var mint string
		if err := rows.Scan(&mint); err != nil {
			return nil, fmt.Errorf("scan mint: %w", err)
		}
		mints = append(mints, mint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mints: %w", err)
	}
	return mints, nil
}

// marshalPools serializes the venue quotes to JSONB. An absent quote list
// maps to NULL so COALESCE keeps the stored one.
func marshalPools(pools []domain.PoolQuote) ([]byte, error) {
	if pools == nil {
		return nil, nil
	}
	return json.Marshal(pools)
}
