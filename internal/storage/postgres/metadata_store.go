package postgres

import (
	"context"
	"fmt"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

// MetadataStore implements storage.MetadataStore using PostgreSQL.
type MetadataStore struct {
	pool *Pool
}

// NewMetadataStore creates a new MetadataStore.
func NewMetadataStore(pool *Pool) *MetadataStore {
	return &MetadataStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MetadataStore = (*MetadataStore)(nil)

// Upsert writes metadata keyed by mint. Empty incoming fields keep the
// stored values: on-chain and URI enrichment arrive at different times and
// must not clobber each other.
func (s *MetadataStore) Upsert(ctx context.Context, m *domain.TokenMetadata) error {
	if m == nil || m.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_metadata (mint, name, symbol, uri, image, description, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (mint) DO UPDATE SET
			name        = COALESCE(NULLIF(EXCLUDED.name, ''), token_metadata.name),
			symbol      = COALESCE(NULLIF(EXCLUDED.symbol, ''), token_metadata.symbol),
			uri         = COALESCE(NULLIF(EXCLUDED.uri, ''), token_metadata.uri),
			image       = COALESCE(NULLIF(EXCLUDED.image, ''), token_metadata.image),
			description = COALESCE(NULLIF(EXCLUDED.description, ''), token_metadata.description),
			updated_at  = now()
	`

	_, err := s.pool.Exec(ctx, query,
		m.Mint, m.Name, m.Symbol, m.URI, m.Image, m.Description,
	)
	if err != nil {
		return fmt.Errorf("upsert token metadata: %w", err)
	}
	return nil
}

// GetByMint retrieves metadata. Returns ErrNotFound if not exists.
func (s *MetadataStore) GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	query := `
		SELECT mint, name, symbol, uri, image, description
		FROM token_metadata
		WHERE mint = $1
	`

	var m domain.TokenMetadata
	err := s.pool.QueryRow(ctx, query, mint).Scan(
		&m.Mint, &m.Name, &m.Symbol, &m.URI, &m.Image, &m.Description,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token metadata by mint: %w", err)
	}
	return &m, nil
}
