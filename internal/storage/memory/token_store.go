// Package memory provides in-memory storage implementations, used in tests
// and for running the indexer without external databases.
package memory

import (
	"context"
	"sync"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenMetrics // keyed by mint
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.TokenMetrics),
	}
}

// Upsert writes a metrics snapshot keyed by mint. Nil fields leave the
// stored values untouched.
func (s *TokenStore) Upsert(_ context.Context, m *domain.TokenMetrics) error {
	if m == nil || m.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[m.Mint]
	if !exists {
		copy := cloneMetrics(m)
		s.data[m.Mint] = copy
		return nil
	}

	merged := cloneMetrics(existing)
	applyMetrics(merged, m)
	s.data[m.Mint] = merged
	return nil
}

// GetByMint retrieves the latest snapshot. Returns ErrNotFound if the mint
// has never been observed.
func (s *TokenStore) GetByMint(_ context.Context, mint string) (*domain.TokenMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneMetrics(m), nil
}

// ListMints returns every tracked mint address.
func (s *TokenStore) ListMints(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mints := make([]string, 0, len(s.data))
	for mint := range s.data {
		mints = append(mints, mint)
	}
	return mints, nil
}

// applyMetrics overlays non-nil fields of src onto dst.
func applyMetrics(dst, src *domain.TokenMetrics) {
	if src.Price != nil {
		dst.Price = clonePtr(src.Price)
	}
	if src.Liquidity != nil {
		dst.Liquidity = clonePtr(src.Liquidity)
	}
	if src.Supply != nil {
		dst.Supply = clonePtr(src.Supply)
	}
	if src.Decimals != nil {
		dst.Decimals = clonePtr(src.Decimals)
	}
	if src.MarketCap != nil {
		dst.MarketCap = clonePtr(src.MarketCap)
	}
	if src.Pools != nil {
		dst.Pools = append([]domain.PoolQuote(nil), src.Pools...)
	}
	applyWindows(&dst.Volume, &src.Volume)
}

func applyWindows(dst, src *domain.VolumeWindows) {
	if src.Volume5m != nil {
		dst.Volume5m = clonePtr(src.Volume5m)
	}
	if src.Trades5m != nil {
		dst.Trades5m = clonePtr(src.Trades5m)
	}
	if src.Volume1h != nil {
		dst.Volume1h = clonePtr(src.Volume1h)
	}
	if src.Trades1h != nil {
		dst.Trades1h = clonePtr(src.Trades1h)
	}
	if src.Volume6h != nil {
		dst.Volume6h = clonePtr(src.Volume6h)
	}
	if src.Trades6h != nil {
		dst.Trades6h = clonePtr(src.Trades6h)
	}
	if src.Volume24h != nil {
		dst.Volume24h = clonePtr(src.Volume24h)
	}
	if src.Trades24h != nil {
		dst.Trades24h = clonePtr(src.Trades24h)
	}
}

func cloneMetrics(m *domain.TokenMetrics) *domain.TokenMetrics {
	copy := &domain.TokenMetrics{Mint: m.Mint}
	applyMetrics(copy, m)
	return copy
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var _ storage.TokenStore = (*TokenStore)(nil)
