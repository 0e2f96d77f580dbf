package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

// tradeKey is the idempotency key of one classified trade.
type tradeKey struct {
	signature string
	mint      string
}

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[tradeKey]*domain.ClassifiedTrade
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[tradeKey]*domain.ClassifiedTrade),
	}
}

// Insert adds a trade. Returns ErrDuplicateKey if (signature, mint) exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.ClassifiedTrade) error {
	if t == nil || t.Signature == "" || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := tradeKey{signature: t.Signature, mint: t.Mint}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[key] = &copy
	return nil
}

// GetByMint retrieves up to limit trades for a mint, newest first.
func (s *TradeStore) GetByMint(_ context.Context, mint string, limit int) ([]*domain.ClassifiedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClassifiedTrade
	for _, t := range s.data {
		if t.Mint == mint {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].BlockTimeMs > result[j].BlockTimeMs
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountByMint returns the number of recorded trades for a mint.
func (s *TradeStore) CountByMint(_ context.Context, mint string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.data {
		if t.Mint == mint {
			n++
		}
	}
	return n, nil
}

var _ storage.TradeStore = (*TradeStore)(nil)
