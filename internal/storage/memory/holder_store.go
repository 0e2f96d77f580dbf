package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

// holderKey identifies one owner's position in one mint.
type holderKey struct {
	mint  string
	owner string
}

// HolderStore is an in-memory implementation of storage.HolderStore.
type HolderStore struct {
	mu   sync.RWMutex
	data map[holderKey]float64
}

// NewHolderStore creates a new in-memory holder store.
func NewHolderStore() *HolderStore {
	return &HolderStore{
		data: make(map[holderKey]float64),
	}
}

// Record upserts the latest observed balance for (mint, owner).
func (s *HolderStore) Record(_ context.Context, h *domain.HolderBalance) error {
	if h == nil || h.Mint == "" || h.Owner == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[holderKey{mint: h.Mint, owner: h.Owner}] = h.Balance
	return nil
}

// TopByMint retrieves up to limit holders of a mint, largest balance first,
// excluding zero balances.
func (s *HolderStore) TopByMint(_ context.Context, mint string, limit int) ([]*domain.HolderBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HolderBalance
	for key, bal := range s.data {
		if key.mint == mint && bal > 0 {
			result = append(result, &domain.HolderBalance{
				Mint:    key.mint,
				Owner:   key.owner,
				Balance: bal,
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Balance != result[j].Balance {
			return result[i].Balance > result[j].Balance
		}
		return result[i].Owner < result[j].Owner
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountByMint returns the number of holders with a positive balance.
func (s *HolderStore) CountByMint(_ context.Context, mint string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for key, bal := range s.data {
		if key.mint == mint && bal > 0 {
			n++
		}
	}
	return n, nil
}

var _ storage.HolderStore = (*HolderStore)(nil)
