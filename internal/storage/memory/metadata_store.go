package memory

import (
	"context"
	"sync"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

// MetadataStore is an in-memory implementation of storage.MetadataStore.
type MetadataStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenMetadata // keyed by mint
}

// NewMetadataStore creates a new in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		data: make(map[string]*domain.TokenMetadata),
	}
}

// Upsert writes metadata keyed by mint. Empty fields leave the stored
// values untouched.
func (s *MetadataStore) Upsert(_ context.Context, m *domain.TokenMetadata) error {
	if m == nil || m.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[m.Mint]
	if !exists {
		copy := *m
		s.data[m.Mint] = &copy
		return nil
	}

	merged := *existing
	if m.Name != "" {
		merged.Name = m.Name
	}
	if m.Symbol != "" {
		merged.Symbol = m.Symbol
	}
	if m.URI != "" {
		merged.URI = m.URI
	}
	if m.Image != "" {
		merged.Image = m.Image
	}
	if m.Description != "" {
		merged.Description = m.Description
	}
	s.data[m.Mint] = &merged
	return nil
}

// GetByMint retrieves metadata. Returns ErrNotFound if not exists.
func (s *MetadataStore) GetByMint(_ context.Context, mint string) (*domain.TokenMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *m
	return &copy, nil
}

var _ storage.MetadataStore = (*MetadataStore)(nil)
