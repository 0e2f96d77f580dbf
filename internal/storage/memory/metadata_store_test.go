package memory

import (
	"context"
	"errors"
	"testing"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

func TestMetadataStore_UpsertPreservesFilledFields(t *testing.T) {
	s := NewMetadataStore()
	ctx := context.Background()

	s.Upsert(ctx, &domain.TokenMetadata{Mint: "tok", Name: "Token", Symbol: "TOK"})
	// Enrichment later fills the image without touching name/symbol.
	s.Upsert(ctx, &domain.TokenMetadata{Mint: "tok", Image: "https://img"})

	got, err := s.GetByMint(ctx, "tok")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if got.Name != "Token" || got.Symbol != "TOK" || got.Image != "https://img" {
		t.Errorf("merge wrong: %+v", got)
	}
}

func TestMetadataStore_NotFound(t *testing.T) {
	s := NewMetadataStore()

	_, err := s.GetByMint(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
