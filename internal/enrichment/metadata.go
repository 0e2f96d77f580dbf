// Package enrichment fills token display metadata from on-chain token-2022
// extensions and the off-chain metadata URI.
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/observability"
	"solana-token-indexer/internal/solana"
	"solana-token-indexer/internal/storage"
)

// MetadataSource reads on-chain token metadata.
type MetadataSource interface {
	GetTokenMetadata(ctx context.Context, mint string) (*solana.TokenMetadataInfo, error)
}

const defaultURITimeout = 3 * time.Second

// Enricher resolves missing metadata fields for mints. Both sources are
// best-effort: a mint without a metadata extension or with a dead URI
// simply stays partially filled.
type Enricher struct {
	chain      MetadataSource
	store      storage.MetadataStore
	httpClient *http.Client
	logger     *zap.Logger
}

// NewEnricher creates an Enricher. A nil logger disables logging.
func NewEnricher(chain MetadataSource, store storage.MetadataStore, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		chain:      chain,
		store:      store,
		httpClient: &http.Client{Timeout: defaultURITimeout},
		logger:     logger,
	}
}

// EnrichIfMissing fills whatever metadata fields are still empty for a
// mint. Already-filled fields are never overwritten; the store merge
// guarantees that too.
func (e *Enricher) EnrichIfMissing(ctx context.Context, mint string) error {
	existing, err := e.store.GetByMint(ctx, mint)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load metadata for %s: %w", mint, err)
	}
	if existing == nil {
		existing = &domain.TokenMetadata{Mint: mint}
	}
	if existing.Name != "" && existing.Symbol != "" && existing.Image != "" && existing.Description != "" {
		return nil
	}

	update := domain.TokenMetadata{Mint: mint}

	onchain, err := e.chain.GetTokenMetadata(ctx, mint)
	if err != nil {
		e.logger.Warn("on-chain metadata lookup failed",
			zap.String("mint", mint), zap.Error(err))
	}
	uri := existing.URI
	if onchain != nil {
		update.Name = onchain.Name
		update.Symbol = onchain.Symbol
		update.URI = onchain.URI
		if onchain.URI != "" {
			uri = onchain.URI
		}
	}

	if uri != "" && (existing.Image == "" || existing.Description == "") {
		if off := e.fetchOffchain(ctx, uri); off != nil {
			if update.Name == "" {
				update.Name = off.Name
			}
			if update.Symbol == "" {
				update.Symbol = off.Symbol
			}
			update.Image = off.Image
			update.Description = off.Description
		}
	}

	if update == (domain.TokenMetadata{Mint: mint}) {
		observability.RecordMetadataEnrichment("empty")
		return nil
	}

	if err := e.store.Upsert(ctx, &update); err != nil {
		observability.RecordMetadataEnrichment("store_error")
		return fmt.Errorf("store metadata for %s: %w", mint, err)
	}
	observability.RecordMetadataEnrichment("ok")
	return nil
}

// offchainMetadata is the JSON document behind a metadata URI. Unknown
// fields are ignored.
type offchainMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

// fetchOffchain downloads the URI document. Failures are logged and
// swallowed; the URI points at arbitrary third-party hosting.
func (e *Enricher) fetchOffchain(ctx context.Context, uri string) *offchainMetadata {
	ctx, cancel := context.WithTimeout(ctx, defaultURITimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		e.logger.Debug("invalid metadata uri", zap.String("uri", uri), zap.Error(err))
		return nil
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.Debug("metadata uri fetch failed", zap.String("uri", uri), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Debug("metadata uri returned non-200",
			zap.String("uri", uri), zap.Int("status", resp.StatusCode))
		return nil
	}

	var doc offchainMetadata
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		e.logger.Debug("metadata uri payload not json", zap.String("uri", uri), zap.Error(err))
		return nil
	}
	return &doc
}
