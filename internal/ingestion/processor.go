// Package ingestion turns venue log notifications into stored trades,
// metrics snapshots, volume buckets, candles, and holder balances.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/engine"
	"solana-token-indexer/internal/observability"
	"solana-token-indexer/internal/solana"
	"solana-token-indexer/internal/storage"
)

// MetadataEnricher fills missing display metadata for a mint.
type MetadataEnricher interface {
	EnrichIfMissing(ctx context.Context, mint string) error
}

// Stores bundles the persistence targets of the processor.
type Stores struct {
	Tokens  storage.TokenStore
	Trades  storage.TradeStore
	Holders storage.HolderStore
	Volumes storage.VolumeStore
	Candles storage.CandleStore
}

// Processor evaluates one transaction end to end: join balances, pick the
// primary mint, price it, classify the trade, and persist every artifact.
type Processor struct {
	engine        *engine.Engine
	chain         solana.RPCClient
	stores        Stores
	enricher      MetadataEnricher // optional
	referenceMint string
	logger        *zap.Logger
	now           func() time.Time
}

// NewProcessor creates a Processor. enricher may be nil; a nil logger
// disables logging.
func NewProcessor(eng *engine.Engine, chain solana.RPCClient, stores Stores, enricher MetadataEnricher, referenceMint string, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		engine:        eng,
		chain:         chain,
		stores:        stores,
		enricher:      enricher,
		referenceMint: referenceMint,
		logger:        logger,
		now:           time.Now,
	}
}

// ProcessSignature fetches and processes one transaction observed on a
// venue program. Reprocessing the same signature is a no-op: the trade
// store's (signature, mint) key short-circuits before anything is
// double-counted.
func (p *Processor) ProcessSignature(ctx context.Context, signature, program string) error {
	tx, err := p.chain.GetTransaction(ctx, signature)
	if err != nil {
		observability.RecordProcessingError("fetch_transaction")
		return fmt.Errorf("fetch transaction %s: %w", signature, err)
	}
	if tx == nil || tx.Meta == nil {
		observability.RecordTransactionSkipped("not_found")
		return nil
	}
	if tx.Meta.Err != nil {
		observability.RecordTransactionSkipped("failed_transaction")
		return nil
	}

	deltas := engine.JoinBalances(
		convertBalances(tx.Meta.PreTokenBalances),
		convertBalances(tx.Meta.PostTokenBalances),
	)

	primary, _ := engine.SelectPrimary(deltas, p.referenceMint)
	if primary == "" {
		observability.RecordTransactionSkipped("no_primary_mint")
		return nil
	}

	metrics, err := p.engine.TokenMetrics(ctx, primary, deltas)
	if err != nil {
		observability.RecordProcessingError("token_metrics")
		return fmt.Errorf("evaluate %s: %w", primary, err)
	}

	blockTimeMs := tx.BlockTime * 1000
	ts := p.now()
	if blockTimeMs > 0 {
		ts = time.UnixMilli(blockTimeMs)
	}

	trade := p.engine.Classify(engine.TradeContext{
		Signature: signature,
		Program:   program,
		Payer:     tx.Payer(),
		BlockTime: blockTimeMs,
	}, deltas, primary, priceAmount(metrics.Price))

	refFlow := math.Abs(deltas.NetDelta(p.referenceMint))

	if recordableTrade(trade, refFlow) {
		if err := p.stores.Trades.Insert(ctx, &trade); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				observability.DefaultMetrics.TradesDeduplicated.Inc()
				observability.RecordTransactionSkipped("duplicate")
				return nil
			}
			observability.RecordProcessingError("insert_trade")
			return fmt.Errorf("insert trade %s: %w", signature, err)
		}
		observability.RecordTradeClassified(trade.Side)
	}

	if refFlow > 0 {
		if err := p.stores.Volumes.AddTrade(ctx, primary, refFlow, ts); err != nil {
			observability.RecordProcessingError("add_volume")
			p.logger.Warn("volume bucket write failed",
				zap.String("mint", primary), zap.Error(err))
		}
	}

	if trade.Price != nil && *trade.Price > 0 {
		if err := p.stores.Candles.RecordTrade(ctx, primary, *trade.Price, refFlow, ts); err != nil {
			observability.RecordProcessingError("record_candle")
			p.logger.Warn("candle write failed",
				zap.String("mint", primary), zap.Error(err))
		}
	}

	p.recordHolders(ctx, primary, tx.Meta.PostTokenBalances)

	if windows, err := p.stores.Volumes.Stats(ctx, primary, p.now()); err == nil {
		metrics.Volume = windows
	} else {
		observability.RecordProcessingError("volume_stats")
		p.logger.Warn("volume stats failed", zap.String("mint", primary), zap.Error(err))
	}

	if err := p.stores.Tokens.Upsert(ctx, metrics); err != nil {
		observability.RecordProcessingError("upsert_token")
		return fmt.Errorf("upsert token %s: %w", primary, err)
	}

	if p.enricher != nil {
		if err := p.enricher.EnrichIfMissing(ctx, primary); err != nil {
			p.logger.Warn("metadata enrichment failed",
				zap.String("mint", primary), zap.Error(err))
		}
	}

	observability.RecordTransactionProcessed(float64(tx.BlockTime))
	p.logger.Debug("transaction processed",
		zap.String("signature", signature),
		zap.String("mint", primary),
		zap.String("side", trade.Side))
	return nil
}

// recordHolders captures the post-transaction balances of the primary mint.
// Balances without a resolved owner are vault-like accounts and skipped.
func (p *Processor) recordHolders(ctx context.Context, mint string, post []solana.TokenBalance) {
	for _, b := range post {
		if b.Mint != mint || b.Owner == "" {
			continue
		}
		err := p.stores.Holders.Record(ctx, &domain.HolderBalance{
			Mint:    mint,
			Owner:   b.Owner,
			Balance: b.UiAmount,
		})
		if err != nil {
			observability.RecordProcessingError("record_holder")
			p.logger.Warn("holder write failed",
				zap.String("mint", mint), zap.String("owner", b.Owner), zap.Error(err))
		}
	}
}

// recordableTrade reports whether a classified trade carries enough signal
// to persist: a real base amount, or at least a price with reference flow.
func recordableTrade(t domain.ClassifiedTrade, refFlow float64) bool {
	if t.BaseAmount != nil && *t.BaseAmount > 0 {
		return true
	}
	return t.Price != nil && refFlow > 0
}

func convertBalances(in []solana.TokenBalance) []domain.TokenBalance {
	out := make([]domain.TokenBalance, 0, len(in))
	for _, b := range in {
		out = append(out, domain.TokenBalance{
			AccountIndex: b.AccountIndex,
			Mint:         b.Mint,
			Owner:        b.Owner,
			UiAmount:     b.UiAmount,
		})
	}
	return out
}

func priceAmount(p *float64) engine.Amount {
	if p == nil {
		return engine.None()
	}
	return engine.Some(*p)
}
