// Package engine reconciles pool and bonding-curve oracle readings into
// authoritative per-token price and liquidity metrics, and classifies
// trades from transaction balance deltas.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/observability"
	"solana-token-indexer/internal/solana"
	"solana-token-indexer/internal/venue"
)

// Config holds engine tuning parameters. Zero values take the defaults
// applied by New.
type Config struct {
	// ReferenceMint is the quote asset all prices are denominated in.
	ReferenceMint string

	// VenuePrograms lists the program IDs whose transactions carry
	// payer-level trade semantics. Transactions from other programs are
	// classified from aggregate deltas only.
	VenuePrograms []string

	// SanityBandFactor bounds how far a sqrt-derived price may deviate
	// from the vault-ratio price before it is rejected.
	SanityBandFactor float64

	// DerivedPriceCeiling is the exclusive upper bound on prices derived
	// from trade deltas when no oracle price is available.
	DerivedPriceCeiling float64

	// PoolScanLimit caps how many pools are balance-scanned per token.
	PoolScanLimit int

	// MaxPoolsRetained caps how many pools are kept on the metrics
	// snapshot after scoring.
	MaxPoolsRetained int
}

func (c Config) withDefaults() Config {
	if c.SanityBandFactor <= 0 {
		c.SanityBandFactor = 5
	}
	if c.DerivedPriceCeiling <= 0 {
		c.DerivedPriceCeiling = 1000
	}
	if c.PoolScanLimit <= 0 {
		c.PoolScanLimit = 6
	}
	if c.MaxPoolsRetained <= 0 {
		c.MaxPoolsRetained = 2
	}
	return c
}

func (c Config) isVenueProgram(program string) bool {
	for _, p := range c.VenuePrograms {
		if p == program {
			return true
		}
	}
	return false
}

// OracleResult is the outcome of one oracle evaluation. Absent readings are
// first-class values, not errors: an oracle that finds no venue state
// returns an empty result and nil error.
type OracleResult struct {
	Price     Amount
	Liquidity Amount
	Pools     []domain.PoolQuote
}

// usable reports whether the result carries at least one pool and a
// strictly positive price.
func (r OracleResult) usable() bool {
	return len(r.Pools) > 0 && r.Price.Positive()
}

// Engine computes token metrics and classifies trades. All methods are safe
// for concurrent use.
type Engine struct {
	cfg    Config
	chain  solana.RPCClient
	pools  venue.PoolSource
	curves venue.CurveSource
	logger *zap.Logger
	now    func() time.Time
}

// New creates an Engine. A nil logger disables logging.
func New(cfg Config, chain solana.RPCClient, pools venue.PoolSource, curves venue.CurveSource, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:    cfg.withDefaults(),
		chain:  chain,
		pools:  pools,
		curves: curves,
		logger: logger,
		now:    time.Now,
	}
}

// TokenMetrics evaluates both oracles and the mint supply concurrently and
// reconciles them into one metrics snapshot. deltas, when non-nil, enables
// the last-resort trade-implied price for tokens with no usable venue
// state. The only error is a malformed mint address; unreachable chain
// state degrades to absent fields.
func (e *Engine) TokenMetrics(ctx context.Context, mint string, deltas *Deltas) (*domain.TokenMetrics, error) {
	if _, err := solana.DecodePubkey(mint); err != nil {
		return nil, fmt.Errorf("token metrics: %w", err)
	}

	var (
		wg    sync.WaitGroup
		info  *solana.MintInfo
		pool  OracleResult
		curve OracleResult
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		mi, err := e.chain.GetMintInfo(ctx, mint)
		if err != nil {
			e.logger.Warn("mint info lookup failed",
				zap.String("mint", mint), zap.Error(err))
			return
		}
		info = mi
	}()
	go func() {
		defer wg.Done()
		pool = e.evaluatePools(ctx, mint)
	}()
	go func() {
		defer wg.Done()
		curve = e.evaluateCurve(ctx, mint)
	}()
	wg.Wait()

	observability.RecordOracleEvaluation("pool", !pool.usable())
	observability.RecordOracleEvaluation("curve", !curve.usable())
	observability.DefaultMetrics.PoolsScanned.Observe(float64(len(pool.Pools)))

	m := e.reconcile(mint, pool, curve, info)
	if deltas != nil {
		e.applyTradeFallback(m, deltas, mint)
	}
	return m, nil
}
