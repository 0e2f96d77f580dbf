package engine

import (
	"math"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/solana"
)

// priceTier is one rung of the source-selection ladder: the first tier
// whose predicate holds supplies the authoritative price and liquidity.
type priceTier struct {
	applies func() bool
	resolve func() (price, liquidity Amount)
}

// reconcile merges the two oracle readings into one metrics snapshot.
// Migration state, once established, is the authoritative signal; when it
// cannot be determined the tiers fall back to whichever oracle actually
// returned a price. An absent curve usually means the token fully migrated,
// an absent pool means the curve is still the live venue.
func (e *Engine) reconcile(mint string, pool, curve OracleResult, info *solana.MintInfo) *domain.TokenMetrics {
	migrated := curveMigrated(curve.Pools)

	tiers := []priceTier{
		{
			applies: func() bool { return migrated && pool.usable() },
			resolve: func() (Amount, Amount) { return pool.Price, pool.Liquidity },
		},
		{
			applies: func() bool { return !migrated && curve.usable() },
			resolve: func() (Amount, Amount) { return curve.Price, curve.Liquidity },
		},
		{
			applies: func() bool { return curve.usable() && !pool.usable() },
			resolve: func() (Amount, Amount) { return curve.Price, curve.Liquidity },
		},
		{
			applies: func() bool { return pool.usable() && !curve.usable() },
			resolve: func() (Amount, Amount) { return pool.Price, pool.Liquidity },
		},
		{
			applies: func() bool { return true },
			resolve: func() (Amount, Amount) {
				return pool.Price.Or(curve.Price), pool.Liquidity.Or(curve.Liquidity)
			},
		},
	}

	var price, liquidity Amount
	for _, t := range tiers {
		if t.applies() {
			price, liquidity = t.resolve()
			break
		}
	}

	m := &domain.TokenMetrics{
		Mint:      mint,
		Price:     price.Ptr(),
		Liquidity: liquidity.Ptr(),
		Pools:     append(append([]domain.PoolQuote(nil), pool.Pools...), curve.Pools...),
	}
	if info != nil {
		m.Supply = info.Supply
		m.Decimals = info.Decimals
	}
	m.MarketCap = marketCap(m.Supply, m.Price)
	return m
}

// curveMigrated reports whether any curve-sourced quote signals a fully
// consumed curve. Unreadable progress counts as not migrated.
func curveMigrated(quotes []domain.PoolQuote) bool {
	for _, q := range quotes {
		if q.Kind == domain.PoolKindCurve && q.CurveProgress != nil && *q.CurveProgress >= 1 {
			return true
		}
	}
	return false
}

func marketCap(supply, price *float64) *float64 {
	if supply == nil || price == nil {
		return nil
	}
	return Some(*supply * *price).Ptr()
}

// applyTradeFallback derives a last-resort spot price from a trade's own
// balance deltas when no oracle reserve state was reachable, then
// recomputes market cap.
func (e *Engine) applyTradeFallback(m *domain.TokenMetrics, deltas *Deltas, mint string) {
	if m.Price != nil {
		return
	}
	refAbs := math.Abs(deltas.NetDelta(e.cfg.ReferenceMint))
	tokAbs := math.Abs(deltas.NetDelta(mint))
	if refAbs <= 0 || tokAbs <= 0 {
		return
	}
	price := Some(refAbs / tokAbs)
	if !price.Positive() {
		return
	}
	m.Price = price.Ptr()
	m.MarketCap = marketCap(m.Supply, m.Price)
}
