package engine

import (
	"math"

	"solana-token-indexer/internal/domain"
)

// TradeContext describes the transaction under classification.
type TradeContext struct {
	Signature string
	Program   string // program that emitted the transaction's logs
	Payer     string // initiating account, empty when unknown
	BlockTime int64  // Unix milliseconds, 0 when unknown
}

// sideRule is one rung of the side-determination ladder.
type sideRule struct {
	applies bool
	side    string
}

// Classify assigns buy/sell/unknown semantics to one transaction from its
// balance deltas. Payer-scoped movement outranks aggregate movement, since
// vault-side deltas carry the opposite sign of the trader's. Payer-level
// rules apply only to transactions emitted by a known venue program; for
// anything else the aggregate primary-mint sign is the only signal used.
// Never fails: missing data degrades to a partial record or unknown side.
func (e *Engine) Classify(tc TradeContext, deltas *Deltas, primaryMint string, oraclePrice Amount) domain.ClassifiedTrade {
	ref := e.cfg.ReferenceMint
	venueTx := e.cfg.isVenueProgram(tc.Program)

	payerPrimary := deltas.OwnerDelta(tc.Payer, primaryMint)
	payerRef := deltas.OwnerDelta(tc.Payer, ref)
	aggPrimary := deltas.NetDelta(primaryMint)
	aggRef := deltas.NetDelta(ref)

	rules := []sideRule{
		{venueTx && payerPrimary > 0, domain.TradeSideBuy},
		{venueTx && payerPrimary < 0, domain.TradeSideSell},
		// Spending the reference asset means buying the token.
		{venueTx && payerRef < 0, domain.TradeSideBuy},
		{venueTx && payerRef > 0, domain.TradeSideSell},
		{venueTx && aggRef < 0, domain.TradeSideBuy},
		{venueTx && aggRef > 0, domain.TradeSideSell},
		{aggPrimary > 0, domain.TradeSideBuy},
		{aggPrimary < 0, domain.TradeSideSell},
	}
	side := domain.TradeSideUnknown
	for _, r := range rules {
		if r.applies {
			side = r.side
			break
		}
	}

	base := math.Abs(payerPrimary)
	if base == 0 {
		base = math.Abs(aggPrimary)
	}

	price := oraclePrice
	if !price.Positive() {
		price = e.derivedPrice(payerPrimary, payerRef, aggPrimary, aggRef)
	}

	quote := None()
	if p, ok := price.Value(); ok && base > 0 {
		quote = Some(base * p)
	} else if refAbs := math.Abs(aggRef); refAbs > 0 {
		quote = Some(refAbs)
	}

	return domain.ClassifiedTrade{
		Signature:   tc.Signature,
		Mint:        primaryMint,
		Side:        side,
		BaseAmount:  Some(base).Ptr(),
		Price:       price.Ptr(),
		QuoteValue:  quote.Ptr(),
		Trader:      tc.Payer,
		BlockTimeMs: tc.BlockTime,
	}
}

// derivedPrice implies a per-transaction price from the trade's own deltas,
// preferring payer-scoped values. Accepted only inside (0, ceiling) to
// reject division-by-near-zero artifacts.
func (e *Engine) derivedPrice(payerPrimary, payerRef, aggPrimary, aggRef float64) Amount {
	tokAbs := math.Abs(payerPrimary)
	if tokAbs == 0 {
		tokAbs = math.Abs(aggPrimary)
	}
	refAbs := math.Abs(payerRef)
	if refAbs == 0 {
		refAbs = math.Abs(aggRef)
	}
	if tokAbs == 0 || refAbs == 0 {
		return None()
	}
	p := refAbs / tokAbs
	if p <= 0 || p >= e.cfg.DerivedPriceCeiling {
		return None()
	}
	return Some(p)
}
