package engine

import (
	"context"
	"math"

	"go.uber.org/zap"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/venue"
)

// evaluateCurve computes price and liquidity for mint from its bonding
// curve. The preferred price is a one-base-unit swap quote at the curve's
// activation reference point; the reserve ratio is the guaranteed fallback
// once a positive base reserve exists. A token with no curve account yields
// an empty result, which is the common case after migration.
func (e *Engine) evaluateCurve(ctx context.Context, mint string) OracleResult {
	state, err := e.curves.CurveForBaseMint(ctx, mint)
	if err != nil {
		e.logger.Warn("curve lookup failed",
			zap.String("mint", mint), zap.Error(err))
		return OracleResult{}
	}
	if state == nil {
		return OracleResult{}
	}

	baseUI := float64(state.BaseReserve) / math.Pow10(state.BaseDecimals)
	quoteUI := float64(state.QuoteReserve) / math.Pow10(state.QuoteDecimals)
	if baseUI <= 0 {
		// A drained curve cannot price anything.
		return OracleResult{}
	}

	price := e.curveSwapPrice(ctx, state)
	if !price.Positive() {
		price = None()
		if baseUI > 0 {
			price = Some(quoteUI / baseUI)
		}
	}
	if !price.Positive() {
		price = None()
	}

	liq := Some(quoteUI)
	if p, ok := price.Value(); ok {
		liq = Some(quoteUI + baseUI*p)
	}

	quote := domain.PoolQuote{
		Address:       state.Address,
		TokenA:        state.BaseMint,
		TokenB:        state.QuoteMint,
		Price:         price.Ptr(),
		Liquidity:     liq.val,
		Kind:          domain.PoolKindCurve,
		CurveProgress: state.Progress,
	}

	return OracleResult{Price: price, Liquidity: liq, Pools: []domain.PoolQuote{quote}}
}

// curveSwapPrice quotes a swap of exactly one ui unit of the base token.
// The activation reference point is the current slot or wall-clock seconds
// depending on curve configuration.
func (e *Engine) curveSwapPrice(ctx context.Context, state *venue.CurveState) Amount {
	var point int64
	switch state.Activation {
	case venue.ActivationBySlot:
		slot, err := e.chain.GetSlot(ctx)
		if err != nil {
			e.logger.Warn("slot fetch failed for curve quote",
				zap.String("curve", state.Address), zap.Error(err))
			return None()
		}
		point = slot
	default:
		point = e.now().Unix()
	}

	oneBase := uint64(math.Pow10(state.BaseDecimals))
	if oneBase == 0 {
		oneBase = 1
	}

	out, err := e.curves.SwapQuote(ctx, state, oneBase, point)
	if err != nil {
		e.logger.Warn("curve swap quote failed",
			zap.String("curve", state.Address), zap.Error(err))
		return None()
	}
	if out == 0 {
		return None()
	}
	return Some(float64(out) / math.Pow10(state.QuoteDecimals))
}
