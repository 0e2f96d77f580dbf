// Package venue exposes live liquidity-venue state: AMM pool reserves and
// bonding-curve accounts. The pricing engine consumes the interfaces here;
// RPC-backed implementations live in this package, test doubles in stub/.
package venue

import (
	"context"
	"math/big"
)

// PoolState is the decoded on-chain state of one AMM pool.
type PoolState struct {
	Address     string
	TokenAMint  string
	TokenBMint  string
	TokenAVault string
	TokenBVault string

	// SqrtPrice is the pool's Q64.64 fixed-point square-root price of
	// tokenB per tokenA, nil when the pool layout does not expose one.
	SqrtPrice *big.Int
}

// PoolSource discovers AMM pools pairing a mint with a quote mint.
type PoolSource interface {
	// PoolsForPair returns every known pool pairing mint with quoteMint,
	// in no particular order. An empty slice means no pool exists; that
	// is not an error.
	PoolsForPair(ctx context.Context, mint, quoteMint string) ([]PoolState, error)
}

// Curve activation types. They select the reference point passed to the
// curve's pricing function.
type ActivationType uint8

const (
	// ActivationBySlot curves price against the current slot number.
	ActivationBySlot ActivationType = 0
	// ActivationByTimestamp curves price against wall-clock seconds.
	ActivationByTimestamp ActivationType = 1
)

// CurveState is the decoded on-chain state of one bonding curve.
type CurveState struct {
	Address       string
	BaseMint      string
	QuoteMint     string
	BaseReserve   uint64 // raw base-token reserve
	QuoteReserve  uint64 // raw quote-token reserve
	BaseDecimals  int
	QuoteDecimals int
	Activation    ActivationType

	// ActivationPoint is the slot or Unix-seconds value at which the curve
	// starts trading, interpreted per Activation.
	ActivationPoint int64

	// Progress is the fraction of curve capacity consumed, in [0,1].
	// Nil when it could not be read; the reconciler treats nil as
	// "not migrated".
	Progress *float64
}

// CurveSource locates bonding curves and quotes swaps against them.
type CurveSource interface {
	// CurveForBaseMint returns the curve account whose base token is mint,
	// or (nil, nil) when no curve exists for it. Most migrated tokens have
	// no active curve, so absence is the common case.
	CurveForBaseMint(ctx context.Context, mint string) (*CurveState, error)

	// SwapQuote prices a base-for-quote swap of amountIn raw base units
	// against the curve, at the given activation reference point (a slot
	// number or Unix seconds depending on state.Activation). Returns the
	// raw quote-unit output amount.
	SwapQuote(ctx context.Context, state *CurveState, amountIn uint64, currentPoint int64) (uint64, error)
}
