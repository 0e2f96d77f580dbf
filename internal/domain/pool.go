package domain

// Pool kind constants
const (
	// PoolKindCurve marks a bonding-curve venue.
	PoolKindCurve = "curve"
	// PoolKindAMM marks an automated market-maker pool venue.
	PoolKindAMM = "pool"
)

// PoolQuote is a price/liquidity estimate for one discovered liquidity venue
// of a mint. Price is nil when the venue yielded no usable (strictly
// positive, finite) price; it is never stored as zero.
type PoolQuote struct {
	Address   string   // venue account address
	TokenA    string   // base mint
	TokenB    string   // quote mint
	Price     *float64 // token price in reference-asset units, nil when unusable
	Liquidity float64  // total venue depth in reference-asset units
	Kind      string   // PoolKindCurve | PoolKindAMM

	// CurveProgress is the fraction of curve capacity consumed, in [0,1].
	// Only meaningful for PoolKindCurve; 1.0 signals migration to pooled
	// liquidity. Nil when the venue could not report it.
	CurveProgress *float64
}
