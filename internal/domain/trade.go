package domain

// Trade side constants
const (
	TradeSideBuy     = "buy"
	TradeSideSell    = "sell"
	TradeSideUnknown = "unknown"
)

// ClassifiedTrade is the classifier's verdict for one transaction that
// resolved to a non-degenerate primary mint. Nil numeric fields mean the
// value could not be derived; the record is still persisted as a partial.
type ClassifiedTrade struct {
	Signature   string
	Mint        string   // primary mint of the transaction
	Side        string   // TradeSideBuy | TradeSideSell | TradeSideUnknown
	BaseAmount  *float64 // traded token amount, ui units
	Price       *float64 // reference-asset units per token
	QuoteValue  *float64 // BaseAmount * Price, or reference-asset delta fallback
	Trader      string   // initiating account (payer), empty when unknown
	BlockTimeMs int64    // Unix timestamp in milliseconds, 0 when unknown
}
