package domain

// TokenMetrics is the authoritative per-mint snapshot produced by the
// reconciliation engine. Each evaluation supersedes the previously stored
// snapshot; no history is kept at this layer. Nil fields mean "unknown",
// never zero.
type TokenMetrics struct {
	Mint      string
	Price     *float64
	Liquidity *float64
	Supply    *float64
	Decimals  *int
	MarketCap *float64
	Pools     []PoolQuote

	Volume VolumeWindows
}

// VolumeWindows carries rolling volume and trade counters per time window,
// denominated in reference-asset units. Nil means the window has no data.
type VolumeWindows struct {
	Volume5m  *float64
	Trades5m  *int64
	Volume1h  *float64
	Trades1h  *int64
	Volume6h  *float64
	Trades6h  *int64
	Volume24h *float64
	Trades24h *int64
}

// HolderBalance is the latest observed balance of one owner for one mint.
type HolderBalance struct {
	Mint    string
	Owner   string
	Balance float64
}

// TokenMetadata holds display metadata for a mint, filled best-effort from
// on-chain token-2022 extensions and the off-chain metadata URI.
type TokenMetadata struct {
	Mint        string
	Name        string
	Symbol      string
	URI         string
	Image       string
	Description string
}
