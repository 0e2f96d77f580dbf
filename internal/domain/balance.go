package domain

// TokenBalance is a single chain-reported token balance snapshot, taken
// either before or after a transaction. UiAmount is already adjusted for
// the mint's decimals; absent chain values are coerced to 0 at the RPC
// boundary.
type TokenBalance struct {
	AccountIndex int    // position of the token account in the transaction's account list
	Mint         string // mint address (base58)
	Owner        string // owner address, empty when the chain did not resolve one
	UiAmount     float64
}

// BalanceRecord pairs the pre- and post-transaction snapshots of one
// (mint, accountIndex) key. Either side may be missing: a newly created
// account has no pre snapshot, a closed one has no post snapshot. Missing
// sides contribute 0.
type BalanceRecord struct {
	AccountIndex int
	Mint         string
	Owner        string
	PreUiAmount  float64
	PostUiAmount float64
}

// Delta returns the net ui-amount change for this record.
func (r BalanceRecord) Delta() float64 {
	return r.PostUiAmount - r.PreUiAmount
}
