package solana

import "context"

// RPCClient defines the chain read interface the pricing engine depends on.
// Implementations must tolerate queries for accounts that do not exist:
// absence is reported as a nil result, not an error.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction by signature,
	// including pre/post token balance snapshots. Returns (nil, nil)
	// when the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetTokenAccountBalance returns the ui-denominated balance of a
	// token account.
	GetTokenAccountBalance(ctx context.Context, account string) (float64, error)

	// GetMintInfo returns decimal precision and ui-denominated total
	// supply for a mint. Fields the chain could not provide are nil.
	GetMintInfo(ctx context.Context, mint string) (*MintInfo, error)

	// GetSlot retrieves the current confirmed slot.
	GetSlot(ctx context.Context) (int64, error)

	// GetBlockTime retrieves the estimated production time of a slot,
	// in Unix seconds. Returns (nil, nil) when unavailable.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
}

// Transaction represents a confirmed Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds), 0 when unknown
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// Payer returns the transaction's initiating account (fee payer), or ""
// when the account list is empty.
func (t *Transaction) Payer() string {
	if t.Message == nil || len(t.Message.AccountKeys) == 0 {
		return ""
	}
	return t.Message.AccountKeys[0]
}

// TokenBalance is one entry of a transaction's pre or post token balance
// list. UiAmount is decimal-adjusted; absent chain values are coerced to 0.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	UiAmount     float64
}

// MintInfo holds chain-reported mint precision and supply.
type MintInfo struct {
	Supply   *float64 // ui-denominated total supply
	Decimals *int
}

// AccountInfo represents raw Solana account state.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte // decoded account data
	Executable bool
}

// ProgramAccount is one account owned by a program, as returned by
// getProgramAccounts.
type ProgramAccount struct {
	Pubkey  string
	Account AccountInfo
}

// ProgramAccountsOpts narrows a getProgramAccounts scan.
type ProgramAccountsOpts struct {
	DataSize int64    // filter by exact account data length, 0 to disable
	MemCmp   []MemCmp // filter by byte comparison at offset
}

// MemCmp matches accounts whose data equals Bytes at Offset.
type MemCmp struct {
	Offset int64
	Bytes  []byte // compared base58-encoded on the wire
}
