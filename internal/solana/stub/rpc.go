// Package stub provides in-memory test doubles for the solana package.
package stub

import (
	"context"
	"errors"

	"solana-token-indexer/internal/solana"
)

// RPCClient implements solana.RPCClient for testing. All fields may be
// pre-populated; unknown keys behave like absent chain accounts.
type RPCClient struct {
	Transactions map[string]*solana.Transaction
	Balances     map[string]float64 // token account -> ui balance
	Mints        map[string]*solana.MintInfo
	Slot         int64
	BlockTimes   map[int64]int64 // slot -> unix seconds

	// Err, when set, is returned by every call; simulates an unreachable
	// node.
	Err error
}

// NewRPCClient creates an empty stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Balances:     make(map[string]float64),
		Mints:        make(map[string]*solana.MintInfo),
		BlockTimes:   make(map[int64]int64),
	}
}

// ErrUnavailable simulates a node that cannot be reached.
var ErrUnavailable = errors.New("rpc unavailable")

func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Transactions[signature], nil
}

func (c *RPCClient) GetTokenAccountBalance(_ context.Context, account string) (float64, error) {
	if c.Err != nil {
		return 0, c.Err
	}
	return c.Balances[account], nil
}

func (c *RPCClient) GetMintInfo(_ context.Context, mint string) (*solana.MintInfo, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if info, ok := c.Mints[mint]; ok {
		return info, nil
	}
	return &solana.MintInfo{}, nil
}

func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	if c.Err != nil {
		return 0, c.Err
	}
	return c.Slot, nil
}

func (c *RPCClient) GetBlockTime(_ context.Context, slot int64) (*int64, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if ts, ok := c.BlockTimes[slot]; ok {
		return &ts, nil
	}
	return nil, nil
}

var _ solana.RPCClient = (*RPCClient)(nil)
