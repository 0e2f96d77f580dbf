package engine

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"solana-token-indexer/internal/solana"
	solstub "solana-token-indexer/internal/solana/stub"
	"solana-token-indexer/internal/venue"
	venuestub "solana-token-indexer/internal/venue/stub"
)

const (
	refMint   = "So11111111111111111111111111111111111111112"
	venueProg = "VenueProgram1111111111111111111111111111111"
)

// mintAddr deterministically generates a well-formed mint address.
func mintAddr(b byte) string {
	return base58.Encode(bytes.Repeat([]byte{b}, 32))
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func almostEqual(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

func newTestEngine(cfg Config, chain solana.RPCClient, pools venue.PoolSource, curves venue.CurveSource) *Engine {
	if cfg.ReferenceMint == "" {
		cfg.ReferenceMint = refMint
	}
	if cfg.VenuePrograms == nil {
		cfg.VenuePrograms = []string{venueProg}
	}
	e := New(cfg, chain, pools, curves, nil)
	e.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return e
}

func TestTokenMetrics_MalformedMint(t *testing.T) {
	e := newTestEngine(Config{}, solstub.NewRPCClient(), venuestub.NewPoolSource(), venuestub.NewCurveSource())

	if _, err := e.TokenMetrics(context.Background(), "not-a-pubkey", nil); err == nil {
		t.Fatal("expected error for malformed mint")
	}
}

func TestTokenMetrics_FanOutAndReconcile(t *testing.T) {
	mint := mintAddr(7)

	chain := solstub.NewRPCClient()
	chain.Mints[mint] = &solana.MintInfo{Supply: fptr(1_000_000), Decimals: iptr(6)}
	chain.Balances["tokenVault"] = 100
	chain.Balances["quoteVault"] = 200

	pools := venuestub.NewPoolSource()
	pools.Pools[mint] = []venue.PoolState{{
		Address:     "pool1",
		TokenAMint:  mint,
		TokenBMint:  refMint,
		TokenAVault: "tokenVault",
		TokenBVault: "quoteVault",
	}}

	curves := venuestub.NewCurveSource()

	e := newTestEngine(Config{}, chain, pools, curves)

	m, err := e.TokenMetrics(context.Background(), mint, nil)
	if err != nil {
		t.Fatalf("TokenMetrics failed: %v", err)
	}

	// No curve exists, so the pool price wins: 200/100 = 2.
	if m.Price == nil || !almostEqual(*m.Price, 2) {
		t.Errorf("expected price 2, got %v", m.Price)
	}
	if m.Liquidity == nil || !almostEqual(*m.Liquidity, 400) {
		t.Errorf("expected liquidity 400, got %v", m.Liquidity)
	}
	if m.Supply == nil || *m.Supply != 1_000_000 {
		t.Errorf("expected supply 1000000, got %v", m.Supply)
	}
	if m.MarketCap == nil || !almostEqual(*m.MarketCap, 2_000_000) {
		t.Errorf("expected market cap 2000000, got %v", m.MarketCap)
	}
	if len(m.Pools) != 1 {
		t.Fatalf("expected 1 pool quote, got %d", len(m.Pools))
	}
}

func TestTokenMetrics_UnreachableChainDegrades(t *testing.T) {
	mint := mintAddr(8)

	chain := solstub.NewRPCClient()
	chain.Err = solstub.ErrUnavailable

	pools := venuestub.NewPoolSource()
	pools.Err = solstub.ErrUnavailable
	curves := venuestub.NewCurveSource()
	curves.Err = solstub.ErrUnavailable

	e := newTestEngine(Config{}, chain, pools, curves)

	// Deltas from the trade itself supply the last-resort price.
	d := JoinBalances(nil, nil)
	d.Net[mint] = 50
	d.Net[refMint] = -120

	m, err := e.TokenMetrics(context.Background(), mint, d)
	if err != nil {
		t.Fatalf("TokenMetrics failed: %v", err)
	}
	if m.Price == nil || !almostEqual(*m.Price, 2.4) {
		t.Errorf("expected trade-implied price 2.4, got %v", m.Price)
	}
	if m.Supply != nil || m.Decimals != nil {
		t.Error("supply and decimals should be unknown when the chain is unreachable")
	}
	if len(m.Pools) != 0 {
		t.Errorf("expected no pool quotes, got %d", len(m.Pools))
	}
}
