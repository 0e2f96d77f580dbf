package ingestion

import (
	"context"
	"testing"
	"time"

	"solana-token-indexer/internal/engine"
	"solana-token-indexer/internal/solana"
	solstub "solana-token-indexer/internal/solana/stub"
	"solana-token-indexer/internal/storage/memory"
	"solana-token-indexer/internal/venue"
	venuestub "solana-token-indexer/internal/venue/stub"
)

const (
	refMint   = "So11111111111111111111111111111111111111112"
	tokenMint = "TokenMint1111111111111111111111111111111111"
	venueProg = "VenueProgram1111111111111111111111111111111"
)

var fixedNow = time.Unix(1_700_000_000, 0)

type harness struct {
	processor *Processor
	chain     *solstub.RPCClient
	pools     *venuestub.PoolSource
	stores    Stores
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	chain := solstub.NewRPCClient()
	pools := venuestub.NewPoolSource()
	curves := venuestub.NewCurveSource()

	eng := engine.New(engine.Config{
		ReferenceMint: refMint,
		VenuePrograms: []string{venueProg},
	}, chain, pools, curves, nil)

	stores := Stores{
		Tokens:  memory.NewTokenStore(),
		Trades:  memory.NewTradeStore(),
		Holders: memory.NewHolderStore(),
		Volumes: memory.NewVolumeStore(),
		Candles: memory.NewCandleStore(),
	}

	p := NewProcessor(eng, chain, stores, nil, refMint, nil)
	p.now = func() time.Time { return fixedNow }

	return &harness{processor: p, chain: chain, pools: pools, stores: stores}
}

// swapTransaction models a venue swap: the payer receives 50 tokens from a
// vault and spends 120 reference units as native funds, so the reference
// side appears only on the payer's account.
func swapTransaction(signature string) *solana.Transaction {
	return &solana.Transaction{
		Signature: signature,
		Slot:      1000,
		BlockTime: fixedNow.Unix() - 60,
		Message:   &solana.TransactionMessage{AccountKeys: []string{"payerA", "prog"}},
		Meta: &solana.TransactionMeta{
			PreTokenBalances: []solana.TokenBalance{
				{AccountIndex: 1, Mint: tokenMint, Owner: "payerA", UiAmount: 0},
				{AccountIndex: 2, Mint: tokenMint, Owner: "vaultOwner", UiAmount: 150},
				{AccountIndex: 3, Mint: refMint, Owner: "payerA", UiAmount: 200},
			},
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 1, Mint: tokenMint, Owner: "payerA", UiAmount: 50},
				{AccountIndex: 2, Mint: tokenMint, Owner: "vaultOwner", UiAmount: 100},
				{AccountIndex: 3, Mint: refMint, Owner: "payerA", UiAmount: 80},
			},
		},
	}
}

func TestProcessor_EndToEndBuy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.chain.Transactions["sig1"] = swapTransaction("sig1")

	if err := h.processor.ProcessSignature(ctx, "sig1", venueProg); err != nil {
		t.Fatalf("ProcessSignature failed: %v", err)
	}

	trades, err := h.stores.Trades.GetByMint(ctx, tokenMint, 10)
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if tr.Side != "buy" {
		t.Errorf("expected buy, got %s", tr.Side)
	}
	if tr.BaseAmount == nil || *tr.BaseAmount != 50 {
		t.Errorf("expected base 50, got %v", tr.BaseAmount)
	}
	// No venue state exists, so the price is implied from the trade's own
	// deltas: 120 reference units for 50 tokens.
	if tr.Price == nil || *tr.Price != 2.4 {
		t.Errorf("expected price 2.4, got %v", tr.Price)
	}
	if tr.QuoteValue == nil || *tr.QuoteValue != 120 {
		t.Errorf("expected quote 120, got %v", tr.QuoteValue)
	}
	if tr.Trader != "payerA" {
		t.Errorf("expected trader payerA, got %s", tr.Trader)
	}
	if tr.BlockTimeMs != (fixedNow.Unix()-60)*1000 {
		t.Errorf("unexpected block time %d", tr.BlockTimeMs)
	}

	// Volume and candles accumulate the reference flow.
	w, err := h.stores.Volumes.Stats(ctx, tokenMint, fixedNow)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if w.Volume5m == nil || *w.Volume5m != 120 {
		t.Errorf("expected 5m volume 120, got %v", w.Volume5m)
	}

	candles, err := h.stores.Candles.GetByMint(ctx, tokenMint, 60, fixedNow.Add(-time.Hour), fixedNow)
	if err != nil {
		t.Fatalf("candle GetByMint failed: %v", err)
	}
	if len(candles) != 1 || candles[0].Close != 2.4 || candles[0].Volume != 120 {
		t.Errorf("unexpected candles: %+v", candles)
	}

	// Post balances of the primary mint become holder records.
	holders, err := h.stores.Holders.TopByMint(ctx, tokenMint, 10)
	if err != nil {
		t.Fatalf("TopByMint failed: %v", err)
	}
	if len(holders) != 2 {
		t.Fatalf("expected 2 holders, got %d", len(holders))
	}
	if holders[0].Owner != "vaultOwner" || holders[0].Balance != 100 {
		t.Errorf("unexpected top holder: %+v", holders[0])
	}

	// The metrics snapshot lands with the volume windows attached.
	tok, err := h.stores.Tokens.GetByMint(ctx, tokenMint)
	if err != nil {
		t.Fatalf("token GetByMint failed: %v", err)
	}
	if tok.Volume.Volume5m == nil || *tok.Volume.Volume5m != 120 {
		t.Errorf("expected snapshot volume 120, got %v", tok.Volume.Volume5m)
	}
}

func TestProcessor_OraclePricePreferredOverDerived(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.chain.Transactions["sig1"] = swapTransaction("sig1")

	// A live pool prices the token at 2.0 by vault ratio.
	h.pools.Pools[tokenMint] = []venue.PoolState{{
		Address:     "pool1",
		TokenAMint:  tokenMint,
		TokenBMint:  refMint,
		TokenAVault: "vaultA",
		TokenBVault: "vaultB",
	}}
	h.chain.Balances["vaultA"] = 100
	h.chain.Balances["vaultB"] = 200

	if err := h.processor.ProcessSignature(ctx, "sig1", venueProg); err != nil {
		t.Fatalf("ProcessSignature failed: %v", err)
	}

	trades, _ := h.stores.Trades.GetByMint(ctx, tokenMint, 1)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].Price == nil || *trades[0].Price != 2.0 {
		t.Errorf("expected oracle price 2.0, got %v", trades[0].Price)
	}
	if trades[0].QuoteValue == nil || *trades[0].QuoteValue != 100 {
		t.Errorf("expected quote 100, got %v", trades[0].QuoteValue)
	}

	tok, err := h.stores.Tokens.GetByMint(ctx, tokenMint)
	if err != nil {
		t.Fatalf("token GetByMint failed: %v", err)
	}
	if tok.Liquidity == nil || *tok.Liquidity != 400 {
		t.Errorf("expected liquidity 400, got %v", tok.Liquidity)
	}
}

func TestProcessor_FailedTransactionSkipped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tx := swapTransaction("sig1")
	tx.Meta.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	h.chain.Transactions["sig1"] = tx

	if err := h.processor.ProcessSignature(ctx, "sig1", venueProg); err != nil {
		t.Fatalf("ProcessSignature failed: %v", err)
	}

	n, _ := h.stores.Trades.CountByMint(ctx, tokenMint)
	if n != 0 {
		t.Errorf("expected no trades from failed transaction, got %d", n)
	}
}

func TestProcessor_UnknownSignatureIsNoop(t *testing.T) {
	h := newHarness(t)

	if err := h.processor.ProcessSignature(context.Background(), "missing", venueProg); err != nil {
		t.Fatalf("expected nil for unknown signature, got %v", err)
	}
}

func TestProcessor_ReprocessingDoesNotDoubleCount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.chain.Transactions["sig1"] = swapTransaction("sig1")

	if err := h.processor.ProcessSignature(ctx, "sig1", venueProg); err != nil {
		t.Fatalf("first ProcessSignature failed: %v", err)
	}
	if err := h.processor.ProcessSignature(ctx, "sig1", venueProg); err != nil {
		t.Fatalf("second ProcessSignature failed: %v", err)
	}

	n, _ := h.stores.Trades.CountByMint(ctx, tokenMint)
	if n != 1 {
		t.Errorf("expected 1 trade after reprocessing, got %d", n)
	}

	w, _ := h.stores.Volumes.Stats(ctx, tokenMint, fixedNow)
	if w.Volume5m == nil || *w.Volume5m != 120 {
		t.Errorf("expected volume 120 after reprocessing, got %v", w.Volume5m)
	}
}

func TestProcessor_OnlyReferenceMovedIsSkipped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.chain.Transactions["sig1"] = &solana.Transaction{
		Signature: "sig1",
		BlockTime: fixedNow.Unix(),
		Message:   &solana.TransactionMessage{AccountKeys: []string{"payerA"}},
		Meta: &solana.TransactionMeta{
			PreTokenBalances: []solana.TokenBalance{
				{AccountIndex: 1, Mint: refMint, Owner: "payerA", UiAmount: 10},
			},
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 1, Mint: refMint, Owner: "payerA", UiAmount: 4},
			},
		},
	}

	if err := h.processor.ProcessSignature(ctx, "sig1", venueProg); err != nil {
		t.Fatalf("ProcessSignature failed: %v", err)
	}

	mints, _ := h.stores.Tokens.ListMints(ctx)
	if len(mints) != 0 {
		t.Errorf("expected no tokens stored, got %v", mints)
	}
}

func TestProcessor_EnrichmentFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.chain.Transactions["sig1"] = swapTransaction("sig1")
	h.processor.enricher = failingEnricher{}

	if err := h.processor.ProcessSignature(ctx, "sig1", venueProg); err != nil {
		t.Fatalf("ProcessSignature failed: %v", err)
	}

	n, _ := h.stores.Trades.CountByMint(ctx, tokenMint)
	if n != 1 {
		t.Errorf("expected trade despite enrichment failure, got %d", n)
	}
}

type failingEnricher struct{}

func (failingEnricher) EnrichIfMissing(context.Context, string) error {
	return context.DeadlineExceeded
}
