package memory

import (
	"context"
	"testing"
	"time"

	"solana-token-indexer/internal/domain"
)

func TestVolumeStore_StatsWindows(t *testing.T) {
	s := NewVolumeStore()
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	// Inside 5m.
	s.AddTrade(ctx, "tok", 10, now.Add(-2*time.Minute))
	// Inside 1h but outside 5m.
	s.AddTrade(ctx, "tok", 20, now.Add(-30*time.Minute))
	// Inside 24h but outside 6h.
	s.AddTrade(ctx, "tok", 40, now.Add(-10*time.Hour))
	// Older than 24h, excluded everywhere.
	s.AddTrade(ctx, "tok", 80, now.Add(-30*time.Hour))

	w, err := s.Stats(ctx, "tok", now)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if w.Volume5m == nil || *w.Volume5m != 10 {
		t.Errorf("expected 5m volume 10, got %v", w.Volume5m)
	}
	if w.Volume1h == nil || *w.Volume1h != 30 {
		t.Errorf("expected 1h volume 30, got %v", w.Volume1h)
	}
	if w.Volume6h == nil || *w.Volume6h != 30 {
		t.Errorf("expected 6h volume 30, got %v", w.Volume6h)
	}
	if w.Volume24h == nil || *w.Volume24h != 70 {
		t.Errorf("expected 24h volume 70, got %v", w.Volume24h)
	}
	if w.Trades24h == nil || *w.Trades24h != 3 {
		t.Errorf("expected 3 trades in 24h, got %v", w.Trades24h)
	}
}

func TestVolumeStore_EmptyWindowsStayNil(t *testing.T) {
	s := NewVolumeStore()

	w, err := s.Stats(context.Background(), "tok", time.Unix(1_700_000_000, 0))
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if w.Volume5m != nil || w.Trades24h != nil {
		t.Errorf("expected nil windows with no data, got %+v", w)
	}
}

func TestVolumeStore_SameMinuteAccumulates(t *testing.T) {
	s := NewVolumeStore()
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	s.AddTrade(ctx, "tok", 10, now)
	s.AddTrade(ctx, "tok", 15, now.Add(20*time.Second))

	w, _ := s.Stats(ctx, "tok", now.Add(time.Minute))
	if w.Volume5m == nil || *w.Volume5m != 25 {
		t.Errorf("expected accumulated volume 25, got %v", w.Volume5m)
	}
	if w.Trades5m == nil || *w.Trades5m != 2 {
		t.Errorf("expected 2 trades, got %v", w.Trades5m)
	}
}

func TestVolumeStore_PruneBefore(t *testing.T) {
	s := NewVolumeStore()
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	s.AddTrade(ctx, "tok", 10, now.Add(-48*time.Hour))
	s.AddTrade(ctx, "tok", 20, now)

	dropped, err := s.PruneBefore(ctx, now.Add(-25*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore failed: %v", err)
	}
	if dropped != 1 {
		t.Errorf("expected 1 bucket dropped, got %d", dropped)
	}

	w, _ := s.Stats(ctx, "tok", now)
	if w.Volume24h == nil || *w.Volume24h != 20 {
		t.Errorf("expected surviving volume 20, got %v", w.Volume24h)
	}
}

func TestCandleStore_FoldsOHLC(t *testing.T) {
	s := NewCandleStore()
	ctx := context.Background()
	ts := time.Unix(1_700_000_000, 0).Truncate(time.Minute)

	s.RecordTrade(ctx, "tok", 2.0, 10, ts)
	s.RecordTrade(ctx, "tok", 3.0, 5, ts.Add(10*time.Second))
	s.RecordTrade(ctx, "tok", 1.5, 8, ts.Add(30*time.Second))

	candles, err := s.GetByMint(ctx, "tok", 60, ts.Add(-time.Minute), ts.Add(time.Minute))
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("expected 1 minute candle, got %d", len(candles))
	}

	c := candles[0]
	if c.Open != 2.0 || c.High != 3.0 || c.Low != 1.5 || c.Close != 1.5 {
		t.Errorf("OHLC wrong: %+v", c)
	}
	if c.Volume != 23 || c.Trades != 3 {
		t.Errorf("expected volume 23 over 3 trades, got %v/%v", c.Volume, c.Trades)
	}
}

func TestCandleStore_AllBucketWidthsWritten(t *testing.T) {
	s := NewCandleStore()
	ctx := context.Background()
	ts := time.Unix(1_700_000_000, 0)

	s.RecordTrade(ctx, "tok", 2.0, 10, ts)

	for _, width := range domain.CandleBuckets {
		candles, err := s.GetByMint(ctx, "tok", width, ts.Add(-24*time.Hour), ts)
		if err != nil {
			t.Fatalf("GetByMint(%d) failed: %v", width, err)
		}
		if len(candles) != 1 {
			t.Errorf("bucket width %d: expected 1 candle, got %d", width, len(candles))
		}
	}
}

func TestCandleStore_RejectsNonPositivePrice(t *testing.T) {
	s := NewCandleStore()

	if err := s.RecordTrade(context.Background(), "tok", 0, 10, time.Now()); err == nil {
		t.Fatal("expected error for zero price")
	}
}
