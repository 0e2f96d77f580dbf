package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

// candleKey identifies one OHLC bucket of one mint.
type candleKey struct {
	mint          string
	bucketSeconds int
	startMs       int64
}

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[candleKey]*domain.Candle
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[candleKey]*domain.Candle),
	}
}

// RecordTrade folds one trade into every supported bucket width.
func (s *CandleStore) RecordTrade(_ context.Context, mint string, price, quoteVolume float64, ts time.Time) error {
	if mint == "" || price <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, width := range domain.CandleBuckets {
		startMs := ts.Truncate(time.Duration(width) * time.Second).UnixMilli()
		key := candleKey{mint: mint, bucketSeconds: width, startMs: startMs}

		c, exists := s.data[key]
		if !exists {
			s.data[key] = &domain.Candle{
				Mint:          mint,
				BucketSeconds: width,
				BucketStartMs: startMs,
				Open:          price,
				High:          price,
				Low:           price,
				Close:         price,
				Volume:        quoteVolume,
				Trades:        1,
			}
			continue
		}

		if price > c.High {
			c.High = price
		}
		if price < c.Low {
			c.Low = price
		}
		c.Close = price
		c.Volume += quoteVolume
		c.Trades++
	}
	return nil
}

// GetByMint retrieves candles of one bucket width within [from, to],
// ordered by bucket start ASC.
func (s *CandleStore) GetByMint(_ context.Context, mint string, bucketSeconds int, from, to time.Time) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fromMs, toMs := from.UnixMilli(), to.UnixMilli()
	var result []*domain.Candle
	for key, c := range s.data {
		if key.mint == mint && key.bucketSeconds == bucketSeconds &&
			key.startMs >= fromMs && key.startMs <= toMs {
			copy := *c
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].BucketStartMs < result[j].BucketStartMs
	})
	return result, nil
}

var _ storage.CandleStore = (*CandleStore)(nil)
