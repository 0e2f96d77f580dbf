package memory

import (
	"context"
	"sync"
	"time"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/storage"
)

// bucketKey identifies one minute bucket of one mint.
type bucketKey struct {
	mint    string
	startMs int64
}

// VolumeStore is an in-memory implementation of storage.VolumeStore.
type VolumeStore struct {
	mu   sync.RWMutex
	data map[bucketKey]*domain.VolumeBucket
}

// NewVolumeStore creates a new in-memory volume store.
func NewVolumeStore() *VolumeStore {
	return &VolumeStore{
		data: make(map[bucketKey]*domain.VolumeBucket),
	}
}

// AddTrade accumulates quoteVolume into the minute bucket containing ts.
func (s *VolumeStore) AddTrade(_ context.Context, mint string, quoteVolume float64, ts time.Time) error {
	if mint == "" || quoteVolume < 0 {
		return storage.ErrInvalidInput
	}

	startMs := ts.Truncate(time.Minute).UnixMilli()
	key := bucketKey{mint: mint, startMs: startMs}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.data[key]
	if !exists {
		b = &domain.VolumeBucket{Mint: mint, BucketStartMs: startMs}
		s.data[key] = b
	}
	b.Volume += quoteVolume
	b.Trades++
	return nil
}

// Stats aggregates the rolling windows ending at now. Windows with no data
// stay nil.
func (s *VolumeStore) Stats(_ context.Context, mint string, now time.Time) (domain.VolumeWindows, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nowMs := now.UnixMilli()

	type window struct {
		span   time.Duration
		volume **float64
		trades **int64
	}

	var w domain.VolumeWindows
	windows := []window{
		{5 * time.Minute, &w.Volume5m, &w.Trades5m},
		{time.Hour, &w.Volume1h, &w.Trades1h},
		{6 * time.Hour, &w.Volume6h, &w.Trades6h},
		{24 * time.Hour, &w.Volume24h, &w.Trades24h},
	}

	for _, win := range windows {
		var volume float64
		var trades int64
		cutoff := nowMs - win.span.Milliseconds()
		for key, b := range s.data {
			if key.mint == mint && b.BucketStartMs > cutoff && b.BucketStartMs <= nowMs {
				volume += b.Volume
				trades += b.Trades
			}
		}
		if trades > 0 {
			v, t := volume, trades
			*win.volume = &v
			*win.trades = &t
		}
	}
	return w, nil
}

// PruneBefore drops buckets older than cutoff and reports how many.
func (s *VolumeStore) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	var dropped int64
	for key := range s.data {
		if key.startMs < cutoffMs {
			delete(s.data, key)
			dropped++
		}
	}
	return dropped, nil
}

var _ storage.VolumeStore = (*VolumeStore)(nil)
