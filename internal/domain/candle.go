package domain

// Candle is one OHLC bucket for a mint, aggregated from individual trade
// ticks (the trade_ticks table in ClickHouse).
type Candle struct {
	Mint          string
	BucketSeconds int     // bucket width
	BucketStartMs int64   // bucket start, Unix milliseconds
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        float64 // reference-asset volume inside the bucket
	Trades        int64
}

// VolumeBucket is one minute-resolution volume accumulator for a mint.
// Corresponds to the volume_buckets table in ClickHouse.
type VolumeBucket struct {
	Mint          string
	BucketStartMs int64 // minute bucket start, Unix milliseconds
	Volume        float64
	Trades        int64
}

// Supported candle bucket widths (in seconds)
var CandleBuckets = []int{60, 300, 900, 3600, 14400, 86400}
