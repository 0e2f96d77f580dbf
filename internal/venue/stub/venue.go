// Package stub provides in-memory test doubles for the venue package.
package stub

import (
	"context"

	"solana-token-indexer/internal/venue"
)

// PoolSource implements venue.PoolSource for testing.
type PoolSource struct {
	Pools map[string][]venue.PoolState // keyed by mint
	Err   error
}

// NewPoolSource creates an empty stub pool source.
func NewPoolSource() *PoolSource {
	return &PoolSource{Pools: make(map[string][]venue.PoolState)}
}

func (s *PoolSource) PoolsForPair(_ context.Context, mint, _ string) ([]venue.PoolState, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Pools[mint], nil
}

// CurveSource implements venue.CurveSource for testing.
type CurveSource struct {
	Curves map[string]*venue.CurveState // keyed by base mint
	Err    error

	// QuoteOut maps curve address to the raw quote-unit output returned
	// by SwapQuote. Missing entries quote 0, which callers treat as an
	// unusable quote.
	QuoteOut map[string]uint64
	QuoteErr error

	// LastQuotePoint records the currentPoint of the most recent
	// SwapQuote call, for activation-type assertions.
	LastQuotePoint int64
}

// NewCurveSource creates an empty stub curve source.
func NewCurveSource() *CurveSource {
	return &CurveSource{
		Curves:   make(map[string]*venue.CurveState),
		QuoteOut: make(map[string]uint64),
	}
}

func (s *CurveSource) CurveForBaseMint(_ context.Context, mint string) (*venue.CurveState, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Curves[mint], nil
}

func (s *CurveSource) SwapQuote(_ context.Context, state *venue.CurveState, _ uint64, currentPoint int64) (uint64, error) {
	s.LastQuotePoint = currentPoint
	if s.QuoteErr != nil {
		return 0, s.QuoteErr
	}
	return s.QuoteOut[state.Address], nil
}

var (
	_ venue.PoolSource  = (*PoolSource)(nil)
	_ venue.CurveSource = (*CurveSource)(nil)
)
