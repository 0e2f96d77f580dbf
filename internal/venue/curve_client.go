package venue

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"solana-token-indexer/internal/solana"
)

// Bonding curve account layout (anchor-style):
//
//	offset 0:   discriminator (8)
//	offset 8:   baseMint (32)
//	offset 40:  quoteMint (32)
//	offset 72:  baseReserve, u64 LE (8)
//	offset 80:  quoteReserve, u64 LE (8)
//	offset 88:  migrationQuoteThreshold, u64 LE (8)
//	offset 96:  activationPoint, i64 LE (8)
//	offset 104: activationType (1)
//	offset 105: baseDecimals (1)
//	offset 106: quoteDecimals (1)
const (
	curveBaseMintOff       = 8
	curveQuoteMintOff      = 40
	curveBaseReserveOff    = 72
	curveQuoteReserveOff   = 80
	curveMigThresholdOff   = 88
	curveActivationPtOff   = 96
	curveActivationTypeOff = 104
	curveBaseDecimalsOff   = 105
	curveQuoteDecimalsOff  = 106
	curveAccountMinLen     = curveQuoteDecimalsOff + 1
)

var curveDiscriminator = accountDiscriminator("BondingCurve")

// curveSeed prefixes the PDA derivation of a curve account.
var curveSeed = []byte("bonding-curve")

// CurveClient locates bonding-curve accounts by PDA derivation from the
// base mint and quotes swaps against the constant-product invariant. It
// implements CurveSource.
type CurveClient struct {
	chain   ChainReader
	program string
	logger  *zap.Logger
}

// NewCurveClient creates a curve source for the given curve program. A nil
// logger disables logging.
func NewCurveClient(chain ChainReader, program string, logger *zap.Logger) *CurveClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurveClient{chain: chain, program: program, logger: logger}
}

// CurveForBaseMint derives the curve PDA for mint and decodes its account.
// A missing account means the token has no active curve, which is the
// common case after migration.
func (c *CurveClient) CurveForBaseMint(ctx context.Context, mint string) (*CurveState, error) {
	mintRaw, err := solana.DecodePubkey(mint)
	if err != nil {
		return nil, err
	}

	address, err := solana.FindProgramAddress([][]byte{curveSeed, mintRaw}, c.program)
	if err != nil {
		return nil, fmt.Errorf("curve pda: %w", err)
	}

	info, err := c.chain.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("curve account %s: %w", address, err)
	}
	if info == nil || len(info.Data) == 0 {
		return nil, nil
	}

	state, err := decodeCurveAccount(address, info.Data)
	if err != nil {
		return nil, err
	}
	return state, nil
}

func decodeCurveAccount(pubkey string, data []byte) (*CurveState, error) {
	if len(data) < curveAccountMinLen {
		return nil, fmt.Errorf("curve account %s: %d bytes, want >= %d", pubkey, len(data), curveAccountMinLen)
	}
	if !bytes.Equal(data[:8], curveDiscriminator) {
		return nil, fmt.Errorf("curve account %s: wrong discriminator", pubkey)
	}

	state := &CurveState{
		Address:         pubkey,
		BaseMint:        base58.Encode(data[curveBaseMintOff : curveBaseMintOff+32]),
		QuoteMint:       base58.Encode(data[curveQuoteMintOff : curveQuoteMintOff+32]),
		BaseReserve:     binary.LittleEndian.Uint64(data[curveBaseReserveOff:]),
		QuoteReserve:    binary.LittleEndian.Uint64(data[curveQuoteReserveOff:]),
		ActivationPoint: int64(binary.LittleEndian.Uint64(data[curveActivationPtOff:])),
		BaseDecimals:    int(data[curveBaseDecimalsOff]),
		QuoteDecimals:   int(data[curveQuoteDecimalsOff]),
	}
	if data[curveActivationTypeOff] == byte(ActivationByTimestamp) {
		state.Activation = ActivationByTimestamp
	}

	// Progress is the quote reserve measured against the migration
	// threshold, capped at 1.
	threshold := binary.LittleEndian.Uint64(data[curveMigThresholdOff:])
	if threshold > 0 {
		progress := float64(state.QuoteReserve) / float64(threshold)
		if progress > 1 {
			progress = 1
		}
		state.Progress = &progress
	}
	return state, nil
}

// SwapQuote prices a base-for-quote swap against the constant-product
// invariant. The curve must be active at currentPoint; quoting an
// inactive curve is an error, not a zero price.
func (c *CurveClient) SwapQuote(_ context.Context, state *CurveState, amountIn uint64, currentPoint int64) (uint64, error) {
	if state == nil {
		return 0, fmt.Errorf("nil curve state")
	}
	if currentPoint < state.ActivationPoint {
		return 0, fmt.Errorf("curve %s not active until point %d", state.Address, state.ActivationPoint)
	}
	if state.BaseReserve == 0 || amountIn == 0 {
		return 0, fmt.Errorf("curve %s: empty reserve or zero input", state.Address)
	}

	// out = quoteReserve * amountIn / (baseReserve + amountIn), in raw
	// quote units. Computed in float64; reserves fit well inside the
	// 2^53 mantissa for any curve this tracks.
	out := float64(state.QuoteReserve) * float64(amountIn) / (float64(state.BaseReserve) + float64(amountIn))
	if out < 0 {
		return 0, fmt.Errorf("curve %s: negative quote", state.Address)
	}
	return uint64(out), nil
}

var _ CurveSource = (*CurveClient)(nil)
