package venue

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"solana-token-indexer/internal/solana"
)

// ChainReader is the raw account surface the RPC-backed sources need.
type ChainReader interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
	GetProgramAccounts(ctx context.Context, program string, opts *solana.ProgramAccountsOpts) ([]solana.ProgramAccount, error)
}

// AMM pool account layout (anchor-style):
//
//	offset 0:   discriminator (8)
//	offset 8:   tokenAMint (32)
//	offset 40:  tokenBMint (32)
//	offset 72:  tokenAVault (32)
//	offset 104: tokenBVault (32)
//	offset 136: sqrtPrice, Q64.64 u128 LE (16)
const (
	poolTokenAMintOff  = 8
	poolTokenBMintOff  = 40
	poolTokenAVaultOff = 72
	poolTokenBVaultOff = 104
	poolSqrtPriceOff   = 136
	poolAccountMinLen  = poolSqrtPriceOff + 16
)

// accountDiscriminator derives the 8-byte anchor account tag for a name.
func accountDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:8]
}

var poolDiscriminator = accountDiscriminator("Pool")

// AMMClient discovers AMM pools by scanning the pool program's accounts
// with memcmp filters on the mint pair. It implements PoolSource.
type AMMClient struct {
	chain   ChainReader
	program string
	logger  *zap.Logger
}

// NewAMMClient creates a pool source for the given AMM program. A nil
// logger disables logging.
func NewAMMClient(chain ChainReader, program string, logger *zap.Logger) *AMMClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMMClient{chain: chain, program: program, logger: logger}
}

// PoolsForPair scans for pools holding the pair in either orientation.
func (c *AMMClient) PoolsForPair(ctx context.Context, mint, quoteMint string) ([]PoolState, error) {
	mintRaw, err := solana.DecodePubkey(mint)
	if err != nil {
		return nil, err
	}
	quoteRaw, err := solana.DecodePubkey(quoteMint)
	if err != nil {
		return nil, err
	}

	var pools []PoolState
	seen := make(map[string]struct{})

	orientations := [][2][]byte{
		{mintRaw, quoteRaw},
		{quoteRaw, mintRaw},
	}
	for _, pair := range orientations {
		accounts, err := c.chain.GetProgramAccounts(ctx, c.program, &solana.ProgramAccountsOpts{
			MemCmp: []solana.MemCmp{
				{Offset: 0, Bytes: poolDiscriminator},
				{Offset: poolTokenAMintOff, Bytes: pair[0]},
				{Offset: poolTokenBMintOff, Bytes: pair[1]},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("pool scan: %w", err)
		}
		for _, acc := range accounts {
			if _, dup := seen[acc.Pubkey]; dup {
				continue
			}
			state, err := decodePoolAccount(acc.Pubkey, acc.Account.Data)
			if err != nil {
				c.logger.Warn("skipping undecodable pool account",
					zap.String("account", acc.Pubkey), zap.Error(err))
				continue
			}
			seen[acc.Pubkey] = struct{}{}
			pools = append(pools, state)
		}
	}
	return pools, nil
}

func decodePoolAccount(pubkey string, data []byte) (PoolState, error) {
	if len(data) < poolAccountMinLen {
		return PoolState{}, fmt.Errorf("pool account %s: %d bytes, want >= %d", pubkey, len(data), poolAccountMinLen)
	}

	state := PoolState{
		Address:     pubkey,
		TokenAMint:  base58.Encode(data[poolTokenAMintOff : poolTokenAMintOff+32]),
		TokenBMint:  base58.Encode(data[poolTokenBMintOff : poolTokenBMintOff+32]),
		TokenAVault: base58.Encode(data[poolTokenAVaultOff : poolTokenAVaultOff+32]),
		TokenBVault: base58.Encode(data[poolTokenBVaultOff : poolTokenBVaultOff+32]),
	}

	lo := binary.LittleEndian.Uint64(data[poolSqrtPriceOff : poolSqrtPriceOff+8])
	hi := binary.LittleEndian.Uint64(data[poolSqrtPriceOff+8 : poolSqrtPriceOff+16])
	if lo != 0 || hi != 0 {
		sqrt := new(big.Int).Lsh(new(big.Int).SetUint64(hi), 64)
		sqrt.Or(sqrt, new(big.Int).SetUint64(lo))
		state.SqrtPrice = sqrt
	}
	return state, nil
}

var _ PoolSource = (*AMMClient)(nil)
