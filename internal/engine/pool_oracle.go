package engine

import (
	"context"
	"math"
	"math/big"
	"sort"
	"sync"

	"go.uber.org/zap"

	"solana-token-indexer/internal/domain"
	"solana-token-indexer/internal/venue"
)

// scoredPool is one pool's reserve state oriented as token/reference.
type scoredPool struct {
	state    venue.PoolState
	tokenAmt float64 // ui balance of the token-side vault
	quoteAmt float64 // ui balance of the reference-side vault
	isA      bool    // token is the pool's A side
	score    float64 // reserve sum, ranking key
}

// evaluatePools computes price and liquidity for mint from its AMM pools
// against the reference asset. Pools are ranked by total reserve size and
// the top ones retained; the price comes from the best pool, with the
// sqrt-price field accepted only inside the sanity band around the
// vault-ratio price. All failures degrade to an empty result.
func (e *Engine) evaluatePools(ctx context.Context, mint string) OracleResult {
	states, err := e.pools.PoolsForPair(ctx, mint, e.cfg.ReferenceMint)
	if err != nil {
		e.logger.Warn("pool discovery failed",
			zap.String("mint", mint), zap.Error(err))
		return OracleResult{}
	}
	if len(states) == 0 {
		return OracleResult{}
	}
	if len(states) > e.cfg.PoolScanLimit {
		states = states[:e.cfg.PoolScanLimit]
	}

	scored := make([]scoredPool, len(states))
	var wg sync.WaitGroup
	for i := range states {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scored[i] = e.scorePool(ctx, mint, states[i])
		}(i)
	}
	wg.Wait()

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > e.cfg.MaxPoolsRetained {
		scored = scored[:e.cfg.MaxPoolsRetained]
	}

	// Decimals are needed only for sqrt-price conversion and are shared by
	// every pool of the pair.
	var (
		decToken, decRef   int
		decTokOK, decRefOK bool
	)
	for _, sp := range scored {
		if sp.state.SqrtPrice != nil {
			decToken, decTokOK = e.mintDecimals(ctx, mint)
			decRef, decRefOK = e.mintDecimals(ctx, e.cfg.ReferenceMint)
			break
		}
	}

	var (
		quotes    = make([]domain.PoolQuote, 0, len(scored))
		bestPrice Amount
		bestLiq   Amount
	)
	for i, sp := range scored {
		ratio := None()
		if sp.tokenAmt > 0 {
			ratio = Some(sp.quoteAmt / sp.tokenAmt)
		}

		price := ratio
		if decTokOK && decRefOK {
			decA, decB := decToken, decRef
			if !sp.isA {
				decA, decB = decRef, decToken
			}
			sqrt := sqrtPriceToPrice(sp.state.SqrtPrice, decA, decB, sp.isA)
			if withinBand(ratio, sqrt, e.cfg.SanityBandFactor) {
				price = sqrt
			}
		}
		if !price.Positive() {
			price = None()
		}

		liq := Some(sp.quoteAmt)
		if p, ok := price.Value(); ok {
			liq = Some(sp.quoteAmt + sp.tokenAmt*p)
		}

		quotes = append(quotes, domain.PoolQuote{
			Address:   sp.state.Address,
			TokenA:    mint,
			TokenB:    e.cfg.ReferenceMint,
			Price:     price.Ptr(),
			Liquidity: liq.val,
			Kind:      domain.PoolKindAMM,
		})

		if i == 0 {
			bestPrice, bestLiq = price, liq
		}
	}

	return OracleResult{Price: bestPrice, Liquidity: bestLiq, Pools: quotes}
}

// scorePool fetches both vault balances for one pool and orients them to
// the token/reference view. Unreadable vaults count as empty.
func (e *Engine) scorePool(ctx context.Context, mint string, state venue.PoolState) scoredPool {
	sp := scoredPool{state: state, isA: state.TokenAMint == mint}

	tokenVault, quoteVault := state.TokenAVault, state.TokenBVault
	if !sp.isA {
		tokenVault, quoteVault = state.TokenBVault, state.TokenAVault
	}

	sp.tokenAmt = e.vaultBalance(ctx, tokenVault)
	sp.quoteAmt = e.vaultBalance(ctx, quoteVault)
	sp.score = sp.tokenAmt + sp.quoteAmt
	return sp
}

func (e *Engine) vaultBalance(ctx context.Context, account string) float64 {
	bal, err := e.chain.GetTokenAccountBalance(ctx, account)
	if err != nil {
		e.logger.Warn("vault balance fetch failed",
			zap.String("account", account), zap.Error(err))
		return 0
	}
	return sanitize(bal)
}

func (e *Engine) mintDecimals(ctx context.Context, mint string) (int, bool) {
	info, err := e.chain.GetMintInfo(ctx, mint)
	if err != nil || info == nil || info.Decimals == nil {
		return 0, false
	}
	return *info.Decimals, true
}

// sqrtPriceToPrice converts a Q64.64 square-root price of tokenB per tokenA
// into a token-per-reference price: square the fixed-point value, adjust
// for the decimal gap, and invert when the token sits on the B side.
func sqrtPriceToPrice(sqrt *big.Int, decA, decB int, isA bool) Amount {
	if sqrt == nil || sqrt.Sign() <= 0 {
		return None()
	}
	q := new(big.Float).Quo(new(big.Float).SetInt(sqrt), big.NewFloat(math.Exp2(64)))
	squared, _ := new(big.Float).Mul(q, q).Float64()
	price := squared * math.Pow(10, float64(decA-decB))
	if !isA {
		if price == 0 {
			return None()
		}
		price = 1 / price
	}
	return Some(price)
}

// withinBand accepts a sqrt-derived candidate only when it is positive and
// lands inside the band around the vault-ratio price. With no vault-ratio
// price to compare against, any positive candidate passes.
func withinBand(ratio, candidate Amount, band float64) bool {
	if !candidate.Positive() {
		return false
	}
	if !ratio.Positive() {
		return true
	}
	r, _ := ratio.Value()
	c, _ := candidate.Value()
	return c > r/band && c < r*band
}
