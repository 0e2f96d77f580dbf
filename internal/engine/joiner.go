package engine

import (
	"math"

	"solana-token-indexer/internal/domain"
)

// Deltas aggregates one transaction's balance movement. Net and Gross are
// keyed by mint; ByOwner isolates each owner's exposure from pool/vault-side
// changes. Deltas are never merged across transactions.
type Deltas struct {
	// Records holds the merged (mint, accountIndex) pairs in first-seen
	// order.
	Records []domain.BalanceRecord

	// Net is the signed net ui-amount change per mint.
	Net map[string]float64

	// Gross is the sum of absolute per-account deltas per mint. It stays
	// meaningful when hop accounts cancel each other out of Net.
	Gross map[string]float64

	// ByOwner maps owner -> mint -> net ui-amount change across that
	// owner's accounts.
	ByOwner map[string]map[string]float64

	// mints preserves first-seen mint order so selection is deterministic.
	mints []string
}

// NetDelta returns the net change for mint, 0 when the mint was untouched.
func (d *Deltas) NetDelta(mint string) float64 {
	return d.Net[mint]
}

// OwnerDelta returns the net change for mint across owner's accounts.
func (d *Deltas) OwnerDelta(owner, mint string) float64 {
	if owner == "" {
		return 0
	}
	return d.ByOwner[owner][mint]
}

// balanceKey identifies one token account's balance entry across the pre
// and post snapshots.
type balanceKey struct {
	mint         string
	accountIndex int
}

// JoinBalances pairs pre- and post-transaction balance snapshots by
// (mint, accountIndex) and accumulates per-mint and per-owner deltas.
// Either side of a pair may be absent: a newly created account has no pre
// entry, a drained one may have no post entry; the missing side counts
// as 0. Malformed (NaN) amounts contribute 0. This never fails: the sum of
// all per-account deltas for a mint equals its net change in the
// transaction, assuming the snapshots are complete.
func JoinBalances(pre, post []domain.TokenBalance) *Deltas {
	merged := make(map[balanceKey]*domain.BalanceRecord, len(pre)+len(post))
	order := make([]balanceKey, 0, len(pre)+len(post))

	for _, b := range pre {
		key := balanceKey{mint: b.Mint, accountIndex: b.AccountIndex}
		rec, ok := merged[key]
		if !ok {
			rec = &domain.BalanceRecord{AccountIndex: b.AccountIndex, Mint: b.Mint}
			merged[key] = rec
			order = append(order, key)
		}
		rec.PreUiAmount = sanitize(b.UiAmount)
		if b.Owner != "" {
			rec.Owner = b.Owner
		}
	}

	for _, b := range post {
		key := balanceKey{mint: b.Mint, accountIndex: b.AccountIndex}
		rec, ok := merged[key]
		if !ok {
			rec = &domain.BalanceRecord{AccountIndex: b.AccountIndex, Mint: b.Mint}
			merged[key] = rec
			order = append(order, key)
		}
		rec.PostUiAmount = sanitize(b.UiAmount)
		if b.Owner != "" {
			rec.Owner = b.Owner
		}
	}

	d := &Deltas{
		Records: make([]domain.BalanceRecord, 0, len(order)),
		Net:     make(map[string]float64, len(order)),
		Gross:   make(map[string]float64, len(order)),
		ByOwner: make(map[string]map[string]float64),
	}

	for _, key := range order {
		rec := *merged[key]
		if rec.Mint == "" {
			continue
		}
		d.Records = append(d.Records, rec)

		delta := rec.Delta()
		if _, seen := d.Net[rec.Mint]; !seen {
			d.mints = append(d.mints, rec.Mint)
		}
		d.Net[rec.Mint] += delta
		d.Gross[rec.Mint] += math.Abs(delta)

		if rec.Owner != "" {
			inner := d.ByOwner[rec.Owner]
			if inner == nil {
				inner = make(map[string]float64)
				d.ByOwner[rec.Owner] = inner
			}
			inner[rec.Mint] += delta
		}
	}

	return d
}

// sanitize coerces malformed amounts to a 0 contribution.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
