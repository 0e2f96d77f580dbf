package engine

import "math"

// SelectPrimary picks the traded token of a transaction from its balance
// deltas. The magnitude pass prefers the largest absolute net delta among
// non-reference mints; when every non-reference net delta is zero it falls
// back to the largest gross flow, which survives hop accounts that cancel
// out of the net view. The reference mint is considered only when nothing
// else moved at all.
//
// Returns the primary mint and its net delta, or ("", 0) when the snapshots
// contain no usable signal. The returned delta may be zero when the mint
// was chosen by gross flow.
func SelectPrimary(d *Deltas, referenceMint string) (string, float64) {
	if d == nil {
		return "", 0
	}

	var (
		mint string
		net  float64
	)
	for _, m := range d.mints {
		if m == referenceMint {
			continue
		}
		if math.Abs(d.Net[m]) > math.Abs(net) {
			mint, net = m, d.Net[m]
		}
	}
	if mint == "" {
		for _, m := range d.mints {
			if math.Abs(d.Net[m]) > math.Abs(net) {
				mint, net = m, d.Net[m]
			}
		}
	}

	if mint == "" || mint == referenceMint || net == 0 {
		var (
			bestMint string
			bestFlow float64
		)
		for _, m := range d.mints {
			if m == referenceMint {
				continue
			}
			if d.Gross[m] > bestFlow {
				bestMint, bestFlow = m, d.Gross[m]
			}
		}
		if bestMint != "" {
			mint, net = bestMint, d.Net[bestMint]
		}
	}

	if mint == referenceMint {
		// Only the reference asset moved; there is no trade to attribute.
		return "", 0
	}
	return mint, net
}
