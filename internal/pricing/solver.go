package pricing

import "math"

// DefaultDeltaTolerance is the default tolerance (tau) used by
// SolveStrikeForDelta when a strategy does not override it.
const DefaultDeltaTolerance = 0.05

// Candidate is one strike's absolute delta and its distance from ATM, used
// to break ties among equally-close deltas.
type Candidate struct {
	Strike       float64
	AbsDelta     float64
	AbsMoneyness float64 // |strike - spot|, used only to break ties
}

// SolveStrikeForDelta returns the candidate strike whose absolute delta is
// closest to targetAbsDelta, provided the minimum |delta - target| is within
// tolerance. Ties (equal |delta-target| within floating point epsilon) break
// toward the strike closer to ATM. Returns ok=false if no candidate is
// within tolerance, signaling "no suitable strike" — callers
// must skip entry in that case.
func SolveStrikeForDelta(candidates []Candidate, targetAbsDelta, tolerance float64) (strike float64, ok bool) {
	if tolerance <= 0 {
		tolerance = DefaultDeltaTolerance
	}

	bestDiff := math.Inf(1)
	bestMoneyness := math.Inf(1)
	found := false

	for _, c := range candidates {
		diff := math.Abs(c.AbsDelta - targetAbsDelta)
		switch {
		case diff < bestDiff-1e-12:
			bestDiff = diff
			bestMoneyness = c.AbsMoneyness
			strike = c.Strike
			found = true
		case math.Abs(diff-bestDiff) <= 1e-12:
			if c.AbsMoneyness < bestMoneyness {
				bestMoneyness = c.AbsMoneyness
				strike = c.Strike
			}
			found = true
		}
	}

	if !found || bestDiff > tolerance {
		return 0, false
	}
	return strike, true
}
