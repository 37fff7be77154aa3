package strategy

import (
	"time"

	"github.com/eddiefleurent/gridiron/internal/chain"
	"github.com/eddiefleurent/gridiron/internal/models"
)

// intrinsicValue returns a single leg's settlement value if the underlying
// were at spot and the leg had already expired.
func intrinsicValue(leg models.Leg, spot float64) float64 {
	if leg.OptionType == models.Call {
		return maxF(0, spot-leg.Strike)
	}
	return maxF(0, leg.Strike-spot)
}

// markLeg returns one leg's current per-share value: intrinsic if its
// expiration has passed asOf, otherwise its live chain quote (falling back to
// the nearest available strike failure semantics).
func markLeg(idx *chain.Index, leg models.Leg, asOf time.Time, spot float64) (float64, bool) {
	if !leg.Expiration.After(asOf) {
		return intrinsicValue(leg, spot), true
	}
	q := idx.Lookup(leg.Expiration, leg.Strike, leg.OptionType)
	if q == nil {
		q = idx.NearestStrike(leg.Expiration, leg.OptionType, leg.Strike)
	}
	if q == nil {
		return 0, false
	}
	return q.Price, true
}

// markLegs sums position-signed leg values as of asOf with spot as the
// underlying settlement price for any already-expired leg. ok is false only
// if a still-live leg has no quote anywhere in the chain.
func markLegs(idx *chain.Index, legs []models.Leg, asOf time.Time, spot float64) (total float64, ok bool) {
	for _, leg := range legs {
		v, found := markLeg(idx, leg, asOf, spot)
		if !found {
			return 0, false
		}
		total += float64(leg.Position) * v
	}
	return total, true
}

// MarkPosition computes a position's current net price using the same
// position-signed convention GenerateEntry's EntryPrice uses, so callers
// outside this package (the simulator, marking every open position daily)
// can derive unrealized PnL as (mark - pos.EntryPrice) without knowing which
// strategy variant opened it.
func MarkPosition(idx *chain.Index, pos *models.Position, asOf time.Time, spot float64) (float64, bool) {
	return markLegs(idx, pos.Legs, asOf, spot)
}
