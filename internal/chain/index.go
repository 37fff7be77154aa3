package chain

import (
	"sort"
	"time"

	"github.com/eddiefleurent/gridiron/internal/models"
	"github.com/eddiefleurent/gridiron/internal/pricing"
)

// strikeKey normalizes a strike to cents so float64 equality works reliably
// as a map key.
func strikeKey(strike float64) int64 {
	return int64(strike*100 + 0.5)
}

// expTypeKey identifies one (expiration, option_type) slice of the chain.
type expTypeKey struct {
	expiration time.Time
	optType    models.OptionType
}

// Index provides O(1) (expiration, strike, option_type) lookup for a single
// day's chain, plus sorted-strike slices per (expiration, type) for the
// target-delta solver
type Index struct {
	byKey    map[models.Key]*models.OptionQuote
	byExpType map[expTypeKey][]*models.OptionQuote // sorted by strike ascending
}

// BuildIndex constructs an Index over quotes. quotes must all share the same
// quote_date; the caller owns quotes' backing array and must not mutate it
// afterward.
func BuildIndex(quotes []models.OptionQuote) *Index {
	idx := &Index{
		byKey:     make(map[models.Key]*models.OptionQuote, len(quotes)),
		byExpType: make(map[expTypeKey][]*models.OptionQuote),
	}
	for i := range quotes {
		q := &quotes[i]
		key := models.Key{Expiration: q.Expiration, Strike: roundStrike(q.Strike), Type: q.OptionType}
		idx.byKey[key] = q

		etk := expTypeKey{expiration: q.Expiration, optType: q.OptionType}
		idx.byExpType[etk] = append(idx.byExpType[etk], q)
	}
	for k := range idx.byExpType {
		slice := idx.byExpType[k]
		sort.Slice(slice, func(i, j int) bool { return slice[i].Strike < slice[j].Strike })
		idx.byExpType[k] = slice
	}
	return idx
}

// roundStrike normalizes a strike for key comparisons (see strikeKey).
func roundStrike(strike float64) float64 {
	return float64(strikeKey(strike)) / 100.0
}

// Lookup returns the quote at (expiration, strike, type), or nil if absent.
func (idx *Index) Lookup(expiration time.Time, strike float64, t models.OptionType) *models.OptionQuote {
	return idx.byKey[models.Key{Expiration: expiration, Strike: roundStrike(strike), Type: t}]
}

// NearestStrike returns the quote at (expiration, type) whose strike is
// closest to target, used as a mark-to-market fallback when the exact strike
// is temporarily absent from the chain.
func (idx *Index) NearestStrike(expiration time.Time, t models.OptionType, target float64) *models.OptionQuote {
	slice := idx.byExpType[expTypeKey{expiration: expiration, optType: t}]
	if len(slice) == 0 {
		return nil
	}
	best := slice[0]
	bestDiff := absFloat(best.Strike - target)
	for _, q := range slice[1:] {
		if d := absFloat(q.Strike - target); d < bestDiff {
			bestDiff = d
			best = q
		}
	}
	return best
}

// Candidates returns pricing.Candidate values for every strike at
// (expiration, type), for use with pricing.SolveStrikeForDelta.
func (idx *Index) Candidates(expiration time.Time, t models.OptionType, spot float64) []pricing.Candidate {
	slice := idx.byExpType[expTypeKey{expiration: expiration, optType: t}]
	out := make([]pricing.Candidate, len(slice))
	for i, q := range slice {
		out[i] = pricing.Candidate{
			Strike:       q.Strike,
			AbsDelta:     q.AbsDelta,
			AbsMoneyness: absFloat(q.Strike - spot),
		}
	}
	return out
}

// Expirations returns the sorted, de-duplicated set of expirations present
// in the index.
func (idx *Index) Expirations() []time.Time {
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for k := range idx.byExpType {
		if _, ok := seen[k.expiration]; ok {
			continue
		}
		seen[k.expiration] = struct{}{}
		out = append(out, k.expiration)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
