package chain

import (
	"math"
	"sort"
	"time"

	"github.com/eddiefleurent/gridiron/internal/apperrors"
	"github.com/eddiefleurent/gridiron/internal/models"
	"github.com/eddiefleurent/gridiron/internal/pricing"
	"github.com/eddiefleurent/gridiron/internal/util"
)

// ivWindow is the trailing lookback, in trading days, over which
// iv_percentile is computed
const ivWindow = 252

// Config controls chain generation
type Config struct {
	RiskFreeRate      float64 // r
	DividendYield     float64 // q
	MaxDTE            int     // widest expiration window to generate, in calendar days
	SpreadPct         float64 // proportional bid/ask spread around mid, e.g. 0.02
	MinSpread         float64 // floor for bid/ask spread in dollars, e.g. 0.05
	NearATMTick       float64 // strike increment within the near-ATM band, e.g. 1.0
	WingTick          float64 // strike increment in the wings, e.g. 5.0
	NearATMBandPct    float64 // half-width of the near-ATM band as a fraction of spot, e.g. 0.05
	StrikeRangePct    float64 // strike grid extends to ±this fraction of spot, e.g. 0.20
	Holidays          HolidayCalendar
}

// DefaultConfig returns the standard chain-generation parameters.
func DefaultConfig(cal HolidayCalendar) Config {
	return Config{
		RiskFreeRate:   0.04,
		DividendYield:  0.015,
		MaxDTE:         60,
		SpreadPct:      0.02,
		MinSpread:      0.05,
		NearATMTick:    1.0,
		WingTick:       5.0,
		NearATMBandPct: 0.05,
		StrikeRangePct: 0.20,
		Holidays:       cal,
	}
}

// BuildUnderlyingSeries annotates raw (date, close, vix) bars with spy_iv and
// iv_percentile, in place order, assuming bars are already sorted ascending
// by date. Mutates and returns the same slice for chaining.
func BuildUnderlyingSeries(bars []models.UnderlyingBar) ([]models.UnderlyingBar, error) {
	if len(bars) == 0 {
		return bars, nil
	}
	for i := range bars {
		if i > 0 && !bars[i].Date.After(bars[i-1].Date) {
			return nil, apperrors.NewDataError("underlying_bars", "dates must be strictly ascending")
		}
		bars[i].SpyIV = bars[i].VIX / 100.0
	}

	for i := range bars {
		if i < ivWindow {
			bars[i].WarmUp = true
			bars[i].IVPercentile = 0
			continue
		}
		window := bars[i-ivWindow : i]
		below := 0
		for _, b := range window {
			if b.SpyIV < bars[i].SpyIV {
				below++
			}
		}
		bars[i].IVPercentile = 100.0 * float64(below) / float64(len(window))
		bars[i].WarmUp = false
	}
	return bars, nil
}

// strikeGrid returns the ascending list of strikes for a day's chain: $1
// increments within NearATMBandPct of spot, $5 increments in the wings, out
// to ±StrikeRangePct of spot.
func strikeGrid(spot float64, cfg Config) []float64 {
	lo := spot * (1 - cfg.StrikeRangePct)
	hi := spot * (1 + cfg.StrikeRangePct)
	bandLo := spot * (1 - cfg.NearATMBandPct)
	bandHi := spot * (1 + cfg.NearATMBandPct)

	seen := make(map[float64]struct{})
	var out []float64
	add := func(k float64) {
		k = util.RoundToTick(k, 0.01)
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	for k := util.CeilToTick(lo, cfg.WingTick); k < bandLo; k += cfg.WingTick {
		add(k)
	}
	for k := util.FloorToTick(bandLo, cfg.NearATMTick); k <= bandHi; k += cfg.NearATMTick {
		add(k)
	}
	for k := util.FloorToTick(bandHi, cfg.WingTick) + cfg.WingTick; k <= hi; k += cfg.WingTick {
		add(k)
	}

	sort.Float64s(out)
	return out
}

// businessDaysBetween counts weekdays after quoteDate up to and including
// expiration (exclusive of quoteDate), used as the dte annotation
func businessDaysBetween(quoteDate, expiration time.Time) int {
	if !expiration.After(quoteDate) {
		return 0
	}
	count := 0
	d := quoteDate.Truncate(24 * time.Hour)
	end := expiration.Truncate(24 * time.Hour)
	for d.Before(end) {
		d = d.AddDate(0, 0, 1)
		if !isWeekend(d) {
			count++
		}
	}
	return count
}

// bidAsk derives bid/ask from mid with a proportional spread floored at
// MinSpread, rounded to the cent.
func bidAsk(mid float64, cfg Config) (bid, ask float64) {
	spread := math.Max(mid*cfg.SpreadPct, cfg.MinSpread)
	bid = util.FloorToTick(mid-spread/2, 0.01)
	ask = util.CeilToTick(mid+spread/2, 0.01)
	if bid < 0 {
		bid = 0
	}
	return bid, ask
}

// DayChain generates the full option chain (all expirations, strikes,
// {call,put}) for a single trading day, noon-stamped.
func DayChain(bar models.UnderlyingBar, cfg Config) []models.OptionQuote {
	quoteDate := time.Date(bar.Date.Year(), bar.Date.Month(), bar.Date.Day(), 12, 0, 0, 0, time.UTC)
	expirations := ExpirationsInWindow(quoteDate, cfg.MaxDTE, cfg.Holidays)
	strikes := strikeGrid(bar.Close, cfg)
	vol := bar.SpyIV

	quotes := make([]models.OptionQuote, 0, len(expirations)*len(strikes)*2)
	for _, exp := range expirations {
		tYears := float64(businessDaysBetween(quoteDate, exp)) / 252.0
		if tYears <= 0 {
			tYears = float64(exp.Sub(quoteDate).Hours()) / (365.0 * 24.0)
			if tYears < 0 {
				tYears = 0
			}
		}
		dte := businessDaysBetween(quoteDate, exp)

		for _, strike := range strikes {
			for _, ot := range []pricing.OptionType{pricing.Call, pricing.Put} {
				out, err := pricing.BSM(ot, bar.Close, strike, tYears, vol, cfg.RiskFreeRate, cfg.DividendYield)
				if err != nil {
					continue
				}
				mid := util.RoundToTick(out.Price, 0.01)
				bid, ask := bidAsk(mid, cfg)

				modelType := models.Call
				if ot == pricing.Put {
					modelType = models.Put
				}

				quotes = append(quotes, models.OptionQuote{
					QuoteDate:       quoteDate,
					Expiration:      exp,
					Strike:          strike,
					OptionType:      modelType,
					Price:           mid,
					Bid:             bid,
					Ask:             ask,
					Delta:           out.Delta,
					AbsDelta:        math.Abs(out.Delta),
					Gamma:           out.Gamma,
					Theta:           out.Theta,
					Vega:            out.Vega,
					Rho:             out.Rho,
					IV:              vol,
					DTE:             dte,
					UnderlyingPrice: bar.Close,
					VIX:             bar.VIX,
					IVPercentile:    bar.IVPercentile,
				})
			}
		}
	}
	return quotes
}
