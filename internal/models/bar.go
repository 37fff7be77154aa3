// Package models defines the data structures shared across the backtesting
// engine: underlying bars, option quotes, legs, positions, trade records,
// equity points, and daily entry logs
package models

import "time"

// UnderlyingBar is one day's closing price plus volatility context. One bar
// per trading day; iv_percentile is computed over the trailing 252 bars.
type UnderlyingBar struct {
	Date         time.Time `json:"date"`
	Close        float64   `json:"close"`
	VIX          float64   `json:"vix"`
	SpyIV        float64   `json:"spy_iv"`        // vix / 100
	IVPercentile float64   `json:"iv_percentile"` // [0,100]; see WarmUp
	WarmUp       bool      `json:"warm_up"`        // true for the first 252 bars, where IVPercentile is undefined
}

// OptionType distinguishes calls from puts at the data-model level. Kept
// distinct from pricing.OptionType so the data model has no dependency on
// the pricing package's internals.
type OptionType string

// Option type constants.
const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// OptionQuote is one row of a generated option chain: one per (quote_date,
// expiration, strike, option_type). Immutable once generated.
type OptionQuote struct {
	QuoteDate        time.Time  `json:"quote_date"`
	Expiration       time.Time  `json:"expiration"`
	Strike           float64    `json:"strike"`
	OptionType       OptionType `json:"option_type"`
	Price            float64    `json:"price"` // mid
	Bid              float64    `json:"bid"`
	Ask              float64    `json:"ask"`
	Delta            float64    `json:"delta"` // signed: call in (0,1), put in (-1,0)
	AbsDelta         float64    `json:"abs_delta"`
	Gamma            float64    `json:"gamma"`
	Theta            float64    `json:"theta"`
	Vega             float64    `json:"vega"`
	Rho              float64    `json:"rho"`
	IV               float64    `json:"iv"`
	DTE              int        `json:"dte"`
	UnderlyingPrice  float64    `json:"underlying_price"`
	VIX              float64    `json:"vix"`
	IVPercentile     float64    `json:"iv_percentile"`
}

// Key identifies an OptionQuote within a single day's chain by
// (expiration, strike, option_type) — the lookup tuplecalls for.
type Key struct {
	Expiration time.Time
	Strike     float64
	Type       OptionType
}
