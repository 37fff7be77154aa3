package models

import "time"

// Leg is one option contract within a position. Immutable for the life of
// the position once created at entry.
type Leg struct {
	Strike     float64    `json:"strike"`
	OptionType OptionType `json:"option_type"`
	Expiration time.Time  `json:"expiration"`
	Position   int        `json:"position"` // +1 long, -1 short
	EntryDelta float64    `json:"entry_delta"`
	EntryPrice float64    `json:"entry_price"`
}

// PositionStatus is the coarse open/closed lifecycle state exposed on
// Position Finer-grained management states (challenged/watch)
// live in the StateMachine, not here.
type PositionStatus string

// Position status values.
const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// Position is an open (or now-closed) multi-leg options position. Owned
// exclusively by the simulator's open-positions list until closed, at which
// point a TradeRecord snapshot is moved into the immutable trade log.
type Position struct {
	ID                string         `json:"id"`
	StrategyID        string         `json:"strategy_id"`
	Legs              []Leg          `json:"legs"` // 2 (vertical/calendar) or 4 (iron condor)
	EntryDate         time.Time      `json:"entry_date"`
	EntryUnderlying   float64        `json:"entry_underlying"`
	EntryVIX          float64        `json:"entry_vix"`
	EntryIVPercentile float64        `json:"entry_iv_percentile"`
	EntryPrice        float64        `json:"entry_price"` // net debit (>0) or credit (<0)
	Contracts         int            `json:"contracts"`
	MaxProfit         float64        `json:"max_profit"`
	MaxLoss           float64        `json:"max_loss"` // defined-risk, >0
	StopLossPrice     float64        `json:"stop_loss_price"`
	ProfitTargetPrice float64        `json:"profit_target_price"`
	NearExpiration    time.Time      `json:"near_expiration,omitempty"` // calendar spreads only
	FarExpiration     time.Time      `json:"far_expiration,omitempty"`  // calendar spreads only
	Status            PositionStatus `json:"status"`

	// currentMark is the last successfully computed mark-to-market spread
	// price, held across days when a leg quote is temporarily missing
	//
	currentMark float64
	hasMark     bool
}

// IsCredit reports whether the position was opened for a net credit.
func (p *Position) IsCredit() bool {
	return p.EntryPrice < 0
}

// SetMark records the latest successfully computed mark-to-market spread
// price for the position.
func (p *Position) SetMark(price float64) {
	p.currentMark = price
	p.hasMark = true
}

// LastMark returns the most recently recorded mark and whether one has ever
// been recorded (false only before the position's first marking pass).
func (p *Position) LastMark() (float64, bool) {
	return p.currentMark, p.hasMark
}

// DTE returns days-to-expiration as of asOf for the position's primary
// expiration (the near expiration for calendars, the single expiration for
// everything else).
func (p *Position) DTE(asOf time.Time) int {
	exp := p.PrimaryExpiration()
	dte := int(exp.Sub(asOf).Hours() / 24)
	if dte < 0 {
		return 0
	}
	return dte
}

// PrimaryExpiration returns the near expiration for calendar spreads, or the
// single shared expiration otherwise.
func (p *Position) PrimaryExpiration() time.Time {
	if !p.NearExpiration.IsZero() {
		return p.NearExpiration
	}
	if len(p.Legs) > 0 {
		return p.Legs[0].Expiration
	}
	return time.Time{}
}

// IVReading is a single historical implied-volatility sample. The chain
// generator does not use it: the IV-percentile window is built from
// UnderlyingBar.SpyIV.
type IVReading struct {
	Symbol    string    `json:"symbol"`
	Date      time.Time `json:"date"`
	IV        float64   `json:"iv"`
	Timestamp time.Time `json:"timestamp"`
}
