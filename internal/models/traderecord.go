package models

import "time"

// ExitReason enumerates why a position was closed.
type ExitReason string

// Exit reason values.
const (
	ExitProfitTarget   ExitReason = "profit_target"
	ExitStopLoss       ExitReason = "stop_loss"
	ExitDTE            ExitReason = "dte"
	ExitBreach         ExitReason = "breach"
	ExitUnderlyingMove ExitReason = "underlying_move"
	ExitExpired        ExitReason = "expired"
)

// TradeRecord is the immutable snapshot written to the trade log when a
// Position closes. Carries both entry and exit context so the performance
// analyzer and CSV export never need to rejoin against the live position.
type TradeRecord struct {
	ID                string         `json:"id"`
	StrategyID        string         `json:"strategy_id"`
	Legs              []Leg          `json:"legs"`
	EntryDate         time.Time      `json:"entry_date"`
	EntryUnderlying   float64        `json:"entry_underlying"`
	EntryVIX          float64        `json:"entry_vix"`
	EntryIVPercentile float64        `json:"entry_iv_percentile"`
	EntryPrice        float64        `json:"entry_price"`
	Contracts         int            `json:"contracts"`
	MaxProfit         float64        `json:"max_profit"`
	MaxLoss           float64        `json:"max_loss"`

	ExitDate         time.Time  `json:"exit_date"`
	ExitUnderlying   float64    `json:"exit_underlying"`
	ExitVIX          float64    `json:"exit_vix"`
	ExitIVPercentile float64    `json:"exit_iv_percentile"`
	ExitPrice        float64    `json:"exit_price"`
	ExitReason       ExitReason `json:"exit_reason"`

	PnL          float64 `json:"pnl"`
	Commission   float64 `json:"commission"`
	NetPnL       float64 `json:"net_pnl"`
	DaysInTrade  int     `json:"days_in_trade"`
}

// NewTradeRecord closes out pos as of the given exit context, computing
// days-in-trade and leaving PnL/NetPnL for the caller to fill in once
// commission is known (the simulator owns commission schedule lookup).
func NewTradeRecord(pos *Position, exitDate time.Time, exitUnderlying, exitVIX, exitIVPercentile, exitPrice float64, reason ExitReason) TradeRecord {
	return TradeRecord{
		ID:                pos.ID,
		StrategyID:        pos.StrategyID,
		Legs:              pos.Legs,
		EntryDate:         pos.EntryDate,
		EntryUnderlying:   pos.EntryUnderlying,
		EntryVIX:          pos.EntryVIX,
		EntryIVPercentile: pos.EntryIVPercentile,
		EntryPrice:        pos.EntryPrice,
		Contracts:         pos.Contracts,
		MaxProfit:         pos.MaxProfit,
		MaxLoss:           pos.MaxLoss,
		ExitDate:          exitDate,
		ExitUnderlying:    exitUnderlying,
		ExitVIX:           exitVIX,
		ExitIVPercentile:  exitIVPercentile,
		ExitPrice:         exitPrice,
		ExitReason:        reason,
		DaysInTrade:       int(exitDate.Sub(pos.EntryDate).Hours() / 24),
	}
}
