package models

import "time"

// EquityPoint is one day's mark-to-market account snapshot.
type EquityPoint struct {
	Date            time.Time `json:"date"`
	Cash            float64   `json:"cash"`
	PositionsValue  float64   `json:"positions_value"`
	TotalValue      float64   `json:"total_value"`
	DrawdownFromPeak float64  `json:"drawdown_from_peak"` // >=0, fraction of peak
}

// EntryBlockedReason enumerates why a strategy skipped its one-entry-per-day
// attempt without opening a position.
type EntryBlockedReason string

// Entry-blocked reasons.
const (
	BlockedNone             EntryBlockedReason = ""
	BlockedNoSuitableStrike EntryBlockedReason = "no_suitable_strike"
	BlockedRiskBudget       EntryBlockedReason = "risk_budget_exceeded"
	BlockedEntryConditions  EntryBlockedReason = "entry_conditions_not_met"
	BlockedMaxPositions     EntryBlockedReason = "max_positions_open"
	BlockedDataGap          EntryBlockedReason = "data_gap"
)

// DailyEntryLog records, per strategy per day, whether entry was attempted
// and what happened. One row always exists per (day, strategy) pair so the
// "at most one entry attempt per strategy per day" invariant is
// directly auditable from the log.
type DailyEntryLog struct {
	Date                time.Time          `json:"date"`
	StrategyID          string             `json:"strategy_id"`
	AttemptedEntry      bool               `json:"attempted_entry"`
	TradesEntered       int                `json:"trades_entered"` // 0 or 1
	EntryBlockedReason  EntryBlockedReason `json:"entry_blocked_reason,omitempty"`
}
