// Package strategy implements the closed set of multi-leg options
// strategies the simulator drives: vertical spreads, calendar spreads, and
// the iron condor. Each exposes GenerateEntry/GenerateExit/SizePosition,
// mirroring the strangle strategy's entry/exit/size split it is grounded on.
package strategy

import (
	"time"

	"github.com/eddiefleurent/gridiron/internal/chain"
	"github.com/eddiefleurent/gridiron/internal/models"
)

// EntrySignal carries the full leg specification needed to create a Position.
type EntrySignal struct {
	Legs              []models.Leg
	EntryPrice         float64 // net debit (>0) or credit (<0)
	MaxProfit          float64
	MaxLoss            float64
	StopLossPrice      float64
	ProfitTargetPrice  float64
	NearExpiration     time.Time
	FarExpiration      time.Time
}

// ExitSignal carries the reason an open position should be closed and the
// price at which it marks right now.
type ExitSignal struct {
	Reason     models.ExitReason
	MarkPrice  float64
}

// AccountState is the subset of simulator account bookkeeping a strategy
// needs to size a position
type AccountState struct {
	Equity             float64
	Cash               float64
	RiskBudgetRemaining float64 // dollars still available under max_risk_percent
}

// Strategy is the common interface every multi-leg strategy implements
// Variants are a closed set, dispatched statically — no
// runtime plugin loading.
type Strategy interface {
	// ID returns the strategy's configured identifier, used as Position.StrategyID.
	ID() string

	// GenerateEntry evaluates today's chain and underlying bar and returns an
	// entry signal, or nil if no signal fires. openPositions is the set of
	// positions currently held by this strategy (used to respect per-strategy
	// position caps).
	GenerateEntry(idx *chain.Index, bar models.UnderlyingBar, openPositions []*models.Position) (*EntrySignal, error)

	// GenerateExit evaluates an open position against today's chain and
	// returns an exit signal, or nil if the position should stay open.
	GenerateExit(pos *models.Position, idx *chain.Index, bar models.UnderlyingBar) (*ExitSignal, error)

	// SizePosition converts a signal into a contract count, applying the
	// strategy's configured sizing method and the portfolio risk budget.
	SizePosition(signal *EntrySignal, account AccountState) int
}
