// Package simulator drives the deterministic day-by-day backtest loop:
// reset, mark, check exits, update equity, attempt entries, advance. One
// pass over a sorted underlying bar series produces a trade log, an equity
// curve, and a daily entry log, grounded in the same single-threaded
// sequential trading-cycle shape the live bot used for one day's decisions,
// generalized here to replay a whole historical series instead of acting on
// one broker snapshot.
package simulator

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/gridiron/internal/apperrors"
	"github.com/eddiefleurent/gridiron/internal/chain"
	"github.com/eddiefleurent/gridiron/internal/models"
	"github.com/eddiefleurent/gridiron/internal/strategy"
)

// Config parameterizes one simulator run (backtest and position_sizing
// sections).
type Config struct {
	InitialEquity         float64
	CommissionPerContract float64
	MaxRiskPercent        float64
	ChainConfig           chain.Config
	Logger                *logrus.Logger
}

// Result is everything one Run call produces.
type Result struct {
	Trades      []models.TradeRecord
	EquityCurve []models.EquityPoint
	EntryLogs   []models.DailyEntryLog
	FinalEquity float64
}

// Simulator owns account state and the set of strategies trading against it.
type Simulator struct {
	cfg           Config
	strategies    []strategy.Strategy
	account       *account
	openPositions map[string][]*models.Position // keyed by strategy ID

	trades      []models.TradeRecord
	equityCurve []models.EquityPoint
	entryLogs   []models.DailyEntryLog

	log *logrus.Logger
}

// New constructs a Simulator over the given strategies, each trading
// independently against the shared account and risk budget.
func New(cfg Config, strategies []strategy.Strategy) *Simulator {
	log := cfg.Logger
	if log == nil {
		log = logrus.New()
	}
	return &Simulator{
		cfg:           cfg,
		strategies:    strategies,
		account:       newAccount(cfg.InitialEquity, cfg.MaxRiskPercent),
		openPositions: make(map[string][]*models.Position),
		log:           log,
	}
}

// Run replays bars in order, one trading day at a time, and returns the
// accumulated trade log, equity curve, and entry log. bars need not already
// carry iv_percentile/warm_up — Run computes those via
// chain.BuildUnderlyingSeries before simulating.
func (s *Simulator) Run(bars []models.UnderlyingBar) (*Result, error) {
	series, err := chain.BuildUnderlyingSeries(append([]models.UnderlyingBar(nil), bars...))
	if err != nil {
		return nil, fmt.Errorf("building underlying series: %w", err)
	}

	for _, bar := range series {
		quotes := chain.DayChain(bar, s.cfg.ChainConfig)
		idx := chain.BuildIndex(quotes)

		s.checkExits(bar, idx)
		s.markEquity(bar, idx)
		s.attemptEntries(bar, idx)
	}

	return &Result{
		Trades:      s.trades,
		EquityCurve: s.equityCurve,
		EntryLogs:   s.entryLogs,
		FinalEquity: s.account.equity,
	}, nil
}

// checkExits evaluates every open position against today's chain and closes
// any for which the owning strategy signals an exit.
func (s *Simulator) checkExits(bar models.UnderlyingBar, idx *chain.Index) {
	for _, strat := range s.strategies {
		id := strat.ID()
		open := s.openPositions[id]
		if len(open) == 0 {
			continue
		}

		kept := open[:0]
		for _, pos := range open {
			signal, err := strat.GenerateExit(pos, idx, bar)
			if err != nil {
				s.log.WithError(apperrors.NewStrategyError(id, "exit", err)).
					Warn("strategy exit evaluation failed; holding position")
				kept = append(kept, pos)
				continue
			}
			if signal == nil {
				kept = append(kept, pos)
				continue
			}
			s.closePosition(pos, bar, signal)
		}
		s.openPositions[id] = kept
	}
}

// closePosition realizes PnL, charges commission, and appends a TradeRecord.
func (s *Simulator) closePosition(pos *models.Position, bar models.UnderlyingBar, signal *strategy.ExitSignal) {
	pos.Status = models.StatusClosed

	gainPerShare := signal.MarkPrice - pos.EntryPrice
	pnl := gainPerShare * 100 * float64(pos.Contracts)
	commission := 2 * s.cfg.CommissionPerContract * float64(pos.Contracts*len(pos.Legs))
	netPnl := pnl - commission

	s.account.cash += pnl - commission
	s.account.committedRisk -= pos.MaxLoss * 100 * float64(pos.Contracts)
	if s.account.committedRisk < 0 {
		s.account.committedRisk = 0
	}

	record := models.NewTradeRecord(pos, bar.Date, bar.Close, bar.VIX, bar.IVPercentile, signal.MarkPrice, signal.Reason)
	record.PnL = pnl
	record.Commission = commission
	record.NetPnL = netPnl
	s.trades = append(s.trades, record)
}

// markEquity sums unrealized PnL across every open position and refreshes
// the account's equity curve point for today.
func (s *Simulator) markEquity(bar models.UnderlyingBar, idx *chain.Index) {
	positionsValue := 0.0
	for _, positions := range s.openPositions {
		for _, pos := range positions {
			mark, ok := strategy.MarkPosition(idx, pos, bar.Date, bar.Close)
			if !ok {
				if last, hasMark := pos.LastMark(); hasMark {
					mark = last
				}
			} else {
				pos.SetMark(mark)
			}
			positionsValue += (mark - pos.EntryPrice) * 100 * float64(pos.Contracts)
		}
	}

	s.account.markEquity(positionsValue)
	s.equityCurve = append(s.equityCurve, models.EquityPoint{
		Date:             bar.Date,
		Cash:             s.account.cash,
		PositionsValue:   positionsValue,
		TotalValue:       s.account.equity,
		DrawdownFromPeak: s.account.drawdownFromPeak(),
	})
}

// attemptEntries gives each strategy exactly one entry attempt this day,
// logging the outcome regardless of whether a position opened.
func (s *Simulator) attemptEntries(bar models.UnderlyingBar, idx *chain.Index) {
	for _, strat := range s.strategies {
		id := strat.ID()
		open := s.openPositions[id]

		entryLog := models.DailyEntryLog{Date: bar.Date, StrategyID: id, AttemptedEntry: true}

		signal, err := strat.GenerateEntry(idx, bar, open)
		if err != nil {
			s.log.WithError(apperrors.NewStrategyError(id, "entry", err)).
				Warn("strategy entry evaluation failed; skipping today")
			entryLog.EntryBlockedReason = models.BlockedEntryConditions
			s.entryLogs = append(s.entryLogs, entryLog)
			continue
		}
		if signal == nil {
			entryLog.EntryBlockedReason = models.BlockedEntryConditions
			s.entryLogs = append(s.entryLogs, entryLog)
			continue
		}

		contracts := strat.SizePosition(signal, strategy.AccountState{
			Equity:              s.account.equity,
			Cash:                s.account.cash,
			RiskBudgetRemaining: s.account.riskBudgetRemaining(),
		})
		if contracts <= 0 {
			entryLog.EntryBlockedReason = models.BlockedRiskBudget
			s.entryLogs = append(s.entryLogs, entryLog)
			continue
		}

		pos := &models.Position{
			ID:                uuid.NewString(),
			StrategyID:        id,
			Legs:              signal.Legs,
			EntryDate:         bar.Date,
			EntryUnderlying:   bar.Close,
			EntryVIX:          bar.VIX,
			EntryIVPercentile: bar.IVPercentile,
			EntryPrice:        signal.EntryPrice,
			Contracts:         contracts,
			MaxProfit:         signal.MaxProfit,
			MaxLoss:           signal.MaxLoss,
			StopLossPrice:     signal.StopLossPrice,
			ProfitTargetPrice: signal.ProfitTargetPrice,
			NearExpiration:    signal.NearExpiration,
			FarExpiration:     signal.FarExpiration,
			Status:            models.StatusOpen,
		}

		s.account.committedRisk += signal.MaxLoss * 100 * float64(contracts)

		s.openPositions[id] = append(s.openPositions[id], pos)
		entryLog.TradesEntered = 1
		s.entryLogs = append(s.entryLogs, entryLog)
	}
}
