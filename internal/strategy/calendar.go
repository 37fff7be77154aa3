package strategy

import (
	"time"

	"github.com/eddiefleurent/gridiron/internal/chain"
	"github.com/eddiefleurent/gridiron/internal/models"
	"github.com/eddiefleurent/gridiron/internal/pricing"
)

// CalendarKind distinguishes the call and put calendar variants. Both share
// the same shape: sell the near expiration, buy the far expiration, same
// strike.
type CalendarKind string

// Calendar kinds.
const (
	CallCalendar CalendarKind = "call_calendar"
	PutCalendar  CalendarKind = "put_calendar"
)

func (k CalendarKind) optionType() models.OptionType {
	if k == PutCalendar {
		return models.Put
	}
	return models.Call
}

// CalendarStrategy implements the call/put calendar spread: a short near-term
// option and a long far-term option at a shared strike, profiting from the
// near leg's faster theta decay. Grounded in the same target-delta candidate
// search vertical.go uses, generalized to a dual-expiration structure.
type CalendarStrategy struct {
	id  string
	kind CalendarKind
	cfg StrategyConfig
}

// NewCalendarStrategy constructs a CalendarStrategy for the given kind.
func NewCalendarStrategy(id string, kind CalendarKind, cfg StrategyConfig) *CalendarStrategy {
	return &CalendarStrategy{id: id, kind: kind, cfg: cfg}
}

// ID implements Strategy.
func (s *CalendarStrategy) ID() string { return s.id }

// pickExpirationInRange returns the expiration in idx closest to the center of
// [min,max] dte, or ok=false if none qualify.
func pickExpirationInRange(idx *chain.Index, asOf time.Time, min, max int) (time.Time, bool) {
	var best time.Time
	found := false
	bestDiff := -1
	target := (min + max) / 2

	for _, exp := range idx.Expirations() {
		dte := int(exp.Sub(asOf).Hours() / 24)
		if dte < min || dte > max {
			continue
		}
		diff := dte - target
		if diff < 0 {
			diff = -diff
		}
		if !found || diff < bestDiff {
			best, bestDiff, found = exp, diff, true
		}
	}
	return best, found
}

// GenerateEntry implements Strategy.
func (s *CalendarStrategy) GenerateEntry(idx *chain.Index, bar models.UnderlyingBar, openPositions []*models.Position) (*EntrySignal, error) {
	if !s.cfg.Enabled {
		return nil, nil
	}
	if len(openPositions) >= s.cfg.MaxPositions {
		return nil, nil
	}
	if bar.WarmUp {
		return nil, nil
	}
	if bar.IVPercentile < s.cfg.Entry.IVPercentileMin || bar.IVPercentile > s.cfg.Entry.IVPercentileMax {
		return nil, nil
	}

	nearMin, nearMax := effectiveNearDTERange(s.cfg.Entry)
	farMin, farMax := effectiveFarDTERange(s.cfg.Entry)

	nearExp, ok := pickExpirationInRange(idx, bar.Date, nearMin, nearMax)
	if !ok {
		return nil, nil
	}
	farExp, ok := pickExpirationInRange(idx, bar.Date, farMin, farMax)
	if !ok || !farExp.After(nearExp) {
		return nil, nil
	}

	ot := s.kind.optionType()
	strike, ok := s.selectStrike(idx, nearExp, bar.Close)
	if !ok {
		return nil, nil
	}

	nearQ := idx.Lookup(nearExp, strike, ot)
	farQ := idx.Lookup(farExp, strike, ot)
	if nearQ == nil || farQ == nil {
		return nil, nil
	}

	debit := -nearQ.Price + farQ.Price // short near, long far
	if debit <= 0 {
		return nil, nil
	}
	if debit < s.cfg.Entry.MinDebit || (s.cfg.Entry.MaxDebit > 0 && debit > s.cfg.Entry.MaxDebit) {
		return nil, nil
	}

	legs := []models.Leg{
		{Strike: strike, OptionType: ot, Expiration: nearExp, Position: -1, EntryDelta: nearQ.Delta, EntryPrice: nearQ.Price},
		{Strike: strike, OptionType: ot, Expiration: farExp, Position: 1, EntryDelta: farQ.Delta, EntryPrice: farQ.Price},
	}

	return &EntrySignal{
		Legs:              legs,
		EntryPrice:        debit,
		MaxProfit:         debit, // theoretical ceiling is model-dependent; the debit itself anchors the exit thresholds below
		MaxLoss:           debit,
		StopLossPrice:     s.cfg.Exit.StopLoss,
		ProfitTargetPrice: s.cfg.Exit.ProfitTarget,
		NearExpiration:    nearExp,
		FarExpiration:     farExp,
	}, nil
}

// selectStrike resolves the shared strike per the configured mode, using the
// near-expiration chain as the reference surface.
func (s *CalendarStrategy) selectStrike(idx *chain.Index, nearExp time.Time, spot float64) (float64, bool) {
	ot := s.kind.optionType()
	candidates := idx.Candidates(nearExp, ot, spot)
	if len(candidates) == 0 {
		return 0, false
	}

	switch s.cfg.Entry.StrikeSelection {
	case StrikeDelta:
		tol := s.cfg.Entry.DeltaTolerance
		return pricing.SolveStrikeForDelta(candidates, s.cfg.Entry.StrikeDelta, tol)
	case StrikeMoneyness:
		target := spot * (1 + s.cfg.Entry.StrikeMoneynessPct)
		best := candidates[0].Strike
		bestDiff := absF(best - target)
		for _, c := range candidates[1:] {
			if d := absF(c.Strike - target); d < bestDiff {
				bestDiff, best = d, c.Strike
			}
		}
		return best, true
	default: // StrikeATM
		best := candidates[0].Strike
		bestDiff := absF(best - spot)
		for _, c := range candidates[1:] {
			if d := absF(c.Strike - spot); d < bestDiff {
				bestDiff, best = d, c.Strike
			}
		}
		return best, true
	}
}

// GenerateExit implements Strategy. At or past the near-leg expiration the
// position settles as expired before any other check; otherwise the
// priority order is profit target (fraction of debit), stop loss (negative
// fraction of debit), near-leg DTE floor, excess underlying move away from
// strike.
func (s *CalendarStrategy) GenerateExit(pos *models.Position, idx *chain.Index, bar models.UnderlyingBar) (*ExitSignal, error) {
	nearDTE := int(pos.NearExpiration.Sub(bar.Date).Hours() / 24)
	if nearDTE <= 0 {
		mark, _ := markLegs(idx, pos.Legs, bar.Date, bar.Close)
		return &ExitSignal{Reason: models.ExitExpired, MarkPrice: mark}, nil
	}

	mark, ok := markLegs(idx, pos.Legs, bar.Date, bar.Close)
	if !ok {
		if last, hasMark := pos.LastMark(); hasMark {
			mark = last
		} else {
			return nil, nil
		}
	}
	pos.SetMark(mark)

	debit := pos.EntryPrice // always positive for calendars
	gain := mark - debit    // current value minus what was paid

	if gain >= s.cfg.Exit.ProfitTarget*debit {
		return &ExitSignal{Reason: models.ExitProfitTarget, MarkPrice: mark}, nil
	}
	if gain <= s.cfg.Exit.StopLoss*debit { // StopLoss is negative for calendars
		return &ExitSignal{Reason: models.ExitStopLoss, MarkPrice: mark}, nil
	}
	if nearDTE <= s.cfg.Exit.DTEMinExit {
		return &ExitSignal{Reason: models.ExitDTE, MarkPrice: mark}, nil
	}

	strike := pos.Legs[0].Strike
	if strike > 0 {
		move := absF(bar.Close-strike) / strike
		if move >= s.cfg.Exit.MaxUnderlyingMove {
			return &ExitSignal{Reason: models.ExitUnderlyingMove, MarkPrice: mark}, nil
		}
	}
	return nil, nil
}

// SizePosition implements Strategy.
func (s *CalendarStrategy) SizePosition(signal *EntrySignal, account AccountState) int {
	maxLossPerContract := signal.MaxLoss * 100
	return SizeContracts(s.cfg.Sizing, account.Equity, maxLossPerContract, account.RiskBudgetRemaining)
}
