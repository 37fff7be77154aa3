package strategy

import (
	"fmt"

	"github.com/eddiefleurent/gridiron/internal/apperrors"
	"github.com/eddiefleurent/gridiron/internal/chain"
	"github.com/eddiefleurent/gridiron/internal/models"
	"github.com/eddiefleurent/gridiron/internal/pricing"
)

// VerticalKind identifies which of the four vertical-spread variants a
// VerticalStrategy implements
type VerticalKind string

// Vertical spread kinds.
const (
	BullPut  VerticalKind = "bull_put"  // credit: sell higher put, buy lower put
	BearCall VerticalKind = "bear_call" // credit: sell lower call, buy higher call
	BullCall VerticalKind = "bull_call" // debit: buy lower call, sell higher call
	BearPut  VerticalKind = "bear_put"  // debit: buy higher put, sell lower put
)

// isCredit reports whether kind opens for a net credit.
func (k VerticalKind) isCredit() bool {
	return k == BullPut || k == BearCall
}

// optionType returns the option type all legs of kind share.
func (k VerticalKind) optionType() models.OptionType {
	if k == BullPut || k == BearPut {
		return models.Put
	}
	return models.Call
}

// VerticalStrategy implements the four vertical credit/debit spreads behind
// a common entry/exit/sizing shape, grounded in the target-delta strike
// selection and exit-priority order the strangle strategy used for its
// single-expiration short premium structure.
type VerticalStrategy struct {
	id   string
	kind VerticalKind
	cfg  StrategyConfig
}

// NewVerticalStrategy constructs a VerticalStrategy for the given kind.
func NewVerticalStrategy(id string, kind VerticalKind, cfg StrategyConfig) *VerticalStrategy {
	return &VerticalStrategy{id: id, kind: kind, cfg: cfg}
}

// ID implements Strategy.
func (s *VerticalStrategy) ID() string { return s.id }

// GenerateEntry implements Strategy.
func (s *VerticalStrategy) GenerateEntry(idx *chain.Index, bar models.UnderlyingBar, openPositions []*models.Position) (*EntrySignal, error) {
	if !s.cfg.Enabled {
		return nil, nil
	}
	if len(openPositions) >= s.cfg.MaxPositions {
		return nil, nil
	}
	if bar.WarmUp {
		return nil, nil // reject during IV-percentile warm-up
	}
	if bar.IVPercentile < s.cfg.Entry.IVPercentileMin || bar.IVPercentile > s.cfg.Entry.IVPercentileMax {
		return nil, nil
	}

	exp, ok := pickExpirationInRange(idx, bar.Date, s.cfg.Entry.DTEMin, s.cfg.Entry.DTEMax)
	if !ok {
		return nil, nil
	}

	ot := s.kind.optionType()
	candidates := idx.Candidates(exp, ot, bar.Close)

	tol := s.cfg.Entry.DeltaTolerance
	shortStrike, ok := pricing.SolveStrikeForDelta(candidates, s.cfg.Entry.ShortDelta, tol)
	if !ok {
		return nil, nil
	}
	longStrike, ok := pricing.SolveStrikeForDelta(candidates, s.cfg.Entry.LongDelta, tol)
	if !ok || longStrike == shortStrike {
		return nil, nil
	}

	shortQ := idx.Lookup(exp, shortStrike, ot)
	longQ := idx.Lookup(exp, longStrike, ot)
	if shortQ == nil || longQ == nil {
		return nil, nil
	}

	// net price = sum(leg.position * leg.price); short leg is -1, long is +1.
	netPrice := -shortQ.Price + longQ.Price
	width := absF(longStrike - shortStrike)

	var entryPrice, maxProfit, maxLoss float64
	if s.kind.isCredit() {
		if netPrice >= 0 {
			return nil, nil // not actually a credit; skip
		}
		credit := -netPrice
		if credit < s.cfg.Entry.MinCredit || (s.cfg.Entry.MaxCredit > 0 && credit > s.cfg.Entry.MaxCredit) {
			return nil, nil
		}
		entryPrice = -credit
		maxProfit = credit
		maxLoss = width - credit
	} else {
		if netPrice <= 0 {
			return nil, nil
		}
		debit := netPrice
		if debit < s.cfg.Entry.MinDebit || (s.cfg.Entry.MaxDebit > 0 && debit > s.cfg.Entry.MaxDebit) {
			return nil, nil
		}
		entryPrice = debit
		maxProfit = width - debit
		maxLoss = debit
	}
	if maxLoss <= 0 {
		return nil, nil
	}

	shortPos, longPos := -1, 1
	legs := []models.Leg{
		{Strike: shortStrike, OptionType: ot, Expiration: exp, Position: shortPos, EntryDelta: shortQ.Delta, EntryPrice: shortQ.Price},
		{Strike: longStrike, OptionType: ot, Expiration: exp, Position: longPos, EntryDelta: longQ.Delta, EntryPrice: longQ.Price},
	}

	return &EntrySignal{
		Legs:              legs,
		EntryPrice:        entryPrice,
		MaxProfit:         maxProfit,
		MaxLoss:           maxLoss,
		StopLossPrice:     s.cfg.Exit.StopLoss,
		ProfitTargetPrice: s.cfg.Exit.ProfitTarget,
	}, nil
}

// GenerateExit implements Strategy. At DTE 0 the position settles as
// expired before any other check; otherwise the priority order is profit
// target, stop loss, DTE floor.
func (s *VerticalStrategy) GenerateExit(pos *models.Position, idx *chain.Index, bar models.UnderlyingBar) (*ExitSignal, error) {
	if pos.DTE(bar.Date) == 0 {
		mark, _ := markLegs(idx, pos.Legs, bar.Date, bar.Close)
		return &ExitSignal{Reason: models.ExitExpired, MarkPrice: mark}, nil
	}

	mark, ok := markLegs(idx, pos.Legs, bar.Date, bar.Close)
	if !ok {
		if last, hasMark := pos.LastMark(); hasMark {
			mark = last
		} else {
			return nil, apperrors.NewPricingError(fmt.Sprintf("no quote available for any leg of position %s", pos.ID))
		}
	}
	pos.SetMark(mark)

	// Economic profit is mark minus entry_price regardless of credit/debit
	// sign: both follow the same net-price convention (position-weighted sum
	// of leg prices), so closing at the same convention the entry used
	// always nets out to (mark - entry_price).
	gain := mark - pos.EntryPrice

	if pos.MaxProfit > 0 && gain >= s.cfg.Exit.ProfitTarget*pos.MaxProfit {
		return &ExitSignal{Reason: models.ExitProfitTarget, MarkPrice: mark}, nil
	}
	if pos.MaxLoss > 0 && -gain >= s.cfg.Exit.StopLoss*pos.MaxLoss {
		return &ExitSignal{Reason: models.ExitStopLoss, MarkPrice: mark}, nil
	}
	if pos.DTE(bar.Date) <= s.cfg.Exit.DTEMinExit {
		return &ExitSignal{Reason: models.ExitDTE, MarkPrice: mark}, nil
	}
	return nil, nil
}

// SizePosition implements Strategy.
func (s *VerticalStrategy) SizePosition(signal *EntrySignal, account AccountState) int {
	maxLossPerContract := signal.MaxLoss * 100
	return SizeContracts(s.cfg.Sizing, account.Equity, maxLossPerContract, account.RiskBudgetRemaining)
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
