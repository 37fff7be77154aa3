package strategy

import (
	"github.com/eddiefleurent/gridiron/internal/chain"
	"github.com/eddiefleurent/gridiron/internal/models"
	"github.com/eddiefleurent/gridiron/internal/pricing"
)

// IronCondorStrategy implements the four-leg iron condor: a short put
// spread and a short call spread sharing one expiration, collecting credit
// from both sides and defined-risk by the wider of the two wing widths.
// Grounded in the vertical spread's strike-solving and exit-priority
// pattern, doubled onto both sides of the chain.
type IronCondorStrategy struct {
	id  string
	cfg StrategyConfig
}

// NewIronCondorStrategy constructs an IronCondorStrategy.
func NewIronCondorStrategy(id string, cfg StrategyConfig) *IronCondorStrategy {
	return &IronCondorStrategy{id: id, cfg: cfg}
}

// ID implements Strategy.
func (s *IronCondorStrategy) ID() string { return s.id }

// GenerateEntry implements Strategy.
func (s *IronCondorStrategy) GenerateEntry(idx *chain.Index, bar models.UnderlyingBar, openPositions []*models.Position) (*EntrySignal, error) {
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

	exp, ok := pickExpirationInRange(idx, bar.Date, s.cfg.Entry.DTEMin, s.cfg.Entry.DTEMax)
	if !ok {
		return nil, nil
	}

	tol := s.cfg.Entry.DeltaTolerance
	putCandidates := idx.Candidates(exp, models.Put, bar.Close)
	callCandidates := idx.Candidates(exp, models.Call, bar.Close)

	shortPutStrike, ok := pricing.SolveStrikeForDelta(putCandidates, s.cfg.Entry.ShortPutDelta, tol)
	if !ok {
		return nil, nil
	}
	longPutStrike, ok := pricing.SolveStrikeForDelta(putCandidates, s.cfg.Entry.LongPutDelta, tol)
	if !ok || longPutStrike >= shortPutStrike {
		return nil, nil
	}
	shortCallStrike, ok := pricing.SolveStrikeForDelta(callCandidates, s.cfg.Entry.ShortCallDelta, tol)
	if !ok {
		return nil, nil
	}
	longCallStrike, ok := pricing.SolveStrikeForDelta(callCandidates, s.cfg.Entry.LongCallDelta, tol)
	if !ok || longCallStrike <= shortCallStrike {
		return nil, nil
	}

	shortPutQ := idx.Lookup(exp, shortPutStrike, models.Put)
	longPutQ := idx.Lookup(exp, longPutStrike, models.Put)
	shortCallQ := idx.Lookup(exp, shortCallStrike, models.Call)
	longCallQ := idx.Lookup(exp, longCallStrike, models.Call)
	if shortPutQ == nil || longPutQ == nil || shortCallQ == nil || longCallQ == nil {
		return nil, nil
	}

	netPrice := -shortPutQ.Price + longPutQ.Price - shortCallQ.Price + longCallQ.Price
	if netPrice >= 0 {
		return nil, nil
	}
	credit := -netPrice
	if credit < s.cfg.Entry.MinCreditTotal {
		return nil, nil
	}

	putWidth := shortPutStrike - longPutStrike
	callWidth := longCallStrike - shortCallStrike
	wingWidth := putWidth
	if callWidth > wingWidth {
		wingWidth = callWidth
	}
	if s.cfg.Entry.MaxWingWidth > 0 && wingWidth > s.cfg.Entry.MaxWingWidth {
		return nil, nil
	}

	maxLoss := wingWidth - credit
	if maxLoss <= 0 {
		return nil, nil
	}

	legs := []models.Leg{
		{Strike: shortPutStrike, OptionType: models.Put, Expiration: exp, Position: -1, EntryDelta: shortPutQ.Delta, EntryPrice: shortPutQ.Price},
		{Strike: longPutStrike, OptionType: models.Put, Expiration: exp, Position: 1, EntryDelta: longPutQ.Delta, EntryPrice: longPutQ.Price},
		{Strike: shortCallStrike, OptionType: models.Call, Expiration: exp, Position: -1, EntryDelta: shortCallQ.Delta, EntryPrice: shortCallQ.Price},
		{Strike: longCallStrike, OptionType: models.Call, Expiration: exp, Position: 1, EntryDelta: longCallQ.Delta, EntryPrice: longCallQ.Price},
	}

	return &EntrySignal{
		Legs:              legs,
		EntryPrice:        -credit,
		MaxProfit:         credit,
		MaxLoss:           maxLoss,
		StopLossPrice:     s.cfg.Exit.StopLoss,
		ProfitTargetPrice: s.cfg.Exit.ProfitTarget,
	}, nil
}

// nearestShortStrike returns whichever of the two short strikes is closer to
// spot, used to evaluate breach distance.
func nearestShortStrike(pos *models.Position, spot float64) float64 {
	best := pos.Legs[0].Strike
	bestDiff := absF(best - spot)
	for _, leg := range pos.Legs {
		if leg.Position != -1 {
			continue
		}
		if d := absF(leg.Strike - spot); d < bestDiff {
			bestDiff, best = d, leg.Strike
		}
	}
	return best
}

// GenerateExit implements Strategy. Priority order profit
// target, stop loss, DTE floor, breach of either short strike's watch band.
func (s *IronCondorStrategy) GenerateExit(pos *models.Position, idx *chain.Index, bar models.UnderlyingBar) (*ExitSignal, error) {
	if pos.DTE(bar.Date) == 0 {
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

	gain := mark - pos.EntryPrice // same net-price convention as entry; see vertical.go

	if pos.MaxProfit > 0 && gain >= s.cfg.Exit.ProfitTarget*pos.MaxProfit {
		return &ExitSignal{Reason: models.ExitProfitTarget, MarkPrice: mark}, nil
	}
	if pos.MaxLoss > 0 && -gain >= s.cfg.Exit.StopLoss*pos.MaxLoss {
		return &ExitSignal{Reason: models.ExitStopLoss, MarkPrice: mark}, nil
	}
	if pos.DTE(bar.Date) <= s.cfg.Exit.DTEMinExit {
		return &ExitSignal{Reason: models.ExitDTE, MarkPrice: mark}, nil
	}

	nearest := nearestShortStrike(pos, bar.Close)
	if nearest > 0 {
		distance := absF(bar.Close-nearest) / nearest
		if distance <= s.cfg.Exit.BreachThreshold {
			return &ExitSignal{Reason: models.ExitBreach, MarkPrice: mark}, nil
		}
	}
	return nil, nil
}

// SizePosition implements Strategy.
func (s *IronCondorStrategy) SizePosition(signal *EntrySignal, account AccountState) int {
	maxLossPerContract := signal.MaxLoss * 100
	return SizeContracts(s.cfg.Sizing, account.Equity, maxLossPerContract, account.RiskBudgetRemaining)
}
