package strategy

import "math"

// SizingMethod selects how a signal's contract count is computed
// (position_sizing.method).
type SizingMethod string

// Sizing methods.
const (
	SizingFixedRisk SizingMethod = "fixed"
	SizingKelly     SizingMethod = "kelly"
)

// DefaultMaxPositionSizePct is the hard cap on position size as a fraction of
// account equity, regardless of sizing method
const DefaultMaxPositionSizePct = 0.20

// SizingConfig holds the parameters for both sizing methods; only the
// fields relevant to the selected Method are consulted.
type SizingConfig struct {
	Method             SizingMethod `yaml:"method"`
	RiskPerTradePct    float64      `yaml:"risk_per_trade_pct"`    // fixed-risk: fraction of equity risked per trade
	KellyWinRate       float64      `yaml:"kelly_win_rate"`        // kelly: p
	KellyPayoffRatio   float64      `yaml:"kelly_payoff_ratio"`    // kelly: b
	KellyFraction      float64      `yaml:"kelly_pct"`             // kelly: fractional-Kelly multiplier, e.g. 0.25-0.5
	MaxPositionSizePct float64      `yaml:"max_position_size_pct"` // hard cap; 0 means DefaultMaxPositionSizePct
}

// SizeContracts computes the number of contracts for a position whose
// per-contract max loss is maxLossPerContract, given account equity and the
// portfolio's remaining risk budget (dollars). Returns 0 if no contracts can
// be safely opened.
func SizeContracts(cfg SizingConfig, equity, maxLossPerContract, riskBudgetRemaining float64) int {
	if maxLossPerContract <= 0 || equity <= 0 {
		return 0
	}

	var contracts int
	switch cfg.Method {
	case SizingKelly:
		contracts = kellyContracts(cfg, equity, maxLossPerContract)
	default:
		contracts = fixedRiskContracts(cfg, equity, maxLossPerContract)
	}

	capPct := cfg.MaxPositionSizePct
	if capPct <= 0 {
		capPct = DefaultMaxPositionSizePct
	}
	maxByCap := int(math.Floor((equity * capPct) / maxLossPerContract))
	if contracts > maxByCap {
		contracts = maxByCap
	}

	maxByBudget := int(math.Floor(riskBudgetRemaining / maxLossPerContract))
	if contracts > maxByBudget {
		contracts = maxByBudget
	}

	if contracts < 0 {
		return 0
	}
	return contracts
}

// fixedRiskContracts: contracts = floor((equity * risk_pct) / max_loss_per_contract).
func fixedRiskContracts(cfg SizingConfig, equity, maxLossPerContract float64) int {
	riskPct := cfg.RiskPerTradePct
	if riskPct <= 0 {
		return 0
	}
	riskDollars := equity * riskPct
	return int(math.Floor(riskDollars / maxLossPerContract))
}

// kellyContracts applies fractional Kelly: f* = (p*b - q)/b, contracts sized
// against f* * fraction * equity, floored at zero (never short the market by
// sizing negative).
func kellyContracts(cfg SizingConfig, equity, maxLossPerContract float64) int {
	p := cfg.KellyWinRate
	b := cfg.KellyPayoffRatio
	if b <= 0 {
		return 0
	}
	q := 1 - p
	fStar := (p*b - q) / b
	if fStar <= 0 {
		return 0
	}

	fraction := cfg.KellyFraction
	if fraction <= 0 {
		fraction = 1.0
	}
	riskDollars := equity * fStar * fraction
	return int(math.Floor(riskDollars / maxLossPerContract))
}
