package strategy

import "github.com/eddiefleurent/gridiron/internal/apperrors"

// StrikeSelectionMode controls how a calendar spread's shared strike is
// chosen
type StrikeSelectionMode string

// Strike selection modes.
const (
	StrikeATM       StrikeSelectionMode = "atm"
	StrikeDelta     StrikeSelectionMode = "delta"
	StrikeMoneyness StrikeSelectionMode = "moneyness"
)

// EntryConfig holds every entry-side parameter any strategy variant reads;
// a given variant only consults the subset relevant to its structure. One
// shared struct (rather than one type per strategy) keeps the optimizer's
// routing table simple: one section, many keys.
type EntryConfig struct {
	DTEMin          int     `yaml:"dte_min"`
	DTEMax          int     `yaml:"dte_max"`
	IVPercentileMin float64 `yaml:"iv_percentile_min"`
	IVPercentileMax float64 `yaml:"iv_percentile_max"`
	DeltaTolerance  float64 `yaml:"delta_tolerance"` // tau, default pricing.DefaultDeltaTolerance

	// Verticals
	ShortDelta float64 `yaml:"short_delta"`
	LongDelta  float64 `yaml:"long_delta"`
	MinCredit  float64 `yaml:"min_credit"`
	MaxCredit  float64 `yaml:"max_credit"`
	MinDebit   float64 `yaml:"min_debit"`
	MaxDebit   float64 `yaml:"max_debit"`

	// Calendars: center+/-tolerance mode
	NearDTE      int `yaml:"near_dte"`
	FarDTE       int `yaml:"far_dte"`
	DTETolerance int `yaml:"dte_tolerance"`
	// Calendars: explicit min/max mode — wins over center+/-tolerance when set
	NearDTEMin int `yaml:"near_dte_min"`
	NearDTEMax int `yaml:"near_dte_max"`
	FarDTEMin  int `yaml:"far_dte_min"`
	FarDTEMax  int `yaml:"far_dte_max"`

	StrikeSelection    StrikeSelectionMode `yaml:"strike_selection"`
	StrikeDelta        float64             `yaml:"strike_delta"`
	StrikeMoneynessPct float64             `yaml:"strike_moneyness_pct"`

	// Iron condor
	ShortPutDelta  float64 `yaml:"short_put_delta"`
	LongPutDelta   float64 `yaml:"long_put_delta"`
	ShortCallDelta float64 `yaml:"short_call_delta"`
	LongCallDelta  float64 `yaml:"long_call_delta"`
	MinCreditTotal float64 `yaml:"min_credit_total"`
	MaxWingWidth   float64 `yaml:"max_wing_width"`
}

// ExitConfig holds every exit-side parameter any strategy variant reads.
type ExitConfig struct {
	ProfitTarget      float64 `yaml:"profit_target"`      // fraction of max_profit (verticals/condor) or of debit (calendar)
	StopLoss          float64 `yaml:"stop_loss"`           // fraction of max_loss (verticals/condor); NEGATIVE fraction of debit (calendar)
	DTEMinExit        int     `yaml:"dte_min_exit"`        // exit once DTE (or near-leg DTE) <= this
	MaxUnderlyingMove float64 `yaml:"max_underlying_move"` // calendar: fraction away from strike
	BreachThreshold   float64 `yaml:"breach_threshold"`    // iron condor: fraction distance to short strike
}

// StrategyConfig is one `strategies.<name>` section
type StrategyConfig struct {
	Name    string `yaml:"-"` // set from the strategies map key, not decoded
	Kind    string `yaml:"kind"` // "bull_put", "bear_call", "bull_call", "bear_put", "call_calendar", "put_calendar", "iron_condor"
	Enabled bool   `yaml:"enabled"`

	Entry  EntryConfig  `yaml:"entry"`
	Exit   ExitConfig   `yaml:"exit"`
	Sizing SizingConfig `yaml:"sizing"`

	Contracts int `yaml:"contracts"` // decoded but not read by any strategy; contract counts always come from Sizing
	// MaxPositions caps concurrently open positions for this strategy. Zero
	// means zero, not "unlimited". config.Normalize replaces a zero with
	// position_sizing.max_positions; a strategy whose value is still zero
	// after that opens no positions.
	MaxPositions int `yaml:"max_positions"`
}

// Validate checks the structural invariants that require a ConfigError.
func (c StrategyConfig) Validate() error {
	if c.Entry.DTEMin > 0 && c.Entry.DTEMax > 0 && c.Entry.DTEMin > c.Entry.DTEMax {
		return apperrors.NewConfigError("strategies."+c.Name+".entry.dte_min", "dte_min must be <= dte_max")
	}
	if isCalendarKind(c.Kind) && c.Exit.StopLoss >= 0 {
		return apperrors.NewConfigError("strategies."+c.Name+".exit.stop_loss",
			"calendar stop_loss must be a negative fraction of the entry debit")
	}
	if !isCalendarKind(c.Kind) && c.Exit.StopLoss < 0 {
		return apperrors.NewConfigError("strategies."+c.Name+".exit.stop_loss",
			"stop_loss must be a non-negative fraction of max_loss")
	}
	return nil
}

func isCalendarKind(kind string) bool {
	return kind == "call_calendar" || kind == "put_calendar"
}

// effectiveNearDTERange resolves the calendar dual-DTE-config rule: if
// either min or max is specified, min/max wins; otherwise center+/-tolerance
// is used
func effectiveNearDTERange(e EntryConfig) (min, max int) {
	if e.NearDTEMin != 0 || e.NearDTEMax != 0 {
		return e.NearDTEMin, e.NearDTEMax
	}
	return e.NearDTE - e.DTETolerance, e.NearDTE + e.DTETolerance
}

func effectiveFarDTERange(e EntryConfig) (min, max int) {
	if e.FarDTEMin != 0 || e.FarDTEMax != 0 {
		return e.FarDTEMin, e.FarDTEMax
	}
	return e.FarDTE - e.DTETolerance, e.FarDTE + e.DTETolerance
}
