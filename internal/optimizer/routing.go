package optimizer

import (
	"sort"

	"github.com/eddiefleurent/gridiron/internal/apperrors"
	"github.com/eddiefleurent/gridiron/internal/strategy"
)

// paramSetter writes one flat optimizer-facing parameter value into the
// correct nested slot of a StrategyConfig. Setters always operate on a
// copy the caller owns — see Apply.
type paramSetter func(cfg *strategy.StrategyConfig, v float64)

// routingTable is the flat-name -> (section, key) contract an optimizer
// trial relies on. "dte" and "dte_min" collide in plain English but route to
// different config slots (entry window vs exit threshold); they are kept
// here as distinct, unambiguous keys rather than one overloaded name.
var routingTable = map[string]paramSetter{
	"dte": func(c *strategy.StrategyConfig, v float64) {
		c.Entry.DTEMin = int(v)
		c.Entry.DTEMax = int(v)
	},
	"dte_min": func(c *strategy.StrategyConfig, v float64) { c.Exit.DTEMinExit = int(v) },

	"entry_dte_min": func(c *strategy.StrategyConfig, v float64) { c.Entry.DTEMin = int(v) },
	"entry_dte_max": func(c *strategy.StrategyConfig, v float64) { c.Entry.DTEMax = int(v) },

	"short_delta":   func(c *strategy.StrategyConfig, v float64) { c.Entry.ShortDelta = v },
	"long_delta":    func(c *strategy.StrategyConfig, v float64) { c.Entry.LongDelta = v },
	"min_credit":    func(c *strategy.StrategyConfig, v float64) { c.Entry.MinCredit = v },
	"max_credit":    func(c *strategy.StrategyConfig, v float64) { c.Entry.MaxCredit = v },
	"min_debit":     func(c *strategy.StrategyConfig, v float64) { c.Entry.MinDebit = v },
	"max_debit":     func(c *strategy.StrategyConfig, v float64) { c.Entry.MaxDebit = v },

	"near_dte":      func(c *strategy.StrategyConfig, v float64) { c.Entry.NearDTE = int(v) },
	"far_dte":       func(c *strategy.StrategyConfig, v float64) { c.Entry.FarDTE = int(v) },
	"dte_tolerance": func(c *strategy.StrategyConfig, v float64) { c.Entry.DTETolerance = int(v) },

	"short_put_delta":  func(c *strategy.StrategyConfig, v float64) { c.Entry.ShortPutDelta = v },
	"long_put_delta":   func(c *strategy.StrategyConfig, v float64) { c.Entry.LongPutDelta = v },
	"short_call_delta": func(c *strategy.StrategyConfig, v float64) { c.Entry.ShortCallDelta = v },
	"long_call_delta":  func(c *strategy.StrategyConfig, v float64) { c.Entry.LongCallDelta = v },
	"min_credit_total": func(c *strategy.StrategyConfig, v float64) { c.Entry.MinCreditTotal = v },
	"max_wing_width":   func(c *strategy.StrategyConfig, v float64) { c.Entry.MaxWingWidth = v },

	"iv_percentile": func(c *strategy.StrategyConfig, v float64) { c.Entry.IVPercentileMin = v },
	"iv_percentile_max": func(c *strategy.StrategyConfig, v float64) {
		c.Entry.IVPercentileMax = v
	},

	"profit_target":      func(c *strategy.StrategyConfig, v float64) { c.Exit.ProfitTarget = v },
	"stop_loss":          func(c *strategy.StrategyConfig, v float64) { c.Exit.StopLoss = v },
	"dte_min_exit":       func(c *strategy.StrategyConfig, v float64) { c.Exit.DTEMinExit = int(v) },
	"max_underlying_move": func(c *strategy.StrategyConfig, v float64) {
		c.Exit.MaxUnderlyingMove = v
	},
	"breach_threshold": func(c *strategy.StrategyConfig, v float64) { c.Exit.BreachThreshold = v },
}

// KnownParamNames returns every optimizer-facing flat name the routing
// table recognizes, sorted for deterministic display/validation output.
func KnownParamNames() []string {
	names := make([]string, 0, len(routingTable))
	for name := range routingTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply returns a copy of base with every (name, value) pair routed to its
// nested config slot. It never mutates base — this is the mechanism that
// prevents the historical "every trial shares the same config" regression:
// callers must pass the strategy-specific sub-config, and Apply's by-value
// receiver plus copy-on-write means a caller that reuses base across many
// trials can never leak one trial's parameters into another's.
func Apply(base strategy.StrategyConfig, params map[string]float64) (strategy.StrategyConfig, error) {
	cfg := base
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		setter, ok := routingTable[name]
		if !ok {
			return strategy.StrategyConfig{}, apperrors.NewConfigError("optimizer.params."+name, "unrecognized optimizer parameter name")
		}
		setter(&cfg, params[name])
	}
	return cfg, nil
}
