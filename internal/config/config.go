// Package config provides configuration management for the backtester.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/eddiefleurent/gridiron/internal/chain"
	"github.com/eddiefleurent/gridiron/internal/strategy"
)

// Default values applied by Normalize when a field is left unset.
const (
	defaultRiskFreeRate   = 0.04
	defaultDividendYield  = 0.015
	defaultMaxDTE         = 60
	defaultSpreadPct      = 0.02
	defaultMinSpread      = 0.05
	defaultNearATMTick    = 1.0
	defaultWingTick       = 5.0
	defaultNearATMBandPct = 0.05
	defaultStrikeRangePct = 0.20

	defaultCommissionPerContract = 0.65
	defaultMaxRiskPercent        = 0.10
	defaultRiskPerTradePct       = 0.02

	defaultOptimizerMode            = "grid"
	defaultOptimizerNTrials         = 100
	defaultOptimizerCheckpointEvery = 10
	defaultOptimizerGridThreshold   = 500
	defaultOptimizerSeed            = 1
)

// Config is the complete application configuration, with one top-level
// section per concern: underlying data generation, backtest mechanics,
// position sizing, per-strategy parameters, and optimizer settings.
type Config struct {
	Underlying     UnderlyingConfig                   `yaml:"underlying"`
	Backtest       BacktestConfig                     `yaml:"backtest"`
	PositionSizing PositionSizingConfig                `yaml:"position_sizing"`
	Strategies     map[string]strategy.StrategyConfig `yaml:"strategies"`
	Optimizer      OptimizerConfig                    `yaml:"optimizer"`
	SearchSpace    map[string]map[string]ParamSpec    `yaml:"search_space"` // strategy name -> optimizer-facing param name -> spec
}

// ParamSpec is one parameter's optimizer search space: either an explicit
// grid of values, or a continuous [Min,Max] range for TPE sampling. Values
// takes precedence when both are set.
type ParamSpec struct {
	Values []float64 `yaml:"values"`
	Min    float64   `yaml:"min"`
	Max    float64   `yaml:"max"`
}

// UnderlyingConfig names the traded symbol and the pricing-kernel
// parameters used to generate its synthetic option chain.
type UnderlyingConfig struct {
	Symbol        string  `yaml:"symbol"`
	RiskFreeRate  float64 `yaml:"risk_free_rate"`
	DividendYield float64 `yaml:"dividend_yield"`

	MaxDTE         int     `yaml:"max_dte"`
	SpreadPct      float64 `yaml:"spread_pct"`
	MinSpread      float64 `yaml:"min_spread"`
	NearATMTick    float64 `yaml:"near_atm_tick"`
	WingTick       float64 `yaml:"wing_tick"`
	NearATMBandPct float64 `yaml:"near_atm_band_pct"`
	StrikeRangePct float64 `yaml:"strike_range_pct"`
}

// BacktestConfig bounds the replay window and the account-level
// mechanics applied uniformly across every strategy.
type BacktestConfig struct {
	StartDate             string  `yaml:"start_date"` // YYYY-MM-DD
	EndDate               string  `yaml:"end_date"`
	InitialCapital        float64 `yaml:"initial_capital"`
	CommissionPerContract float64 `yaml:"commission_per_contract"`
	SlippagePct           float64 `yaml:"slippage_pct"`
}

// PositionSizingConfig carries the account-wide sizing defaults; any
// strategy whose own `sizing` section omits a field inherits it from here
// (see Normalize).
type PositionSizingConfig struct {
	Method          strategy.SizingMethod `yaml:"method"`
	RiskPerTradePct float64               `yaml:"risk_per_trade_pct"`
	MaxPositions    int                   `yaml:"max_positions"`
	MaxRiskPercent  float64               `yaml:"max_risk_percent"`
	KellyPct        float64               `yaml:"kelly_pct"`
}

// OptimizerConfig drives the parameter search
type OptimizerConfig struct {
	Mode            string `yaml:"mode"` // auto | grid | optuna
	NTrials         int    `yaml:"n_trials"`
	CheckpointEvery int    `yaml:"checkpoint_every"`
	NStartupTrials  int    `yaml:"n_startup_trials"`
	EnablePruning   bool   `yaml:"enable_pruning"`
	GridThreshold   int    `yaml:"grid_threshold"`
	Seed            int64  `yaml:"seed"`
}

// Load reads, expands, decodes, normalizes, and validates the configuration
// file at configPath.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a caller-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", configPath, err)
	}

	// Expand environment variables so CI-injected dataset paths resolve
	// without hardcoding them into the config file.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", configPath, err)
	}

	for name, strat := range cfg.Strategies {
		strat.Name = name
		cfg.Strategies[name] = strat
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Normalize fills defaults for every section left unset or partially set.
// Per-strategy sizing sections inherit missing fields from position_sizing,
// and a strategy with MaxPositions unset inherits position_sizing.max_positions.
func (c *Config) Normalize() {
	if c.Underlying.RiskFreeRate == 0 {
		c.Underlying.RiskFreeRate = defaultRiskFreeRate
	}
	if c.Underlying.DividendYield == 0 {
		c.Underlying.DividendYield = defaultDividendYield
	}
	if c.Underlying.MaxDTE == 0 {
		c.Underlying.MaxDTE = defaultMaxDTE
	}
	if c.Underlying.SpreadPct == 0 {
		c.Underlying.SpreadPct = defaultSpreadPct
	}
	if c.Underlying.MinSpread == 0 {
		c.Underlying.MinSpread = defaultMinSpread
	}
	if c.Underlying.NearATMTick == 0 {
		c.Underlying.NearATMTick = defaultNearATMTick
	}
	if c.Underlying.WingTick == 0 {
		c.Underlying.WingTick = defaultWingTick
	}
	if c.Underlying.NearATMBandPct == 0 {
		c.Underlying.NearATMBandPct = defaultNearATMBandPct
	}
	if c.Underlying.StrikeRangePct == 0 {
		c.Underlying.StrikeRangePct = defaultStrikeRangePct
	}

	if c.Backtest.CommissionPerContract == 0 {
		c.Backtest.CommissionPerContract = defaultCommissionPerContract
	}

	if c.PositionSizing.Method == "" {
		c.PositionSizing.Method = strategy.SizingFixedRisk
	}
	if c.PositionSizing.RiskPerTradePct == 0 {
		c.PositionSizing.RiskPerTradePct = defaultRiskPerTradePct
	}
	if c.PositionSizing.MaxRiskPercent == 0 {
		c.PositionSizing.MaxRiskPercent = defaultMaxRiskPercent
	}

	for name, strat := range c.Strategies {
		if strat.Sizing.Method == "" {
			strat.Sizing.Method = c.PositionSizing.Method
		}
		if strat.Sizing.RiskPerTradePct == 0 {
			strat.Sizing.RiskPerTradePct = c.PositionSizing.RiskPerTradePct
		}
		if strat.Sizing.KellyFraction == 0 {
			strat.Sizing.KellyFraction = c.PositionSizing.KellyPct
		}
		if strat.MaxPositions == 0 {
			strat.MaxPositions = c.PositionSizing.MaxPositions
		}
		c.Strategies[name] = strat
	}

	if c.Optimizer.Mode == "" {
		c.Optimizer.Mode = defaultOptimizerMode
	}
	if c.Optimizer.NTrials == 0 {
		c.Optimizer.NTrials = defaultOptimizerNTrials
	}
	if c.Optimizer.CheckpointEvery == 0 {
		c.Optimizer.CheckpointEvery = defaultOptimizerCheckpointEvery
	}
	if c.Optimizer.GridThreshold == 0 {
		c.Optimizer.GridThreshold = defaultOptimizerGridThreshold
	}
	if c.Optimizer.Seed == 0 {
		c.Optimizer.Seed = defaultOptimizerSeed
	}
}

// Validate checks that every section is internally consistent. Strategy
// sections are validated in sorted-name order so error messages are
// deterministic across runs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Underlying.Symbol) == "" {
		return fmt.Errorf("underlying.symbol is required")
	}
	if c.Underlying.RiskFreeRate < 0 {
		return fmt.Errorf("underlying.risk_free_rate must be >= 0")
	}
	if c.Underlying.DividendYield < 0 {
		return fmt.Errorf("underlying.dividend_yield must be >= 0")
	}
	if c.Underlying.MaxDTE <= 0 {
		return fmt.Errorf("underlying.max_dte must be > 0")
	}
	if c.Underlying.SpreadPct < 0 {
		return fmt.Errorf("underlying.spread_pct must be >= 0")
	}
	if c.Underlying.MinSpread < 0 {
		return fmt.Errorf("underlying.min_spread must be >= 0")
	}

	start, err := time.Parse("2006-01-02", c.Backtest.StartDate)
	if err != nil {
		return fmt.Errorf("backtest.start_date invalid: %w", err)
	}
	end, err := time.Parse("2006-01-02", c.Backtest.EndDate)
	if err != nil {
		return fmt.Errorf("backtest.end_date invalid: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("backtest.start_date must be before backtest.end_date")
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be > 0")
	}
	if c.Backtest.CommissionPerContract < 0 {
		return fmt.Errorf("backtest.commission_per_contract must be >= 0")
	}
	if c.Backtest.SlippagePct < 0 {
		return fmt.Errorf("backtest.slippage_pct must be >= 0")
	}

	if c.PositionSizing.Method != strategy.SizingFixedRisk && c.PositionSizing.Method != strategy.SizingKelly {
		return fmt.Errorf("position_sizing.method must be 'fixed' or 'kelly'")
	}
	if c.PositionSizing.MaxRiskPercent <= 0 || c.PositionSizing.MaxRiskPercent > 1.0 {
		return fmt.Errorf("position_sizing.max_risk_percent must be in (0,1.0]")
	}

	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategies.<name> section is required")
	}
	names := make([]string, 0, len(c.Strategies))
	for name := range c.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		strat := c.Strategies[name]
		if !isKnownKind(strat.Kind) {
			return fmt.Errorf("strategies.%s.kind %q is not a recognized strategy kind", name, strat.Kind)
		}
		if err := strat.Validate(); err != nil {
			return fmt.Errorf("strategies.%s: %w", name, err)
		}
	}

	switch c.Optimizer.Mode {
	case "auto", "grid", "optuna":
	default:
		return fmt.Errorf("optimizer.mode must be one of: auto, grid, optuna")
	}
	if c.Optimizer.NTrials <= 0 {
		return fmt.Errorf("optimizer.n_trials must be > 0")
	}
	if c.Optimizer.CheckpointEvery <= 0 {
		return fmt.Errorf("optimizer.checkpoint_every must be > 0")
	}

	return nil
}

func isKnownKind(kind string) bool {
	switch kind {
	case "bull_put", "bear_call", "bull_call", "bear_put",
		"call_calendar", "put_calendar", "iron_condor":
		return true
	default:
		return false
	}
}

// ChainConfig converts the underlying section into the chain generator's
// Config, substituting the caller-provided holiday calendar (Config itself
// carries no notion of a calendar — that is runtime wiring, not config).
func (c *Config) ChainConfig(cal chain.HolidayCalendar) chain.Config {
	return chain.Config{
		RiskFreeRate:   c.Underlying.RiskFreeRate,
		DividendYield:  c.Underlying.DividendYield,
		MaxDTE:         c.Underlying.MaxDTE,
		SpreadPct:      c.Underlying.SpreadPct,
		MinSpread:      c.Underlying.MinSpread,
		NearATMTick:    c.Underlying.NearATMTick,
		WingTick:       c.Underlying.WingTick,
		NearATMBandPct: c.Underlying.NearATMBandPct,
		StrikeRangePct: c.Underlying.StrikeRangePct,
		Holidays:       cal,
	}
}

// DateRange parses the validated backtest start/end dates.
func (c *Config) DateRange() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", c.Backtest.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.start_date invalid: %w", err)
	}
	end, err = time.Parse("2006-01-02", c.Backtest.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.end_date invalid: %w", err)
	}
	return start, end, nil
}
