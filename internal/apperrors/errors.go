// Package apperrors defines the error taxonomy shared across the backtesting
// engine: kinds, not concrete type hierarchies, so callers can use errors.As
// to recover the kind and errors.Is for sentinels where no context is needed.
package apperrors

import "fmt"

// ConfigError wraps a fatal configuration problem discovered at load time.
type ConfigError struct {
	Field string
	Msg    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Msg)
}

// NewConfigError builds a ConfigError for the named field.
func NewConfigError(field, msg string) *ConfigError {
	return &ConfigError{Field: field, Msg: msg}
}

// DataError wraps a fatal problem discovered while constructing a dataset:
// missing columns, unsorted dates, duplicate rows.
type DataError struct {
	Source string
	Msg    string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error: %s: %s", e.Source, e.Msg)
}

// NewDataError builds a DataError attributed to the given source (file path,
// CSV, or generator step).
func NewDataError(source, msg string) *DataError {
	return &DataError{Source: source, Msg: msg}
}

// PricingError wraps a numerically invalid pricing call (S<=0, sigma<=0, T<0).
// Callers treat it as "no valid strike/quote" and skip the entry.
type PricingError struct {
	Msg string
}

func (e *PricingError) Error() string {
	return fmt.Sprintf("pricing error: %s", e.Msg)
}

// NewPricingError builds a PricingError.
func NewPricingError(msg string) *PricingError {
	return &PricingError{Msg: msg}
}

// StrategyError wraps a panic/error recovered during entry/exit evaluation.
// The simulator logs it with position/parameter context and treats the day
// as "no signal"; it must never abort the simulator.
type StrategyError struct {
	StrategyID string
	Phase      string // "entry" | "exit"
	Err        error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy error: %s (%s): %v", e.StrategyID, e.Phase, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// NewStrategyError builds a StrategyError.
func NewStrategyError(strategyID, phase string, err error) *StrategyError {
	return &StrategyError{StrategyID: strategyID, Phase: phase, Err: err}
}

// TrialError wraps any error inside a single optimizer trial. The trial is
// recorded with sentinel metrics and this error's message; optimization
// continues with the next trial.
type TrialError struct {
	Params map[string]float64
	Err    error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("trial error (params=%v): %v", e.Params, e.Err)
}

func (e *TrialError) Unwrap() error { return e.Err }

// NewTrialError builds a TrialError.
func NewTrialError(params map[string]float64, err error) *TrialError {
	return &TrialError{Params: params, Err: err}
}

// IOError wraps a checkpoint or compiled-results write failure. The caller
// logs it, keeps the trial result in memory, and retries on the next
// checkpoint tick — it must never abort the run.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error writing %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIOError builds an IOError.
func NewIOError(path string, err error) *IOError {
	return &IOError{Path: path, Err: err}
}

// SentinelSharpe is the sentinel Sharpe value recorded for a failed trial
//
const SentinelSharpe = -999.0
