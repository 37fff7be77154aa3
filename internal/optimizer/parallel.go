package optimizer

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"

	"github.com/eddiefleurent/gridiron/internal/apperrors"
	"github.com/eddiefleurent/gridiron/internal/strategy"
)

// TrialFunc runs one trial's strategy config against an immutable dataset
// clone and returns its metrics. Each worker gets its own *D so mutation by
// one trial can never leak into another.
type TrialFunc[D any] func(ctx context.Context, dataset D, cfg strategy.StrategyConfig, seed int64) (map[string]float64, error)

// ParallelRunner fans a batch of trials out across a bounded worker pool.
// Every worker holds its own dataset clone (immutable per-worker clone),
// checkpoint writes happen after the whole batch returns through a single
// caller-owned serialization point, and seeds are derived deterministically
// from a master seed plus trial index via TrialSeed, so a parallel run
// reproduces a sequential one.
type ParallelRunner[D any] struct {
	Concurrency  int
	MasterSeed   int64
	CloneDataset func(base D) D
	Run          TrialFunc[D]

	breaker *gobreaker.CircuitBreaker
}

// NewParallelRunner builds a runner whose circuit breaker trips after 5
// consecutive trial failures, so a StrategyError storm (e.g. a malformed
// dataset) short-circuits further trials instead of burning the full trial
// budget on guaranteed failures. One breaker is shared by every batch the
// runner executes, so the failure count carries across batches; 2s after
// tripping it lets a single trial through to probe recovery.
func NewParallelRunner[D any](concurrency int, masterSeed int64, clone func(D) D, run TrialFunc[D]) *ParallelRunner[D] {
	if concurrency < 1 {
		concurrency = 1
	}
	st := gobreaker.Settings{
		Name:        "optimizer-trial-batch",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     2 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &ParallelRunner[D]{
		Concurrency:  concurrency,
		MasterSeed:   masterSeed,
		CloneDataset: clone,
		Run:          run,
		breaker:      gobreaker.NewCircuitBreaker(st),
	}
}

// BatchResult pairs a trial's proposed parameters with its outcome.
type BatchResult struct {
	Index  int
	Params map[string]float64
	Row    TrialResult
}

// RunBatch evaluates proposals concurrently (bounded by Concurrency),
// returning one BatchResult per proposal in proposal order. A trial whose
// strategy construction or simulation fails is recorded with sentinel
// metrics and an error string rather than aborting the batch; once the
// circuit breaker trips, remaining trials fail fast with a breaker-open
// error instead of being run.
func (r *ParallelRunner[D]) RunBatch(ctx context.Context, base D, baseCfg strategy.StrategyConfig, proposals []map[string]float64, startIndex int) []BatchResult {
	results := make([]BatchResult, len(proposals))
	sem := semaphore.NewWeighted(int64(r.Concurrency))
	done := make(chan struct{}, len(proposals))

	for i, params := range proposals {
		i, params := i, params
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = BatchResult{Index: startIndex + i, Params: params, Row: failedTrial(params, err)}
			done <- struct{}{}
			continue
		}
		go func() {
			defer sem.Release(1)
			results[i] = BatchResult{Index: startIndex + i, Params: params}
			results[i].Row = r.runOne(ctx, base, baseCfg, params, startIndex+i)
			done <- struct{}{}
		}()
	}

	for range proposals {
		<-done
	}
	return results
}

func (r *ParallelRunner[D]) runOne(ctx context.Context, base D, baseCfg strategy.StrategyConfig, params map[string]float64, trialIndex int) TrialResult {
	cfg, err := Apply(baseCfg, params)
	if err != nil {
		return failedTrial(params, err)
	}

	seed := TrialSeed(r.MasterSeed, trialIndex)
	dataset := r.CloneDataset(base)

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.Run(ctx, dataset, cfg, seed)
	})
	if err != nil {
		return failedTrial(params, err)
	}
	metrics, _ := result.(map[string]float64)
	return TrialResult{Params: params, Metrics: metrics}
}

func failedTrial(params map[string]float64, err error) TrialResult {
	trialErr := apperrors.NewTrialError(params, err)
	return TrialResult{
		Params:  params,
		Metrics: map[string]float64{"sharpe": apperrors.SentinelSharpe},
		Error:   trialErr.Error(),
	}
}
