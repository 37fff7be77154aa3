// Package main is the entry point for the parameter optimizer: it drives a
// grid or TPE search over one strategy's parameter space, checkpointing
// progress so an interrupted run can resume without re-testing trials
// already completed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/eddiefleurent/gridiron/internal/analyzer"
	"github.com/eddiefleurent/gridiron/internal/chain"
	"github.com/eddiefleurent/gridiron/internal/config"
	"github.com/eddiefleurent/gridiron/internal/dataset"
	"github.com/eddiefleurent/gridiron/internal/models"
	"github.com/eddiefleurent/gridiron/internal/optimizer"
	"github.com/eddiefleurent/gridiron/internal/simulator"
	"github.com/eddiefleurent/gridiron/internal/strategy"
)

const optimizeMetric = "sharpe"

func main() {
	os.Exit(run())
}

func run() int {
	var configPath, dataPath, strategyName, outDir string
	var concurrency int
	flag.StringVar(&configPath, "config", "config.yaml", "path to configuration file")
	flag.StringVar(&dataPath, "data", "", "path to underlying bar CSV (date,close,vix)")
	flag.StringVar(&strategyName, "strategy", "", "strategies.<name> section to optimize")
	flag.StringVar(&outDir, "out", "out/optimize", "directory for checkpoint and compiled CSVs")
	flag.IntVar(&concurrency, "concurrency", 4, "number of trials to run concurrently")
	flag.Parse()

	logger := log.New(os.Stdout, "[optimize] ", log.LstdFlags)

	if dataPath == "" || strategyName == "" {
		logger.Println("both -data and -strategy are required")
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Printf("failed to load config: %v", err)
		return 1
	}
	baseCfg, ok := cfg.Strategies[strategyName]
	if !ok {
		logger.Printf("no strategies.%s section in config", strategyName)
		return 1
	}
	space, ok := cfg.SearchSpace[strategyName]
	if !ok || len(space) == 0 {
		logger.Printf("no search_space.%s section in config", strategyName)
		return 1
	}

	bars, err := dataset.LoadUnderlyingBars(dataPath)
	if err != nil {
		logger.Printf("failed to load underlying bars: %v", err)
		return 1
	}

	priorResults, err := optimizer.LoadCheckpoint(optimizer.CompiledPath(outDir, strategyName))
	if err != nil {
		logger.Printf("failed to load prior compiled results, starting fresh: %v", err)
		priorResults = nil
	}
	tested := make(map[string]bool, len(priorResults))
	for _, r := range priorResults {
		tested[r.ParamKey()] = true
	}

	proposals, sampler, useGrid := buildProposalSource(space, cfg.Optimizer)
	if useGrid && len(tested) > 0 {
		remaining := proposals[:0]
		for _, p := range proposals {
			if !tested[(optimizer.TrialResult{Params: p}).ParamKey()] {
				remaining = append(remaining, p)
			}
		}
		logger.Printf("skipping %d already-tested grid points from a prior run", len(proposals)-len(remaining))
		proposals = remaining
	}
	if !useGrid {
		for _, r := range priorResults {
			if metric, ok := r.Metrics[optimizeMetric]; ok {
				sampler.Observe(r.Params, metric)
			}
		}
	}

	targetTrials := cfg.Optimizer.NTrials
	if useGrid {
		targetTrials = len(proposals)
	} else if len(priorResults) > 0 {
		targetTrials -= len(priorResults)
		if targetTrials < 0 {
			targetTrials = 0
		}
		logger.Printf("resuming: %d prior trials observed, %d remaining toward n_trials", len(priorResults), targetTrials)
	}
	if err := confirmRuntime(logger, bars, strategyName, baseCfg, cfg, targetTrials); err != nil {
		logger.Printf("aborting: %v", err)
		return 1
	}

	masterSeed := cfg.Optimizer.Seed
	runFn := func(ctx context.Context, ds []models.UnderlyingBar, trialCfg strategy.StrategyConfig, seed int64) (map[string]float64, error) {
		return runTrial(ds, strategyName, trialCfg, cfg)
	}
	runner := optimizer.NewParallelRunner(concurrency, masterSeed, cloneBars, runFn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	allResults := append([]optimizer.TrialResult(nil), priorResults...)
	startedAt := time.Now()

	go func() {
		<-sigChan
		logger.Println("shutdown signal received, flushing checkpoint before exit...")
		cancel()
	}()

	path := optimizer.CheckpointPath(outDir, strategyName, startedAt)
	trialIndex := 0

	flush := func() {
		if len(allResults) == 0 {
			return
		}
		if err := optimizer.WriteCheckpoint(context.Background(), path, allResults); err != nil {
			logger.Printf("failed to write checkpoint: %v", err)
			return
		}
		if err := optimizer.UpdateCompiled(context.Background(), outDir, strategyName, optimizeMetric, allResults); err != nil {
			logger.Printf("failed to update compiled results: %v", err)
		}
	}

	for {
		if ctx.Err() != nil {
			break
		}

		var batch []map[string]float64
		if useGrid {
			if trialIndex >= len(proposals) {
				break
			}
			end := trialIndex + concurrency
			if end > len(proposals) {
				end = len(proposals)
			}
			batch = proposals[trialIndex:end]
		} else {
			if trialIndex >= targetTrials {
				break
			}
			n := concurrency
			if trialIndex+n > targetTrials {
				n = targetTrials - trialIndex
			}
			batch = make([]map[string]float64, n)
			for i := range batch {
				batch[i] = sampler.Next()
			}
		}

		results := runner.RunBatch(ctx, bars, baseCfg, batch, trialIndex)
		for _, r := range results {
			allResults = append(allResults, r.Row)
			if !useGrid {
				if metric, ok := r.Row.Metrics[optimizeMetric]; ok {
					sampler.Observe(r.Row.Params, metric)
				}
			}
		}
		trialIndex += len(batch)

		logger.Printf("completed %d trials", trialIndex)
		atEnd := (useGrid && trialIndex >= len(proposals)) || (!useGrid && trialIndex >= targetTrials)
		if trialIndex%cfg.Optimizer.CheckpointEvery == 0 || atEnd {
			flush()
		}
	}

	flush()

	if ctx.Err() != nil {
		logger.Printf("interrupted after %d trials; resume with the same -config/-data/-strategy flags", trialIndex)
		return 1
	}

	best := bestTrial(allResults, optimizeMetric)
	if best != nil {
		logger.Printf("best %s: %.4f at %s", optimizeMetric, best.Metrics[optimizeMetric], best.ParamKey())
	}
	return 0
}

// confirmRuntime times three sample trials, projects the full run's
// wall-clock cost, and prints it without waiting for confirmation. Every
// sample runs the unmodified base strategy config; no parameter tuple is
// sampled from the search space. Set OPTIMIZE_SKIP_ESTIMATE=1 to skip the
// projection (useful in CI where the estimate itself is wasted work).
func confirmRuntime(logger *log.Logger, bars []models.UnderlyingBar, strategyName string, baseCfg strategy.StrategyConfig, cfg *config.Config, totalTrials int) error {
	if os.Getenv("OPTIMIZE_SKIP_ESTIMATE") == "1" || totalTrials <= 0 {
		return nil
	}

	const sampleCount = 3
	samples := make([]time.Duration, 0, sampleCount)
	for i := 0; i < sampleCount; i++ {
		start := time.Now()
		if _, err := runTrial(bars, strategyName, baseCfg, cfg); err != nil {
			return fmt.Errorf("sample trial failed: %w", err)
		}
		samples = append(samples, time.Since(start))
	}

	est := optimizer.EstimateRuntime(samples, totalTrials)
	logger.Printf("projected runtime for %d trials: best %s, average %s, worst %s",
		totalTrials, est.Best, est.Average, est.Worst)
	return nil
}

func buildProposalSource(space map[string]config.ParamSpec, optCfg config.OptimizerConfig) ([]map[string]float64, *optimizer.TPESampler, bool) {
	grid := optimizer.ParamGrid{}
	ranges := make([]optimizer.ParamRange, 0, len(space))
	names := make([]string, 0, len(space))
	for name := range space {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := space[name]
		if len(spec.Values) > 0 {
			grid[name] = spec.Values
		}
		ranges = append(ranges, optimizer.ParamRange{Name: name, Min: spec.Min, Max: spec.Max})
	}

	useGrid := optCfg.Mode == "grid" || (optCfg.Mode == "auto" && optimizer.GridSize(grid) > 0 && optimizer.GridSize(grid) <= optCfg.GridThreshold)
	if useGrid && optimizer.GridSize(grid) > 0 {
		return optimizer.EnumerateGrid(grid), nil, true
	}

	sampler := optimizer.NewTPESampler(ranges, optCfg.NStartupTrials, optCfg.Seed)
	return nil, sampler, false
}

func runTrial(bars []models.UnderlyingBar, strategyName string, trialCfg strategy.StrategyConfig, cfg *config.Config) (map[string]float64, error) {
	strat, err := strategy.Build(strategyName, trialCfg)
	if err != nil {
		return nil, err
	}

	sim := simulator.New(simulator.Config{
		InitialEquity:         cfg.Backtest.InitialCapital,
		CommissionPerContract: cfg.Backtest.CommissionPerContract,
		MaxRiskPercent:        cfg.PositionSizing.MaxRiskPercent,
		ChainConfig:           cfg.ChainConfig(chain.NewHolidayCalendar(nil)),
	}, []strategy.Strategy{strat})

	result, err := sim.Run(bars)
	if err != nil {
		return nil, err
	}
	if len(result.EquityCurve) == 0 {
		return nil, fmt.Errorf("trial produced an empty equity curve")
	}

	metrics, err := analyzer.Analyze(result.Trades, result.EquityCurve)
	if err != nil {
		return nil, err
	}
	return map[string]float64{
		"sharpe":        metrics.Sharpe,
		"cagr":          metrics.CAGR,
		"max_drawdown":  metrics.MaxDrawdown,
		"profit_factor": metrics.ProfitFactor,
	}, nil
}

func cloneBars(bars []models.UnderlyingBar) []models.UnderlyingBar {
	cp := make([]models.UnderlyingBar, len(bars))
	copy(cp, bars)
	return cp
}

func bestTrial(results []optimizer.TrialResult, metric string) *optimizer.TrialResult {
	var best *optimizer.TrialResult
	for i := range results {
		v, ok := results[i].Metrics[metric]
		if !ok {
			continue
		}
		if best == nil || v > best.Metrics[metric] {
			best = &results[i]
		}
	}
	return best
}
