package optimizer

import (
	"context"
	"errors"
	"testing"

	"github.com/eddiefleurent/gridiron/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDataset is a stand-in for a real backtest dataset clone; cloning
// copies the elements into a fresh slice so each worker's append can never
// alias another worker's slice.
type fakeDataset struct {
	touched []string
}

func cloneFakeDataset(base fakeDataset) fakeDataset {
	cp := make([]string, len(base.touched))
	copy(cp, base.touched)
	return fakeDataset{touched: cp}
}

// runReflectsConfig simulates evaluating a strategy: the "metric" is
// derived directly from the config it was given, so two trials that pass
// different configs MUST produce different metrics. This is the harness for
// the historical "every trial shares the root config" regression.
func runReflectsConfig(_ context.Context, _ fakeDataset, cfg strategy.StrategyConfig, _ int64) (map[string]float64, error) {
	return map[string]float64{
		"dte_min":     float64(cfg.Entry.DTEMin),
		"short_delta": cfg.Entry.ShortDelta,
	}, nil
}

func TestRunBatch_DistinctParamTuplesProduceDistinctMetrics(t *testing.T) {
	runner := NewParallelRunner(4, 1, cloneFakeDataset, runReflectsConfig)
	base := strategy.StrategyConfig{}

	proposals := []map[string]float64{
		{"dte": 30, "short_delta": 0.30},
		{"dte": 40, "short_delta": 0.16},
	}

	results := runner.RunBatch(context.Background(), fakeDataset{}, base, proposals, 0)
	require.Len(t, results, 2)

	assert.NotEqual(t, results[0].Row.Metrics["dte_min"], results[1].Row.Metrics["dte_min"])
	assert.NotEqual(t, results[0].Row.Metrics["short_delta"], results[1].Row.Metrics["short_delta"])
	assert.Equal(t, 30.0, results[0].Row.Metrics["dte_min"])
	assert.Equal(t, 40.0, results[1].Row.Metrics["dte_min"])
}

func TestRunBatch_PreservesProposalOrderInResults(t *testing.T) {
	runner := NewParallelRunner(8, 1, cloneFakeDataset, runReflectsConfig)
	base := strategy.StrategyConfig{}

	proposals := make([]map[string]float64, 0, 20)
	for i := 0; i < 20; i++ {
		proposals = append(proposals, map[string]float64{"dte": float64(21 + i)})
	}

	results := runner.RunBatch(context.Background(), fakeDataset{}, base, proposals, 0)
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, float64(21+i), r.Row.Metrics["dte_min"])
	}
}

func TestRunBatch_FailedTrialGetsSentinelMetricsNotAbort(t *testing.T) {
	failing := func(_ context.Context, _ fakeDataset, _ strategy.StrategyConfig, _ int64) (map[string]float64, error) {
		return nil, errors.New("strategy panicked: nil quote")
	}
	runner := NewParallelRunner(2, 1, cloneFakeDataset, failing)
	base := strategy.StrategyConfig{}

	results := runner.RunBatch(context.Background(), fakeDataset{}, base, []map[string]float64{{"dte": 30}}, 0)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].Row.Error)
	assert.Equal(t, -999.0, results[0].Row.Metrics["sharpe"])
}

func TestRunBatch_SameMasterSeedReproducesSameTrialSeeds(t *testing.T) {
	var seenSeeds []int64
	capture := func(_ context.Context, _ fakeDataset, _ strategy.StrategyConfig, seed int64) (map[string]float64, error) {
		seenSeeds = append(seenSeeds, seed)
		return map[string]float64{"sharpe": 0}, nil
	}
	runner := NewParallelRunner(1, 42, cloneFakeDataset, capture)
	base := strategy.StrategyConfig{}

	proposals := []map[string]float64{{"dte": 30}, {"dte": 40}, {"dte": 50}}
	runner.RunBatch(context.Background(), fakeDataset{}, base, proposals, 0)

	expected := []int64{TrialSeed(42, 0), TrialSeed(42, 1), TrialSeed(42, 2)}
	assert.Equal(t, expected, seenSeeds)
}
