package optimizer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/eddiefleurent/gridiron/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runDeterministic derives its metric purely from the config and seed, with
// no external state, so re-running a subset of trials and merging must
// produce the same rows as one uninterrupted run.
func runDeterministic(_ context.Context, _ fakeDataset, cfg strategy.StrategyConfig, seed int64) (map[string]float64, error) {
	return map[string]float64{
		"sharpe": float64(cfg.Entry.DTEMin) + float64(seed%7),
	}, nil
}

func TestResume_InterruptedRunMatchesUninterruptedRunAsASet(t *testing.T) {
	grid := ParamGrid{"dte": {21, 30, 45, 60, 75}}
	combos := EnumerateGrid(grid)

	base := strategy.StrategyConfig{}
	runnerFull := NewParallelRunner(2, 7, cloneFakeDataset, runDeterministic)

	full := runnerFull.RunBatch(context.Background(), fakeDataset{}, base, combos, 0)
	var fullRows []TrialResult
	for _, r := range full {
		fullRows = append(fullRows, TrialResult{Params: r.Params, Metrics: r.Row.Metrics, Error: r.Row.Error})
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint_test.csv")

	runnerA := NewParallelRunner(2, 7, cloneFakeDataset, runDeterministic)
	firstHalf := runnerA.RunBatch(context.Background(), fakeDataset{}, base, combos[:2], 0)
	var firstRows []TrialResult
	for _, r := range firstHalf {
		firstRows = append(firstRows, TrialResult{Params: r.Params, Metrics: r.Row.Metrics, Error: r.Row.Error})
	}
	require.NoError(t, WriteCheckpoint(context.Background(), path, firstRows))

	loaded, err := LoadCheckpoint(path)
	require.NoError(t, err)
	tested := map[string]bool{}
	for _, row := range loaded {
		tested[row.ParamKey()] = true
	}

	var remaining []map[string]float64
	remainingIdx := []int{}
	for i, combo := range combos {
		key := TrialResult{Params: combo}.ParamKey()
		if !tested[key] {
			remaining = append(remaining, combo)
			remainingIdx = append(remainingIdx, i)
		}
	}

	runnerB := NewParallelRunner(2, 7, cloneFakeDataset, runDeterministic)
	secondHalf := runnerB.RunBatch(context.Background(), fakeDataset{}, base, remaining, remainingIdx[0])
	var resumedRows []TrialResult
	resumedRows = append(resumedRows, firstRows...)
	for _, r := range secondHalf {
		resumedRows = append(resumedRows, TrialResult{Params: r.Params, Metrics: r.Row.Metrics, Error: r.Row.Error})
	}

	fullKeys := map[string]TrialResult{}
	for _, row := range fullRows {
		fullKeys[row.ParamKey()] = row
	}
	resumedKeys := map[string]TrialResult{}
	for _, row := range resumedRows {
		resumedKeys[row.ParamKey()] = row
	}

	require.Equal(t, len(fullKeys), len(resumedKeys))
	for key, want := range fullKeys {
		got, ok := resumedKeys[key]
		require.True(t, ok, "resumed run missing trial %s", key)
		assert.Equal(t, want.Metrics, got.Metrics)
	}
}
