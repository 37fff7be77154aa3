package optimizer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tm
}

func sampleRows() []TrialResult {
	return []TrialResult{
		{
			Params:  map[string]float64{"dte": 30, "short_delta": 0.16},
			Metrics: map[string]float64{"sharpe": 1.2, "cagr": 0.1},
		},
		{
			Params: map[string]float64{"dte": 45, "short_delta": 0.25},
			Error:  "strategy panicked: nil quote",
		},
	}
}

func TestWriteAndLoadCheckpoint_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint_bull_put_1.csv")

	require.NoError(t, WriteCheckpoint(context.Background(), path, sampleRows()))

	loaded, err := LoadCheckpoint(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	byKey := map[string]TrialResult{}
	for _, row := range loaded {
		byKey[row.ParamKey()] = row
	}

	first := sampleRows()[0]
	got, ok := byKey[first.ParamKey()]
	require.True(t, ok)
	assert.InDelta(t, 1.2, got.Metrics["sharpe"], 1e-9)
	assert.InDelta(t, 0.1, got.Metrics["cagr"], 1e-9)
	assert.Empty(t, got.Error)

	second := sampleRows()[1]
	got2, ok := byKey[second.ParamKey()]
	require.True(t, ok)
	assert.Equal(t, "strategy panicked: nil quote", got2.Error)
}

func TestLoadCheckpoint_MissingFileReturnsNilNoError(t *testing.T) {
	dir := t.TempDir()
	rows, err := LoadCheckpoint(filepath.Join(dir, "does_not_exist.csv"))
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestParamKey_OrderIndependent(t *testing.T) {
	a := TrialResult{Params: map[string]float64{"dte": 30, "short_delta": 0.16}}
	b := TrialResult{Params: map[string]float64{"short_delta": 0.16, "dte": 30}}
	assert.Equal(t, a.ParamKey(), b.ParamKey())
}

func TestParamKey_DifferentValuesProduceDifferentKeys(t *testing.T) {
	a := TrialResult{Params: map[string]float64{"dte": 30}}
	b := TrialResult{Params: map[string]float64{"dte": 40}}
	assert.NotEqual(t, a.ParamKey(), b.ParamKey())
}

func TestCheckpointPath_EncodesStrategyAndTimestamp(t *testing.T) {
	at := mustParseTime(t, "2026-07-30T12:00:00Z")
	path := CheckpointPath("/tmp/checkpoints", "bull_put_1", at)
	assert.Contains(t, path, "bull_put_1")
	assert.Contains(t, path, "20260730T120000Z")
}
