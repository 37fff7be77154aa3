package optimizer

import (
	"testing"

	"github.com/eddiefleurent/gridiron/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_DoesNotMutateBaseConfig(t *testing.T) {
	base := strategy.StrategyConfig{Name: "bull_put_1"}
	base.Entry.ShortDelta = 0.16

	_, err := Apply(base, map[string]float64{"short_delta": 0.30})
	require.NoError(t, err)

	assert.Equal(t, 0.16, base.Entry.ShortDelta, "Apply must never mutate the caller's base config")
}

func TestApply_DifferentTrialsNeverShareMutatedState(t *testing.T) {
	base := strategy.StrategyConfig{Name: "bull_put_1"}

	trialA, err := Apply(base, map[string]float64{"dte": 30, "short_delta": 0.30})
	require.NoError(t, err)
	trialB, err := Apply(base, map[string]float64{"dte": 40, "short_delta": 0.16})
	require.NoError(t, err)

	assert.NotEqual(t, trialA.Entry.DTEMin, trialB.Entry.DTEMin)
	assert.NotEqual(t, trialA.Entry.ShortDelta, trialB.Entry.ShortDelta)
	assert.Equal(t, 30, trialA.Entry.DTEMin)
	assert.Equal(t, 30, trialA.Entry.DTEMax)
	assert.Equal(t, 40, trialB.Entry.DTEMin)
}

func TestApply_DTESetsBothEntryBounds(t *testing.T) {
	base := strategy.StrategyConfig{}
	cfg, err := Apply(base, map[string]float64{"dte": 45})
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Entry.DTEMin)
	assert.Equal(t, 45, cfg.Entry.DTEMax)
}

func TestApply_DTEMinRoutesToExitThresholdNotEntryWindow(t *testing.T) {
	base := strategy.StrategyConfig{}
	base.Entry.DTEMin = 21 // pre-existing entry window value, must be untouched

	cfg, err := Apply(base, map[string]float64{"dte_min": 7})
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Exit.DTEMinExit)
	assert.Equal(t, 21, cfg.Entry.DTEMin, "dte_min must never touch the entry window")
}

func TestApply_UnknownParamNameReturnsConfigError(t *testing.T) {
	_, err := Apply(strategy.StrategyConfig{}, map[string]float64{"not_a_real_param": 1})
	assert.Error(t, err)
}

func TestKnownParamNames_IsSortedAndNonEmpty(t *testing.T) {
	names := KnownParamNames()
	require.NotEmpty(t, names)
	for i := 1; i < len(names); i++ {
		assert.True(t, names[i-1] < names[i])
	}
}
