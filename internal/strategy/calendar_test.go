package strategy

import (
	"testing"
	"time"

	"github.com/eddiefleurent/gridiron/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callCalendarConfig() StrategyConfig {
	return StrategyConfig{
		Name:         "test_call_calendar",
		Kind:         "call_calendar",
		Enabled:      true,
		MaxPositions: 3,
		Entry: EntryConfig{
			NearDTE:            25,
			FarDTE:             55,
			DTETolerance:       10,
			IVPercentileMin:    0,
			IVPercentileMax:    100,
			StrikeSelection:    StrikeATM,
			DeltaTolerance:     0.10,
			MinDebit:           0.01,
		},
		Exit: ExitConfig{
			ProfitTarget:      0.3,
			StopLoss:          -0.5,
			DTEMinExit:        3,
			MaxUnderlyingMove: 0.05,
		},
		Sizing: SizingConfig{Method: SizingFixedRisk, RiskPerTradePct: 0.02},
	}
}

func TestCalendarStrategy_GeneratesDebitSpread(t *testing.T) {
	date := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	idx := buildTestIndex(t, date, 400, 18)
	s := NewCalendarStrategy("call_cal_1", CallCalendar, callCalendarConfig())

	bar := models.UnderlyingBar{Date: date, Close: 400, VIX: 18, IVPercentile: 50}
	signal, err := s.GenerateEntry(idx, bar, nil)
	require.NoError(t, err)
	require.NotNil(t, signal)

	assert.Len(t, signal.Legs, 2)
	assert.Greater(t, signal.EntryPrice, 0.0, "calendar should open for a net debit")
	assert.True(t, signal.FarExpiration.After(signal.NearExpiration))
	assert.Equal(t, signal.Legs[0].Strike, signal.Legs[1].Strike, "calendar legs share a strike")
	assert.Equal(t, -1, signal.Legs[0].Position)
	assert.Equal(t, 1, signal.Legs[1].Position)
}

func TestCalendarStrategy_ConfigValidation_RejectsNonNegativeStopLoss(t *testing.T) {
	cfg := callCalendarConfig()
	cfg.Exit.StopLoss = 0.5 // must be negative for calendars
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestCalendarStrategy_GenerateExit_NearLegExpiredSettlesIntrinsic(t *testing.T) {
	date := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	idx := buildTestIndex(t, date, 400, 18)
	s := NewCalendarStrategy("call_cal_1", CallCalendar, callCalendarConfig())

	nearExp := date
	farExp := date.AddDate(0, 0, 30)
	pos := &models.Position{
		ID:         "p1",
		StrategyID: "call_cal_1",
		Legs: []models.Leg{
			{Strike: 400, OptionType: models.Call, Expiration: nearExp, Position: -1},
			{Strike: 400, OptionType: models.Call, Expiration: farExp, Position: 1},
		},
		EntryDate:      date,
		EntryPrice:     2.0,
		MaxProfit:      2.0,
		MaxLoss:        2.0,
		NearExpiration: nearExp,
		FarExpiration:  farExp,
		Status:         models.StatusOpen,
	}

	bar := models.UnderlyingBar{Date: nearExp, Close: 410}
	exit, err := s.GenerateExit(pos, idx, bar)
	require.NoError(t, err)
	require.NotNil(t, exit)
	assert.Equal(t, models.ExitExpired, exit.Reason)
}

func TestCalendarStrategy_SelectStrike_ATM(t *testing.T) {
	date := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	idx := buildTestIndex(t, date, 400, 18)
	s := NewCalendarStrategy("call_cal_1", CallCalendar, callCalendarConfig())

	exps := idx.Expirations()
	require.NotEmpty(t, exps)
	strike, ok := s.selectStrike(idx, exps[0], 400)
	require.True(t, ok)
	assert.InDelta(t, 400, strike, 5)
}
