package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eddiefleurent/gridiron/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVerticalTrade() models.TradeRecord {
	entry := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	exit := time.Date(2023, 1, 20, 0, 0, 0, 0, time.UTC)
	exp := time.Date(2023, 2, 17, 0, 0, 0, 0, time.UTC)
	return models.TradeRecord{
		ID:         "t1",
		StrategyID: "bull_put_1",
		Legs: []models.Leg{
			{Strike: 380, OptionType: models.Put, Expiration: exp, Position: -1, EntryDelta: -0.16, EntryPrice: 2.10},
			{Strike: 370, OptionType: models.Put, Expiration: exp, Position: 1, EntryDelta: -0.08, EntryPrice: 1.05},
		},
		EntryDate:  entry,
		EntryPrice: -1.05,
		Contracts:  2,
		ExitDate:   exit,
		ExitPrice:  -0.30,
		ExitReason: models.ExitProfitTarget,
		NetPnL:     140,
	}
}

func sampleCalendarTrade() models.TradeRecord {
	entry := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	near := time.Date(2023, 2, 3, 0, 0, 0, 0, time.UTC)
	far := time.Date(2023, 3, 17, 0, 0, 0, 0, time.UTC)
	return models.TradeRecord{
		ID:         "t2",
		StrategyID: "call_calendar_1",
		Legs: []models.Leg{
			{Strike: 400, OptionType: models.Call, Expiration: near, Position: -1, EntryPrice: 3.0},
			{Strike: 400, OptionType: models.Call, Expiration: far, Position: 1, EntryPrice: 5.0},
		},
		EntryDate: entry,
		ExitDate:  entry.AddDate(0, 0, 10),
	}
}

func TestWriteTradeExport_FillsLegColumnsForTwoLegTrade(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")

	require.NoError(t, WriteTradeExport(path, []models.TradeRecord{sampleVerticalTrade()}))

	data, err := os.ReadFile(path) // #nosec G304 -- test-owned temp path
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "leg1_strike")
	assert.Contains(t, content, "leg4_strike")

	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 2)
	fields := strings.Split(lines[1], ",")
	header := strings.Split(lines[0], ",")
	idx := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		return -1
	}
	assert.Equal(t, "380", fields[idx("leg1_strike")])
	assert.Empty(t, fields[idx("leg3_strike")], "unused leg columns must be blank, not zero")
}

func TestWriteTradeExport_CalendarTradePopulatesNearFarExpiration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")

	require.NoError(t, WriteTradeExport(path, []models.TradeRecord{sampleCalendarTrade()}))

	data, err := os.ReadFile(path) // #nosec G304 -- test-owned temp path
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	header := strings.Split(lines[0], ",")
	fields := strings.Split(lines[1], ",")
	idx := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		return -1
	}
	assert.Equal(t, "2023-02-03", fields[idx("near_expiration")])
	assert.Equal(t, "2023-03-17", fields[idx("far_expiration")])
}

func TestWriteTradeExport_RejectsMoreThanFourLegs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")

	trade := sampleVerticalTrade()
	trade.Legs = append(trade.Legs, trade.Legs[0], trade.Legs[0], trade.Legs[0])

	err := WriteTradeExport(path, []models.TradeRecord{trade})
	assert.Error(t, err)
}
