package dataset

import (
	"strconv"

	"github.com/eddiefleurent/gridiron/internal/apperrors"
	"github.com/eddiefleurent/gridiron/internal/models"
)

// maxLegs bounds the widest strategy (iron condor, 4 legs) so every export
// row has the same column count regardless of which strategy produced it.
const maxLegs = 4

var tradeHeader = buildTradeHeader()

func buildTradeHeader() []string {
	h := []string{
		"id", "strategy_id", "entry_date", "entry_underlying", "entry_vix",
		"entry_iv_percentile", "entry_price", "contracts", "max_profit", "max_loss",
		"exit_date", "exit_underlying", "exit_vix", "exit_iv_percentile",
		"exit_price", "exit_reason", "pnl", "commission", "net_pnl", "days_in_trade",
		"near_expiration", "far_expiration",
	}
	for i := 1; i <= maxLegs; i++ {
		p := "leg" + strconv.Itoa(i) + "_"
		h = append(h, p+"strike", p+"option_type", p+"expiration", p+"position", p+"entry_delta", p+"entry_price")
	}
	return h
}

// WriteTradeExport emits the closed-trade log as CSV, one row per
// TradeRecord, with up to four leg{1..4}_* column groups and a
// near/far_expiration pair populated only for calendar spreads.
func WriteTradeExport(path string, trades []models.TradeRecord) error {
	rows := make([][]string, 0, len(trades))
	for _, t := range trades {
		if len(t.Legs) > maxLegs {
			return apperrors.NewDataError(path, "trade "+t.ID+" has more than "+strconv.Itoa(maxLegs)+" legs")
		}

		near, far := calendarExpirations(t.Legs)

		row := []string{
			t.ID, t.StrategyID,
			t.EntryDate.Format(dateLayout), formatFloat(t.EntryUnderlying), formatFloat(t.EntryVIX),
			formatFloat(t.EntryIVPercentile), formatFloat(t.EntryPrice), strconv.Itoa(t.Contracts),
			formatFloat(t.MaxProfit), formatFloat(t.MaxLoss),
			t.ExitDate.Format(dateLayout), formatFloat(t.ExitUnderlying), formatFloat(t.ExitVIX),
			formatFloat(t.ExitIVPercentile), formatFloat(t.ExitPrice), string(t.ExitReason),
			formatFloat(t.PnL), formatFloat(t.Commission), formatFloat(t.NetPnL), strconv.Itoa(t.DaysInTrade),
			near, far,
		}

		for i := 0; i < maxLegs; i++ {
			if i < len(t.Legs) {
				leg := t.Legs[i]
				row = append(row,
					formatFloat(leg.Strike), string(leg.OptionType), leg.Expiration.Format(dateLayout),
					strconv.Itoa(leg.Position), formatFloat(leg.EntryDelta), formatFloat(leg.EntryPrice),
				)
			} else {
				row = append(row, "", "", "", "", "", "")
			}
		}

		rows = append(rows, row)
	}

	if err := atomicWriteCSV(path, tradeHeader, rows); err != nil {
		return apperrors.NewDataError(path, err.Error())
	}
	return nil
}

// calendarExpirations reports the near/far expiration pair for a calendar
// spread's two legs (distinct expirations on the same strike/type), or
// empty strings for any other strategy shape.
func calendarExpirations(legs []models.Leg) (near, far string) {
	if len(legs) != 2 {
		return "", ""
	}
	a, b := legs[0], legs[1]
	if a.Expiration.Equal(b.Expiration) {
		return "", ""
	}
	if a.Expiration.Before(b.Expiration) {
		return a.Expiration.Format(dateLayout), b.Expiration.Format(dateLayout)
	}
	return b.Expiration.Format(dateLayout), a.Expiration.Format(dateLayout)
}
