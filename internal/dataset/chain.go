package dataset

import (
	"strconv"

	"github.com/eddiefleurent/gridiron/internal/apperrors"
	"github.com/eddiefleurent/gridiron/internal/models"
)

var chainHeader = []string{
	"quote_date", "expiration", "strike", "option_type", "price", "bid", "ask",
	"delta", "gamma", "theta", "vega", "rho", "iv", "dte",
	"underlying_price", "vix", "iv_percentile",
}

// WriteOptionChain emits one synthetic-chain day's quotes to a CSV file,
// rejecting duplicate (quote_date, expiration, strike, option_type) rows
// before anything is written.
func WriteOptionChain(path string, quotes []models.OptionQuote) error {
	seen := make(map[string]bool, len(quotes))
	rows := make([][]string, 0, len(quotes))

	for _, q := range quotes {
		key := q.QuoteDate.Format(dateLayout) + "|" + q.Expiration.Format(dateLayout) + "|" +
			strconv.FormatFloat(q.Strike, 'f', -1, 64) + "|" + string(q.OptionType)
		if seen[key] {
			return apperrors.NewDataError(path, "duplicate row for "+key)
		}
		seen[key] = true

		rows = append(rows, []string{
			q.QuoteDate.Format(dateLayout),
			q.Expiration.Format(dateLayout),
			formatFloat(q.Strike),
			string(q.OptionType),
			formatFloat(q.Price),
			formatFloat(q.Bid),
			formatFloat(q.Ask),
			formatFloat(q.Delta),
			formatFloat(q.Gamma),
			formatFloat(q.Theta),
			formatFloat(q.Vega),
			formatFloat(q.Rho),
			formatFloat(q.IV),
			strconv.Itoa(q.DTE),
			formatFloat(q.UnderlyingPrice),
			formatFloat(q.VIX),
			formatFloat(q.IVPercentile),
		})
	}

	if err := atomicWriteCSV(path, chainHeader, rows); err != nil {
		return apperrors.NewDataError(path, err.Error())
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
