// Package dataset reads and writes the CSV files the backtester consumes
// and produces: underlying bars in, option-chain and trade exports out.
// Writes use the same atomic temp-file/rename/fsync sequence as the
// checkpoint store (this package keeps its own copy of it) so a crash
// mid-export never leaves a truncated CSV behind.
package dataset

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/eddiefleurent/gridiron/internal/apperrors"
	"github.com/eddiefleurent/gridiron/internal/models"
)

const dateLayout = "2006-01-02"

// LoadUnderlyingBars reads one row per trading day: date, close, vix. A
// missing mandatory column, an unparseable value, or a date that is out of
// order or duplicated relative to the previous row raises a DataError —
// the simulator requires a strictly ascending, gap-aware calendar.
func LoadUnderlyingBars(path string) ([]models.UnderlyingBar, error) {
	f, err := os.Open(path) // #nosec G304 -- path is an operator-supplied dataset file, not web input
	if err != nil {
		return nil, apperrors.NewDataError(path, err.Error())
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.NewDataError(path, err.Error())
	}
	if len(records) == 0 {
		return nil, apperrors.NewDataError(path, "empty file")
	}

	header := records[0]
	col := columnIndex(header)
	for _, required := range []string{"date", "close", "vix"} {
		if _, ok := col[required]; !ok {
			return nil, apperrors.NewDataError(path, "missing mandatory column: "+required)
		}
	}

	bars := make([]models.UnderlyingBar, 0, len(records)-1)
	var prevDate time.Time
	for i, rec := range records[1:] {
		date, err := time.Parse(dateLayout, rec[col["date"]])
		if err != nil {
			return nil, apperrors.NewDataError(path, "row "+strconv.Itoa(i+2)+": bad date: "+err.Error())
		}
		if !prevDate.IsZero() {
			if !date.After(prevDate) {
				return nil, apperrors.NewDataError(path, "row "+strconv.Itoa(i+2)+": date out of order or duplicated: "+rec[col["date"]])
			}
		}
		prevDate = date

		closePx, err := strconv.ParseFloat(rec[col["close"]], 64)
		if err != nil {
			return nil, apperrors.NewDataError(path, "row "+strconv.Itoa(i+2)+": bad close: "+err.Error())
		}
		vix, err := strconv.ParseFloat(rec[col["vix"]], 64)
		if err != nil {
			return nil, apperrors.NewDataError(path, "row "+strconv.Itoa(i+2)+": bad vix: "+err.Error())
		}

		bars = append(bars, models.UnderlyingBar{
			Date:  date,
			Close: closePx,
			VIX:   vix,
			SpyIV: vix / 100,
		})
	}

	return bars, nil
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}
