// audit_trades replays a trade-export CSV (as written by
// internal/dataset.WriteTradeExport) and asserts the invariants that should
// hold for every closed trade, regardless of which run produced it. Useful
// after hand-editing a trade log or importing one from elsewhere.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"
)

const dateLayout = "2006-01-02"
const pnlEpsilon = 0.01

// tradeRow is the subset of a trades.csv row this tool needs to check
// invariants; leg columns are read as raw strings since no invariant here
// depends on individual leg pricing (bid<=price<=ask is enforced at
// generation time, not re-checked here).
type tradeRow struct {
	ID              string
	EntryDate       time.Time
	Contracts       int
	ExitDate        time.Time
	ExitReason      string
	PnL             float64
	Commission      float64
	NetPnL          float64
	DaysInTrade     int
	NearExpiration  string
	FarExpiration   string
	LegCount        int
}

// violation is one invariant failure tied to the trade that produced it.
type violation struct {
	TradeID string `json:"trade_id"`
	Rule    string `json:"rule"`
	Detail  string `json:"detail"`
}

func main() {
	var (
		path       = flag.String("csv", "", "path to a trades.csv produced by the backtest or optimizer")
		jsonOutput = flag.Bool("json", false, "output results as JSON")
		verbose    = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	if *path == "" {
		log.Fatal("missing required -csv flag")
	}

	if *verbose {
		fmt.Printf("Auditing trade export: %s\n\n", *path)
	}

	rows, err := readTradeRows(*path)
	if err != nil {
		log.Fatalf("failed to read trade export: %v", err)
	}

	violations := auditRows(rows)

	if *jsonOutput {
		out, err := json.MarshalIndent(violations, "", "  ")
		if err != nil {
			log.Fatalf("failed to marshal JSON: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("%d trades checked\n", len(rows))
	if len(violations) == 0 {
		fmt.Println("no invariant violations found")
		return
	}

	fmt.Printf("\n=== POTENTIAL ISSUES ===\n")
	for i, v := range violations {
		fmt.Printf("  %d. trade %s: %s (%s)\n", i+1, v.TradeID, v.Rule, v.Detail)
	}
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Re-run the backtest that produced this export and diff trade IDs\n")
	fmt.Printf("  2. Check whether the export was hand-edited after the fact\n")
	fmt.Printf("  3. If the violation is DaysInTrade or commission, check the config's\n")
	fmt.Printf("     commission schedule matches what was active when the trade closed\n")
}

// readTradeRows parses a trades.csv by column name, tolerating any leg
// column count up to the writer's maxLegs bound.
func readTradeRows(path string) ([]tradeRow, error) {
	f, err := os.Open(path) // #nosec G304 -- path is operator-provided via -csv
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty trade export")
	}

	col := columnIndex(records[0])
	need := []string{
		"id", "entry_date", "contracts", "exit_date", "exit_reason",
		"pnl", "commission", "net_pnl", "days_in_trade",
		"near_expiration", "far_expiration",
	}
	for _, name := range need {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing expected column %q", name)
		}
	}

	rows := make([]tradeRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := tradeRow{
			ID:             field(rec, col, "id"),
			Contracts:      intField(rec, col, "contracts"),
			ExitReason:     field(rec, col, "exit_reason"),
			PnL:            floatField(rec, col, "pnl"),
			Commission:     floatField(rec, col, "commission"),
			NetPnL:         floatField(rec, col, "net_pnl"),
			DaysInTrade:    intField(rec, col, "days_in_trade"),
			NearExpiration: field(rec, col, "near_expiration"),
			FarExpiration:  field(rec, col, "far_expiration"),
			LegCount:       countLegs(rec, col),
		}
		row.EntryDate, _ = time.Parse(dateLayout, field(rec, col, "entry_date"))
		row.ExitDate, _ = time.Parse(dateLayout, field(rec, col, "exit_date"))
		rows = append(rows, row)
	}
	return rows, nil
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}

func field(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func intField(rec []string, col map[string]int, name string) int {
	var v int
	_, _ = fmt.Sscanf(field(rec, col, name), "%d", &v)
	return v
}

func floatField(rec []string, col map[string]int, name string) float64 {
	var v float64
	_, _ = fmt.Sscanf(field(rec, col, name), "%g", &v)
	return v
}

// countLegs counts how many leg{1..4}_strike columns are non-empty.
func countLegs(rec []string, col map[string]int) int {
	n := 0
	for i := 1; i <= 4; i++ {
		name := fmt.Sprintf("leg%d_strike", i)
		if field(rec, col, name) != "" {
			n++
		}
	}
	return n
}

// auditRows checks each row against the invariants a closed trade must
// satisfy regardless of which strategy produced it.
func auditRows(rows []tradeRow) []violation {
	var violations []violation
	for _, t := range rows {
		if t.Contracts <= 0 {
			violations = append(violations, violation{t.ID, "contracts", fmt.Sprintf("contracts=%d, want > 0", t.Contracts)})
		}
		if t.Commission < 0 {
			violations = append(violations, violation{t.ID, "commission", fmt.Sprintf("commission=%.2f, want >= 0", t.Commission)})
		}
		if math.Abs((t.PnL-t.Commission)-t.NetPnL) > pnlEpsilon {
			violations = append(violations, violation{t.ID, "net_pnl", fmt.Sprintf("pnl=%.2f commission=%.2f net_pnl=%.2f, want net_pnl == pnl - commission", t.PnL, t.Commission, t.NetPnL)})
		}
		if !t.EntryDate.IsZero() && !t.ExitDate.IsZero() && t.ExitDate.Before(t.EntryDate) {
			violations = append(violations, violation{t.ID, "exit_date", fmt.Sprintf("exit_date=%s before entry_date=%s", t.ExitDate.Format(dateLayout), t.EntryDate.Format(dateLayout))})
		}
		if !t.EntryDate.IsZero() && !t.ExitDate.IsZero() {
			wantDays := int(t.ExitDate.Sub(t.EntryDate).Hours() / 24)
			if wantDays != t.DaysInTrade {
				violations = append(violations, violation{t.ID, "days_in_trade", fmt.Sprintf("days_in_trade=%d, want %d from entry/exit dates", t.DaysInTrade, wantDays)})
			}
		}
		if t.LegCount < 1 || t.LegCount > 4 {
			violations = append(violations, violation{t.ID, "leg_count", fmt.Sprintf("legs=%d, want 1-4", t.LegCount)})
		}
		if t.NearExpiration != "" && t.FarExpiration != "" {
			near, errNear := time.Parse(dateLayout, t.NearExpiration)
			far, errFar := time.Parse(dateLayout, t.FarExpiration)
			if errNear == nil && errFar == nil && !near.Before(far) {
				violations = append(violations, violation{t.ID, "calendar_expirations", fmt.Sprintf("near_expiration=%s not before far_expiration=%s", t.NearExpiration, t.FarExpiration)})
			}
		}
	}
	return violations
}
