package simulator

// account tracks cash, marked equity, and the portfolio risk budget the
// simulator enforces across every strategy
type account struct {
	cash           float64
	equity         float64
	peakEquity     float64
	committedRisk  float64 // sum of open positions' (max_loss * 100 * contracts)
	maxRiskPercent float64
}

func newAccount(initialEquity, maxRiskPercent float64) *account {
	return &account{
		cash:           initialEquity,
		equity:         initialEquity,
		peakEquity:     initialEquity,
		maxRiskPercent: maxRiskPercent,
	}
}

// riskBudgetRemaining returns the dollars still available under the
// portfolio's max_risk_percent cap, never negative.
func (a *account) riskBudgetRemaining() float64 {
	budget := a.equity*a.maxRiskPercent - a.committedRisk
	if budget < 0 {
		return 0
	}
	return budget
}

// drawdownFromPeak returns the current fractional drawdown from the
// highest equity the account has ever reached, never negative.
func (a *account) drawdownFromPeak() float64 {
	if a.peakEquity <= 0 {
		return 0
	}
	dd := (a.peakEquity - a.equity) / a.peakEquity
	if dd < 0 {
		return 0
	}
	return dd
}

// markEquity recomputes total equity from cash plus the live marked value of
// open positions, and advances the high-water mark.
func (a *account) markEquity(positionsValue float64) {
	a.equity = a.cash + positionsValue
	if a.equity > a.peakEquity {
		a.peakEquity = a.equity
	}
}
