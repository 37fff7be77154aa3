package storage

// Interface defines the contract for run-status persistence, so the
// dashboard and cmd entrypoints can be tested against a fake without
// touching the filesystem.
type Interface interface {
	SetCurrentRun(run RunStatus) error
	GetCurrentRun() *RunStatus
	FinishRun(finalMetric float64, failed bool, message string) error

	Save() error
	Load() error

	GetHistory() []RunStatus
	GetStatistics() *Statistics
	GetDailyPnL(date string) float64
	HasInHistory(id string) bool

	SetEquityCurveTail(points []EquityPoint) error
	GetEquityCurveTail() []EquityPoint
}

// NewStorage creates a new storage implementation (currently JSON-based).
func NewStorage(filepath string) (Interface, error) {
	return NewJSONStorage(filepath)
}

// Ensure JSONStorage implements Interface.
var _ Interface = (*JSONStorage)(nil)
