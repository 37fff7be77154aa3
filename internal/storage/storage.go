// Package storage persists the dashboard's view of backtest and optimizer
// runs: the run currently in progress, its completed history, and a per-day
// total of finished runs' final metrics, all atomically written as JSON so a crash mid-write never
// corrupts the file a resumed dashboard reads on startup.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

// JSONStorage implements run-status persistence using a single JSON file.
type JSONStorage struct {
	data     *Data
	filepath string
	mu       sync.RWMutex
}

// Data is the complete structure persisted to the status file.
type Data struct {
	LastUpdated time.Time          `json:"last_updated"`
	CurrentRun  *RunStatus         `json:"current_run"`
	DailyPnL    map[string]float64 `json:"daily_pnl"`
	Statistics  *Statistics        `json:"statistics"`
	History     []RunStatus        `json:"history"`
	EquityTail  []EquityPoint      `json:"equity_tail,omitempty"`
}

// EquityPoint is the dashboard-facing projection of one day's mark-to-market
// snapshot from the latest completed backtest, kept independent of
// internal/models so storage has no dependency on the simulation layer.
type EquityPoint struct {
	Date       time.Time `json:"date"`
	TotalValue float64   `json:"total_value"`
	Drawdown   float64   `json:"drawdown_from_peak"`
}

// RunStatus describes one backtest or optimizer invocation for the
// dashboard: what it is running, how far along it is, and its outcome.
type RunStatus struct {
	ID           string    `json:"id"`
	Mode         string    `json:"mode"` // "backtest" | "optimize"
	Strategy     string    `json:"strategy"`
	Started      time.Time `json:"started"`
	Completed    time.Time `json:"completed,omitempty"`
	TrialsDone   int       `json:"trials_done"`
	TrialsTotal  int       `json:"trials_total"`
	BestMetric   float64   `json:"best_metric"`
	BestParamKey string    `json:"best_param_key,omitempty"`
	Failed       bool      `json:"failed"`
	Message      string    `json:"message,omitempty"`
}

// Statistics aggregates outcomes across every run recorded in history.
type Statistics struct {
	TotalRuns      int     `json:"total_runs"`
	CompletedRuns  int     `json:"completed_runs"`
	FailedRuns     int     `json:"failed_runs"`
	BestMetricSeen float64 `json:"best_metric_seen"`
	BestStrategy   string  `json:"best_strategy"`
}

// NewJSONStorage creates (or loads) a JSON-based status store at filePath.
func NewJSONStorage(filePath string) (*JSONStorage, error) {
	s := &JSONStorage{
		filepath: filePath,
		data: &Data{
			DailyPnL:   make(map[string]float64),
			Statistics: &Statistics{},
		},
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return nil, fmt.Errorf("creating parent directory: %w", err)
	}

	if _, err := os.Stat(filePath); err == nil {
		if loadErr := s.Load(); loadErr != nil {
			return nil, fmt.Errorf("loading storage: %w", loadErr)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat storage file: %w", err)
	}

	return s, nil
}

// Load reads status data from the JSON file.
func (s *JSONStorage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filepath) // #nosec G304 -- filepath is set at construction, not user input
	if err != nil {
		return err
	}

	var loaded Data
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}
	s.data = &loaded

	if s.data.Statistics == nil {
		s.data.Statistics = &Statistics{}
	}
	if s.data.DailyPnL == nil {
		s.data.DailyPnL = make(map[string]float64)
	}

	return nil
}

// Save writes status data to the JSON file.
func (s *JSONStorage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveUnsafe()
}

// saveUnsafe performs the actual save without acquiring locks; callers must
// already hold s.mu.
func (s *JSONStorage) saveUnsafe() error {
	s.data.LastUpdated = time.Now().UTC()

	dir := filepath.Dir(s.filepath)
	f, err := os.CreateTemp(dir, ".storage-*")
	if err != nil {
		return err
	}
	tmpFile := f.Name()

	if err := f.Chmod(0o600); err != nil {
		return fmt.Errorf("failed to set temp file permissions: %w", err)
	}

	defer func() {
		if f != nil {
			_ = f.Close()
		}
		if tmpFile != "" {
			_ = os.Remove(tmpFile)
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		f = nil
		return err
	}
	f = nil

	dirSynced := false
	if err := os.Rename(tmpFile, s.filepath); err != nil {
		var linkErr *os.LinkError
		if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
			if copyErr := s.copyFile(tmpFile, s.filepath); copyErr != nil {
				return fmt.Errorf("failed to copy temp file: %w", copyErr)
			}
			dirSynced = true
		} else {
			return fmt.Errorf("failed to rename temp file: %w", err)
		}
	}
	tmpFile = ""

	if !dirSynced {
		if err := s.syncParentDir(); err != nil {
			return fmt.Errorf("failed to sync parent directory: %w", err)
		}
	}

	return nil
}

// copyFile copies src to dst and fsyncs the destination, used as the EXDEV
// fallback when a temp file and its destination live on different devices.
func (s *JSONStorage) copyFile(src, dst string) error {
	if err := s.validateFilePath(src); err != nil {
		return fmt.Errorf("invalid source path: %w", err)
	}
	if err := s.validateFilePath(dst); err != nil {
		return fmt.Errorf("invalid destination path: %w", err)
	}

	srcFile, err := os.Open(src) // #nosec G304 -- paths are validated above
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	dstDir := filepath.Dir(dst)
	tmpFile, err := os.CreateTemp(dstDir, ".tmp_*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpFileName := tmpFile.Name()

	var tempFileClosed bool
	defer func() {
		if !tempFileClosed {
			_ = tmpFile.Close()
		}
		if tmpFileName != "" {
			_ = os.Remove(tmpFileName)
		}
	}()

	if err := tmpFile.Chmod(srcInfo.Mode()); err != nil {
		return fmt.Errorf("failed to set temp file permissions: %w", err)
	}

	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tempFileClosed = true

	if err := os.Rename(tmpFileName, dst); err != nil {
		return fmt.Errorf("failed to rename temp file to destination: %w", err)
	}

	if err := s.validateFilePath(dstDir); err != nil {
		return fmt.Errorf("invalid destination directory path: %w", err)
	}
	if dir, err := os.Open(dstDir); err == nil { // #nosec G304 -- path validated above
		defer func() { _ = dir.Close() }()
		if syncErr := dir.Sync(); syncErr != nil {
			return fmt.Errorf("failed to fsync destination directory: %w", syncErr)
		}
	}

	tmpFileName = ""
	return nil
}

// validateFilePath ensures path resolves inside the storage root, rejecting
// any symlink or ".." escape.
func (s *JSONStorage) validateFilePath(path string) error {
	storageRoot := filepath.Dir(s.filepath)
	storageRootAbs, err := filepath.Abs(filepath.Clean(storageRoot))
	if err != nil {
		return fmt.Errorf("failed to resolve storage root: %w", err)
	}
	storageRootResolved, err := filepath.EvalSymlinks(storageRootAbs)
	if err != nil {
		return fmt.Errorf("failed to resolve symlinks in storage root: %w", err)
	}

	targetAbs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to resolve target path: %w", err)
	}

	var targetResolved string
	if _, statErr := os.Stat(targetAbs); statErr == nil {
		resolved, err := filepath.EvalSymlinks(targetAbs)
		if err != nil {
			return fmt.Errorf("failed to resolve symlinks in target: %w", err)
		}
		targetResolved = resolved
	} else if os.IsNotExist(statErr) {
		parent := filepath.Dir(targetAbs)
		parentResolved, perr := filepath.EvalSymlinks(parent)
		if perr != nil {
			return fmt.Errorf("failed to resolve symlinks in target parent: %w", perr)
		}
		targetResolved = filepath.Join(parentResolved, filepath.Base(targetAbs))
	} else {
		return fmt.Errorf("failed to stat target path: %w", statErr)
	}

	relPath, err := filepath.Rel(storageRootResolved, targetResolved)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("path escapes storage directory: %s (resolved to: %s)", path, targetResolved)
	}
	return nil
}

func (s *JSONStorage) syncParentDir() error {
	parentDir := filepath.Dir(s.filepath)
	dir, err := os.Open(parentDir) // #nosec G304 -- parentDir is the storage root, fixed at construction
	if err != nil {
		return err
	}
	defer func() { _ = dir.Close() }()
	return dir.Sync()
}

// SetCurrentRun replaces the in-progress run record and persists it.
func (s *JSONStorage) SetCurrentRun(run RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.CurrentRun = &run
	return s.saveUnsafe()
}

// GetCurrentRun returns a copy of the in-progress run, or nil if none.
func (s *JSONStorage) GetCurrentRun() *RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.CurrentRun == nil {
		return nil
	}
	cp := *s.data.CurrentRun
	return &cp
}

// FinishRun moves the current run into history, updates aggregate
// statistics, and clears CurrentRun.
func (s *JSONStorage) FinishRun(finalMetric float64, failed bool, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.CurrentRun == nil {
		return ErrNoRunInProgress
	}

	run := *s.data.CurrentRun
	run.Completed = time.Now().UTC()
	run.BestMetric = finalMetric
	run.Failed = failed
	run.Message = message

	s.data.History = append(s.data.History, run)
	s.updateStatistics(run)

	day := run.Completed.Format("2006-01-02")
	s.data.DailyPnL[day] += finalMetric

	s.data.CurrentRun = nil
	return s.saveUnsafe()
}

func (s *JSONStorage) updateStatistics(run RunStatus) {
	stats := s.data.Statistics
	stats.TotalRuns++
	if run.Failed {
		stats.FailedRuns++
		return
	}
	stats.CompletedRuns++
	if run.BestMetric > stats.BestMetricSeen || stats.CompletedRuns == 1 {
		stats.BestMetricSeen = run.BestMetric
		stats.BestStrategy = run.Strategy
	}
}

// GetStatistics returns a copy of the aggregate statistics.
func (s *JSONStorage) GetStatistics() *Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := *s.data.Statistics
	return &stats
}

// GetDailyPnL returns the recorded metric total for a given "2006-01-02" day.
func (s *JSONStorage) GetDailyPnL(date string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.DailyPnL[date]
}

// GetHistory returns a copy of every completed run.
func (s *JSONStorage) GetHistory() []RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]RunStatus, len(s.data.History))
	copy(history, s.data.History)
	return history
}

// SetEquityCurveTail replaces the dashboard's cached tail of the latest
// completed backtest's equity curve (callers pass only the last N points;
// storage does not truncate).
func (s *JSONStorage) SetEquityCurveTail(points []EquityPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.EquityTail = points
	return s.saveUnsafe()
}

// GetEquityCurveTail returns the cached equity-curve tail.
func (s *JSONStorage) GetEquityCurveTail() []EquityPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tail := make([]EquityPoint, len(s.data.EquityTail))
	copy(tail, s.data.EquityTail)
	return tail
}

// HasInHistory reports whether a run with the given ID has been recorded.
func (s *JSONStorage) HasInHistory(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, run := range s.data.History {
		if run.ID == id {
			return true
		}
	}
	return false
}
