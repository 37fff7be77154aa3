package optimizer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/eddiefleurent/gridiron/internal/apperrors"
	"github.com/eddiefleurent/gridiron/internal/retry"
)

// TrialResult is one completed (or failed) optimizer trial: its full
// parameter tuple, its computed metrics (empty on failure), and an error
// string (empty on success). Checkpoint and compiled CSVs share this row
// shape.
type TrialResult struct {
	Params  map[string]float64
	Metrics map[string]float64
	Error   string
}

// ParamKey returns a stable, order-independent string key for this trial's
// parameter tuple (sorted name=value pairs), used both to detect duplicate
// trials on resume and to deduplicate the compiled master CSV.
func (t TrialResult) ParamKey() string {
	names := make([]string, 0, len(t.Params))
	for name := range t.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, strconv.FormatFloat(t.Params[name], 'g', -1, 64)))
	}
	return strings.Join(parts, "|")
}

// CheckpointPath builds the checkpoint filename: strategy name + ISO
// timestamp, under dir.
func CheckpointPath(dir, strategyName string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("checkpoint_%s_%s.csv", strategyName, at.UTC().Format("20060102T150405Z")))
}

// WriteCheckpoint atomically writes rows to path as CSV, retried per
// internal/retry's IOError-handling contract (log, retry, never hold the
// file open between flushes).
func WriteCheckpoint(ctx context.Context, path string, rows []TrialResult) error {
	err := retry.Do(ctx, retry.DefaultConfig, log.Default(), func() error {
		return atomicWriteCSV(path, rows)
	})
	if err != nil {
		return apperrors.NewIOError(path, err)
	}
	return nil
}

// LoadCheckpoint reads a previously written checkpoint (or compiled) CSV,
// returning its rows in file order; callers key them by ParamKey so a
// resumed run can skip already-tested parameter tuples.
func LoadCheckpoint(path string) ([]TrialResult, error) {
	f, err := os.Open(path) // #nosec G304 -- path is caller-provided, not user input in the web sense
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, apperrors.NewIOError(path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.NewIOError(path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]TrialResult, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := TrialResult{Params: map[string]float64{}, Metrics: map[string]float64{}}
		for i, col := range header {
			if i >= len(rec) {
				continue
			}
			switch {
			case col == "error":
				row.Error = rec[i]
			case strings.HasPrefix(col, "param."):
				v, _ := strconv.ParseFloat(rec[i], 64)
				row.Params[strings.TrimPrefix(col, "param.")] = v
			case strings.HasPrefix(col, "metric."):
				v, _ := strconv.ParseFloat(rec[i], 64)
				row.Metrics[strings.TrimPrefix(col, "metric.")] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// atomicWriteCSV writes rows to path via a temp file in the same directory,
// restrictive permissions, fsync, atomic rename, and parent-directory fsync,
// so a crash mid-write never leaves a truncated checkpoint behind.
func atomicWriteCSV(path string, rows []TrialResult) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	header, lines := encodeCSVRows(rows)

	f, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return err
	}
	tmpPath := f.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := f.Chmod(0o600); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, line := range lines {
		if err := w.Write(line); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	cleanup = false

	if err := os.Rename(tmpPath, path); err != nil {
		var linkErr *os.LinkError
		if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
			if copyErr := copyThenRemove(tmpPath, path); copyErr != nil {
				return fmt.Errorf("copying temp file across devices: %w", copyErr)
			}
		} else {
			return fmt.Errorf("renaming temp file: %w", err)
		}
	}

	return syncParentDir(dir)
}

func copyThenRemove(src, dst string) error {
	data, err := os.ReadFile(src) // #nosec G304 -- src is our own temp file
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return err
	}
	return os.Remove(src)
}

func syncParentDir(dir string) error {
	d, err := os.Open(dir) // #nosec G304 -- dir is derived from a caller-provided checkpoint path
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// encodeCSVRows builds the deterministic header (sorted param./metric.
// column names, then "error") and one line per row.
func encodeCSVRows(rows []TrialResult) (header []string, lines [][]string) {
	paramNames := map[string]bool{}
	metricNames := map[string]bool{}
	for _, row := range rows {
		for name := range row.Params {
			paramNames[name] = true
		}
		for name := range row.Metrics {
			metricNames[name] = true
		}
	}

	sortedParams := sortedKeys(paramNames)
	sortedMetrics := sortedKeys(metricNames)

	header = make([]string, 0, len(sortedParams)+len(sortedMetrics)+1)
	for _, name := range sortedParams {
		header = append(header, "param."+name)
	}
	for _, name := range sortedMetrics {
		header = append(header, "metric."+name)
	}
	header = append(header, "error")

	lines = make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, 0, len(header))
		for _, name := range sortedParams {
			line = append(line, strconv.FormatFloat(row.Params[name], 'g', -1, 64))
		}
		for _, name := range sortedMetrics {
			line = append(line, strconv.FormatFloat(row.Metrics[name], 'g', -1, 64))
		}
		line = append(line, row.Error)
		lines = append(lines, line)
	}
	return header, lines
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
