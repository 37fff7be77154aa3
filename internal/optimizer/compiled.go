package optimizer

import (
	"context"
	"path/filepath"
	"sort"
)

// CompiledPath builds the path of the deduplicated master CSV for a
// strategy. The filename is built from the strategy name only; the date
// range is not part of it, so runs of one strategy over different date
// ranges in the same directory share one compiled file. Unlike checkpoint
// files there is exactly one compiled file per strategy per run directory;
// it is overwritten in place every time a checkpoint flushes.
func CompiledPath(dir, strategyName string) string {
	return filepath.Join(dir, "compiled_"+strategyName+".csv")
}

// MergeCompiled folds newRows into existing (deduplicated by ParamKey,
// newer rows winning ties) and returns the result sorted by metric
// descending, ready to be written with WriteCheckpoint.
func MergeCompiled(existing, newRows []TrialResult, metric string) []TrialResult {
	byKey := make(map[string]TrialResult, len(existing)+len(newRows))
	order := make([]string, 0, len(existing)+len(newRows))

	for _, row := range existing {
		key := row.ParamKey()
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = row
	}
	for _, row := range newRows {
		key := row.ParamKey()
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = row
	}

	merged := make([]TrialResult, 0, len(order))
	for _, key := range order {
		merged = append(merged, byKey[key])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		vi, oki := merged[i].Metrics[metric]
		vj, okj := merged[j].Metrics[metric]
		if !oki && !okj {
			return false
		}
		if !oki {
			return false
		}
		if !okj {
			return true
		}
		return vi > vj
	})

	return merged
}

// UpdateCompiled loads the existing compiled CSV (if any), merges in
// newRows deduplicated by parameter tuple, sorts by metric descending, and
// atomically rewrites the file.
func UpdateCompiled(ctx context.Context, dir, strategyName, metric string, newRows []TrialResult) error {
	path := CompiledPath(dir, strategyName)
	existing, err := LoadCheckpoint(path)
	if err != nil {
		return err
	}
	merged := MergeCompiled(existing, newRows, metric)
	return WriteCheckpoint(ctx, path, merged)
}
