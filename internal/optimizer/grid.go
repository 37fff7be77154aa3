package optimizer

import "sort"

// ParamGrid maps an optimizer-facing flat name (must resolve through
// routingTable) to the ordered list of values the grid search tries for it.
type ParamGrid map[string][]float64

// GridSize returns the total cartesian combination count without
// materializing it, so the caller can pick grid vs TPE mode against
// grid_threshold before paying the enumeration cost.
func GridSize(grid ParamGrid) int {
	size := 1
	for _, values := range grid {
		if len(values) == 0 {
			return 0
		}
		size *= len(values)
	}
	return size
}

// EnumerateGrid returns every combination in deterministic order: parameter
// names are sorted, and combinations are produced as an odometer over the
// per-name value slices (last name varies fastest).
func EnumerateGrid(grid ParamGrid) []map[string]float64 {
	if len(grid) == 0 {
		return nil
	}

	names := make([]string, 0, len(grid))
	for name := range grid {
		if len(grid[name]) == 0 {
			return nil
		}
		names = append(names, name)
	}
	sort.Strings(names)

	total := GridSize(grid)
	combos := make([]map[string]float64, 0, total)
	indices := make([]int, len(names))

	for {
		combo := make(map[string]float64, len(names))
		for i, name := range names {
			combo[name] = grid[name][indices[i]]
		}
		combos = append(combos, combo)

		pos := len(names) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(grid[names[pos]]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}

	return combos
}
