package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGridSize_MultipliesDimensionLengths(t *testing.T) {
	grid := ParamGrid{
		"dte":         {21, 30, 45},
		"short_delta": {0.16, 0.25},
	}
	assert.Equal(t, 6, GridSize(grid))
}

func TestGridSize_ZeroWhenAnyDimensionEmpty(t *testing.T) {
	grid := ParamGrid{
		"dte":         {21, 30},
		"short_delta": {},
	}
	assert.Equal(t, 0, GridSize(grid))
}

func TestEnumerateGrid_ProducesEveryCombinationInDeterministicOrder(t *testing.T) {
	grid := ParamGrid{
		"a": {1, 2},
		"b": {10, 20},
	}
	combos := EnumerateGrid(grid)
	assert.Len(t, combos, 4)

	expected := []map[string]float64{
		{"a": 1, "b": 10},
		{"a": 1, "b": 20},
		{"a": 2, "b": 10},
		{"a": 2, "b": 20},
	}
	assert.Equal(t, expected, combos)
}

func TestEnumerateGrid_SameGridProducesSameOrderEveryCall(t *testing.T) {
	grid := ParamGrid{
		"dte":         {21, 30, 45},
		"short_delta": {0.16, 0.25},
	}
	first := EnumerateGrid(grid)
	second := EnumerateGrid(grid)
	assert.Equal(t, first, second)
}

func TestEnumerateGrid_EmptyGridReturnsNil(t *testing.T) {
	assert.Nil(t, EnumerateGrid(ParamGrid{}))
}
