package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadUnderlyingBars_ParsesWellFormedFile(t *testing.T) {
	path := writeTempCSV(t, "bars.csv", "date,close,vix\n2023-01-03,380.5,18.2\n2023-01-04,382.1,17.9\n")

	bars, err := LoadUnderlyingBars(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.InDelta(t, 380.5, bars[0].Close, 1e-9)
	assert.InDelta(t, 0.182, bars[0].SpyIV, 1e-9)
}

func TestLoadUnderlyingBars_MissingColumnErrors(t *testing.T) {
	path := writeTempCSV(t, "bars.csv", "date,close\n2023-01-03,380.5\n")
	_, err := LoadUnderlyingBars(path)
	assert.Error(t, err)
}

func TestLoadUnderlyingBars_OutOfOrderDateErrors(t *testing.T) {
	path := writeTempCSV(t, "bars.csv", "date,close,vix\n2023-01-04,382.1,17.9\n2023-01-03,380.5,18.2\n")
	_, err := LoadUnderlyingBars(path)
	assert.Error(t, err)
}

func TestLoadUnderlyingBars_DuplicateDateErrors(t *testing.T) {
	path := writeTempCSV(t, "bars.csv", "date,close,vix\n2023-01-03,380.5,18.2\n2023-01-03,381.0,18.0\n")
	_, err := LoadUnderlyingBars(path)
	assert.Error(t, err)
}

func TestLoadUnderlyingBars_MissingFileErrors(t *testing.T) {
	_, err := LoadUnderlyingBars(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
