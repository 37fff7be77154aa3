package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// atomicWriteCSV writes header+rows to path via a temp file in the same
// directory, restrictive permissions, fsync, atomic rename, and
// parent-directory fsync — the same sequence the checkpoint store uses, so
// a crash mid-export never leaves a truncated chain or trade-export CSV.
func atomicWriteCSV(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".dataset-*")
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
	for _, row := range rows {
		if err := w.Write(row); err != nil {
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

	d, err := os.Open(dir) // #nosec G304 -- dir is derived from a caller-provided dataset path
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
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
