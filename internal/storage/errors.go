package storage

import "errors"

// ErrNoRunInProgress is returned when FinishRun is called with no current run set.
var ErrNoRunInProgress = errors.New("no run in progress")
