// Package retry provides generic exponential-backoff retry logic for
// fallible I/O, generalized over any func() error so checkpoint and
// compiled-CSV writes can retry the same way broker calls once did.
package retry

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"
)

// Config controls the backoff schedule.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

// DefaultConfig provides sensible defaults for retry operations.
var DefaultConfig = Config{
	MaxRetries:     3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
	Timeout:        30 * time.Second,
}

func sanitize(cfg Config) Config {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultConfig.MaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultConfig.MaxBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig.Timeout
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	return cfg
}

// Do runs fn, retrying on transient errors with exponential backoff plus
// jitter until it succeeds, a non-transient error is returned, retries are
// exhausted, or ctx is done. logger defaults to log.Default() if nil.
func Do(ctx context.Context, cfg Config, logger *log.Logger, fn func() error) error {
	if logger == nil {
		logger = log.Default()
	}
	cfg = sanitize(cfg)

	runCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := runCtx.Err(); err != nil {
			return fmt.Errorf("retry: canceled before attempt %d: %w", attempt+1, err)
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		logger.Printf("retry: attempt %d/%d failed: %v", attempt+1, cfg.MaxRetries+1, err)

		if !isTransient(err) || attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-time.After(backoff):
			backoff = nextBackoff(backoff, cfg.MaxBackoff, logger)
		case <-runCtx.Done():
			return fmt.Errorf("retry: timed out during backoff: %w", runCtx.Err())
		}
	}

	return fmt.Errorf("retry: failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

func nextBackoff(current, max time.Duration, logger *log.Logger) time.Duration {
	backoff := time.Duration(float64(current) * 1.5)
	if backoff > max {
		backoff = max
	}

	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err != nil {
			logger.Printf("retry: failed to generate jitter: %v", err)
		} else {
			backoff += time.Duration(jitterVal.Int64())
		}
	}
	return backoff
}

// isTransient classifies an error as worth retrying by matching common
// transient I/O failure substrings, covering both filesystem and network
// failure modes.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"timeout", "i/o timeout", "temporary failure", "temporarily unavailable",
		"resource temporarily unavailable", "too many open files", "device busy",
		"no space left", "connection reset", "broken pipe", "eof",
		"deadline exceeded",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}
