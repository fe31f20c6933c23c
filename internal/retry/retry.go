package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"toolbroker/internal/domain"
)

// =============================================================================
// RetryConfig
// =============================================================================

// Config controls retry behaviour for tool callables that reach external services.
type Config struct {
	MaxRetries     int           `json:"maxRetries"`     // Maximum number of retry attempts (0 = no retries)
	InitialBackoff time.Duration `json:"initialBackoff"` // Delay before first retry
	MaxBackoff     time.Duration `json:"maxBackoff"`     // Upper bound on backoff duration
	Multiplier     float64       `json:"multiplier"`     // Backoff multiplier (e.g. 2.0 for exponential)
}

// DefaultConfig returns sensible retry defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// FromDomain converts the millisecond-based config file section. Unset
// backoff fields fall back to DefaultConfig.
func FromDomain(rc domain.RetryConfig) Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = rc.MaxRetries
	if rc.InitialBackoff > 0 {
		cfg.InitialBackoff = time.Duration(rc.InitialBackoff) * time.Millisecond
	}
	if rc.MaxBackoff > 0 {
		cfg.MaxBackoff = time.Duration(rc.MaxBackoff) * time.Millisecond
	}
	if rc.Multiplier > 0 {
		cfg.Multiplier = float64(rc.Multiplier)
	}
	return cfg
}

// Validate checks that all Config fields are within acceptable ranges.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("retry: MaxRetries must be >= 0")
	}
	if c.InitialBackoff <= 0 {
		return errors.New("retry: InitialBackoff must be > 0")
	}
	if c.MaxBackoff <= 0 {
		return errors.New("retry: MaxBackoff must be > 0")
	}
	if c.Multiplier < 1.0 {
		return errors.New("retry: Multiplier must be >= 1.0")
	}
	return nil
}

// =============================================================================
// Error Classification
// =============================================================================

// transientError marks an error a callable knows to be worth retrying.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so that IsRetryable reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// StatusError carries the HTTP status a callable received from an upstream
// service. 429 and 5xx statuses are retryable.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("upstream status %d", e.Code)
	}
	return fmt.Sprintf("upstream status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// retryableStatusCodes are HTTP status codes that indicate a transient failure.
var retryableStatusCodes = map[int]bool{429: true, 500: true, 502: true, 503: true, 504: true, 529: true}

// IsRetryable reports whether err is a transient failure that may succeed on
// retry. Only typed errors qualify: Transient-wrapped errors, a StatusError
// with a 429/5xx code, net.Error timeouts, refused or reset connections, and
// io.ErrUnexpectedEOF. Error text is never inspected. Context errors are never
// retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are never retryable; the caller chose to stop.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var te *transientError
	if errors.As(err, &te) {
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatusCodes[se.Code]
	}

	// net.Error timeout (wraps OS-level i/o timeout)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// =============================================================================
// Retrier
// =============================================================================

// Retrier re-runs a function on transient errors with exponential backoff.
type Retrier struct {
	config    Config
	sleepFunc func(context.Context, time.Duration) error // injectable for testing
}

// New returns a Retrier for cfg.
func New(cfg Config) *Retrier {
	return &Retrier{config: cfg, sleepFunc: sleepContext}
}

// Config returns the retrier's configuration.
func (r *Retrier) Config() Config { return r.config }

// Do calls fn and retries on transient errors. It returns nil on the first
// success, the error itself when it is not retryable, or a wrapped last error
// once retries are exhausted.
func (r *Retrier) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	backoff := r.config.InitialBackoff

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt == r.config.MaxRetries {
			break
		}

		if err := r.sleepFunc(ctx, backoff); err != nil {
			return err
		}

		next := time.Duration(float64(backoff) * r.config.Multiplier)
		if next > r.config.MaxBackoff {
			next = r.config.MaxBackoff
		}
		backoff = next
	}

	if r.config.MaxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("retries exhausted after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
