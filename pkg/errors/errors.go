package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrConfigNotFound   = errors.New("config not found")
	ErrUnknownPreset    = errors.New("unknown preset")
	ErrInvalidPattern   = errors.New("invalid filter pattern")
	ErrSourceNotFound   = errors.New("source file not found")
	ErrFileTooLarge     = errors.New("file too large")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTransientIO      = errors.New("transient I/O error")
	ErrRetryExhausted   = errors.New("retry attempts exhausted")
	ErrDecode           = errors.New("decode error")
	ErrFilter           = errors.New("filter evaluation failed")
	ErrCallback         = errors.New("callback failed")
	ErrAlreadyRunning   = errors.New("interceptor already running")
	ErrNotRunning       = errors.New("interceptor not running")
	ErrInvalidState     = errors.New("invalid state transition")
	ErrInternal         = errors.New("internal invariant violated")
	ErrTimeout          = errors.New("operation timeout")
)

func NewConfigError(field string, value interface{}) error {
	return fmt.Errorf("%w: field=%s value=%v", ErrConfigInvalid, field, value)
}

func NewPatternError(pattern string, reason error) error {
	return fmt.Errorf("%w: %w: %q: %v", ErrConfigInvalid, ErrInvalidPattern, pattern, reason)
}

func NewPresetError(name string, available []string) error {
	return fmt.Errorf("%w: %w: %s (available: %v)", ErrConfigInvalid, ErrUnknownPreset, name, available)
}

func NewSourceError(path string) error {
	return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
}

func NewFileTooLargeError(path string, size, limit int64) error {
	return fmt.Errorf("%w: %s: size=%d limit=%d", ErrFileTooLarge, path, size, limit)
}

// NewTransientError marks err as retryable. Permission problems additionally match
// ErrPermissionDenied.
func NewTransientError(path string, err error) error {
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %w: %s: %v", ErrTransientIO, ErrPermissionDenied, path, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrTransientIO, path, err)
}

func NewRetryExhaustedError(attempts int, last error) error {
	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, last)
}

func NewDecodeError(encoding string, offset int64) error {
	return fmt.Errorf("%w: invalid %s sequence near offset %d", ErrDecode, encoding, offset)
}

func NewFilterError(line string, reason error) error {
	return fmt.Errorf("%w: line=%q: %w", ErrFilter, truncate(line, 80), reason)
}

func NewCallbackError(id uint64, reason error) error {
	return fmt.Errorf("%w: callback=%d: %w", ErrCallback, id, reason)
}

func NewStateError(op string, state fmt.Stringer) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, state)
}

// IsTransient reports whether err should be retried by the watch loop.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientIO)
}

// IsFatal reports whether err terminates the watch loop.
func IsFatal(err error) bool {
	return errors.Is(err, ErrRetryExhausted) || errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrInternal)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
