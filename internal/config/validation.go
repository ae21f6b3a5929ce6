package config

import (
	"fmt"
	"strings"
	"time"

	lterrors "github.com/livp123/logtap/pkg/errors"
	"github.com/livp123/logtap/pkg/interceptor"
)

// Validate checks the configuration for errors.
// Validate 检查配置是否存在错误。
func (c *Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source config error: %w", err)
	}
	if err := c.Buffer.Validate(); err != nil {
		return fmt.Errorf("buffer config error: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch config error: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry config error: %w", err)
	}
	for i := range c.Filters {
		if err := c.Filters[i].Validate(); err != nil {
			return fmt.Errorf("filter #%d error: %w", i, err)
		}
	}
	if c.Mirror.Path != "" && c.Mirror.Path == c.Source.Path {
		return lterrors.NewConfigError("mirror.path", c.Mirror.Path)
	}
	if c.Metrics.Interval != "" {
		if _, err := parseDuration("metrics.interval", c.Metrics.Interval); err != nil {
			return err
		}
	}
	return nil
}

func (c *SourceConfig) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return lterrors.NewConfigError("source.path", c.Path)
	}
	if c.MaxFileSize < 0 {
		return lterrors.NewConfigError("source.max_file_size", c.MaxFileSize)
	}
	return nil
}

func (c *BufferConfig) Validate() error {
	if c.Size < 0 || (c.Enabled && c.Size == 0) {
		return lterrors.NewConfigError("buffer.size", c.Size)
	}
	if c.Overflow != "" && !strings.EqualFold(c.Overflow, string(interceptor.OverflowFIFO)) {
		return lterrors.NewConfigError("buffer.overflow", c.Overflow)
	}
	return nil
}

func (c *WatchConfig) Validate() error {
	_, err := parseDuration("watch.debounce_interval", c.DebounceInterval)
	return err
}

func (c *RetryConfig) Validate() error {
	if c.MaxAttempts < 0 {
		return lterrors.NewConfigError("retry.max_attempts", c.MaxAttempts)
	}
	if _, err := parseDuration("retry.delay", c.Delay); err != nil {
		return err
	}
	if _, err := parseDuration("retry.max_delay", c.MaxDelay); err != nil {
		return err
	}
	switch interceptor.BackoffKind(strings.ToLower(c.Backoff)) {
	case "", interceptor.BackoffFixed, interceptor.BackoffExponential:
	default:
		return lterrors.NewConfigError("retry.backoff", c.Backoff)
	}
	return nil
}

// Validate checks the shape of the spec and compiles patterns and expressions.
// Patterns files are only read by Build.
func (f *FilterSpec) Validate() error {
	kinds := 0
	for _, set := range []bool{f.Pattern != "", f.PatternsFile != "", f.Expr != "", f.Composite != ""} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return lterrors.NewConfigError("filter", "exactly one of pattern, patterns_file, expr, composite must be set")
	}
	switch {
	case f.Pattern != "":
		_, err := interceptor.NewPatternFilter(f.Pattern, interceptor.FilterMode(strings.ToLower(f.Mode)), f.caseSensitive())
		return err
	case f.PatternsFile != "":
		return validMode(f.Mode)
	case f.Expr != "":
		_, err := interceptor.NewExprFilter(f.Expr)
		return err
	}

	switch interceptor.CompositeMode(strings.ToUpper(f.Composite)) {
	case interceptor.CompositeAnd, interceptor.CompositeOr:
	default:
		return lterrors.NewConfigError("filter.composite", f.Composite)
	}
	for i := range f.Filters {
		if err := f.Filters[i].Validate(); err != nil {
			return fmt.Errorf("child #%d: %w", i, err)
		}
	}
	return nil
}

func (f *FilterSpec) caseSensitive() bool {
	return f.CaseSensitive == nil || *f.CaseSensitive
}

func validMode(mode string) error {
	switch interceptor.FilterMode(strings.ToLower(mode)) {
	case "", interceptor.ModeMatch, interceptor.ModeWhitelist, interceptor.ModeBlacklist:
		return nil
	}
	return lterrors.NewConfigError("filter.mode", mode)
}

// parseDuration accepts Go duration strings; empty means zero.
func parseDuration(field, value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, lterrors.NewConfigError(field, value)
	}
	return d, nil
}
