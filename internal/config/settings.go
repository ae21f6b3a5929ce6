package config

import (
	"fmt"
	"strings"

	"github.com/livp123/logtap/internal/utils/fileutil"
	lterrors "github.com/livp123/logtap/pkg/errors"
	"github.com/livp123/logtap/pkg/interceptor"
	"github.com/spf13/afero"
)

// ToSettings resolves the configuration into engine settings, compiling every
// declared filter. fsys is used for patterns files and by the engine itself.
// ToSettings 将配置转换为引擎设置，并编译所有声明的过滤器。
func (c *Config) ToSettings(fsys afero.Fs, log interceptor.Logger) (interceptor.Settings, error) {
	if err := c.Validate(); err != nil {
		return interceptor.Settings{}, err
	}

	s := interceptor.DefaultSettings(c.Source.Path)
	s.AllowMissing = c.Source.AllowMissing
	s.Encoding = c.Source.Encoding
	s.MaxFileSize = c.Source.MaxFileSize
	s.FollowRotations = c.Source.FollowRotations

	s.MirrorPath = c.Mirror.Path
	s.AddTimestamps = c.Mirror.Timestamps

	s.UseBuffer = c.Buffer.Enabled
	s.BufferSize = c.Buffer.Size
	if c.Buffer.Overflow != "" {
		s.Overflow = interceptor.OverflowPolicy(strings.ToLower(c.Buffer.Overflow))
	}

	// Durations were checked by Validate.
	s.DebounceInterval, _ = parseDuration("watch.debounce_interval", c.Watch.DebounceInterval)
	s.Poll = c.Watch.Poll

	s.RetryOnError = c.Retry.Enabled
	s.RetryMaxAttempts = c.Retry.MaxAttempts
	s.RetryDelay, _ = parseDuration("retry.delay", c.Retry.Delay)
	s.RetryMaxDelay, _ = parseDuration("retry.max_delay", c.Retry.MaxDelay)
	if c.Retry.Backoff != "" {
		s.RetryBackoff = interceptor.BackoffKind(strings.ToLower(c.Retry.Backoff))
	}

	for i := range c.Filters {
		f, err := c.Filters[i].Build(fsys)
		if err != nil {
			return interceptor.Settings{}, fmt.Errorf("filter #%d error: %w", i, err)
		}
		s.Filters = append(s.Filters, f)
	}

	s.FS = fsys
	s.Logger = log
	return s, s.Validate()
}

// Build compiles the spec into a filter.
// Build 将过滤器声明编译为过滤器。
func (f *FilterSpec) Build(fsys afero.Fs) (interceptor.Filter, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	mode := interceptor.FilterMode(strings.ToLower(f.Mode))

	switch {
	case f.Pattern != "":
		return interceptor.NewPatternFilter(f.Pattern, mode, f.caseSensitive())

	case f.PatternsFile != "":
		if fsys == nil {
			fsys = afero.NewOsFs()
		}
		patterns, err := fileutil.ReadLines(fsys, f.PatternsFile)
		if err != nil {
			return nil, fmt.Errorf("read patterns file %s: %w", f.PatternsFile, err)
		}
		if len(patterns) == 0 {
			return nil, lterrors.NewConfigError("filter.patterns_file", f.PatternsFile)
		}
		// One alternation keeps blacklist semantics "drop if any matches".
		alts := make([]string, len(patterns))
		for i, p := range patterns {
			alts[i] = "(?:" + p + ")"
		}
		return interceptor.NewPatternFilter(strings.Join(alts, "|"), mode, f.caseSensitive())

	case f.Expr != "":
		return interceptor.NewExprFilter(f.Expr)
	}

	children := make([]interceptor.Filter, 0, len(f.Filters))
	for i := range f.Filters {
		child, err := f.Filters[i].Build(fsys)
		if err != nil {
			return nil, fmt.Errorf("child #%d: %w", i, err)
		}
		children = append(children, child)
	}
	return interceptor.NewCompositeFilter(interceptor.CompositeMode(f.Composite), children...)
}
