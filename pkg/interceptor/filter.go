package interceptor

import (
	"fmt"
	"regexp"
	"strings"

	lterrors "github.com/livp123/logtap/pkg/errors"
	"github.com/sourcegraph/conc/panics"
)

// Filter decides whether a line is kept.
// Implementations must be safe to call from the watch goroutine while the caller
// holds its own reference; none of the built-in filters keep mutable state.
// Filter 决定是否保留某一行。
type Filter interface {
	Evaluate(line string) (bool, error)
}

// FilterMode selects how a PatternFilter interprets a match.
type FilterMode string

const (
	ModeMatch     FilterMode = "match"
	ModeWhitelist FilterMode = "whitelist"
	ModeBlacklist FilterMode = "blacklist"
)

// PatternFilter keeps lines based on a regular expression search.
// PatternFilter 基于正则表达式搜索保留日志行。
type PatternFilter struct {
	re   *regexp.Regexp
	mode FilterMode
}

// NewPatternFilter compiles pattern. An invalid pattern or mode is a configuration error.
// NewPatternFilter 编译正则表达式，无效的模式返回配置错误。
func NewPatternFilter(pattern string, mode FilterMode, caseSensitive bool) (*PatternFilter, error) {
	if mode == "" {
		mode = ModeMatch
	}
	switch mode {
	case ModeMatch, ModeWhitelist, ModeBlacklist:
	default:
		return nil, lterrors.NewConfigError("filter.mode", mode)
	}

	src := pattern
	if !caseSensitive {
		src = "(?i)" + pattern
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, lterrors.NewPatternError(pattern, err)
	}
	return &PatternFilter{re: re, mode: mode}, nil
}

// Evaluate implements Filter.
func (f *PatternFilter) Evaluate(line string) (bool, error) {
	matched := f.re.MatchString(line)
	if f.mode == ModeBlacklist {
		return !matched, nil
	}
	return matched, nil
}

func (f *PatternFilter) String() string {
	return fmt.Sprintf("pattern(%s, %s)", f.mode, f.re.String())
}

// PredicateFunc is a caller supplied keep/drop decision.
type PredicateFunc func(line string) (bool, error)

// PredicateFilter wraps an arbitrary function. Errors and panics raised by the
// function are returned from Evaluate, never swallowed.
// PredicateFilter 包装任意函数，函数返回的错误或 panic 会从 Evaluate 返回。
type PredicateFilter struct {
	fn PredicateFunc
}

func NewPredicateFilter(fn PredicateFunc) *PredicateFilter {
	return &PredicateFilter{fn: fn}
}

// PredicateOf adapts an infallible predicate.
func PredicateOf(fn func(line string) bool) *PredicateFilter {
	return NewPredicateFilter(func(line string) (bool, error) {
		return fn(line), nil
	})
}

// Evaluate implements Filter.
func (f *PredicateFilter) Evaluate(line string) (keep bool, err error) {
	if f.fn == nil {
		return true, nil
	}
	var pc panics.Catcher
	pc.Try(func() {
		keep, err = f.fn(line)
	})
	if r := pc.Recovered(); r != nil {
		return false, r.AsError()
	}
	return keep, err
}

// CompositeMode combines child filter results.
type CompositeMode string

const (
	CompositeAnd CompositeMode = "AND"
	CompositeOr  CompositeMode = "OR"
)

// CompositeFilter evaluates children in order and short-circuits.
// An empty AND keeps every line, an empty OR drops every line.
// CompositeFilter 按顺序评估子过滤器并短路。
type CompositeFilter struct {
	children []Filter
	mode     CompositeMode
}

// NewCompositeFilter builds a composite. Mode is case-insensitive.
func NewCompositeFilter(mode CompositeMode, children ...Filter) (*CompositeFilter, error) {
	m := CompositeMode(strings.ToUpper(string(mode)))
	if m == "" {
		m = CompositeAnd
	}
	if m != CompositeAnd && m != CompositeOr {
		return nil, lterrors.NewConfigError("filter.composite_mode", mode)
	}
	for i, c := range children {
		if c == nil {
			return nil, lterrors.NewConfigError(fmt.Sprintf("filter.children[%d]", i), nil)
		}
	}
	return &CompositeFilter{
		children: append([]Filter(nil), children...),
		mode:     m,
	}, nil
}

// All combines filters with AND.
func All(filters ...Filter) *CompositeFilter {
	f, _ := NewCompositeFilter(CompositeAnd, compact(filters)...)
	return f
}

// Any combines filters with OR.
func Any(filters ...Filter) *CompositeFilter {
	f, _ := NewCompositeFilter(CompositeOr, compact(filters)...)
	return f
}

// Evaluate implements Filter.
func (f *CompositeFilter) Evaluate(line string) (bool, error) {
	want := f.mode == CompositeOr
	for _, c := range f.children {
		ok, err := c.Evaluate(line)
		if err != nil {
			return false, err
		}
		if ok == want {
			return want, nil
		}
	}
	return !want, nil
}

// Len returns the number of direct children.
func (f *CompositeFilter) Len() int {
	return len(f.children)
}

func compact(filters []Filter) []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}
