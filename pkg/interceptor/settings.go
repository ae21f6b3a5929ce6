package interceptor

import (
	"path/filepath"
	"strings"
	"time"

	lterrors "github.com/livp123/logtap/pkg/errors"
	"github.com/spf13/afero"
)

const (
	DefaultBufferSize       = 1000
	DefaultDebounceInterval = 100 * time.Millisecond
	DefaultRetryMaxAttempts = 3
	DefaultRetryDelay       = time.Second
	DefaultRetryMaxDelay    = 30 * time.Second
	DefaultEncoding         = "utf-8"
)

// BackoffKind selects how the retry delay grows between attempts.
type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffExponential BackoffKind = "exponential"
)

// Settings is the resolved configuration of one engine. Start from
// DefaultSettings; the zero value disables rotation following and retries.
// Settings 是单个引擎的已解析配置，请从 DefaultSettings 开始构建。
type Settings struct {
	SourcePath   string
	MirrorPath   string // empty disables the mirror file
	AllowMissing bool   // defer opening until the source appears

	UseBuffer  bool
	BufferSize int
	Overflow   OverflowPolicy

	// Filters are combined with AND; an empty list keeps every line.
	Filters []Filter

	Encoding      string
	AddTimestamps bool

	DebounceInterval time.Duration

	RetryOnError     bool
	RetryMaxAttempts int
	RetryDelay       time.Duration
	RetryBackoff     BackoffKind
	RetryMaxDelay    time.Duration

	MaxFileSize     int64 // 0 means unlimited
	FollowRotations bool

	// Poll selects the polling notifier; Notifier overrides both.
	Poll     bool
	Notifier Notifier

	// FS is the filesystem the source is read through; nil means the OS.
	FS afero.Fs

	Logger Logger
}

// DefaultSettings returns the balanced defaults for source.
func DefaultSettings(source string) Settings {
	return Settings{
		SourcePath:       source,
		BufferSize:       DefaultBufferSize,
		Overflow:         OverflowFIFO,
		Encoding:         DefaultEncoding,
		DebounceInterval: DefaultDebounceInterval,
		RetryOnError:     true,
		RetryMaxAttempts: DefaultRetryMaxAttempts,
		RetryDelay:       DefaultRetryDelay,
		RetryBackoff:     BackoffFixed,
		RetryMaxDelay:    DefaultRetryMaxDelay,
		FollowRotations:  true,
	}
}

// Validate checks the settings for errors.
// Validate 检查配置是否存在错误。
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.SourcePath) == "" {
		return lterrors.NewConfigError("source_path", s.SourcePath)
	}
	if s.BufferSize < 0 || (s.UseBuffer && s.BufferSize == 0) {
		return lterrors.NewConfigError("buffer_size", s.BufferSize)
	}
	if s.Overflow != "" && OverflowPolicy(strings.ToLower(string(s.Overflow))) != OverflowFIFO {
		return lterrors.NewConfigError("overflow_strategy", s.Overflow)
	}
	if s.DebounceInterval < 0 {
		return lterrors.NewConfigError("debounce_interval", s.DebounceInterval)
	}
	if s.RetryMaxAttempts < 0 {
		return lterrors.NewConfigError("retry_max_attempts", s.RetryMaxAttempts)
	}
	if s.RetryDelay < 0 {
		return lterrors.NewConfigError("retry_delay", s.RetryDelay)
	}
	if s.RetryMaxDelay < 0 {
		return lterrors.NewConfigError("retry_max_delay", s.RetryMaxDelay)
	}
	switch s.RetryBackoff {
	case "", BackoffFixed, BackoffExponential:
	default:
		return lterrors.NewConfigError("retry_backoff", s.RetryBackoff)
	}
	if s.MaxFileSize < 0 {
		return lterrors.NewConfigError("max_file_size", s.MaxFileSize)
	}
	if s.MirrorPath != "" && sameCleanPath(s.MirrorPath, s.SourcePath) {
		return lterrors.NewConfigError("mirror_path", s.MirrorPath)
	}
	for i, f := range s.Filters {
		if f == nil {
			return lterrors.NewConfigError("filters", i)
		}
	}
	return nil
}

// retryDelay returns the wait before retry number attempt (1-based).
func (s *Settings) retryDelay(attempt int) time.Duration {
	d := s.RetryDelay
	if s.RetryBackoff != BackoffExponential {
		return d
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if s.RetryMaxDelay > 0 && d >= s.RetryMaxDelay {
			return s.RetryMaxDelay
		}
	}
	return d
}

func sameCleanPath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
