package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/livp123/logtap/internal/metrics"
	"github.com/livp123/logtap/internal/utils/fileutil"
	"github.com/livp123/logtap/internal/utils/logger"
	lterrors "github.com/livp123/logtap/pkg/errors"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration of one logtap instance.
// Config 是 logtap 实例的配置文件结构。
type Config struct {
	// Preset: 预设名称（aggressive, balanced, conservative），文件中的其他字段会覆盖预设值
	Preset  string               `yaml:"preset,omitempty" toml:"preset,omitempty"`
	Source  SourceConfig         `yaml:"source" toml:"source"`
	Mirror  MirrorConfig         `yaml:"mirror" toml:"mirror"`
	Buffer  BufferConfig         `yaml:"buffer" toml:"buffer"`
	Watch   WatchConfig          `yaml:"watch" toml:"watch"`
	Retry   RetryConfig          `yaml:"retry" toml:"retry"`
	Filters []FilterSpec         `yaml:"filters,omitempty" toml:"filters,omitempty"`
	Logging logger.LoggingConfig `yaml:"logging" toml:"logging"`
	Metrics metrics.Config       `yaml:"metrics" toml:"metrics"`
}

type SourceConfig struct {
	Path            string `yaml:"path" toml:"path"`
	AllowMissing    bool   `yaml:"allow_missing" toml:"allow_missing"`
	Encoding        string `yaml:"encoding" toml:"encoding"`
	MaxFileSize     int64  `yaml:"max_file_size" toml:"max_file_size"` // bytes, 0 = unlimited
	FollowRotations bool   `yaml:"follow_rotations" toml:"follow_rotations"`
}

type MirrorConfig struct {
	Path       string `yaml:"path" toml:"path"`
	Timestamps bool   `yaml:"timestamps" toml:"timestamps"`
}

type BufferConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	Size     int    `yaml:"size" toml:"size"`
	Overflow string `yaml:"overflow" toml:"overflow"`
}

type WatchConfig struct {
	DebounceInterval string `yaml:"debounce_interval" toml:"debounce_interval"`
	// Poll: 使用轮询代替 inotify（网络或 overlay 文件系统）
	Poll bool `yaml:"poll" toml:"poll"`
}

type RetryConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	MaxAttempts int    `yaml:"max_attempts" toml:"max_attempts"`
	Delay       string `yaml:"delay" toml:"delay"`
	Backoff     string `yaml:"backoff" toml:"backoff"`
	MaxDelay    string `yaml:"max_delay" toml:"max_delay"`
}

// FilterSpec declares one filter. Exactly one of Pattern, PatternsFile, Expr
// or Composite must be set.
// FilterSpec 声明一个过滤器，Pattern、PatternsFile、Expr、Composite 只能设置其一。
type FilterSpec struct {
	Pattern string `yaml:"pattern,omitempty" toml:"pattern,omitempty"`
	// PatternsFile: 每行一个正则表达式，任意一个匹配即视为匹配
	PatternsFile  string `yaml:"patterns_file,omitempty" toml:"patterns_file,omitempty"`
	Mode          string `yaml:"mode,omitempty" toml:"mode,omitempty"`
	CaseSensitive *bool  `yaml:"case_sensitive,omitempty" toml:"case_sensitive,omitempty"`

	Expr string `yaml:"expr,omitempty" toml:"expr,omitempty"`

	Composite string       `yaml:"composite,omitempty" toml:"composite,omitempty"`
	Filters   []FilterSpec `yaml:"filters,omitempty" toml:"filters,omitempty"`
}

// Default returns the balanced configuration.
// Default 返回 balanced 预设的默认配置。
func Default() *Config {
	cfg := &Config{
		Source: SourceConfig{
			Encoding:        "utf-8",
			FollowRotations: true,
		},
		Buffer: BufferConfig{
			Enabled:  true,
			Overflow: "fifo",
		},
		Retry: RetryConfig{
			Enabled:  true,
			Backoff:  "fixed",
			MaxDelay: "30s",
		},
		Logging: logger.DefaultLoggingConfig(),
		Metrics: metrics.DefaultConfig(),
	}
	// balanced is always known
	_ = cfg.ApplyPreset(PresetBalanced)
	cfg.Preset = ""
	return cfg
}

// FormatFor picks the codec from the file extension; anything that is not
// .toml is read as YAML.
func FormatFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

func unmarshal(data []byte, format string, v any) error {
	if format == FormatTOML {
		return toml.Unmarshal(data, v)
	}
	return yaml.Unmarshal(data, v)
}

// Parse decodes data on top of the defaults. A preset named in the document
// is applied first so that every other field in the document overrides it.
// Parse 在默认值之上解析配置，先应用预设，再由文件中的字段覆盖。
func Parse(data []byte, format string) (*Config, error) {
	return ParseWithPreset(data, format, "")
}

// ParseWithPreset is Parse with preset used in place of the preset named in
// the document. Fields set in the document still override it.
// ParseWithPreset 使用指定预设替换文件中的预设，文件字段仍然优先。
func ParseWithPreset(data []byte, format, preset string) (*Config, error) {
	var head struct {
		Preset string `yaml:"preset" toml:"preset"`
	}
	if err := unmarshal(data, format, &head); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", lterrors.ErrConfigInvalid, format, err)
	}

	name := head.Preset
	if preset != "" {
		name = preset
	}
	cfg := Default()
	if name != "" {
		if err := cfg.ApplyPreset(name); err != nil {
			return nil, err
		}
	}
	applied := cfg.Preset
	if err := unmarshal(data, format, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", lterrors.ErrConfigInvalid, format, err)
	}
	cfg.Preset = applied

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
// Load 从文件加载配置。
func Load(fsys afero.Fs, path string) (*Config, error) {
	return LoadWithPreset(fsys, path, "")
}

// LoadWithPreset reads path with ParseWithPreset semantics.
func LoadWithPreset(fsys afero.Fs, path, preset string) (*Config, error) {
	safePath := filepath.Clean(path) // Sanitize path to prevent directory traversal
	data, err := afero.ReadFile(fsys, safePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", lterrors.ErrConfigNotFound, safePath)
		}
		return nil, err
	}
	return ParseWithPreset(data, FormatFor(safePath), preset)
}

// Marshal encodes cfg in the given format.
func Marshal(cfg *Config, format string) ([]byte, error) {
	if format == FormatTOML {
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes cfg to path atomically, in the format implied by the extension.
// Save 按扩展名对应的格式原子地写入配置。
func Save(fsys afero.Fs, path string, cfg *Config) error {
	data, err := Marshal(cfg, FormatFor(path))
	if err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(fsys, path, data, 0600)
}

// ResolvePath returns flagPath, else $LOGTAP_CONFIG, else DefaultConfigPath.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultConfigPath
}
