package logger

// LoggingConfig defines the configuration for logging.
// LoggingConfig 定义日志配置。
type LoggingConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// Enabled: 是否写入日志文件，否则输出到 stderr
	Level string `yaml:"level" toml:"level"`
	// Level: 日志级别（debug, info, warn, error）
	Format string `yaml:"format" toml:"format"`
	// Format: 输出格式（console, json）
	Path string `yaml:"path" toml:"path"`
	// Path: 日志文件路径
	MaxSize int `yaml:"max_size" toml:"max_size"`
	// MaxSize: 轮转前的最大大小（MB）
	MaxBackups int `yaml:"max_backups" toml:"max_backups"`
	// MaxBackups: 保留的旧文件最大数量
	MaxAge int `yaml:"max_age" toml:"max_age"`
	// MaxAge: 保留旧文件的最大天数
	Compress bool `yaml:"compress" toml:"compress"`
	// Compress: 是否压缩旧文件
}

// DefaultLoggingConfig returns console logging at info level.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "console",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	}
}
