package config

const (
	// DefaultConfigPath is the standard location of the logtap configuration file.
	// DefaultConfigPath 是 logtap 配置文件的标准位置。
	DefaultConfigPath = "/etc/logtap/logtap.yaml"

	// EnvConfigPath overrides DefaultConfigPath when set.
	// EnvConfigPath 设置时覆盖默认配置路径。
	EnvConfigPath = "LOGTAP_CONFIG"

	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Preset names.
const (
	PresetAggressive   = "aggressive"
	PresetBalanced     = "balanced"
	PresetConservative = "conservative"
)
