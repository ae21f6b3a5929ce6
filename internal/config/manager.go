package config

import (
	"sync"

	"github.com/spf13/afero"
)

// ConfigManager handles loading, caching and saving one configuration file.
// ConfigManager 负责加载、缓存和保存单个配置文件。
type ConfigManager struct {
	fs         afero.Fs
	configPath string
	mutex      sync.RWMutex
	config     *Config
}

// NewConfigManager creates a new configuration manager instance
// NewConfigManager 创建新的配置管理器实例
func NewConfigManager(fsys afero.Fs, configPath string) *ConfigManager {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &ConfigManager{
		fs:         fsys,
		configPath: configPath,
	}
}

// LoadConfig loads the configuration from the specified path
// LoadConfig 从指定路径加载配置
func (cm *ConfigManager) LoadConfig() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cfg, err := Load(cm.fs, cm.configPath)
	if err != nil {
		return err
	}
	cm.config = cfg
	return nil
}

// SaveConfig saves the current configuration to the specified path
// SaveConfig 将当前配置保存到指定路径
func (cm *ConfigManager) SaveConfig() error {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}
	return Save(cm.fs, cm.configPath, cm.config)
}

// GetConfig returns a copy of the current configuration
// GetConfig 返回当前配置的副本
func (cm *ConfigManager) GetConfig() *Config {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}
	// Return a copy to prevent external modifications
	cfgCopy := *cm.config
	cfgCopy.Filters = append([]FilterSpec(nil), cm.config.Filters...)
	return &cfgCopy
}

// UpdateConfig updates the current configuration
// UpdateConfig 更新当前配置
func (cm *ConfigManager) UpdateConfig(newConfig *Config) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.config = newConfig
}

func (cm *ConfigManager) GetConfigPath() string {
	return cm.configPath
}

func (cm *ConfigManager) Fs() afero.Fs {
	return cm.fs
}
