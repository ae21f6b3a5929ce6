package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfigManager tests load, copy, update and save
// TestConfigManager 测试加载、复制、更新和保存
func TestConfigManager(t *testing.T) {
	fsys := afero.NewMemMapFs()
	cm := NewConfigManager(fsys, "/etc/logtap/logtap.yaml")
	assert.Equal(t, "/etc/logtap/logtap.yaml", cm.GetConfigPath())
	assert.Nil(t, cm.GetConfig())
	assert.NoError(t, cm.SaveConfig())
	assert.Error(t, cm.LoadConfig())

	cfg := Default()
	cfg.Source.Path = "/var/log/app.log"
	cfg.Filters = []FilterSpec{{Pattern: "x"}}
	cm.UpdateConfig(cfg)
	require.NoError(t, cm.SaveConfig())

	got := cm.GetConfig()
	got.Source.Path = "/elsewhere.log"
	got.Filters[0].Pattern = "y"
	assert.Equal(t, "/var/log/app.log", cm.GetConfig().Source.Path)
	assert.Equal(t, "x", cm.GetConfig().Filters[0].Pattern)

	other := NewConfigManager(fsys, "/etc/logtap/logtap.yaml")
	require.NoError(t, other.LoadConfig())
	assert.Equal(t, "/var/log/app.log", other.GetConfig().Source.Path)
	assert.Same(t, fsys, other.Fs())
}

// TestResolvePath tests config path precedence
// TestResolvePath 测试配置路径优先级
func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultConfigPath, ResolvePath(""))

	t.Setenv(EnvConfigPath, "/tmp/env.yaml")
	assert.Equal(t, "/tmp/env.yaml", ResolvePath(""))
	assert.Equal(t, "/tmp/flag.toml", ResolvePath("/tmp/flag.toml"))
	assert.Equal(t, FormatTOML, FormatFor("/tmp/flag.TOML"))
	assert.Equal(t, FormatYAML, FormatFor("/tmp/flag.yml"))
}
