package config

import (
	"sort"
	"strings"

	lterrors "github.com/livp123/logtap/pkg/errors"
)

// preset holds the tuning fields a preset controls.
type preset struct {
	debounce    string
	bufferSize  int
	maxAttempts int
	retryDelay  string
}

var presets = map[string]preset{
	// Low latency and a large buffer, tolerant of flaky storage.
	PresetAggressive: {debounce: "10ms", bufferSize: 10000, maxAttempts: 5, retryDelay: "500ms"},
	PresetBalanced:   {debounce: "100ms", bufferSize: 1000, maxAttempts: 3, retryDelay: "1s"},
	// Few wakeups, small footprint, fails fast.
	PresetConservative: {debounce: "500ms", bufferSize: 500, maxAttempts: 1, retryDelay: "2s"},
}

// PresetNames lists the known presets in alphabetical order.
// PresetNames 按字母顺序列出所有预设。
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset overwrites the tuning fields with the named preset.
// ApplyPreset 使用指定预设覆盖调优字段。
func (c *Config) ApplyPreset(name string) error {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return lterrors.NewPresetError(name, PresetNames())
	}
	c.Preset = strings.ToLower(strings.TrimSpace(name))
	c.Watch.DebounceInterval = p.debounce
	c.Buffer.Size = p.bufferSize
	c.Retry.MaxAttempts = p.maxAttempts
	c.Retry.Delay = p.retryDelay
	return nil
}
