package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/livp123/logtap/internal/config"
	"github.com/livp123/logtap/internal/utils/fileutil"
	"github.com/spf13/cobra"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		// Short: 管理配置文件
	}
	cmd.AddCommand(newConfigInitCmd(root), newConfigShowCmd(root), newConfigValidateCmd(root))
	return cmd
}

func newConfigInitCmd(root *rootOptions) *cobra.Command {
	var (
		preset string
		source string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with default values",
		// Short: 写入包含默认值的配置文件
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolvePath(root.configPath)
			if len(args) == 1 {
				path = args[0]
			}
			if fileutil.Exists(root.fs, path) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if preset != "" {
				if err := cfg.ApplyPreset(preset); err != nil {
					return err
				}
			}
			cfg.Source.Path = source
			if cfg.Source.Path == "" {
				cfg.Source.Path = "/var/log/app.log"
			}

			mgr := config.NewConfigManager(root.fs, path)
			mgr.UpdateConfig(cfg)
			if err := mgr.SaveConfig(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", fmt.Sprintf("Tuning preset (%s)", strings.Join(config.PresetNames(), ", ")))
	cmd.Flags().StringVar(&source, "source", "", "Source log file")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		// Short: 输出生效的配置
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := config.NewConfigManager(root.fs, config.ResolvePath(root.configPath))
			if err := mgr.LoadConfig(); err != nil {
				return err
			}
			if format == "" {
				format = config.FormatFor(mgr.GetConfigPath())
			}
			data, err := config.Marshal(mgr.GetConfig(), strings.ToLower(format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Output format: yaml or toml (default: from the file extension)")
	return cmd
}

func newConfigValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a configuration file, including filters and patterns files",
		// Short: 检查配置文件，包括过滤器和模式文件
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolvePath(root.configPath)
			if len(args) == 1 {
				path = args[0]
			}
			cfg, err := config.Load(root.fs, path)
			if err != nil {
				return err
			}
			if _, err := cfg.ToSettings(root.fs, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (source %s, %d filter(s))\n",
				filepath.Clean(path), cfg.Source.Path, len(cfg.Filters))
			return nil
		},
	}
}
