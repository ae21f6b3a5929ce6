package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/livp123/logtap/internal/config"
	"github.com/livp123/logtap/internal/utils/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	fs         afero.Fs
}

// NewRootCmd assembles the logtap command tree on fsys.
// NewRootCmd 基于 fsys 构建 logtap 命令树。
func NewRootCmd(fsys afero.Fs) *cobra.Command {
	opts := &rootOptions{fs: fsys}

	root := &cobra.Command{
		Use:   "logtap",
		Short: "Real-time log file interceptor",
		// Short: 实时日志文件拦截器
		Long: `logtap watches a log file and republishes every appended line to stdout,
a mirror file and a metrics endpoint, surviving rotation and truncation.
logtap 监视日志文件，将新追加的每一行发布到标准输出、镜像文件和指标端点，
并能正确处理日志轮转和截断。`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load configuration to get logging settings
			// 加载配置以获取日志设置
			logCfg := logger.DefaultLoggingConfig()
			if cfg, err := config.Load(opts.fs, config.ResolvePath(opts.configPath)); err == nil {
				logCfg = cfg.Logging
			}
			if opts.logLevel != "" {
				logCfg.Level = opts.logLevel
			}
			logger.Init(logCfg)

			// Inject logger into context
			// 将 Logger 注入 Context
			cmd.SetContext(logger.WithContext(cmd.Context(), logger.Get(nil)))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	// Config file path
	// 配置文件路径
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		fmt.Sprintf("Path to configuration file (default: $%s or %s)", config.EnvConfigPath, config.DefaultConfigPath))
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")

	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newVersionCmd())
	root.AddCommand(newCompletionCmd(root))
	root.CompletionOptions.DisableDefaultCmd = true

	return root
}

// newCompletionCmd creates a completion command without powershell.
// newCompletionCmd 创建不含 powershell 的自定义补全命令。
func newCompletionCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell autocompletion script",
		Long: `Generate shell autocompletion script for logtap.
生成 logtap 的 shell 自动补全脚本。

Examples:
  logtap completion bash > /etc/bash_completion.d/logtap
  logtap completion zsh  > "${fpath[1]}/_logtap"
  logtap completion fish > ~/.config/fish/completions/logtap.fish`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish)", args[0])
			}
		},
	}
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(afero.NewOsFs()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
