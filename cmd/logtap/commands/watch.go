package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/livp123/logtap/internal/config"
	"github.com/livp123/logtap/internal/metrics"
	"github.com/livp123/logtap/internal/utils/logger"
	lterrors "github.com/livp123/logtap/pkg/errors"
	"github.com/livp123/logtap/pkg/interceptor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type watchOptions struct {
	mirror        string
	timestamps    bool
	patterns      []string
	excludes      []string
	ignoreCase    bool
	expr          string
	preset        string
	encoding      string
	poll          bool
	allowMissing  bool
	quiet         bool
	printStamps   bool
	metricsAddr   string
	statsInterval time.Duration
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch [source]",
		Short: "Watch a log file and print every new line",
		// Short: 监视日志文件并输出每一个新行
		Long: `Watch a log file and print every line appended after startup.
Settings come from the configuration file; flags override them.
监视日志文件并输出启动后追加的每一行，命令行参数覆盖配置文件。

Examples:
  logtap watch /var/log/app.log
  logtap watch /var/log/app.log --exclude DEBUG --mirror /tmp/app.copy --timestamps
  logtap watch --config /etc/logtap/app.yaml --metrics-addr :9464`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, root, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.mirror, "mirror", "m", "", "Append accepted lines to this file")
	f.BoolVar(&opts.timestamps, "timestamps", false, "Prefix mirrored lines with the capture time")
	f.StringArrayVarP(&opts.patterns, "pattern", "p", nil, "Keep only lines matching this regexp (repeatable, all must match)")
	f.StringArrayVarP(&opts.excludes, "exclude", "x", nil, "Drop lines matching this regexp (repeatable)")
	f.BoolVarP(&opts.ignoreCase, "ignore-case", "i", false, "Case-insensitive --pattern and --exclude")
	f.StringVar(&opts.expr, "expr", "", `Keep lines for which this expression is true, e.g. 'length > 80 && line contains "ERROR"'`)
	f.StringVar(&opts.preset, "preset", "", fmt.Sprintf("Tuning preset (%s); fields set in the config file override it", strings.Join(config.PresetNames(), ", ")))
	f.StringVar(&opts.encoding, "encoding", "", "Source encoding (default utf-8)")
	f.BoolVar(&opts.poll, "poll", false, "Poll the file instead of using inotify")
	f.BoolVar(&opts.allowMissing, "allow-missing", false, "Wait for the source file to appear")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print lines to stdout")
	f.BoolVar(&opts.printStamps, "print-timestamps", false, "Prefix printed lines with the capture time")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")
	f.DurationVar(&opts.statsInterval, "stats-interval", 0, "Log engine statistics at this interval (0 disables)")
	return cmd
}

// resolveConfig loads the configuration file when present and applies flags on top.
func resolveConfig(cmd *cobra.Command, root *rootOptions, opts *watchOptions, args []string) (*config.Config, error) {
	path := config.ResolvePath(root.configPath)
	cfg, err := config.LoadWithPreset(root.fs, path, opts.preset)
	switch {
	case errors.Is(err, lterrors.ErrConfigNotFound) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
		if opts.preset != "" {
			if err := cfg.ApplyPreset(opts.preset); err != nil {
				return nil, err
			}
		}
	case err != nil:
		return nil, err
	}

	f := cmd.Flags()
	if len(args) == 1 {
		cfg.Source.Path = args[0]
	}
	if f.Changed("mirror") {
		cfg.Mirror.Path = opts.mirror
	}
	if f.Changed("timestamps") {
		cfg.Mirror.Timestamps = opts.timestamps
	}
	if f.Changed("encoding") {
		cfg.Source.Encoding = opts.encoding
	}
	if f.Changed("poll") {
		cfg.Watch.Poll = opts.poll
	}
	if f.Changed("allow-missing") {
		cfg.Source.AllowMissing = opts.allowMissing
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = opts.metricsAddr
	}

	caseSensitive := !opts.ignoreCase
	for _, p := range opts.patterns {
		cfg.Filters = append(cfg.Filters, config.FilterSpec{Pattern: p, Mode: "match", CaseSensitive: &caseSensitive})
	}
	for _, p := range opts.excludes {
		cfg.Filters = append(cfg.Filters, config.FilterSpec{Pattern: p, Mode: "blacklist", CaseSensitive: &caseSensitive})
	}
	if opts.expr != "" {
		cfg.Filters = append(cfg.Filters, config.FilterSpec{Expr: opts.expr})
	}
	return cfg, nil
}

func runWatch(cmd *cobra.Command, root *rootOptions, opts *watchOptions, args []string) error {
	log := logger.Get(cmd.Context())

	cfg, err := resolveConfig(cmd, root, opts, args)
	if err != nil {
		return err
	}
	settings, err := cfg.ToSettings(root.fs, log)
	if err != nil {
		return err
	}
	engine, err := interceptor.New(settings)
	if err != nil {
		return err
	}

	if !opts.quiet {
		engine.AddCallback(printer(cmd.OutOrStdout(), opts.printStamps))
	}

	exporter, err := metrics.NewExporter(cfg.Metrics, metrics.NewCollector(engine), root.fs, log)
	if err != nil {
		return err
	}
	if err := exporter.Start(cmd.Context()); err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := exporter.Stop(ctx); err != nil {
			log.Warnf("Stopping metrics exporter: %v", err)
		}
	}()

	log.Infof("Watching %s (engine %s)", settings.SourcePath, engine.ID())
	err = engine.Run(cmd.Context(), func(ctx context.Context, e *interceptor.Engine) error {
		return supervise(ctx, e, log, opts.statsInterval)
	})
	logStats(log, engine.Stats())
	return err
}

// supervise blocks until ctx is done or the engine stops on a fatal error.
func supervise(ctx context.Context, e *interceptor.Engine, log *zap.SugaredLogger, statsInterval time.Duration) error {
	health := time.NewTicker(250 * time.Millisecond)
	defer health.Stop()

	var statsC <-chan time.Time
	if statsInterval > 0 {
		stats := time.NewTicker(statsInterval)
		defer stats.Stop()
		statsC = stats.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-health.C:
			if e.State() == interceptor.StateStopped {
				if err := e.LastError(); err != nil {
					return err
				}
				return lterrors.ErrNotRunning
			}
		case <-statsC:
			logStats(log, e.Stats())
		}
	}
}

func logStats(log *zap.SugaredLogger, s interceptor.Stats) {
	log.Infow("Interceptor statistics",
		"captured", s.LinesCaptured,
		"filtered", s.LinesFiltered,
		"events", s.EventsProcessed,
		"filter_errors", s.FilterErrors,
		"callback_errors", s.CallbackErrors,
		"retries", s.Retries,
		"rotations", s.Rotations,
		"uptime", s.Uptime.Round(time.Millisecond),
		"state", s.State,
	)
}

// printer writes accepted lines to w. Callbacks run on the watch goroutine only.
func printer(w io.Writer, timestamps bool) interceptor.CallbackFunc {
	return func(line interceptor.CapturedLine) error {
		_, err := fmt.Fprintln(w, interceptor.FormatMirrorLine(line, timestamps))
		return err
	}
}
