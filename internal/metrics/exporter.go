package metrics

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/livp123/logtap/internal/utils/fileutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Config defines how metrics are exported.
// Config 定义指标导出方式。
type Config struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// Addr: HTTP 监听地址，例如 ":9464"，为空则不启动服务
	Addr string `yaml:"addr" toml:"addr"`
	// TextfilePath: node_exporter textfile 输出路径
	TextfilePath string `yaml:"textfile_path" toml:"textfile_path"`
	// PushGateway: PushGateway 地址
	PushGateway string `yaml:"push_gateway" toml:"push_gateway"`
	// Interval: textfile 写入和推送的间隔
	Interval string `yaml:"interval" toml:"interval"`
	Job      string `yaml:"job" toml:"job"`
}

// DefaultConfig returns a disabled exporter with a one minute interval.
func DefaultConfig() Config {
	return Config{
		Addr:     ":9464",
		Interval: "1m",
		Job:      "logtap",
	}
}

// Exporter serves and exports a private registry holding the Collector.
// Exporter 通过 HTTP、textfile 或 PushGateway 导出指标。
type Exporter struct {
	cfg      Config
	registry *prometheus.Registry
	fs       afero.Fs
	logger   *zap.SugaredLogger
	server   *http.Server
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewExporter registers collector (plus the Go runtime collectors) on a fresh registry.
func NewExporter(cfg Config, collector prometheus.Collector, fsys afero.Fs, logger *zap.SugaredLogger) (*Exporter, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collector); err != nil {
		return nil, err
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.Job == "" {
		cfg.Job = "logtap"
	}
	return &Exporter{cfg: cfg, registry: reg, fs: fsys, logger: logger}, nil
}

// Registry exposes the underlying registry, mostly for tests.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Handler returns the /metrics handler for the private registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Start launches the HTTP server and the periodic export loop as configured.
func (e *Exporter) Start(ctx context.Context) error {
	if !e.cfg.Enabled {
		e.logger.Debugf("Metrics exporter is disabled")
		return nil
	}
	interval := time.Minute
	if e.cfg.Interval != "" {
		d, err := time.ParseDuration(e.cfg.Interval)
		if err != nil {
			return err
		}
		interval = d
	}

	// 1. HTTP server
	if e.cfg.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", e.Handler())
		e.server = &http.Server{
			Addr:              e.cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			e.logger.Infof("Metrics HTTP server listening on %s", e.cfg.Addr)
			if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.logger.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	// 2. Textfile and push loop
	if e.cfg.TextfilePath == "" && e.cfg.PushGateway == "" {
		return nil
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	go func() {
		defer close(e.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.export()
				return
			case <-ticker.C:
				e.export()
			}
		}
	}()
	return nil
}

func (e *Exporter) export() {
	if e.cfg.TextfilePath != "" {
		if err := e.WriteTextfile(e.cfg.TextfilePath); err != nil {
			e.logger.Warnf("Failed to write metrics textfile: %v", err)
		}
	}
	if e.cfg.PushGateway != "" {
		if err := e.Push(); err != nil {
			e.logger.Warnf("Could not push to PushGateway %s: %v", e.cfg.PushGateway, err)
		}
	}
}

// WriteTextfile writes the current metrics in the text exposition format,
// replacing path atomically.
// WriteTextfile 以文本格式写出当前指标，原子替换目标文件。
func (e *Exporter) WriteTextfile(path string) error {
	mfs, err := e.registry.Gather()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return fileutil.AtomicWriteFile(e.fs, path, buf.Bytes(), 0644)
}

// Push sends the current metrics to the configured PushGateway.
func (e *Exporter) Push() error {
	return push.New(e.cfg.PushGateway, e.cfg.Job).
		Gatherer(e.registry).
		Push()
}

// Stop shuts the server down and flushes one final export.
func (e *Exporter) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
		<-e.done
		e.cancel = nil
	}
	if e.server != nil {
		err := e.server.Shutdown(ctx)
		e.server = nil
		return err
	}
	return nil
}
