package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/livp123/logtap/pkg/interceptor"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	id, path string
	stats    interceptor.Stats
}

func (f *fakeSource) ID() string               { return f.id }
func (f *fakeSource) SourcePath() string       { return f.path }
func (f *fakeSource) Stats() interceptor.Stats { return f.stats }

func findMetric(t *testing.T, mfs []*dto.MetricFamily, name, engine string) *dto.Metric {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "engine" && lp.GetValue() == engine {
					return m
				}
			}
		}
	}
	t.Fatalf("metric %s{engine=%q} not found", name, engine)
	return nil
}

// TestCollector_Collect tests exporting engine statistics
// TestCollector_Collect 测试导出引擎统计信息
func TestCollector_Collect(t *testing.T) {
	a := &fakeSource{id: "a", path: "/var/log/a.log", stats: interceptor.Stats{
		LinesCaptured:  42,
		CallbackErrors: 2,
		BufferedLines:  7,
		Uptime:         90 * time.Second,
		State:          interceptor.StatePaused,
	}}
	b := &fakeSource{id: "b", path: "/var/log/b.log", stats: interceptor.Stats{State: interceptor.StateStopped}}

	c := NewCollector(a)
	c.Add(b)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 42.0, findMetric(t, mfs, "logtap_lines_captured_total", "a").GetCounter().GetValue())
	assert.Equal(t, 2.0, findMetric(t, mfs, "logtap_callback_errors_total", "a").GetCounter().GetValue())
	assert.Equal(t, 7.0, findMetric(t, mfs, "logtap_buffered_lines", "a").GetGauge().GetValue())
	assert.Equal(t, 90.0, findMetric(t, mfs, "logtap_uptime_seconds", "a").GetGauge().GetValue())
	assert.Equal(t, 1.0, findMetric(t, mfs, "logtap_up", "a").GetGauge().GetValue())
	assert.Equal(t, 1.0, findMetric(t, mfs, "logtap_paused", "a").GetGauge().GetValue())
	assert.Equal(t, 0.0, findMetric(t, mfs, "logtap_up", "b").GetGauge().GetValue())

	var source string
	for _, lp := range findMetric(t, mfs, "logtap_retries_total", "b").GetLabel() {
		if lp.GetName() == "source" {
			source = lp.GetValue()
		}
	}
	assert.Equal(t, "/var/log/b.log", source)
}

// TestExporter_Handler tests the /metrics handler
// TestExporter_Handler 测试 /metrics 处理器
func TestExporter_Handler(t *testing.T) {
	src := &fakeSource{id: "x", path: "/tmp/x.log", stats: interceptor.Stats{LinesCaptured: 3}}
	exp, err := NewExporter(Config{Enabled: true}, NewCollector(src), afero.NewMemMapFs(), nil)
	require.NoError(t, err)

	srv := httptest.NewServer(exp.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `logtap_lines_captured_total{engine="x",source="/tmp/x.log"} 3`)
	assert.Contains(t, string(body), "go_goroutines")
}

// TestExporter_WriteTextfile tests textfile export
// TestExporter_WriteTextfile 测试 textfile 导出
func TestExporter_WriteTextfile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	src := &fakeSource{id: "x", path: "/tmp/x.log", stats: interceptor.Stats{Rotations: 4}}
	exp, err := NewExporter(DefaultConfig(), NewCollector(src), fsys, nil)
	require.NoError(t, err)

	require.NoError(t, exp.WriteTextfile("/var/lib/node_exporter/logtap.prom"))
	data, err := afero.ReadFile(fsys, "/var/lib/node_exporter/logtap.prom")
	require.NoError(t, err)
	assert.Contains(t, string(data), "# TYPE logtap_rotations_total counter")
	assert.Contains(t, string(data), `logtap_rotations_total{engine="x",source="/tmp/x.log"} 4`)
}

// TestExporter_Push tests pushing to a gateway on stop
// TestExporter_Push 测试停止时推送到 PushGateway
func TestExporter_Push(t *testing.T) {
	var pushed atomic.Int32
	var path atomic.Value
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.Method + " " + r.URL.Path)
		pushed.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	cfg := Config{Enabled: true, PushGateway: gw.URL, Interval: "1h", Job: "logtap-test"}
	exp, err := NewExporter(cfg, NewCollector(), afero.NewMemMapFs(), nil)
	require.NoError(t, err)
	require.NoError(t, exp.Start(context.Background()))
	require.NoError(t, exp.Stop(context.Background()))

	assert.Equal(t, int32(1), pushed.Load())
	assert.True(t, strings.HasPrefix(path.Load().(string), "PUT /metrics/job/logtap-test"))
}

// TestExporter_Disabled tests that a disabled exporter does nothing
// TestExporter_Disabled 测试禁用时不启动任何导出
func TestExporter_Disabled(t *testing.T) {
	exp, err := NewExporter(Config{Addr: ":0"}, NewCollector(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, exp.Start(context.Background()))
	assert.Nil(t, exp.server)
	assert.NoError(t, exp.Stop(context.Background()))

	exp, err = NewExporter(Config{Enabled: true, Interval: "soon"}, NewCollector(), nil, nil)
	require.NoError(t, err)
	assert.Error(t, exp.Start(context.Background()))
}
