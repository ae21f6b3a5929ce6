package metrics

import (
	"sync"

	"github.com/livp123/logtap/pkg/interceptor"
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource is anything that reports interceptor statistics.
// *interceptor.Engine satisfies it.
type StatsSource interface {
	ID() string
	SourcePath() string
	Stats() interceptor.Stats
}

var labels = []string{"engine", "source"}

type counterDesc struct {
	desc  *prometheus.Desc
	value func(s interceptor.Stats) uint64
}

// Collector exports the counters of registered engines at scrape time.
// Collector 在抓取时导出已注册引擎的计数器。
type Collector struct {
	mu      sync.RWMutex
	sources []StatsSource

	counters []counterDesc
	buffered *prometheus.Desc
	uptime   *prometheus.Desc
	up       *prometheus.Desc
	paused   *prometheus.Desc
}

func counter(name, help string, value func(s interceptor.Stats) uint64) counterDesc {
	return counterDesc{
		desc:  prometheus.NewDesc("logtap_"+name, help, labels, nil),
		value: value,
	}
}

// NewCollector creates a collector over sources; more can be added with Add.
func NewCollector(sources ...StatsSource) *Collector {
	return &Collector{
		sources: sources,
		counters: []counterDesc{
			counter("lines_captured_total", "Lines accepted by the filter chain and published",
				func(s interceptor.Stats) uint64 { return s.LinesCaptured }),
			counter("events_processed_total", "Read passes triggered by change notifications",
				func(s interceptor.Stats) uint64 { return s.EventsProcessed }),
			counter("lines_filtered_total", "Lines rejected by the filter chain",
				func(s interceptor.Stats) uint64 { return s.LinesFiltered }),
			counter("lines_dropped_paused_total", "Lines discarded while paused",
				func(s interceptor.Stats) uint64 { return s.LinesDroppedPause }),
			counter("filter_errors_total", "Lines dropped because a filter failed",
				func(s interceptor.Stats) uint64 { return s.FilterErrors }),
			counter("callback_errors_total", "Callback invocations that returned an error or panicked",
				func(s interceptor.Stats) uint64 { return s.CallbackErrors }),
			counter("decode_errors_total", "Lines with malformed byte sequences replaced",
				func(s interceptor.Stats) uint64 { return s.DecodeErrors }),
			counter("mirror_errors_total", "Failed appends to the mirror file",
				func(s interceptor.Stats) uint64 { return s.MirrorErrors }),
			counter("retries_total", "Read retries after transient errors",
				func(s interceptor.Stats) uint64 { return s.Retries }),
			counter("rotations_total", "Detected file rotations",
				func(s interceptor.Stats) uint64 { return s.Rotations }),
			counter("truncations_total", "Detected file truncations",
				func(s interceptor.Stats) uint64 { return s.Truncations }),
		},
		buffered: prometheus.NewDesc("logtap_buffered_lines", "Lines currently held in the line buffer", labels, nil),
		uptime:   prometheus.NewDesc("logtap_uptime_seconds", "Seconds since the current or last run started", labels, nil),
		up:       prometheus.NewDesc("logtap_up", "1 if the engine is watching its source", labels, nil),
		paused:   prometheus.NewDesc("logtap_paused", "1 if the engine is paused", labels, nil),
	}
}

// Add registers another source.
func (c *Collector) Add(src StatsSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, src)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	ch <- c.buffered
	ch <- c.uptime
	ch <- c.up
	ch <- c.paused
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	sources := make([]StatsSource, len(c.sources))
	copy(sources, c.sources)
	c.mu.RUnlock()

	for _, src := range sources {
		s := src.Stats()
		lv := []string{src.ID(), src.SourcePath()}
		for _, cd := range c.counters {
			ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, float64(cd.value(s)), lv...)
		}
		ch <- prometheus.MustNewConstMetric(c.buffered, prometheus.GaugeValue, float64(s.BufferedLines), lv...)
		ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, s.UptimeSeconds(), lv...)
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, boolValue(s.State == interceptor.StateRunning || s.State == interceptor.StatePaused), lv...)
		ch <- prometheus.MustNewConstMetric(c.paused, prometheus.GaugeValue, boolValue(s.State == interceptor.StatePaused), lv...)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
