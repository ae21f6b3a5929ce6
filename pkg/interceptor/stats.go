package interceptor

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a point-in-time view of an engine's counters.
// Stats 是引擎计数器的时间点快照。
type Stats struct {
	LinesCaptured   uint64
	EventsProcessed uint64
	StartTime       time.Time
	Uptime          time.Duration

	LinesFiltered     uint64 // rejected by the filter chain
	LinesDroppedPause uint64 // read while paused
	FilterErrors      uint64
	CallbackErrors    uint64
	DecodeErrors      uint64
	MirrorErrors      uint64
	Retries           uint64
	Rotations         uint64
	Truncations       uint64

	BufferedLines int
	BufferEvicted uint64
	Callbacks     int
	State         State
}

// UptimeSeconds mirrors Uptime as fractional seconds.
func (s Stats) UptimeSeconds() float64 {
	return s.Uptime.Seconds()
}

// StatsTracker holds engine counters. Counters are atomics; the start/stop
// times share a small mutex.
type StatsTracker struct {
	linesCaptured     atomic.Uint64
	eventsProcessed   atomic.Uint64
	linesFiltered     atomic.Uint64
	linesDroppedPause atomic.Uint64
	filterErrors      atomic.Uint64
	decodeErrors      atomic.Uint64
	mirrorErrors      atomic.Uint64
	retries           atomic.Uint64
	rotations         atomic.Uint64
	truncations       atomic.Uint64

	mu      sync.Mutex
	start   time.Time
	stopped time.Time
	now     func() time.Time
}

func NewStatsTracker() *StatsTracker {
	return &StatsTracker{now: time.Now}
}

// Begin marks a new run. Counters accumulate over the engine lifetime.
func (t *StatsTracker) Begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = t.now()
	t.stopped = time.Time{}
}

// Freeze stops the uptime clock.
func (t *StatsTracker) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.start.IsZero() && t.stopped.IsZero() {
		t.stopped = t.now()
	}
}

func (t *StatsTracker) Snapshot() Stats {
	t.mu.Lock()
	start, stopped := t.start, t.stopped
	t.mu.Unlock()

	var uptime time.Duration
	switch {
	case start.IsZero():
	case stopped.IsZero():
		uptime = t.now().Sub(start)
	default:
		uptime = stopped.Sub(start)
	}

	return Stats{
		LinesCaptured:     t.linesCaptured.Load(),
		EventsProcessed:   t.eventsProcessed.Load(),
		StartTime:         start,
		Uptime:            uptime,
		LinesFiltered:     t.linesFiltered.Load(),
		LinesDroppedPause: t.linesDroppedPause.Load(),
		FilterErrors:      t.filterErrors.Load(),
		DecodeErrors:      t.decodeErrors.Load(),
		MirrorErrors:      t.mirrorErrors.Load(),
		Retries:           t.retries.Load(),
		Rotations:         t.rotations.Load(),
		Truncations:       t.truncations.Load(),
	}
}
