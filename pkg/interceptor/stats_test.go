package interceptor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestStatsTracker_Uptime tests live and frozen uptime
// TestStatsTracker_Uptime 测试运行中和冻结的运行时间
func TestStatsTracker_Uptime(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr := NewStatsTracker()
	tr.now = func() time.Time { return now }

	assert.Zero(t, tr.Snapshot().Uptime)
	assert.True(t, tr.Snapshot().StartTime.IsZero())

	tr.Begin()
	now = now.Add(3 * time.Second)
	assert.Equal(t, 3*time.Second, tr.Snapshot().Uptime)

	tr.Freeze()
	now = now.Add(time.Minute)
	s := tr.Snapshot()
	assert.Equal(t, 3*time.Second, s.Uptime)
	assert.InDelta(t, 3.0, s.UptimeSeconds(), 1e-9)

	tr.linesCaptured.Add(2)
	tr.Begin()
	s = tr.Snapshot()
	assert.Equal(t, uint64(2), s.LinesCaptured)
	assert.Zero(t, s.Uptime)
}
