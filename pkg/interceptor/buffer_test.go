package interceptor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func line(id uint64, content string) CapturedLine {
	return CapturedLine{Content: content, Timestamp: time.Now(), EventID: id}
}

// TestLineBuffer_FIFOOverflow tests that the oldest lines are evicted first
// TestLineBuffer_FIFOOverflow 测试溢出时最旧的行先被淘汰
func TestLineBuffer_FIFOOverflow(t *testing.T) {
	b := NewLineBuffer(3)
	for i := 0; i < 5; i++ {
		b.Append(line(uint64(i), fmt.Sprintf("L%d", i)))
	}

	assert.Equal(t, []string{"L2", "L3", "L4"}, b.Snapshot())
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 3, b.Cap())
	assert.Equal(t, uint64(2), b.Evicted())

	meta := b.SnapshotWithMetadata()
	assert.Len(t, meta, 3)
	for i, m := range meta {
		assert.Equal(t, uint64(i+2), m.EventID)
	}
}

// TestLineBuffer_SnapshotIsCopy tests copy semantics of snapshots
// TestLineBuffer_SnapshotIsCopy 测试快照的复制语义
func TestLineBuffer_SnapshotIsCopy(t *testing.T) {
	b := NewLineBuffer(4)
	b.Append(line(0, "a"))
	snap := b.Snapshot()
	snap[0] = "mutated"
	b.Append(line(1, "b"))

	assert.Equal(t, []string{"a", "b"}, b.Snapshot())
	assert.Len(t, snap, 1)
}

// TestLineBuffer_Clear tests clearing and reuse
// TestLineBuffer_Clear 测试清空和重用
func TestLineBuffer_Clear(t *testing.T) {
	b := NewLineBuffer(2)
	b.Append(line(0, "a"))
	b.Append(line(1, "b"))
	b.Append(line(2, "c"))
	b.Clear()

	assert.Empty(t, b.Snapshot())
	assert.Equal(t, 0, b.Len())

	b.Append(line(3, "d"))
	assert.Equal(t, []string{"d"}, b.Snapshot())
}

// TestLineBuffer_Disabled tests the nil buffer no-op mode
// TestLineBuffer_Disabled 测试 nil 缓冲区的空操作模式
func TestLineBuffer_Disabled(t *testing.T) {
	var b *LineBuffer
	b.Append(line(0, "a"))
	b.Clear()

	assert.Equal(t, []string{}, b.Snapshot())
	assert.Equal(t, []CapturedLine{}, b.SnapshotWithMetadata())
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.Cap())
}

// TestLineBuffer_Concurrent tests a writer racing snapshot readers
// TestLineBuffer_Concurrent 测试写入与快照读取的并发
func TestLineBuffer_Concurrent(t *testing.T) {
	b := NewLineBuffer(16)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			b.Append(line(uint64(i), fmt.Sprint(i)))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				meta := b.SnapshotWithMetadata()
				assert.LessOrEqual(t, len(meta), 16)
				for j := 1; j < len(meta); j++ {
					assert.Less(t, meta[j-1].EventID, meta[j].EventID)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 16, b.Len())
	assert.Equal(t, "999", b.Snapshot()[15])
}
