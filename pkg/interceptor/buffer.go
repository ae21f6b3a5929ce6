package interceptor

import (
	"sync"
)

// OverflowPolicy decides what happens when a full LineBuffer receives a line.
// Only FIFO eviction is implemented.
type OverflowPolicy string

const OverflowFIFO OverflowPolicy = "fifo"

// LineBuffer is a bounded ring of captured lines. A nil *LineBuffer is the
// disabled buffer: every method is a no-op and snapshots are empty.
// LineBuffer 是已捕获日志行的有界环形缓冲区，nil 表示禁用。
type LineBuffer struct {
	mu      sync.Mutex
	items   []CapturedLine
	head    int // index of the oldest entry
	size    int
	added   uint64
	evicted uint64
}

// NewLineBuffer creates a buffer holding at most capacity lines.
func NewLineBuffer(capacity int) *LineBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &LineBuffer{items: make([]CapturedLine, capacity)}
}

// Append stores line, evicting the oldest entry when full.
// Append 存储一行，满时淘汰最旧的条目。
func (b *LineBuffer) Append(line CapturedLine) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.items)
	if b.size == capacity {
		b.items[b.head] = line
		b.head = (b.head + 1) % capacity
		b.evicted++
	} else {
		b.items[(b.head+b.size)%capacity] = line
		b.size++
	}
	b.added++
}

// Snapshot returns a copy of the buffered line texts, oldest first.
func (b *LineBuffer) Snapshot() []string {
	if b == nil {
		return []string{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.head+i)%len(b.items)].Content
	}
	return out
}

// SnapshotWithMetadata returns a copy of the buffered records, oldest first.
func (b *LineBuffer) SnapshotWithMetadata() []CapturedLine {
	if b == nil {
		return []CapturedLine{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]CapturedLine, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

// Clear empties the buffer. Counters kept by StatsTracker are unaffected.
func (b *LineBuffer) Clear() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.items)
	b.head = 0
	b.size = 0
}

func (b *LineBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *LineBuffer) Cap() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Evicted returns how many lines were pushed out by overflow.
func (b *LineBuffer) Evicted() uint64 {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evicted
}
