package interceptor

import (
	"sync"
	"sync/atomic"

	lterrors "github.com/livp123/logtap/pkg/errors"
	"github.com/sourcegraph/conc/panics"
)

// CallbackFunc receives every accepted line. It runs synchronously on the watch
// goroutine, so a slow callback delays every later line.
// CallbackFunc 接收每一条被接受的日志行，在监视协程中同步执行。
type CallbackFunc func(line CapturedLine) error

// CallbackID identifies a registration for RemoveCallback.
type CallbackID uint64

type callbackEntry struct {
	id CallbackID
	fn CallbackFunc
}

// CallbackRegistry is an ordered set of subscribers.
// CallbackRegistry 是有序的订阅者集合。
type CallbackRegistry struct {
	mu      sync.RWMutex
	entries []callbackEntry
	nextID  CallbackID
	logger  Logger
	failed  atomic.Uint64
}

func NewCallbackRegistry(logger Logger) *CallbackRegistry {
	return &CallbackRegistry{logger: logger}
}

// Register appends fn and returns its handle.
func (r *CallbackRegistry) Register(fn CallbackFunc) CallbackID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.entries = append(r.entries, callbackEntry{id: r.nextID, fn: fn})
	return r.nextID
}

// Unregister removes the callback. Unknown ids are ignored.
func (r *CallbackRegistry) Unregister(id CallbackID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.id == id {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (r *CallbackRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Failures returns the number of callback invocations that errored or panicked.
func (r *CallbackRegistry) Failures() uint64 {
	return r.failed.Load()
}

// Dispatch invokes every callback in registration order. The subscriber list
// is copied under the lock and callbacks run outside it, so a callback may
// add or remove callbacks. Returns the number of failed invocations.
func (r *CallbackRegistry) Dispatch(line CapturedLine) int {
	r.mu.RLock()
	if len(r.entries) == 0 {
		r.mu.RUnlock()
		return 0
	}
	entries := make([]callbackEntry, len(r.entries))
	copy(entries, r.entries)
	r.mu.RUnlock()

	failures := 0
	for _, e := range entries {
		if err := invoke(e.fn, line); err != nil {
			failures++
			r.failed.Add(1)
			r.logger.Warnf("Callback %d failed on event %d: %v", e.id, line.EventID, lterrors.NewCallbackError(uint64(e.id), err))
		}
	}
	return failures
}

func invoke(fn CallbackFunc, line CapturedLine) (err error) {
	var pc panics.Catcher
	pc.Try(func() {
		err = fn(line)
	})
	if r := pc.Recovered(); r != nil {
		return r.AsError()
	}
	return err
}
