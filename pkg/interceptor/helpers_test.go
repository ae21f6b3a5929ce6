package interceptor

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 5 * time.Second
	tick    = 5 * time.Millisecond
)

// newSource creates an empty source file (optionally with content) in a temp dir.
func newSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func appendTo(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

// testSettings returns fast settings suitable for tests.
func testSettings(source string) Settings {
	s := DefaultSettings(source)
	s.UseBuffer = true
	s.DebounceInterval = 5 * time.Millisecond
	s.RetryDelay = 10 * time.Millisecond
	return s
}

func newEngine(t *testing.T, s Settings) *Engine {
	t.Helper()
	e, err := New(s)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

// faultFS fails every open, stat and read with a permission error while fail is set.
type faultFS struct {
	afero.Fs
	fail atomic.Bool
}

func newFaultFS() *faultFS {
	return &faultFS{Fs: afero.NewOsFs()}
}

func permissionError(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: fs.ErrPermission}
}

func (f *faultFS) Open(name string) (afero.File, error) {
	if f.fail.Load() {
		return nil, permissionError("open", name)
	}
	file, err := f.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	return &faultFile{File: file, fs: f}, nil
}

func (f *faultFS) Stat(name string) (os.FileInfo, error) {
	if f.fail.Load() {
		return nil, permissionError("stat", name)
	}
	return f.Fs.Stat(name)
}

type faultFile struct {
	afero.File
	fs *faultFS
}

func (f *faultFile) ReadAt(p []byte, off int64) (int, error) {
	if f.fs.fail.Load() {
		return 0, permissionError("read", f.Name())
	}
	return f.File.ReadAt(p, off)
}

// recorder is a callback that remembers what it saw.
type recorder struct {
	mu    sync.Mutex
	lines []CapturedLine
}

func (r *recorder) callback(line CapturedLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	return nil
}

func (r *recorder) contents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	for i, l := range r.lines {
		out[i] = l.Content
	}
	return out
}

// scriptedNotifier is a Notifier and its own Subscription; the test drives the feed.
type scriptedNotifier struct {
	events chan Notification
	errs   chan error
}

func newScriptedNotifier() *scriptedNotifier {
	return &scriptedNotifier{
		events: make(chan Notification, 256),
		errs:   make(chan error, 8),
	}
}

func (n *scriptedNotifier) Subscribe(string) (Subscription, error) { return n, nil }
func (n *scriptedNotifier) Events() <-chan Notification             { return n.events }
func (n *scriptedNotifier) Errors() <-chan error                    { return n.errs }
func (n *scriptedNotifier) Close() error                            { return nil }

// testLogger discards everything.
type testLogger struct{}

func (testLogger) Debugf(string, ...interface{}) {}
func (testLogger) Infof(string, ...interface{})  {}
func (testLogger) Warnf(string, ...interface{})  {}
func (testLogger) Errorf(string, ...interface{}) {}
