package interceptor

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	lterrors "github.com/livp123/logtap/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Engine intercepts lines appended to one source file and republishes them to
// the line buffer, the mirror file and registered callbacks.
//
// Lifecycle: Stopped -> Starting -> Running <-> Paused -> Stopping -> Stopped.
// A single watch goroutine exists while the engine is not Stopped.
// Engine 拦截追加到源文件的日志行，并发布到缓冲区、镜像文件和回调。
type Engine struct {
	id       string
	settings Settings
	logger   Logger
	filter   Filter
	decoder  lineDecoder
	notifier Notifier
	fs       afero.Fs

	buffer    *LineBuffer
	stats     *StatsTracker
	callbacks *CallbackRegistry

	state   atomic.Int32
	lifeMu  sync.Mutex // serializes Start/Stop
	run     *watchRun
	errMu   sync.Mutex
	lastErr error

	// Owned by the watch goroutine; runs never overlap.
	nextEventID uint64
}

type watchRun struct {
	stop chan struct{}
	done chan struct{}
}

// New validates settings and builds a stopped engine. No goroutine is started
// and the source file is not touched until Start.
// New 校验配置并创建一个处于停止状态的引擎。
func New(settings Settings) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	dec, err := newLineDecoder(settings.Encoding)
	if err != nil {
		return nil, err
	}

	id := uuid.Must(uuid.NewV7()).String()

	var logger Logger
	switch l := settings.Logger.(type) {
	case nil:
		logger = zap.NewNop().Sugar()
	case *zap.SugaredLogger:
		logger = l.With("engine", id, "source", settings.SourcePath)
	default:
		logger = l
	}

	notifier := settings.Notifier
	if notifier == nil {
		if settings.Poll {
			notifier = NewPollNotifier()
		} else {
			notifier = NewFSNotifier()
		}
	}

	fsys := settings.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	e := &Engine{
		id:        id,
		settings:  settings,
		logger:    logger,
		filter:    All(settings.Filters...),
		decoder:   dec,
		notifier:  notifier,
		fs:        fsys,
		stats:     NewStatsTracker(),
		callbacks: NewCallbackRegistry(logger),
	}
	if settings.UseBuffer {
		e.buffer = NewLineBuffer(settings.BufferSize)
	}
	return e, nil
}

// ID is a unique identifier of this engine instance.
func (e *Engine) ID() string { return e.id }

// SourcePath returns the watched path.
func (e *Engine) SourcePath() string { return e.settings.SourcePath }

// Start opens the source, installs the change subscription and launches the
// watch goroutine. Only valid while Stopped.
// Start 打开源文件、安装变更订阅并启动监视协程。
func (e *Engine) Start() error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	if !e.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return lterrors.ErrAlreadyRunning
	}
	// A previous run that ended on a fatal error may still be releasing resources.
	if e.run != nil {
		<-e.run.done
		e.run = nil
	}

	run, err := e.launch()
	if err != nil {
		e.state.Store(int32(StateStopped))
		return err
	}
	e.run = run
	e.logger.Infof("Interceptor started (buffer=%v, mirror=%q)", e.buffer != nil, e.settings.MirrorPath)
	return nil
}

func (e *Engine) launch() (*watchRun, error) {
	sub, err := e.notifier.Subscribe(e.settings.SourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, lterrors.NewSourceError(e.settings.SourcePath)
		}
		return nil, err
	}

	cursor := newFileCursor(e.fs, e.settings.SourcePath, e.decoder, e.settings.FollowRotations, e.settings.MaxFileSize)
	if err := cursor.Open(true); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist) && e.settings.AllowMissing:
			e.logger.Infof("Source %s does not exist yet, waiting for it", e.settings.SourcePath)
		case errors.Is(err, fs.ErrNotExist):
			sub.Close()
			return nil, lterrors.NewSourceError(e.settings.SourcePath)
		default:
			sub.Close()
			return nil, lterrors.NewTransientError(e.settings.SourcePath, err)
		}
	}

	var mirror *mirrorWriter
	if e.settings.MirrorPath != "" {
		mirror, err = openMirror(e.fs, e.settings.MirrorPath, e.settings.AddTimestamps)
		if err != nil {
			cursor.Close()
			sub.Close()
			return nil, err
		}
	}

	e.stats.Begin()
	run := &watchRun{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	w := &watcher{
		engine: e,
		run:    run,
		sub:    sub,
		cursor: cursor,
		mirror: mirror,
	}
	// Set before the loop runs so an immediate fatal exit is not overwritten.
	e.setLastError(nil)
	e.state.Store(int32(StateRunning))
	go w.loop()
	return run, nil
}

// Stop ends monitoring and waits for the in-flight read/filter/dispatch cycle.
// Calling Stop on a stopped engine is a no-op.
// Stop 停止监控并等待正在进行的处理周期完成，对已停止的引擎调用无副作用。
func (e *Engine) Stop() error {
	return e.StopContext(context.Background())
}

// StopContext is Stop with a bound on the wait. When ctx expires first the
// engine stays Stopping until the current cycle finishes on its own.
func (e *Engine) StopContext(ctx context.Context) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	if e.run == nil {
		return nil
	}
	if e.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) ||
		e.state.CompareAndSwap(int32(StatePaused), int32(StateStopping)) {
		close(e.run.stop)
	}

	select {
	case <-e.run.done:
		e.run = nil
		e.logger.Infof("Interceptor stopped")
		return nil
	case <-ctx.Done():
		return errors.Join(lterrors.ErrTimeout, ctx.Err())
	}
}

// Close implements io.Closer.
func (e *Engine) Close() error {
	return e.Stop()
}

// Pause keeps the watch goroutine and the read position moving but discards
// every line read until Resume.
// Pause 暂停捕获，监视协程继续运行，暂停期间读取的行被丢弃。
func (e *Engine) Pause() error {
	if e.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		e.logger.Debugf("Interceptor paused")
		return nil
	}
	if e.State() == StatePaused {
		return nil
	}
	return lterrors.NewStateError("pause", e.State())
}

// Resume re-enables capture after Pause.
// Resume 在暂停后恢复捕获。
func (e *Engine) Resume() error {
	if e.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		e.logger.Debugf("Interceptor resumed")
		return nil
	}
	if e.State() == StateRunning {
		return nil
	}
	return lterrors.NewStateError("resume", e.State())
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

// IsRunning reports whether the engine is watching the source (running or paused).
func (e *Engine) IsRunning() bool {
	s := e.State()
	return s == StateRunning || s == StatePaused
}

func (e *Engine) IsPaused() bool {
	return e.State() == StatePaused
}

// LastError returns the error that terminated the last run, if any.
func (e *Engine) LastError() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.lastErr
}

func (e *Engine) setLastError(err error) {
	e.errMu.Lock()
	e.lastErr = err
	e.errMu.Unlock()
}

// BufferedLines returns a copy of the buffered line texts, oldest first.
func (e *Engine) BufferedLines() []string {
	return e.buffer.Snapshot()
}

// LinesWithMetadata returns a copy of the buffered records, oldest first.
func (e *Engine) LinesWithMetadata() []CapturedLine {
	return e.buffer.SnapshotWithMetadata()
}

// ClearBuffer empties the line buffer without touching the counters.
func (e *Engine) ClearBuffer() {
	e.buffer.Clear()
}

// AddCallback registers fn for every accepted line.
func (e *Engine) AddCallback(fn CallbackFunc) CallbackID {
	return e.callbacks.Register(fn)
}

// RemoveCallback unregisters a callback; unknown ids are ignored.
func (e *Engine) RemoveCallback(id CallbackID) {
	e.callbacks.Unregister(id)
}

// Stats returns a snapshot of the engine counters.
// Stats 返回引擎计数器的快照。
func (e *Engine) Stats() Stats {
	s := e.stats.Snapshot()
	s.CallbackErrors = e.callbacks.Failures()
	s.BufferedLines = e.buffer.Len()
	s.BufferEvicted = e.buffer.Evicted()
	s.Callbacks = e.callbacks.Len()
	s.State = e.State()
	return s
}
