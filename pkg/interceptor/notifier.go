package interceptor

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of change a Notification reports.
type Op uint8

const (
	OpModified Op = iota + 1
	OpCreated
	OpDeleted
)

func (o Op) String() string {
	switch o {
	case OpModified:
		return "modified"
	case OpCreated:
		return "created"
	case OpDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Notification says the watched path changed. Delivery is at-least-once and
// may be duplicated or coalesced; the engine treats every notification as
// "re-read from the stored offset".
// Notification 表示被监视的路径发生了变化。
type Notification struct {
	Path string
	Op   Op
}

// Subscription is a live change feed for one path.
type Subscription interface {
	Events() <-chan Notification
	Errors() <-chan error
	Close() error
}

// Notifier creates subscriptions. The engine never depends on a concrete notifier.
// Notifier 创建订阅，引擎不依赖具体的通知实现。
type Notifier interface {
	Subscribe(path string) (Subscription, error)
}

// FSNotifier delivers notifications from fsnotify. It watches the parent
// directory so creation, rename and removal of the file are seen too.
type FSNotifier struct{}

func NewFSNotifier() *FSNotifier {
	return &FSNotifier{}
}

// Subscribe implements Notifier.
func (n *FSNotifier) Subscribe(path string) (Subscription, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	s := &fsSubscription{
		watcher: w,
		path:    abs,
		events:  make(chan Notification, 64),
		errors:  make(chan error, 8),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.loop()
	return s, nil
}

type fsSubscription struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan Notification
	errors  chan error
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (s *fsSubscription) Events() <-chan Notification { return s.events }
func (s *fsSubscription) Errors() <-chan error        { return s.errors }

func (s *fsSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		err = s.watcher.Close()
		<-s.done
	})
	return err
}

func (s *fsSubscription) loop() {
	defer close(s.done)
	defer close(s.events)

	for {
		select {
		case <-s.stop:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			var op Op
			switch {
			case ev.Has(fsnotify.Create):
				op = OpCreated
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				op = OpDeleted
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Chmod):
				op = OpModified
			default:
				continue
			}
			deliver(s.events, Notification{Path: s.path, Op: op})
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			select {
			case s.errors <- err:
			default:
			}
		}
	}
}

// deliver never blocks: when the channel is full a pass is already pending and
// the dropped notification would not read anything that pass does not.
func deliver(ch chan Notification, n Notification) {
	select {
	case ch <- n:
	default:
	}
}
