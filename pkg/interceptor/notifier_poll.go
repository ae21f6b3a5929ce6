package interceptor

import (
	"os"
	"path/filepath"

	"github.com/nxadm/tail/watch"
	"gopkg.in/tomb.v1"
)

// PollNotifier stats the file periodically using the tail package's polling
// watcher. Use it where inotify is unavailable (network or overlay filesystems).
// PollNotifier 使用 tail 包的轮询监视器定期检查文件，适用于不支持 inotify 的文件系统。
type PollNotifier struct{}

func NewPollNotifier() *PollNotifier {
	return &PollNotifier{}
}

// Subscribe implements Notifier.
func (n *PollNotifier) Subscribe(path string) (Subscription, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Dir(abs)); err != nil {
		return nil, err
	}
	s := &pollSubscription{
		path:   abs,
		events: make(chan Notification, 64),
		errors: make(chan error, 8),
	}
	go s.loop()
	return s, nil
}

type pollSubscription struct {
	path   string
	events chan Notification
	errors chan error
	t      tomb.Tomb
}

func (s *pollSubscription) Events() <-chan Notification { return s.events }
func (s *pollSubscription) Errors() <-chan error        { return s.errors }

func (s *pollSubscription) Close() error {
	s.t.Kill(nil)
	return s.t.Wait()
}

func (s *pollSubscription) loop() {
	defer s.t.Done()
	defer close(s.events)

	for {
		w := watch.NewPollingFileWatcher(s.path)
		if err := w.BlockUntilExists(&s.t); err != nil {
			if err != tomb.ErrDying {
				s.report(err)
			}
			return
		}
		deliver(s.events, Notification{Path: s.path, Op: OpCreated})

		fi, err := os.Stat(s.path)
		if err != nil {
			continue
		}
		changes, err := w.ChangeEvents(&s.t, fi.Size())
		if err != nil {
			s.report(err)
			continue
		}

	changed:
		for {
			select {
			case <-s.t.Dying():
				return
			case <-changes.Modified:
				deliver(s.events, Notification{Path: s.path, Op: OpModified})
			case <-changes.Truncated:
				deliver(s.events, Notification{Path: s.path, Op: OpModified})
			case <-changes.Deleted:
				deliver(s.events, Notification{Path: s.path, Op: OpDeleted})
				break changed
			}
		}
	}
}

func (s *pollSubscription) report(err error) {
	select {
	case s.errors <- err:
	default:
	}
}
