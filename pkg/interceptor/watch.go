package interceptor

import (
	"errors"
	"time"

	lterrors "github.com/livp123/logtap/pkg/errors"
)

// watcher is the state of one watch goroutine. Nothing here is shared with
// caller goroutines except through the engine's own synchronized fields.
type watcher struct {
	engine *Engine
	run    *watchRun
	sub    Subscription
	cursor *fileCursor
	mirror *mirrorWriter

	lastPass  time.Time
	attempts  int
	notifyErr error // last error reported by the subscription
}

func (w *watcher) loop() {
	e := w.engine
	var fatal error
	defer func() {
		w.cursor.Close() // discards any held partial line
		if err := w.mirror.Close(); err != nil {
			e.logger.Warnf("Failed to close mirror file %s: %v", e.settings.MirrorPath, err)
		}
		if err := w.sub.Close(); err != nil {
			e.logger.Debugf("Closing subscription: %v", err)
		}
		e.stats.Freeze()
		if fatal != nil {
			e.setLastError(fatal)
			e.logger.Errorf("Interceptor stopped on fatal error: %v", fatal)
		}
		e.state.Store(int32(StateStopped))
		close(w.run.done)
	}()

	var (
		debounce  *time.Timer
		retry     *time.Timer
		debounceC <-chan time.Time
		retryC    <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
		if retry != nil {
			retry.Stop()
		}
	}()

	events := w.sub.Events()
	errs := w.sub.Errors()

	for {
		pass := false

		select {
		case <-w.run.stop:
			return

		case n, ok := <-events:
			if !ok {
				cause := drainErrors(errs)
				if cause == nil {
					cause = w.notifyErr
				}
				fatal = errors.Join(lterrors.ErrInternal, errors.New("notification stream closed"), cause)
				return
			}
			if n.Op == OpDeleted {
				e.logger.Debugf("Source %s removed or renamed", n.Path)
			}
			// A pending retry or debounce pass will pick this change up.
			if retryC != nil || debounceC != nil {
				continue
			}
			if wait := e.settings.DebounceInterval - time.Since(w.lastPass); wait > 0 && !w.lastPass.IsZero() {
				debounce = resetTimer(debounce, wait)
				debounceC = debounce.C
				continue
			}
			pass = true

		case <-debounceC:
			debounceC = nil
			pass = true

		case <-retryC:
			retryC = nil
			pass = true

		case err, ok := <-errs:
			if ok {
				w.notifyErr = err
				e.logger.Warnf("Notifier error: %v", err)
			} else {
				errs = nil
			}
		}

		if !pass {
			continue
		}

		err := w.pass()
		switch {
		case err == nil:
			if w.attempts > 0 {
				e.logger.Infof("Source %s readable again after %d retries", e.settings.SourcePath, w.attempts)
			}
			w.attempts = 0
		case lterrors.IsFatal(err):
			fatal = err
			return
		default:
			if !e.settings.RetryOnError || w.attempts >= e.settings.RetryMaxAttempts {
				fatal = lterrors.NewRetryExhaustedError(w.attempts, err)
				return
			}
			w.attempts++
			e.stats.retries.Add(1)
			delay := e.settings.retryDelay(w.attempts)
			e.logger.Warnf("Reading %s failed, retry %d/%d in %s: %v",
				e.settings.SourcePath, w.attempts, e.settings.RetryMaxAttempts, delay, err)
			retry = resetTimer(retry, delay)
			retryC = retry.C
		}
	}
}

// pass reads everything appended since the previous pass and pushes the
// complete lines through the pipeline.
func (w *watcher) pass() error {
	e := w.engine
	w.lastPass = time.Now()
	e.stats.eventsProcessed.Add(1)

	res, err := w.cursor.Next()
	if res.Opened {
		e.logger.Infof("Opened source %s", e.settings.SourcePath)
	}
	if res.Rotated {
		e.stats.rotations.Add(1)
		e.logger.Infof("File rotation detected for %s, reading new file from the start", e.settings.SourcePath)
	}
	if res.Truncated {
		e.stats.truncations.Add(1)
		e.logger.Infof("File truncation detected for %s, resetting position", e.settings.SourcePath)
	}
	if res.DecodeErrors > 0 {
		e.stats.decodeErrors.Add(uint64(res.DecodeErrors))
		offset, _ := w.cursor.Position()
		e.logger.Warnf("Replaced malformed bytes in %d line(s): %v", res.DecodeErrors,
			lterrors.NewDecodeError(w.cursor.decoder.name(), offset))
	}

	for _, line := range res.Lines {
		w.handle(line)
	}
	return err
}

// handle runs one line through pause check, filters and every sink, in order.
func (w *watcher) handle(text string) {
	e := w.engine

	if e.State() == StatePaused {
		e.stats.linesDroppedPause.Add(1)
		return
	}

	keep, err := e.filter.Evaluate(text)
	if err != nil {
		e.stats.filterErrors.Add(1)
		e.logger.Warnf("Dropping line: %v", lterrors.NewFilterError(text, err))
		return
	}
	if !keep {
		e.stats.linesFiltered.Add(1)
		return
	}

	line := CapturedLine{
		Content:   text,
		Timestamp: time.Now(),
		EventID:   e.nextEventID,
	}
	e.nextEventID++

	e.buffer.Append(line)

	if w.mirror != nil {
		if err := w.mirror.Write(line); err != nil {
			e.stats.mirrorErrors.Add(1)
			e.logger.Errorf("Failed to append to mirror %s: %v", e.settings.MirrorPath, err)
		}
	}

	e.callbacks.Dispatch(line)
	e.stats.linesCaptured.Add(1)
}

// drainErrors collects the errors already queued on errs without blocking.
func drainErrors(errs <-chan error) error {
	var all []error
	for {
		select {
		case err, ok := <-errs:
			if !ok {
				return errors.Join(all...)
			}
			all = append(all, err)
		default:
			return errors.Join(all...)
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) *time.Timer {
	if t == nil {
		return time.NewTimer(d)
	}
	t.Stop()
	t.Reset(d)
	return t
}
