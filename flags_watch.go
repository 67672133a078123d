package svcrelay

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// FlagsEvent reports the flag tail of a unit file after it changed
type FlagsEvent struct {
	// Unit is the normalized unit name
	Unit string `json:"unit"`
	// Flags is the flag tail read after the change
	Flags string `json:"flags"`
	// Err is set when the change could not be read
	Err error `json:"-"`
}

// WatchCleanupFunc stops a watch and releases its resources. It is safe
// to call more than once.
type WatchCleanupFunc func() error

// watchState tracks the last observed flags of a watch
type watchState struct {
	mu        sync.Mutex
	lastFlags string
	debouncer *time.Timer
	// pending counts debounced reads that are scheduled or running
	pending sync.WaitGroup
}

// schedule (re)arms the debouncer. Callers hold mu.
func (s *watchState) schedule(d time.Duration, fn func()) {
	s.cancel()
	s.pending.Add(1)
	s.debouncer = time.AfterFunc(d, func() {
		defer s.pending.Done()
		fn()
	})
}

// cancel disarms a debouncer that has not fired yet. Callers hold mu.
func (s *watchState) cancel() {
	if s.debouncer != nil && s.debouncer.Stop() {
		s.pending.Done()
	}
	s.debouncer = nil
}

// WatchFlags reports changes to the unit's startup flags. The unit
// directory is watched rather than the file because atomic rewrites
// replace the inode. The current flags are sent first; after that an
// event is sent only when the flag tail differs from the last one sent.
func (c *FlagsCodec) WatchFlags(ctx context.Context, name string) (<-chan FlagsEvent, WatchCleanupFunc, error) {
	unit := UnitName(name)
	path, err := c.UnitPath(unit)
	if err != nil {
		return nil, nil, &OpError{Op: OpReadFlags, Unit: unit, Err: err}
	}
	dir := filepath.Dir(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, &OpError{Op: OpReadFlags, Unit: unit, Err: err}
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, nil, &OpError{Op: OpReadFlags, Unit: unit, Err: err}
	}

	ch := make(chan FlagsEvent, 10)

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = watcher.Close()
		close(ch)
	})

	cleanup := func() error {
		sctx.Stop(100 * time.Millisecond)
		return sctx.Wait()
	}

	state := &watchState{}

	send := func(ev FlagsEvent) {
		if sctx.IsStopping() {
			return
		}
		select {
		case ch <- ev:
		case <-sctx.Stopping():
		}
	}

	readAndSend := func(force bool) {
		if sctx.IsStopping() {
			return
		}
		flags, err := c.ReadFlags(unit)
		if err != nil {
			send(FlagsEvent{Unit: unit, Err: err})
			return
		}

		state.mu.Lock()
		changed := force || flags != state.lastFlags
		state.lastFlags = flags
		state.mu.Unlock()

		if changed {
			send(FlagsEvent{Unit: unit, Flags: flags})
		}
	}

	readAndSend(true)

	sctx.Go(func(sctx *stopper.Context) error {
		// The channel is closed once this goroutine returns, so no
		// debounced read may still be sending by then.
		defer func() {
			state.mu.Lock()
			state.cancel()
			state.mu.Unlock()
			state.pending.Wait()
		}()

		for !sctx.IsStopping() {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Base(event.Name) != unit {
					continue
				}
				state.mu.Lock()
				state.schedule(DefaultWatchDebounce, func() { readAndSend(false) })
				state.mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil {
					send(FlagsEvent{Unit: unit, Err: err})
				}
			}
		}
		return nil
	})

	return ch, cleanup, nil
}
