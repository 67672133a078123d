package svcrelay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeController records calls and answers from a fixed table
type fakeController struct {
	states map[string]ServiceStatus
	fail   map[string]error
	delay  time.Duration

	mu       sync.Mutex
	calls    []string
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeController) enter(verb, name string) error {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, verb+" "+name)
	f.mu.Unlock()
	return f.fail[UnitName(name)]
}

func (f *fakeController) Status(_ context.Context, name string) (ServiceStatus, error) {
	if err := f.enter("status", name); err != nil {
		return "", err
	}
	if s, ok := f.states[UnitName(name)]; ok {
		return s, nil
	}
	return StatusNotFound, nil
}

func (f *fakeController) Start(_ context.Context, name string) error {
	return f.enter("start", name)
}

func (f *fakeController) Stop(_ context.Context, name string) error {
	return f.enter("stop", name)
}

func (f *fakeController) Restart(_ context.Context, name string) error {
	return f.enter("restart", name)
}

func TestManagerStatus(t *testing.T) {
	boom := errors.New("bus unavailable")
	ctl := &fakeController{
		states: map[string]ServiceStatus{
			"a.service": StatusActive,
			"b.service": StatusInactive,
		},
		fail: map[string]error{"c.service": boom},
	}
	mgr := NewManager(ctl, WithConcurrency(2))

	statuses, err := mgr.Status(context.Background(), "a", "b.service", "c", "d")
	require.ErrorIs(t, err, boom)

	var merr *MultiError
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 1)

	require.Equal(t, map[string]ServiceStatus{
		"a.service": StatusActive,
		"b.service": StatusInactive,
		"d.service": StatusNotFound,
	}, statuses)
}

func TestManagerConcurrencyLimit(t *testing.T) {
	ctl := &fakeController{delay: 20 * time.Millisecond}
	mgr := NewManager(ctl, WithConcurrency(2))

	names := []string{"a", "b", "c", "d", "e", "f"}
	require.NoError(t, mgr.Restart(context.Background(), names...))

	require.Len(t, ctl.calls, len(names))
	require.LessOrEqual(t, ctl.peak.Load(), int32(2))
}

func TestManagerCollectsAllFailures(t *testing.T) {
	ctl := &fakeController{fail: map[string]error{
		"a.service": errors.New("a failed"),
		"c.service": errors.New("c failed"),
	}}
	mgr := NewManager(ctl)

	err := mgr.Stop(context.Background(), "a", "b", "c")
	var merr *MultiError
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 2)
	require.Len(t, ctl.calls, 3, "a failure must not short-circuit the rest")
}

func TestManagerEmptyAndCancelled(t *testing.T) {
	ctl := &fakeController{}
	mgr := NewManager(ctl, WithConcurrency(0))
	require.Equal(t, 1, mgr.Concurrency)

	require.NoError(t, mgr.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := mgr.Start(ctx, "a", "b")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, ctl.calls)
}
