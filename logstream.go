package svcrelay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"vawter.tech/stopper"

	svclog "github.com/axondata/go-svcrelay/internal/log"
	"github.com/axondata/go-svcrelay/internal/unix"
)

const (
	// maxLineSize bounds a single relayed line; longer lines are truncated
	maxLineSize = 1 << 20

	// readBufferSize is the follower stdout read buffer
	readBufferSize = 64 << 10

	// stderrTailSize is how much follower stderr is kept for diagnostics
	stderrTailSize = 4 << 10

	// followerWaitDelay bounds how long reaping waits on stderr held
	// open by descendants of a killed follower
	followerWaitDelay = time.Second

	// stopGrace is the stopper grace period when tearing down a stream
	stopGrace = 100 * time.Millisecond
)

// Supervisor owns at most one log follower process at a time and relays
// its output, line by line and in order, to a Sink. Starting a stream
// replaces the current one; all methods are safe for concurrent use.
type Supervisor struct {
	// JournalctlPath is the path to journalctl binary
	JournalctlPath string

	// BacklogLines is how many journal lines are printed before live tailing
	BacklogLines int

	sink Sink

	// mu guards current and is held across the whole replace sequence,
	// so concurrent Start calls serialize and never orphan a process.
	mu      sync.Mutex
	current *logStream
}

// SupervisorOption configures a Supervisor
type SupervisorOption func(*Supervisor)

// WithJournalctlPath overrides the journalctl binary
func WithJournalctlPath(path string) SupervisorOption {
	return func(s *Supervisor) {
		if path != "" {
			s.JournalctlPath = path
		}
	}
}

// WithBacklogLines sets the journal backlog printed before live tailing
func WithBacklogLines(n int) SupervisorOption {
	return func(s *Supervisor) {
		if n > 0 {
			s.BacklogLines = n
		}
	}
}

// NewSupervisor creates a Supervisor that relays to sink
func NewSupervisor(sink Sink, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		JournalctlPath: DefaultJournalctlPath,
		BacklogLines:   DefaultBacklogLines,
		sink:           sink,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// StreamInfo describes the active log stream
type StreamInfo struct {
	// ID identifies the stream in logs
	ID string
	// Unit is the normalized unit being followed
	Unit string
	// PID is the follower's process id
	PID int
	// Started is when the follower was spawned
	Started time.Time
	// Done is closed once the follower has exited and its output has
	// been relayed, whether it ended on its own or was stopped
	Done <-chan struct{}
}

// logStream is the handle stored in the supervisor's slot
type logStream struct {
	info   StreamInfo
	cmd    *exec.Cmd
	stdout *os.File
	stderr *tailBuffer
	cancel context.CancelFunc
	exited chan struct{}
	done   chan struct{}
	sctx   *stopper.Context
}

// Start follows the unit's journal, replacing any active stream. ctx only
// supplies values such as log attributes; cancelling it does not end the
// stream. Once Start returns, no line from a replaced stream reaches the
// sink.
func (s *Supervisor) Start(ctx context.Context, name string) error {
	unit := UnitName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old := s.current; old != nil {
		s.current = nil
		old.terminate()
	}

	ls, err := s.spawn(ctx, unit)
	if err != nil {
		return &OpError{Op: OpFollow, Unit: unit, Err: err}
	}
	s.current = ls
	return nil
}

// Stop terminates the active stream, if any. Stopping with nothing
// running succeeds.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old := s.current; old != nil {
		s.current = nil
		old.terminate()
	}
	return nil
}

// Close tears the supervisor down; it is Stop under another name so the
// supervisor can be handed to code that expects an io.Closer.
func (s *Supervisor) Close() error {
	return s.Stop()
}

// Active returns the active stream, if any
func (s *Supervisor) Active() (StreamInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return StreamInfo{}, false
	}
	return s.current.info, true
}

func (s *Supervisor) spawn(ctx context.Context, unit string) (*logStream, error) {
	id := uuid.NewString()
	ctx = svclog.ContextAttrs(context.WithoutCancel(ctx),
		slog.String("unit", unit),
		slog.String("stream", id),
	)
	streamCtx, cancel := context.WithCancel(ctx)

	path := s.JournalctlPath
	if path == "" {
		path = DefaultJournalctlPath
	}
	backlog := s.BacklogLines
	if backlog <= 0 {
		backlog = DefaultBacklogLines
	}

	cmd := exec.CommandContext(streamCtx, path,
		"--user", "-u", unit,
		"-f",
		"-n", strconv.Itoa(backlog),
		"-o", LogOutputFormat,
	)
	cmd.WaitDelay = followerWaitDelay
	unix.SetParentDeathSignal(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	stderr := &tailBuffer{max: stderrTailSize}
	cmd.Stdout = pw
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	// The child has its own copy; the read end sees EOF once it exits.
	_ = pw.Close()

	done := make(chan struct{})
	ls := &logStream{
		info: StreamInfo{
			ID:      id,
			Unit:    unit,
			PID:     cmd.Process.Pid,
			Started: time.Now(),
			Done:    done,
		},
		cmd:    cmd,
		stdout: pr,
		stderr: stderr,
		cancel: cancel,
		exited: make(chan struct{}),
		done:   done,
		sctx:   stopper.WithContext(ctx),
	}

	ls.sctx.Defer(func() {
		_ = pr.Close()
	})
	ls.sctx.Go(func(_ *stopper.Context) error {
		ls.reap(streamCtx)
		return nil
	})
	ls.sctx.Go(func(_ *stopper.Context) error {
		defer func() {
			<-ls.exited
			close(ls.done)
		}()
		ls.relay(streamCtx, s.sink)
		return nil
	})

	slog.DebugContext(ctx, "log follower started", "pid", ls.info.PID)
	return ls, nil
}

// relay forwards stdout lines to sink until EOF, a read error, a sink
// error, or cancellation of the stream. Lines longer than maxLineSize are
// truncated rather than ending the stream.
func (ls *logStream) relay(ctx context.Context, sink Sink) {
	reader := bufio.NewReaderSize(ls.stdout, readBufferSize)

	var (
		line      []byte
		truncated bool
	)
	for {
		frag, more, err := reader.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				slog.DebugContext(ctx, "log follower read ended", "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		if room := maxLineSize - len(line); len(frag) > room {
			frag = frag[:room]
			truncated = true
		}
		line = append(line, frag...)
		if more {
			continue
		}

		if truncated {
			slog.DebugContext(ctx, "log line truncated", "limit", maxLineSize)
		}
		if err := sink.Emit(ctx, LogLine{Unit: ls.info.Unit, Text: string(line)}); err != nil {
			if ctx.Err() == nil {
				slog.DebugContext(ctx, "log sink rejected line", "error", err)
			}
			return
		}
		line, truncated = line[:0], false
	}
}

// reap waits for the follower so it never lingers as a zombie, whether it
// exits on its own or is killed.
func (ls *logStream) reap(ctx context.Context) {
	err := ls.cmd.Wait()
	close(ls.exited)

	if ctx.Err() != nil {
		slog.DebugContext(ctx, "log follower terminated")
		return
	}
	slog.WarnContext(ctx, "log follower exited", "error", err, "stderr", ls.stderr.String())
}

// terminate kills the follower and joins its goroutines. Failures are
// swallowed: a follower that is already gone is not an error.
func (ls *logStream) terminate() {
	ls.cancel()
	<-ls.exited

	// Descendants of the follower may still hold the write end open.
	_ = ls.stdout.Close()

	ls.sctx.Stop(stopGrace)
	if err := ls.sctx.Wait(); err != nil {
		slog.Debug("log stream teardown", "stream", ls.info.ID, "error", err)
	}
}

// tailBuffer keeps the last max bytes written to it
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
