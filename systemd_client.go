package svcrelay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/util"
)

// ClientSystemd provides control operations for user-level systemd units
// through the systemctl command line.
type ClientSystemd struct {
	// SystemctlPath is the path to systemctl binary
	SystemctlPath string
}

// NewClientSystemd creates a new ClientSystemd using systemctl from PATH
func NewClientSystemd() *ClientSystemd {
	return &ClientSystemd{
		SystemctlPath: DefaultSystemctlPath,
	}
}

// WithSystemctlPath overrides the systemctl binary
func (c *ClientSystemd) WithSystemctlPath(path string) *ClientSystemd {
	if path != "" {
		c.SystemctlPath = path
	}
	return c
}

// Available reports whether systemd is the running init system
func (c *ClientSystemd) Available() bool {
	return util.IsRunningSystemd()
}

// command builds a user-scoped systemctl invocation with coloring disabled
func (c *ClientSystemd) command(ctx context.Context, args ...string) *exec.Cmd {
	path := c.SystemctlPath
	if path == "" {
		path = DefaultSystemctlPath
	}
	cmd := exec.CommandContext(ctx, path, append([]string{"--user"}, args...)...)
	cmd.Env = append(os.Environ(), "SYSTEMD_COLORS=0")
	return cmd
}

// execSystemctl runs a control verb and returns trimmed stdout. A tool
// that ran but failed yields a *ToolError carrying its stderr.
func (c *ClientSystemd) execSystemctl(ctx context.Context, args ...string) (string, error) {
	cmd := c.command(ctx, append([]string{"--no-pager"}, args...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ToolError{Tool: "systemctl", Stderr: strings.TrimSpace(stderr.String()), Err: err}
		}
		return "", fmt.Errorf("failed to run systemctl: %w", err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// control issues verb in non-blocking mode so the call returns as soon as
// the job is queued
func (c *ClientSystemd) control(ctx context.Context, op Operation, name string) error {
	unit := UnitName(name)
	slog.DebugContext(ctx, "systemctl control", "op", op.String(), "unit", unit)
	if _, err := c.execSystemctl(ctx, op.String(), "--no-block", unit); err != nil {
		return &OpError{Op: op, Unit: unit, Err: err}
	}
	return nil
}

// Start queues a start job for the unit
func (c *ClientSystemd) Start(ctx context.Context, name string) error {
	return c.control(ctx, OpStart, name)
}

// Stop queues a stop job for the unit
func (c *ClientSystemd) Stop(ctx context.Context, name string) error {
	return c.control(ctx, OpStop, name)
}

// Restart queues a restart job for the unit
func (c *ClientSystemd) Restart(ctx context.Context, name string) error {
	return c.control(ctx, OpRestart, name)
}

// DaemonReload makes the user manager re-read unit files, which is needed
// before a rewritten ExecStart takes effect
func (c *ClientSystemd) DaemonReload(ctx context.Context) error {
	if _, err := c.execSystemctl(ctx, OpReload.String()); err != nil {
		return &OpError{Op: OpReload, Err: err}
	}
	return nil
}

// Status returns the unit's active state.
//
// systemctl is-active exits non-zero for every state other than "active"
// but still prints the state token on stdout, so stdout is authoritative
// and the exit status is ignored.
func (c *ClientSystemd) Status(ctx context.Context, name string) (ServiceStatus, error) {
	unit := UnitName(name)
	cmd := c.command(ctx, OpStatus.String(), unit)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", &OpError{Op: OpStatus, Unit: unit, Err: ctxErr}
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", &OpError{Op: OpStatus, Unit: unit, Err: fmt.Errorf("failed to run systemctl: %w", err)}
		}
	}

	return classifyStatus(unit, stdout.String(), stderr.String())
}

func classifyStatus(unit, stdout, stderr string) (ServiceStatus, error) {
	if state := strings.TrimSpace(stdout); state != "" {
		return ServiceStatus(state), nil
	}

	stderr = strings.TrimSpace(stderr)
	if strings.Contains(stderr, "could not be found") || strings.Contains(stderr, "not-found") {
		return StatusNotFound, nil
	}
	if stderr != "" {
		return "", &OpError{Op: OpStatus, Unit: unit, Err: &ToolError{Tool: "systemctl", Stderr: stderr}}
	}
	return StatusUnknown, nil
}

// WaitSettled polls Status until the unit reaches a settled state or ctx
// is done. Query failures end the wait immediately.
func (c *ClientSystemd) WaitSettled(ctx context.Context, name string, every time.Duration) (ServiceStatus, error) {
	if every <= 0 {
		every = DefaultSettlePoll
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		status, err := c.Status(ctx, name)
		if err != nil {
			return "", err
		}
		if status.Settled() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}
