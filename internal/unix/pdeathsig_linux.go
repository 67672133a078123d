//go:build linux

// Package unix provides platform-specific process attributes.
package unix

import (
	"os/exec"
	"syscall"
)

// SetParentDeathSignal makes the kernel kill cmd's process when the
// spawning thread exits, so a follower does not outlive its host.
func SetParentDeathSignal(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Pdeathsig = syscall.SIGKILL
}
