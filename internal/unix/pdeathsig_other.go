//go:build !linux

// Package unix provides platform-specific process attributes.
package unix

import "os/exec"

// SetParentDeathSignal is a no-op where the kernel has no parent-death signal.
func SetParentDeathSignal(_ *exec.Cmd) {}
