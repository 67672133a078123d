package svcrelay

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/renameio/v2"
)

// toolAvailabilityCache caches the results of tool availability checks
// to avoid repeated exec.LookPath calls during test execution
var (
	toolAvailabilityCache = make(map[string]bool)
	toolAvailabilityMu    sync.Mutex
)

func checkToolCached(toolName string) bool {
	toolAvailabilityMu.Lock()
	defer toolAvailabilityMu.Unlock()

	if available, ok := toolAvailabilityCache[toolName]; ok {
		return available
	}
	_, err := exec.LookPath(toolName)
	toolAvailabilityCache[toolName] = err == nil
	return err == nil
}

// RequireTool skips the test if the tool is not available in PATH.
func RequireTool(t *testing.T, toolName string) {
	t.Helper()
	if !checkToolCached(toolName) {
		t.Skipf("%s not found in PATH, skipping test (install it to run this test)", toolName)
	}
}

// RequireLinux skips the test if not running on Linux.
func RequireLinux(t *testing.T) {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("test requires Linux")
	}
}

// writeScript writes an executable sh script into dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	RequireTool(t, "sh")

	path := filepath.Join(dir, name)
	if err := renameio.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}

// fakeTool is a stand-in for systemctl that records how it was invoked
type fakeTool struct {
	Path    string
	argsLog string
	envLog  string
}

// newFakeSystemctl writes a systemctl replacement that prints stdout and
// stderr verbatim and exits with code.
func newFakeSystemctl(t *testing.T, stdout, stderr string, code int) *fakeTool {
	t.Helper()
	dir := t.TempDir()

	outFile := filepath.Join(dir, "stdout")
	errFile := filepath.Join(dir, "stderr")
	if err := os.WriteFile(outFile, []byte(stdout), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(errFile, []byte(stderr), 0o644); err != nil {
		t.Fatal(err)
	}

	ft := &fakeTool{
		argsLog: filepath.Join(dir, "args"),
		envLog:  filepath.Join(dir, "env"),
	}
	ft.Path = writeScript(t, dir, "systemctl", strings.Join([]string{
		`printf '%s\n' "$*" >> '` + ft.argsLog + `'`,
		`printf '%s\n' "$SYSTEMD_COLORS" >> '` + ft.envLog + `'`,
		`cat '` + outFile + `'`,
		`cat '` + errFile + `' >&2`,
		`exit ` + strconv.Itoa(code),
		"",
	}, "\n"))
	return ft
}

// Invocations returns the argument lists the fake was called with
func (f *fakeTool) Invocations(t *testing.T) []string {
	t.Helper()
	return readLines(t, f.argsLog)
}

// Colors returns the SYSTEMD_COLORS value seen by each invocation
func (f *fakeTool) Colors(t *testing.T) []string {
	t.Helper()
	return readLines(t, f.envLog)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	trimmed := strings.TrimRight(string(data), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
