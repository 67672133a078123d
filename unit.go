package svcrelay

import (
	"fmt"
	"strings"
	"time"
)

// Unit naming and file layout constants
const (
	// UnitSuffix is the unit-type extension appended to bare service names
	UnitSuffix = ".service"

	// UserUnitDir is the systemd user unit directory relative to the user config dir
	UserUnitDir = "systemd/user"

	// LaunchDirective is the unit-file key rewritten by the flags codec
	LaunchDirective = "ExecStart="

	// DefaultLaunchPrefix is the fixed base invocation that precedes the caller's flags
	DefaultLaunchPrefix = "/usr/local/bin/peerdrive init"

	// DefaultService is the service managed when no name is given
	DefaultService = "peerdrived"
)

// Binary paths with defaults that can be overridden
const (
	// DefaultSystemctlPath is the default path to the systemctl binary
	DefaultSystemctlPath = "systemctl"

	// DefaultJournalctlPath is the default path to the journalctl binary
	DefaultJournalctlPath = "journalctl"
)

// Log follower defaults
const (
	// DefaultBacklogLines is the number of journal lines printed before live tailing
	DefaultBacklogLines = 200

	// LogOutputFormat is the journalctl output mode with stable ISO timestamps
	LogOutputFormat = "short-iso"

	// LogEventName is the channel name log lines are published under
	LogEventName = "daemon://logs"

	// DefaultWatchDebounce is the default debounce time for unit file watching
	DefaultWatchDebounce = 25 * time.Millisecond

	// DefaultSettlePoll is the default interval between status polls in WaitSettled
	DefaultSettlePoll = 600 * time.Millisecond
)

// UnitName returns the fully qualified unit name for name. Names that
// already carry UnitSuffix are returned unchanged, so UnitName is
// idempotent and callers may pass either form.
func UnitName(name string) string {
	if strings.HasSuffix(name, UnitSuffix) {
		return name
	}
	return name + UnitSuffix
}

// CheckUnitName rejects names that are empty, are "." or "..", or contain
// a path separator or NUL, since those could resolve outside the unit
// directory.
func CheckUnitName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidUnitName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidUnitName, name)
	}
	return nil
}

// Operation represents a control-plane operation type
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpStatus queries the unit's active state
	OpStatus
	// OpStart starts the unit
	OpStart
	// OpStop stops the unit
	OpStop
	// OpRestart restarts the unit
	OpRestart
	// OpReload reloads the service manager's unit definitions
	OpReload
	// OpReadFlags reads the unit's startup flags
	OpReadFlags
	// OpWriteFlags rewrites the unit's startup flags
	OpWriteFlags
	// OpFollow spawns a log follower for the unit
	OpFollow
)

// Operation string constants
const (
	opUnknownStr    = "unknown"
	opStatusStr     = "is-active"
	opStartStr      = "start"
	opStopStr       = "stop"
	opRestartStr    = "restart"
	opReloadStr     = "daemon-reload"
	opReadFlagsStr  = "read-flags"
	opWriteFlagsStr = "write-flags"
	opFollowStr     = "follow"
)

// String returns the string representation of an Operation. For the
// systemctl-backed operations this is also the systemctl verb.
func (op Operation) String() string {
	switch op {
	case OpStatus:
		return opStatusStr
	case OpStart:
		return opStartStr
	case OpStop:
		return opStopStr
	case OpRestart:
		return opRestartStr
	case OpReload:
		return opReloadStr
	case OpReadFlags:
		return opReadFlagsStr
	case OpWriteFlags:
		return opWriteFlagsStr
	case OpFollow:
		return opFollowStr
	default:
		return opUnknownStr
	}
}
