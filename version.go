package svcrelay

// Version is the current version of the go-svcrelay library
const Version = "1.0.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// Manager is the service manager driven through its command line
	Manager string
	// LogBackend is the log source followed by the supervisor
	LogBackend string
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version:    Version,
		Manager:    "systemd (--user)",
		LogBackend: "journald",
	}
}
