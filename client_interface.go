package svcrelay

import (
	"context"
)

// Controller is the interface the service-control façade implements.
// Every method accepts a bare service name or a fully qualified unit name.
type Controller interface {
	// Status reports the unit's active state as printed by the service manager
	Status(ctx context.Context, name string) (ServiceStatus, error)

	// Start, Stop and Restart return once the request is accepted,
	// without waiting for the unit to reach its target state
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
}

// ServiceStatus is the active state of a unit. Any token the service
// manager prints is passed through; the constants below are the common
// ones plus the two values substituted when no token is available.
type ServiceStatus string

// Well-known unit states
const (
	StatusActive       ServiceStatus = "active"
	StatusInactive     ServiceStatus = "inactive"
	StatusFailed       ServiceStatus = "failed"
	StatusActivating   ServiceStatus = "activating"
	StatusDeactivating ServiceStatus = "deactivating"
	StatusReloading    ServiceStatus = "reloading"
	StatusNotFound     ServiceStatus = "not-found"
	StatusUnknown      ServiceStatus = "unknown"
)

// IsActive reports whether the unit is running
func (s ServiceStatus) IsActive() bool {
	return s == StatusActive
}

// Settled reports whether the unit is in a state that will not change
// without further intervention.
func (s ServiceStatus) Settled() bool {
	switch s {
	case StatusActive, StatusInactive, StatusFailed, StatusNotFound:
		return true
	default:
		return false
	}
}

// String returns the raw state token
func (s ServiceStatus) String() string {
	return string(s)
}

// Ensure ClientSystemd implements Controller
var _ Controller = (*ClientSystemd)(nil)
