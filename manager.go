package svcrelay

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Manager runs controller operations across several units concurrently.
// Per-unit failures are collected, not short-circuited.
type Manager struct {
	// Controller performs the per-unit operations
	Controller Controller
	// Concurrency is the maximum number of concurrent operations
	Concurrency int
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConcurrency sets the maximum number of concurrent operations
func WithConcurrency(n int) ManagerOption {
	return func(m *Manager) {
		m.Concurrency = n
	}
}

// NewManager creates a new Manager with default settings
func NewManager(ctl Controller, opts ...ManagerOption) *Manager {
	m := &Manager{
		Controller:  ctl,
		Concurrency: 4,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.Concurrency < 1 {
		m.Concurrency = 1
	}

	return m
}

func (m *Manager) execute(ctx context.Context, names []string, op func(context.Context, string) error) error {
	if len(names) == 0 {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(m.Concurrency)

	var mu sync.Mutex
	merr := &MultiError{}

	for _, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
				return nil
			}
			if err := op(ctx, name); err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return merr.Err()
}

// Start starts the specified units
func (m *Manager) Start(ctx context.Context, names ...string) error {
	return m.execute(ctx, names, m.Controller.Start)
}

// Stop stops the specified units
func (m *Manager) Stop(ctx context.Context, names ...string) error {
	return m.execute(ctx, names, m.Controller.Stop)
}

// Restart restarts the specified units
func (m *Manager) Restart(ctx context.Context, names ...string) error {
	return m.execute(ctx, names, m.Controller.Restart)
}

// Status retrieves the status of the specified units, keyed by unit name.
// Units whose query failed are absent from the map.
func (m *Manager) Status(ctx context.Context, names ...string) (map[string]ServiceStatus, error) {
	results := make(map[string]ServiceStatus, len(names))
	var mu sync.Mutex

	err := m.execute(ctx, names, func(ctx context.Context, name string) error {
		status, err := m.Controller.Status(ctx, name)
		if err != nil {
			return err
		}
		mu.Lock()
		results[UnitName(name)] = status
		mu.Unlock()
		return nil
	})

	return results, err
}
