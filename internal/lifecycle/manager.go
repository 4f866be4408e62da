// Package lifecycle tears down page-scoped resources in reverse order of setup.
package lifecycle

import (
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Manager closes registered resources last-in, first-out. The wallet sync
// session registers after the transfer service and both after the gateway, so
// workers stop before redirects are cancelled and the widget is torn down last
// of all.
type Manager struct {
	logger zerolog.Logger

	mu        sync.Mutex
	resources []resource
	closed    bool
}

type resource struct {
	name   string
	closer io.Closer
}

// NewManager creates an empty manager.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Register adds a resource. Registering after Close closes the resource
// immediately.
func (m *Manager) Register(name string, closer io.Closer) {
	m.mu.Lock()
	if !m.closed {
		m.resources = append(m.resources, resource{name: name, closer: closer})
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if err := closer.Close(); err != nil {
		m.logger.Error().Err(err).Str("resource", name).Msg("lifecycle.close_resource_failed")
	}
}

// RegisterFunc registers fn as a closer.
func (m *Manager) RegisterFunc(name string, fn func() error) {
	m.Register(name, closerFunc(fn))
}

// Close closes every resource, even when some fail, and returns all failures
// joined. Calling Close again is a no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	resources := m.resources
	m.resources = nil
	m.mu.Unlock()

	var errs []error
	for i := len(resources) - 1; i >= 0; i-- {
		res := resources[i]
		if err := res.closer.Close(); err != nil {
			m.logger.Error().
				Err(err).
				Str("resource", res.name).
				Msg("lifecycle.close_resource_failed")
			errs = append(errs, err)
			continue
		}
		m.logger.Debug().Str("resource", res.name).Msg("lifecycle.resource_closed")
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
