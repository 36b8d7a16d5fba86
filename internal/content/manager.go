package content

import (
	"errors"
	"sync/atomic"
	"time"
)

// ErrNoContent is returned by ReadyErr until a snapshot has been set.
var ErrNoContent = errors.New("no content loaded")

// Manager holds the active snapshot. Readers never block writers.
type Manager struct {
	active atomic.Pointer[Snapshot]
}

func NewManager() *Manager { return &Manager{} }

// Set publishes a copy of s, stamping LoadedAt if unset.
func (m *Manager) Set(s Snapshot) {
	cp := s
	if cp.LoadedAt.IsZero() {
		cp.LoadedAt = time.Now().UTC()
	}
	m.active.Store(&cp)
}

// Get returns the active snapshot and whether it is usable.
func (m *Manager) Get() (*Snapshot, bool) {
	s := m.active.Load()
	return s, s != nil && s.FS != nil
}

// ReadyErr reports whether content can be served. Used by the readiness probe.
func (m *Manager) ReadyErr() error {
	if _, ok := m.Get(); !ok {
		return ErrNoContent
	}
	return nil
}

// ContentVersion prefers the manifest version over the loader's.
func (m *Manager) ContentVersion() string {
	s := m.active.Load()
	switch {
	case s == nil:
		return ""
	case s.Manifest != nil && s.Manifest.Version != "":
		return s.Manifest.Version
	default:
		return s.Meta.Version
	}
}

func (m *Manager) ContentHash() string {
	if s := m.active.Load(); s != nil {
		return s.Meta.Hash
	}
	return ""
}

func (m *Manager) Manifest() *Manifest {
	if s := m.active.Load(); s != nil {
		return s.Manifest
	}
	return nil
}

func (m *Manager) Source() Source {
	if s := m.active.Load(); s != nil && s.Meta.Source != "" {
		return s.Meta.Source
	}
	return SourceUnknown
}

func (m *Manager) LoadedAt() time.Time {
	if s := m.active.Load(); s != nil {
		return s.LoadedAt
	}
	return time.Time{}
}
