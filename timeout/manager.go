// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"sync"
	"time"
)

// A Manager tracks at most one outstanding timeout on a Scheduler.
// Setting a new timeout cancels the previous one.
type Manager struct {
	s Scheduler

	mu     sync.Mutex
	handle Handle
}

// NewManager returns a Manager which schedules on s. A nil s means
// DefaultScheduler.
func NewManager(s Scheduler) *Manager {
	if s == nil {
		s = DefaultScheduler
	}
	return &Manager{s: s}
}

// Scheduler returns the scheduler the manager uses.
func (m *Manager) Scheduler() Scheduler {
	return m.s
}

// Set cancels any outstanding timeout and schedules f to run after d.
// The outstanding timeout is cleared just before f runs.
func (m *Manager) Set(d time.Duration, f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle != 0 {
		m.s.Cancel(m.handle)
	}
	var h Handle
	h = m.s.Schedule(d, func() {
		m.mu.Lock()
		if m.handle == h {
			m.handle = 0
		}
		m.mu.Unlock()
		f()
	})
	m.handle = h
}

// Cancel cancels the outstanding timeout, if any.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle != 0 {
		m.s.Cancel(m.handle)
		m.handle = 0
	}
}

// Active reports whether a timeout is outstanding.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle != 0
}
