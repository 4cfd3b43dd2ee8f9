// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"sort"
	"sync"
	"time"
)

// A Handle identifies a scheduled callback. The zero Handle never
// identifies a scheduled callback.
type Handle uint64

// A Scheduler runs callbacks once after a delay.
//
// Implementations must be safe for concurrent use. Callbacks may run on
// any goroutine; callers needing a particular execution context must
// marshal onto it themselves.
type Scheduler interface {
	// Now returns the scheduler's current time.
	Now() time.Time
	// Schedule arranges for f to run once after d has elapsed. A
	// non-positive d means as soon as possible.
	Schedule(d time.Duration, f func()) Handle
	// Cancel prevents the callback identified by h from running, if it
	// has not run already. Cancelling an unknown or zero handle is a
	// no-op.
	Cancel(h Handle)
}

// DefaultScheduler is the Scheduler used when none is configured.
var DefaultScheduler Scheduler = &Wall{}

// Wall is a Scheduler backed by the system clock and time.AfterFunc. The
// zero value is ready to use.
type Wall struct {
	mu     sync.Mutex
	next   Handle
	timers map[Handle]*time.Timer
}

// Now returns time.Now().
func (w *Wall) Now() time.Time {
	return time.Now()
}

// Schedule implements Scheduler.
func (w *Wall) Schedule(d time.Duration, f func()) Handle {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timers == nil {
		w.timers = make(map[Handle]*time.Timer)
	}
	w.next++
	h := w.next
	w.timers[h] = time.AfterFunc(d, func() {
		w.mu.Lock()
		_, ok := w.timers[h]
		delete(w.timers, h)
		w.mu.Unlock()
		if ok {
			f()
		}
	})
	return h
}

// Cancel implements Scheduler.
func (w *Wall) Cancel(h Handle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[h]; ok {
		t.Stop()
		delete(w.timers, h)
	}
}

// Manual is a Scheduler whose clock only moves when Advance is called.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	next    Handle
	pending map[Handle]manualEntry
}

type manualEntry struct {
	due time.Time
	seq Handle
	f   func()
}

// NewManual returns a Manual scheduler whose clock reads start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, pending: make(map[Handle]manualEntry)}
}

// Now returns the manual clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Schedule implements Scheduler. The callback only runs from a later
// call to Advance.
func (m *Manual) Schedule(d time.Duration, f func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.next++
	m.pending[m.next] = manualEntry{due: m.now.Add(d), seq: m.next, f: f}
	return m.next
}

// Cancel implements Scheduler.
func (m *Manual) Cancel(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, h)
}

// Pending returns the number of scheduled callbacks which have neither
// run nor been cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Advance moves the clock forward by d and runs, in due order, every
// callback that is due. Callbacks run on the calling goroutine without
// the scheduler's lock held, so they may schedule or cancel further
// callbacks. Callbacks scheduled while advancing run in the same call
// if they fall due before the new time.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	for {
		m.mu.Lock()
		var due []manualEntry
		for _, e := range m.pending {
			if !e.due.After(target) {
				due = append(due, e)
			}
		}
		if len(due) == 0 {
			m.now = target
			m.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].due.Equal(due[j].due) {
				return due[i].seq < due[j].seq
			}
			return due[i].due.Before(due[j].due)
		})
		e := due[0]
		delete(m.pending, e.seq)
		if e.due.After(m.now) {
			m.now = e.due
		}
		m.mu.Unlock()
		e.f()
	}
}
