// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var epoch = time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

func TestWall(t *testing.T) {
	defer goleak.VerifyNone(t)

	var w Wall
	fired := make(chan struct{})
	w.Schedule(time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		require.Fail(t, "callback did not fire")
	}

	var n int32
	h := w.Schedule(time.Hour, func() { atomic.AddInt32(&n, 1) })
	w.Cancel(h)
	w.Cancel(h)
	w.Cancel(0)
	assert.Equal(t, int32(0), atomic.LoadInt32(&n))
	assert.WithinDuration(t, time.Now(), w.Now(), time.Second)
}

func TestManual(t *testing.T) {
	m := NewManual(epoch)
	var order []string
	m.Schedule(3*time.Second, func() { order = append(order, "c") })
	m.Schedule(time.Second, func() { order = append(order, "a") })
	h := m.Schedule(2*time.Second, func() { order = append(order, "cancelled") })
	m.Schedule(2*time.Second, func() {
		order = append(order, "b")
		m.Schedule(0, func() { order = append(order, "b2") })
	})
	m.Cancel(h)
	assert.Equal(t, 3, m.Pending())

	m.Advance(500 * time.Millisecond)
	assert.Empty(t, order)
	assert.Equal(t, epoch.Add(500*time.Millisecond), m.Now())

	m.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b", "b2"}, order)
	assert.Equal(t, epoch.Add(2500*time.Millisecond), m.Now())

	m.Advance(time.Hour)
	assert.Equal(t, []string{"a", "b", "b2", "c"}, order)
	assert.Equal(t, 0, m.Pending())
}

func TestManager(t *testing.T) {
	m := NewManual(epoch)
	mgr := NewManager(m)
	assert.Same(t, m, mgr.Scheduler())
	assert.False(t, mgr.Active())

	var fired []int
	mgr.Set(time.Second, func() { fired = append(fired, 1) })
	mgr.Set(2*time.Second, func() { fired = append(fired, 2) })
	assert.True(t, mgr.Active())
	assert.Equal(t, 1, m.Pending())

	m.Advance(2 * time.Second)
	assert.Equal(t, []int{2}, fired)
	assert.False(t, mgr.Active())

	mgr.Set(time.Second, func() { fired = append(fired, 3) })
	mgr.Cancel()
	mgr.Cancel()
	m.Advance(time.Hour)
	assert.Equal(t, []int{2}, fired)

	assert.Same(t, DefaultScheduler, NewManager(nil).Scheduler())
}
