// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

import (
	"context"
	"sync"
)

// An Executor runs functions on the owner context of a Request. Every
// method of a Request, and every handler it calls, runs on the owner
// context, so an Executor must run posted functions one at a time and in
// the order they were posted.
//
// Post may be called from any goroutine and must not block.
type Executor interface {
	Post(f func())
}

// The ExecutorFunc type is an adapter to allow the use of ordinary
// functions as executors.
type ExecutorFunc func(f func())

// Post calls e(f).
func (e ExecutorFunc) Post(f func()) {
	e(f)
}

// A Loop is an unbounded first-in first-out Executor. The goroutine
// which calls Run or RunPending becomes the owner context. The zero
// value is ready to use.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
}

// Post queues f. It never blocks. Functions posted after Close are
// discarded.
func (l *Loop) Post(f func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, f)
	wake := l.wakeChan()
	l.mu.Unlock()
	select {
	case wake <- struct{}{}:
	default:
	}
}

// wakeChan must be called with l.mu held.
func (l *Loop) wakeChan() chan struct{} {
	if l.wake == nil {
		l.wake = make(chan struct{}, 1)
	}
	return l.wake
}

func (l *Loop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	f := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return f
}

// RunPending runs queued functions on the calling goroutine until the
// queue is empty, including functions posted while it runs, and
// returns how many it ran.
func (l *Loop) RunPending() int {
	n := 0
	for f := l.pop(); f != nil; f = l.pop() {
		f()
		n++
	}
	return n
}

// Run runs posted functions on the calling goroutine until ctx is done
// or the loop is closed. It returns ctx.Err() in the first case and nil
// in the second. Functions queued before Close are run before Run
// returns nil.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()
		l.mu.Lock()
		closed := l.closed && len(l.queue) == 0
		wake := l.wakeChan()
		l.mu.Unlock()
		if closed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

// next blocks until a function is queued and removes it.
func (l *Loop) next() func() {
	for {
		if f := l.pop(); f != nil {
			return f
		}
		l.mu.Lock()
		wake := l.wakeChan()
		l.mu.Unlock()
		<-wake
	}
}

// Close stops the loop accepting functions and wakes Run so that it
// returns once the queue is drained.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	wake := l.wakeChan()
	l.mu.Unlock()
	select {
	case wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued functions.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}
