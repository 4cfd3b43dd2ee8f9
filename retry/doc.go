// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides policies a fetch service uses to repeat failed
// transport attempts before any response headers have reached the
// request controller. Once headers are delivered an attempt is never
// repeated, so the controller observes at most one response.
//
// A Policy combines a Decider and a Waiter:
//
//	decider := retry.Times(3).
//		And(retry.Idempotent).
//		And(retry.StatusCode(503).Or(retry.TransientErr))
//	waiter := retry.NewExpWaiter(100*time.Millisecond, 2*time.Second, time.Now())
//	policy := retry.NewPolicy(decider, waiter)
package retry
