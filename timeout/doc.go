// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout provides the timer service used by the request
// controller and the per-attempt timeout policies used by fetch
// services.
//
// A Scheduler runs a callback once after a delay and can cancel it by
// handle. Wall is backed by real time; Manual is driven explicitly and
// suits deterministic tests. A Manager holds at most one outstanding
// timeout, which is how the request controller tracks the request
// timeout across rescheduling.
//
// A Policy decides the timeout for each transport attempt of a fetch,
// including retries.
package timeout
