// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/xhr/request"
)

// A Policy sets the timeout of each transport attempt a fetch service
// makes for one request, including retries. It is unrelated to the
// author-visible request timeout, which covers the whole fetch and is
// enforced through a Manager.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeout returns the timeout to set on the next transport attempt.
	// Parameter e contains the current state of the fetch.
	Timeout(e *request.Execution) time.Duration
}

// Infinite is a built-in timeout policy which never times out. It is the
// default attempt policy since the request controller enforces its own
// overall timeout.
var Infinite Policy = Fixed(1<<63 - 1)

// Fixed constructs a timeout policy that uses d for every attempt.
func Fixed(d time.Duration) Policy {
	return policy([]time.Duration{d})
}

// Adaptive constructs a timeout policy that varies the next timeout
// value if the previous attempt timed out.
//
// Parameter usual is the timeout for an initial attempt and for any
// retry where the immediately preceding attempt did not time out.
// Parameter after holds the timeouts to use after the first, second and
// later attempt timeouts; its last element is reused when it runs out.
//
// 	p := Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	p := make([]time.Duration, 1, 1+len(after))
	p[0] = usual
	return policy(append(p, after...))
}

type policy []time.Duration

func (p policy) Timeout(e *request.Execution) time.Duration {
	if !e.Timeout() {
		return p[0]
	}

	i := e.AttemptTimeouts
	if i > len(p)-1 {
		i = len(p) - 1
	}

	return p[i]
}
