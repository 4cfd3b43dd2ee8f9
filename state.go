// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

import "strconv"

// A State is the ready state of a Request.
type State int

const (
	// Unsent is the state of a new Request, and of an aborted one.
	Unsent State = iota
	// Opened is the state after a successful Open.
	Opened
	// HeadersReceived is the state once the response headers of an
	// asynchronous request have arrived.
	HeadersReceived
	// Loading is the state while the response body of an asynchronous
	// request is arriving.
	Loading
	// Done is the state once the fetch has finished, successfully or
	// not.
	Done
)

var stateNames = []string{
	Unsent:          "UNSENT",
	Opened:          "OPENED",
	HeadersReceived: "HEADERS_RECEIVED",
	Loading:         "LOADING",
	Done:            "DONE",
}

// String returns the name of the state, for example "OPENED".
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
	return stateNames[s]
}

// A Scope describes the kind of execution context which owns a Request.
// Some combinations of options are only refused in a Window scope.
type Scope int

const (
	// Window is a foreground context whose blocking must be kept short.
	// Synchronous requests in a Window scope cannot have a timeout or a
	// response type.
	Window Scope = iota
	// Worker is a background context.
	Worker
)

// String returns "window" or "worker".
func (s Scope) String() string {
	if s == Worker {
		return "worker"
	}
	return "window"
}
