// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/xhr/transient"
)

// An Execution represents the state of a fetch service working on a
// single Descriptor.
//
// A fetch service may make more than one transport attempt for a
// descriptor, for example when an attempt fails with a transient error
// before any response headers were delivered. The Execution is updated
// as attempts are made and is handed to retry policies so they can
// decide whether another attempt is warranted.
//
// Retry policies may set values on an Execution using its SetValue
// method and read them back using the Value method, but should treat
// the exported fields as read-only.
type Execution struct {
	// Descriptor specifies the request being fetched. It is never nil.
	Descriptor *Descriptor

	// Start is the start time of the fetch. It is assigned when the
	// first attempt starts and remains constant thereafter.
	Start time.Time

	// End is the end time of the fetch. It contains the zero value
	// until the fetch ends.
	End time.Time

	// Attempt is the zero-based number of the current transport
	// attempt. It is zero on the initial attempt, one on the first
	// retry, and so on.
	Attempt int

	// AttemptTimeouts counts the attempts that ended in a timeout.
	AttemptTimeouts int

	// Request is the HTTP request made in the current attempt.
	Request *http.Request

	// Response is the HTTP response received in the most recent
	// attempt. It is nil if the most recent attempt ended in an error.
	Response *http.Response

	// Err is the error received while making the most recent attempt,
	// or nil.
	Err error

	data context.Context
}

// StatusCode returns the status code of the HTTP response from the
// most recent attempt, or 0 if there is no response.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the HTTP response headers from the most recent
// attempt, or nil if there is no response.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Response.Header
}

// Duration returns the duration of the execution.
//
// If the execution has not yet started, the duration is zero. If the
// execution has Ended, the duration returned is equal to End minus
// Start. Otherwise, it is equal to the current time minus Start.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return !e.Start.IsZero()
}

// Ended indicates whether the execution has ended.
func (e *Execution) Ended() bool {
	return !e.End.IsZero()
}

// Timeout indicates whether Err currently contains a non-nil value
// which indicates a timeout.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// SetValue stores arbitrary data in the execution. The key must follow
// the same rules as the key parameter in context.WithValue.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
