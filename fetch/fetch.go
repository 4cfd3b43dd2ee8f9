// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package fetch defines the contract between the request controller and
// a fetch service, the component that performs the network exchange for
// a request descriptor and streams the response back.
//
// A Service accepts a request.Descriptor together with a Listener and
// returns a Handle that can cancel the fetch. The Listener receives, in
// order, at most one OnHeaders, any number of OnChunk calls, and exactly
// one OnComplete, unless the fetch was cancelled first, in which case
// delivery may stop at any point.
//
// Listener methods may be called on any goroutine but never
// concurrently for the same fetch.
package fetch

import (
	"net/http"
	"net/url"

	"github.com/gogama/xhr/request"
)

// Metadata describes a response once its headers have arrived.
type Metadata struct {
	// URL is the final response URL after any redirects.
	URL *url.URL
	// StatusCode is the HTTP status code, e.g. 200.
	StatusCode int
	// Status is the reason phrase, e.g. "OK". It may be empty.
	Status string
	// Header holds the response headers, unfiltered.
	Header http.Header
}

// A Listener receives the progress of one fetch.
type Listener interface {
	// OnHeaders is called once, when the response headers arrive.
	OnHeaders(m *Metadata)
	// OnChunk is called for each piece of the response body. The
	// listener must not retain b after returning.
	OnChunk(b []byte)
	// OnComplete is called once when the fetch ends. A nil err means
	// the whole body was received; anything else is a network error.
	OnComplete(err error)
}

// A Handle refers to a fetch in progress.
type Handle interface {
	// Cancel asks the service to stop the fetch. It is best effort and
	// safe to call more than once.
	Cancel()
}

// A Service performs fetches.
//
// Implementations must be safe for concurrent use by multiple
// goroutines.
type Service interface {
	// Submit starts fetching d and reports progress to l. Submit must
	// not block on the network. The service must not modify d.
	Submit(d *request.Descriptor, l Listener) Handle
}

// The ServiceFunc type is an adapter to allow the use of ordinary
// functions as fetch services.
type ServiceFunc func(d *request.Descriptor, l Listener) Handle

// Submit calls f(d, l).
func (f ServiceFunc) Submit(d *request.Descriptor, l Listener) Handle {
	return f(d, l)
}

// The HandleFunc type is an adapter to allow the use of ordinary
// functions as handles.
type HandleFunc func()

// Cancel calls f().
func (f HandleFunc) Cancel() {
	f()
}

// NopHandle is a Handle whose Cancel does nothing.
var NopHandle Handle = HandleFunc(func() {})
