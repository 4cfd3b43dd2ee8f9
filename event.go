// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

// An Event identifies the notification type when installing or running
// a Handler.
//
// A request's notifications are delivered to one of two targets: the
// request itself, whose handlers are installed in Request.Handlers, and
// the upload side of the request, whose handlers are installed in
// Request.Upload. ReadyStateChange is only ever delivered to the
// request target.
type Event int

const (
	// ReadyStateChange identifies the notification that the ready state
	// changed. The new state is available from Request.ReadyState.
	//
	// In synchronous mode ReadyStateChange only fires for the
	// transition to Done.
	ReadyStateChange Event = iota
	// LoadStart identifies the notification that an asynchronous send
	// has started. It fires on the request target and, if there is a
	// non-empty body, on the upload target, before the fetch is
	// submitted.
	LoadStart
	// Progress identifies the notification that more of the body has
	// been transferred. On the upload target it fires once, when the
	// response headers arrive; on the request target it fires for each
	// chunk of response body. Progress never fires in synchronous mode.
	Progress
	// Abort identifies the notification that the request was aborted.
	Abort
	// NetworkError identifies the notification that the fetch failed
	// with a network error.
	NetworkError
	// Timeout identifies the notification that the request timed out.
	Timeout
	// Load identifies the notification that the transfer completed
	// successfully.
	Load
	// LoadEnd identifies the notification that the transfer ended,
	// successfully or not. It always follows Load, Abort, NetworkError
	// or Timeout on the same target, unless a handler of that
	// notification reopened or aborted the request.
	LoadEnd
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"ReadyStateChange",
	"LoadStart",
	"Progress",
	"Abort",
	"NetworkError",
	"Timeout",
	"Load",
	"LoadEnd",
}

var eventTypes = []string{
	"readystatechange",
	"loadstart",
	"progress",
	"abort",
	"error",
	"timeout",
	"load",
	"loadend",
}

// Events returns a slice containing all events which can be delivered
// for a request, in the order in which they are declared.
func Events() []Event {
	return []Event{
		ReadyStateChange,
		LoadStart,
		Progress,
		Abort,
		NetworkError,
		Timeout,
		Load,
		LoadEnd,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}

// Type returns the event type name used on the web platform, for
// example "readystatechange" or "error".
func (evt Event) Type() string {
	return eventTypes[int(evt)]
}
