// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

// A Notification carries the details of one delivered event.
type Notification struct {
	// Request is the request the event belongs to.
	Request *Request
	// Upload is true when the event was delivered to the upload target.
	Upload bool
	// LengthComputable indicates whether Total is known. It is always
	// false for ReadyStateChange.
	LengthComputable bool
	// Loaded is the number of bytes transferred so far.
	Loaded uint64
	// Total is the total number of bytes to transfer, or zero if it is
	// not known.
	Total uint64
}

// A HandlerGroup is a group of event handler chains which can be
// installed as one of the targets of a Request.
type HandlerGroup struct {
	handlers [][]Handler
}

// PushBack adds an event handler to the back of the event handler chain
// for a specific event type.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("xhr: nil handler")
	}

	if g.handlers == nil {
		g.handlers = make([][]Handler, numEvents)
	}

	g.handlers[evt] = append(g.handlers[evt], h)
}

// Empty reports whether no handler has been installed for any event.
// A nil group is empty.
func (g *HandlerGroup) Empty() bool {
	if g == nil {
		return true
	}
	for _, chain := range g.handlers {
		if len(chain) > 0 {
			return false
		}
	}
	return true
}

func (g *HandlerGroup) run(evt Event, n *Notification) {
	if g == nil {
		return
	}
	i := int(evt)
	if i < len(g.handlers) {
		run(g.handlers[i], evt, n)
	}
}

func run(chain []Handler, evt Event, n *Notification) {
	for _, h := range chain {
		h.Handle(evt, n)
	}
}

// A Handler handles the delivery of an event for a request.
//
// Handlers run on the request's owner context and may call any method
// of the request, including Abort and Open. When a handler does that,
// the remaining notifications of the sequence being delivered are
// skipped, although the other handlers in the same chain still run.
type Handler interface {
	Handle(Event, *Notification)
}

// The HandlerFunc type is an adapter to allow the use of ordinary
// functions as event handlers. If f is a function with appropriate
// signature, then HandlerFunc(f) is a Handler that calls f.
type HandlerFunc func(Event, *Notification)

// Handle calls f(evt, n).
func (f HandlerFunc) Handle(evt Event, n *Notification) {
	f(evt, n)
}
