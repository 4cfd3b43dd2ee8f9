// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package fetchtest provides a scripted fetch.Service for tests.
//
// Every descriptor submitted to a Service is recorded as a Submission.
// The test then plays the network by calling the Submission's methods,
// which invoke the listener directly on the calling goroutine:
//
//	svc := &fetchtest.Service{}
//	r.Fetcher = svc
//	...
//	sub := svc.Last()
//	sub.Respond(200, http.Header{"Content-Type": {"text/plain"}}, "hello")
//
// Set Auto to respond from inside Submit, which is what synchronous
// requests need since the caller is blocked until the fetch ends.
package fetchtest

import (
	"net/http"
	"sync"

	"github.com/gogama/xhr/fetch"
	"github.com/gogama/xhr/request"
)

// Service is a fetch.Service that records submissions. The zero value
// is ready to use.
type Service struct {
	// Auto, if not nil, is called synchronously from Submit with the new
	// submission.
	Auto func(s *Submission)

	mu          sync.Mutex
	submissions []*Submission
}

// Submit implements fetch.Service.
func (svc *Service) Submit(d *request.Descriptor, l fetch.Listener) fetch.Handle {
	s := &Submission{Descriptor: d, Listener: l}
	svc.mu.Lock()
	svc.submissions = append(svc.submissions, s)
	auto := svc.Auto
	svc.mu.Unlock()
	if auto != nil {
		auto(s)
	}
	return s
}

// Len returns the number of submissions so far.
func (svc *Service) Len() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.submissions)
}

// Submissions returns a copy of the list of submissions so far.
func (svc *Service) Submissions() []*Submission {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]*Submission(nil), svc.submissions...)
}

// Last returns the most recent submission, or nil.
func (svc *Service) Last() *Submission {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.submissions) == 0 {
		return nil
	}
	return svc.submissions[len(svc.submissions)-1]
}

// A Submission is one recorded fetch. It implements fetch.Handle.
type Submission struct {
	// Descriptor is the submitted request.
	Descriptor *request.Descriptor
	// Listener is the listener passed to Submit.
	Listener fetch.Listener

	mu        sync.Mutex
	cancelled bool
}

// Cancel implements fetch.Handle. It only records the call; the test
// decides whether the listener hears anything more.
func (s *Submission) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

// Cancelled reports whether Cancel was called.
func (s *Submission) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Metadata delivers md to the listener's OnHeaders.
func (s *Submission) Metadata(md *fetch.Metadata) {
	s.Listener.OnHeaders(md)
}

// Headers delivers response headers with the descriptor's URL as the
// response URL and http.StatusText(status) as the status text.
func (s *Submission) Headers(status int, h http.Header) {
	s.Metadata(&fetch.Metadata{
		URL:        s.Descriptor.URL,
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     h,
	})
}

// Chunk delivers a piece of the response body.
func (s *Submission) Chunk(b string) {
	s.Listener.OnChunk([]byte(b))
}

// Complete ends the fetch with err, nil meaning success.
func (s *Submission) Complete(err error) {
	s.Listener.OnComplete(err)
}

// Respond delivers headers, each chunk in turn, and a successful
// completion.
func (s *Submission) Respond(status int, h http.Header, chunks ...string) {
	s.Headers(status, h)
	for _, c := range chunks {
		s.Chunk(c)
	}
	s.Complete(nil)
}
