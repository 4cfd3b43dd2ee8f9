// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

import (
	"net/http"
	"strings"
	"time"

	"github.com/gogama/xhr/fetch"
	"github.com/gogama/xhr/mimetype"
	"github.com/gogama/xhr/request"
)

// Send starts the fetch.
//
// The body may be nil or any type accepted by request.Extract. It is
// ignored for GET and HEAD. A body type which cannot be extracted
// yields KindInvalidState.
//
// In asynchronous mode Send delivers LoadStart, submits the fetch and
// returns; the outcome is reported through handlers. In synchronous
// mode Send blocks until the fetch ends and returns nil on success or
// an *Error of kind KindNetwork.
func (r *Request) Send(body interface{}) error {
	const op = "send"
	if r.state != Opened || r.sending {
		return newError(KindInvalidState, op, nil)
	}
	if r.method == http.MethodGet || r.method == http.MethodHead {
		body = nil
	}
	b, err := request.Extract(body)
	if err != nil {
		return newError(KindInvalidState, op, err)
	}
	r.bodyLen = 0
	if b != nil {
		r.bodyLen = uint64(len(b.Bytes))
	}
	r.uploadComplete = r.bodyLen == 0
	r.sending = true

	if !r.sync {
		gen := r.gen
		r.responseProgress(LoadStart)
		if r.stale(gen) {
			return nil
		}
		if !r.uploadComplete {
			r.uploadProgress(LoadStart, 0)
			if r.stale(gen) {
				return nil
			}
		}
	}

	d := r.descriptor(b)
	r.sendTime = r.manager().Scheduler().Now()
	r.logger().Debug().
		Uint64("gen", r.gen).
		Str("method", d.Method).
		Str("url", d.URL.Redacted()).
		Uint64("body_bytes", r.bodyLen).
		Bool("sync", r.sync).
		Msg("Sending")

	if r.sync {
		return r.pump(d)
	}

	l := &listener{r: r, gen: r.gen, post: r.exec.Post}
	r.handle = r.fetcher().Submit(d, l)
	if r.timeoutDur > 0 {
		r.scheduleTimeout(r.timeoutDur)
	}
	return nil
}

// descriptor builds the request descriptor for the current generation.
func (r *Request) descriptor(b *request.Body) *request.Descriptor {
	h := r.requestHeader.Clone()
	if h == nil {
		h = make(http.Header)
	}
	d := &request.Descriptor{
		Method:            r.method,
		URL:               r.url,
		Header:            h,
		Credentials:       request.CredentialsSameOrigin,
		UseURLCredentials: r.url.User != nil,
		UseCORSPreflight:  !r.Upload.Empty(),
		Synchronous:       r.sync,
		Mode:              request.ModeCORS,
		Referrer:          r.Referrer,
		ReferrerPolicy:    r.ReferrerPolicy,
		Origin:            r.Origin,
	}
	if r.withCredentials {
		d.Credentials = request.CredentialsInclude
	}
	if b != nil {
		d.Body = b.Bytes
		setContentType(h, b)
	}
	return d.Clone()
}

// setContentType sets the Content-Type implied by the body unless the
// author set one. If the author did, and the body is UTF-8 text, a
// conflicting charset parameter is rewritten to UTF-8 in place.
func setContentType(h http.Header, b *request.Body) {
	ct := h.Get("Content-Type")
	if ct == "" && len(h.Values("Content-Type")) == 0 {
		if b.ContentType != "" {
			h.Set("Content-Type", b.ContentType)
		}
		return
	}
	if !b.Textual {
		return
	}
	mt, err := mimetype.Parse(ct)
	if err != nil {
		return
	}
	if cs, ok := mt.Charset(); ok && !strings.EqualFold(cs, "UTF-8") {
		h.Set("Content-Type", mt.WithParam("charset", "UTF-8").String())
	}
}

// A syncCall is the result slot of a synchronous send.
type syncCall struct {
	done bool
	err  error
}

func (c *syncCall) complete(err error) {
	if c.done {
		return
	}
	c.done = true
	if err != nil {
		c.err = newError(KindNetwork, "send", err)
	}
}

// pump submits d and runs its events on a private queue until the
// terminal one has been seen.
func (r *Request) pump(d *request.Descriptor) error {
	q := &Loop{}
	call := &syncCall{}
	l := &listener{r: r, gen: r.gen, post: q.Post, call: call}
	r.handle = r.fetcher().Submit(d, l)
	for !call.done {
		q.next()()
	}
	return call.err
}

// A listener forwards the events of one fetch to the owner context,
// tagged with the generation the fetch was submitted under.
type listener struct {
	r    *Request
	gen  uint64
	post func(func())
	call *syncCall
}

func (l *listener) OnHeaders(m *fetch.Metadata) {
	l.post(func() {
		l.r.process(l.gen, progress{kind: progressHeaders, meta: m})
	})
}

func (l *listener) OnChunk(b []byte) {
	chunk := append([]byte(nil), b...)
	l.post(func() {
		l.r.process(l.gen, progress{kind: progressChunk, chunk: chunk})
	})
}

func (l *listener) OnComplete(err error) {
	l.post(func() {
		if l.call != nil {
			l.call.complete(err)
		}
		if err != nil {
			l.r.process(l.gen, progress{kind: progressErrored, errKind: KindNetwork, err: err})
		} else {
			l.r.process(l.gen, progress{kind: progressDone})
		}
	})
}

// scheduleTimeout replaces the outstanding timeout with one that fires
// after d. The callback runs on the owner context.
func (r *Request) scheduleTimeout(d time.Duration) {
	gen := r.gen
	r.manager().Set(d, func() {
		r.exec.Post(func() {
			r.onTimeout(gen)
		})
	})
}

func (r *Request) onTimeout(gen uint64) {
	if r.stale(gen) || r.state == Done {
		return
	}
	r.logger().Debug().Uint64("gen", gen).Dur("timeout", r.timeoutDur).Msg("Timed out")
	if r.handle != nil {
		r.handle.Cancel()
		r.handle = nil
	}
	r.process(gen, progress{kind: progressErrored, errKind: KindTimeout})
}
