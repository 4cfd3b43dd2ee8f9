// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gogama/xhr/fetch"
	"github.com/gogama/xhr/header"
)

type progressKind int

const (
	progressHeaders progressKind = iota
	progressChunk
	progressDone
	progressErrored
)

// A progress is one fetch event on its way into the request.
type progress struct {
	kind    progressKind
	meta    *fetch.Metadata
	chunk   []byte
	errKind Kind
	err     error
}

var errNoHeaders = errors.New("xhr: fetch completed without response headers")

// process applies one fetch event of generation gen. Events of an older
// generation, and events arriving after the generation has errored, are
// dropped. Every notification is followed by a generation check so a
// handler which calls Open or Abort ends the sequence.
func (r *Request) process(gen uint64, p progress) {
	if r.stale(gen) || r.errored {
		r.logger().Debug().
			Uint64("gen", gen).
			Uint64("current_gen", r.gen).
			Bool("errored", r.errored).
			Int("kind", int(p.kind)).
			Msg("Dropped stale fetch event")
		return
	}

	if r.state == Done && (p.kind == progressDone || p.kind == progressErrored) {
		r.logger().Warn().
			Uint64("gen", gen).
			Err(p.err).
			Msg("Dropped duplicate fetch completion")
		return
	}

	switch p.kind {
	case progressHeaders:
		r.processHeaders(gen, p.meta)
	case progressChunk:
		r.processChunk(gen, p.chunk)
	case progressDone:
		r.processDone(gen)
	case progressErrored:
		r.processErrored(gen, p.errKind, p.err)
	}
}

func (r *Request) processHeaders(gen uint64, m *fetch.Metadata) {
	if r.state != Opened {
		r.logger().Warn().
			Uint64("gen", gen).
			Stringer("state", r.state).
			Msg("Dropped response headers received outside the OPENED state")
		return
	}

	r.uploadComplete = true
	if !r.sync {
		r.uploadProgress(Progress, r.bodyLen)
		if r.stale(gen) {
			return
		}
		r.uploadProgress(Load, r.bodyLen)
		if r.stale(gen) {
			return
		}
		r.uploadProgress(LoadEnd, r.bodyLen)
		if r.stale(gen) {
			return
		}
	}

	if m != nil {
		r.status = m.StatusCode
		r.statusText = m.Status
		r.responseHeader = m.Header.Clone()
		if m.URL != nil {
			u := *m.URL
			u.Fragment = ""
			u.RawFragment = ""
			r.responseURL = u.String()
		}
	}
	r.buf = nil
	if n, ok := contentLength(r.responseHeader); ok {
		r.buf = make([]byte, 0, preallocation(n))
	}

	if !r.sync {
		r.changeState(HeadersReceived)
	}
}

// preallocation returns the buffer capacity to reserve for a response
// whose declared length is n.
func preallocation(n uint64) int {
	if n > MaxPreallocation {
		return MaxPreallocation
	}
	return int(n)
}

func (r *Request) processChunk(gen uint64, chunk []byte) {
	r.buf = append(r.buf, chunk...)
	if r.sync {
		return
	}
	if r.state == HeadersReceived {
		r.state = Loading
	}
	r.Handlers.run(ReadyStateChange, &Notification{Request: r})
	if r.stale(gen) {
		return
	}
	r.responseProgress(Progress)
}

func (r *Request) processDone(gen uint64) {
	if r.state != HeadersReceived && r.state != Loading && !r.sync {
		r.logger().Warn().
			Uint64("gen", gen).
			Stringer("state", r.state).
			Msg("Fetch completed without response headers")
		r.processErrored(gen, KindNetwork, errNoHeaders)
		return
	}

	r.manager().Cancel()
	r.handle = nil
	r.sending = false

	r.changeState(Done)
	if r.stale(gen) {
		return
	}
	r.responseProgress(Load)
	if r.stale(gen) {
		return
	}
	r.responseProgress(LoadEnd)
}

func (r *Request) processErrored(gen uint64, kind Kind, err error) {
	r.manager().Cancel()
	r.handle = nil
	r.errored = true
	r.sending = false
	r.status = 0
	r.statusText = ""
	if kind == KindNetwork {
		r.logger().Debug().Uint64("gen", gen).Err(err).Msg("Fetch failed")
	}

	r.changeState(Done)
	if r.stale(gen) {
		return
	}

	evt := kind.Event()
	if !r.uploadComplete {
		r.uploadComplete = true
		r.uploadProgress(evt, r.bodyLen)
		if r.stale(gen) {
			return
		}
		r.uploadProgress(LoadEnd, r.bodyLen)
		if r.stale(gen) {
			return
		}
	}
	r.responseProgress(evt)
	if r.stale(gen) {
		return
	}
	r.responseProgress(LoadEnd)
}

// uploadProgress notifies the upload target. The total is always the
// request body length.
func (r *Request) uploadProgress(evt Event, loaded uint64) {
	r.progressEvent(r.Upload, true, evt, loaded, r.bodyLen, true)
}

// responseProgress notifies the request target. Loaded is the size of
// the response received so far and the total comes from the
// Content-Length response header, if any.
func (r *Request) responseProgress(evt Event) {
	total, known := contentLength(r.responseHeader)
	r.progressEvent(r.Handlers, false, evt, uint64(len(r.buf)), total, known)
}

func (r *Request) progressEvent(g *HandlerGroup, upload bool, evt Event, loaded, total uint64, known bool) {
	if _, encoded := lookup(r.responseHeader, "Content-Encoding"); encoded {
		total, known = 0, false
	}
	if !known {
		total = 0
	}
	g.run(evt, &Notification{
		Request:          r,
		Upload:           upload,
		LengthComputable: known,
		Loaded:           loaded,
		Total:            total,
	})
}

// contentLength parses the Content-Length header of h.
func contentLength(h map[string][]string) (uint64, bool) {
	v, ok := lookup(h, "Content-Length")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(header.TrimHTTPWhitespace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// lookup returns the first value of the header named name, matched
// case-insensitively so that headers from fetch services which do not
// canonicalize keys are found.
func lookup(h map[string][]string, name string) (string, bool) {
	if vs, ok := h[name]; ok && len(vs) > 0 {
		return vs[0], true
	}
	for k, vs := range h {
		if len(vs) > 0 && strings.EqualFold(k, name) {
			return vs[0], true
		}
	}
	return "", false
}
