// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

import (
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"

	"github.com/gogama/xhr/charset"
	"github.com/gogama/xhr/document"
	"github.com/gogama/xhr/fetch"
	"github.com/gogama/xhr/fetch/httpfetch"
	"github.com/gogama/xhr/header"
	xlog "github.com/gogama/xhr/internal/log"
	"github.com/gogama/xhr/mimetype"
	"github.com/gogama/xhr/request"
	"github.com/gogama/xhr/timeout"
)

// MaxPreallocation is the largest response buffer capacity reserved in
// advance from a Content-Length response header. Larger bodies still
// load; the buffer just grows as chunks arrive.
const MaxPreallocation = 4 << 20

// A Request controls one logical HTTP exchange at a time, following the
// XMLHttpRequest contract: configure it with Open and the setters, start
// it with Send, observe it through handlers, and read the response with
// the getters. A Request can be reused: each Open starts a new
// generation, and anything still arriving for an older generation is
// dropped.
//
// All methods must be called on the owner context, the context of the
// Executor passed to New. A Request is not safe for concurrent use.
//
// The exported fields configure the Request and may be set before the
// first Open. Their zero values are valid: no handlers, the default
// fetch service and timer, no base URL, and a Window scope.
type Request struct {
	// Fetcher performs fetches. If nil, httpfetch.Default is used.
	Fetcher fetch.Service
	// Timer schedules request timeouts. If nil,
	// timeout.DefaultScheduler is used.
	Timer timeout.Scheduler
	// Base is the URL relative request URLs are resolved against. If
	// nil, Open only accepts absolute URLs.
	Base *url.URL
	// Scope is the kind of owner context.
	Scope Scope
	// Active reports whether the owner context is still active. If
	// nil, the owner is always active.
	Active func() bool
	// Referrer, ReferrerPolicy and Origin are copied to each request
	// descriptor.
	Referrer       *url.URL
	ReferrerPolicy string
	Origin         string
	// Parser parses response documents. If nil, document.DefaultParser
	// is used.
	Parser document.Parser
	// Handlers receives the notifications delivered to the request
	// target.
	Handlers *HandlerGroup
	// Upload receives the notifications delivered to the upload
	// target. Installing any upload handler before Send asks the fetch
	// service for a CORS preflight.
	Upload *HandlerGroup
	// Logger, if not nil, replaces the package's component logger.
	Logger *zerolog.Logger

	exec Executor
	log  *zerolog.Logger

	state State
	gen   uint64

	// Request configuration.
	method          string
	url             *url.URL
	requestHeader   http.Header
	sync            bool
	timeoutDur      time.Duration
	withCredentials bool
	responseType    ResponseType
	overrideMIME    *mimetype.MediaType
	overrideCharset encoding.Encoding

	// Send state.
	sending        bool
	uploadComplete bool
	bodyLen        uint64
	sendTime       time.Time
	handle         fetch.Handle
	timeouts       *timeout.Manager

	// Response state.
	errored        bool
	status         int
	statusText     string
	responseURL    string
	responseHeader http.Header
	buf            []byte
	cache          map[cacheKey]Response
}

// New returns a Request whose asynchronous events are posted to exec.
func New(exec Executor) *Request {
	if exec == nil {
		panic("xhr: nil executor")
	}
	return &Request{exec: exec}
}

// Open initializes the request with a method and URL. It is equivalent
// to OpenWithCredentials with nil user and password.
func (r *Request) Open(method, rawURL string, async bool) error {
	return r.OpenWithCredentials(method, rawURL, async, nil, nil)
}

// OpenWithCredentials initializes the request with a method, a URL and,
// if user is not nil and the URL has a host, the credentials to put in
// the URL. A nil password clears any password the URL carries.
//
// The method must be an HTTP token. Well-known methods are upper-cased;
// CONNECT, TRACE and TRACK are refused with KindSecurity. Relative URLs
// are resolved against Base.
//
// Any fetch in progress is cancelled without notifications and a new
// generation begins. Request headers, the response, and the status are
// reset, and the state becomes Opened.
func (r *Request) OpenWithCredentials(method, rawURL string, async bool, user, password *string) error {
	const op = "open"
	if r.Active != nil && !r.Active() {
		return newError(KindInvalidState, op, nil)
	}
	m, err := request.NormalizeMethod(method)
	if errors.Is(err, request.ErrForbiddenMethod) {
		return newError(KindSecurity, op, err)
	} else if err != nil {
		return newError(KindSyntax, op, err)
	}
	u, err := request.ResolveURL(r.Base, rawURL)
	if err != nil {
		return newError(KindSyntax, op, err)
	}
	if u.Host != "" && user != nil {
		if password != nil {
			u.User = url.UserPassword(*user, *password)
		} else {
			u.User = url.User(*user)
		}
	}
	if !async && (r.timeoutDur != 0 || r.responseType != Default) {
		return newError(KindInvalidAccess, op, nil)
	}

	r.terminate()
	r.method = m
	r.url = u
	r.sync = !async
	r.requestHeader = make(http.Header)
	r.sending = false
	r.status = 0
	r.statusText = ""
	r.logger().Debug().
		Uint64("gen", r.gen).
		Str("method", m).
		Str("url", u.Redacted()).
		Bool("async", async).
		Msg("Opened")

	if r.state != Opened {
		r.changeState(Opened)
	}
	return nil
}

// SetRequestHeader adds a request header. The value is trimmed of HTTP
// whitespace. If the header is already set, the new value is appended
// after a comma and a space. Forbidden header names such as Host or
// Cookie are accepted and ignored.
func (r *Request) SetRequestHeader(name, value string) error {
	const op = "setRequestHeader"
	if r.state != Opened || r.sending {
		return newError(KindInvalidState, op, nil)
	}
	value = header.TrimHTTPWhitespace(value)
	if !header.IsToken(name) || !header.IsFieldValue(value) {
		return newError(KindSyntax, op, nil)
	}
	if header.IsForbiddenName(name) {
		r.logger().Debug().Str("header", name).Msg("Ignored forbidden request header")
		return nil
	}
	if prev := r.requestHeader.Values(name); len(prev) > 0 {
		r.requestHeader.Set(name, prev[0]+", "+value)
	} else {
		r.requestHeader.Set(name, value)
	}
	return nil
}

// Abort cancels the request. If a send was in progress, the abort
// notifications are delivered and the state passes through Done. The
// state is then Unsent, unless a handler reopened the request. Abort
// is harmless in any state, and always starts a new generation.
func (r *Request) Abort() {
	r.terminate()
	r.logger().Debug().Uint64("gen", r.gen).Stringer("state", r.state).Msg("Aborted")
	if (r.state == Opened && r.sending) || r.state == HeadersReceived || r.state == Loading {
		gen := r.gen
		r.process(gen, progress{kind: progressErrored, errKind: KindAbort})
		if r.stale(gen) {
			return
		}
	}
	r.state = Unsent
}

// terminate cancels the fetch and timeout in progress, if any, and
// begins a new generation with an empty response.
func (r *Request) terminate() {
	if r.handle != nil {
		r.handle.Cancel()
		r.handle = nil
	}
	if r.timeouts != nil {
		r.timeouts.Cancel()
	}
	r.gen++
	r.errored = false
	r.buf = nil
	r.responseHeader = nil
	r.responseURL = ""
	r.cache = nil
}

// Timeout returns the request timeout. Zero means no timeout.
func (r *Request) Timeout() time.Duration {
	return r.timeoutDur
}

// SetTimeout sets the request timeout, measured from the start of Send.
// Zero, or a negative value, means no timeout. If a send is in
// progress, the running timeout is replaced, and fires at once if the
// new timeout has already elapsed.
//
// For a synchronous request in a Window scope, the timeout is still
// recorded but KindInvalidAccess is returned.
func (r *Request) SetTimeout(d time.Duration) error {
	if d < 0 {
		d = 0
	}
	if r.syncInWindow() {
		r.timeoutDur = d
		return newError(KindInvalidAccess, "setTimeout", nil)
	}
	r.timeoutDur = d
	if r.sending && !r.sync {
		if d == 0 {
			r.manager().Cancel()
		} else {
			elapsed := r.manager().Scheduler().Now().Sub(r.sendTime)
			remaining := d - elapsed
			if remaining < 0 {
				remaining = 0
			}
			r.scheduleTimeout(remaining)
		}
	}
	return nil
}

// WithCredentials reports whether cross-origin requests carry
// credentials.
func (r *Request) WithCredentials() bool {
	return r.withCredentials
}

// SetWithCredentials sets whether cross-origin requests carry
// credentials. It fails with KindInvalidState once headers have been
// received or while a send is in progress.
func (r *Request) SetWithCredentials(b bool) error {
	if (r.state != Unsent && r.state != Opened) || r.sending {
		return newError(KindInvalidState, "setWithCredentials", nil)
	}
	r.withCredentials = b
	return nil
}

// ResponseType returns the kind of response view Response produces.
func (r *Request) ResponseType() ResponseType {
	return r.responseType
}

// SetResponseType sets the kind of response view Response produces.
// Setting Document in a Worker scope is silently ignored.
func (r *Request) SetResponseType(t ResponseType) error {
	const op = "setResponseType"
	if r.Scope == Worker && t == Document {
		return nil
	}
	if r.state == Loading || r.state == Done {
		return newError(KindInvalidState, op, nil)
	}
	if r.syncInWindow() {
		return newError(KindInvalidAccess, op, nil)
	}
	r.responseType = t
	return nil
}

// OverrideMimeType makes the response be interpreted as having the
// given MIME type instead of the one from its Content-Type header. A
// charset parameter also overrides the response charset; an unknown
// charset label is ignored.
func (r *Request) OverrideMimeType(v string) error {
	const op = "overrideMimeType"
	if r.state == Loading || r.state == Done {
		return newError(KindInvalidState, op, nil)
	}
	mt, err := mimetype.Parse(v)
	if err != nil {
		return newError(KindSyntax, op, err)
	}
	r.overrideMIME = mt.WithoutParams()
	r.overrideCharset = nil
	if label, ok := mt.Charset(); ok {
		if e, ok := charset.Lookup(label); ok {
			r.overrideCharset = e
		}
	}
	return nil
}

// ReadyState returns the current state.
func (r *Request) ReadyState() State {
	return r.state
}

// Generation returns the current generation. It increases by one on
// every Open and every Abort.
func (r *Request) Generation() uint64 {
	return r.gen
}

// Status returns the HTTP status code, or 0 before headers arrive and
// after an error.
func (r *Request) Status() int {
	return r.status
}

// StatusText returns the HTTP reason phrase, for example "OK".
func (r *Request) StatusText() string {
	return r.statusText
}

// ResponseURL returns the final response URL, without any fragment, or
// the empty string before headers arrive.
func (r *Request) ResponseURL() string {
	return r.responseURL
}

// GetResponseHeader returns the values of all response headers named
// name, each trimmed and joined with a comma and a space. The name is
// matched case-insensitively. Set-Cookie and Set-Cookie2 are never
// returned.
func (r *Request) GetResponseHeader(name string) (string, bool) {
	h := header.Filter(r.responseHeader)
	keys := make([]string, 0, 1)
	for k := range h {
		if strings.EqualFold(k, name) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Strings(keys)
	var values []string
	for _, k := range keys {
		for _, v := range h[k] {
			values = append(values, header.TrimHTTPWhitespace(v))
		}
	}
	return strings.Join(values, ", "), true
}

// GetAllResponseHeaders returns every response header except
// Set-Cookie and Set-Cookie2 as "name: value\r\n" lines. Names are
// lower case and sorted; the values of a name are joined with a comma
// and a space.
func (r *Request) GetAllResponseHeaders() string {
	h := header.Filter(r.responseHeader)
	merged := make(map[string][]string, len(h))
	for k, vs := range h {
		lower := strings.ToLower(k)
		for _, v := range vs {
			merged[lower] = append(merged[lower], header.TrimHTTPWhitespace(v))
		}
	}
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(strings.Join(merged[name], ", "))
		b.WriteString("\r\n")
	}
	return b.String()
}

// changeState moves to a new state and notifies the request target.
func (r *Request) changeState(s State) {
	if s == r.state {
		panic("xhr: state unchanged: " + s.String())
	}
	r.state = s
	r.Handlers.run(ReadyStateChange, &Notification{Request: r})
}

func (r *Request) stale(gen uint64) bool {
	return r.gen != gen
}

func (r *Request) syncInWindow() bool {
	return r.sync && r.Scope == Window
}

func (r *Request) fetcher() fetch.Service {
	if r.Fetcher == nil {
		return httpfetch.Default
	}

	return r.Fetcher
}

func (r *Request) parser() document.Parser {
	if r.Parser == nil {
		return document.DefaultParser
	}

	return r.Parser
}

func (r *Request) manager() *timeout.Manager {
	if r.timeouts == nil {
		r.timeouts = timeout.NewManager(r.Timer)
	}
	return r.timeouts
}

func (r *Request) logger() *zerolog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	if r.log == nil {
		l := xlog.WithComponent("xhr")
		r.log = &l
	}
	return r.log
}
