// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"strings"

	"github.com/gogama/xhr/header"
)

var (
	template, _ = http.NewRequest("GET", "", nil)
)

var (
	// ErrInvalidMethod is returned by NormalizeMethod when the method
	// is not an HTTP token.
	ErrInvalidMethod = errors.New("xhr/request: invalid method")
	// ErrForbiddenMethod is returned by NormalizeMethod for CONNECT,
	// TRACE and TRACK.
	ErrForbiddenMethod = errors.New("xhr/request: forbidden method")
	// ErrRelativeURL is returned by ResolveURL when a relative URL is
	// given without a base URL to resolve it against.
	ErrRelativeURL = errors.New("xhr/request: relative URL without base")
)

// Credentials is the credentials mode of a request, which controls
// whether cookies and HTTP authentication are attached.
type Credentials int

const (
	// CredentialsSameOrigin attaches credentials only to same-origin
	// requests.
	CredentialsSameOrigin Credentials = iota
	// CredentialsInclude always attaches credentials.
	CredentialsInclude
	// CredentialsOmit never attaches credentials.
	CredentialsOmit
)

var credentialsNames = []string{
	CredentialsSameOrigin: "same-origin",
	CredentialsInclude:    "include",
	CredentialsOmit:       "omit",
}

// String returns the Fetch Standard name of the credentials mode.
func (c Credentials) String() string {
	if c < 0 || int(c) >= len(credentialsNames) {
		return fmt.Sprintf("Credentials(%d)", int(c))
	}
	return credentialsNames[c]
}

// Mode is the request mode. Requests made by the controller always use
// ModeCORS.
type Mode string

// ModeCORS is the request mode of controller requests.
const ModeCORS Mode = "cors"

// A Descriptor is the immutable description of one request handed to a
// fetch service. It mirrors the structure of the lower-level
// http.Request with the addition of the flags a fetch service needs to
// apply credentials and cross-origin policy.
//
// A Descriptor must not be modified after it has been submitted. Use
// Clone to derive a modified copy.
type Descriptor struct {
	// Method is the normalized HTTP method.
	Method string

	// URL is the absolute request URL. It may carry userinfo.
	URL *urlpkg.URL

	// Header contains the author request headers.
	Header http.Header

	// Body is the pre-buffered request body. A nil or empty body
	// indicates no request body should be sent.
	Body []byte

	// Credentials is the credentials mode.
	Credentials Credentials

	// UseURLCredentials indicates the URL's userinfo should be used
	// for HTTP authentication.
	UseURLCredentials bool

	// UseCORSPreflight indicates a CORS preflight request must be
	// made, which is the case when upload listeners are registered.
	UseCORSPreflight bool

	// Synchronous indicates the caller is blocked until the fetch
	// finishes.
	Synchronous bool

	// Mode is the request mode.
	Mode Mode

	// Referrer is the referrer URL, or nil for no referrer.
	Referrer *urlpkg.URL

	// ReferrerPolicy is the referrer policy token, or empty.
	ReferrerPolicy string

	// Origin is the serialized origin of the requesting context, or
	// empty.
	Origin string
}

// Clone returns a deep copy of d.
func (d *Descriptor) Clone() *Descriptor {
	d2 := new(Descriptor)
	*d2 = *d
	if d.URL != nil {
		u := *d.URL
		if d.URL.User != nil {
			user := *d.URL.User
			u.User = &user
		}
		d2.URL = &u
	}
	d2.Header = d.Header.Clone()
	if d.Body != nil {
		d2.Body = append([]byte(nil), d.Body...)
	}
	if d.Referrer != nil {
		r := *d.Referrer
		d2.Referrer = &r
	}
	return d2
}

// ToRequest creates an HTTP request corresponding to the descriptor. The
// context of the new request is set to ctx, which may not be nil.
//
// The URL fragment is never sent. URL userinfo is only kept when
// UseURLCredentials is set and the credentials mode is not
// CredentialsOmit. A Referer header is added from Referrer and an
// Origin header from Origin for methods other than GET and HEAD.
func (d *Descriptor) ToRequest(ctx context.Context) *http.Request {
	r := template.WithContext(ctx)
	r.Method = d.Method
	u := *d.URL
	u.Fragment = ""
	u.RawFragment = ""
	if !d.UseURLCredentials || d.Credentials == CredentialsOmit {
		u.User = nil
	}
	r.URL = &u
	r.Host = removeEmptyPort(u.Host)
	r.Header = d.Header.Clone()
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	if d.Referrer != nil {
		r.Header.Set("Referer", d.Referrer.String())
	}
	if d.Origin != "" && d.Method != http.MethodGet && d.Method != http.MethodHead {
		r.Header.Set("Origin", d.Origin)
	}
	if len(d.Body) > 0 {
		body := d.Body
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		r.ContentLength = int64(len(body))
	}
	return r
}

var knownMethods = map[string]bool{
	"DELETE":  true,
	"GET":     true,
	"HEAD":    true,
	"OPTIONS": true,
	"POST":    true,
	"PUT":     true,
	"CONNECT": true,
	"TRACE":   true,
	"TRACK":   true,
}

// NormalizeMethod validates method and normalizes it. Methods which
// case-insensitively match a well-known method are upper-cased; any
// other token is returned unchanged. CONNECT, TRACE and TRACK yield
// ErrForbiddenMethod and non-tokens yield ErrInvalidMethod.
func NormalizeMethod(method string) (string, error) {
	if !header.IsToken(method) {
		return "", fmt.Errorf("%w %q", ErrInvalidMethod, method)
	}
	upper := strings.ToUpper(method)
	if !knownMethods[upper] {
		return method, nil
	}
	switch upper {
	case "CONNECT", "TRACE", "TRACK":
		return "", fmt.Errorf("%w %q", ErrForbiddenMethod, upper)
	}
	return upper, nil
}

// ResolveURL parses raw and resolves it against base. If base is nil,
// raw must be an absolute URL.
func ResolveURL(base *urlpkg.URL, raw string) (*urlpkg.URL, error) {
	u, err := urlpkg.Parse(raw)
	if err != nil {
		return nil, err
	}
	if base != nil {
		u = base.ResolveReference(u)
	} else if !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q", ErrRelativeURL, raw)
	}
	u.Host = removeEmptyPort(u.Host)
	return u, nil
}

// hasPort is lifted verbatim from net/http/http.go
//
// Given a string of the form "host", "host:port", or "[ipv6::address]:port",
// return true if the string includes a port.
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort is lifted verbatim from net/http/http.go
//
// removeEmptyPort strips the empty port in ":port" to ""
// as mandated by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
