// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package header implements the header name and value grammar checks
// applied to author-supplied request headers, the list of forbidden
// request header names, and filtering of response headers that must not
// be exposed to the author.
package header

import (
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// IsToken reports whether s is a non-empty HTTP token, i.e. a sequence
// of visible US-ASCII characters excluding separators, as defined in
// RFC 2616 section 2.2 (and RFC 7230 section 3.2.6).
func IsToken(s string) bool {
	return httpguts.ValidHeaderFieldName(s)
}

// prev classifies the previous byte seen by IsFieldValue for the
// purposes of the [CRLF] 1*(SP|HT) folding rule.
type prev int

const (
	other prev = iota
	cr
	lf
	spht
)

// IsFieldValue reports whether v is a field-value as defined by RFC 2616
// section 4.2. Control characters (0-31 and 127) and non-ASCII bytes are
// rejected, except that a CRLF pair is permitted when it is immediately
// followed by at least one SP or HT (a folded continuation line).
//
// A CR is only accepted after an ordinary byte or an SP/HT run, an LF
// only directly after a CR, and an HT only as part of a folding run.
func IsFieldValue(v string) bool {
	p := other
	for i := 0; i < len(v); i++ {
		b := v[i]
		switch {
		case b == '\r':
			if p != other && p != spht {
				return false
			}
			p = cr
		case b == '\n':
			if p != cr {
				return false
			}
			p = lf
		case b == ' ':
			switch p {
			case lf, spht:
				p = spht
			case other:
				// A plain space is not part of a fold.
			default:
				return false
			}
		case b == '\t':
			if p != lf && p != spht {
				return false
			}
			p = spht
		case b < 32 || b == 127:
			return false
		case b > 127:
			return false
		default:
			if p != other && p != spht {
				return false
			}
			p = other
		}
	}
	return true
}

// TrimHTTPWhitespace removes leading and trailing HTTP whitespace bytes
// (SP, HT, CR and LF) from s.
func TrimHTTPWhitespace(s string) string {
	return strings.Trim(s, " \t\r\n")
}

var forbidden = map[string]bool{
	"accept-charset":                 true,
	"accept-encoding":                true,
	"access-control-request-headers": true,
	"access-control-request-method":  true,
	"connection":                     true,
	"content-length":                 true,
	"cookie":                         true,
	"cookie2":                        true,
	"date":                           true,
	"dnt":                            true,
	"expect":                         true,
	"host":                           true,
	"keep-alive":                     true,
	"origin":                         true,
	"referer":                        true,
	"te":                             true,
	"trailer":                        true,
	"transfer-encoding":              true,
	"upgrade":                        true,
	"via":                            true,
}

// IsForbiddenName reports whether name is a forbidden request header
// name. Authors may not set forbidden headers; attempts to do so are
// silently ignored by the request controller.
//
// The comparison is case-insensitive. Any name starting with "Proxy-" or
// "Sec-" is forbidden.
func IsForbiddenName(name string) bool {
	lower := strings.ToLower(name)
	if forbidden[lower] {
		return true
	}
	return strings.HasPrefix(lower, "proxy-") || strings.HasPrefix(lower, "sec-")
}

// Filter returns a copy of h without the headers authors may never read
// from a response, namely Set-Cookie and Set-Cookie2.
func Filter(h http.Header) http.Header {
	f := h.Clone()
	if f == nil {
		return http.Header{}
	}
	for k := range f {
		switch strings.ToLower(k) {
		case "set-cookie", "set-cookie2":
			delete(f, k)
		}
	}
	return f
}
