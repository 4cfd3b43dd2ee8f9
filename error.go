// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

import "strconv"

// A Kind classifies an Error.
type Kind int

const (
	// KindInvalidState means a method was called in the wrong lifecycle
	// phase.
	KindInvalidState Kind = iota + 1
	// KindSyntax means a method, URL, header or MIME type value is
	// malformed.
	KindSyntax
	// KindSecurity means the method is not allowed.
	KindSecurity
	// KindInvalidAccess means a synchronous request in a Window scope
	// was combined with a timeout or a response type.
	KindInvalidAccess
	// KindNetwork means the fetch failed.
	KindNetwork
	// KindAbort means the request was aborted.
	KindAbort
	// KindTimeout means the request timed out.
	KindTimeout
)

var kindNames = map[Kind]string{
	KindInvalidState:  "InvalidStateError",
	KindSyntax:        "SyntaxError",
	KindSecurity:      "SecurityError",
	KindInvalidAccess: "InvalidAccessError",
	KindNetwork:       "NetworkError",
	KindAbort:         "AbortError",
	KindTimeout:       "TimeoutError",
}

// String returns the exception name of the kind, for example
// "InvalidStateError".
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Event returns the notification delivered when a fetch ends with an
// error of this kind. Only KindNetwork, KindAbort and KindTimeout have
// one; the other kinds return LoadEnd.
func (k Kind) Event() Event {
	switch k {
	case KindAbort:
		return Abort
	case KindTimeout:
		return Timeout
	case KindNetwork:
		return NetworkError
	}
	return LoadEnd
}

// An Error is returned by Request methods.
//
// Use errors.Is with one of the sentinel errors to test the kind:
//
//	if errors.Is(err, xhr.ErrSyntax) {
//		...
//	}
type Error struct {
	// Kind is the kind of failure.
	Kind Kind
	// Op is the operation which failed, for example "open".
	Op string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "xhr: "
	if e.Op != "" {
		msg += e.Op + ": "
	}
	msg += e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel errors for use with errors.Is.
var (
	ErrInvalidState  = &Error{Kind: KindInvalidState}
	ErrSyntax        = &Error{Kind: KindSyntax}
	ErrSecurity      = &Error{Kind: KindSecurity}
	ErrInvalidAccess = &Error{Kind: KindInvalidAccess}
	ErrNetwork       = &Error{Kind: KindNetwork}
	ErrAbort         = &Error{Kind: KindAbort}
	ErrTimeout       = &Error{Kind: KindTimeout}
)

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
