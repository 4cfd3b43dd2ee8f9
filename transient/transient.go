// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"io"
	"syscall"
)

// A Category is the transience category of a particular error, as
// reported by Categorize.
//
// Not means a retry after the error is very unlikely to succeed. Every
// other category means a retry has some prospect of success.
type Category int

const (
	// Not indicates any non-transient error, including a nil error and
	// a cancelled context.
	Not Category = iota
	// Timeout indicates a client-side timeout. The error or one of its
	// wrapped causes has a Timeout method that reports true.
	Timeout
	// ConnRefused indicates the remote host refused the connection
	// (syscall.ECONNREFUSED). A service that is restarting is briefly
	// not listening on its port.
	ConnRefused
	// ConnReset indicates the remote host sent an RST on a previously
	// active TCP connection (syscall.ECONNRESET).
	ConnReset
	// UnexpectedEOF indicates the connection closed before a complete
	// response arrived, which commonly happens when a server drops an
	// idle keep-alive connection just as it is reused.
	UnexpectedEOF
)

var categoryNames = []string{
	Not:           "not",
	Timeout:       "timeout",
	ConnRefused:   "conn_refused",
	ConnReset:     "conn_reset",
	UnexpectedEOF: "unexpected_eof",
}

// String returns a short snake_case name for the category, suitable as
// a metric label value.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Categorize returns the transience category of the given error,
// looking at wrapped causes as well as err itself. A cancelled context
// is never transient. Categorize never consults a Temporary method, as
// the semantics of Temporary aren't entirely clear.
func Categorize(err error) Category {
	if err == nil || errors.Is(err, context.Canceled) {
		return Not
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == syscall.ECONNRESET {
			return ConnReset
		} else if errno == syscall.ECONNREFUSED {
			return ConnRefused
		}
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return UnexpectedEOF
	}

	return Not
}

type hasTimeout interface {
	Timeout() bool
}
