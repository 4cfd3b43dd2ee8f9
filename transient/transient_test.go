// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, Not},
		{"plain", errors.New("foo"), Not},
		{"empty wrapper", wrapper{}, Not},
		{"wrapped plain", wrapper{errors.New("bar")}, Not},
		{"canceled", &url.Error{Op: "Get", Err: context.Canceled}, Not},
		{"ETIMEDOUT", syscall.ETIMEDOUT, Timeout},
		{"timeout type", timeout{}, Timeout},
		{"url.Error timeout", &url.Error{Err: syscall.ETIMEDOUT}, Timeout},
		{"deadline", context.DeadlineExceeded, Timeout},
		{"nested timeout", wrapper{wrapper{timeout{}}}, Timeout},
		{"timeout beats reset", timeoutWrapper{true, syscall.ECONNRESET}, Timeout},
		{"ECONNRESET", syscall.ECONNRESET, ConnReset},
		{"non-timeout reset", timeoutWrapper{false, syscall.ECONNRESET}, ConnReset},
		{"ECONNREFUSED", wrapper{syscall.ECONNREFUSED}, ConnRefused},
		{"url.Error refused", &url.Error{Err: wrapper{timeoutWrapper{false, syscall.ECONNREFUSED}}}, ConnRefused},
		{"unexpected EOF", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), UnexpectedEOF},
		{"EOF", &url.Error{Op: "Post", Err: io.EOF}, UnexpectedEOF},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, Categorize(testCase.err))
		})
	}
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "not", Not.String())
	assert.Equal(t, "timeout", Timeout.String())
	assert.Equal(t, "conn_refused", ConnRefused.String())
	assert.Equal(t, "conn_reset", ConnReset.String())
	assert.Equal(t, "unexpected_eof", UnexpectedEOF.String())
	assert.Equal(t, "unknown", Category(-1).String())
}

type timeout struct{}

func (err timeout) Error() string {
	return "timeout"
}

func (timeout) Timeout() bool {
	return true
}

type wrapper struct {
	wrappedError error
}

func (err wrapper) Error() string {
	return fmt.Sprintf("wrapper - wraps %v", err.wrappedError)
}

func (err wrapper) Unwrap() error {
	return err.wrappedError
}

type timeoutWrapper struct {
	timeout      bool
	wrappedError error
}

func (err timeoutWrapper) Error() string {
	return fmt.Sprintf("timeoutWrapper - timeout %t, wraps %v", err.timeout, err.wrappedError)
}

func (err timeoutWrapper) Timeout() bool {
	return err.timeout
}

func (err timeoutWrapper) Unwrap() error {
	return err.wrappedError
}
