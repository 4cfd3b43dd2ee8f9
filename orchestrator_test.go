// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

import (
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogama/xhr/blob"
	"github.com/gogama/xhr/fetch/fetchtest"
	"github.com/gogama/xhr/request"
)

func TestRequest_Send(t *testing.T) {
	t.Run("end to end", testSendEndToEnd)
	t.Run("precondition", testSendPrecondition)
	t.Run("body ignored for GET and HEAD", testSendBodyIgnored)
	t.Run("bad body", testSendBadBody)
	t.Run("empty body", testSendEmptyBody)
	t.Run("upload", testSendUpload)
	t.Run("descriptor", testSendDescriptor)
	t.Run("content type", testSendContentType)
	t.Run("abort in loadstart", testSendAbortInLoadStart)
	t.Run("stale generation", testSendStaleGeneration)
}

func testSendEndToEnd(t *testing.T) {
	r, loop, svc, _ := newTestRequest()
	rec := record(r)
	require.NoError(t, r.Open("GET", "https://example.test/a", true))
	require.NoError(t, r.Send(nil))
	assert.Equal(t, []string{"readystatechange:OPENED", "loadstart"}, rec.events)
	require.Equal(t, 1, svc.Len())

	svc.Last().Respond(200, http.Header{}, "hello")
	assert.Equal(t, Opened, r.ReadyState(), "events wait for the owner context")
	loop.RunPending()

	assert.Equal(t, Done, r.ReadyState())
	text, err := r.ResponseText()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, 1, rec.count(Load))
	assert.Equal(t, 1, rec.count(LoadEnd))
	assert.Equal(t, 0, rec.count(NetworkError))
	assert.Equal(t, []string{
		"readystatechange:OPENED",
		"loadstart",
		"readystatechange:HEADERS_RECEIVED",
		"readystatechange:LOADING",
		"progress",
		"readystatechange:DONE",
		"load",
		"loadend",
	}, rec.events)
	assert.Equal(t, []string{"progress", "load", "loadend"}, rec.upload)
	assert.Equal(t, "https://example.test/a", r.ResponseURL())
	assert.False(t, r.sending)
}

func testSendPrecondition(t *testing.T) {
	r, _, _, _ := newTestRequest()
	assert.True(t, errors.Is(r.Send(nil), ErrInvalidState))
	require.NoError(t, r.Open("GET", "https://example.test/", true))
	require.NoError(t, r.Send(nil))
	assert.True(t, errors.Is(r.Send(nil), ErrInvalidState))
}

func testSendBodyIgnored(t *testing.T) {
	for _, method := range []string{"GET", "HEAD"} {
		t.Run(method, func(t *testing.T) {
			r, _, svc, _ := newTestRequest()
			rec := record(r)
			require.NoError(t, r.Open(method, "https://example.test/", true))
			require.NoError(t, r.Send("ignored"))
			d := svc.Last().Descriptor
			assert.Nil(t, d.Body)
			assert.Empty(t, d.Header.Get("Content-Type"))
			assert.Empty(t, rec.upload)
			assert.True(t, r.uploadComplete)
		})
	}
}

func testSendBadBody(t *testing.T) {
	r, _, svc, _ := newTestRequest()
	require.NoError(t, r.Open("POST", "https://example.test/", true))
	err := r.Send(42)
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.True(t, errors.Is(err, request.ErrBodyType))
	assert.Equal(t, 0, svc.Len())
	assert.False(t, r.sending)
}

func testSendEmptyBody(t *testing.T) {
	r, _, svc, _ := newTestRequest()
	rec := record(r)
	var atSubmit bool
	svc.Auto = func(s *fetchtest.Submission) {
		atSubmit = r.uploadComplete
	}
	require.NoError(t, r.Open("POST", "https://example.test/", true))
	require.NoError(t, r.Send([]byte{}))
	assert.True(t, atSubmit)
	assert.Empty(t, rec.upload, "no upload loadstart for an empty body")
	assert.Equal(t, uint64(0), r.bodyLen)
}

func testSendUpload(t *testing.T) {
	r, loop, svc, _ := newTestRequest()
	rec := record(r)
	var uploads []Notification
	r.Upload.PushBack(LoadStart, HandlerFunc(func(_ Event, n *Notification) { uploads = append(uploads, *n) }))
	r.Upload.PushBack(Load, HandlerFunc(func(_ Event, n *Notification) { uploads = append(uploads, *n) }))
	require.NoError(t, r.Open("POST", "https://example.test/", true))
	require.NoError(t, r.Send("abc"))
	assert.Equal(t, []string{"loadstart"}, rec.upload)
	assert.False(t, r.uploadComplete)

	svc.Last().Respond(201, nil)
	loop.RunPending()
	assert.Equal(t, []string{"loadstart", "progress", "load", "loadend"}, rec.upload)
	require.Len(t, uploads, 2)
	assert.Equal(t, Notification{Request: r, Upload: true, LengthComputable: true, Loaded: 0, Total: 3}, uploads[0])
	assert.Equal(t, Notification{Request: r, Upload: true, LengthComputable: true, Loaded: 3, Total: 3}, uploads[1])
	assert.Equal(t, 201, r.Status())
	assert.Equal(t, "Created", r.StatusText())
}

func testSendDescriptor(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		r, _, svc, _ := newTestRequest()
		require.NoError(t, r.Open("PUT", "https://example.test/x", true))
		require.NoError(t, r.Send([]byte("data")))
		d := svc.Last().Descriptor
		assert.Equal(t, "PUT", d.Method)
		assert.Equal(t, "https://example.test/x", d.URL.String())
		assert.Equal(t, []byte("data"), d.Body)
		assert.Equal(t, request.CredentialsSameOrigin, d.Credentials)
		assert.False(t, d.UseURLCredentials)
		assert.False(t, d.UseCORSPreflight)
		assert.False(t, d.Synchronous)
		assert.Equal(t, request.ModeCORS, d.Mode)
		assert.Empty(t, d.Header.Get("Content-Type"))
	})
	t.Run("configured", func(t *testing.T) {
		r, _, svc, _ := newTestRequest()
		ref, _ := url.Parse("https://example.test/page")
		r.Referrer = ref
		r.ReferrerPolicy = "no-referrer-when-downgrade"
		r.Origin = "https://example.test"
		r.Upload = &HandlerGroup{}
		r.Upload.PushBack(Progress, HandlerFunc(func(Event, *Notification) {}))
		require.NoError(t, r.SetWithCredentials(true))
		user, pass := "u", "p"
		require.NoError(t, r.OpenWithCredentials("POST", "https://example.test/x", true, &user, &pass))
		require.NoError(t, r.Send(nil))
		d := svc.Last().Descriptor
		assert.Equal(t, request.CredentialsInclude, d.Credentials)
		assert.True(t, d.UseURLCredentials)
		assert.True(t, d.UseCORSPreflight)
		assert.Equal(t, ref.String(), d.Referrer.String())
		assert.Equal(t, "no-referrer-when-downgrade", d.ReferrerPolicy)
		assert.Equal(t, "https://example.test", d.Origin)
		assert.NotSame(t, r.url, d.URL)
	})
}

func testSendContentType(t *testing.T) {
	testCases := []struct {
		name   string
		header string
		body   interface{}
		want   string
	}{
		{"string default", "", "x", "text/plain;charset=UTF-8"},
		{"form default", "", url.Values{"a": {"b"}}, "application/x-www-form-urlencoded;charset=UTF-8"},
		{"blob default", "", blob.New([]byte("x"), "image/png"), "image/png"},
		{"bytes none", "", []byte("x"), ""},
		{"author kept", "application/json", "{}", "application/json"},
		{"charset rewritten", "text/plain;charset=latin1;format=flowed", "x", "text/plain;charset=UTF-8;format=flowed"},
		{"charset case", "text/plain;charset=utf-8", "x", "text/plain;charset=utf-8"},
		{"charset kept for bytes", "text/plain;charset=latin1", []byte("x"), "text/plain;charset=latin1"},
		{"unparseable kept", "garbage", "x", "garbage"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			r, _, svc, _ := newTestRequest()
			require.NoError(t, r.Open("POST", "https://example.test/", true))
			if testCase.header != "" {
				require.NoError(t, r.SetRequestHeader("Content-Type", testCase.header))
			}
			require.NoError(t, r.Send(testCase.body))
			assert.Equal(t, testCase.want, svc.Last().Descriptor.Header.Get("Content-Type"))
			if testCase.header != "" {
				assert.Equal(t, testCase.header, r.requestHeader.Get("Content-Type"), "author headers are not modified")
			}
		})
	}
}

func testSendAbortInLoadStart(t *testing.T) {
	r, _, svc, _ := newTestRequest()
	rec := record(r)
	r.Handlers.PushBack(LoadStart, HandlerFunc(func(_ Event, n *Notification) {
		n.Request.Abort()
	}))
	require.NoError(t, r.Open("POST", "https://example.test/", true))
	require.NoError(t, r.Send("abc"))
	assert.Equal(t, 0, svc.Len(), "nothing is submitted once the generation moved on")
	assert.Equal(t, Unsent, r.ReadyState())
	assert.Equal(t, []string{"readystatechange:OPENED", "loadstart", "readystatechange:DONE", "abort", "loadend"}, rec.events)
	assert.Equal(t, []string{"abort", "loadend"}, rec.upload)
}

func testSendStaleGeneration(t *testing.T) {
	r, loop, svc, _ := newTestRequest()
	require.NoError(t, r.Open("GET", "https://example.test/1", true))
	require.NoError(t, r.Send(nil))
	first := svc.Last()
	require.NoError(t, r.Open("GET", "https://example.test/2", true))
	require.NoError(t, r.Send(nil))
	second := svc.Last()
	rec := record(r)

	first.Respond(500, http.Header{"X-First": {"1"}}, "stale")
	loop.RunPending()
	assert.Empty(t, rec.events)
	assert.Empty(t, rec.upload)
	assert.Equal(t, Opened, r.ReadyState())
	assert.Equal(t, 0, r.Status())
	assert.Nil(t, r.buf)

	second.Respond(200, nil, "fresh")
	loop.RunPending()
	assert.Equal(t, Done, r.ReadyState())
	text, _ := r.ResponseText()
	assert.Equal(t, "fresh", text)
	_, ok := r.GetResponseHeader("X-First")
	assert.False(t, ok)
}

func TestRequest_SendSync(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		r, loop, svc, _ := newTestRequest()
		rec := record(r)
		svc.Auto = func(s *fetchtest.Submission) {
			s.Respond(200, http.Header{"Content-Type": {"text/plain"}}, "hel", "lo")
		}
		require.NoError(t, r.Open("GET", "https://example.test/", false))
		require.NoError(t, r.Send(nil))
		assert.True(t, svc.Last().Descriptor.Synchronous)
		assert.Equal(t, Done, r.ReadyState())
		text, _ := r.ResponseText()
		assert.Equal(t, "hello", text)
		assert.Equal(t, []string{"readystatechange:OPENED", "readystatechange:DONE", "load", "loadend"}, rec.events)
		assert.Empty(t, rec.upload)
		assert.Equal(t, 0, loop.Len(), "synchronous events never reach the owner loop")
	})
	t.Run("network error", func(t *testing.T) {
		r, _, svc, _ := newTestRequest()
		rec := record(r)
		cause := errors.New("connection refused")
		svc.Auto = func(s *fetchtest.Submission) {
			s.Complete(cause)
		}
		require.NoError(t, r.Open("POST", "https://example.test/", false))
		err := r.Send("abc")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNetwork))
		assert.True(t, errors.Is(err, cause))
		assert.Equal(t, Done, r.ReadyState())
		assert.Equal(t, []string{"readystatechange:OPENED", "readystatechange:DONE", "error", "loadend"}, rec.events)
		assert.Equal(t, []string{"error", "loadend"}, rec.upload)
	})
	t.Run("from another goroutine", func(t *testing.T) {
		r, _, svc, _ := newTestRequest()
		svc.Auto = func(s *fetchtest.Submission) {
			go s.Respond(204, nil)
		}
		require.NoError(t, r.Open("DELETE", "https://example.test/", false))
		require.NoError(t, r.Send(nil))
		assert.Equal(t, 204, r.Status())
		assert.Equal(t, Done, r.ReadyState())
	})
}

func TestRequest_Timeout(t *testing.T) {
	t.Run("fires", func(t *testing.T) {
		r, loop, svc, timer := newTestRequest()
		rec := record(r)
		require.NoError(t, r.SetTimeout(time.Second))
		require.NoError(t, r.Open("GET", "https://example.test/", true))
		require.NoError(t, r.Send(nil))
		assert.Equal(t, 1, timer.Pending())

		timer.Advance(999 * time.Millisecond)
		assert.Equal(t, 0, loop.RunPending())
		timer.Advance(time.Millisecond)
		assert.Equal(t, 1, loop.RunPending())
		assert.Equal(t, Done, r.ReadyState())
		assert.True(t, svc.Last().Cancelled())
		assert.Equal(t, []string{"readystatechange:OPENED", "loadstart", "readystatechange:DONE", "timeout", "loadend"}, rec.events)

		svc.Last().Respond(200, nil, "late")
		loop.RunPending()
		assert.Equal(t, 0, rec.count(Load))
		text, _ := r.ResponseText()
		assert.Equal(t, "", text)
	})
	t.Run("cancelled on completion", func(t *testing.T) {
		r, loop, svc, timer := newTestRequest()
		require.NoError(t, r.SetTimeout(time.Second))
		require.NoError(t, r.Open("GET", "https://example.test/", true))
		require.NoError(t, r.Send(nil))
		svc.Last().Respond(200, nil)
		loop.RunPending()
		assert.Equal(t, 0, timer.Pending())
	})
	t.Run("cancelled on abort", func(t *testing.T) {
		r, _, _, timer := newTestRequest()
		require.NoError(t, r.SetTimeout(time.Second))
		require.NoError(t, r.Open("GET", "https://example.test/", true))
		require.NoError(t, r.Send(nil))
		r.Abort()
		assert.Equal(t, 0, timer.Pending())
	})
	t.Run("reschedule", func(t *testing.T) {
		r, loop, _, timer := newTestRequest()
		require.NoError(t, r.SetTimeout(time.Second))
		require.NoError(t, r.Open("GET", "https://example.test/", true))
		require.NoError(t, r.Send(nil))
		timer.Advance(500 * time.Millisecond)
		require.NoError(t, r.SetTimeout(2*time.Second))
		assert.Equal(t, 1, timer.Pending())
		timer.Advance(1499 * time.Millisecond)
		assert.Equal(t, 0, loop.RunPending())
		timer.Advance(time.Millisecond)
		assert.Equal(t, 1, loop.RunPending())
		assert.Equal(t, Done, r.ReadyState())
	})
	t.Run("overdue", func(t *testing.T) {
		r, loop, _, timer := newTestRequest()
		require.NoError(t, r.Open("GET", "https://example.test/", true))
		require.NoError(t, r.Send(nil))
		timer.Advance(500 * time.Millisecond)
		require.NoError(t, r.SetTimeout(300*time.Millisecond))
		timer.Advance(0)
		assert.Equal(t, 1, loop.RunPending())
		assert.Equal(t, Done, r.ReadyState())
	})
	t.Run("zero cancels", func(t *testing.T) {
		r, loop, _, timer := newTestRequest()
		require.NoError(t, r.SetTimeout(time.Second))
		require.NoError(t, r.Open("GET", "https://example.test/", true))
		require.NoError(t, r.Send(nil))
		require.NoError(t, r.SetTimeout(0))
		assert.Equal(t, 0, timer.Pending())
		timer.Advance(time.Hour)
		assert.Equal(t, 0, loop.RunPending())
		assert.Equal(t, Opened, r.ReadyState())
	})
	t.Run("stale timer", func(t *testing.T) {
		r, loop, _, _ := newTestRequest()
		require.NoError(t, r.Open("GET", "https://example.test/", true))
		require.NoError(t, r.Send(nil))
		gen := r.Generation()
		require.NoError(t, r.Open("GET", "https://example.test/", true))
		r.onTimeout(gen)
		assert.Equal(t, 0, loop.Len())
		assert.Equal(t, Opened, r.ReadyState())
	})
}
