// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package httpfetch implements fetch.Service on top of net/http.
//
// Each submission runs on its own goroutine. The response body is
// streamed to the listener in chunks as it is read, optionally paced by
// a token bucket. Failed transport attempts may be retried under a
// retry.Policy, but only before any response headers have been handed
// to the listener.
package httpfetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/gogama/xhr/fetch"
	xlog "github.com/gogama/xhr/internal/log"
	"github.com/gogama/xhr/request"
	"github.com/gogama/xhr/retry"
	"github.com/gogama/xhr/timeout"
)

// DefaultChunkSize is the read buffer size used when ChunkSize is zero.
const DefaultChunkSize = 32 * 1024

// An HTTPDoer implements a Do method in the same manner as the Go
// standard library http.Client from the net/http package.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response following
	// policy (such as redirects, cookies, auth) configured on the
	// HTTPDoer.
	Do(r *http.Request) (*http.Response, error)
}

// Default is the Service used when a request controller has no fetch
// service configured.
var Default = &Service{}

// A Service fetches request descriptors with an HTTPDoer. Its zero value
// is a valid configuration.
//
// The zero value uses http.DefaultClient, never retries, never times out
// individual attempts, does not limit bandwidth and records no metrics.
type Service struct {
	// HTTPDoer sends requests. If nil, http.DefaultClient is used.
	HTTPDoer HTTPDoer
	// RetryPolicy decides whether to repeat a failed attempt made
	// before headers were delivered. If nil, retry.Never is used.
	RetryPolicy retry.Policy
	// TimeoutPolicy sets the timeout of each attempt, covering the
	// whole attempt including the body. If nil, timeout.Infinite is
	// used.
	TimeoutPolicy timeout.Policy
	// Limiter, if not nil, paces delivery of body bytes. One token is
	// one byte.
	Limiter *rate.Limiter
	// ChunkSize is the maximum size of each chunk passed to OnChunk.
	// If zero, DefaultChunkSize is used.
	ChunkSize int
	// Metrics, if not nil, receives fetch and attempt measurements.
	Metrics *Metrics
	// Logger, if not nil, replaces the package's component logger.
	Logger *zerolog.Logger
}

// A Handle refers to one submitted fetch.
type Handle struct {
	// ID uniquely identifies the fetch in log entries.
	ID string

	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the fetch. Nothing further is delivered to the listener
// once the cancellation has been observed.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done returns a channel that is closed when the fetch goroutine has
// exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Submit implements fetch.Service. It returns a *Handle.
func (s *Service) Submit(d *request.Descriptor, l fetch.Listener) fetch.Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		ID:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx, h, d, l)
	return h
}

func (s *Service) run(ctx context.Context, h *Handle, d *request.Descriptor, l fetch.Listener) {
	defer close(h.done)
	defer h.cancel()

	logger := s.logger().With().
		Str("fetch_id", h.ID).
		Str("method", d.Method).
		Str("url", d.URL.Redacted()).
		Logger()

	e := &request.Execution{Descriptor: d, Start: time.Now()}
	s.Metrics.start()
	outcome := "cancelled"
	defer func() {
		e.End = time.Now()
		s.Metrics.finish(outcome, e.Duration())
		logger.Debug().
			Str("outcome", outcome).
			Int("attempts", e.Attempt+1).
			Dur("duration", e.Duration()).
			Msg("fetch finished")
	}()

	doer := s.doer()
	retryPolicy := s.RetryPolicy
	if retryPolicy == nil {
		retryPolicy = retry.Never
	}
	timeoutPolicy := s.TimeoutPolicy
	if timeoutPolicy == nil {
		timeoutPolicy = timeout.Infinite
	}

	var attemptCancel context.CancelFunc
	for {
		var attemptCtx context.Context
		attemptCtx, attemptCancel = context.WithTimeout(ctx, timeoutPolicy.Timeout(e))
		e.Request = d.ToRequest(attemptCtx)
		logger.Debug().Int("attempt", e.Attempt).Msg("attempt started")
		resp, err := doer.Do(e.Request)
		e.Response = resp
		e.Err = nil
		if err != nil {
			e.Err = urlErrorWrap(d, err)
		}
		if ctx.Err() != nil {
			closeBody(resp)
			attemptCancel()
			return
		}
		s.Metrics.attempt(e.Err)
		if e.Timeout() {
			e.AttemptTimeouts++
		}
		if !retryPolicy.Decide(e) {
			break
		}
		closeBody(resp)
		attemptCancel()
		wait := retryPolicy.Wait(e)
		logger.Info().
			Int("attempt", e.Attempt).
			Int("status", e.StatusCode()).
			Err(e.Err).
			Dur("wait", wait).
			Msg("retrying attempt")
		s.Metrics.retry()
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
		e.Response = nil
		e.Err = nil
		e.Attempt++
	}
	defer attemptCancel()

	if e.Err != nil {
		outcome = "error"
		logger.Debug().Err(e.Err).Msg("network error")
		l.OnComplete(e.Err)
		return
	}

	resp := e.Response
	defer closeBody(resp)
	l.OnHeaders(metadata(d, resp))

	if err := s.stream(ctx, resp.Body, l); err != nil {
		if ctx.Err() != nil {
			return
		}
		e.Err = urlErrorWrap(d, err)
		outcome = "error"
		logger.Debug().Err(e.Err).Msg("body read failed")
		l.OnComplete(e.Err)
		return
	}
	outcome = "ok"
	l.OnComplete(nil)
}

// stream copies body to the listener. It returns nil at end of body.
func (s *Service) stream(ctx context.Context, body io.Reader, l fetch.Listener) error {
	size := s.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	buf := make([]byte, size)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if werr := s.wait(ctx, n); werr != nil {
				return werr
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.OnChunk(buf[:n])
			s.Metrics.bytes(n)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// wait takes n tokens from the limiter in pieces no larger than its
// burst, since WaitN rejects requests above the burst size.
func (s *Service) wait(ctx context.Context, n int) error {
	lim := s.Limiter
	if lim == nil || lim.Limit() == rate.Inf {
		return nil
	}
	burst := lim.Burst()
	if burst <= 0 {
		return lim.WaitN(ctx, n)
	}
	for n > 0 {
		k := n
		if k > burst {
			k = burst
		}
		if err := lim.WaitN(ctx, k); err != nil {
			return err
		}
		n -= k
	}
	return nil
}

func metadata(d *request.Descriptor, resp *http.Response) *fetch.Metadata {
	u := d.URL
	if resp.Request != nil && resp.Request.URL != nil {
		u = resp.Request.URL
	}
	return &fetch.Metadata{
		URL:        u,
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
		Header:     resp.Header,
	}
}

// statusText strips the numeric code net/http puts in front of the
// reason phrase.
func statusText(resp *http.Response) string {
	return strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" ")
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}
}

func (s *Service) doer() HTTPDoer {
	if s.HTTPDoer == nil {
		return http.DefaultClient
	}

	return s.HTTPDoer
}

func (s *Service) logger() *zerolog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	l := xlog.WithComponent("httpfetch")
	return &l
}

func urlErrorWrap(d *request.Descriptor, err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return err
	}

	return &url.Error{
		Op:  urlErrorOp(d.Method),
		URL: d.URL.Redacted(),
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
