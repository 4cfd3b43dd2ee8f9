// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMethod(t *testing.T) {
	testCases := []struct {
		in   string
		want string
		err  error
	}{
		{"get", "GET", nil},
		{"Post", "POST", nil},
		{"options", "OPTIONS", nil},
		{"patch", "patch", nil},
		{"PROPFIND", "PROPFIND", nil},
		{"connect", "", ErrForbiddenMethod},
		{"TRACE", "", ErrForbiddenMethod},
		{"track", "", ErrForbiddenMethod},
		{"", "", ErrInvalidMethod},
		{"GE T", "", ErrInvalidMethod},
		{"GET\n", "", ErrInvalidMethod},
	}
	for _, testCase := range testCases {
		t.Run(testCase.in, func(t *testing.T) {
			m, err := NormalizeMethod(testCase.in)
			if testCase.err != nil {
				assert.ErrorIs(t, err, testCase.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.want, m)
		})
	}
}

func TestResolveURL(t *testing.T) {
	base, err := url.Parse("https://example.com/dir/page.html")
	require.NoError(t, err)

	u, err := ResolveURL(base, "other?q=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/dir/other?q=1#frag", u.String())

	u, err = ResolveURL(nil, "http://foo.com:/x")
	require.NoError(t, err)
	assert.Equal(t, "foo.com", u.Host)

	_, err = ResolveURL(nil, "/relative")
	assert.ErrorIs(t, err, ErrRelativeURL)

	_, err = ResolveURL(base, "http://[::1")
	assert.Error(t, err)
}

func TestCredentials_String(t *testing.T) {
	assert.Equal(t, "same-origin", CredentialsSameOrigin.String())
	assert.Equal(t, "include", CredentialsInclude.String())
	assert.Equal(t, "omit", CredentialsOmit.String())
	assert.Equal(t, "Credentials(9)", Credentials(9).String())
}

func TestDescriptor_Clone(t *testing.T) {
	u, _ := url.Parse("https://user:pw@example.com/a")
	d := &Descriptor{
		Method: "POST",
		URL:    u,
		Header: http.Header{"X-A": {"1"}},
		Body:   []byte("body"),
	}
	d2 := d.Clone()
	d2.Header.Set("X-A", "2")
	d2.Body[0] = 'B'
	d2.URL.Path = "/b"
	assert.Equal(t, "1", d.Header.Get("X-A"))
	assert.Equal(t, []byte("body"), d.Body)
	assert.Equal(t, "/a", d.URL.Path)
	assert.Equal(t, "user", d2.URL.User.Username())
}

func TestDescriptor_ToRequest(t *testing.T) {
	u, _ := url.Parse("https://user:pw@example.com/a?q=1#frag")
	ref, _ := url.Parse("https://example.com/from")
	d := &Descriptor{
		Method:   "POST",
		URL:      u,
		Header:   http.Header{"Content-Type": {"text/plain"}},
		Body:     []byte("hello"),
		Referrer: ref,
		Origin:   "https://example.com",
	}
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	t.Run("without URL credentials", func(t *testing.T) {
		r := d.ToRequest(ctx)
		assert.Same(t, ctx, r.Context())
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "https://example.com/a?q=1", r.URL.String())
		assert.Equal(t, "example.com", r.Host)
		assert.Equal(t, "https://example.com/from", r.Header.Get("Referer"))
		assert.Equal(t, "https://example.com", r.Header.Get("Origin"))
		assert.Equal(t, int64(5), r.ContentLength)
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(b))
		rc, err := r.GetBody()
		require.NoError(t, err)
		b, _ = io.ReadAll(rc)
		assert.Equal(t, "hello", string(b))
		assert.Empty(t, d.Header.Get("Referer"), "descriptor header must not change")
		assert.Equal(t, "frag", d.URL.Fragment, "descriptor URL must not change")
	})
	t.Run("with URL credentials", func(t *testing.T) {
		d2 := d.Clone()
		d2.UseURLCredentials = true
		r := d2.ToRequest(ctx)
		require.NotNil(t, r.URL.User)
		assert.Equal(t, "user", r.URL.User.Username())
		d2.Credentials = CredentialsOmit
		assert.Nil(t, d2.ToRequest(ctx).URL.User)
	})
	t.Run("GET has no Origin and no body", func(t *testing.T) {
		d2 := d.Clone()
		d2.Method = "GET"
		d2.Body = nil
		r := d2.ToRequest(ctx)
		assert.Empty(t, r.Header.Get("Origin"))
		assert.Nil(t, r.Body)
		assert.Equal(t, int64(0), r.ContentLength)
	})
}
