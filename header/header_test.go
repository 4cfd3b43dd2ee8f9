// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package header

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsToken(t *testing.T) {
	assert.True(t, IsToken("X-Foo"))
	assert.True(t, IsToken("content-type"))
	assert.True(t, IsToken("!#$%&'*+-.^_`|~09azAZ"))
	assert.False(t, IsToken(""))
	assert.False(t, IsToken("X Foo"))
	assert.False(t, IsToken("X:Foo"))
	assert.False(t, IsToken("(comment)"))
	assert.False(t, IsToken("naïve"))
	assert.False(t, IsToken("a\x00b"))
}

func TestIsFieldValue(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		valid bool
	}{
		{"plain", "value", true},
		{"empty", "", true},
		{"inner space", "two words", true},
		{"leading space", " value", true},
		{"control character", "va\x01lue", false},
		{"DEL", "va\x7flue", false},
		{"non-ASCII", "caf\xc3\xa9", false},
		{"folded with SP", "line1\r\n value2", true},
		{"folded with HT", "line1\r\n\tvalue2", true},
		{"folded with run", "line1\r\n \t value2", true},
		{"CRLF without fold", "line1\r\nvalue2", false},
		{"bare CR", "line1\rvalue2", false},
		{"bare LF", "line1\nvalue2", false},
		{"CR then space", "line1\r value2", false},
		{"HT outside fold", "a\tb", false},
		{"double CRLF", "a\r\n\r\n b", false},
		{"fold after fold", "a\r\n b\r\n c", true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.valid, IsFieldValue(testCase.value))
		})
	}
}

func TestTrimHTTPWhitespace(t *testing.T) {
	assert.Equal(t, "a b", TrimHTTPWhitespace(" \t a b\r\n"))
	assert.Equal(t, "", TrimHTTPWhitespace(" \r\n\t"))
	assert.Equal(t, "x", TrimHTTPWhitespace("x"))
}

func TestIsForbiddenName(t *testing.T) {
	for _, name := range []string{"Host", "cookie", "CONTENT-LENGTH", "Referer", "Proxy-Authorization", "Sec-Fetch-Mode", "keep-alive"} {
		assert.True(t, IsForbiddenName(name), name)
	}
	for _, name := range []string{"X-Foo", "Content-Type", "Accept", "Authorization", "Proxyish"} {
		assert.False(t, IsForbiddenName(name), name)
	}
}

func TestFilter(t *testing.T) {
	h := http.Header{
		"Set-Cookie":   {"a=b"},
		"Set-Cookie2":  {"c=d"},
		"Content-Type": {"text/plain"},
	}
	f := Filter(h)
	assert.Equal(t, http.Header{"Content-Type": {"text/plain"}}, f)
	assert.Len(t, h, 3, "original must not be modified")
	assert.Equal(t, http.Header{}, Filter(nil))
}
