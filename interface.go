// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

import (
	"net/http"
	"net/url"
	"sort"
)

// Opener is the interface that wraps the basic Open method.
type Opener interface {
	Open(method, url string, async bool) error
}

// HeaderSetter is the interface that wraps the basic SetRequestHeader
// method.
type HeaderSetter interface {
	SetRequestHeader(name, value string) error
}

// Sender is the interface that wraps the basic Send method.
type Sender interface {
	Send(body interface{}) error
}

// Aborter is the interface that wraps the basic Abort method.
type Aborter interface {
	Abort()
}

// Exchanger is the interface that groups the Open, SetRequestHeader,
// Send and Abort methods. Request implements Exchanger.
type Exchanger interface {
	Opener
	HeaderSetter
	Sender
	Aborter
}

var _ Exchanger = (*Request)(nil)

// Do uses x to make a synchronous request with the given method, URL,
// headers and body, and returns the result of Send. Header names are
// set in sorted order, each value in turn. The response is read from
// x once Do returns.
func Do(x Exchanger, method, url string, h http.Header, body interface{}) error {
	if err := x.Open(method, url, false); err != nil {
		return err
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range h[name] {
			if err := x.SetRequestHeader(name, v); err != nil {
				return err
			}
		}
	}
	return x.Send(body)
}

// Get uses x to make a synchronous GET request to url.
func Get(x Exchanger, url string) error {
	return Do(x, http.MethodGet, url, nil, nil)
}

// Head uses x to make a synchronous HEAD request to url.
func Head(x Exchanger, url string) error {
	return Do(x, http.MethodHead, url, nil, nil)
}

// Post uses x to make a synchronous POST request to url. If contentType
// is not empty it is sent as the Content-Type header. The body may be
// any type accepted by Send.
func Post(x Exchanger, url, contentType string, body interface{}) error {
	var h http.Header
	if contentType != "" {
		h = http.Header{"Content-Type": {contentType}}
	}
	return Do(x, http.MethodPost, url, h, body)
}

// PostForm uses x to make a synchronous POST request to url with data's
// keys and values URL-encoded as the body. The Content-Type is
// application/x-www-form-urlencoded;charset=UTF-8.
func PostForm(x Exchanger, url string, data url.Values) error {
	return Do(x, http.MethodPost, url, nil, data)
}
