// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the core types Descriptor (describes one request
to be fetched) and Execution (describes a fetch service working on a
Descriptor), together with the helpers the request controller uses to
build a Descriptor: method normalization, URL resolution and request body
extraction.

A Descriptor looks like a stripped-down http.Request with server-side
fields removed and the body replaced with a pre-buffered []byte. It adds
the credentials mode and cross-origin flags a fetch service needs. Convert
it into a lower-level request with ToRequest:

	d := &request.Descriptor{Method: "GET", URL: u, Header: h}
	r := d.ToRequest(ctx)

Bodies of any supported type are converted with Extract, which also
reports the Content-Type the body implies:

	b, err := request.Extract(url.Values{"q": {"go"}})
	...
	// b.ContentType == "application/x-www-form-urlencoded;charset=UTF-8"

Execution is handed to retry policies. You will typically not allocate
Execution instances yourself.
*/
package request
