// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package xhr provides an HTTP request controller with the lifecycle of
the web platform's XMLHttpRequest: open, configure, send, observe
progress, abort, and read typed views of the response.

A Request belongs to an owner context, represented by an Executor. Events
from the network are posted to the executor, so all state changes and
handler calls happen on the owner context, one at a time. A Loop is a
ready-made executor:

	loop := &xhr.Loop{}
	r := xhr.New(loop)
	handlers := &xhr.HandlerGroup{}
	handlers.PushBack(xhr.LoadEnd, xhr.HandlerFunc(
		func(_ xhr.Event, n *xhr.Notification) {
			text, _ := n.Request.ResponseText()
			fmt.Println(n.Request.Status(), text)
			loop.Close()
		}),
	)
	r.Handlers = handlers
	if err := r.Open("GET", "https://www.example.com", true); err != nil {
		...
	}
	if err := r.Send(nil); err != nil {
		...
	}
	_ = loop.Run(context.Background())

In synchronous mode Send blocks until the response is complete, and
the helpers Do, Get, Head, Post and PostForm wrap that for one-off use:

	r := xhr.New(&xhr.Loop{})
	if err := xhr.Get(r, "https://www.example.com"); err != nil {
		...
	}
	text, _ := r.ResponseText()

Each Open and each Abort starts a new generation. Anything still
arriving from the network for an older generation is dropped, and a
handler which calls Open or Abort cuts short the sequence of
notifications being delivered.

The network exchange itself is performed by a fetch.Service. By default
this is httpfetch.Default, which uses net/http; set Request.Fetcher to
use another, for example an httpfetch.Service with a retry policy and
metrics, or a fetchtest.Service in tests. Timeouts are scheduled with a
timeout.Scheduler, set through Request.Timer.
*/
package xhr
