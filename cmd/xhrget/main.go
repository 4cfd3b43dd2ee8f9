// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command xhrget makes one HTTP request through an xhr.Request and
// writes the response body to standard output.
//
//	xhrget [flags] URL
//
// Settings are read from .xhrget.yaml, or the file named with --config,
// and may be overridden by XHRGET_ environment variables and by flags.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
