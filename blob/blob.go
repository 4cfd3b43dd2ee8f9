// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package blob provides an immutable snapshot of bytes tagged with a MIME
// type. Blobs are produced for the "blob" response type and may be used
// as request bodies.
package blob

import (
	"bytes"
	"io"
)

// A Blob is an immutable byte snapshot. The zero value is an empty blob
// with no type.
type Blob struct {
	data []byte
	typ  string
}

// New returns a Blob holding a copy of data with MIME type typ. typ may be
// the empty string if the type is unknown.
func New(data []byte, typ string) *Blob {
	b := &Blob{typ: typ}
	if len(data) > 0 {
		b.data = make([]byte, len(data))
		copy(b.data, data)
	}
	return b
}

// Type returns the MIME type of the blob, or the empty string.
func (b *Blob) Type() string {
	return b.typ
}

// Size returns the number of bytes in the blob.
func (b *Blob) Size() int {
	return len(b.data)
}

// Bytes returns a copy of the blob's contents.
func (b *Blob) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// NewReader returns a reader over the blob's contents.
func (b *Blob) NewReader() io.Reader {
	return bytes.NewReader(b.data)
}

// Slice returns a new blob holding bytes [start, end) of b with type typ.
// Out of range indices are clamped.
func (b *Blob) Slice(start, end int, typ string) *Blob {
	if start < 0 {
		start = 0
	}
	if end > len(b.data) {
		end = len(b.data)
	}
	if start > end {
		start = end
	}
	return New(b.data[start:end], typ)
}
