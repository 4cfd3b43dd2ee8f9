// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/gogama/xhr/blob"
	"github.com/gogama/xhr/document"
)

const badBodyTypeMsg = "xhr/request: invalid type (for body use nil, " +
	"string, []byte, io.Reader, url.Values, *FormData, *blob.Blob or " +
	"*document.Document)"

// ErrBodyType is returned by Extract for unsupported body types.
var ErrBodyType = errors.New(badBodyTypeMsg)

// A Body is the result of extracting a request body.
type Body struct {
	// Bytes is the encoded body.
	Bytes []byte
	// ContentType is the Content-Type implied by the body, or empty if
	// the body type implies none.
	ContentType string
	// Textual indicates the body was produced by encoding text as
	// UTF-8, in which case an author-supplied charset parameter on the
	// Content-Type is rewritten to UTF-8.
	Textual bool
}

// Extract converts a generic body parameter to a Body.
//
// The body parameter may be nil, or it may be a string, []byte,
// io.Reader, io.ReadCloser, url.Values, *FormData, *blob.Blob or
// *document.Document. The conversion logic is:
//
// • If body is nil, a nil Body and no error is returned.
//
// • If body is a string, its UTF-8 bytes with Content-Type
// text/plain;charset=UTF-8.
//
// • If body is a []byte, body itself with no Content-Type.
//
// • If body is an io.Reader or io.ReadCloser, the whole contents of
// the reader (closing it if it implements Closer) with no Content-Type.
//
// • If body is url.Values, the URL-encoded form with Content-Type
// application/x-www-form-urlencoded;charset=UTF-8.
//
// • If body is a *FormData, the multipart/form-data encoding with a
// generated boundary.
//
// • If body is a *blob.Blob, its bytes with its type, if any.
//
// • If body is a *document.Document, its serialization with Content-Type
// text/html;charset=UTF-8 for HTML and application/xml;charset=UTF-8
// for XML.
//
// Any other type yields ErrBodyType.
func Extract(body interface{}) (*Body, error) {
	switch x := body.(type) {
	case nil:
		return nil, nil
	case string:
		return &Body{Bytes: []byte(x), ContentType: "text/plain;charset=UTF-8", Textual: true}, nil
	case []byte:
		return &Body{Bytes: x}, nil
	case io.ReadCloser:
		b, err := io.ReadAll(x)
		if err != nil {
			return nil, err
		}
		err = x.Close()
		if err != nil {
			return nil, err
		}
		return &Body{Bytes: b}, nil
	case io.Reader:
		return Extract(io.NopCloser(x))
	case url.Values:
		return &Body{
			Bytes:       []byte(x.Encode()),
			ContentType: "application/x-www-form-urlencoded;charset=UTF-8",
		}, nil
	case *FormData:
		return x.encode()
	case *blob.Blob:
		return &Body{Bytes: x.Bytes(), ContentType: x.Type()}, nil
	case *document.Document:
		b, err := x.Serialize()
		if err != nil {
			return nil, err
		}
		ct := "application/xml;charset=UTF-8"
		if x.Kind == document.HTML {
			ct = "text/html;charset=UTF-8"
		}
		return &Body{Bytes: b, ContentType: ct, Textual: true}, nil
	default:
		return nil, fmt.Errorf("%w, got %T", ErrBodyType, body)
	}
}

// FormData is an ordered list of form entries sent as a
// multipart/form-data request body. The zero value is an empty form.
type FormData struct {
	entries []formEntry
	// boundary overrides the random multipart boundary in tests.
	boundary string
}

type formEntry struct {
	name     string
	value    string
	blob     *blob.Blob
	filename string
}

// Append adds a text field.
func (f *FormData) Append(name, value string) {
	f.entries = append(f.entries, formEntry{name: name, value: value})
}

// AppendBlob adds a file field holding the contents of b. An empty
// filename is sent as "blob".
func (f *FormData) AppendBlob(name string, b *blob.Blob, filename string) {
	if filename == "" {
		filename = "blob"
	}
	f.entries = append(f.entries, formEntry{name: name, blob: b, filename: filename})
}

// Len returns the number of entries.
func (f *FormData) Len() int {
	return len(f.entries)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (f *FormData) encode() (*Body, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if f.boundary != "" {
		if err := w.SetBoundary(f.boundary); err != nil {
			return nil, err
		}
	}
	for _, e := range f.entries {
		if e.blob == nil {
			if err := w.WriteField(e.name, e.value); err != nil {
				return nil, err
			}
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(e.name), quoteEscaper.Replace(e.filename)))
		typ := e.blob.Type()
		if typ == "" {
			typ = "application/octet-stream"
		}
		h.Set("Content-Type", typ)
		p, err := w.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err = p.Write(e.blob.Bytes()); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &Body{
		Bytes:       buf.Bytes(),
		ContentType: "multipart/form-data;boundary=" + w.Boundary(),
	}, nil
}
