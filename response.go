// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding"

	"github.com/gogama/xhr/blob"
	"github.com/gogama/xhr/charset"
	"github.com/gogama/xhr/document"
	"github.com/gogama/xhr/mimetype"
)

// A ResponseType selects the view of the response body returned by
// Request.Response.
type ResponseType int

const (
	// Default produces text, like Text. It also lets ResponseXML
	// return XML documents.
	Default ResponseType = iota
	// Text produces the body decoded as text.
	Text
	// ArrayBuffer produces a copy of the raw body bytes.
	ArrayBuffer
	// Blob produces a *blob.Blob of the body tagged with the response
	// MIME type.
	Blob
	// Document produces a parsed HTML or XML document.
	Document
	// JSON produces the body parsed as JSON.
	JSON
)

var responseTypeNames = []string{
	Default:     "",
	Text:        "text",
	ArrayBuffer: "arraybuffer",
	Blob:        "blob",
	Document:    "document",
	JSON:        "json",
}

// String returns the web platform name of the response type. Default
// is the empty string.
func (t ResponseType) String() string {
	if t < 0 || int(t) >= len(responseTypeNames) {
		return fmt.Sprintf("ResponseType(%d)", int(t))
	}
	return responseTypeNames[t]
}

// ParseResponseType returns the response type named s, as returned by
// ResponseType.String.
func ParseResponseType(s string) (ResponseType, error) {
	for i, name := range responseTypeNames {
		if name == s {
			return ResponseType(i), nil
		}
	}
	return Default, fmt.Errorf("xhr: unknown response type %q", s)
}

// A Response is one view of the response body. Type says which field
// is populated. When Null is true no field is populated: the response is
// not available yet, or it could not be produced.
type Response struct {
	Type     ResponseType
	Null     bool
	Text     string
	Buffer   []byte
	Blob     *blob.Blob
	Document *document.Document
	// Value is the parsed JSON value: nil, bool, float64, string,
	// []interface{} or map[string]interface{}. It is nil when Null is
	// true.
	Value interface{}
}

type cacheKey struct {
	typ ResponseType
	gen uint64
}

// Response returns the view of the response body selected by the
// response type.
//
// Text views are available from the Loading state on and are decoded
// afresh on every call. All other views need the Done state; they are
// produced on first use and the same value is returned until the next
// generation begins, so callers must not modify them.
func (r *Request) Response() Response {
	t := r.responseType
	switch t {
	case Default, Text:
		return Response{Type: t, Text: r.text()}
	}
	if r.state != Done {
		return Response{Type: t, Null: true}
	}
	key := cacheKey{typ: t, gen: r.gen}
	if v, ok := r.cache[key]; ok {
		return v
	}
	v := Response{Type: t}
	switch t {
	case ArrayBuffer:
		v.Buffer = append(make([]byte, 0, len(r.buf)), r.buf...)
	case Blob:
		v.Blob = blob.New(r.buf, r.mimeTypeString())
	case Document:
		v.Document = r.document()
		v.Null = v.Document == nil
	case JSON:
		v.Value, v.Null = r.json()
	default:
		v.Null = true
	}
	if r.cache == nil {
		r.cache = make(map[cacheKey]Response)
	}
	r.cache[key] = v
	return v
}

// ResponseText returns the response body decoded as text. It fails with
// KindInvalidState unless the response type is Default or Text.
func (r *Request) ResponseText() (string, error) {
	if r.responseType != Default && r.responseType != Text {
		return "", newError(KindInvalidState, "responseText", nil)
	}
	return r.text(), nil
}

// ResponseXML returns the response document, or nil if there is none.
// With the Default response type only XML documents are produced. It
// fails with KindInvalidState unless the response type is Default or
// Document.
func (r *Request) ResponseXML() (*document.Document, error) {
	switch r.responseType {
	case Default:
		if r.state != Done {
			return nil, nil
		}
		key := cacheKey{typ: Document, gen: r.gen}
		if v, ok := r.cache[key]; ok {
			return v.Document, nil
		}
		d := r.document()
		if r.cache == nil {
			r.cache = make(map[cacheKey]Response)
		}
		r.cache[key] = Response{Type: Document, Document: d, Null: d == nil}
		return d, nil
	case Document:
		return r.Response().Document, nil
	}
	return nil, newError(KindInvalidState, "responseXML", nil)
}

func (r *Request) text() string {
	if r.state != Loading && r.state != Done {
		return ""
	}
	return charset.Decode(r.buf, r.finalCharset())
}

// json parses the body as UTF-8 JSON. An empty body, undecodable bytes
// and malformed JSON all produce null.
func (r *Request) json() (interface{}, bool) {
	if len(r.buf) == 0 {
		return nil, true
	}
	b, err := charset.DecodeUTF8(r.buf)
	if err != nil {
		return nil, true
	}
	var v interface{}
	if err = json.Unmarshal(b, &v); err != nil {
		r.logger().Debug().Uint64("gen", r.gen).Err(err).Msg("Response is not JSON")
		return nil, true
	}
	return v, v == nil
}

// document parses the body as HTML or XML according to the final MIME
// type. It returns nil when the fetch failed, when the MIME type is
// neither HTML nor XML, for HTML with the Default response type, and
// when the XML is not well-formed.
func (r *Request) document() *document.Document {
	if r.errored {
		return nil
	}
	mt := r.finalMIMEType()
	enc := r.finalCharset()
	kind := document.XML
	switch {
	case mt != nil && mt.IsHTML():
		if r.responseType != Document {
			return nil
		}
		kind = document.HTML
	case mt == nil || mt.IsXML():
	default:
		return nil
	}

	text := charset.Decode(r.buf, enc)
	var root *html.Node
	var err error
	if kind == document.HTML {
		root, err = r.parser().ParseHTML(strings.NewReader(text))
	} else {
		root, err = r.parser().ParseXML(strings.NewReader(text))
	}
	if err != nil {
		r.logger().Debug().Uint64("gen", r.gen).Stringer("kind", kind).Err(err).Msg("Response document did not parse")
		return nil
	}
	d := &document.Document{
		Kind:     kind,
		Encoding: charset.Name(enc),
		Root:     root,
	}
	if mt != nil {
		d.ContentType = mt.Essence()
	} else if kind == document.XML {
		d.ContentType = "application/xml"
	}
	if r.responseURL != "" {
		if u, err := r.url.Parse(r.responseURL); err == nil {
			d.URL = u
		}
	}
	return d
}

// finalMIMEType returns the override MIME type if there is one, or else
// the parsed Content-Type of the response, or nil.
func (r *Request) finalMIMEType() *mimetype.MediaType {
	if r.overrideMIME != nil {
		return r.overrideMIME
	}
	v, ok := lookup(r.responseHeader, "Content-Type")
	if !ok {
		return nil
	}
	mt, err := mimetype.Parse(v)
	if err != nil {
		return nil
	}
	return mt
}

// finalCharset returns the override charset if there is one, or else
// the encoding named by the charset parameter of the response
// Content-Type, or nil, which means UTF-8.
func (r *Request) finalCharset() encoding.Encoding {
	if r.overrideCharset != nil {
		return r.overrideCharset
	}
	v, ok := lookup(r.responseHeader, "Content-Type")
	if !ok {
		return nil
	}
	mt, err := mimetype.Parse(v)
	if err != nil {
		return nil
	}
	label, ok := mt.Charset()
	if !ok {
		return nil
	}
	e, _ := charset.Lookup(label)
	return e
}

func (r *Request) mimeTypeString() string {
	mt := r.finalMIMEType()
	if mt == nil {
		return ""
	}
	return mt.String()
}
