// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package charset selects text encodings by label and decodes response
// bytes to UTF-8 strings.
//
// Labels are resolved with the WHATWG Encoding Standard label table
// provided by golang.org/x/text/encoding/htmlindex, so "latin1",
// "ISO-8859-1" and "windows-1252" all name the same encoding.
package charset

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// UTF8 is the name of the UTF-8 encoding.
const UTF8 = "utf-8"

var (
	bomUTF8    = []byte{0xef, 0xbb, 0xbf}
	bomUTF16BE = []byte{0xfe, 0xff}
	bomUTF16LE = []byte{0xff, 0xfe}
)

// Lookup returns the encoding for label, or nil and false if the label is
// not known. Leading and trailing whitespace is ignored and the match is
// case-insensitive.
func Lookup(label string) (encoding.Encoding, bool) {
	e, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return nil, false
	}
	return e, true
}

// Name returns the canonical name of e, for example "utf-8" or
// "windows-1252". A nil encoding is reported as UTF-8.
func Name(e encoding.Encoding) string {
	if e == nil {
		return UTF8
	}
	n, err := htmlindex.Name(e)
	if err != nil {
		return UTF8
	}
	return n
}

// IsUTF8 reports whether e is nil or the UTF-8 encoding.
func IsUTF8(e encoding.Encoding) bool {
	return Name(e) == UTF8
}

// Sniff inspects b for a byte order mark. If one is found it returns the
// encoding the mark designates and the number of bytes it occupies.
func Sniff(b []byte) (encoding.Encoding, int) {
	switch {
	case bytes.HasPrefix(b, bomUTF8):
		return unicode.UTF8, len(bomUTF8)
	case bytes.HasPrefix(b, bomUTF16BE):
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), len(bomUTF16BE)
	case bytes.HasPrefix(b, bomUTF16LE):
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), len(bomUTF16LE)
	}
	return nil, 0
}

// Decode decodes b to a string. A byte order mark takes precedence over
// e and is not part of the result. A nil e means UTF-8. Malformed input
// never fails: invalid sequences become U+FFFD.
func Decode(b []byte, e encoding.Encoding) string {
	if bomEnc, n := Sniff(b); bomEnc != nil {
		e = bomEnc
		b = b[n:]
	}
	if IsUTF8(e) {
		e = unicode.UTF8
	}
	out, err := e.NewDecoder().Bytes(b)
	if err != nil {
		out, _ = unicode.UTF8.NewDecoder().Bytes(b)
	}
	return string(out)
}

// DecodeUTF8 decodes b as UTF-8, removing a leading UTF-8 byte order mark
// if there is one. Other encodings and their marks are not recognized.
func DecodeUTF8(b []byte) ([]byte, error) {
	return unicode.UTF8BOM.NewDecoder().Bytes(b)
}

// Encode encodes s with e. A nil or UTF-8 e returns the bytes of s
// unchanged.
func Encode(s string, e encoding.Encoding) ([]byte, error) {
	if IsUTF8(e) {
		return []byte(s), nil
	}
	return e.NewEncoder().Bytes([]byte(s))
}
