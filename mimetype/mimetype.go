// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package mimetype parses MIME type values such as Content-Type header
// values and the argument to overrideMimeType. Unlike mime.ParseMediaType
// from the standard library, parameters keep their original order, which
// matters when a single parameter of an author-supplied Content-Type has
// to be rewritten.
package mimetype

import (
	"errors"
	"strings"

	"github.com/gogama/xhr/header"
)

// ErrSyntax is returned when a MIME type value cannot be parsed.
var ErrSyntax = errors.New("xhr/mimetype: invalid MIME type")

// A Param is a single MIME type parameter. Name is lower case; Value is
// stored unquoted and with its original case.
type Param struct {
	Name  string
	Value string
}

// A MediaType is a parsed MIME type. Type and Subtype are lower case.
type MediaType struct {
	Type    string
	Subtype string
	Params  []Param
}

// Parse parses a MIME type value of the form type/subtype followed by
// zero or more ;name=value parameters. Parameter values may be tokens or
// quoted strings. Parameters with an invalid name or value are skipped,
// as are repeated parameter names after the first.
func Parse(s string) (*MediaType, error) {
	s = header.TrimHTTPWhitespace(s)
	slash := strings.IndexByte(s, '/')
	if slash < 0 {
		return nil, ErrSyntax
	}
	typ := s[:slash]
	rest := s[slash+1:]
	semi := strings.IndexByte(rest, ';')
	subtype := rest
	if semi >= 0 {
		subtype = rest[:semi]
		rest = rest[semi:]
	} else {
		rest = ""
	}
	subtype = header.TrimHTTPWhitespace(subtype)
	if !header.IsToken(typ) || !header.IsToken(subtype) {
		return nil, ErrSyntax
	}
	m := &MediaType{
		Type:    strings.ToLower(typ),
		Subtype: strings.ToLower(subtype),
	}
	for len(rest) > 0 {
		// rest starts with ';'
		rest = strings.TrimLeft(rest[1:], " \t\r\n")
		var name string
		end := strings.IndexAny(rest, ";=")
		if end < 0 {
			break
		}
		name = strings.ToLower(rest[:end])
		if rest[end] == ';' {
			rest = rest[end:]
			continue
		}
		rest = rest[end+1:]
		var value string
		if strings.HasPrefix(rest, `"`) {
			value, rest = unquote(rest)
			if i := strings.IndexByte(rest, ';'); i >= 0 {
				rest = rest[i:]
			} else {
				rest = ""
			}
		} else if i := strings.IndexByte(rest, ';'); i >= 0 {
			value = header.TrimHTTPWhitespace(rest[:i])
			rest = rest[i:]
		} else {
			value = header.TrimHTTPWhitespace(rest)
			rest = ""
		}
		if !header.IsToken(name) || value == "" || !validValue(value) {
			continue
		}
		if _, dup := m.Param(name); dup {
			continue
		}
		m.Params = append(m.Params, Param{Name: name, Value: value})
	}
	return m, nil
}

func unquote(s string) (string, string) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			b.WriteByte(s[i+1])
			i += 2
		case c == '"':
			return b.String(), s[i+1:]
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), ""
}

func validValue(v string) bool {
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c < 0x20 && c != '\t' || c == 0x7f {
			return false
		}
	}
	return true
}

// Essence returns type/subtype without any parameters.
func (m *MediaType) Essence() string {
	return m.Type + "/" + m.Subtype
}

// Suffix returns the structured syntax suffix of the subtype, for
// example "xml" for "image/svg+xml", or the empty string.
func (m *MediaType) Suffix() string {
	if i := strings.LastIndexByte(m.Subtype, '+'); i >= 0 {
		return m.Subtype[i+1:]
	}
	return ""
}

// IsHTML reports whether m is text/html.
func (m *MediaType) IsHTML() bool {
	return m.Type == "text" && m.Subtype == "html"
}

// IsXML reports whether m is text/xml, application/xml, or any type
// with a +xml suffix.
func (m *MediaType) IsXML() bool {
	if m.Subtype == "xml" && (m.Type == "text" || m.Type == "application") {
		return true
	}
	return m.Suffix() == "xml"
}

// Param returns the value of the named parameter. The name is matched
// case-insensitively.
func (m *MediaType) Param(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, p := range m.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Charset returns the value of the charset parameter.
func (m *MediaType) Charset() (string, bool) {
	return m.Param("charset")
}

// WithoutParams returns a copy of m with all parameters removed.
func (m *MediaType) WithoutParams() *MediaType {
	return &MediaType{Type: m.Type, Subtype: m.Subtype}
}

// WithParam returns a copy of m in which the named parameter has the
// given value. An existing parameter keeps its position; a new one is
// appended.
func (m *MediaType) WithParam(name, value string) *MediaType {
	name = strings.ToLower(name)
	m2 := &MediaType{Type: m.Type, Subtype: m.Subtype, Params: make([]Param, 0, len(m.Params)+1)}
	found := false
	for _, p := range m.Params {
		if p.Name == name {
			p.Value = value
			found = true
		}
		m2.Params = append(m2.Params, p)
	}
	if !found {
		m2.Params = append(m2.Params, Param{Name: name, Value: value})
	}
	return m2
}

// String serializes m as type/subtype;name=value;..., quoting values
// which are not tokens.
func (m *MediaType) String() string {
	var b strings.Builder
	b.WriteString(m.Essence())
	for _, p := range m.Params {
		b.WriteByte(';')
		b.WriteString(p.Name)
		b.WriteByte('=')
		if header.IsToken(p.Value) {
			b.WriteString(p.Value)
			continue
		}
		b.WriteByte('"')
		for i := 0; i < len(p.Value); i++ {
			if c := p.Value[i]; c == '"' || c == '\\' {
				b.WriteByte('\\')
			}
			b.WriteByte(p.Value[i])
		}
		b.WriteByte('"')
	}
	return b.String()
}
