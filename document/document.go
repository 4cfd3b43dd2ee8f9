// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package document holds parsed HTML and XML response documents.
//
// Both kinds are represented as trees of golang.org/x/net/html nodes so
// that callers can walk either with the same code. HTML is parsed with
// the HTML5 parsing algorithm from golang.org/x/net/html; XML is parsed
// with encoding/xml and converted into the same node representation.
package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Kind distinguishes HTML documents from XML documents.
type Kind int

const (
	// HTML is a document parsed with the HTML parser.
	HTML Kind = iota
	// XML is a document parsed with the XML parser.
	XML
)

// String returns "html" or "xml".
func (k Kind) String() string {
	if k == HTML {
		return "html"
	}
	return "xml"
}

// ErrNoRoot is returned by the XML parser when the input contains no
// root element.
var ErrNoRoot = errors.New("xhr/document: no root element")

// A Document is a parsed response document or a document supplied as a
// request body.
type Document struct {
	// Kind indicates which parser produced the document and which
	// serializer Serialize uses.
	Kind Kind
	// URL is the response URL the document was loaded from, if any.
	URL *url.URL
	// ContentType is the MIME type essence, e.g. "text/html".
	ContentType string
	// Encoding is the name of the character encoding used to decode the
	// document's bytes.
	Encoding string
	// Root is the document node. Its children are the top-level nodes
	// of the document.
	Root *html.Node
}

// DocumentElement returns the first element child of the document node,
// or nil.
func (d *Document) DocumentElement() *html.Node {
	if d == nil || d.Root == nil {
		return nil
	}
	for c := d.Root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Find returns the first element in document order whose name is name,
// or nil.
func (d *Document) Find(name string) *html.Node {
	if d == nil {
		return nil
	}
	return find(d.Root, name)
}

func find(n *html.Node, name string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := find(c, name); m != nil {
			return m
		}
	}
	return nil
}

// TextContent returns the concatenated text of all text nodes below n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return b.String()
}

// Serialize writes the document in its own syntax: HTML documents are
// rendered with html.Render, XML documents with the XML serializer.
func (d *Document) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if d.Root == nil {
		return nil, nil
	}
	var err error
	if d.Kind == HTML {
		err = html.Render(&buf, d.Root)
	} else {
		err = renderXML(&buf, d.Root)
	}
	if err != nil {
		return nil, fmt.Errorf("xhr/document: serialize %s: %w", d.Kind, err)
	}
	return buf.Bytes(), nil
}

func renderXML(w *bytes.Buffer, n *html.Node) error {
	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := renderXML(w, c); err != nil {
				return err
			}
		}
	case html.ElementNode:
		w.WriteByte('<')
		w.WriteString(n.Data)
		for _, a := range n.Attr {
			w.WriteByte(' ')
			if a.Namespace != "" {
				w.WriteString(a.Namespace)
				w.WriteByte(':')
			}
			w.WriteString(a.Key)
			w.WriteString(`="`)
			if err := xml.EscapeText(w, []byte(a.Val)); err != nil {
				return err
			}
			w.WriteByte('"')
		}
		if n.FirstChild == nil {
			w.WriteString("/>")
			return nil
		}
		w.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := renderXML(w, c); err != nil {
				return err
			}
		}
		w.WriteString("</")
		w.WriteString(n.Data)
		w.WriteByte('>')
	case html.TextNode:
		return xml.EscapeText(w, []byte(n.Data))
	case html.CommentNode:
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->")
	}
	return nil
}

// A Parser turns decoded response text into a document tree.
type Parser interface {
	// ParseHTML parses r, which yields UTF-8 text, as HTML.
	ParseHTML(r io.Reader) (*html.Node, error)
	// ParseXML parses r, which yields UTF-8 text, as XML. Any XML
	// encoding declaration is ignored since the text is already decoded.
	ParseXML(r io.Reader) (*html.Node, error)
}

// DefaultParser is the Parser used when none is configured.
var DefaultParser Parser = parser{}

type parser struct{}

func (parser) ParseHTML(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

func (parser) ParseXML(r io.Reader) (*html.Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) {
		return in, nil
	}
	root := &html.Node{Type: html.DocumentNode}
	cur := root
	sawRoot := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xhr/document: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if cur == root {
				if sawRoot {
					return nil, errors.New("xhr/document: multiple root elements")
				}
				sawRoot = true
			}
			el := &html.Node{
				Type:      html.ElementNode,
				Data:      t.Name.Local,
				Namespace: t.Name.Space,
			}
			for _, a := range t.Attr {
				el.Attr = append(el.Attr, xmlAttr(a))
			}
			cur.AppendChild(el)
			cur = el
		case xml.EndElement:
			cur = cur.Parent
		case xml.CharData:
			if cur == root {
				continue
			}
			cur.AppendChild(&html.Node{Type: html.TextNode, Data: string(t)})
		case xml.Comment:
			cur.AppendChild(&html.Node{Type: html.CommentNode, Data: string(t)})
		}
	}
	if !sawRoot {
		return nil, ErrNoRoot
	}
	return root, nil
}

// xmlAttr keeps namespace declarations in their source form so that the
// serializer can write them back out.
func xmlAttr(a xml.Attr) html.Attribute {
	switch {
	case a.Name.Space == "" && a.Name.Local == "xmlns":
		return html.Attribute{Key: "xmlns", Val: a.Value}
	case a.Name.Space == "xmlns":
		return html.Attribute{Namespace: "xmlns", Key: a.Name.Local, Val: a.Value}
	default:
		return html.Attribute{Key: a.Name.Local, Val: a.Value}
	}
}
