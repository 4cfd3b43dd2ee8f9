// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHTML(t *testing.T) {
	root, err := DefaultParser.ParseHTML(strings.NewReader("<title>Hi</title><p>x"))
	require.NoError(t, err)
	d := &Document{Kind: HTML, Root: root}
	require.NotNil(t, d.DocumentElement())
	assert.Equal(t, "html", d.DocumentElement().Data)
	assert.Equal(t, "Hi", TextContent(d.Find("title")))

	out, err := d.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "<html><head><title>Hi</title></head><body><p>x</p></body></html>", string(out))
}

func TestParseXML(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		in := `<?xml version="1.0" encoding="ISO-8859-1"?>
<a xmlns="urn:x" xmlns:p="urn:p" k="v&amp;"><b>hi &lt;there&gt;</b><!--c--><c/></a>`
		root, err := DefaultParser.ParseXML(strings.NewReader(in))
		require.NoError(t, err)
		d := &Document{Kind: XML, Root: root}
		el := d.DocumentElement()
		require.NotNil(t, el)
		assert.Equal(t, "a", el.Data)
		assert.Equal(t, "urn:x", el.Namespace)
		assert.Equal(t, "hi <there>", TextContent(d.Find("b")))

		out, err := d.Serialize()
		require.NoError(t, err)
		assert.Equal(t, `<a xmlns="urn:x" xmlns:p="urn:p" k="v&amp;"><b>hi &lt;there&gt;</b><!--c--><c/></a>`, string(out))
	})
	t.Run("errors", func(t *testing.T) {
		testCases := []struct {
			name string
			in   string
		}{
			{"malformed", "<a><b></a>"},
			{"truncated", "<a>"},
			{"empty", ""},
			{"text only", "just text"},
			{"two roots", "<a/><b/>"},
		}
		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				_, err := DefaultParser.ParseXML(strings.NewReader(testCase.in))
				assert.Error(t, err)
			})
		}
	})
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "html", HTML.String())
	assert.Equal(t, "xml", XML.String())
}

func TestDocument_Nil(t *testing.T) {
	var d *Document
	assert.Nil(t, d.DocumentElement())
	assert.Nil(t, d.Find("x"))
	assert.Equal(t, "", TextContent(nil))
}
