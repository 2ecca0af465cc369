package repoxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Element is one element of a parsed repository document. Name.Space holds
// the resolved namespace URI, or the raw prefix when the document never
// declares it.
type Element struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*Element
	Text     string

	// Line and Col locate the element's start tag in the source buffer.
	Line int
	Col  int
}

// Document is the parsed form of one repository index document. Elements
// holds the root-level elements; well-formed XML has exactly one, but the
// tree is built leniently enough to carry what the decoder produced.
type Document struct {
	Elements []*Element
}

// ParseError reports a well-formedness failure with its position.
type ParseError struct {
	Line int
	Col  int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d:%d: %v", e.Line, e.Col, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseDocument builds an Element tree from the byte buffer. The buffer is
// not retained; each call constructs a fresh reader.
func ParseDocument(data []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	lines := newLineIndex(data)

	doc := &Document{}
	var stack []*Element

	for {
		off := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line, col := lines.locate(dec.InputOffset())
			return nil, &ParseError{Line: line, Col: col, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			line, col := lines.locate(off)
			el := &Element{
				Name: t.Name,
				Attr: append([]xml.Attr(nil), t.Attr...),
				Line: line,
				Col:  col,
			}
			if len(stack) == 0 {
				doc.Elements = append(doc.Elements, el)
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.Text += string(t)
			}
		}
	}

	if len(doc.Elements) == 0 {
		return nil, &ParseError{Line: 1, Col: 1, Err: errors.New("document has no elements")}
	}

	return doc, nil
}

// Root returns the first root-level element matching the given namespace URI
// and local name, or nil.
func (d *Document) Root(nsURI, local string) *Element {
	for _, el := range d.Elements {
		if el.Name.Space == nsURI && el.Name.Local == local {
			return el
		}
	}
	return nil
}

// Child returns the first direct child with the given namespace and local
// name, or nil.
func (e *Element) Child(nsURI, local string) *Element {
	for _, c := range e.Children {
		if c.Name.Space == nsURI && c.Name.Local == local {
			return c
		}
	}
	return nil
}

// ChildText returns the trimmed character data of the named child, or the
// empty string when the child is absent.
func (e *Element) ChildText(nsURI, local string) string {
	c := e.Child(nsURI, local)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text)
}

// TextContent returns the element's own character data, trimmed.
func (e *Element) TextContent() string {
	return strings.TrimSpace(e.Text)
}

// AttrValue returns the value of the named unqualified attribute, or "".
func (e *Element) AttrValue(local string) string {
	for _, a := range e.Attr {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// lineIndex maps byte offsets to 1-based line/column positions.
type lineIndex struct {
	starts []int64
}

func newLineIndex(data []byte) *lineIndex {
	starts := []int64{0}
	for i, b := range data {
		if b == '\n' {
			starts = append(starts, int64(i)+1)
		}
	}
	return &lineIndex{starts: starts}
}

func (li *lineIndex) locate(off int64) (line, col int) {
	i := sort.Search(len(li.starts), func(i int) bool {
		return li.starts[i] > off
	})
	// i is the first line starting after off; the offset is on line i.
	line = i
	col = int(off-li.starts[i-1]) + 1
	return line, col
}
